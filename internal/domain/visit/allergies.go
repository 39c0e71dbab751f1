package visit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Allergies is the allergies field as sent by clients and shown back to them:
// either a list of allergens or free text.
type Allergies struct {
	List   []string
	Text   string
	IsList bool
}

// AllergyList builds a structured allergies value
func AllergyList(items ...string) Allergies {
	return Allergies{List: items, IsList: true}
}

// AllergyText builds a free-text allergies value
func AllergyText(text string) Allergies {
	return Allergies{Text: text}
}

// UnmarshalJSON accepts either a JSON array of strings or a JSON string
func (a *Allergies) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("allergies: %w", err)
		}
		*a = Allergies{List: list, IsList: true}
		return nil
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return fmt.Errorf("allergies must be a list of strings or a string")
	}
	*a = Allergies{Text: text}
	return nil
}

// MarshalJSON writes the list form as an array and the text form as a string
func (a Allergies) MarshalJSON() ([]byte, error) {
	if a.IsList {
		list := a.List
		if list == nil {
			list = []string{}
		}
		return json.Marshal(list)
	}
	return json.Marshal(a.Text)
}

// Empty reports whether there is nothing to store
func (a Allergies) Empty() bool {
	if a.IsList {
		return false
	}
	return strings.TrimSpace(a.Text) == ""
}

// String renders the value for reports
func (a Allergies) String() string {
	if a.IsList {
		return strings.Join(a.List, ", ")
	}
	return a.Text
}

// EncodeAllergies turns client input into the stored text column. Lists are
// stored as JSON, text is stored trimmed and blank text is stored as nil.
func EncodeAllergies(a Allergies) (*string, error) {
	if a.IsList {
		items := make([]string, 0, len(a.List))
		for _, item := range a.List {
			items = append(items, strings.TrimSpace(item))
		}
		b, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		s := string(b)
		return &s, nil
	}
	return CleanPtr(&a.Text), nil
}

// DecodeAllergies reads the stored column, trying the list form first
func DecodeAllergies(raw *string) Allergies {
	if raw == nil {
		return Allergies{}
	}
	if strings.HasPrefix(strings.TrimSpace(*raw), "[") {
		var list []string
		if err := json.Unmarshal([]byte(*raw), &list); err == nil {
			return Allergies{List: list, IsList: true}
		}
	}
	return Allergies{Text: *raw}
}
