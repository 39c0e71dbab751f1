package visit

import (
	"fmt"
	"strings"
	"time"
)

const dateOfBirthLayout = "2006-01-02"

// naive layouts carry no zone and are read in the clinic's location
var naiveVisitLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDateOfBirth parses a YYYY-MM-DD calendar date as midnight UTC
func ParseDateOfBirth(raw string) (time.Time, error) {
	t, err := time.Parse(dateOfBirthLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date_of_birth %q: expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// CheckDateOfBirth rejects a birth date after now's calendar date
func CheckDateOfBirth(dob, now time.Time) error {
	y, m, d := now.Date()
	if dob.After(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
		return fmt.Errorf("invalid date_of_birth %s: date is in the future", dob.Format(dateOfBirthLayout))
	}
	return nil
}

// ParseVisitDateTime parses an ISO-8601 timestamp. A trailing Z means UTC,
// explicit offsets are honoured and timestamps without a zone are taken to be
// in loc.
func ParseVisitDateTime(raw string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("invalid visit_datetime: empty value")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range naiveVisitLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid visit_datetime %q: expected ISO-8601", raw)
}

// Clean trims surrounding whitespace from free text
func Clean(s string) string {
	return strings.TrimSpace(s)
}

// CleanPtr trims optional free text. Blank values become nil.
func CleanPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
