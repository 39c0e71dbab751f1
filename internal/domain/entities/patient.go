package entities

import (
	"strings"
	"time"
)

// Patient is the single denormalized record tracking a child, its guardian
// and the current same-day visit. There is no separate visit table: history
// is whatever the visit fields hold until the next daily reset.
type Patient struct {
	ID           string    `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	DateOfBirth  time.Time `json:"date_of_birth" db:"date_of_birth"`
	Gender       string    `json:"gender" db:"gender"`
	ParentName   string    `json:"parent_name" db:"parent_name"`
	Phone        string    `json:"phone" db:"phone"`
	PatientPhone *string   `json:"patient_phone" db:"patient_phone"`

	City      string `json:"city" db:"city"`
	Area      string `json:"area" db:"area"`
	Street    string `json:"street" db:"street"`
	Apartment string `json:"apartment" db:"apartment"`

	BloodType      string  `json:"blood_type" db:"blood_type"`
	Allergies      *string `json:"allergies" db:"allergies"`
	MedicalHistory *string `json:"medical_history" db:"medical_history"`
	DoctorComments *string `json:"doctor_comments" db:"doctor_comments"`

	VisitDateTime *time.Time  `json:"visit_datetime" db:"visit_datetime"`
	VisitType     *VisitType  `json:"visit_type" db:"visit_type"`
	HallStatus    HallStatus  `json:"hall_status" db:"hall_status"`
	Status        VisitStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last"
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// FullAddress composes the display address as apartment, street, area, city
func (p *Patient) FullAddress() string {
	parts := make([]string, 0, 4)
	if p.Apartment != "" {
		parts = append(parts, "Apartment "+p.Apartment)
	}
	for _, part := range []string{p.Street, p.Area, p.City} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// HasVisit reports whether a visit is scheduled or active
func (p *Patient) HasVisit() bool {
	return p.VisitDateTime != nil
}

// Clone returns a deep copy so stores and events never share pointers
// with callers.
func (p *Patient) Clone() *Patient {
	if p == nil {
		return nil
	}
	c := *p
	c.PatientPhone = cloneString(p.PatientPhone)
	c.Allergies = cloneString(p.Allergies)
	c.MedicalHistory = cloneString(p.MedicalHistory)
	c.DoctorComments = cloneString(p.DoctorComments)
	if p.VisitDateTime != nil {
		t := *p.VisitDateTime
		c.VisitDateTime = &t
	}
	if p.VisitType != nil {
		vt := *p.VisitType
		c.VisitType = &vt
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
