package entities

import "time"

// Defaults of a freshly created clinic configuration
const (
	DefaultDoctorName  = "Dr. [Doctor Name]"
	DefaultClinicName  = "Pediatric Clinic"
	DefaultClinicPhone = "[Clinic Phone Number]"
)

// ClinicConfig is the singleton clinic profile printed on reports
type ClinicConfig struct {
	ID            string    `json:"id" db:"id"`
	DoctorName    string    `json:"doctor_name" db:"doctor_name"`
	ClinicName    string    `json:"clinic_name" db:"clinic_name"`
	ClinicPhone   string    `json:"clinic_phone" db:"clinic_phone"`
	ClinicAddress string    `json:"clinic_address" db:"clinic_address"`
	LogoPath      string    `json:"logo_path" db:"logo_path"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// NewDefaultClinicConfig returns the configuration used before an admin edits it
func NewDefaultClinicConfig(id string, now time.Time) *ClinicConfig {
	return &ClinicConfig{
		ID:          id,
		DoctorName:  DefaultDoctorName,
		ClinicName:  DefaultClinicName,
		ClinicPhone: DefaultClinicPhone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
