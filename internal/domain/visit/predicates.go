package visit

import (
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
)

// DayBounds returns the half-open range [start, end) of the calendar day
// containing now, in now's location.
func DayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// MonthStart returns midnight of the first day of now's month
func MonthStart(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}

// SameDay reports whether t falls on the calendar day of now, in now's location
func SameDay(t, now time.Time) bool {
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// IsToday reports whether the patient has a visit on now's calendar day
func IsToday(p *entities.Patient, now time.Time) bool {
	return p.VisitDateTime != nil && SameDay(*p.VisitDateTime, now)
}

// EligibleForHall reports whether submit-to-hall would pick the patient up
func EligibleForHall(p *entities.Patient, now time.Time) bool {
	if !IsToday(p, now) || p.HallStatus != entities.HallStatusIn {
		return false
	}
	return p.Status != entities.VisitStatusInHall && p.Status != entities.VisitStatusFinished
}

// IsAwaiting reports whether the patient is waiting in the hall
func IsAwaiting(p *entities.Patient) bool {
	return p.Status == entities.VisitStatusInHall
}

// IsFinished reports whether the patient's visit is complete
func IsFinished(p *entities.Patient) bool {
	return p.Status == entities.VisitStatusFinished
}

// NeedsReset reports whether the daily reset clears this patient
func NeedsReset(p *entities.Patient) bool {
	return p.Status == entities.VisitStatusInHall || p.Status == entities.VisitStatusFinished
}

// AgeInYears counts whole 365-day periods between the date of birth and
// now's calendar date. A birth date after today counts as age 0.
func AgeInYears(dob, now time.Time) int {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	by, bm, bd := dob.Date()
	born := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(born).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 365
}
