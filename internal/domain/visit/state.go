// Package visit holds the rules of the same-day visit lifecycle: which status
// changes are legal, which patients belong to today's board and the hall, and
// how external input is parsed before it reaches a patient record.
package visit

import (
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
)

var transitions = map[entities.VisitStatus][]entities.VisitStatus{
	entities.VisitStatusRegistered: {entities.VisitStatusScheduled},
	entities.VisitStatusScheduled:  {entities.VisitStatusScheduled, entities.VisitStatusInHall},
	entities.VisitStatusInHall:     {entities.VisitStatusScheduled, entities.VisitStatusFinished, entities.VisitStatusRegistered},
	entities.VisitStatusFinished:   {entities.VisitStatusRegistered},
}

// CanTransition reports whether the lifecycle allows moving from one status to another
func CanTransition(from, to entities.VisitStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reservation is a parsed reservation request
type Reservation struct {
	VisitType     *entities.VisitType
	VisitDateTime *time.Time
	HallStatus    entities.HallStatus
	Status        entities.VisitStatus
}

// SubmitToHall moves an eligible patient into the hall. Eligibility is the
// hall predicate alone, so a registered patient whose visit was set through a
// general update is admitted as well.
func SubmitToHall(p *entities.Patient, now time.Time) bool {
	if !EligibleForHall(p, now) {
		return false
	}
	p.Status = entities.VisitStatusInHall
	p.UpdatedAt = now
	return true
}

// ReturnToToday sends a patient in the hall back to today's list. The hall
// status is left as it is.
func ReturnToToday(p *entities.Patient, now time.Time) bool {
	if p.Status != entities.VisitStatusInHall {
		return false
	}
	return move(p, entities.VisitStatusScheduled, now)
}

// Finish completes the visit of a patient in the hall
func Finish(p *entities.Patient, now time.Time) bool {
	if p.Status != entities.VisitStatusInHall {
		return false
	}
	if !move(p, entities.VisitStatusFinished, now) {
		return false
	}
	p.HallStatus = entities.HallStatusOut
	return true
}

// Reset clears the visit of a patient who reached the hall today
func Reset(p *entities.Patient, now time.Time) bool {
	if !NeedsReset(p) {
		return false
	}
	if !move(p, entities.VisitStatusRegistered, now) {
		return false
	}
	p.HallStatus = entities.HallStatusOut
	p.VisitDateTime = nil
	p.VisitType = nil
	p.DoctorComments = nil
	return true
}

// Reserve books a visit. It is a direct set and does not consult the
// transition graph.
func Reserve(p *entities.Patient, r Reservation, now time.Time) {
	p.VisitType = r.VisitType
	p.VisitDateTime = r.VisitDateTime
	p.HallStatus = r.HallStatus
	p.Status = r.Status
	Normalize(p)
	p.UpdatedAt = now
}

// SetHallStatus overwrites both hall and visit status
func SetHallStatus(p *entities.Patient, hall entities.HallStatus, status entities.VisitStatus, now time.Time) {
	p.HallStatus = hall
	p.Status = status
	Normalize(p)
	p.UpdatedAt = now
}

// Normalize enforces that a finished visit is never shown as in the hall
func Normalize(p *entities.Patient) {
	if p.Status == entities.VisitStatusFinished {
		p.HallStatus = entities.HallStatusOut
	}
}

func move(p *entities.Patient, to entities.VisitStatus, now time.Time) bool {
	if !CanTransition(p.Status, to) {
		return false
	}
	p.Status = to
	p.UpdatedAt = now
	return true
}
