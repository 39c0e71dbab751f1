package entities

import (
	"time"

	"github.com/google/uuid"
)

// HallEventType names a change on the hall board
type HallEventType string

const (
	HallEventReservation  HallEventType = "reservation"
	HallEventHallStatus   HallEventType = "hall_status"
	HallEventSubmitted    HallEventType = "submitted_to_hall"
	HallEventReturned     HallEventType = "returned_to_today"
	HallEventFinished     HallEventType = "finished"
	HallEventDailyReset   HallEventType = "daily_reset"
	HallEventPatientEdits HallEventType = "patient_updated"
)

// HallEvent is broadcast after a workflow change has been committed so that
// waiting-hall screens can refresh.
type HallEvent struct {
	ID         string        `json:"id"`
	EventType  HallEventType `json:"event_type"`
	PatientIDs []string      `json:"patient_ids"`
	Count      int           `json:"count"`
	Actor      string        `json:"actor"`
	Timestamp  time.Time     `json:"timestamp"`
}

// NewHallEvent creates a hall event stamped with the given time
func NewHallEvent(eventType HallEventType, patientIDs []string, actor string, at time.Time) *HallEvent {
	if patientIDs == nil {
		patientIDs = []string{}
	}
	return &HallEvent{
		ID:         uuid.New().String(),
		EventType:  eventType,
		PatientIDs: patientIDs,
		Count:      len(patientIDs),
		Actor:      actor,
		Timestamp:  at,
	}
}
