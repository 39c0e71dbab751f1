package entities

import (
	"fmt"
	"strings"
)

// VisitStatus represents where a patient is in the same-day visit lifecycle
type VisitStatus string

const (
	VisitStatusRegistered VisitStatus = "registered"
	VisitStatusScheduled  VisitStatus = "scheduled"
	VisitStatusInHall     VisitStatus = "in_hall"
	VisitStatusFinished   VisitStatus = "finished"
)

// legacyWaitingStatus is what older front-ends send for a reserved patient
// that is waiting to be called in.
const legacyWaitingStatus = "waiting"

// VisitStatuses lists every valid status in lifecycle order
func VisitStatuses() []VisitStatus {
	return []VisitStatus{VisitStatusRegistered, VisitStatusScheduled, VisitStatusInHall, VisitStatusFinished}
}

// Valid reports whether s is one of the enumerated statuses
func (s VisitStatus) Valid() bool {
	switch s {
	case VisitStatusRegistered, VisitStatusScheduled, VisitStatusInHall, VisitStatusFinished:
		return true
	}
	return false
}

// ParseVisitStatus converts external input into a VisitStatus.
// "waiting" is accepted as an alias of scheduled.
func ParseVisitStatus(raw string) (VisitStatus, error) {
	value := strings.TrimSpace(raw)
	if value == legacyWaitingStatus {
		return VisitStatusScheduled, nil
	}
	s := VisitStatus(value)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q", raw)
	}
	return s, nil
}

// HallStatus tells whether the patient is physically present in the waiting hall
type HallStatus string

const (
	HallStatusIn  HallStatus = "In"
	HallStatusOut HallStatus = "Out"
)

// Valid reports whether h is In or Out
func (h HallStatus) Valid() bool {
	return h == HallStatusIn || h == HallStatusOut
}

// ParseHallStatus converts external input into a HallStatus
func ParseHallStatus(raw string) (HallStatus, error) {
	h := HallStatus(strings.TrimSpace(raw))
	if !h.Valid() {
		return "", fmt.Errorf("invalid hall_status %q", raw)
	}
	return h, nil
}

// VisitType is the kind of visit booked by a reservation
type VisitType string

const (
	VisitTypeExamination     VisitType = "examination"
	VisitTypeFastExamination VisitType = "fast examination"
	VisitTypeConsultation    VisitType = "consultation"
)

// Valid reports whether t is one of the bookable visit types
func (t VisitType) Valid() bool {
	switch t {
	case VisitTypeExamination, VisitTypeFastExamination, VisitTypeConsultation:
		return true
	}
	return false
}

// ParseVisitType converts external input into a VisitType
func ParseVisitType(raw string) (VisitType, error) {
	t := VisitType(strings.TrimSpace(raw))
	if !t.Valid() {
		return "", fmt.Errorf("invalid visit_type %q", raw)
	}
	return t, nil
}
