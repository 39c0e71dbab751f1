package services

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/domain/visit"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/pediatric-clinic/pkg/errors"
)

// ReservationRequest books a visit for a patient. Absent fields fall back to
// no visit type, no visit time, hall Out and status scheduled.
type ReservationRequest struct {
	VisitType     *string `json:"visit_type"`
	VisitDateTime *string `json:"visit_datetime"`
	HallStatus    *string `json:"hall_status"`
	Status        *string `json:"status"`
}

// HallStatusUpdate overwrites the hall and visit status of a patient
type HallStatusUpdate struct {
	HallStatus *string `json:"hall_status"`
	Status     *string `json:"status"`
}

// DailyResetResult reports the outcome of a daily reset.
// ResetCount is the number of patients scanned and ClearedCount the number
// whose visit was actually cleared.
type DailyResetResult struct {
	ResetCount   int `json:"reset_count"`
	ClearedCount int `json:"cleared_count"`
}

// HallService coordinates the batch transitions of the waiting hall
type HallService struct {
	repo    repositories.PatientRepository
	clock   providers.Clock
	events  providers.EventBus
	metrics *observability.Metrics

	// serializes batches within this process; WithinTx covers the store
	mu sync.Mutex
}

// NewHallService creates a new hall service
func NewHallService(
	repo repositories.PatientRepository,
	clock providers.Clock,
	events providers.EventBus,
	metrics *observability.Metrics,
) *HallService {
	return &HallService{
		repo:    repo,
		clock:   clock,
		events:  events,
		metrics: metrics,
	}
}

// SubmitToHall admits every patient with a visit today who is physically in
// the hall and not already in_hall or finished
func (s *HallService) SubmitToHall(ctx context.Context, actor entities.Identity) (int, error) {
	if err := requireStaff(actor); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	start, end := visit.DayBounds(now)
	var moved []string

	err := s.batch(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
		patients, err := tx.List(ctx, repositories.PatientFilter{
			HallStatus:      entities.HallStatusIn,
			ExcludeStatuses: []entities.VisitStatus{entities.VisitStatusInHall, entities.VisitStatusFinished},
			OrderBy:         repositories.OrderVisitAsc,
			ForUpdate:       true,
		}.OnDay(start, end))
		if err != nil {
			return err
		}
		moved = moved[:0]
		for _, p := range patients {
			if !visit.SubmitToHall(p, now) {
				continue
			}
			if err := tx.Update(ctx, p); err != nil {
				return err
			}
			moved = append(moved, p.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.afterCommit(ctx, entities.HallEventSubmitted, moved, actor, now)
	return len(moved), nil
}

// ReturnToToday sends the selected in_hall patients back to today's list.
// Ids in any other status are ignored.
func (s *HallService) ReturnToToday(ctx context.Context, actor entities.Identity, ids []string) (int, error) {
	return s.applySelected(ctx, actor, ids, entities.HallEventReturned, visit.ReturnToToday)
}

// FinishSelected completes the visits of the selected in_hall patients
func (s *HallService) FinishSelected(ctx context.Context, actor entities.Identity, ids []string) (int, error) {
	return s.applySelected(ctx, actor, ids, entities.HallEventFinished, visit.Finish)
}

func (s *HallService) applySelected(
	ctx context.Context,
	actor entities.Identity,
	ids []string,
	eventType entities.HallEventType,
	apply func(p *entities.Patient, now time.Time) bool,
) (int, error) {
	if err := requireStaff(actor); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("No patient IDs provided")
	}

	now := s.clock.Now()
	var moved []string

	err := s.batch(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
		patients, err := tx.List(ctx, repositories.PatientFilter{
			IDs:       ids,
			Statuses:  []entities.VisitStatus{entities.VisitStatusInHall},
			ForUpdate: true,
		})
		if err != nil {
			return err
		}
		moved = moved[:0]
		for _, p := range patients {
			if !apply(p, now) {
				continue
			}
			if err := tx.Update(ctx, p); err != nil {
				return err
			}
			moved = append(moved, p.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.afterCommit(ctx, eventType, moved, actor, now)
	return len(moved), nil
}

// DailyReset clears the visit of every patient who reached the hall, putting
// them back to registered and Out
func (s *HallService) DailyReset(ctx context.Context, actor entities.Identity) (DailyResetResult, error) {
	if err := requireStaff(actor); err != nil {
		return DailyResetResult{}, err
	}

	now := s.clock.Now()
	var result DailyResetResult
	var cleared []string

	err := s.batch(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
		patients, err := tx.List(ctx, repositories.PatientFilter{ForUpdate: true})
		if err != nil {
			return err
		}
		cleared = cleared[:0]
		for _, p := range patients {
			if !visit.Reset(p, now) {
				continue
			}
			if err := tx.Update(ctx, p); err != nil {
				return err
			}
			cleared = append(cleared, p.ID)
		}
		result = DailyResetResult{ResetCount: len(patients), ClearedCount: len(cleared)}
		return nil
	})
	if err != nil {
		return DailyResetResult{}, err
	}

	s.afterCommit(ctx, entities.HallEventDailyReset, cleared, actor, now)
	return result, nil
}

// CreateReservation books a visit for the patient
func (s *HallService) CreateReservation(ctx context.Context, actor entities.Identity, id string, req ReservationRequest) (*entities.Patient, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	reservation, err := s.parseReservation(req, now.Location())
	if err != nil {
		return nil, err
	}

	var updated *entities.Patient
	err = s.batch(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
		p, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		visit.Reserve(p, reservation, now)
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, entities.HallEventReservation, []string{id}, actor, now)
	return updated, nil
}

// UpdateHallStatus overwrites the hall and visit status of the patient
func (s *HallService) UpdateHallStatus(ctx context.Context, actor entities.Identity, id string, req HallStatusUpdate) (*entities.Patient, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	hall, status, err := parseHallAndStatus(req.HallStatus, req.Status)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var updated *entities.Patient
	err = s.batch(ctx, func(ctx context.Context, tx repositories.PatientRepository) error {
		p, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		visit.SetHallStatus(p, hall, status, now)
		if err := tx.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, entities.HallEventHallStatus, []string{id}, actor, now)
	return updated, nil
}

// TodayPatients lists patients with a visit on the clock's current day,
// earliest first
func (s *HallService) TodayPatients(ctx context.Context) ([]*entities.Patient, error) {
	start, end := visit.DayBounds(s.clock.Now())
	return s.repo.List(ctx, repositories.PatientFilter{OrderBy: repositories.OrderVisitAsc}.OnDay(start, end))
}

// AwaitingPatients lists patients currently in the hall, earliest first
func (s *HallService) AwaitingPatients(ctx context.Context) ([]*entities.Patient, error) {
	return s.repo.List(ctx, repositories.PatientFilter{
		Statuses: []entities.VisitStatus{entities.VisitStatusInHall},
		OrderBy:  repositories.OrderVisitAsc,
	})
}

// FinishedPatients lists patients whose visit is complete, latest first
func (s *HallService) FinishedPatients(ctx context.Context) ([]*entities.Patient, error) {
	return s.repo.List(ctx, repositories.PatientFilter{
		Statuses: []entities.VisitStatus{entities.VisitStatusFinished},
		OrderBy:  repositories.OrderVisitDesc,
	})
}

func (s *HallService) batch(ctx context.Context, fn func(ctx context.Context, tx repositories.PatientRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.WithinTx(ctx, fn)
}

// afterCommit records the transition and notifies hall screens. Publishing is
// best-effort: the batch is already committed.
func (s *HallService) afterCommit(ctx context.Context, eventType entities.HallEventType, ids []string, actor entities.Identity, at time.Time) {
	observability.RecordWorkflowTransition(ctx, s.metrics, string(eventType), len(ids))

	logger := observability.LoggerFromContext(ctx)
	logger.Info().
		Str("event", string(eventType)).
		Int("count", len(ids)).
		Str("actor", actor.Username).
		Msg("hall workflow batch committed")

	publishHallEvent(ctx, s.events, entities.NewHallEvent(eventType, append([]string(nil), ids...), actor.Username, at))
}

func publishHallEvent(ctx context.Context, bus providers.EventBus, event *entities.HallEvent) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, providers.EventChannelHall, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("event", string(event.EventType)).
			Msg("failed to publish hall event")
	}
}

func (s *HallService) parseReservation(req ReservationRequest, loc *time.Location) (visit.Reservation, error) {
	var r visit.Reservation

	if raw := visit.CleanPtr(req.VisitType); raw != nil {
		vt, err := entities.ParseVisitType(*raw)
		if err != nil {
			return r, apperrors.NewValidationError(err.Error())
		}
		r.VisitType = &vt
	}

	if raw := visit.CleanPtr(req.VisitDateTime); raw != nil {
		at, err := visit.ParseVisitDateTime(*raw, loc)
		if err != nil {
			return r, apperrors.NewValidationError(err.Error())
		}
		r.VisitDateTime = &at
	}

	hall, status, err := parseHallAndStatus(req.HallStatus, req.Status)
	if err != nil {
		return r, err
	}
	r.HallStatus = hall
	r.Status = status
	return r, nil
}

// parseHallAndStatus applies the Out / scheduled defaults
func parseHallAndStatus(rawHall, rawStatus *string) (entities.HallStatus, entities.VisitStatus, error) {
	hall := entities.HallStatusOut
	if raw := visit.CleanPtr(rawHall); raw != nil {
		h, err := entities.ParseHallStatus(*raw)
		if err != nil {
			return "", "", apperrors.NewValidationError(err.Error())
		}
		hall = h
	}

	status := entities.VisitStatusScheduled
	if raw := visit.CleanPtr(rawStatus); raw != nil {
		st, err := entities.ParseVisitStatus(*raw)
		if err != nil {
			return "", "", apperrors.NewValidationError(err.Error())
		}
		status = st
	}
	return hall, status, nil
}
