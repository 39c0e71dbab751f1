package services

import (
	"context"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/domain/repositories"
	"github.com/zatekoja/pediatric-clinic/internal/domain/visit"
)

// StatisticsService computes dashboard figures from a full patient scan
type StatisticsService struct {
	repo  repositories.PatientRepository
	clock providers.Clock
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(repo repositories.PatientRepository, clock providers.Clock) *StatisticsService {
	return &StatisticsService{repo: repo, clock: clock}
}

// Compute aggregates the current patient population
func (s *StatisticsService) Compute(ctx context.Context) (*entities.Statistics, error) {
	patients, err := s.repo.List(ctx, repositories.PatientFilter{})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	monthStart := visit.MonthStart(now)
	stats := &entities.Statistics{TotalPatients: len(patients)}
	totalAge := 0

	for _, p := range patients {
		if !p.CreatedAt.Before(monthStart) {
			stats.NewThisMonth++
		}
		if visit.IsToday(p, now) {
			stats.TodayPatients++
		}
		totalAge += visit.AgeInYears(p.DateOfBirth, now)

		if p.VisitType != nil {
			switch *p.VisitType {
			case entities.VisitTypeExamination:
				stats.VisitTypes.Examination++
			case entities.VisitTypeFastExamination:
				stats.VisitTypes.FastExamination++
			case entities.VisitTypeConsultation:
				stats.VisitTypes.Consultation++
			}
		}

		if p.HallStatus == entities.HallStatusIn {
			stats.HallStatus.InHall++
		}
		if visit.IsFinished(p) {
			stats.HallStatus.Finished++
		}
	}

	if len(patients) > 0 {
		stats.AverageAge = totalAge / len(patients)
	}
	return stats, nil
}
