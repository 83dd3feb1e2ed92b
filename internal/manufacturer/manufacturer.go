// Package manufacturer tracks production partners, the projects they run
// for each formula and their smoothed ratings.
package manufacturer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	applog "almmr/internal/log"
	"almmr/internal/store"
	"almmr/models"
)

type Service struct {
	store *store.Store
	repo  *store.Repository[models.Manufacturer, *models.Manufacturer]
}

func NewService(s *store.Store) *Service {
	return &Service{store: s, repo: store.Manufacturers(s)}
}

// Create inserts a new, active manufacturer.
func (s *Service) Create(ctx context.Context, m *models.Manufacturer) (uint, error) {
	if m == nil {
		return 0, &store.ValidationError{Field: "manufacturer", Reason: "must not be nil"}
	}
	m.IsActive = true
	return s.repo.Insert(ctx, m)
}

func (s *Service) Update(ctx context.Context, m *models.Manufacturer) error {
	return s.repo.Update(ctx, m)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Manufacturer, error) {
	return s.repo.Get(ctx, id)
}

// Deactivate soft-deletes the manufacturer. It fails while a live perfume
// is made by it.
func (s *Service) Deactivate(ctx context.Context, id uint) error {
	return s.repo.Archive(ctx, id)
}

// AssignProject starts tracking formulaID at the manufacturer in the
// FORMULA_SENT stage. A missing manufacturer is a *store.NotFoundError and
// nothing is written.
func (s *Service) AssignProject(ctx context.Context, manufacturerID, formulaID uint, expected *time.Time) error {
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		m, err := s.repo.Get(ctx, manufacturerID)
		if err != nil {
			return err
		}

		m.ActiveProjects = append(m.ActiveProjects, models.ProjectStatus{
			FormulaID:              formulaID,
			Status:                 models.StageFormulaSent,
			StartDate:              s.store.Now(),
			ExpectedCompletionDate: expected,
		})
		return s.repo.Update(ctx, m)
	})
	if err != nil {
		return err
	}

	applog.Debug(ctx, "project assigned", "manufacturer", manufacturerID, "formula", formulaID)
	return nil
}

// UpdateProjectStatus moves the first project tracking formulaID to status.
// Closing a project stamps its actual completion date. A nil notes keeps the
// existing notes. A missing manufacturer or project is a
// *store.NotFoundError and nothing is written.
func (s *Service) UpdateProjectStatus(ctx context.Context, manufacturerID, formulaID uint, status models.ProductionStage, notes *string) error {
	if !status.Valid() {
		return &store.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown production stage %q", status)}
	}

	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		m, err := s.repo.Get(ctx, manufacturerID)
		if err != nil {
			return err
		}

		idx := m.Project(formulaID)
		if idx < 0 {
			return fmt.Errorf("manufacturer %d has no project for formula %d: %w", manufacturerID, formulaID, &store.NotFoundError{Kind: models.KindFormula, ID: formulaID})
		}

		project := m.ActiveProjects[idx]
		project.Status = status
		if status == models.StageProjectClosed {
			now := s.store.Now()
			project.ActualCompletionDate = &now
		}
		if notes != nil {
			project.Notes = notes
		}
		m.ActiveProjects[idx] = project
		return s.repo.Update(ctx, m)
	})
	if err != nil {
		return err
	}

	applog.Debug(ctx, "project status updated", "manufacturer", manufacturerID, "formula", formulaID, "status", status)
	return nil
}

// Ratings is one set of scores, conventionally in [0,5].
type Ratings struct {
	Quality           float64 `json:"quality"`
	Communication     float64 `json:"communication"`
	Reliability       float64 `json:"reliability"`
	CostEffectiveness float64 `json:"cost_effectiveness"`
}

// UpdateRatings moves each score halfway towards the supplied value.
func (s *Service) UpdateRatings(ctx context.Context, id uint, r Ratings) error {
	return s.store.Atomic(ctx, func(ctx context.Context) error {
		m, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		m.QualityScore = smooth(m.QualityScore, r.Quality)
		m.CommunicationScore = smooth(m.CommunicationScore, r.Communication)
		m.ReliabilityScore = smooth(m.ReliabilityScore, r.Reliability)
		m.CostEffectivenessScore = smooth(m.CostEffectivenessScore, r.CostEffectiveness)
		return s.repo.Update(ctx, m)
	})
}

func smooth(previous, next float64) float64 {
	return (previous + next) / 2
}

type Metrics struct {
	CompletedProjects      int     `json:"completed_projects"`
	AverageResponseTime    int     `json:"average_response_time"`
	QualityScore           float64 `json:"quality_score"`
	ReliabilityScore       float64 `json:"reliability_score"`
	CommunicationScore     float64 `json:"communication_score"`
	CostEffectivenessScore float64 `json:"cost_effectiveness_score"`
	OverallScore           float64 `json:"overall_score"`
}

// PerformanceMetrics summarises a manufacturer. An unknown manufacturer
// yields zero metrics and no error.
func (s *Service) PerformanceMetrics(ctx context.Context, id uint) (Metrics, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Metrics{}, nil
		}
		return Metrics{}, err
	}
	return metricsFor(m), nil
}

func metricsFor(m *models.Manufacturer) Metrics {
	return Metrics{
		CompletedProjects:      m.CompletedProjects,
		AverageResponseTime:    m.AverageResponseTime,
		QualityScore:           m.QualityScore,
		ReliabilityScore:       m.ReliabilityScore,
		CommunicationScore:     m.CommunicationScore,
		CostEffectivenessScore: m.CostEffectivenessScore,
		OverallScore:           overall(m),
	}
}

func overall(m *models.Manufacturer) float64 {
	return (m.QualityScore + m.ReliabilityScore + m.CommunicationScore + m.CostEffectivenessScore) / 4
}

func normalise(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
