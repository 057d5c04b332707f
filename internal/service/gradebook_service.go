package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type gradeStore interface {
	UpsertComponent(ctx context.Context, component *models.GradeComponent) error
	ListComponents(ctx context.Context, enrollmentID string) ([]models.GradeComponent, error)
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// GradebookConfig carries the process-wide weights, score bounds and
// rounding precision. Weights are configuration, not per-call input.
type GradebookConfig struct {
	Weights   map[models.ComponentType]float64
	MinScore  float64
	MaxScore  float64
	Precision int
}

// RecordComponentRequest describes a grade entry payload.
type RecordComponentRequest struct {
	EnrollmentID  string               `json:"enrollment_id" validate:"required"`
	ComponentType models.ComponentType `json:"component_type" validate:"required"`
	Score         float64              `json:"score"`
}

// GradebookService records component scores and aggregates them into a
// final score.
type GradebookService struct {
	grades      gradeStore
	enrollments enrollmentReader
	validator   *validator.Validate
	logger      *zap.Logger
	config      GradebookConfig
}

// NewGradebookService constructs GradebookService.
func NewGradebookService(grades gradeStore, enrollments enrollmentReader, validate *validator.Validate, logger *zap.Logger, config GradebookConfig) *GradebookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Weights == nil {
		config.Weights = map[models.ComponentType]float64{
			models.ComponentMidterm:   0.3,
			models.ComponentFinalExam: 0.4,
			models.ComponentProject:   0.3,
		}
	}
	if config.MaxScore <= config.MinScore {
		config.MinScore, config.MaxScore = 0, 100
	}
	if config.Precision <= 0 {
		config.Precision = 2
	}
	return &GradebookService{grades: grades, enrollments: enrollments, validator: validate, logger: logger, config: config}
}

// RecordComponent upserts a score for one component of an enrollment.
// A new score replaces the prior one; no history is kept.
func (s *GradebookService) RecordComponent(ctx context.Context, req RecordComponentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if !req.ComponentType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown component type")
	}
	if req.Score < s.config.MinScore || req.Score > s.config.MaxScore {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score outside valid range [%g, %g]", s.config.MinScore, s.config.MaxScore))
	}
	if _, err := s.enrollments.FindByID(ctx, req.EnrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	component := &models.GradeComponent{
		EnrollmentID:  req.EnrollmentID,
		ComponentType: req.ComponentType,
		Score:         req.Score,
	}
	if err := s.grades.UpsertComponent(ctx, component); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade component")
	}
	return nil
}

// Components lists the recorded components for an enrollment.
func (s *GradebookService) Components(ctx context.Context, enrollmentID string) ([]models.GradeComponent, error) {
	if _, err := s.enrollments.FindByID(ctx, enrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	components, err := s.grades.ListComponents(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade components")
	}
	return components, nil
}

// ComputeFinalScore returns the weighted aggregate for an enrollment,
// or an INCOMPLETE error until every required component is present.
func (s *GradebookService) ComputeFinalScore(ctx context.Context, enrollmentID string) (*models.FinalScore, error) {
	if _, err := s.enrollments.FindByID(ctx, enrollmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	components, err := s.grades.ListComponents(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade components")
	}

	scores := make(map[models.ComponentType]float64, len(components))
	for _, component := range components {
		scores[component.ComponentType] = component.Score
	}
	sum := 0.0
	for _, required := range models.RequiredComponents {
		score, ok := scores[required]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrIncomplete, fmt.Sprintf("component %s not recorded", required))
		}
		sum += score * s.config.Weights[required]
	}

	return &models.FinalScore{
		EnrollmentID: enrollmentID,
		Score:        roundTo(sum, s.config.Precision),
		ComputedAt:   time.Now().UTC(),
	}, nil
}

func roundTo(v float64, precision int) float64 {
	factor := math.Pow(10, float64(precision))
	return math.Round(v*factor) / factor
}
