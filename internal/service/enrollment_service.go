package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/repository"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsEnrolled(ctx context.Context, studentID, sectionID string) (bool, error)
	CountEnrolled(ctx context.Context, sectionID string) (int, error)
	CreateEnrolled(ctx context.Context, enrollment *models.Enrollment) error
	TransitionStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type studentProfileReader interface {
	FindStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

type enrollmentMetrics interface {
	ObserveEnrollment(outcome string)
}

// EnrollRequest describes an enrollment creation payload.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// EnrollmentService enforces the enrollment state machine: seats are
// never oversold, drops respect the section deadline, and DROPPED and
// COMPLETED are terminal.
type EnrollmentService struct {
	repo      enrollmentStore
	sections  sectionReader
	students  studentProfileReader
	metrics   enrollmentMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService. metrics may be nil.
func NewEnrollmentService(repo enrollmentStore, sections sectionReader, students studentProfileReader, metrics enrollmentMetrics, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, sections: sections, students: students, metrics: metrics, validator: validate, logger: logger}
}

// Enroll registers a student into a section. The capacity seen here is
// only advisory; the store re-checks it under a section row lock, so
// two racing calls for the last seat produce exactly one success.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.students.FindStudentByUserID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	exists, err := s.repo.ExistsEnrolled(ctx, req.StudentID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in section")
	}
	enrolled, err := s.repo.CountEnrolled(ctx, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if enrolled >= section.Capacity {
		s.observe("section_full")
		return nil, appErrors.Clone(appErrors.ErrConflict, "section is full")
	}

	enrollment := &models.Enrollment{StudentID: req.StudentID, SectionID: req.SectionID}
	if err := s.repo.CreateEnrolled(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrSectionCapacity) {
			s.observe("section_full")
			return nil, appErrors.Clone(appErrors.ErrConflict, "section is full")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.observe("enrolled")
	return enrollment, nil
}

// Drop transitions ENROLLED to DROPPED before the section's deadline.
func (s *EnrollmentService) Drop(ctx context.Context, enrollmentID string) error {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment not active")
	}
	section, err := s.sections.FindByID(ctx, enrollment.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if pastDropDeadline(time.Now().UTC(), section.DropDeadline) {
		s.observe("deadline_passed")
		return appErrors.Clone(appErrors.ErrDeadlinePassed, "")
	}
	ok, err := s.repo.TransitionStatus(ctx, enrollmentID, models.EnrollmentStatusEnrolled, models.EnrollmentStatusDropped)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment not active")
	}
	s.observe("dropped")
	return nil
}

// Complete is the administrative end-of-term transition to COMPLETED.
// It is deadline-exempt.
func (s *EnrollmentService) Complete(ctx context.Context, enrollmentID string) error {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment not active")
	}
	ok, err := s.repo.TransitionStatus(ctx, enrollmentID, models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment not active")
	}
	return nil
}

// ListByStudent returns a student's enrollments.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

func (s *EnrollmentService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveEnrollment(outcome)
	}
}

// pastDropDeadline compares calendar dates: drops on the deadline day
// itself are still allowed.
func pastDropDeadline(now, deadline time.Time) bool {
	ny, nm, nd := now.Date()
	dy, dm, dd := deadline.Date()
	nowDate := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	deadlineDate := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return nowDate.After(deadlineDate)
}
