package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/repository"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

const sectionCachePrefix = "catalog:sections:"

type courseStore interface {
	Create(ctx context.Context, course *models.Course) error
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
}

type sectionStore interface {
	Create(ctx context.Context, section *models.Section) error
	FindByID(ctx context.Context, id string) (*models.Section, error)
	AssignInstructor(ctx context.Context, id, instructorID string) error
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
}

type instructorProfileReader interface {
	FindInstructorByUserID(ctx context.Context, userID string) (*models.InstructorProfile, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// CreateCourseRequest describes a course creation payload.
type CreateCourseRequest struct {
	Code    string `json:"code" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Credits int    `json:"credits" validate:"required,min=1"`
}

// CreateSectionRequest describes a section creation payload. The drop
// deadline is a calendar date.
type CreateSectionRequest struct {
	CourseCode   string `json:"course_code" validate:"required"`
	DayTime      string `json:"day_time" validate:"required"`
	Room         string `json:"room" validate:"required"`
	Capacity     int    `json:"capacity" validate:"required,min=1"`
	Semester     string `json:"semester" validate:"required"`
	Year         int    `json:"year" validate:"required"`
	DropDeadline string `json:"drop_deadline" validate:"required"`
}

// AssignInstructorRequest binds an instructor to a section.
type AssignInstructorRequest struct {
	InstructorID string `json:"instructor_id" validate:"required"`
}

type cachedSectionList struct {
	Sections []models.SectionDetail `json:"sections"`
	Total    int                    `json:"total"`
}

// CatalogService manages courses and sections. Section listings go
// through the Redis read cache; every catalog write invalidates it.
type CatalogService struct {
	courses     courseStore
	sections    sectionStore
	instructors instructorProfileReader
	cache       catalogCache
	cacheTTL    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCatalogService constructs CatalogService. cache may be nil.
func NewCatalogService(courses courseStore, sections sectionStore, instructors instructorProfileReader, cache catalogCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CatalogService{courses: courses, sections: sections, instructors: instructors, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// CreateCourse adds a new catalog course.
func (s *CatalogService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Code: req.Code, Title: req.Title, Credits: req.Credits}
	if err := s.courses.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicateCourse) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidate(ctx)
	return course, nil
}

// ListCourses returns the full course catalog.
func (s *CatalogService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// CreateSection schedules a new offering of a course.
func (s *CatalogService) CreateSection(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	deadline, err := time.Parse("2006-01-02", req.DropDeadline)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "drop_deadline must be a YYYY-MM-DD date")
	}
	if _, err := s.courses.FindByCode(ctx, req.CourseCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	section := &models.Section{
		CourseCode:   req.CourseCode,
		DayTime:      req.DayTime,
		Room:         req.Room,
		Capacity:     req.Capacity,
		Semester:     req.Semester,
		Year:         req.Year,
		DropDeadline: deadline,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	s.invalidate(ctx)
	return section, nil
}

// AssignInstructor binds an instructor profile to a section.
func (s *CatalogService) AssignInstructor(ctx context.Context, sectionID string, req AssignInstructorRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if _, err := s.instructors.FindInstructorByUserID(ctx, req.InstructorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if err := s.sections.AssignInstructor(ctx, sectionID, req.InstructorID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign instructor")
	}
	s.invalidate(ctx)
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// ListSections returns sections with live seat counts, served from the
// read cache when warm.
func (s *CatalogService) ListSections(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	key := fmt.Sprintf("%s%s:%s:%d:%d:%d", sectionCachePrefix, filter.CourseCode, filter.Semester, filter.Year, page, size)
	if s.cache != nil {
		var cached cachedSectionList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Sections, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("section cache read failed", zap.Error(err))
		}
	}

	sections, total, err := s.sections.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedSectionList{Sections: sections, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("section cache write failed", zap.Error(err))
		}
	}

	return sections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(ctx, sectionCachePrefix); err != nil {
		s.logger.Warn("section cache invalidation failed", zap.Error(err))
	}
}
