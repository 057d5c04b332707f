package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-records-api/internal/models"
)

// ProfileRepository handles persistence of role-specific profiles in
// the domain database.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// CreateStudent inserts a student profile. A unique violation on the
// roll number surfaces as a plain error; the caller treats any failure
// here as a reason to compensate.
func (r *ProfileRepository) CreateStudent(ctx context.Context, profile *models.StudentProfile) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_profiles (user_id, roll_number, program, year, created_at)
        VALUES (:user_id, :roll_number, :program, :year, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

// CreateInstructor inserts an instructor profile.
func (r *ProfileRepository) CreateInstructor(ctx context.Context, profile *models.InstructorProfile) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO instructor_profiles (user_id, department, created_at)
        VALUES (:user_id, :department, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create instructor profile: %w", err)
	}
	return nil
}

// FindStudentByUserID returns the student profile for an identity.
func (r *ProfileRepository) FindStudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	const query = `SELECT user_id, roll_number, program, year, created_at FROM student_profiles WHERE user_id = $1 LIMIT 1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindInstructorByUserID returns the instructor profile for an identity.
func (r *ProfileRepository) FindInstructorByUserID(ctx context.Context, userID string) (*models.InstructorProfile, error) {
	const query = `SELECT user_id, department, created_at FROM instructor_profiles WHERE user_id = $1 LIMIT 1`
	var profile models.InstructorProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}
