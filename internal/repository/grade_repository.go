package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-records-api/internal/models"
)

// GradeRepository handles persistence of grade components.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// UpsertComponent records a score, replacing any prior score for the
// same component type. Last write wins; no history is kept.
func (r *GradeRepository) UpsertComponent(ctx context.Context, component *models.GradeComponent) error {
	component.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO grade_components (enrollment_id, component_type, score, updated_at)
        VALUES (:enrollment_id, :component_type, :score, :updated_at)
        ON CONFLICT (enrollment_id, component_type)
        DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, component); err != nil {
		return fmt.Errorf("upsert grade component: %w", err)
	}
	return nil
}

// ListComponents returns the recorded components for an enrollment.
func (r *GradeRepository) ListComponents(ctx context.Context, enrollmentID string) ([]models.GradeComponent, error) {
	const query = `SELECT enrollment_id, component_type, score, updated_at FROM grade_components WHERE enrollment_id = $1 ORDER BY component_type`
	var components []models.GradeComponent
	if err := r.db.SelectContext(ctx, &components, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list grade components: %w", err)
	}
	return components, nil
}
