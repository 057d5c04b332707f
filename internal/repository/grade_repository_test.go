package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
)

func TestUpsertComponent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grade_components").WillReturnResult(sqlmock.NewResult(0, 1))

	component := &models.GradeComponent{EnrollmentID: "e1", ComponentType: models.ComponentMidterm, Score: 85}
	err := repo.UpsertComponent(context.Background(), component)
	require.NoError(t, err)
	assert.False(t, component.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListComponents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"enrollment_id", "component_type", "score", "updated_at"}).
		AddRow("e1", string(models.ComponentFinalExam), 80.0, now).
		AddRow("e1", string(models.ComponentMidterm), 90.0, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT enrollment_id, component_type, score, updated_at FROM grade_components WHERE enrollment_id = $1 ORDER BY component_type")).
		WithArgs("e1").
		WillReturnRows(rows)

	components, err := repo.ListComponents(context.Background(), "e1")
	require.NoError(t, err)
	assert.Len(t, components, 2)
	assert.Equal(t, models.ComponentFinalExam, components[0].ComponentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
