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

func TestCourseCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &models.Course{Code: "CS101", Title: "Intro to CS", Credits: 3})
	assert.ErrorIs(t, err, ErrDuplicateCourse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseFindByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{"code", "title", "credits", "created_at"}).
		AddRow("CS101", "Intro to CS", 3, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT code, title, credits, created_at FROM courses WHERE code = $1 LIMIT 1")).
		WithArgs("CS101").
		WillReturnRows(rows)

	course, err := repo.FindByCode(context.Background(), "CS101")
	require.NoError(t, err)
	assert.Equal(t, "Intro to CS", course.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
