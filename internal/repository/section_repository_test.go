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

func TestSectionCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec("INSERT INTO sections").WillReturnResult(sqlmock.NewResult(0, 1))

	section := &models.Section{CourseCode: "CS101", DayTime: "MWF 10:00", Room: "A1", Capacity: 30, Semester: "FALL", Year: 2026, DropDeadline: time.Now()}
	err := repo.Create(context.Background(), section)
	require.NoError(t, err)
	assert.NotEmpty(t, section.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "course_code", "instructor_id", "day_time", "room", "capacity", "semester", "year", "drop_deadline", "created_at", "course_title", "enrolled_count"}).
		AddRow("sec1", "CS101", nil, "MWF 10:00", "A1", 30, "FALL", 2026, now, now, "Intro to CS", 12)
	mock.ExpectQuery(`SELECT s\.id, s\.course_code`).
		WithArgs("CS101").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sections s`).
		WithArgs("CS101").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sections, total, err := repo.List(context.Background(), models.SectionFilter{CourseCode: "CS101"})
	require.NoError(t, err)
	assert.Len(t, sections, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, 12, sections[0].EnrolledCount)
	assert.Equal(t, "Intro to CS", sections[0].CourseTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionAssignInstructor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET instructor_id = $2 WHERE id = $1")).
		WithArgs("sec1", "prof1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AssignInstructor(context.Background(), "sec1", "prof1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
