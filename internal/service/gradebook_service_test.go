package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type mockGradeStore struct {
	components map[string]map[models.ComponentType]float64
}

func (m *mockGradeStore) UpsertComponent(ctx context.Context, component *models.GradeComponent) error {
	if m.components == nil {
		m.components = make(map[string]map[models.ComponentType]float64)
	}
	if m.components[component.EnrollmentID] == nil {
		m.components[component.EnrollmentID] = make(map[models.ComponentType]float64)
	}
	m.components[component.EnrollmentID][component.ComponentType] = component.Score
	return nil
}

func (m *mockGradeStore) ListComponents(ctx context.Context, enrollmentID string) ([]models.GradeComponent, error) {
	var list []models.GradeComponent
	for componentType, score := range m.components[enrollmentID] {
		list = append(list, models.GradeComponent{EnrollmentID: enrollmentID, ComponentType: componentType, Score: score})
	}
	return list, nil
}

type mockEnrollmentReader struct {
	enrollments map[string]models.EnrollmentStatus
}

func (m *mockEnrollmentReader) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if status, ok := m.enrollments[id]; ok {
		return &models.Enrollment{ID: id, Status: status}, nil
	}
	return nil, sql.ErrNoRows
}

func newGradebookFixture() (*GradebookService, *mockGradeStore) {
	store := &mockGradeStore{}
	enrollments := &mockEnrollmentReader{enrollments: map[string]models.EnrollmentStatus{"e1": models.EnrollmentStatusEnrolled}}
	svc := NewGradebookService(store, enrollments, validator.New(), zap.NewNop(), GradebookConfig{})
	return svc, store
}

func record(t *testing.T, svc *GradebookService, componentType models.ComponentType, score float64) {
	t.Helper()
	err := svc.RecordComponent(context.Background(), RecordComponentRequest{EnrollmentID: "e1", ComponentType: componentType, Score: score})
	require.NoError(t, err)
}

func TestRecordComponent(t *testing.T) {
	svc, store := newGradebookFixture()

	record(t, svc, models.ComponentMidterm, 85)
	assert.Equal(t, 85.0, store.components["e1"][models.ComponentMidterm])
}

func TestRecordComponentLastWriteWins(t *testing.T) {
	svc, store := newGradebookFixture()

	record(t, svc, models.ComponentMidterm, 60)
	record(t, svc, models.ComponentMidterm, 75)
	assert.Equal(t, 75.0, store.components["e1"][models.ComponentMidterm])
	assert.Len(t, store.components["e1"], 1)
}

func TestRecordComponentInvalidScore(t *testing.T) {
	svc, _ := newGradebookFixture()

	err := svc.RecordComponent(context.Background(), RecordComponentRequest{EnrollmentID: "e1", ComponentType: models.ComponentMidterm, Score: 101})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	err = svc.RecordComponent(context.Background(), RecordComponentRequest{EnrollmentID: "e1", ComponentType: models.ComponentMidterm, Score: -1})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRecordComponentUnknownType(t *testing.T) {
	svc, _ := newGradebookFixture()

	err := svc.RecordComponent(context.Background(), RecordComponentRequest{EnrollmentID: "e1", ComponentType: "QUIZ", Score: 50})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRecordComponentEnrollmentNotFound(t *testing.T) {
	svc, _ := newGradebookFixture()

	err := svc.RecordComponent(context.Background(), RecordComponentRequest{EnrollmentID: "missing", ComponentType: models.ComponentMidterm, Score: 50})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestComputeFinalScoreIncomplete(t *testing.T) {
	svc, _ := newGradebookFixture()

	record(t, svc, models.ComponentMidterm, 90)
	record(t, svc, models.ComponentFinalExam, 80)

	_, err := svc.ComputeFinalScore(context.Background(), "e1")
	assert.True(t, appErrors.Is(err, appErrors.ErrIncomplete))
}

func TestComputeFinalScore(t *testing.T) {
	svc, _ := newGradebookFixture()

	// 90*0.3 + 80*0.4 + 70*0.3 = 80.0
	record(t, svc, models.ComponentMidterm, 90)
	record(t, svc, models.ComponentFinalExam, 80)
	record(t, svc, models.ComponentProject, 70)

	final, err := svc.ComputeFinalScore(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, final.Score)
	assert.Equal(t, "e1", final.EnrollmentID)
}

func TestComputeFinalScoreRounding(t *testing.T) {
	svc, _ := newGradebookFixture()

	record(t, svc, models.ComponentMidterm, 81.11)
	record(t, svc, models.ComponentFinalExam, 84.2)
	record(t, svc, models.ComponentProject, 91)

	final, err := svc.ComputeFinalScore(context.Background(), "e1")
	require.NoError(t, err)
	// 81.11*0.3 + 84.2*0.4 + 91*0.3 = 24.333 + 33.68 + 27.3 = 85.313 -> 85.31
	assert.InDelta(t, 85.31, final.Score, 1e-9)
}

func TestComputeFinalScoreEnrollmentNotFound(t *testing.T) {
	svc, _ := newGradebookFixture()

	_, err := svc.ComputeFinalScore(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
