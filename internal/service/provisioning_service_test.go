package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/repository"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type mockCredentialStore struct {
	identities map[string]*models.Identity
	deleted    []string
	createErr  error
	deleteErr  error
}

func (m *mockCredentialStore) Create(ctx context.Context, identity *models.Identity) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.identities == nil {
		m.identities = make(map[string]*models.Identity)
	}
	if _, ok := m.identities[identity.Username]; ok {
		return repository.ErrDuplicateIdentity
	}
	m.identities[identity.Username] = identity
	return nil
}

func (m *mockCredentialStore) Delete(ctx context.Context, username string) error {
	m.deleted = append(m.deleted, username)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.identities, username)
	return nil
}

type mockProfileStore struct {
	students      []*models.StudentProfile
	instructors   []*models.InstructorProfile
	studentErr    error
	instructorErr error
}

func (m *mockProfileStore) CreateStudent(ctx context.Context, profile *models.StudentProfile) error {
	if m.studentErr != nil {
		return m.studentErr
	}
	m.students = append(m.students, profile)
	return nil
}

func (m *mockProfileStore) CreateInstructor(ctx context.Context, profile *models.InstructorProfile) error {
	if m.instructorErr != nil {
		return m.instructorErr
	}
	m.instructors = append(m.instructors, profile)
	return nil
}

func newProvisioningService(credentials *mockCredentialStore, profiles *mockProfileStore) *ProvisioningService {
	return NewProvisioningService(credentials, profiles, validator.New(), zap.NewNop(), ProvisioningConfig{PasswordMinLength: 8, BcryptCost: bcrypt.MinCost})
}

func studentRequest() CreateAccountRequest {
	return CreateAccountRequest{
		Username:   "jdoe",
		Password:   "correct horse",
		Role:       models.RoleStudent,
		RollNumber: "R-100",
		Program:    "CS",
		Year:       2,
	}
}

func TestCreateAccountStudent(t *testing.T) {
	credentials := &mockCredentialStore{}
	profiles := &mockProfileStore{}
	svc := newProvisioningService(credentials, profiles)

	account, err := svc.CreateAccount(context.Background(), studentRequest())
	require.NoError(t, err)
	assert.Equal(t, "jdoe", account.Identity.Username)
	require.NotNil(t, account.Student)
	assert.Equal(t, "R-100", account.Student.RollNumber)
	require.Len(t, profiles.students, 1)

	// stored hash must not be the plaintext
	stored := credentials.identities["jdoe"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct horse")))
}

func TestCreateAccountDuplicateUsername(t *testing.T) {
	credentials := &mockCredentialStore{identities: map[string]*models.Identity{"jdoe": {Username: "jdoe"}}}
	profiles := &mockProfileStore{}
	svc := newProvisioningService(credentials, profiles)

	_, err := svc.CreateAccount(context.Background(), studentRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	// no domain write happened
	assert.Empty(t, profiles.students)
}

func TestCreateAccountProfileFailureCompensates(t *testing.T) {
	credentials := &mockCredentialStore{}
	profiles := &mockProfileStore{studentErr: errors.New("domain store down")}
	svc := newProvisioningService(credentials, profiles)

	_, err := svc.CreateAccount(context.Background(), studentRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	// the identity from step one was deleted again
	assert.Contains(t, credentials.deleted, "jdoe")
	assert.NotContains(t, credentials.identities, "jdoe")
}

func TestCreateAccountCompensationFailure(t *testing.T) {
	credentials := &mockCredentialStore{deleteErr: errors.New("credential store down")}
	profiles := &mockProfileStore{studentErr: errors.New("domain store down")}
	svc := newProvisioningService(credentials, profiles)

	_, err := svc.CreateAccount(context.Background(), studentRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrPartialProvisioning))
}

func TestCreateAccountWeakPassword(t *testing.T) {
	svc := newProvisioningService(&mockCredentialStore{}, &mockProfileStore{})

	req := studentRequest()
	req.Password = "short"
	_, err := svc.CreateAccount(context.Background(), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrWeakPassword))
}

func TestCreateAccountMissingRoleAttributes(t *testing.T) {
	svc := newProvisioningService(&mockCredentialStore{}, &mockProfileStore{})

	req := studentRequest()
	req.RollNumber = ""
	_, err := svc.CreateAccount(context.Background(), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateAccount(context.Background(), CreateAccountRequest{Username: "prof", Password: "correct horse", Role: models.RoleInstructor})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCreateAccountAdminHasNoProfile(t *testing.T) {
	credentials := &mockCredentialStore{}
	profiles := &mockProfileStore{}
	svc := newProvisioningService(credentials, profiles)

	account, err := svc.CreateAccount(context.Background(), CreateAccountRequest{Username: "root", Password: "correct horse", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Nil(t, account.Student)
	assert.Nil(t, account.Instructor)
	assert.Empty(t, profiles.students)
	assert.Empty(t, profiles.instructors)
}
