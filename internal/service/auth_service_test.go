package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uni-records-api/internal/models"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type mockAuthCredentials struct {
	identities map[string]*models.Identity
	updated    map[string]string
}

func (m *mockAuthCredentials) FindByUsername(ctx context.Context, username string) (*models.Identity, error) {
	if identity, ok := m.identities[username]; ok {
		return identity, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthCredentials) UpdatePassword(ctx context.Context, username, passwordHash string, updatedAt time.Time) error {
	if m.updated == nil {
		m.updated = make(map[string]string)
	}
	m.updated[username] = passwordHash
	if identity, ok := m.identities[username]; ok {
		identity.PasswordHash = passwordHash
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthCredentials) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	credentials := &mockAuthCredentials{identities: map[string]*models.Identity{
		"jdoe": {Username: "jdoe", PasswordHash: string(hash), Role: models.RoleStudent},
	}}
	svc := NewAuthService(credentials, validator.New(), zap.NewNop(), AuthConfig{
		TokenSecret:       "test-secret",
		TokenExpiry:       time.Hour,
		Issuer:            "uni-records-api",
		PasswordMinLength: 8,
		BcryptCost:        bcrypt.MinCost,
	})
	return svc, credentials
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "jdoe", resp.Username)
	assert.Equal(t, models.RoleStudent, resp.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", claims.Username)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "wrong"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginUnknownUser(t *testing.T) {
	// a missing account reads the same as a wrong password
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestValidateTokenGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestChangePassword(t *testing.T) {
	svc, credentials := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "jdoe", models.ChangePasswordRequest{
		CurrentPassword: "correct horse",
		NewPassword:     "battery staple",
	})
	require.NoError(t, err)
	require.Contains(t, credentials.updated, "jdoe")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(credentials.updated["jdoe"]), []byte("battery staple")))

	// old password no longer works
	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "jdoe", Password: "correct horse"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, credentials := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "jdoe", models.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "battery staple",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Empty(t, credentials.updated)
}

func TestChangePasswordWeak(t *testing.T) {
	svc, credentials := newAuthFixture(t)

	err := svc.ChangePassword(context.Background(), "jdoe", models.ChangePasswordRequest{
		CurrentPassword: "correct horse",
		NewPassword:     "short",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrWeakPassword))
	assert.Empty(t, credentials.updated)
}
