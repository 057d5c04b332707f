package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestCredentialCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	mock.ExpectExec("INSERT INTO identities").WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Identity{Username: "jdoe", PasswordHash: "hash", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	// ON CONFLICT DO NOTHING swallows the conflict; zero affected rows
	// is the duplicate signal.
	mock.ExpectExec("INSERT INTO identities").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &models.Identity{Username: "jdoe", PasswordHash: "hash", Role: models.RoleStudent})
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialFindByUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"username", "password_hash", "role", "created_at", "updated_at"}).
		AddRow("jdoe", "hash", string(models.RoleStudent), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT username, password_hash, role, created_at, updated_at FROM identities WHERE username = $1 LIMIT 1")).
		WithArgs("jdoe").
		WillReturnRows(rows)

	identity, err := repo.FindByUsername(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", identity.Username)
	assert.Equal(t, models.RoleStudent, identity.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialDeleteIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM identities WHERE username = $1")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "gone")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
