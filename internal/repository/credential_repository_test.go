package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classmark/classmark-api/internal/models"
)

func newCredentialMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCredentialRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newCredentialMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "pin", "created_at"}).
		AddRow("c1", "Chen", "123456", time.Now()).
		AddRow("c2", "Lin", "654321", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, pin, created_at FROM credentials ORDER BY name ASC")).
		WillReturnRows(rows)

	credentials, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, credentials, 2)
	assert.Equal(t, "Chen", credentials[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepositoryFindByName(t *testing.T) {
	db, mock, cleanup := newCredentialMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, pin, created_at FROM credentials WHERE name = $1 LIMIT 1")).
		WithArgs("Chen").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "pin", "created_at"}).AddRow("c1", "Chen", "123456", time.Now()))

	credential, err := repo.FindByName(context.Background(), "Chen")
	require.NoError(t, err)
	assert.Equal(t, "123456", credential.Pin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepositoryFindByNameMissing(t *testing.T) {
	db, mock, cleanup := newCredentialMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	mock.ExpectQuery("SELECT .* FROM credentials WHERE name").
		WithArgs("Nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByName(context.Background(), "Nobody")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepositoryPinExists(t *testing.T) {
	db, mock, cleanup := newCredentialMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM credentials WHERE pin = $1")).
		WithArgs("123456").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	taken, err := repo.PinExists(context.Background(), "123456")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCredentialMock(t)
	defer cleanup()
	repo := NewCredentialRepository(db)

	mock.ExpectExec("INSERT INTO credentials").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	credential := &models.Credential{Name: "Chen", Pin: "123456"}
	err := repo.Create(context.Background(), credential)
	require.NoError(t, err)
	assert.NotEmpty(t, credential.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
