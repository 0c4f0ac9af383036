package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

func newMockDB(t *testing.T) (DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}, mock
}

func accountRow(id uuid.UUID, email string, roles string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "display_name", "roles", "territory_id",
		"avatar_url", "bio", "created_at", "updated_at",
	}).AddRow(id, email, "$2a$10$hash", "Test Account", roles, nil, nil, nil, now, now)
}

func TestAccountRepositoryCreate(t *testing.T) {
	t.Run("New account starts as tourist", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAccountRepository(db)
		id := uuid.New()

		mock.ExpectQuery(`INSERT INTO accounts`).
			WithArgs(sqlmock.AnyArg(), "toad@example.com", "$2a$10$hash", "Test Account").
			WillReturnRows(accountRow(id, "toad@example.com", "{tourist}"))

		account, err := repo.Create("toad@example.com", "$2a$10$hash", "Test Account")
		require.NoError(t, err)
		assert.Equal(t, "toad@example.com", account.Email)
		assert.True(t, account.HasRole(models.RoleTourist))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate email surfaces wrapped error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAccountRepository(db)

		mock.ExpectQuery(`INSERT INTO accounts`).
			WithArgs(sqlmock.AnyArg(), "dup@example.com", "$2a$10$hash", "Dup").
			WillReturnError(assert.AnError)

		_, err := repo.Create("dup@example.com", "$2a$10$hash", "Dup")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepositoryGetByEmail(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAccountRepository(db)
		id := uuid.New()

		mock.ExpectQuery(`FROM accounts WHERE email`).
			WithArgs("toad@example.com").
			WillReturnRows(accountRow(id, "toad@example.com", "{tourist,tour_guide}"))

		account, err := repo.GetByEmail("toad@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, account.ID)
		assert.True(t, account.HasRole(models.RoleTourGuide))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAccountRepository(db)

		mock.ExpectQuery(`FROM accounts WHERE email`).
			WithArgs("ghost@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.GetByEmail("ghost@example.com")
		assert.True(t, models.IsNotFound(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepositoryAddRole(t *testing.T) {
	t.Run("Grant appends role", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAccountRepository(db)
		id := uuid.New()

		mock.ExpectQuery(`array_append`).
			WithArgs(id, "tour_guide").
			WillReturnRows(accountRow(id, "toad@example.com", "{tourist,tour_guide}"))

		account, err := repo.AddRole(id, models.RoleTourGuide)
		require.NoError(t, err)
		assert.True(t, account.HasRole(models.RoleTourGuide))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Grant of held role is idempotent", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAccountRepository(db)
		id := uuid.New()

		mock.ExpectQuery(`array_append`).
			WithArgs(id, "tour_guide").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`FROM accounts WHERE id`).
			WithArgs(id).
			WillReturnRows(accountRow(id, "toad@example.com", "{tourist,tour_guide}"))

		account, err := repo.AddRole(id, models.RoleTourGuide)
		require.NoError(t, err)
		assert.True(t, account.HasRole(models.RoleTourGuide))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown account", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAccountRepository(db)
		id := uuid.New()

		mock.ExpectQuery(`array_append`).
			WithArgs(id, "tour_guide").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`FROM accounts WHERE id`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.AddRole(id, models.RoleTourGuide)
		assert.True(t, models.IsNotFound(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepositoryRemoveRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`array_remove`).
		WithArgs(id, "tour_guide").
		WillReturnRows(accountRow(id, "toad@example.com", "{tourist}"))

	account, err := repo.RemoveRole(id, models.RoleTourGuide)
	require.NoError(t, err)
	assert.False(t, account.HasRole(models.RoleTourGuide))
	assert.True(t, account.HasRole(models.RoleTourist))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryUpdateProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)
	id := uuid.New()
	name := "Renamed Toad"

	mock.ExpectQuery(`UPDATE accounts`).
		WithArgs(id, &name, nil, nil).
		WillReturnRows(accountRow(id, "toad@example.com", "{tourist}"))

	_, err := repo.UpdateProfile(id, &models.UpdateProfileRequest{DisplayName: &name})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositorySetTerritory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)
	id := uuid.New()
	territoryID := uuid.New()

	mock.ExpectQuery(`SET territory_id`).
		WithArgs(id, territoryID).
		WillReturnRows(accountRow(id, "toad@example.com", "{tourist,territory_manager}"))

	account, err := repo.SetTerritory(id, territoryID)
	require.NoError(t, err)
	assert.True(t, account.HasRole(models.RoleTerritoryManager))

	assert.NoError(t, mock.ExpectationsWereMet())
}
