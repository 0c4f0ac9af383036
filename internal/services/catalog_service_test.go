package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

func newCatalogService(t *testing.T) (*CatalogService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pgdb := &database.PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewCatalogService(
		database.NewExperienceRepository(pgdb),
		database.NewTerritoryRepository(pgdb),
		database.NewAccountRepository(pgdb),
		logger,
	), mock
}

func territoryRows(id uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "description", "image_url", "created_at", "updated_at"}).
		AddRow(id, "Monteverde", "Cloud forest canton", "https://cdn.example.com/monteverde.jpg", now, now)
}

func guideRows(id uuid.UUID, territoryID uuid.UUID, roles string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "display_name", "roles", "territory_id",
		"avatar_url", "bio", "created_at", "updated_at",
	}).AddRow(id, "guide@example.com", "$2a$10$hash", "Guide", roles, territoryID, nil, nil, now, now)
}

func catalogExperienceRows(id, territoryID, guideID uuid.UUID, maxSpots int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "title", "description", "price", "duration_hours", "max_spots",
		"available_spots", "media_urls", "territory_id", "guide_id", "created_at", "updated_at",
	}).AddRow(
		id, "Night Frog Walk", "Spotting tree frogs after dark", 45.0, 3.0, maxSpots,
		maxSpots, "{https://cdn.example.com/frog.jpg}", territoryID, guideID, now, now,
	)
}

func validCreateExperienceRequest(territoryID uuid.UUID) *models.CreateExperienceRequest {
	return &models.CreateExperienceRequest{
		Title:         "Night Frog Walk",
		Description:   "Spotting tree frogs after dark",
		Price:         45.0,
		DurationHours: 3,
		MaxSpots:      10,
		MediaURLs:     []string{"https://cdn.example.com/frog.jpg"},
		TerritoryID:   territoryID.String(),
	}
}

func guideAccount(territoryID uuid.UUID) *models.Account {
	return &models.Account{
		ID:          uuid.New(),
		Email:       "guide@example.com",
		Roles:       pq.StringArray{"tourist", "tour_guide"},
		TerritoryID: uuid.NullUUID{UUID: territoryID, Valid: true},
	}
}

func TestCreateExperience(t *testing.T) {
	t.Run("Guide creates own experience with available equal to max", func(t *testing.T) {
		service, mock := newCatalogService(t)
		territoryID := uuid.New()
		guide := guideAccount(territoryID)

		mock.ExpectQuery(`FROM territories WHERE id`).
			WithArgs(territoryID).
			WillReturnRows(territoryRows(territoryID))
		mock.ExpectQuery(`FROM accounts WHERE id`).
			WithArgs(guide.ID).
			WillReturnRows(guideRows(guide.ID, territoryID, "{tourist,tour_guide}"))
		mock.ExpectQuery(`INSERT INTO experiences`).
			WillReturnRows(catalogExperienceRows(uuid.New(), territoryID, guide.ID, 10))

		experience, err := service.CreateExperience(guide, validCreateExperienceRequest(territoryID))
		require.NoError(t, err)
		assert.Equal(t, experience.MaxSpots, experience.AvailableSpots)
		assert.Equal(t, guide.ID, experience.GuideID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Target guide without the role is rejected", func(t *testing.T) {
		service, mock := newCatalogService(t)
		territoryID := uuid.New()
		guide := guideAccount(territoryID)
		tourist := uuid.New()

		req := validCreateExperienceRequest(territoryID)
		req.GuideID = tourist.String()

		mock.ExpectQuery(`FROM territories WHERE id`).
			WithArgs(territoryID).
			WillReturnRows(territoryRows(territoryID))
		mock.ExpectQuery(`FROM accounts WHERE id`).
			WithArgs(tourist).
			WillReturnRows(guideRows(tourist, territoryID, "{tourist}"))

		_, err := service.CreateExperience(guide, req)

		var validation *models.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "guide_id", validation.Field)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Guide homed elsewhere is rejected", func(t *testing.T) {
		service, mock := newCatalogService(t)
		territoryID := uuid.New()
		guide := guideAccount(territoryID)

		mock.ExpectQuery(`FROM territories WHERE id`).
			WithArgs(territoryID).
			WillReturnRows(territoryRows(territoryID))
		mock.ExpectQuery(`FROM accounts WHERE id`).
			WithArgs(guide.ID).
			WillReturnRows(guideRows(guide.ID, uuid.New(), "{tourist,tour_guide}"))

		_, err := service.CreateExperience(guide, validCreateExperienceRequest(territoryID))

		var validation *models.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "guide_id", validation.Field)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown territory", func(t *testing.T) {
		service, mock := newCatalogService(t)
		territoryID := uuid.New()
		guide := guideAccount(territoryID)

		mock.ExpectQuery(`FROM territories WHERE id`).
			WithArgs(territoryID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := service.CreateExperience(guide, validCreateExperienceRequest(territoryID))
		assert.True(t, models.IsNotFound(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing media URLs", func(t *testing.T) {
		service, _ := newCatalogService(t)
		territoryID := uuid.New()
		guide := guideAccount(territoryID)

		req := validCreateExperienceRequest(territoryID)
		req.MediaURLs = nil

		_, err := service.CreateExperience(guide, req)

		var validation *models.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "media_urls", validation.Field)
	})

	t.Run("Relative media URL", func(t *testing.T) {
		service, _ := newCatalogService(t)
		territoryID := uuid.New()
		guide := guideAccount(territoryID)

		req := validCreateExperienceRequest(territoryID)
		req.MediaURLs = []string{"/frog.jpg"}

		_, err := service.CreateExperience(guide, req)

		var validation *models.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "media_urls", validation.Field)
	})
}

func TestUpdateExperience(t *testing.T) {
	t.Run("Available spots above patched max is rejected before the write", func(t *testing.T) {
		service, mock := newCatalogService(t)
		territoryID := uuid.New()
		guide := guideAccount(territoryID)
		experienceID := uuid.New()
		maxSpots := 5
		available := 8

		mock.ExpectQuery(`FROM experiences WHERE id`).
			WithArgs(experienceID).
			WillReturnRows(catalogExperienceRows(experienceID, territoryID, guide.ID, 10))

		_, err := service.UpdateExperience(guide, experienceID, &models.UpdateExperienceRequest{
			MaxSpots:       &maxSpots,
			AvailableSpots: &available,
		})

		var validation *models.ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, "available_spots", validation.Field)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other guide is denied", func(t *testing.T) {
		service, mock := newCatalogService(t)
		territoryID := uuid.New()
		guide := guideAccount(territoryID)
		experienceID := uuid.New()
		price := 60.0

		mock.ExpectQuery(`FROM experiences WHERE id`).
			WithArgs(experienceID).
			WillReturnRows(catalogExperienceRows(experienceID, territoryID, uuid.New(), 10))

		_, err := service.UpdateExperience(guide, experienceID, &models.UpdateExperienceRequest{Price: &price})
		assert.True(t, models.IsUnauthorized(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateTerritory(t *testing.T) {
	t.Run("Admin creates", func(t *testing.T) {
		service, mock := newCatalogService(t)
		territoryID := uuid.New()

		mock.ExpectQuery(`INSERT INTO territories`).
			WillReturnRows(territoryRows(territoryID))

		territory, err := service.CreateTerritory(testAdmin(), &models.CreateTerritoryRequest{
			Name:        "Monteverde",
			Description: "Cloud forest canton",
			ImageURL:    "https://cdn.example.com/monteverde.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, "Monteverde", territory.Name)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Territory manager cannot create territories", func(t *testing.T) {
		service, _ := newCatalogService(t)
		manager := &models.Account{
			ID:    uuid.New(),
			Roles: pq.StringArray{"tourist", "territory_manager"},
		}

		_, err := service.CreateTerritory(manager, &models.CreateTerritoryRequest{
			Name:        "Monteverde",
			Description: "Cloud forest canton",
			ImageURL:    "https://cdn.example.com/monteverde.jpg",
		})
		assert.True(t, models.IsUnauthorized(err))
	})
}
