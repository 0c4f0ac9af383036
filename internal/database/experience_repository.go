package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

const experienceColumns = `id, title, description, price, duration_hours, max_spots,
	   available_spots, media_urls, territory_id, guide_id, created_at, updated_at`

// ExperienceRepository handles database operations for the experiences table
type ExperienceRepository struct {
	db DB
}

// NewExperienceRepository creates a new ExperienceRepository
func NewExperienceRepository(db DB) *ExperienceRepository {
	return &ExperienceRepository{db: db}
}

// Create creates a new experience. Available spots start at max_spots.
func (r *ExperienceRepository) Create(req *models.CreateExperienceRequest, guideID, territoryID uuid.UUID) (*models.Experience, error) {
	query := `
		INSERT INTO experiences (
			id, title, description, price, duration_hours,
			max_spots, available_spots, media_urls, territory_id, guide_id
		) VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8, $9)
		RETURNING ` + experienceColumns

	experience := &models.Experience{}
	err := r.db.Get(experience, query,
		uuid.New(), req.Title, req.Description, req.Price, req.DurationHours,
		req.MaxSpots, pq.StringArray(req.MediaURLs), territoryID, guideID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create experience: %w", err)
	}
	return experience, nil
}

// GetByID retrieves an experience by id
func (r *ExperienceRepository) GetByID(id uuid.UUID) (*models.Experience, error) {
	query := `SELECT ` + experienceColumns + ` FROM experiences WHERE id = $1`

	experience := &models.Experience{}
	err := r.db.Get(experience, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "experience", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get experience: %w", err)
	}
	return experience, nil
}

// ListByTerritory retrieves all experiences in a territory
func (r *ExperienceRepository) ListByTerritory(territoryID uuid.UUID) ([]models.Experience, error) {
	query := `SELECT ` + experienceColumns + ` FROM experiences WHERE territory_id = $1 ORDER BY created_at DESC`

	var experiences []models.Experience
	if err := r.db.Select(&experiences, query, territoryID); err != nil {
		return nil, fmt.Errorf("failed to list experiences by territory: %w", err)
	}
	return experiences, nil
}

// ListByGuide retrieves all experiences owned by a guide
func (r *ExperienceRepository) ListByGuide(guideID uuid.UUID) ([]models.Experience, error) {
	query := `SELECT ` + experienceColumns + ` FROM experiences WHERE guide_id = $1 ORDER BY created_at DESC`

	var experiences []models.Experience
	if err := r.db.Select(&experiences, query, guideID); err != nil {
		return nil, fmt.Errorf("failed to list experiences by guide: %w", err)
	}
	return experiences, nil
}

// ListAll retrieves every experience, newest first
func (r *ExperienceRepository) ListAll() ([]models.Experience, error) {
	query := `SELECT ` + experienceColumns + ` FROM experiences ORDER BY created_at DESC`

	var experiences []models.Experience
	if err := r.db.Select(&experiences, query); err != nil {
		return nil, fmt.Errorf("failed to list experiences: %w", err)
	}
	return experiences, nil
}

// Update updates an experience. The WHERE clause re-checks the capacity
// invariant against the patched values so available_spots can never be
// pushed above max_spots or below zero.
func (r *ExperienceRepository) Update(id uuid.UUID, req *models.UpdateExperienceRequest) (*models.Experience, error) {
	var mediaURLs interface{}
	if req.MediaURLs != nil {
		mediaURLs = pq.StringArray(req.MediaURLs)
	}

	query := `
		UPDATE experiences
		SET title           = COALESCE($2, title),
			description     = COALESCE($3, description),
			price           = COALESCE($4, price),
			duration_hours  = COALESCE($5, duration_hours),
			max_spots       = COALESCE($6, max_spots),
			available_spots = COALESCE($7, available_spots),
			media_urls      = COALESCE($8, media_urls),
			updated_at      = NOW()
		WHERE id = $1
		  AND COALESCE($7, available_spots) <= COALESCE($6, max_spots)
		  AND COALESCE($7, available_spots) >= 0
		RETURNING ` + experienceColumns

	experience := &models.Experience{}
	err := r.db.Get(experience, query, id,
		req.Title, req.Description, req.Price, req.DurationHours,
		req.MaxSpots, req.AvailableSpots, mediaURLs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the experience is missing or the patch violates the
			// capacity invariant; disambiguate for the caller.
			if _, getErr := r.GetByID(id); getErr != nil {
				return nil, getErr
			}
			return nil, &models.ValidationError{Field: "available_spots", Constraint: "must stay between 0 and max_spots"}
		}
		return nil, fmt.Errorf("failed to update experience: %w", err)
	}
	return experience, nil
}

// Delete removes an experience
func (r *ExperienceRepository) Delete(id uuid.UUID) error {
	result, err := r.db.Exec(`DELETE FROM experiences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experience: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{EntityType: "experience", ID: id.String()}
	}
	return nil
}
