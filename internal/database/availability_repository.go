package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

const overrideColumns = `id, experience_id, date, max_capacity, booked_count, created_at, updated_at`

// AvailabilityRepository handles database operations for the
// availability_overrides table
type AvailabilityRepository struct {
	db DB
}

// NewAvailabilityRepository creates a new AvailabilityRepository
func NewAvailabilityRepository(db DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Upsert sets the capacity override for an experience on a date, replacing
// any existing override for the same date
func (r *AvailabilityRepository) Upsert(experienceID uuid.UUID, date time.Time, maxCapacity, bookedCount int) (*models.AvailabilityOverride, error) {
	query := `
		INSERT INTO availability_overrides (id, experience_id, date, max_capacity, booked_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (experience_id, date)
		DO UPDATE SET max_capacity = $4, booked_count = $5, updated_at = NOW()
		RETURNING ` + overrideColumns

	override := &models.AvailabilityOverride{}
	err := r.db.Get(override, query, uuid.New(), experienceID, date, maxCapacity, bookedCount)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert availability override: %w", err)
	}
	return override, nil
}

// GetByDate retrieves the override for an experience on a date, if any
func (r *AvailabilityRepository) GetByDate(experienceID uuid.UUID, date time.Time) (*models.AvailabilityOverride, error) {
	query := `SELECT ` + overrideColumns + ` FROM availability_overrides WHERE experience_id = $1 AND date = $2`

	override := &models.AvailabilityOverride{}
	err := r.db.Get(override, query, experienceID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "availability_override", ID: experienceID.String()}
		}
		return nil, fmt.Errorf("failed to get availability override: %w", err)
	}
	return override, nil
}

// ListByExperience retrieves all date overrides for an experience in date order
func (r *AvailabilityRepository) ListByExperience(experienceID uuid.UUID) ([]models.AvailabilityOverride, error) {
	query := `SELECT ` + overrideColumns + ` FROM availability_overrides WHERE experience_id = $1 ORDER BY date`

	var overrides []models.AvailabilityOverride
	if err := r.db.Select(&overrides, query, experienceID); err != nil {
		return nil, fmt.Errorf("failed to list availability overrides: %w", err)
	}
	return overrides, nil
}

// Delete removes a date override
func (r *AvailabilityRepository) Delete(experienceID uuid.UUID, date time.Time) error {
	result, err := r.db.Exec(`DELETE FROM availability_overrides WHERE experience_id = $1 AND date = $2`, experienceID, date)
	if err != nil {
		return fmt.Errorf("failed to delete availability override: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return &models.NotFoundError{EntityType: "availability_override", ID: experienceID.String()}
	}
	return nil
}
