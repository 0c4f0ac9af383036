package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

// TerritoryRepository handles database operations for the territories table
type TerritoryRepository struct {
	db DB
}

// NewTerritoryRepository creates a new TerritoryRepository
func NewTerritoryRepository(db DB) *TerritoryRepository {
	return &TerritoryRepository{db: db}
}

// Create creates a new territory
func (r *TerritoryRepository) Create(req *models.CreateTerritoryRequest) (*models.Territory, error) {
	query := `
		INSERT INTO territories (id, name, description, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, image_url, created_at, updated_at
	`

	territory := &models.Territory{}
	err := r.db.Get(territory, query, uuid.New(), req.Name, req.Description, req.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create territory: %w", err)
	}
	return territory, nil
}

// GetByID retrieves a territory by id
func (r *TerritoryRepository) GetByID(id uuid.UUID) (*models.Territory, error) {
	query := `SELECT id, name, description, image_url, created_at, updated_at FROM territories WHERE id = $1`

	territory := &models.Territory{}
	err := r.db.Get(territory, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "territory", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get territory: %w", err)
	}
	return territory, nil
}

// ListAll retrieves all territories ordered by name
func (r *TerritoryRepository) ListAll() ([]models.Territory, error) {
	query := `SELECT id, name, description, image_url, created_at, updated_at FROM territories ORDER BY name`

	var territories []models.Territory
	if err := r.db.Select(&territories, query); err != nil {
		return nil, fmt.Errorf("failed to list territories: %w", err)
	}
	return territories, nil
}

// Update updates a territory
func (r *TerritoryRepository) Update(id uuid.UUID, req *models.UpdateTerritoryRequest) (*models.Territory, error) {
	query := `
		UPDATE territories
		SET name        = COALESCE($2, name),
			description = COALESCE($3, description),
			image_url   = COALESCE($4, image_url),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING id, name, description, image_url, created_at, updated_at
	`

	territory := &models.Territory{}
	err := r.db.Get(territory, query, id, req.Name, req.Description, req.ImageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "territory", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to update territory: %w", err)
	}
	return territory, nil
}
