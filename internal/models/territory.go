package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Territory represents a geographic region grouping experiences.
// Called "region" in user-facing text.
type Territory struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CreateTerritoryRequest represents the request to create a territory
type CreateTerritoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	ImageURL    string `json:"image_url" binding:"required"`
}

// Validate validates the create territory request
func (r *CreateTerritoryRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Constraint: "must not be empty"}
	}
	if strings.TrimSpace(r.Description) == "" {
		return &ValidationError{Field: "description", Constraint: "must not be empty"}
	}
	if !ValidMediaURL(r.ImageURL) {
		return &ValidationError{Field: "image_url", Constraint: "must be an absolute URL"}
	}
	return nil
}

// UpdateTerritoryRequest represents the request to update a territory
type UpdateTerritoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// Validate validates the update territory request
func (r *UpdateTerritoryRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return &ValidationError{Field: "name", Constraint: "must not be empty"}
	}
	if r.ImageURL != nil && !ValidMediaURL(*r.ImageURL) {
		return &ValidationError{Field: "image_url", Constraint: "must be an absolute URL"}
	}
	return nil
}
