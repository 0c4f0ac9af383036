package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Experience represents a bookable guided activity with fixed price,
// duration and capacity, owned by a tour guide within a territory.
type Experience struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	Title          string         `json:"title" db:"title"`
	Description    string         `json:"description" db:"description"`
	Price          float64        `json:"price" db:"price"`
	DurationHours  float64        `json:"duration_hours" db:"duration_hours"`
	MaxSpots       int            `json:"max_spots" db:"max_spots"`
	AvailableSpots int            `json:"available_spots" db:"available_spots"`
	MediaURLs      pq.StringArray `json:"media_urls" db:"media_urls"`
	TerritoryID    uuid.UUID      `json:"territory_id" db:"territory_id"`
	GuideID        uuid.UUID      `json:"guide_id" db:"guide_id"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// AvailabilityOverride represents a per-date capacity override for an
// experience, maintained by the guide. Available spots for the date derive
// from max_capacity - booked_count, floored at zero.
type AvailabilityOverride struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ExperienceID uuid.UUID `json:"experience_id" db:"experience_id"`
	Date         time.Time `json:"date" db:"date"`
	MaxCapacity  int       `json:"max_capacity" db:"max_capacity"`
	BookedCount  int       `json:"booked_count" db:"booked_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Available returns the derived remaining capacity for the date
func (o *AvailabilityOverride) Available() int {
	if avail := o.MaxCapacity - o.BookedCount; avail > 0 {
		return avail
	}
	return 0
}

// ValidMediaURL reports whether s parses as an absolute URL
func ValidMediaURL(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// CreateExperienceRequest represents the request to create an experience
type CreateExperienceRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description" binding:"required"`
	Price         float64  `json:"price" binding:"required"`
	DurationHours float64  `json:"duration_hours" binding:"required"`
	MaxSpots      int      `json:"max_spots" binding:"required"`
	MediaURLs     []string `json:"media_urls" binding:"required"`
	TerritoryID   string   `json:"territory_id" binding:"required"`
	GuideID       string   `json:"guide_id,omitempty"`
}

// Validate validates the create experience request
func (r *CreateExperienceRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Constraint: "must not be empty"}
	}
	if r.Price <= 0 {
		return &ValidationError{Field: "price", Constraint: "must be greater than zero"}
	}
	if r.DurationHours <= 0 {
		return &ValidationError{Field: "duration_hours", Constraint: "must be greater than zero"}
	}
	if r.MaxSpots < 1 {
		return &ValidationError{Field: "max_spots", Constraint: "must be at least 1"}
	}
	if len(r.MediaURLs) == 0 {
		return &ValidationError{Field: "media_urls", Constraint: "at least one media reference is required"}
	}
	for _, m := range r.MediaURLs {
		if !ValidMediaURL(m) {
			return &ValidationError{Field: "media_urls", Constraint: "must be absolute URLs"}
		}
	}
	if _, err := uuid.Parse(r.TerritoryID); err != nil {
		return &ValidationError{Field: "territory_id", Constraint: "must be a valid UUID"}
	}
	if r.GuideID != "" {
		if _, err := uuid.Parse(r.GuideID); err != nil {
			return &ValidationError{Field: "guide_id", Constraint: "must be a valid UUID"}
		}
	}
	return nil
}

// UpdateExperienceRequest represents the request to update an experience.
// available_spots cannot be set directly above max_spots.
type UpdateExperienceRequest struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	DurationHours  *float64 `json:"duration_hours,omitempty"`
	MaxSpots       *int     `json:"max_spots,omitempty"`
	AvailableSpots *int     `json:"available_spots,omitempty"`
	MediaURLs      []string `json:"media_urls,omitempty"`
}

// Validate validates the update experience request
func (r *UpdateExperienceRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return &ValidationError{Field: "title", Constraint: "must not be empty"}
	}
	if r.Price != nil && *r.Price <= 0 {
		return &ValidationError{Field: "price", Constraint: "must be greater than zero"}
	}
	if r.DurationHours != nil && *r.DurationHours <= 0 {
		return &ValidationError{Field: "duration_hours", Constraint: "must be greater than zero"}
	}
	if r.MaxSpots != nil && *r.MaxSpots < 1 {
		return &ValidationError{Field: "max_spots", Constraint: "must be at least 1"}
	}
	if r.AvailableSpots != nil && *r.AvailableSpots < 0 {
		return &ValidationError{Field: "available_spots", Constraint: "must not be negative"}
	}
	for _, m := range r.MediaURLs {
		if !ValidMediaURL(m) {
			return &ValidationError{Field: "media_urls", Constraint: "must be absolute URLs"}
		}
	}
	return nil
}

// SetAvailabilityOverrideRequest represents the request to set a per-date
// capacity override
type SetAvailabilityOverrideRequest struct {
	Date        string `json:"date" binding:"required"`
	MaxCapacity int    `json:"max_capacity" binding:"required"`
	BookedCount int    `json:"booked_count"`
}

// Validate validates the availability override request
func (r *SetAvailabilityOverrideRequest) Validate() error {
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return &ValidationError{Field: "date", Constraint: "must be formatted YYYY-MM-DD"}
	}
	if r.MaxCapacity < 0 {
		return &ValidationError{Field: "max_capacity", Constraint: "must not be negative"}
	}
	if r.BookedCount < 0 {
		return &ValidationError{Field: "booked_count", Constraint: "must not be negative"}
	}
	return nil
}
