package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Review represents a tourist's one-time review of a booked experience
type Review struct {
	ID           uuid.UUID `json:"id" db:"id"`
	BookingID    uuid.UUID `json:"booking_id" db:"booking_id"`
	TouristID    uuid.UUID `json:"tourist_id" db:"tourist_id"`
	ExperienceID uuid.UUID `json:"experience_id" db:"experience_id"`
	Rating       int       `json:"rating" db:"rating"`
	Comment      string    `json:"comment" db:"comment"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// CreateReviewRequest represents the request to review a booking
type CreateReviewRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Comment   string `json:"comment" binding:"required"`
}

// Validate validates the create review request
func (r *CreateReviewRequest) Validate() error {
	if _, err := uuid.Parse(r.BookingID); err != nil {
		return &ValidationError{Field: "booking_id", Constraint: "must be a valid UUID"}
	}
	if r.Rating < 1 || r.Rating > 5 {
		return &ValidationError{Field: "rating", Constraint: "must be between 1 and 5"}
	}
	if strings.TrimSpace(r.Comment) == "" {
		return &ValidationError{Field: "comment", Constraint: "must not be empty"}
	}
	return nil
}
