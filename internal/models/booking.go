package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod represents how a booking will be paid
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

// PaymentStatus represents the payment status of a booking
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Booking represents a tourist's reservation against an experience.
// TotalPrice is computed from the experience price at booking time and
// frozen; later price edits never change it.
type Booking struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	ExperienceID  uuid.UUID     `json:"experience_id" db:"experience_id"`
	TouristID     uuid.UUID     `json:"tourist_id" db:"tourist_id"`
	BookingDate   time.Time     `json:"booking_date" db:"booking_date"`
	NumPeople     int           `json:"num_people" db:"num_people"`
	TotalPrice    float64       `json:"total_price" db:"total_price"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status" db:"payment_status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	ExperienceID  string `json:"experience_id" binding:"required"`
	Date          string `json:"date" binding:"required"`
	NumPeople     int    `json:"num_people" binding:"required,min=1"`
	PaymentMethod string `json:"payment_method" binding:"required"`
	// Caller's UTC offset in minutes, east positive. "Today" for the
	// not-in-the-past check is the caller's local day, not the server's.
	TZOffsetMinutes int `json:"tz_offset_minutes"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if _, err := uuid.Parse(r.ExperienceID); err != nil {
		return &ValidationError{Field: "experience_id", Constraint: "must be a valid UUID"}
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return &ValidationError{Field: "date", Constraint: "must be formatted YYYY-MM-DD"}
	}
	if r.NumPeople < 1 {
		return &ValidationError{Field: "num_people", Constraint: "must be at least 1"}
	}
	switch PaymentMethod(r.PaymentMethod) {
	case PaymentMethodCash, PaymentMethodCard:
	default:
		return &ValidationError{Field: "payment_method", Constraint: "must be cash or card"}
	}
	// UTC-12 through UTC+14 bound real-world offsets.
	if r.TZOffsetMinutes < -12*60 || r.TZOffsetMinutes > 14*60 {
		return &ValidationError{Field: "tz_offset_minutes", Constraint: "must be a valid UTC offset"}
	}
	return nil
}

// ParsedDate returns the booking date at midnight UTC
func (r *CreateBookingRequest) ParsedDate() time.Time {
	t, _ := time.Parse("2006-01-02", r.Date)
	return t
}
