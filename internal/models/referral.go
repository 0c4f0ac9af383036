package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CommissionStatus represents the payout status of a commission
type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

// ReferralLink represents a hotel operator's shareable referral code
type ReferralLink struct {
	ID         uuid.UUID `json:"id" db:"id"`
	OperatorID uuid.UUID `json:"operator_id" db:"operator_id"`
	Code       string    `json:"code" db:"code"`
	Name       string    `json:"name" db:"name"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Referral represents a booking attributed to a referral link
type Referral struct {
	ID             uuid.UUID `json:"id" db:"id"`
	BookingID      uuid.UUID `json:"booking_id" db:"booking_id"`
	ReferralLinkID uuid.UUID `json:"referral_link_id" db:"referral_link_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Commission represents the fee owed to a hotel operator for a referred booking
type Commission struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	ReferralID uuid.UUID        `json:"referral_id" db:"referral_id"`
	Amount     float64          `json:"amount" db:"amount"`
	Status     CommissionStatus `json:"status" db:"status"`
	PaidAt     NullTime         `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// CommissionSummary aggregates an operator's commissions. Computed as a fold
// over the commission rows on every read, never stored.
type CommissionSummary struct {
	Total   float64 `json:"total" db:"total"`
	Pending float64 `json:"pending" db:"pending"`
	Paid    float64 `json:"paid" db:"paid"`
}

// CreateReferralLinkRequest represents the request to create a referral link
type CreateReferralLinkRequest struct {
	Name string `json:"name" binding:"required"`
}

// Validate validates the create referral link request
func (r *CreateReferralLinkRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Constraint: "must not be empty"}
	}
	return nil
}

// AttachReferralRequest represents the request to attach a referral code to
// the caller's browsing session
type AttachReferralRequest struct {
	Code string `json:"code" binding:"required"`
}
