package models

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Role represents a capability granted to an account
type Role string

const (
	RoleTourist          Role = "tourist"
	RoleTourGuide        Role = "tour_guide"
	RoleHotelOperator    Role = "hotel_operator"
	RoleTerritoryManager Role = "territory_manager"
	RoleAdmin            Role = "admin"
)

// ValidRole reports whether s names a known role
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleTourist, RoleTourGuide, RoleHotelOperator, RoleTerritoryManager, RoleAdmin:
		return true
	}
	return false
}

// NullString wraps sql.NullString to provide proper JSON marshaling
type NullString struct {
	sql.NullString
}

// MarshalJSON implements json.Marshaler
func (ns NullString) MarshalJSON() ([]byte, error) {
	if ns.Valid {
		return json.Marshal(ns.String)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (ns *NullString) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s != nil {
		ns.Valid = true
		ns.String = *s
	} else {
		ns.Valid = false
	}
	return nil
}

// NullTime wraps sql.NullTime to provide proper JSON marshaling
type NullTime struct {
	sql.NullTime
}

// MarshalJSON implements json.Marshaler
func (nt NullTime) MarshalJSON() ([]byte, error) {
	if nt.Valid {
		return json.Marshal(nt.Time)
	}
	return json.Marshal(nil)
}

// UnmarshalJSON implements json.Unmarshaler
func (nt *NullTime) UnmarshalJSON(data []byte) error {
	var t *time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	if t != nil {
		nt.Valid = true
		nt.Time = *t
	} else {
		nt.Valid = false
	}
	return nil
}

// Account represents a registered user of the marketplace.
// Every account keeps the tourist role for its whole lifetime.
type Account struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Email        string         `json:"email" db:"email"`
	PasswordHash string         `json:"-" db:"password_hash"`
	DisplayName  string         `json:"display_name" db:"display_name"`
	Roles        pq.StringArray `json:"roles" db:"roles"`
	TerritoryID  uuid.NullUUID  `json:"territory_id,omitempty" db:"territory_id"`
	AvatarURL    NullString     `json:"avatar_url,omitempty" db:"avatar_url"`
	Bio          NullString     `json:"bio,omitempty" db:"bio"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the account holds the given role
func (a *Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if Role(r) == role {
			return true
		}
	}
	return false
}

// RegisterRequest represents the request to create a new account
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
}

// Validate validates the register request
func (r *RegisterRequest) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return &ValidationError{Field: "email", Constraint: "must be a valid email address"}
	}
	if len(r.Password) < 8 {
		return &ValidationError{Field: "password", Constraint: "must be at least 8 characters"}
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		return &ValidationError{Field: "display_name", Constraint: "must not be empty"}
	}
	return nil
}

// LoginRequest represents the request to authenticate an account
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents the request to update non-privileged profile fields
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// Validate validates the update profile request
func (r *UpdateProfileRequest) Validate() error {
	if r.DisplayName != nil && strings.TrimSpace(*r.DisplayName) == "" {
		return &ValidationError{Field: "display_name", Constraint: "must not be empty"}
	}
	if r.AvatarURL != nil && !ValidMediaURL(*r.AvatarURL) {
		return &ValidationError{Field: "avatar_url", Constraint: "must be an absolute URL"}
	}
	return nil
}

// RoleChangeRequest represents the request to grant or revoke a single role
type RoleChangeRequest struct {
	Role string `json:"role" binding:"required"`
}

// Validate validates the role change request
func (r *RoleChangeRequest) Validate() error {
	if !ValidRole(r.Role) {
		return &ValidationError{Field: "role", Constraint: "unknown role"}
	}
	return nil
}

// RefreshToken represents a persisted JWT refresh token
type RefreshToken struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	AccountID uuid.UUID  `json:"account_id" db:"account_id"`
	TokenHash string     `json:"-" db:"token_hash"`
	IPAddress NullString `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent NullString `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	Revoked   bool       `json:"revoked" db:"revoked"`
	RevokedAt NullTime   `json:"revoked_at,omitempty" db:"revoked_at"`
}

// ErrInvalidCredentials is returned when an email/password pair does not match
var ErrInvalidCredentials = errors.New("invalid email or password")
