// Package authz holds the role-based authorization rules for the marketplace.
// Authorize is a pure decision function: it never touches storage and callers
// persist mutations only after it allows them.
package authz

import (
	"github.com/google/uuid"

	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

// Action represents an operation a caller wants to perform
type Action string

const (
	ActionUpdateProfile        Action = "update_profile"
	ActionGrantRole            Action = "grant_role"
	ActionRevokeRole           Action = "revoke_role"
	ActionManageTerritory      Action = "manage_territory"
	ActionCreateExperience     Action = "create_experience"
	ActionUpdateExperience     Action = "update_experience"
	ActionDeleteExperience     Action = "delete_experience"
	ActionSetAvailability      Action = "set_availability"
	ActionMarkPaymentCompleted Action = "mark_payment_completed"
	ActionManageReferralLink   Action = "manage_referral_link"
	ActionMarkCommissionPaid   Action = "mark_commission_paid"
	ActionCreateBooking        Action = "create_booking"
	ActionCreateReview         Action = "create_review"
)

// Target describes the entity an action is aimed at. AccountID is the owning
// or affected account (the guide for an experience, the operator for a
// referral link, the tourist for a booking or review, the account itself for
// profile and role changes). TerritoryID is the territory the target belongs
// to, when it has one. Role is set only for grant/revoke actions.
type Target struct {
	AccountID   uuid.UUID
	TerritoryID uuid.NullUUID
	Role        models.Role
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns an allowing decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with the given reason
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err converts a deny decision into an UnauthorizedError, or nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &models.UnauthorizedError{Reason: d.Reason}
}

// Authorize decides whether caller may perform action on target.
// Rules are evaluated in order; the first match wins.
func Authorize(caller *models.Account, action Action, target Target) Decision {
	if caller == nil {
		return Deny("authentication required")
	}

	// The tourist role is structural: no caller, admin included, may remove it.
	if action == ActionRevokeRole && target.Role == models.RoleTourist {
		return Deny("the tourist role cannot be removed")
	}

	// Rule 1: accounts always manage their own non-privileged profile fields.
	if action == ActionUpdateProfile && target.AccountID == caller.ID {
		return Allow()
	}

	// Rule 2: privileged roles can never be granted to oneself, and no
	// account may strip its own roles.
	if target.AccountID == caller.ID {
		if action == ActionGrantRole && (target.Role == models.RoleAdmin || target.Role == models.RoleTerritoryManager) {
			return Deny("cannot grant privileged roles to yourself")
		}
		if action == ActionRevokeRole {
			return Deny("cannot remove your own roles")
		}
	}

	// Rule 3: admins may do anything not structurally forbidden above.
	if caller.HasRole(models.RoleAdmin) {
		return Allow()
	}

	// Rule 4: territory managers act within their home territory only.
	if caller.HasRole(models.RoleTerritoryManager) && sameTerritory(caller, target) {
		switch action {
		case ActionGrantRole, ActionRevokeRole:
			if target.Role == models.RoleTourGuide || target.Role == models.RoleHotelOperator {
				return Allow()
			}
			return Deny("territory managers may only manage tour_guide and hotel_operator roles")
		case ActionCreateExperience, ActionUpdateExperience, ActionDeleteExperience,
			ActionSetAvailability, ActionMarkPaymentCompleted:
			return Allow()
		}
	}

	// Rule 5: guides manage their own experiences.
	if caller.HasRole(models.RoleTourGuide) && target.AccountID == caller.ID {
		switch action {
		case ActionCreateExperience, ActionUpdateExperience, ActionDeleteExperience,
			ActionSetAvailability, ActionMarkPaymentCompleted:
			return Allow()
		}
	}

	// Rule 6: hotel operators manage their own referral links.
	if caller.HasRole(models.RoleHotelOperator) && action == ActionManageReferralLink && target.AccountID == caller.ID {
		return Allow()
	}

	// Rule 7: tourists book and review for themselves.
	if caller.HasRole(models.RoleTourist) && target.AccountID == caller.ID {
		if action == ActionCreateBooking || action == ActionCreateReview {
			return Allow()
		}
	}

	return Deny("insufficient role")
}

func sameTerritory(caller *models.Account, target Target) bool {
	return caller.TerritoryID.Valid && target.TerritoryID.Valid &&
		caller.TerritoryID.UUID == target.TerritoryID.UUID
}
