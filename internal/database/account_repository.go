package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

const accountColumns = `id, email, password_hash, display_name, roles, territory_id,
	   avatar_url, bio, created_at, updated_at`

// AccountRepository handles database operations for the accounts table
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account. Every account starts with the tourist role.
func (r *AccountRepository) Create(email, passwordHash, displayName string) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, email, password_hash, display_name, roles)
		VALUES ($1, $2, $3, $4, '{tourist}')
		RETURNING ` + accountColumns

	account := &models.Account{}
	err := r.db.Get(account, query, uuid.New(), email, passwordHash, displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// GetByID retrieves an account by id
func (r *AccountRepository) GetByID(id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account := &models.Account{}
	err := r.db.Get(account, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "account", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// GetByEmail retrieves an account by email
func (r *AccountRepository) GetByEmail(email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	account := &models.Account{}
	err := r.db.Get(account, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "account", ID: email}
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return account, nil
}

// UpdateProfile updates the non-privileged profile fields of an account
func (r *AccountRepository) UpdateProfile(id uuid.UUID, req *models.UpdateProfileRequest) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET display_name = COALESCE($2, display_name),
			bio          = COALESCE($3, bio),
			avatar_url   = COALESCE($4, avatar_url),
			updated_at   = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	account := &models.Account{}
	err := r.db.Get(account, query, id, req.DisplayName, req.Bio, req.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "account", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return account, nil
}

// AddRole grants a single role atomically via array_append. The membership
// guard in the WHERE clause makes concurrent grants safe: each mutation
// targets one role and never overwrites the full array from a stale read.
func (r *AccountRepository) AddRole(id uuid.UUID, role models.Role) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET roles = array_append(roles, $2), updated_at = NOW()
		WHERE id = $1 AND NOT (roles @> ARRAY[$2])
		RETURNING ` + accountColumns

	account := &models.Account{}
	err := r.db.Get(account, query, id, string(role))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Zero rows covers two cases: the role is already held, or the
			// account no longer exists. The re-read resolves which one it
			// was: an idempotent success for the former, NotFound for the
			// latter. RemoveRole has no guard clause, so its zero-rows case
			// maps straight to NotFound.
			return r.GetByID(id)
		}
		return nil, fmt.Errorf("failed to add role: %w", err)
	}
	return account, nil
}

// RemoveRole revokes a single role atomically via array_remove
func (r *AccountRepository) RemoveRole(id uuid.UUID, role models.Role) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET roles = array_remove(roles, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	account := &models.Account{}
	err := r.db.Get(account, query, id, string(role))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "account", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to remove role: %w", err)
	}
	return account, nil
}

// SetTerritory assigns an account's home territory
func (r *AccountRepository) SetTerritory(id uuid.UUID, territoryID uuid.UUID) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET territory_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	account := &models.Account{}
	err := r.db.Get(account, query, id, territoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{EntityType: "account", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to set territory: %w", err)
	}
	return account, nil
}

// ListByTerritory retrieves all accounts homed in a territory
func (r *AccountRepository) ListByTerritory(territoryID uuid.UUID) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE territory_id = $1 ORDER BY created_at`

	var accounts []models.Account
	if err := r.db.Select(&accounts, query, territoryID); err != nil {
		return nil, fmt.Errorf("failed to list accounts by territory: %w", err)
	}
	return accounts, nil
}

// ListAll retrieves every account, newest first
func (r *AccountRepository) ListAll() ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC`

	var accounts []models.Account
	if err := r.db.Select(&accounts, query); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}
