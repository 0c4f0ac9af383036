package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/wundergunder/toadtourist-sub000/internal/authz"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

// AccountService handles registration, profiles and role management
type AccountService struct {
	accounts    *database.AccountRepository
	territories *database.TerritoryRepository
	bcryptCost  int
	logger      *logrus.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accounts *database.AccountRepository,
	territories *database.TerritoryRepository,
	bcryptCost int,
	logger *logrus.Logger,
) *AccountService {
	return &AccountService{
		accounts:    accounts,
		territories: territories,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// Register creates an account with the permanent tourist role
func (s *AccountService) Register(req *models.RegisterRequest) (*models.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Create(strings.ToLower(req.Email), string(hash), req.DisplayName)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, &models.ValidationError{Field: "email", Constraint: "already registered"}
		}
		return nil, err
	}
	return account, nil
}

// Authenticate verifies an email/password pair and returns the account
func (s *AccountService) Authenticate(email, password string) (*models.Account, error) {
	account, err := s.accounts.GetByEmail(strings.ToLower(email))
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, models.ErrInvalidCredentials
	}
	return account, nil
}

// GetAccount retrieves an account: self, admins, or a territory manager of
// the account's home territory
func (s *AccountService) GetAccount(caller *models.Account, id uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.GetByID(id)
	if err != nil {
		return nil, err
	}
	if caller.ID == id || caller.HasRole(models.RoleAdmin) {
		return account, nil
	}
	if caller.HasRole(models.RoleTerritoryManager) && caller.TerritoryID.Valid &&
		account.TerritoryID.Valid && account.TerritoryID.UUID == caller.TerritoryID.UUID {
		return account, nil
	}
	return nil, &models.UnauthorizedError{Reason: "insufficient role"}
}

// UpdateProfile updates non-privileged profile fields (name, bio, avatar)
func (s *AccountService) UpdateProfile(caller *models.Account, accountID uuid.UUID, req *models.UpdateProfileRequest) (*models.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if d := authz.Authorize(caller, authz.ActionUpdateProfile, authz.Target{AccountID: accountID}); !d.Allowed {
		return nil, d.Err()
	}
	return s.accounts.UpdateProfile(accountID, req)
}

// GrantRole grants a single role to an account. Authorization is checked
// against the target's home territory before anything is persisted; a deny
// is never downgraded to a best-effort attempt.
func (s *AccountService) GrantRole(caller *models.Account, accountID uuid.UUID, role models.Role) (*models.Account, error) {
	target, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}

	decision := authz.Authorize(caller, authz.ActionGrantRole, authz.Target{
		AccountID:   accountID,
		TerritoryID: target.TerritoryID,
		Role:        role,
	})
	if !decision.Allowed {
		return nil, decision.Err()
	}

	return s.accounts.AddRole(accountID, role)
}

// RevokeRole revokes a single role from an account. The tourist role is
// structural and can never be revoked, by anyone.
func (s *AccountService) RevokeRole(caller *models.Account, accountID uuid.UUID, role models.Role) (*models.Account, error) {
	target, err := s.accounts.GetByID(accountID)
	if err != nil {
		return nil, err
	}

	decision := authz.Authorize(caller, authz.ActionRevokeRole, authz.Target{
		AccountID:   accountID,
		TerritoryID: target.TerritoryID,
		Role:        role,
	})
	if !decision.Allowed {
		return nil, decision.Err()
	}

	return s.accounts.RemoveRole(accountID, role)
}

// SetTerritory assigns an account's home territory; admin only
func (s *AccountService) SetTerritory(caller *models.Account, accountID, territoryID uuid.UUID) (*models.Account, error) {
	if d := authz.Authorize(caller, authz.ActionManageTerritory, authz.Target{AccountID: accountID}); !d.Allowed {
		return nil, d.Err()
	}
	if _, err := s.territories.GetByID(territoryID); err != nil {
		return nil, err
	}
	return s.accounts.SetTerritory(accountID, territoryID)
}

// ListAccounts lists accounts: admins see everyone, territory managers see
// their own territory
func (s *AccountService) ListAccounts(caller *models.Account) ([]models.Account, error) {
	if caller.HasRole(models.RoleAdmin) {
		return s.accounts.ListAll()
	}
	if caller.HasRole(models.RoleTerritoryManager) && caller.TerritoryID.Valid {
		return s.accounts.ListByTerritory(caller.TerritoryID.UUID)
	}
	return nil, &models.UnauthorizedError{Reason: "insufficient role"}
}
