package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/config"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
	"github.com/wundergunder/toadtourist-sub000/internal/services"
	"github.com/wundergunder/toadtourist-sub000/internal/utils"
)

// AccountHandler handles role management and account administration
type AccountHandler struct {
	accounts    *services.AccountService
	accountRepo *database.AccountRepository
	audit       *services.AuditService
	config      *config.Config
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(
	accounts *services.AccountService,
	accountRepo *database.AccountRepository,
	audit *services.AuditService,
	cfg *config.Config,
) *AccountHandler {
	return &AccountHandler{
		accounts:    accounts,
		accountRepo: accountRepo,
		audit:       audit,
		config:      cfg,
	}
}

// ListAccounts handles GET /api/v1/accounts. Admins see every account;
// territory managers see accounts homed in their territory.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	accounts, err := h.accounts.ListAccounts(caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid account id",
		})
		return
	}

	account, err := h.accounts.GetAccount(caller, accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// GrantRole handles POST /api/v1/accounts/:id/roles
func (h *AccountHandler) GrantRole(c *gin.Context) {
	h.changeRole(c, true)
}

// RevokeRole handles DELETE /api/v1/accounts/:id/roles
func (h *AccountHandler) RevokeRole(c *gin.Context) {
	h.changeRole(c, false)
}

func (h *AccountHandler) changeRole(c *gin.Context, grant bool) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid account id",
		})
		return
	}

	var req models.RoleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err)
		return
	}

	var account *models.Account
	if grant {
		account, err = h.accounts.GrantRole(caller, accountID, models.Role(req.Role))
	} else {
		account, err = h.accounts.RevokeRole(caller, accountID, models.Role(req.Role))
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if h.config.Security.EnableAuditLog {
		action := "role_granted"
		if !grant {
			action = "role_revoked"
		}
		h.audit.LogRoleChange(caller.ID, accountID, action, req.Role, utils.GetRealIP(c), utils.GetUserAgent(c))
	}

	c.JSON(http.StatusOK, account)
}

// SetTerritoryRequest represents the request to home an account in a territory
type SetTerritoryRequest struct {
	TerritoryID string `json:"territory_id" binding:"required"`
}

// SetTerritory handles PUT /api/v1/accounts/:id/territory
func (h *AccountHandler) SetTerritory(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid account id",
		})
		return
	}

	var req SetTerritoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	territoryID, err := uuid.Parse(req.TerritoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid territory id",
		})
		return
	}

	account, err := h.accounts.SetTerritory(caller, accountID, territoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}
