package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
	"github.com/wundergunder/toadtourist-sub000/internal/services"
)

// TerritoryHandler handles territory catalog endpoints
type TerritoryHandler struct {
	catalog     *services.CatalogService
	accountRepo *database.AccountRepository
}

// NewTerritoryHandler creates a new territory handler
func NewTerritoryHandler(catalog *services.CatalogService, accountRepo *database.AccountRepository) *TerritoryHandler {
	return &TerritoryHandler{catalog: catalog, accountRepo: accountRepo}
}

// ListTerritories handles GET /api/v1/territories
func (h *TerritoryHandler) ListTerritories(c *gin.Context) {
	territories, err := h.catalog.ListTerritories()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"territories": territories,
		"count":       len(territories),
	})
}

// GetTerritory handles GET /api/v1/territories/:id
func (h *TerritoryHandler) GetTerritory(c *gin.Context) {
	territoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid territory id",
		})
		return
	}

	territory, err := h.catalog.GetTerritory(territoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, territory)
}

// ListTerritoryExperiences handles GET /api/v1/territories/:id/experiences
func (h *TerritoryHandler) ListTerritoryExperiences(c *gin.Context) {
	territoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid territory id",
		})
		return
	}

	experiences, err := h.catalog.ListExperiences(&territoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"experiences": experiences,
		"count":       len(experiences),
	})
}

// CreateTerritory handles POST /api/v1/territories
func (h *TerritoryHandler) CreateTerritory(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	var req models.CreateTerritoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	territory, err := h.catalog.CreateTerritory(caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, territory)
}

// UpdateTerritory handles PUT /api/v1/territories/:id
func (h *TerritoryHandler) UpdateTerritory(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	territoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid territory id",
		})
		return
	}

	var req models.UpdateTerritoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	territory, err := h.catalog.UpdateTerritory(caller, territoryID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, territory)
}
