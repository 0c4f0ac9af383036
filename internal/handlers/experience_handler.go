package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
	"github.com/wundergunder/toadtourist-sub000/internal/services"
)

// ExperienceHandler handles experience catalog and availability endpoints
type ExperienceHandler struct {
	catalog     *services.CatalogService
	bookings    *services.BookingService
	reviews     *services.ReviewService
	accountRepo *database.AccountRepository
}

// NewExperienceHandler creates a new experience handler
func NewExperienceHandler(
	catalog *services.CatalogService,
	bookings *services.BookingService,
	reviews *services.ReviewService,
	accountRepo *database.AccountRepository,
) *ExperienceHandler {
	return &ExperienceHandler{
		catalog:     catalog,
		bookings:    bookings,
		reviews:     reviews,
		accountRepo: accountRepo,
	}
}

// ListExperiences handles GET /api/v1/experiences. An optional territory_id
// query parameter narrows the listing.
func (h *ExperienceHandler) ListExperiences(c *gin.Context) {
	var territoryID *uuid.UUID
	if raw := c.Query("territory_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "Invalid territory_id",
			})
			return
		}
		territoryID = &id
	}

	experiences, err := h.catalog.ListExperiences(territoryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"experiences": experiences,
		"count":       len(experiences),
	})
}

// GetExperience handles GET /api/v1/experiences/:id
func (h *ExperienceHandler) GetExperience(c *gin.Context) {
	experienceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid experience id",
		})
		return
	}

	experience, err := h.catalog.GetExperience(experienceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, experience)
}

// CreateExperience handles POST /api/v1/experiences
func (h *ExperienceHandler) CreateExperience(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	var req models.CreateExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	experience, err := h.catalog.CreateExperience(caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, experience)
}

// UpdateExperience handles PUT /api/v1/experiences/:id
func (h *ExperienceHandler) UpdateExperience(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	experienceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid experience id",
		})
		return
	}

	var req models.UpdateExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	experience, err := h.catalog.UpdateExperience(caller, experienceID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, experience)
}

// DeleteExperience handles DELETE /api/v1/experiences/:id
func (h *ExperienceHandler) DeleteExperience(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	experienceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid experience id",
		})
		return
	}

	if err := h.catalog.DeleteExperience(caller, experienceID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Experience deleted successfully"})
}

// ListReviews handles GET /api/v1/experiences/:id/reviews
func (h *ExperienceHandler) ListReviews(c *gin.Context) {
	experienceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid experience id",
		})
		return
	}

	reviews, err := h.reviews.ListByExperience(experienceID)
	if err != nil {
		respondError(c, err)
		return
	}

	average, err := h.reviews.AverageRating(experienceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews":        reviews,
		"count":          len(reviews),
		"average_rating": average,
	})
}

// ListAvailability handles GET /api/v1/experiences/:id/availability
func (h *ExperienceHandler) ListAvailability(c *gin.Context) {
	experienceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid experience id",
		})
		return
	}

	overrides, err := h.bookings.ListAvailabilityOverrides(experienceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"overrides": overrides,
		"count":     len(overrides),
	})
}

// SetAvailability handles PUT /api/v1/experiences/:id/availability
func (h *ExperienceHandler) SetAvailability(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	experienceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid experience id",
		})
		return
	}

	var req models.SetAvailabilityOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	override, err := h.bookings.SetAvailabilityOverride(caller, experienceID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, override)
}
