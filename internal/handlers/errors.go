package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/middleware"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
)

// respondError maps domain errors onto HTTP status codes. All domain errors
// arrive as typed values; anything unrecognized is a 500.
func respondError(c *gin.Context, err error) {
	var (
		unauthorized *models.UnauthorizedError
		validation   *models.ValidationError
		availability *models.InsufficientAvailabilityError
		notFound     *models.NotFoundError
	)

	switch {
	case errors.As(err, &unauthorized):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": unauthorized.Reason,
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"field":   validation.Field,
			"message": validation.Error(),
		})
	case errors.As(err, &availability):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient_availability",
			"available": availability.Available,
			"message":   availability.Error(),
		})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": notFound.Error(),
		})
	case errors.Is(err, models.ErrConflictRetryExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "conflict_retry_exhausted",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Something went wrong",
		})
	}
}

// currentAccount loads the authenticated caller's account fresh from the
// database so authorization always sees current roles, not stale token
// claims. Returns false after writing the error response.
func currentAccount(c *gin.Context, accounts *database.AccountRepository) (*models.Account, bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	account, err := accounts.GetByID(userCtx.AccountID)
	if err != nil {
		if models.IsNotFound(err) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Account no longer exists"})
		} else {
			respondError(c, err)
		}
		return nil, false
	}
	return account, true
}
