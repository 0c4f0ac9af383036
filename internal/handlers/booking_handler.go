package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wundergunder/toadtourist-sub000/internal/config"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/middleware"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
	"github.com/wundergunder/toadtourist-sub000/internal/services"
	"github.com/wundergunder/toadtourist-sub000/internal/utils"
)

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	bookings    *services.BookingService
	reviews     *services.ReviewService
	accountRepo *database.AccountRepository
	audit       *services.AuditService
	config      *config.Config
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(
	bookings *services.BookingService,
	reviews *services.ReviewService,
	accountRepo *database.AccountRepository,
	audit *services.AuditService,
	cfg *config.Config,
) *BookingHandler {
	return &BookingHandler{
		bookings:    bookings,
		reviews:     reviews,
		accountRepo: accountRepo,
		audit:       audit,
		config:      cfg,
	}
}

// CreateBooking handles POST /api/v1/bookings. The X-Session-ID header, when
// present, links the booking to any referral code attached to the session.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	sessionID := c.GetHeader(middleware.SessionIDHeader)

	booking, err := h.bookings.CreateBooking(c.Request.Context(), caller, &req, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ListMyBookings handles GET /api/v1/bookings
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	bookings, err := h.bookings.ListForTourist(caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// ListGuideBookings handles GET /api/v1/guides/:id/bookings
func (h *BookingHandler) ListGuideBookings(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	guideID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid guide id",
		})
		return
	}

	bookings, err := h.bookings.ListForGuide(caller, guideID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid booking id",
		})
		return
	}

	booking, err := h.bookings.GetBooking(caller, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// MarkPaymentCompleted handles POST /api/v1/bookings/:id/payment
func (h *BookingHandler) MarkPaymentCompleted(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid booking id",
		})
		return
	}

	booking, err := h.bookings.MarkPaymentCompleted(caller, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.config.Security.EnableAuditLog {
		h.audit.LogPaymentCompleted(caller.ID, bookingID, utils.GetRealIP(c), utils.GetUserAgent(c))
	}

	c.JSON(http.StatusOK, booking)
}

// CreateReview handles POST /api/v1/reviews
func (h *BookingHandler) CreateReview(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	review, err := h.reviews.Create(caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}
