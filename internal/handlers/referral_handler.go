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

// ReferralHandler handles referral link and commission endpoints
type ReferralHandler struct {
	referrals   *services.ReferralService
	accountRepo *database.AccountRepository
	audit       *services.AuditService
	config      *config.Config
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(
	referrals *services.ReferralService,
	accountRepo *database.AccountRepository,
	audit *services.AuditService,
	cfg *config.Config,
) *ReferralHandler {
	return &ReferralHandler{
		referrals:   referrals,
		accountRepo: accountRepo,
		audit:       audit,
		config:      cfg,
	}
}

// CreateLink handles POST /api/v1/referral-links
func (h *ReferralHandler) CreateLink(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	var req models.CreateReferralLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	link, err := h.referrals.CreateLink(caller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, link)
}

// ListLinks handles GET /api/v1/referral-links
func (h *ReferralHandler) ListLinks(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	links, err := h.referrals.ListLinks(caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"links": links,
		"count": len(links),
	})
}

// ToggleLink handles POST /api/v1/referral-links/:id/toggle
func (h *ReferralHandler) ToggleLink(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	linkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid link id",
		})
		return
	}

	link, err := h.referrals.ToggleActive(caller, linkID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// DeleteLink handles DELETE /api/v1/referral-links/:id
func (h *ReferralHandler) DeleteLink(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	linkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid link id",
		})
		return
	}

	if err := h.referrals.DeleteLink(caller, linkID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Referral link deleted successfully"})
}

// ListReferrals handles GET /api/v1/referral-links/:id/referrals
func (h *ReferralHandler) ListReferrals(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	linkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid link id",
		})
		return
	}

	referrals, err := h.referrals.ListReferrals(caller, linkID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"referrals": referrals,
		"count":     len(referrals),
	})
}

// ListCommissions handles GET /api/v1/commissions
func (h *ReferralHandler) ListCommissions(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	commissions, err := h.referrals.ListCommissions(caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commissions": commissions,
		"count":       len(commissions),
	})
}

// CommissionSummary handles GET /api/v1/commissions/summary
func (h *ReferralHandler) CommissionSummary(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	summary, err := h.referrals.CommissionSummary(caller)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// MarkCommissionPaid handles POST /api/v1/commissions/:id/paid
func (h *ReferralHandler) MarkCommissionPaid(c *gin.Context) {
	caller, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	commissionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid commission id",
		})
		return
	}

	commission, err := h.referrals.MarkCommissionPaid(caller, commissionID)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.config.Security.EnableAuditLog {
		h.audit.LogCommissionPaid(caller.ID, commissionID, commission.Amount, utils.GetRealIP(c), utils.GetUserAgent(c))
	}

	c.JSON(http.StatusOK, commission)
}

// AttachReferral handles POST /api/v1/referrals/attach. Anonymous visitors
// attach a shared code to their browsing session before they ever register;
// unknown or inactive codes are silently ignored.
func (h *ReferralHandler) AttachReferral(c *gin.Context) {
	sessionID := c.GetHeader(middleware.SessionIDHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Missing " + middleware.SessionIDHeader + " header",
		})
		return
	}

	var req models.AttachReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	attached, err := h.referrals.AttachToSession(c.Request.Context(), sessionID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attached": attached})
}
