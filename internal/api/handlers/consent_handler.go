package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/landsalelk/landsalelk-sub006/internal/services"
	"github.com/landsalelk/landsalelk-sub006/internal/store"
)

// ConsentHandler handles the owner-consent verification endpoints.
type ConsentHandler struct {
	consentService services.IConsentService
}

// NewConsentHandler creates a new ConsentHandler.
func NewConsentHandler(consentService services.IConsentService) *ConsentHandler {
	return &ConsentHandler{consentService: consentService}
}

// SendOTPRequest is the token-issuance payload. The listing ID arrives
// under "$id", matching the listing-submission flow's document shape.
type SendOTPRequest struct {
	ID         string  `json:"$id"`
	OwnerPhone string  `json:"owner_phone"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	AgentID    string  `json:"agent_id"`
	ServiceFee float64 `json:"service_fee"`
}

// SendOTP handles POST /v1/consent/send-otp.
func (h *ConsentHandler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
		return
	}

	result, err := h.consentService.SendVerification(c.Request.Context(), services.SendVerificationRequest{
		ListingID:  req.ID,
		OwnerPhone: req.OwnerPhone,
		Title:      req.Title,
		Price:      req.Price,
		AgentID:    req.AgentID,
		ServiceFee: req.ServiceFee,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Listing not found"})
		case errors.Is(err, services.ErrDispatchFailed):
			// Token already persisted; only the notification trigger failed.
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to send SMS notification"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Verification link sent",
		"executionId": result.DispatchID,
	})
}

// VerifyOTPRequest is the owner-submitted verification payload.
type VerifyOTPRequest struct {
	ListingID string `json:"listing_id"`
	OTP       string `json:"otp"`
}

// VerifyOTP handles POST /v1/consent/verify.
func (h *ConsentHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ListingID == "" || req.OTP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing listing_id or otp"})
		return
	}

	result, err := h.consentService.VerifyOwner(c.Request.Context(), req.ListingID, req.OTP, clientIP(c))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Listing not found"})
		case errors.Is(err, services.ErrNotPending):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Listing is not in pending verification state"})
		case errors.Is(err, services.ErrInvalidOTP):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid OTP"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		}
		return
	}

	if result.AlreadyVerified {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Already verified"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Verification successful"})
}

// clientIP extracts the best-effort caller address from forwarded headers.
func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		// First hop in a comma-separated chain
		if idx := strings.Index(forwarded, ","); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return forwarded
	}
	if realIP := c.GetHeader("X-Real-Ip"); realIP != "" {
		return realIP
	}
	return "unknown"
}
