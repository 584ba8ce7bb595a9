package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/landsalelk/landsalelk-sub006/internal/config"
	"github.com/landsalelk/landsalelk-sub006/internal/models"
	"github.com/landsalelk/landsalelk-sub006/internal/store"
	"github.com/landsalelk/landsalelk-sub006/internal/utils"
)

const (
	listingsCollection    = "listings"
	agentsCollection      = "agents"
	consentLogsCollection = "consent_logs"

	defaultAgentName = "Our Agent"

	relationListingVerification = "listing_verification"
)

var (
	// ErrMissingFields is returned when a required input is absent.
	ErrMissingFields = errors.New("missing required fields")
	// ErrNotPending is returned when the listing exists but is not awaiting
	// owner verification (and is not already active).
	ErrNotPending = errors.New("listing is not in pending verification state")
	// ErrInvalidOTP is returned when the submitted code does not match the
	// stored verification hash.
	ErrInvalidOTP = errors.New("invalid OTP")
	// ErrDispatchFailed is returned when the verification token was
	// persisted but the SMS dispatch could not be triggered. The token
	// remains valid; issuance is not rolled back.
	ErrDispatchFailed = errors.New("failed to send SMS notification")
)

// SendVerificationRequest carries the payload of a token-issuance call.
type SendVerificationRequest struct {
	ListingID  string
	OwnerPhone string
	Title      string
	Price      float64
	AgentID    string
	ServiceFee float64
}

// SendVerificationResult reports a successful issuance.
type SendVerificationResult struct {
	DispatchID string
}

// VerifyResult reports a successful verification. AlreadyVerified is set
// when the listing was active before this call (idempotent success).
type VerifyResult struct {
	AlreadyVerified bool
}

// IConsentService issues owner-verification tokens and validates
// owner-submitted codes.
type IConsentService interface {
	SendVerification(ctx context.Context, req SendVerificationRequest) (*SendVerificationResult, error)
	VerifyOwner(ctx context.Context, listingID, otp, ipAddress string) (*VerifyResult, error)
}

// consentService implements IConsentService.
type consentService struct {
	st         store.Store
	dispatcher Dispatcher
	cfg        *config.Config
}

// NewConsentService creates a new ConsentService.
func NewConsentService(st store.Store, dispatcher Dispatcher, cfg *config.Config) IConsentService {
	return &consentService{st: st, dispatcher: dispatcher, cfg: cfg}
}

// SendVerification generates a single-use verification token for a pending
// listing, persists its hash with a 72h expiry, and triggers the owner SMS.
// The listing mutation is the primary effect: if it fails, nothing is
// dispatched. A dispatch-trigger failure after the mutation leaves the token
// persisted and valid.
func (s *consentService) SendVerification(ctx context.Context, req SendVerificationRequest) (*SendVerificationResult, error) {
	if req.ListingID == "" || req.OwnerPhone == "" {
		return nil, ErrMissingFields
	}

	// Resolve agent display name. Lookup failure must never abort issuance.
	agentName := defaultAgentName
	if req.AgentID != "" {
		var agent models.Agent
		if err := s.st.Get(ctx, agentsCollection, req.AgentID, &agent); err != nil {
			log.Printf("Could not fetch agent %s for listing %s: %v", req.AgentID, req.ListingID, err)
		} else if agent.Name != "" {
			agentName = agent.Name
		}
	}

	token, err := utils.NewVerificationToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(s.cfg.VerificationTTL)

	// Only the hash is persisted; the raw token travels in the SMS link.
	err = s.st.Update(ctx, listingsCollection, req.ListingID, map[string]interface{}{
		"verification_code":       utils.HashSecret(token),
		"status":                  models.StatusPendingOwner,
		"verification_expires_at": expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist verification token for listing %s: %w", req.ListingID, err)
	}

	link := fmt.Sprintf("%s/verify-owner/%s?secret=%s", s.cfg.SiteURL, req.ListingID, token)

	messageBody := fmt.Sprintf("Landsale.lk: %s has listed your property %q for Rs. %s.",
		agentName, req.Title, formatAmount(req.Price))
	if req.ServiceFee > 0 {
		messageBody += fmt.Sprintf(" Review proposal (Fee: LKR %s): %s", formatAmount(req.ServiceFee), link)
	} else {
		messageBody += fmt.Sprintf(" Review & Publish for FREE: %s", link)
	}

	dispatchID, err := s.dispatcher.DispatchSMS(ctx, req.OwnerPhone, messageBody, req.ListingID, relationListingVerification)
	if err != nil {
		// The token stays persisted; only the notification trigger failed.
		log.Printf("Failed to trigger verification SMS for listing %s: %v", req.ListingID, err)
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	return &SendVerificationResult{DispatchID: dispatchID}, nil
}

// VerifyOwner validates an owner-submitted code and transitions the listing
// to active exactly once. Verifying an already-active listing is an
// idempotent success regardless of the submitted code.
func (s *consentService) VerifyOwner(ctx context.Context, listingID, otp, ipAddress string) (*VerifyResult, error) {
	if listingID == "" || otp == "" {
		return nil, ErrMissingFields
	}

	var listing models.Listing
	if err := s.st.Get(ctx, listingsCollection, listingID, &listing); err != nil {
		return nil, err
	}

	if listing.Status == models.StatusActive {
		return &VerifyResult{AlreadyVerified: true}, nil
	}
	if listing.Status != models.StatusPendingOwner {
		return nil, ErrNotPending
	}

	if listing.VerificationCode == nil ||
		!utils.SecretsEqual(utils.HashSecret(otp), *listing.VerificationCode) {
		return nil, ErrInvalidOTP
	}

	// The status guard makes concurrent verifications outcome-safe: only
	// one update can still match pending_owner.
	err := s.st.UpdateMatching(ctx, listingsCollection, listingID,
		[]store.Filter{store.Eq("status", models.StatusPendingOwner)},
		map[string]interface{}{
			"status":            models.StatusActive,
			"verification_code": nil,
			"is_verified":       true,
		})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the race to another verification; the listing is active.
			return &VerifyResult{AlreadyVerified: true}, nil
		}
		return nil, fmt.Errorf("failed to activate listing %s: %w", listingID, err)
	}

	// The transition above is authoritative; the audit entry is advisory.
	if ipAddress == "" {
		ipAddress = "unknown"
	}
	logEntry := models.ConsentLog{
		ListingID:  listingID,
		OwnerPhone: listing.OwnerPhone,
		VerifiedAt: time.Now().UTC(),
		Method:     models.ConsentMethodOTPInput,
		IPAddress:  ipAddress,
	}
	if err := s.st.Create(ctx, consentLogsCollection, utils.NewUniqueID(), logEntry); err != nil {
		log.Printf("Failed to create consent log for listing %s: %v", listingID, err)
	}

	return &VerifyResult{}, nil
}

// formatAmount renders a monetary value the way it appears in listings
// (no trailing zeros).
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
