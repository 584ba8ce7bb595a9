package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/landsalelk/landsalelk-sub006/internal/config"
	"github.com/landsalelk/landsalelk-sub006/internal/models"
	"github.com/landsalelk/landsalelk-sub006/internal/store"
)

const (
	subscriptionsCollection = "agent_subscriptions"

	relationExpiryReminder = "expiry_reminder"
)

// SweepResult reports one reconciler run. Found counts every stale record
// the bounded queries returned; Processed and Errors partition the records
// actually attempted; Notified counts best-effort notifications triggered.
type SweepResult struct {
	CheckedAt time.Time
	Found     int
	Processed int
	Errors    int
	Notified  int
}

// IExpiryService runs the periodic sweeps that force stale records into
// their terminal states.
type IExpiryService interface {
	ExpireListings(ctx context.Context) (*SweepResult, error)
	ExpireSubscriptions(ctx context.Context) (*SweepResult, error)
	RemindExpiring(ctx context.Context) (*SweepResult, error)
}

// expiryService implements IExpiryService.
type expiryService struct {
	st         store.Store
	dispatcher Dispatcher
	cfg        *config.Config
}

// NewExpiryService creates a new ExpiryService.
func NewExpiryService(st store.Store, dispatcher Dispatcher, cfg *config.Config) IExpiryService {
	return &expiryService{st: st, dispatcher: dispatcher, cfg: cfg}
}

// errSkipRecord marks a record the transition chose to ignore; it counts
// neither as processed nor as an error.
var errSkipRecord = errors.New("record skipped")

// sweepExpired is the generic expiring-entity sweep: one bounded query, one
// independent transition per record. A transition failure is counted and
// never aborts the batch.
func sweepExpired[T any](ctx context.Context, st store.Store, collection string, q store.Query, transition func(ctx context.Context, record T) error) (found, processed, errs int, err error) {
	var records []T
	if err := st.List(ctx, collection, q, &records); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to query %s for expiry: %w", collection, err)
	}

	for _, record := range records {
		if err := transition(ctx, record); err != nil {
			if errors.Is(err, errSkipRecord) {
				continue
			}
			log.Printf("Expiry transition failed in %s: %v", collection, err)
			errs++
			continue
		}
		processed++
	}
	return len(records), processed, errs, nil
}

// ExpireListings retires listings whose lifetime or verification window has
// passed: active -> expired, pending_owner -> expired_unverified. Boost and
// premium flags are cleared unconditionally on either transition.
func (s *expiryService) ExpireListings(ctx context.Context) (*SweepResult, error) {
	now := time.Now().UTC()
	result := &SweepResult{CheckedAt: now}

	expireOne := func(ctx context.Context, listing models.Listing) error {
		targetStatus := models.StatusExpired
		if listing.Status == models.StatusPendingOwner {
			targetStatus = models.StatusExpiredUnverified
		}
		return s.st.Update(ctx, listingsCollection, listing.ID, map[string]interface{}{
			"status":     targetStatus,
			"is_boosted": false,
			"is_premium": false,
		})
	}

	limit := int64(s.cfg.ListingExpiryBatch)

	found, processed, errs, err := sweepExpired(ctx, s.st, listingsCollection, store.Query{
		Filters: []store.Filter{
			store.Eq("status", models.StatusActive),
			store.Lt("expires_at", now),
		},
		Limit: limit,
	}, expireOne)
	if err != nil {
		return nil, err
	}
	result.Found += found
	result.Processed += processed
	result.Errors += errs

	found, processed, errs, err = sweepExpired(ctx, s.st, listingsCollection, store.Query{
		Filters: []store.Filter{
			store.Eq("status", models.StatusPendingOwner),
			store.Lt("verification_expires_at", now),
		},
		Limit: limit,
	}, expireOne)
	if err != nil {
		return nil, err
	}
	result.Found += found
	result.Processed += processed
	result.Errors += errs

	log.Printf("Listing expiry sweep: found=%d processed=%d errors=%d", result.Found, result.Processed, result.Errors)
	return result, nil
}

// ExpireSubscriptions deactivates lapsed agent subscriptions and their
// agents, then triggers a best-effort expiry-notice email per agent.
func (s *expiryService) ExpireSubscriptions(ctx context.Context) (*SweepResult, error) {
	now := time.Now().UTC()
	result := &SweepResult{CheckedAt: now}

	expireOne := func(ctx context.Context, sub models.Subscription) error {
		if err := s.st.Update(ctx, subscriptionsCollection, sub.ID, map[string]interface{}{
			"is_active": false,
		}); err != nil {
			return err
		}
		if err := s.st.Update(ctx, agentsCollection, sub.AgentID, map[string]interface{}{
			"status": "inactive",
		}); err != nil {
			return err
		}

		// Notification is secondary: failure is logged and never blocks the
		// deactivation just committed.
		if s.notifyAgentExpired(ctx, sub) {
			result.Notified++
		}
		return nil
	}

	found, processed, errs, err := sweepExpired(ctx, s.st, subscriptionsCollection, store.Query{
		Filters: []store.Filter{
			store.Eq("is_active", true),
			store.Lt("expires_at", now),
		},
		Limit: int64(s.cfg.SubscriptionExpiryBatch),
	}, expireOne)
	if err != nil {
		return nil, err
	}
	result.Found = found
	result.Processed = processed
	result.Errors = errs

	log.Printf("Subscription expiry sweep: found=%d deactivated=%d notified=%d errors=%d",
		result.Found, result.Processed, result.Notified, result.Errors)
	return result, nil
}

func (s *expiryService) notifyAgentExpired(ctx context.Context, sub models.Subscription) bool {
	var agent models.Agent
	if err := s.st.Get(ctx, agentsCollection, sub.AgentID, &agent); err != nil {
		log.Printf("Failed to fetch agent %s for expiry notice: %v", sub.AgentID, err)
		return false
	}
	if agent.Email == "" {
		return false
	}

	agentName := agent.Name
	if agentName == "" {
		agentName = "Agent"
	}
	packageName := sub.Package
	if packageName == "" {
		packageName = "Standard"
	}

	subject := "Subscription Expired - LandSale.lk"
	body := fmt.Sprintf(`Dear %s,

Your LandSale.lk subscription has expired.

Package: %s
Expired On: %s

Your agent profile is now inactive. To continue receiving leads and being visible to buyers, please renew your subscription.

Renew now: %s/agent/dashboard

Best regards,
LandSale.lk Team`, agentName, packageName, sub.ExpiresAt.Format("02/01/2006"), s.cfg.SiteURL)

	if _, err := s.dispatcher.DispatchEmail(ctx, agent.Email, subject, body); err != nil {
		log.Printf("Failed to notify agent %s of subscription expiry: %v", sub.AgentID, err)
		return false
	}
	return true
}

// RemindExpiring sends a renewal-reminder SMS for active listings whose
// expiry falls inside the 24h window that starts ReminderLeadDays from now.
func (s *expiryService) RemindExpiring(ctx context.Context) (*SweepResult, error) {
	now := time.Now().UTC()
	windowStart := now.AddDate(0, 0, s.cfg.ReminderLeadDays)
	windowEnd := windowStart.Add(24 * time.Hour)
	result := &SweepResult{CheckedAt: now}

	remindOne := func(ctx context.Context, listing models.Listing) error {
		if listing.OwnerPhone == "" || listing.ExpiresAt == nil {
			log.Printf("Listing %s has no owner phone. Skipping reminder.", listing.ID)
			return errSkipRecord
		}
		message := fmt.Sprintf("Landsale.lk Alert: Your ad %q expires on %s. Renew now to keep it active!",
			listing.Title, listing.ExpiresAt.Format("02/01/2006"))
		_, err := s.dispatcher.DispatchSMS(ctx, listing.OwnerPhone, message, listing.ID, relationExpiryReminder)
		return err
	}

	found, processed, errs, err := sweepExpired(ctx, s.st, listingsCollection, store.Query{
		Filters: []store.Filter{
			store.Eq("status", models.StatusActive),
			store.Gt("expires_at", windowStart),
			store.Lt("expires_at", windowEnd),
		},
		Limit: int64(s.cfg.ReminderBatch),
	}, remindOne)
	if err != nil {
		return nil, err
	}
	result.Found = found
	result.Processed = processed
	result.Errors = errs

	log.Printf("Expiry reminder sweep: found=%d sent=%d errors=%d", result.Found, result.Processed, result.Errors)
	return result, nil
}
