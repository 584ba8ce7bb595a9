package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/landsalelk/landsalelk-sub006/internal/models"
	"github.com/landsalelk/landsalelk-sub006/internal/store"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestExpireListings(t *testing.T) {
	st := store.NewMemStore()
	svc := NewExpiryService(st, new(MockDispatcher), testConfig())
	ctx := context.Background()
	now := time.Now().UTC()

	seedListing(t, st, models.Listing{
		ID: "L1", Status: models.StatusActive,
		ExpiresAt: timePtr(now.Add(-time.Second)),
		IsBoosted: true, IsPremium: true,
	})
	seedListing(t, st, models.Listing{
		ID: "L2", Status: models.StatusActive,
		ExpiresAt: timePtr(now.Add(time.Hour)),
	})
	seedListing(t, st, models.Listing{
		ID: "L3", Status: models.StatusPendingOwner,
		VerificationExpiresAt: timePtr(now.Add(-time.Minute)),
	})
	seedListing(t, st, models.Listing{
		ID: "L4", Status: models.StatusPendingOwner,
		VerificationExpiresAt: timePtr(now.Add(time.Hour)),
	})

	result, err := svc.ExpireListings(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Errors)

	var l1, l2, l3, l4 models.Listing
	assert.NoError(t, st.Get(ctx, listingsCollection, "L1", &l1))
	assert.NoError(t, st.Get(ctx, listingsCollection, "L2", &l2))
	assert.NoError(t, st.Get(ctx, listingsCollection, "L3", &l3))
	assert.NoError(t, st.Get(ctx, listingsCollection, "L4", &l4))

	assert.Equal(t, models.StatusExpired, l1.Status)
	assert.False(t, l1.IsBoosted, "boost flag must be cleared on expiry")
	assert.False(t, l1.IsPremium, "premium flag must be cleared on expiry")

	assert.Equal(t, models.StatusActive, l2.Status, "future listing untouched")
	assert.Equal(t, models.StatusExpiredUnverified, l3.Status)
	assert.Equal(t, models.StatusPendingOwner, l4.Status, "window still open")
}

func TestExpireListings_Idempotent(t *testing.T) {
	st := store.NewMemStore()
	svc := NewExpiryService(st, new(MockDispatcher), testConfig())
	ctx := context.Background()

	seedListing(t, st, models.Listing{
		ID: "L1", Status: models.StatusActive,
		ExpiresAt: timePtr(time.Now().UTC().Add(-time.Hour)),
	})

	first, err := svc.ExpireListings(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	// A second run finds nothing: expired listings no longer match
	second, err := svc.ExpireListings(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, second.Found)
	assert.Equal(t, 0, second.Processed)
}

func TestExpireListings_PartialFailure(t *testing.T) {
	mem := store.NewMemStore()
	st := &failingStore{Store: mem, failID: "L2"}
	svc := NewExpiryService(st, new(MockDispatcher), testConfig())
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)

	seedListing(t, mem, models.Listing{ID: "L1", Status: models.StatusActive, ExpiresAt: timePtr(past)})
	seedListing(t, mem, models.Listing{ID: "L2", Status: models.StatusActive, ExpiresAt: timePtr(past)})
	seedListing(t, mem, models.Listing{ID: "L3", Status: models.StatusActive, ExpiresAt: timePtr(past)})

	result, err := svc.ExpireListings(ctx)
	assert.NoError(t, err, "one bad record must not abort the sweep")
	assert.Equal(t, 3, result.Found)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Errors)

	var l1, l3 models.Listing
	assert.NoError(t, mem.Get(ctx, listingsCollection, "L1", &l1))
	assert.NoError(t, mem.Get(ctx, listingsCollection, "L3", &l3))
	assert.Equal(t, models.StatusExpired, l1.Status)
	assert.Equal(t, models.StatusExpired, l3.Status)
}

func TestExpireListings_BatchLimit(t *testing.T) {
	st := store.NewMemStore()
	cfg := testConfig()
	cfg.ListingExpiryBatch = 2
	svc := NewExpiryService(st, new(MockDispatcher), cfg)
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Hour)

	for _, id := range []string{"L1", "L2", "L3"} {
		seedListing(t, st, models.Listing{ID: id, Status: models.StatusActive, ExpiresAt: timePtr(past)})
	}

	result, err := svc.ExpireListings(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Found, "batch bound caps one run")
	assert.Equal(t, 2, result.Processed)

	// The remainder is picked up by the next run
	result, err = svc.ExpireListings(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
}

func TestExpireSubscriptions(t *testing.T) {
	st := store.NewMemStore()
	dispatcher := new(MockDispatcher)
	svc := NewExpiryService(st, dispatcher, testConfig())
	ctx := context.Background()
	now := time.Now().UTC()

	assert.NoError(t, st.Create(ctx, agentsCollection, "A1", models.Agent{Name: "Kasun Perera", Email: "kasun@example.com", Status: "active"}))
	assert.NoError(t, st.Create(ctx, agentsCollection, "A2", models.Agent{Name: "Nimal Silva", Status: "active"}))

	assert.NoError(t, st.Create(ctx, subscriptionsCollection, "S1", models.Subscription{
		AgentID: "A1", Package: "Premium", ExpiresAt: now.Add(-time.Hour), IsActive: true,
	}))
	assert.NoError(t, st.Create(ctx, subscriptionsCollection, "S2", models.Subscription{
		AgentID: "A2", ExpiresAt: now.Add(-time.Minute), IsActive: true,
	}))
	assert.NoError(t, st.Create(ctx, subscriptionsCollection, "S3", models.Subscription{
		AgentID: "A1", ExpiresAt: now.Add(time.Hour), IsActive: true,
	}))

	var sentBody string
	dispatcher.On("DispatchEmail", mock.Anything, "kasun@example.com", "Subscription Expired - LandSale.lk", mock.MatchedBy(func(body string) bool {
		sentBody = body
		return true
	})).Return("email1", nil)

	result, err := svc.ExpireSubscriptions(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Notified, "agent without email gets no notice")
	assert.Equal(t, 0, result.Errors)

	assert.Contains(t, sentBody, "Dear Kasun Perera")
	assert.Contains(t, sentBody, "Package: Premium")

	var s1, s3 models.Subscription
	assert.NoError(t, st.Get(ctx, subscriptionsCollection, "S1", &s1))
	assert.NoError(t, st.Get(ctx, subscriptionsCollection, "S3", &s3))
	assert.False(t, s1.IsActive)
	assert.True(t, s3.IsActive, "unexpired subscription untouched")

	var a1, a2 models.Agent
	assert.NoError(t, st.Get(ctx, agentsCollection, "A1", &a1))
	assert.NoError(t, st.Get(ctx, agentsCollection, "A2", &a2))
	assert.Equal(t, "inactive", a1.Status)
	assert.Equal(t, "inactive", a2.Status)

	dispatcher.AssertExpectations(t)
}

func TestExpireSubscriptions_EmailFailureStillDeactivates(t *testing.T) {
	st := store.NewMemStore()
	dispatcher := new(MockDispatcher)
	svc := NewExpiryService(st, dispatcher, testConfig())
	ctx := context.Background()

	assert.NoError(t, st.Create(ctx, agentsCollection, "A1", models.Agent{Name: "Kasun", Email: "kasun@example.com", Status: "active"}))
	assert.NoError(t, st.Create(ctx, subscriptionsCollection, "S1", models.Subscription{
		AgentID: "A1", ExpiresAt: time.Now().UTC().Add(-time.Hour), IsActive: true,
	}))

	dispatcher.On("DispatchEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", context.DeadlineExceeded)

	result, err := svc.ExpireSubscriptions(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Notified)
	assert.Equal(t, 0, result.Errors, "notification failure is not a sweep error")

	var s1 models.Subscription
	assert.NoError(t, st.Get(ctx, subscriptionsCollection, "S1", &s1))
	assert.False(t, s1.IsActive)
}

func TestRemindExpiring(t *testing.T) {
	st := store.NewMemStore()
	dispatcher := new(MockDispatcher)
	svc := NewExpiryService(st, dispatcher, testConfig())
	ctx := context.Background()
	now := time.Now().UTC()

	inWindow := now.AddDate(0, 0, 3).Add(12 * time.Hour)
	seedListing(t, st, models.Listing{
		ID: "L1", Title: "Beachfront Land", Status: models.StatusActive,
		OwnerPhone: "0771234567", ExpiresAt: timePtr(inWindow),
	})
	// Outside the window in both directions
	seedListing(t, st, models.Listing{
		ID: "L2", Title: "Hill View", Status: models.StatusActive,
		OwnerPhone: "0712223334", ExpiresAt: timePtr(now.AddDate(0, 0, 10)),
	})
	seedListing(t, st, models.Listing{
		ID: "L3", Title: "Corner Plot", Status: models.StatusActive,
		OwnerPhone: "0719998887", ExpiresAt: timePtr(now.AddDate(0, 0, 1)),
	})
	// In window but unreachable
	seedListing(t, st, models.Listing{
		ID: "L4", Title: "Paddy Field", Status: models.StatusActive,
		ExpiresAt: timePtr(inWindow),
	})

	var sentMessage string
	dispatcher.On("DispatchSMS", mock.Anything, "0771234567", mock.MatchedBy(func(msg string) bool {
		sentMessage = msg
		return true
	}), "L1", "expiry_reminder").Return("sms1", nil)

	result, err := svc.RemindExpiring(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 0, result.Errors, "skipped record is not an error")

	assert.Contains(t, sentMessage, `Landsale.lk Alert: Your ad "Beachfront Land" expires on `+inWindow.Format("02/01/2006"))
	assert.Contains(t, sentMessage, "Renew now to keep it active!")

	dispatcher.AssertExpectations(t)
}
