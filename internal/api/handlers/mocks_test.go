package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/landsalelk/landsalelk-sub006/internal/services"
)

// --- Mocks ---

// MockConsentService implements services.IConsentService.
type MockConsentService struct {
	mock.Mock
}

func (m *MockConsentService) SendVerification(ctx context.Context, req services.SendVerificationRequest) (*services.SendVerificationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SendVerificationResult), args.Error(1)
}

func (m *MockConsentService) VerifyOwner(ctx context.Context, listingID, otp, ipAddress string) (*services.VerifyResult, error) {
	args := m.Called(ctx, listingID, otp, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.VerifyResult), args.Error(1)
}

// MockExpiryService implements services.IExpiryService.
type MockExpiryService struct {
	mock.Mock
}

func (m *MockExpiryService) ExpireListings(ctx context.Context) (*services.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SweepResult), args.Error(1)
}

func (m *MockExpiryService) ExpireSubscriptions(ctx context.Context) (*services.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SweepResult), args.Error(1)
}

func (m *MockExpiryService) RemindExpiring(ctx context.Context) (*services.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SweepResult), args.Error(1)
}
