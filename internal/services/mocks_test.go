package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/landsalelk/landsalelk-sub006/internal/store"
)

// MockDispatcher implements Dispatcher.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) DispatchSMS(ctx context.Context, phone, message, relatedTo, relatedType string) (string, error) {
	args := m.Called(ctx, phone, message, relatedTo, relatedType)
	return args.String(0), args.Error(1)
}

func (m *MockDispatcher) DispatchEmail(ctx context.Context, to, subject, body string) (string, error) {
	args := m.Called(ctx, to, subject, body)
	return args.String(0), args.Error(1)
}

// failingStore wraps a Store and fails updates for one document ID, to
// exercise partial-failure handling in sweeps.
type failingStore struct {
	store.Store
	failID string
}

func (f *failingStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if id == f.failID {
		return context.DeadlineExceeded
	}
	return f.Store.Update(ctx, collection, id, fields)
}
