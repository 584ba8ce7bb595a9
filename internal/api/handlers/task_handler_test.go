package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/landsalelk/landsalelk-sub006/internal/api/handlers"
	"github.com/landsalelk/landsalelk-sub006/internal/services"
)

func setupTaskRouter(svc services.IExpiryService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewTaskHandler(svc)
	r.POST("/v1/tasks/expire-listings", h.ExpireListings)
	r.POST("/v1/tasks/expire-subscriptions", h.ExpireSubscriptions)
	r.POST("/v1/tasks/send-reminders", h.SendReminders)
	return r
}

func postEmpty(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExpireListingsEndpoint(t *testing.T) {
	mockSvc := new(MockExpiryService)
	r := setupTaskRouter(mockSvc)

	checkedAt := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mockSvc.On("ExpireListings", mock.Anything).Return(&services.SweepResult{
		CheckedAt: checkedAt, Found: 5, Processed: 4, Errors: 1,
	}, nil)

	w := postEmpty(r, "/v1/tasks/expire-listings")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "2025-06-01T00:00:00Z", resp["checked_at"])
	assert.Equal(t, float64(5), resp["expired_found"])
	assert.Equal(t, float64(4), resp["expired_processed"])
	assert.Equal(t, float64(1), resp["errors"])
}

func TestExpireListingsEndpoint_Error(t *testing.T) {
	mockSvc := new(MockExpiryService)
	r := setupTaskRouter(mockSvc)

	mockSvc.On("ExpireListings", mock.Anything).Return(nil, errors.New("query failed"))

	w := postEmpty(r, "/v1/tasks/expire-listings")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestExpireSubscriptionsEndpoint(t *testing.T) {
	mockSvc := new(MockExpiryService)
	r := setupTaskRouter(mockSvc)

	mockSvc.On("ExpireSubscriptions", mock.Anything).Return(&services.SweepResult{
		CheckedAt: time.Now().UTC(), Found: 3, Processed: 3, Notified: 2,
	}, nil)

	w := postEmpty(r, "/v1/tasks/expire-subscriptions")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["expired_found"])
	assert.Equal(t, float64(3), resp["deactivated"])
	assert.Equal(t, float64(2), resp["notified"])
	assert.Equal(t, float64(0), resp["errors"])
}

func TestSendRemindersEndpoint(t *testing.T) {
	mockSvc := new(MockExpiryService)
	r := setupTaskRouter(mockSvc)

	mockSvc.On("RemindExpiring", mock.Anything).Return(&services.SweepResult{
		CheckedAt: time.Now().UTC(), Found: 2, Processed: 1, Errors: 1,
	}, nil)

	w := postEmpty(r, "/v1/tasks/send-reminders")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["processed"])
	assert.Equal(t, float64(1), resp["sent"])
	assert.Equal(t, float64(1), resp["failed"])
}
