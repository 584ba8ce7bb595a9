package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/landsalelk/landsalelk-sub006/internal/api/handlers"
	"github.com/landsalelk/landsalelk-sub006/internal/api/middleware"
	"github.com/landsalelk/landsalelk-sub006/internal/config"
	"github.com/landsalelk/landsalelk-sub006/internal/services"
)

// SetupRouter configures and returns the public Gin engine.
func SetupRouter(cfg *config.Config, consentService services.IConsentService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), middleware.RecoveryMiddleware())
	r.Use(middleware.CORSMiddleware())

	consentHandler := handlers.NewConsentHandler(consentService)

	v1 := r.Group("/v1")
	{
		v1.POST("/consent/send-otp", consentHandler.SendOTP)
		v1.POST("/consent/verify", consentHandler.VerifyOTP)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}

	// The verification endpoints are POST-only; anything else on a known
	// path gets a structured 405 instead of gin's default 404.
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": "Method not allowed"})
	})

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
// Requires Redis for the getTestSms endpoint used by integration tests.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, expiryService services.IExpiryService, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	taskHandler := handlers.NewTaskHandler(expiryService)

	tasks := r.Group("/v1/tasks")
	tasks.Use(middleware.ServiceKeyMiddleware(cfg.ServiceApiKey))
	{
		tasks.POST("/expire-listings", taskHandler.ExpireListings)
		tasks.POST("/expire-subscriptions", taskHandler.ExpireSubscriptions)
		tasks.POST("/send-reminders", taskHandler.SendReminders)
	}

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestSms":
			var args []string // Expect ["recipient"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [recipient]"})
				return
			}
			redisKey := fmt.Sprintf("mocksms:%s", args[0])

			// Poll Redis briefly for the key
			var smsJsonData string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ { // Poll up to ~2 seconds
				smsJsonData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey) // Delete after fetching
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				// If redis.Nil, wait and retry
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test SMS not found in Redis for key %s", redisKey)})
				return
			}

			var smsData map[string]interface{}
			if err := json.Unmarshal([]byte(smsJsonData), &smsData); err != nil {
				log.Printf("Service API: Error unmarshalling SMS data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored SMS data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": smsData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
