package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/landsalelk/landsalelk-sub006/internal/config"
	"github.com/landsalelk/landsalelk-sub006/internal/email"
	"github.com/landsalelk/landsalelk-sub006/internal/models"
	"github.com/landsalelk/landsalelk-sub006/internal/services"
	"github.com/landsalelk/landsalelk-sub006/internal/sms"
	"github.com/landsalelk/landsalelk-sub006/internal/store"
	"github.com/landsalelk/landsalelk-sub006/internal/utils"
)

// TaskType defines the type of a background task.
const (
	TypeSmsDelivery   = "sms:deliver"
	TypeEmailDelivery = "email:deliver"

	TypeListingExpiry      = "listing:expiry:check"
	TypeSubscriptionExpiry = "subscription:expiry:check"
	TypeExpiryReminder     = "listing:expiry:remind"
)

const (
	smsLogsCollection      = "sms_logs"
	activityLogsCollection = "activity_logs"
)

// --- Task Client (Enqueuing tasks) ---

// IClient is the subset of asynq.Client used for dispatching tasks. It
// exists so handlers and services can be tested with a mock client.
type IClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// SmsTaskPayload is the payload of an SMS delivery task. RelatedTo and
// RelatedType tie the dispatch back to the triggering record for audit.
type SmsTaskPayload struct {
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	RelatedTo   string `json:"related_to,omitempty"`
	RelatedType string `json:"related_type,omitempty"`
}

// EmailTaskPayload is the payload of an email delivery task.
type EmailTaskPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Dispatcher implements services.Dispatcher by enqueueing delivery tasks.
// Dispatches are fire-and-forget: the caller gets the queued task ID, never
// a delivery confirmation.
type Dispatcher struct {
	client IClient
}

// NewDispatcher creates a Dispatcher over the given task client.
func NewDispatcher(client IClient) *Dispatcher {
	return &Dispatcher{client: client}
}

func (d *Dispatcher) DispatchSMS(ctx context.Context, phone, message, relatedTo, relatedType string) (string, error) {
	payload, err := json.Marshal(SmsTaskPayload{
		Phone:       phone,
		Message:     message,
		RelatedTo:   relatedTo,
		RelatedType: relatedType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal sms task payload: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx, asynq.NewTask(TypeSmsDelivery, payload), asynq.Queue("critical"))
	if err != nil {
		return "", fmt.Errorf("failed to enqueue sms delivery task: %w", err)
	}
	return info.ID, nil
}

func (d *Dispatcher) DispatchEmail(ctx context.Context, to, subject, body string) (string, error) {
	payload, err := json.Marshal(EmailTaskPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email task payload: %w", err)
	}

	info, err := d.client.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, payload))
	if err != nil {
		return "", fmt.Errorf("failed to enqueue email delivery task: %w", err)
	}
	return info.ID, nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg           *config.Config
	st            store.Store
	smsSender     sms.Sender
	emailSender   email.Sender
	expiryService services.IExpiryService
}

func NewTaskProcessor(
	cfg *config.Config,
	st store.Store,
	smsSender sms.Sender,
	emailSender email.Sender,
	expiryService services.IExpiryService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:           cfg,
		st:            st,
		smsSender:     smsSender,
		emailSender:   emailSender,
		expiryService: expiryService,
	}
}

// SetupServer configures and returns an Asynq server with the delivery and
// sweep handlers registered. The caller runs it.
func SetupServer(rdb *redis.Client) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	return srv, mux
}

// RegisterHandlers wires the processor's handlers into the mux.
func (p *TaskProcessor) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSmsDelivery, p.HandleSmsDeliveryTask)
	mux.HandleFunc(TypeEmailDelivery, p.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeListingExpiry, p.HandleListingExpiryTask)
	mux.HandleFunc(TypeSubscriptionExpiry, p.HandleSubscriptionExpiryTask)
	mux.HandleFunc(TypeExpiryReminder, p.HandleExpiryReminderTask)
}

// SetupScheduler returns an Asynq scheduler with the daily sweeps
// registered. The sweeps are pull-based: each run queries for stale records
// itself, so a missed tick only delays transitions by one interval.
func SetupScheduler(rdb *redis.Client) (*asynq.Scheduler, error) {
	schedulerOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	scheduler := asynq.NewScheduler(schedulerOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	for _, taskType := range []string{TypeListingExpiry, TypeSubscriptionExpiry, TypeExpiryReminder} {
		if _, err := scheduler.Register("@daily", asynq.NewTask(taskType, nil)); err != nil {
			return nil, fmt.Errorf("failed to register %s schedule: %w", taskType, err)
		}
	}
	return scheduler, nil
}

// --- Task Handlers ---

// HandleSmsDeliveryTask sends one SMS through the gateway and records the
// attempt in sms_logs and activity_logs. Delivery is single-attempt: a
// gateway failure is logged, never retried.
func (p *TaskProcessor) HandleSmsDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload SmsTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal sms task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Phone == "" || payload.Message == "" {
		return fmt.Errorf("sms task missing phone or message: %w", asynq.SkipRetry)
	}

	formattedPhone := utils.FormatSriLankanPhone(payload.Phone)
	log.Printf("Sending SMS to: %s (related: %s/%s)", formattedPhone, payload.RelatedType, payload.RelatedTo)

	providerID, sendErr := p.smsSender.Send(ctx, formattedPhone, payload.Message)

	status := "sent"
	errorMessage := ""
	if sendErr != nil {
		status = "failed"
		errorMessage = sendErr.Error()
		log.Printf("SMS to %s failed: %v", formattedPhone, sendErr)
	}

	// Both log writes are best effort; the dispatch outcome stands either way.
	message := payload.Message
	if len(message) > 500 {
		message = message[:500]
	}
	smsLog := models.SmsLog{
		Phone:        formattedPhone,
		Message:      message,
		Status:       status,
		Provider:     "textlk",
		ResponseCode: providerID,
		ErrorMessage: errorMessage,
		RelatedTo:    payload.RelatedTo,
		RelatedType:  payload.RelatedType,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.st.Create(ctx, smsLogsCollection, utils.NewUniqueID(), smsLog); err != nil {
		log.Printf("Failed to log SMS to %s: %v", formattedPhone, err)
	}

	details, _ := json.Marshal(map[string]string{
		"phone":  formattedPhone,
		"status": status,
		"error":  errorMessage,
	})
	activity := models.ActivityLog{
		Action:     "sms_" + status,
		EntityType: payload.RelatedType,
		EntityID:   payload.RelatedTo,
		Details:    string(details),
		CreatedAt:  time.Now().UTC(),
	}
	if activity.EntityType == "" {
		activity.EntityType = "sms"
	}
	if err := p.st.Create(ctx, activityLogsCollection, utils.NewUniqueID(), activity); err != nil {
		log.Printf("Failed to log SMS activity for %s: %v", formattedPhone, err)
	}

	if sendErr != nil {
		return fmt.Errorf("sms delivery to %s failed: %v: %w", formattedPhone, sendErr, asynq.SkipRetry)
	}
	return nil
}

// HandleEmailDeliveryTask sends one notification email.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task missing recipient: %w", asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@landsale.lk"
	}

	// Basic plain-text message with essential headers.
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", payload.Subject))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(payload.Body)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, payload.Subject, []byte(sb.String())); err != nil {
		log.Printf("Email to %s failed: %v", payload.To, err)
		return err
	}
	return nil
}

// HandleListingExpiryTask runs the daily listing expiry sweep.
func (p *TaskProcessor) HandleListingExpiryTask(ctx context.Context, t *asynq.Task) error {
	result, err := p.expiryService.ExpireListings(ctx)
	if err != nil {
		return fmt.Errorf("listing expiry sweep failed: %w", err)
	}
	log.Printf("Listing expiry task done: found=%d processed=%d errors=%d", result.Found, result.Processed, result.Errors)
	return nil
}

// HandleSubscriptionExpiryTask runs the daily subscription expiry sweep.
func (p *TaskProcessor) HandleSubscriptionExpiryTask(ctx context.Context, t *asynq.Task) error {
	result, err := p.expiryService.ExpireSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("subscription expiry sweep failed: %w", err)
	}
	log.Printf("Subscription expiry task done: found=%d deactivated=%d notified=%d errors=%d",
		result.Found, result.Processed, result.Notified, result.Errors)
	return nil
}

// HandleExpiryReminderTask runs the daily renewal-reminder sweep.
func (p *TaskProcessor) HandleExpiryReminderTask(ctx context.Context, t *asynq.Task) error {
	result, err := p.expiryService.RemindExpiring(ctx)
	if err != nil {
		return fmt.Errorf("expiry reminder sweep failed: %w", err)
	}
	log.Printf("Expiry reminder task done: found=%d sent=%d errors=%d", result.Found, result.Processed, result.Errors)
	return nil
}
