package models

import (
	"time"
)

// SmsLog records one outbound SMS attempt, successful or not.
type SmsLog struct {
	ID           string    `bson:"_id,omitempty" json:"id,omitempty"`
	Phone        string    `bson:"phone" json:"phone"`
	Message      string    `bson:"message" json:"message"` // truncated to 500 chars
	Status       string    `bson:"status" json:"status"`   // "sent" | "failed"
	Provider     string    `bson:"provider" json:"provider"`
	ResponseCode string    `bson:"response_code,omitempty" json:"response_code,omitempty"`
	ErrorMessage string    `bson:"error_message,omitempty" json:"error_message,omitempty"`
	RelatedTo    string    `bson:"related_to,omitempty" json:"related_to,omitempty"`
	RelatedType  string    `bson:"related_type,omitempty" json:"related_type,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// ActivityLog is a generic audit trail entry for side effects such as SMS
// dispatches.
type ActivityLog struct {
	ID         string    `bson:"_id,omitempty" json:"id,omitempty"`
	Action     string    `bson:"action" json:"action"`
	EntityType string    `bson:"entity_type,omitempty" json:"entity_type,omitempty"`
	EntityID   string    `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	Details    string    `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
