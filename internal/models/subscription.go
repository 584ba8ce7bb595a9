package models

import (
	"time"
)

// Subscription represents an agent's paid subscription period.
type Subscription struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	AgentID   string    `bson:"agent_id" json:"agent_id"`
	Package   string    `bson:"package,omitempty" json:"package,omitempty"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	IsActive  bool      `bson:"is_active" json:"is_active"`
}
