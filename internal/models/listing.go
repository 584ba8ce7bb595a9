package models

import (
	"time"
)

// ListingStatus is the lifecycle state of a property listing.
type ListingStatus string

const (
	StatusDraft             ListingStatus = "draft"
	StatusPendingOwner      ListingStatus = "pending_owner"
	StatusActive            ListingStatus = "active"
	StatusExpired           ListingStatus = "expired"
	StatusExpiredUnverified ListingStatus = "expired_unverified"
	StatusRejected          ListingStatus = "rejected"
)

// Listing represents a property listing document.
// VerificationCode holds the sha256 hex of the one-time code and is only
// present while Status == pending_owner; it is cleared on successful
// verification.
type Listing struct {
	ID                    string        `bson:"_id,omitempty" json:"id,omitempty"`
	Title                 string        `bson:"title" json:"title"`
	Price                 float64       `bson:"price" json:"price"`
	OwnerPhone            string        `bson:"owner_phone" json:"owner_phone"`
	AgentID               string        `bson:"agent_id,omitempty" json:"agent_id,omitempty"`
	ServiceFee            float64       `bson:"service_fee,omitempty" json:"service_fee,omitempty"`
	Status                ListingStatus `bson:"status" json:"status"`
	VerificationCode      *string       `bson:"verification_code,omitempty" json:"-"`
	VerificationExpiresAt *time.Time    `bson:"verification_expires_at,omitempty" json:"verification_expires_at,omitempty"`
	ExpiresAt             *time.Time    `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	IsVerified            bool          `bson:"is_verified" json:"is_verified"`
	IsBoosted             bool          `bson:"is_boosted" json:"is_boosted"`
	IsPremium             bool          `bson:"is_premium" json:"is_premium"`
	CreatedAt             time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time     `bson:"updated_at" json:"updated_at"`
}

// Agent represents a real-estate agent profile.
type Agent struct {
	ID     string `bson:"_id,omitempty" json:"id,omitempty"`
	Name   string `bson:"name" json:"name"`
	Email  string `bson:"email,omitempty" json:"email,omitempty"`
	Phone  string `bson:"phone,omitempty" json:"phone,omitempty"`
	Status string `bson:"status" json:"status"` // "active" | "inactive"
}
