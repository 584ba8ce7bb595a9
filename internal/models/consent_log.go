package models

import (
	"time"
)

// ConsentMethod identifies how the owner supplied the verification secret.
type ConsentMethod string

const (
	ConsentMethodOTPInput ConsentMethod = "OTP_input"
	ConsentMethodLink     ConsentMethod = "link"
)

// ConsentLog is an append-only audit record of a successful owner
// verification. It is written after the listing transition commits and is
// advisory: a failed write never rolls the verification back.
type ConsentLog struct {
	ID         string        `bson:"_id,omitempty" json:"id,omitempty"`
	ListingID  string        `bson:"listing_id" json:"listing_id"`
	OwnerPhone string        `bson:"owner_phone" json:"owner_phone"`
	VerifiedAt time.Time     `bson:"verified_at" json:"verified_at"`
	Method     ConsentMethod `bson:"method" json:"method"`
	IPAddress  string        `bson:"ip_address" json:"ip_address"`
}
