package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewUniqueID mints an opaque document ID for records created by this
// service (consent logs, SMS logs, activity logs). Listing and agent IDs are
// assigned by the listing-submission flow and arrive as opaque strings.
func NewUniqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
