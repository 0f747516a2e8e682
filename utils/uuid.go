package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new time-ordered identifier (UUIDv7), so ids of users,
// auctions and bids sort in creation order. Falls back to a random UUID.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
