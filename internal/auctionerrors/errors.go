package auctionerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation errors: no state is mutated, the caller should correct the input
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrBidTooLow        = errors.New("bid amount too low")
	ErrSelfBidForbidden = errors.New("owner cannot bid on own auction")
)

// Not-found errors
var (
	ErrUnknownAuction = errors.New("auction not found")
	ErrUnknownBidder  = errors.New("bidder not found")
	ErrUnknownOwner   = errors.New("owner not found")
	ErrUnknownUser    = errors.New("user not found")
)

// State-conflict errors
var (
	ErrAuctionClosed        = errors.New("auction is closed")
	ErrAuctionAlreadyClosed = errors.New("auction already closed")
	ErrNotOwner             = errors.New("requester is not the auction owner")
	ErrDuplicateIdentity    = errors.New("name or contact already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// ErrPersistence is returned alongside a result when the mutation was applied
// in memory but the snapshot could not be saved
var ErrPersistence = errors.New("snapshot save failed")

// BidTooLowError carries the minimum amount the next bid must reach.
// When Inclusive is false the next bid must be strictly greater than MinRequired.
type BidTooLowError struct {
	CurrentPrice decimal.Decimal
	MinRequired  decimal.Decimal
	Inclusive    bool
}

func (e *BidTooLowError) Error() string {
	if e.Inclusive {
		return fmt.Sprintf("%s: must be at least %s", ErrBidTooLow, e.MinRequired.StringFixed(2))
	}
	return fmt.Sprintf("%s: must be greater than %s", ErrBidTooLow, e.MinRequired.StringFixed(2))
}

// Is lets errors.Is(err, ErrBidTooLow) match a wrapped *BidTooLowError
func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}
