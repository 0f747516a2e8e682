package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the lifecycle state of an auction. Open -> Closed is the only transition.
type AuctionStatus string

const (
	StatusOpen   AuctionStatus = "open"
	StatusClosed AuctionStatus = "closed"
)

// CloseReason records which rule moved an auction to Closed
type CloseReason string

const (
	CloseReasonNone      CloseReason = ""
	CloseReasonOwner     CloseReason = "owner"
	CloseReasonDeadline  CloseReason = "deadline"
	CloseReasonThreshold CloseReason = "threshold"
)

// User represents a registered participant
type User struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Contact      string    `json:"contact"`
	PasswordHash []byte    `json:"password_hash,omitempty"`
	PasswordSalt []byte    `json:"password_salt,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasPassword reports whether the user registered a login credential
func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}

// ClosingPolicy holds the automatic closing rules of an auction.
// Either rule may be nil, but not both; when both are set the first to fire wins.
type ClosingPolicy struct {
	Deadline          *time.Time       `json:"deadline,omitempty"`
	ThresholdMultiple *decimal.Decimal `json:"threshold_multiple,omitempty"`
}

// IsEmpty reports whether no closing rule is configured
func (p ClosingPolicy) IsEmpty() bool {
	return p.Deadline == nil && p.ThresholdMultiple == nil
}

// DeadlinePassed reports whether the deadline rule fires at now
func (p ClosingPolicy) DeadlinePassed(now time.Time) bool {
	return p.Deadline != nil && !now.Before(*p.Deadline)
}

// ThresholdReached reports whether amount triggers the threshold rule for startingPrice
func (p ClosingPolicy) ThresholdReached(startingPrice, amount decimal.Decimal) bool {
	if p.ThresholdMultiple == nil {
		return false
	}
	return amount.GreaterThanOrEqual(p.ThresholdMultiple.Mul(startingPrice))
}

// Bid represents a user's accepted bid on an auction
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Auction represents a listed item and its bid history in chronological order
type Auction struct {
	AuctionID     string          `json:"auction_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	OwnerID       string          `json:"owner_id"`
	Policy        ClosingPolicy   `json:"closing_policy"`
	Status        AuctionStatus   `json:"status"`
	CloseReason   CloseReason     `json:"close_reason,omitempty"`
	ClosedAt      *time.Time      `json:"closed_at,omitempty"`
	Bids          []Bid           `json:"bids"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CurrentPrice is the highest bid amount, or the starting price when there are no bids
func (a Auction) CurrentPrice() decimal.Decimal {
	if top, ok := a.HighestBid(); ok {
		return top.Amount
	}
	return a.StartingPrice
}

// HighestBid returns the maximum bid. On equal amounts the earlier bid wins.
func (a Auction) HighestBid() (Bid, bool) {
	if len(a.Bids) == 0 {
		return Bid{}, false
	}
	top := a.Bids[0]
	for _, b := range a.Bids[1:] {
		if b.Amount.GreaterThan(top.Amount) {
			top = b
		}
	}
	return top, true
}

// HighestBidderID returns the bidder of the highest bid, or "" when there are no bids
func (a Auction) HighestBidderID() string {
	if top, ok := a.HighestBid(); ok {
		return top.BidderID
	}
	return ""
}

// IsOpen reports the stored status; it does not evaluate the deadline
func (a Auction) IsOpen() bool {
	return a.Status == StatusOpen
}

// Clone returns a deep copy that shares no slices or pointers with a
func (a Auction) Clone() Auction {
	c := a
	c.Bids = append([]Bid(nil), a.Bids...)
	if a.Policy.Deadline != nil {
		d := *a.Policy.Deadline
		c.Policy.Deadline = &d
	}
	if a.Policy.ThresholdMultiple != nil {
		f := *a.Policy.ThresholdMultiple
		c.Policy.ThresholdMultiple = &f
	}
	if a.ClosedAt != nil {
		t := *a.ClosedAt
		c.ClosedAt = &t
	}
	return c
}

// AuctionView is the read-only projection of an auction
type AuctionView struct {
	AuctionID       string          `json:"auction_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	OwnerID         string          `json:"owner_id"`
	Status          AuctionStatus   `json:"status"`
	CloseReason     CloseReason     `json:"close_reason,omitempty"`
	StartingPrice   decimal.Decimal `json:"starting_price"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	HighestBidderID string          `json:"highest_bidder_id,omitempty"`
	Policy          ClosingPolicy   `json:"closing_policy"`
	Bids            []Bid           `json:"bids"`
	CreatedAt       time.Time       `json:"created_at"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
}

// NewAuctionView projects a into its read-only view
func NewAuctionView(a Auction) AuctionView {
	c := a.Clone()
	if c.Bids == nil {
		c.Bids = []Bid{}
	}
	return AuctionView{
		AuctionID:       c.AuctionID,
		Title:           c.Title,
		Description:     c.Description,
		OwnerID:         c.OwnerID,
		Status:          c.Status,
		CloseReason:     c.CloseReason,
		StartingPrice:   c.StartingPrice,
		CurrentPrice:    c.CurrentPrice(),
		HighestBidderID: c.HighestBidderID(),
		Policy:          c.Policy,
		Bids:            c.Bids,
		CreatedAt:       c.CreatedAt,
		ClosedAt:        c.ClosedAt,
	}
}

// BidResult is returned by an accepted bid
type BidResult struct {
	Bid          Bid             `json:"bid"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Status       AuctionStatus   `json:"status"`
	// WinnerID is set only when this bid closed the auction
	WinnerID string `json:"winner_id,omitempty"`
}

// CloseResult is returned when an owner closes an auction
type CloseResult struct {
	AuctionID  string          `json:"auction_id"`
	Status     AuctionStatus   `json:"status"`
	WinnerID   string          `json:"winner_id,omitempty"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// HasWinner reports whether the auction closed with at least one bid
func (r CloseResult) HasWinner() bool {
	return r.WinnerID != ""
}
