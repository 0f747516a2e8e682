package helpers

// Request/Response DTOs
type RegisterUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Contact  string `json:"contact" binding:"required"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateAuctionRequest accepts the deadline as RFC 3339 or as a form
// datetime-local value ("2006-01-02T15:04", read as UTC)
type CreateAuctionRequest struct {
	OwnerID           string   `json:"owner_id" binding:"required"`
	Title             string   `json:"title" binding:"required"`
	Description       string   `json:"description"`
	StartingPrice     float64  `json:"starting_price"`
	Deadline          *string  `json:"deadline"`
	ThresholdMultiple *float64 `json:"threshold_multiple"`
}

type PlaceBidRequest struct {
	BidderID string  `json:"bidder_id" binding:"required"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
}

type CloseAuctionRequest struct {
	RequesterID string `json:"requester_id" binding:"required"`
}

type UserResponse struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Contact     string `json:"contact"`
	HasPassword bool   `json:"has_password"`
	CreatedAt   string `json:"created_at"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"created_at"`
}

type AuctionResponse struct {
	AuctionID         string        `json:"auction_id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	OwnerID           string        `json:"owner_id"`
	Status            string        `json:"status"`
	CloseReason       string        `json:"close_reason,omitempty"`
	StartingPrice     float64       `json:"starting_price"`
	CurrentPrice      float64       `json:"current_price"`
	HighestBidderID   string        `json:"highest_bidder_id,omitempty"`
	Deadline          *string       `json:"deadline,omitempty"`
	ThresholdMultiple *float64      `json:"threshold_multiple,omitempty"`
	Bids              []BidResponse `json:"bids"`
	CreatedAt         string        `json:"created_at"`
	ClosedAt          *string       `json:"closed_at,omitempty"`
}

type PlaceBidResponse struct {
	Bid          BidResponse `json:"bid"`
	CurrentPrice float64     `json:"current_price"`
	Status       string      `json:"status"`
	WinnerID     string      `json:"winner_id,omitempty"`
}

type CloseAuctionResponse struct {
	AuctionID  string  `json:"auction_id"`
	Status     string  `json:"status"`
	WinnerID   string  `json:"winner_id,omitempty"`
	FinalPrice float64 `json:"final_price"`
}
