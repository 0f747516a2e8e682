package helpers

import (
	"auction-ledger/internal/models"
	"errors"
	"fmt"
	"strings"
	"time"
)

// formDeadlineLayout is what an HTML datetime-local input submits
const formDeadlineLayout = "2006-01-02T15:04"

// ParseDeadline reads an RFC 3339 timestamp or a datetime-local value in UTC
func ParseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty deadline")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(formDeadlineLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("deadline %q is neither RFC 3339 nor %s", raw, formDeadlineLayout)
	}
	return t.UTC(), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func ToUserResponse(u models.User) UserResponse {
	return UserResponse{
		UserID:      u.UserID,
		Name:        u.Name,
		Contact:     u.Contact,
		HasPassword: u.HasPassword(),
		CreatedAt:   formatTime(u.CreatedAt),
	}
}

func ToUserResponses(users []models.User) []UserResponse {
	resp := make([]UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, ToUserResponse(u))
	}
	return resp
}

func ToBidResponse(b models.Bid) BidResponse {
	return BidResponse{
		BidID:     b.BidID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.InexactFloat64(),
		CreatedAt: formatTime(b.CreatedAt),
	}
}

func ToBidResponses(bids []models.Bid) []BidResponse {
	resp := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, ToBidResponse(b))
	}
	return resp
}

func ToAuctionResponse(v models.AuctionView) AuctionResponse {
	resp := AuctionResponse{
		AuctionID:       v.AuctionID,
		Title:           v.Title,
		Description:     v.Description,
		OwnerID:         v.OwnerID,
		Status:          string(v.Status),
		CloseReason:     string(v.CloseReason),
		StartingPrice:   v.StartingPrice.InexactFloat64(),
		CurrentPrice:    v.CurrentPrice.InexactFloat64(),
		HighestBidderID: v.HighestBidderID,
		Deadline:        formatTimePtr(v.Policy.Deadline),
		Bids:            ToBidResponses(v.Bids),
		CreatedAt:       formatTime(v.CreatedAt),
		ClosedAt:        formatTimePtr(v.ClosedAt),
	}
	if v.Policy.ThresholdMultiple != nil {
		f := v.Policy.ThresholdMultiple.InexactFloat64()
		resp.ThresholdMultiple = &f
	}
	return resp
}

func ToAuctionResponses(views []models.AuctionView) []AuctionResponse {
	resp := make([]AuctionResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, ToAuctionResponse(v))
	}
	return resp
}

func ToPlaceBidResponse(r models.BidResult) PlaceBidResponse {
	return PlaceBidResponse{
		Bid:          ToBidResponse(r.Bid),
		CurrentPrice: r.CurrentPrice.InexactFloat64(),
		Status:       string(r.Status),
		WinnerID:     r.WinnerID,
	}
}

func ToCloseAuctionResponse(r models.CloseResult) CloseAuctionResponse {
	return CloseAuctionResponse{
		AuctionID:  r.AuctionID,
		Status:     string(r.Status),
		WinnerID:   r.WinnerID,
		FinalPrice: r.FinalPrice.InexactFloat64(),
	}
}
