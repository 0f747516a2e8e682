// Package storetest holds fixtures shared by the snapshot store tests.
package storetest

import (
	model "auction-ledger/internal/models"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// SampleSnapshot returns users and auctions that exercise every persisted field
func SampleSnapshot() ([]model.User, []model.Auction) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := base.Add(48 * time.Hour)
	closedAt := base.Add(3 * time.Hour)
	factor := decimal.RequireFromString("3")

	users := []model.User{
		{UserID: "u-alice", Name: "alice", Contact: "alice@example.com", CreatedAt: base},
		{UserID: "u-bob", Name: "Bob", Contact: "bob@example.com", PasswordHash: []byte{1, 2, 3}, PasswordSalt: []byte{4, 5, 6}, CreatedAt: base.Add(time.Minute)},
		{UserID: "u-carol", Name: "carol", Contact: "carol@example.com", CreatedAt: base.Add(2 * time.Minute)},
	}

	auctions := []model.Auction{
		{
			AuctionID:     "a-lamp",
			Title:         "Lamp",
			Description:   "brass desk lamp",
			StartingPrice: decimal.NewFromInt(100),
			OwnerID:       "u-alice",
			Policy:        model.ClosingPolicy{Deadline: &deadline},
			Status:        model.StatusOpen,
			Bids: []model.Bid{
				{BidID: "b1", AuctionID: "a-lamp", BidderID: "u-bob", Amount: decimal.NewFromInt(150), CreatedAt: base.Add(time.Hour)},
				{BidID: "b2", AuctionID: "a-lamp", BidderID: "u-carol", Amount: decimal.RequireFromString("150.5"), CreatedAt: base.Add(2 * time.Hour)},
			},
			CreatedAt: base.Add(5 * time.Minute),
		},
		{
			AuctionID:     "a-chair",
			Title:         "Chair",
			StartingPrice: decimal.NewFromInt(10),
			OwnerID:       "u-bob",
			Policy:        model.ClosingPolicy{ThresholdMultiple: &factor},
			Status:        model.StatusClosed,
			CloseReason:   model.CloseReasonThreshold,
			ClosedAt:      &closedAt,
			Bids: []model.Bid{
				{BidID: "b3", AuctionID: "a-chair", BidderID: "u-alice", Amount: decimal.NewFromInt(30), CreatedAt: closedAt},
			},
			CreatedAt: base.Add(6 * time.Minute),
		},
		{
			AuctionID:     "a-empty",
			Title:         "Empty",
			StartingPrice: decimal.Zero,
			OwnerID:       "u-carol",
			Policy:        model.ClosingPolicy{Deadline: &deadline, ThresholdMultiple: &factor},
			Status:        model.StatusOpen,
			Bids:          []model.Bid{},
			CreatedAt:     base.Add(7 * time.Minute),
		},
	}
	return users, auctions
}

// RequireSameSnapshot compares snapshots by value, including order
func RequireSameSnapshot(t *testing.T, wantUsers []model.User, wantAuctions []model.Auction, gotUsers []model.User, gotAuctions []model.Auction) {
	t.Helper()

	require.Len(t, gotUsers, len(wantUsers))
	for i, want := range wantUsers {
		got := gotUsers[i]
		require.Equal(t, want.UserID, got.UserID)
		require.Equal(t, want.Name, got.Name)
		require.Equal(t, want.Contact, got.Contact)
		require.Equal(t, len(want.PasswordHash) > 0, len(got.PasswordHash) > 0)
		if len(want.PasswordHash) > 0 {
			require.Equal(t, want.PasswordHash, got.PasswordHash)
			require.Equal(t, want.PasswordSalt, got.PasswordSalt)
		}
		require.True(t, want.CreatedAt.Equal(got.CreatedAt), "user %s created_at", want.UserID)
	}

	require.Len(t, gotAuctions, len(wantAuctions))
	for i, want := range wantAuctions {
		got := gotAuctions[i]
		require.Equal(t, want.AuctionID, got.AuctionID)
		require.Equal(t, want.Title, got.Title)
		require.Equal(t, want.Description, got.Description)
		require.True(t, want.StartingPrice.Equal(got.StartingPrice), "auction %s starting price", want.AuctionID)
		require.Equal(t, want.OwnerID, got.OwnerID)
		require.Equal(t, want.Status, got.Status)
		require.Equal(t, want.CloseReason, got.CloseReason)
		requireSameTimePtr(t, want.Policy.Deadline, got.Policy.Deadline)
		requireSameTimePtr(t, want.ClosedAt, got.ClosedAt)
		require.True(t, want.CreatedAt.Equal(got.CreatedAt))
		if want.Policy.ThresholdMultiple == nil {
			require.Nil(t, got.Policy.ThresholdMultiple)
		} else {
			require.NotNil(t, got.Policy.ThresholdMultiple)
			require.True(t, want.Policy.ThresholdMultiple.Equal(*got.Policy.ThresholdMultiple))
		}

		require.Len(t, got.Bids, len(want.Bids))
		for j, wb := range want.Bids {
			gb := got.Bids[j]
			require.Equal(t, wb.BidID, gb.BidID)
			require.Equal(t, wb.AuctionID, gb.AuctionID)
			require.Equal(t, wb.BidderID, gb.BidderID)
			require.True(t, wb.Amount.Equal(gb.Amount), "bid %s amount", wb.BidID)
			require.True(t, wb.CreatedAt.Equal(gb.CreatedAt))
		}
	}
}

func requireSameTimePtr(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		require.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	require.True(t, want.Equal(*got))
}
