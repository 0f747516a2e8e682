package ledger

import (
	"auction-ledger/internal/auctionerrors"
	"auction-ledger/internal/models"
	"auction-ledger/internal/repository"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced Clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func deadlineIn(clock *fakeClock, d time.Duration) models.ClosingPolicy {
	t := clock.Now().Add(d)
	return models.ClosingPolicy{Deadline: &t}
}

func thresholdOf(factor string) models.ClosingPolicy {
	f := dec(factor)
	return models.ClosingPolicy{ThresholdMultiple: &f}
}

// fixture is a ledger with an owner, two bidders and a fake clock
type fixture struct {
	svc           *LedgerService
	clock         *fakeClock
	owner, b1, b2 models.User
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	clock := newFakeClock()
	svc := NewLedgerService(repository.NewMemoryRepo(), append([]Option{WithClock(clock.Now)}, opts...)...)

	ctx := context.Background()
	owner, err := svc.RegisterUser(ctx, "owner", "owner@example.com", "")
	require.NoError(t, err)
	b1, err := svc.RegisterUser(ctx, "bidder1", "b1@example.com", "")
	require.NoError(t, err)
	b2, err := svc.RegisterUser(ctx, "bidder2", "b2@example.com", "")
	require.NoError(t, err)

	return fixture{svc: svc, clock: clock, owner: owner, b1: b1, b2: b2}
}

func (f fixture) auction(t *testing.T, price string, policy models.ClosingPolicy) models.Auction {
	t.Helper()
	a, err := f.svc.CreateAuction(context.Background(), f.owner.UserID, "lamp", "brass", dec(price), policy)
	require.NoError(t, err)
	return a
}

// Tests RegisterUser
func TestLedgerService_RegisterUser(t *testing.T) {
	t.Parallel()

	svc := NewLedgerService(repository.NewMemoryRepo())
	ctx := context.Background()

	first, err := svc.RegisterUser(ctx, " alice ", "alice@example.com", "")
	require.NoError(t, err)
	require.NotEmpty(t, first.UserID)
	require.Equal(t, "alice", first.Name)
	require.False(t, first.HasPassword())

	tests := []struct {
		name          string
		userName      string
		contact       string
		expectedError error
	}{
		{name: "valid_user", userName: "bob", contact: "bob@example.com"},
		{name: "empty_name", userName: "  ", contact: "x@example.com", expectedError: auctionerrors.ErrInvalidInput},
		{name: "empty_contact", userName: "carol", contact: "", expectedError: auctionerrors.ErrInvalidInput},
		{name: "duplicate_name_ignoring_case", userName: "ALICE", contact: "other@example.com", expectedError: auctionerrors.ErrDuplicateIdentity},
		{name: "duplicate_contact", userName: "dave", contact: "Alice@Example.com", expectedError: auctionerrors.ErrDuplicateIdentity},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			u, err := svc.RegisterUser(ctx, tc.userName, tc.contact, "")
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.NotEqual(t, first.UserID, u.UserID)
		})
	}

	users := svc.ListUsers(ctx)
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Name)
	require.Equal(t, "bob", users[1].Name)
}

// Tests Authenticate
func TestLedgerService_Authenticate(t *testing.T) {
	t.Parallel()

	svc := NewLedgerService(repository.NewMemoryRepo())
	ctx := context.Background()

	alice, err := svc.RegisterUser(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	require.True(t, alice.HasPassword())
	_, err = svc.RegisterUser(ctx, "nopass", "nopass@example.com", "")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "Alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, alice.UserID, got.UserID)

	for _, tc := range []struct{ name, user, password string }{
		{"wrong_password", "alice", "nope"},
		{"unknown_user", "ghost", "s3cret"},
		{"user_without_password", "nopass", ""},
	} {
		_, err := svc.Authenticate(ctx, tc.user, tc.password)
		require.ErrorIs(t, err, auctionerrors.ErrInvalidCredentials, tc.name)
	}
}

// Tests CreateAuction validation
func TestLedgerService_CreateAuction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	past := f.clock.Now().Add(-time.Minute)
	now := f.clock.Now()

	tests := []struct {
		name          string
		ownerID       string
		title         string
		price         string
		policy        models.ClosingPolicy
		expectedError error
	}{
		{name: "deadline_only", ownerID: f.owner.UserID, title: "lamp", price: "100", policy: deadlineIn(f.clock, time.Hour)},
		{name: "threshold_only", ownerID: f.owner.UserID, title: "lamp", price: "100", policy: thresholdOf("3")},
		{name: "zero_starting_price", ownerID: f.owner.UserID, title: "lamp", price: "0", policy: deadlineIn(f.clock, time.Hour)},
		{name: "empty_title", ownerID: f.owner.UserID, title: " ", price: "100", policy: deadlineIn(f.clock, time.Hour), expectedError: auctionerrors.ErrInvalidInput},
		{name: "negative_price", ownerID: f.owner.UserID, title: "lamp", price: "-1", policy: deadlineIn(f.clock, time.Hour), expectedError: auctionerrors.ErrInvalidInput},
		{name: "no_policy", ownerID: f.owner.UserID, title: "lamp", price: "100", expectedError: auctionerrors.ErrInvalidInput},
		{name: "deadline_in_past", ownerID: f.owner.UserID, title: "lamp", price: "100", policy: models.ClosingPolicy{Deadline: &past}, expectedError: auctionerrors.ErrInvalidInput},
		{name: "deadline_is_now", ownerID: f.owner.UserID, title: "lamp", price: "100", policy: models.ClosingPolicy{Deadline: &now}, expectedError: auctionerrors.ErrInvalidInput},
		{name: "threshold_of_one", ownerID: f.owner.UserID, title: "lamp", price: "100", policy: thresholdOf("1"), expectedError: auctionerrors.ErrInvalidInput},
		{name: "unknown_owner", ownerID: "ghost", title: "lamp", price: "100", policy: thresholdOf("2"), expectedError: auctionerrors.ErrUnknownOwner},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			a, err := f.svc.CreateAuction(ctx, tc.ownerID, tc.title, "", dec(tc.price), tc.policy)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, a.AuctionID)
			require.Equal(t, models.StatusOpen, a.Status)
			require.Empty(t, a.Bids)

			view, err := f.svc.GetAuctionView(ctx, a.AuctionID)
			require.NoError(t, err)
			require.True(t, view.CurrentPrice.Equal(dec(tc.price)))
			require.Empty(t, view.HighestBidderID)
		})
	}
}

// Tests PlaceBid rule checks
func TestLedgerService_PlaceBid(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	open := f.auction(t, "100", deadlineIn(f.clock, time.Hour))

	_, err := f.svc.PlaceBid(ctx, open.AuctionID, f.b1.UserID, dec("150"))
	require.NoError(t, err)

	tests := []struct {
		name          string
		auctionID     string
		bidderID      string
		amount        string
		expectedError error
	}{
		{name: "higher_bid", auctionID: open.AuctionID, bidderID: f.b2.UserID, amount: "160"},
		{name: "zero_amount", auctionID: open.AuctionID, bidderID: f.b2.UserID, amount: "0", expectedError: auctionerrors.ErrInvalidInput},
		{name: "negative_amount", auctionID: open.AuctionID, bidderID: f.b2.UserID, amount: "-5", expectedError: auctionerrors.ErrInvalidInput},
		{name: "unknown_auction", auctionID: "nope", bidderID: f.b2.UserID, amount: "500", expectedError: auctionerrors.ErrUnknownAuction},
		{name: "unknown_bidder", auctionID: open.AuctionID, bidderID: "ghost", amount: "500", expectedError: auctionerrors.ErrUnknownBidder},
		{name: "owner_bids", auctionID: open.AuctionID, bidderID: f.owner.UserID, amount: "500", expectedError: auctionerrors.ErrSelfBidForbidden},
		{name: "equal_to_current", auctionID: open.AuctionID, bidderID: f.b1.UserID, amount: "160", expectedError: auctionerrors.ErrBidTooLow},
		{name: "below_current", auctionID: open.AuctionID, bidderID: f.b1.UserID, amount: "140", expectedError: auctionerrors.ErrBidTooLow},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			before, _ := f.svc.GetAuctionView(ctx, open.AuctionID)

			res, err := f.svc.PlaceBid(ctx, tc.auctionID, tc.bidderID, dec(tc.amount))
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				after, _ := f.svc.GetAuctionView(ctx, open.AuctionID)
				require.Equal(t, len(before.Bids), len(after.Bids), "rejected bid must not be recorded")
				require.True(t, before.CurrentPrice.Equal(after.CurrentPrice))
				return
			}
			require.NoError(t, err)
			require.True(t, res.CurrentPrice.Equal(dec(tc.amount)))
			require.Equal(t, models.StatusOpen, res.Status)
			require.Empty(t, res.WinnerID)
		})
	}
}

// Tests the BidTooLow details carried by the error
func TestLedgerService_PlaceBid_TooLowDetails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.auction(t, "100", deadlineIn(f.clock, time.Hour))

	_, err := f.svc.PlaceBid(context.Background(), a.AuctionID, f.b1.UserID, dec("100"))
	var tooLow *auctionerrors.BidTooLowError
	require.True(t, errors.As(err, &tooLow))
	require.True(t, tooLow.CurrentPrice.Equal(dec("100")))
	require.False(t, tooLow.Inclusive)
}

// Tests the minimum increment option
func TestLedgerService_PlaceBid_MinIncrement(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithMinIncrement(dec("0.01")))
	ctx := context.Background()
	a := f.auction(t, "100", deadlineIn(f.clock, time.Hour))
	require.True(t, f.svc.MinIncrement().Equal(dec("0.01")))

	_, err := f.svc.PlaceBid(ctx, a.AuctionID, f.b1.UserID, dec("100.005"))
	var tooLow *auctionerrors.BidTooLowError
	require.True(t, errors.As(err, &tooLow))
	require.True(t, tooLow.Inclusive)
	require.True(t, tooLow.MinRequired.Equal(dec("100.01")))

	_, err = f.svc.PlaceBid(ctx, a.AuctionID, f.b1.UserID, dec("100.01"))
	require.NoError(t, err)

	t.Run("negative_increment_ignored", func(t *testing.T) {
		svc := NewLedgerService(repository.NewMemoryRepo(), WithMinIncrement(dec("-1")))
		require.True(t, svc.MinIncrement().IsZero())
	})
}

// The price only rises: 100 start, 150 accepted, 140 rejected, 300 accepted
func TestLedgerService_BidSequence(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, "100", deadlineIn(f.clock, time.Hour))

	_, err := f.svc.PlaceBid(ctx, a.AuctionID, f.b1.UserID, dec("150"))
	require.NoError(t, err)

	_, err = f.svc.PlaceBid(ctx, a.AuctionID, f.b2.UserID, dec("140"))
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)

	_, err = f.svc.PlaceBid(ctx, a.AuctionID, f.b2.UserID, dec("300"))
	require.NoError(t, err)

	view, err := f.svc.GetAuctionView(ctx, a.AuctionID)
	require.NoError(t, err)
	require.True(t, view.CurrentPrice.Equal(dec("300")))
	require.Equal(t, f.b2.UserID, view.HighestBidderID)
	require.Len(t, view.Bids, 2)
	require.Equal(t, models.StatusOpen, view.Status)
}

// A bid reaching factor x starting price closes the auction in the same call
func TestLedgerService_ThresholdClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, "100", thresholdOf("3"))

	res, err := f.svc.PlaceBid(ctx, a.AuctionID, f.b1.UserID, dec("299.99"))
	require.NoError(t, err)
	require.Equal(t, models.StatusOpen, res.Status)

	res, err = f.svc.PlaceBid(ctx, a.AuctionID, f.b2.UserID, dec("300"))
	require.NoError(t, err)
	require.Equal(t, models.StatusClosed, res.Status)
	require.Equal(t, f.b2.UserID, res.WinnerID)

	view, err := f.svc.GetAuctionView(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusClosed, view.Status)
	require.Equal(t, models.CloseReasonThreshold, view.CloseReason)
	require.Equal(t, f.b2.UserID, view.HighestBidderID)

	_, err = f.svc.PlaceBid(ctx, a.AuctionID, f.b1.UserID, dec("1000"))
	require.ErrorIs(t, err, auctionerrors.ErrAuctionClosed)
}

// With a zero starting price any bid satisfies the threshold
func TestLedgerService_ThresholdZeroStart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.auction(t, "0", thresholdOf("2"))

	res, err := f.svc.PlaceBid(context.Background(), a.AuctionID, f.b1.UserID, dec("0.01"))
	require.NoError(t, err)
	require.Equal(t, models.StatusClosed, res.Status)
}

// An elapsed deadline closes the auction lazily and rejects further bids
func TestLedgerService_DeadlineClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, "100", deadlineIn(f.clock, time.Hour))
	deadline := *a.Policy.Deadline

	_, err := f.svc.PlaceBid(ctx, a.AuctionID, f.b1.UserID, dec("120"))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)

	_, err = f.svc.PlaceBid(ctx, a.AuctionID, f.b2.UserID, dec("500"))
	require.ErrorIs(t, err, auctionerrors.ErrAuctionClosed)

	view, err := f.svc.GetAuctionView(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusClosed, view.Status)
	require.Equal(t, models.CloseReasonDeadline, view.CloseReason)
	require.Equal(t, f.b1.UserID, view.HighestBidderID)
	require.True(t, view.CurrentPrice.Equal(dec("120")))
	require.NotNil(t, view.ClosedAt)
	require.True(t, view.ClosedAt.Equal(deadline))
}

// Reading an auction past its deadline closes it without any bid
func TestLedgerService_DeadlineCloseOnRead(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, "100", deadlineIn(f.clock, time.Minute))

	f.clock.Advance(2 * time.Minute)

	views := f.svc.ListAuctions(ctx)
	require.Len(t, views, 1)
	require.Equal(t, models.StatusClosed, views[0].Status)
	require.Empty(t, views[0].HighestBidderID)

	_, err := f.svc.CloseAuction(ctx, a.AuctionID, f.owner.UserID)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionAlreadyClosed)
}

// Tests CloseAuction
func TestLedgerService_CloseAuction(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	withBids := f.auction(t, "100", deadlineIn(f.clock, time.Hour))
	noBids := f.auction(t, "50", thresholdOf("2"))

	_, err := f.svc.PlaceBid(ctx, withBids.AuctionID, f.b1.UserID, dec("110"))
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, withBids.AuctionID, f.b2.UserID, dec("130"))
	require.NoError(t, err)

	tests := []struct {
		name          string
		auctionID     string
		requesterID   string
		expectedError error
		wantWinner    string
		wantPrice     string
	}{
		{name: "unknown_auction", auctionID: "nope", requesterID: f.owner.UserID, expectedError: auctionerrors.ErrUnknownAuction},
		{name: "not_owner", auctionID: withBids.AuctionID, requesterID: f.b1.UserID, expectedError: auctionerrors.ErrNotOwner},
		{name: "owner_closes_with_bids", auctionID: withBids.AuctionID, requesterID: f.owner.UserID, wantWinner: f.b2.UserID, wantPrice: "130"},
		{name: "second_close", auctionID: withBids.AuctionID, requesterID: f.owner.UserID, expectedError: auctionerrors.ErrAuctionAlreadyClosed},
		{name: "owner_closes_without_bids", auctionID: noBids.AuctionID, requesterID: f.owner.UserID, wantPrice: "50"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.svc.CloseAuction(ctx, tc.auctionID, tc.requesterID)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, models.StatusClosed, res.Status)
			require.Equal(t, tc.wantWinner, res.WinnerID)
			require.Equal(t, tc.wantWinner != "", res.HasWinner())
			require.True(t, res.FinalPrice.Equal(dec(tc.wantPrice)))

			view, err := f.svc.GetAuctionView(ctx, tc.auctionID)
			require.NoError(t, err)
			require.Equal(t, models.CloseReasonOwner, view.CloseReason)
		})
	}

	_, err = f.svc.PlaceBid(ctx, withBids.AuctionID, f.b1.UserID, dec("1000"))
	require.ErrorIs(t, err, auctionerrors.ErrAuctionClosed)
}

// Concurrent bids never leave the price below an accepted bid
func TestLedgerService_ConcurrentBids(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	a := f.auction(t, "1", deadlineIn(f.clock, time.Hour))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []decimal.Decimal
	)
	bidders := []string{f.b1.UserID, f.b2.UserID}
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(i + 1))
			_, err := f.svc.PlaceBid(ctx, a.AuctionID, bidders[i%2], amount)
			if err != nil {
				require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
				return
			}
			mu.Lock()
			accepted = append(accepted, amount)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	auctions := f.svc.ListAuctions(ctx)
	require.Len(t, auctions, 1)
	view := auctions[0]
	require.Len(t, view.Bids, len(accepted))
	require.True(t, view.CurrentPrice.Equal(decimal.NewFromInt(101)), "the largest bid always wins eventually")

	for _, amt := range accepted {
		require.True(t, view.CurrentPrice.GreaterThanOrEqual(amt))
	}
}

// Tests listing, per-bidder lookup and recent bids
func TestLedgerService_Listings(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	late := f.auction(t, "10", deadlineIn(f.clock, 3*time.Hour))
	noDeadline := f.auction(t, "10", thresholdOf("5"))
	soon := f.auction(t, "10", deadlineIn(f.clock, time.Hour))

	views := f.svc.ListAuctions(ctx)
	require.Len(t, views, 3)
	require.Equal(t, soon.AuctionID, views[0].AuctionID)
	require.Equal(t, late.AuctionID, views[1].AuctionID)
	require.Equal(t, noDeadline.AuctionID, views[2].AuctionID)

	for i, id := range []string{late.AuctionID, soon.AuctionID, late.AuctionID} {
		f.clock.Advance(time.Second)
		_, err := f.svc.PlaceBid(ctx, id, f.b1.UserID, decimal.NewFromInt(int64(20+i*10)))
		require.NoError(t, err)
	}

	byBidder, err := f.svc.AuctionsByBidder(ctx, f.b1.UserID)
	require.NoError(t, err)
	require.Len(t, byBidder, 2)
	require.Equal(t, late.AuctionID, byBidder[0].AuctionID)
	require.Equal(t, soon.AuctionID, byBidder[1].AuctionID)

	none, err := f.svc.AuctionsByBidder(ctx, f.b2.UserID)
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = f.svc.AuctionsByBidder(ctx, "ghost")
	require.ErrorIs(t, err, auctionerrors.ErrUnknownUser)

	recent := f.svc.RecentBids(ctx, 2)
	require.Len(t, recent, 2)
	require.True(t, recent[0].Amount.Equal(dec("40")))
	require.True(t, recent[1].Amount.Equal(dec("30")))
	require.Len(t, f.svc.RecentBids(ctx, 0), 3)

	u, err := f.svc.GetUser(ctx, f.b1.UserID)
	require.NoError(t, err)
	require.Equal(t, "bidder1", u.Name)
	_, err = f.svc.GetUser(ctx, "ghost")
	require.ErrorIs(t, err, auctionerrors.ErrUnknownUser)
}

// A failed save is reported but the change stays applied
func TestLedgerService_PersistenceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockSnapshotStore(ctrl)
	clock := newFakeClock()
	svc := NewLedgerService(repository.NewMemoryRepo(), WithStore(store), WithClock(clock.Now))
	ctx := context.Background()

	store.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	owner, err := svc.RegisterUser(ctx, "owner", "owner@example.com", "")
	require.NoError(t, err)
	bidder, err := svc.RegisterUser(ctx, "bidder", "bidder@example.com", "")
	require.NoError(t, err)
	a, err := svc.CreateAuction(ctx, owner.UserID, "lamp", "", dec("100"), deadlineIn(clock, time.Hour))
	require.NoError(t, err)

	store.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	res, err := svc.PlaceBid(ctx, a.AuctionID, bidder.UserID, dec("150"))
	require.ErrorIs(t, err, auctionerrors.ErrPersistence)
	require.True(t, res.CurrentPrice.Equal(dec("150")), "the result is still returned")

	view, err := svc.GetAuctionView(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Len(t, view.Bids, 1)

	t.Run("failed_save_on_deadline_close", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		store.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := svc.PlaceBid(ctx, a.AuctionID, bidder.UserID, dec("500"))
		require.ErrorIs(t, err, auctionerrors.ErrAuctionClosed)
		require.ErrorIs(t, err, auctionerrors.ErrPersistence)
	})
}

// Each mutation saves the full state
func TestLedgerService_SavesSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := NewMockSnapshotStore(ctrl)
	svc := NewLedgerService(repository.NewMemoryRepo(), WithStore(store))
	ctx := context.Background()

	store.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, users []models.User, auctions []models.Auction) error {
			require.Len(t, users, 1)
			require.Equal(t, "alice", users[0].Name)
			require.Empty(t, auctions)
			return nil
		})

	_, err := svc.RegisterUser(ctx, "alice", "alice@example.com", "")
	require.NoError(t, err)
}

// Tests Restore
func TestLedgerService_Restore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	users := []models.User{
		{UserID: "u1", Name: "owner", Contact: "o@example.com"},
		{UserID: "u2", Name: "bidder", Contact: "b@example.com"},
	}
	auctions := []models.Auction{{
		AuctionID:     "a1",
		Title:         "lamp",
		StartingPrice: dec("100"),
		OwnerID:       "u1",
		Policy:        models.ClosingPolicy{Deadline: &deadline},
		Status:        models.StatusOpen,
		Bids:          []models.Bid{{BidID: "b1", AuctionID: "a1", BidderID: "u2", Amount: dec("150")}},
	}}

	t.Run("loads_snapshot", func(t *testing.T) {
		store := NewMockSnapshotStore(ctrl)
		store.EXPECT().LoadSnapshot(gomock.Any()).Return(users, auctions, nil)

		svc := NewLedgerService(repository.NewMemoryRepo(), WithStore(store))
		require.NoError(t, svc.Restore(ctx))

		view, err := svc.GetAuctionView(ctx, "a1")
		require.NoError(t, err)
		require.True(t, view.CurrentPrice.Equal(dec("150")))
		require.Equal(t, "u2", view.HighestBidderID)
	})

	t.Run("load_error", func(t *testing.T) {
		store := NewMockSnapshotStore(ctrl)
		store.EXPECT().LoadSnapshot(gomock.Any()).Return(nil, nil, errors.New("corrupt"))

		svc := NewLedgerService(repository.NewMemoryRepo(), WithStore(store))
		require.Error(t, svc.Restore(ctx))
	})

	t.Run("repo_rejects_snapshot", func(t *testing.T) {
		store := NewMockSnapshotStore(ctrl)
		mockRepo := repository.NewMockAuctionDB(ctrl)
		store.EXPECT().LoadSnapshot(gomock.Any()).Return(users, auctions, nil)
		mockRepo.EXPECT().Restore(users, auctions).Return(auctionerrors.ErrUnknownOwner)

		svc := NewLedgerService(mockRepo, WithStore(store))
		require.ErrorIs(t, svc.Restore(ctx), auctionerrors.ErrUnknownOwner)
	})

	t.Run("no_store", func(t *testing.T) {
		svc := NewLedgerService(repository.NewMemoryRepo())
		require.NoError(t, svc.Restore(ctx))
	})
}

// Repository failures are wrapped and surfaced
func TestLedgerService_RepositoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	svc := NewLedgerService(mockRepo)
	ctx := context.Background()

	deadline := time.Now().Add(time.Hour)
	auction := models.Auction{
		AuctionID:     "a1",
		StartingPrice: dec("100"),
		OwnerID:       "owner",
		Policy:        models.ClosingPolicy{Deadline: &deadline},
		Status:        models.StatusOpen,
	}

	mockRepo.EXPECT().GetAuction("a1").Return(auction, nil)
	mockRepo.EXPECT().GetUser("bidder").Return(models.User{UserID: "bidder"}, nil)
	mockRepo.EXPECT().RecordBidForAuction(gomock.Any()).Return(fmt.Errorf("repo write failed"))

	_, err := svc.PlaceBid(ctx, "a1", "bidder", dec("150"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "repo write failed")

	mockRepo.EXPECT().AddUser(gomock.Any()).Return(auctionerrors.ErrDuplicateIdentity)
	_, err = svc.RegisterUser(ctx, "alice", "alice@example.com", "")
	require.ErrorIs(t, err, auctionerrors.ErrDuplicateIdentity)
}
