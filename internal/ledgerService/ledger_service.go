package ledger

import (
	"auction-ledger/internal/auctionerrors"
	"auction-ledger/internal/credentials"
	"auction-ledger/internal/models"
	"auction-ledger/internal/repository"
	"auction-ledger/utils"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRecentBidsLimit is used when RecentBids is called without a positive limit
const DefaultRecentBidsLimit = 10

// SnapshotStore persists the full ledger state. It is loaded once at start-up
// and saved after every mutation.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) ([]models.User, []models.Auction, error)
	SaveSnapshot(ctx context.Context, users []models.User, auctions []models.Auction) error
}

// Clock returns the current time; injected so deadlines can be tested deterministically
type Clock func() time.Time

// Option configures a LedgerService
type Option func(*LedgerService)

// WithClock replaces the system clock
func WithClock(clock Clock) Option {
	return func(s *LedgerService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithStore attaches a persistence adapter
func WithStore(store SnapshotStore) Option {
	return func(s *LedgerService) {
		s.store = store
	}
}

// WithMinIncrement requires each bid to exceed the current price by at least inc.
// Zero keeps the plain "strictly greater" rule.
func WithMinIncrement(inc decimal.Decimal) Option {
	return func(s *LedgerService) {
		if !inc.IsNegative() {
			s.minIncrement = inc
		}
	}
}

// LedgerService owns users, auctions and bids and enforces the bidding rules
type LedgerService struct {
	repo         repository.AuctionDB
	store        SnapshotStore
	now          Clock
	minIncrement decimal.Decimal

	// mu serializes every mutation so a bid check and its append are atomic
	mu sync.Mutex
}

// NewLedgerService creates a new LedgerService instance
func NewLedgerService(repo repository.AuctionDB, opts ...Option) *LedgerService {
	s := &LedgerService{
		repo:         repo,
		now:          func() time.Time { return time.Now().UTC() },
		minIncrement: decimal.Zero,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MinIncrement returns the configured minimum bid increment
func (s *LedgerService) MinIncrement() decimal.Decimal {
	return s.minIncrement
}

// Restore loads the persisted snapshot into memory. Without a store it is a no-op.
func (s *LedgerService) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, auctions, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("ledger: failed to load snapshot: %w", err)
	}
	if err := s.repo.Restore(users, auctions); err != nil {
		return fmt.Errorf("ledger: failed to restore snapshot: %w", err)
	}

	utils.Info("ledger restored", map[string]any{
		"users":    len(users),
		"auctions": len(auctions),
	})
	return nil
}

// persistLocked saves the current state. Callers must hold s.mu.
func (s *LedgerService) persistLocked(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	users, auctions := s.repo.Snapshot()
	if err := s.store.SaveSnapshot(ctx, users, auctions); err != nil {
		utils.Error("ledger: snapshot save failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("ledger: %w: %w", auctionerrors.ErrPersistence, err)
	}
	return nil
}

// RegisterUser creates a user with a unique name and contact. password is optional.
func (s *LedgerService) RegisterUser(ctx context.Context, name, contact, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	if name == "" || contact == "" {
		return models.User{}, fmt.Errorf("ledger: %w - name and contact are required", auctionerrors.ErrInvalidInput)
	}

	user := models.User{
		UserID:    utils.GenerateID(),
		Name:      name,
		Contact:   contact,
		CreatedAt: s.now(),
	}
	if password != "" {
		hash, salt, err := credentials.Hash(password)
		if err != nil {
			return models.User{}, fmt.Errorf("ledger: failed to hash password: %w", err)
		}
		user.PasswordHash, user.PasswordSalt = hash, salt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.AddUser(user); err != nil {
		return models.User{}, fmt.Errorf("ledger: failed to register user %q: %w", name, err)
	}
	return user, s.persistLocked(ctx)
}

// Authenticate returns the user whose name and password match
func (s *LedgerService) Authenticate(_ context.Context, name, password string) (models.User, error) {
	user, err := s.repo.GetUserByName(strings.TrimSpace(name))
	if err != nil {
		return models.User{}, fmt.Errorf("ledger: %w", auctionerrors.ErrInvalidCredentials)
	}
	if !user.HasPassword() || !credentials.Verify(password, user.PasswordHash, user.PasswordSalt) {
		return models.User{}, fmt.Errorf("ledger: %w", auctionerrors.ErrInvalidCredentials)
	}
	return user, nil
}

// GetUser returns a registered user
func (s *LedgerService) GetUser(_ context.Context, userID string) (models.User, error) {
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return models.User{}, fmt.Errorf("ledger: %w", err)
	}
	return user, nil
}

// ListUsers returns all users ordered by name
func (s *LedgerService) ListUsers(_ context.Context) []models.User {
	users := s.repo.ListUsers()
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Name) < strings.ToLower(users[j].Name)
	})
	return users
}

// CreateAuction opens a new auction owned by ownerID
func (s *LedgerService) CreateAuction(ctx context.Context, ownerID, title, description string, startingPrice decimal.Decimal, policy models.ClosingPolicy) (models.Auction, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Auction{}, fmt.Errorf("ledger: %w - title is required", auctionerrors.ErrInvalidInput)
	}
	if startingPrice.IsNegative() {
		return models.Auction{}, fmt.Errorf("ledger: %w - negative starting price", auctionerrors.ErrInvalidInput)
	}
	if policy.IsEmpty() {
		return models.Auction{}, fmt.Errorf("ledger: %w - a deadline or threshold multiple is required", auctionerrors.ErrInvalidInput)
	}

	now := s.now()
	if policy.Deadline != nil && !policy.Deadline.After(now) {
		return models.Auction{}, fmt.Errorf("ledger: %w - deadline must be in the future", auctionerrors.ErrInvalidInput)
	}
	if policy.ThresholdMultiple != nil && !policy.ThresholdMultiple.GreaterThan(decimal.NewFromInt(1)) {
		return models.Auction{}, fmt.Errorf("ledger: %w - threshold multiple must be greater than 1", auctionerrors.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetUser(ownerID); err != nil {
		return models.Auction{}, fmt.Errorf("ledger: %w - owner %s", auctionerrors.ErrUnknownOwner, ownerID)
	}

	auction := models.Auction{
		AuctionID:     utils.GenerateID(),
		Title:         title,
		Description:   strings.TrimSpace(description),
		StartingPrice: startingPrice,
		OwnerID:       ownerID,
		Policy:        policy,
		Status:        models.StatusOpen,
		Bids:          []models.Bid{},
		CreatedAt:     now,
	}

	if err := s.repo.AddAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("ledger: failed to create auction: %w", err)
	}
	return auction, s.persistLocked(ctx)
}

// PlaceBid validates and records a bid. A bid that reaches the threshold
// multiple closes the auction in the same step.
func (s *LedgerService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.BidResult, error) {
	if !amount.IsPositive() {
		return models.BidResult{}, fmt.Errorf("ledger: %w - non-positive bid amount", auctionerrors.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	auction, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return models.BidResult{}, fmt.Errorf("ledger: %w", err)
	}

	now := s.now()
	if expired, err := s.expireLocked(ctx, auction, now); expired {
		return models.BidResult{}, errors.Join(
			fmt.Errorf("ledger: %w - deadline passed", auctionerrors.ErrAuctionClosed), err)
	}
	if !auction.IsOpen() {
		return models.BidResult{}, fmt.Errorf("ledger: %w", auctionerrors.ErrAuctionClosed)
	}

	if _, err := s.repo.GetUser(bidderID); err != nil {
		return models.BidResult{}, fmt.Errorf("ledger: %w - bidder %s", auctionerrors.ErrUnknownBidder, bidderID)
	}
	if bidderID == auction.OwnerID {
		return models.BidResult{}, fmt.Errorf("ledger: %w", auctionerrors.ErrSelfBidForbidden)
	}

	if err := s.checkAmount(auction.CurrentPrice(), amount); err != nil {
		return models.BidResult{}, fmt.Errorf("ledger: %w", err)
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: now,
	}
	if err := s.repo.RecordBidForAuction(bid); err != nil {
		return models.BidResult{}, fmt.Errorf("ledger: failed to record bid for auction %s by user %s: %w", auctionID, bidderID, err)
	}

	result := models.BidResult{
		Bid:          bid,
		CurrentPrice: amount,
		Status:       models.StatusOpen,
	}

	if auction.Policy.ThresholdReached(auction.StartingPrice, amount) {
		if err := s.repo.CloseAuction(auctionID, models.CloseReasonThreshold, now); err != nil {
			return models.BidResult{}, fmt.Errorf("ledger: failed to close auction %s: %w", auctionID, err)
		}
		result.Status = models.StatusClosed
		result.WinnerID = bidderID
		utils.Info("auction closed by threshold", map[string]any{
			"auction_id": auctionID,
			"winner_id":  bidderID,
			"amount":     amount.String(),
		})
	}

	return result, s.persistLocked(ctx)
}

// checkAmount enforces "strictly greater than current" and the optional minimum increment
func (s *LedgerService) checkAmount(current, amount decimal.Decimal) error {
	if s.minIncrement.IsPositive() {
		minRequired := current.Add(s.minIncrement)
		if amount.LessThan(minRequired) {
			return &auctionerrors.BidTooLowError{CurrentPrice: current, MinRequired: minRequired, Inclusive: true}
		}
		return nil
	}
	if !amount.GreaterThan(current) {
		return &auctionerrors.BidTooLowError{CurrentPrice: current, MinRequired: current}
	}
	return nil
}

// CloseAuction lets the owner close an open auction. The winner is the current highest bidder, if any.
func (s *LedgerService) CloseAuction(ctx context.Context, auctionID, requesterID string) (models.CloseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return models.CloseResult{}, fmt.Errorf("ledger: %w", err)
	}
	if requesterID != auction.OwnerID {
		return models.CloseResult{}, fmt.Errorf("ledger: %w", auctionerrors.ErrNotOwner)
	}

	now := s.now()
	if expired, err := s.expireLocked(ctx, auction, now); expired {
		return models.CloseResult{}, errors.Join(
			fmt.Errorf("ledger: %w - deadline passed", auctionerrors.ErrAuctionAlreadyClosed), err)
	}
	if !auction.IsOpen() {
		return models.CloseResult{}, fmt.Errorf("ledger: %w", auctionerrors.ErrAuctionAlreadyClosed)
	}

	if err := s.repo.CloseAuction(auctionID, models.CloseReasonOwner, now); err != nil {
		return models.CloseResult{}, fmt.Errorf("ledger: failed to close auction %s: %w", auctionID, err)
	}

	result := models.CloseResult{
		AuctionID:  auctionID,
		Status:     models.StatusClosed,
		WinnerID:   auction.HighestBidderID(),
		FinalPrice: auction.CurrentPrice(),
	}
	return result, s.persistLocked(ctx)
}

// expireLocked closes auction if its deadline has passed and saves the snapshot.
// It reports whether it closed the auction; the error is only a persistence failure.
func (s *LedgerService) expireLocked(ctx context.Context, auction models.Auction, now time.Time) (bool, error) {
	if !s.closeExpiredLocked(auction, now) {
		return false, nil
	}
	return true, s.persistLocked(ctx)
}

// closeExpiredLocked closes an open auction whose deadline has passed, without saving
func (s *LedgerService) closeExpiredLocked(auction models.Auction, now time.Time) bool {
	if !auction.IsOpen() || !auction.Policy.DeadlinePassed(now) {
		return false
	}
	// the auction stays closed as of its deadline, not as of the moment it was noticed
	if err := s.repo.CloseAuction(auction.AuctionID, models.CloseReasonDeadline, *auction.Policy.Deadline); err != nil {
		return false
	}
	utils.Info("auction closed by deadline", map[string]any{
		"auction_id": auction.AuctionID,
		"winner_id":  auction.HighestBidderID(),
	})
	return true
}

// GetAuctionView returns the read-only projection of an auction, closing it first if its deadline passed
func (s *LedgerService) GetAuctionView(ctx context.Context, auctionID string) (models.AuctionView, error) {
	auction, err := s.repo.GetAuction(auctionID)
	if err != nil {
		return models.AuctionView{}, fmt.Errorf("ledger: %w", err)
	}

	if auction.IsOpen() && auction.Policy.DeadlinePassed(s.now()) {
		utils.Debug("deadline reached on read", map[string]any{
			"auction_id": auctionID,
			"deadline":   auction.Policy.Deadline.Format(time.RFC3339),
		})
		s.mu.Lock()
		auction, err = s.repo.GetAuction(auctionID)
		if err == nil {
			// a persistence failure here is already logged; the view is still accurate
			_, _ = s.expireLocked(ctx, auction, s.now())
			auction, err = s.repo.GetAuction(auctionID)
		}
		s.mu.Unlock()
		if err != nil {
			return models.AuctionView{}, fmt.Errorf("ledger: %w", err)
		}
	}

	return models.NewAuctionView(auction), nil
}

// ListAuctions returns every auction, soonest deadline first; auctions without a deadline come last
func (s *LedgerService) ListAuctions(ctx context.Context) []models.AuctionView {
	s.expireAll(ctx)

	auctions := s.repo.ListAuctions()
	sort.SliceStable(auctions, func(i, j int) bool {
		di, dj := auctions[i].Policy.Deadline, auctions[j].Policy.Deadline
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})

	views := make([]models.AuctionView, 0, len(auctions))
	for _, a := range auctions {
		views = append(views, models.NewAuctionView(a))
	}
	return views
}

// expireAll closes every open auction whose deadline has passed and saves once
func (s *LedgerService) expireAll(ctx context.Context) {
	now := s.now()
	due := false
	for _, a := range s.repo.ListAuctions() {
		if a.IsOpen() && a.Policy.DeadlinePassed(now) {
			due = true
			break
		}
	}
	if !due {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	closed := 0
	for _, a := range s.repo.ListAuctions() {
		if s.closeExpiredLocked(a, now) {
			closed++
		}
	}
	if closed > 0 {
		// a failure is logged by persistLocked; listings stay accurate in memory
		_ = s.persistLocked(ctx)
	}
}

// AuctionsByBidder returns the auctions a user has bid on, in order of the user's first bid
func (s *LedgerService) AuctionsByBidder(ctx context.Context, userID string) ([]models.AuctionView, error) {
	if _, err := s.repo.GetUser(userID); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	s.expireAll(ctx)

	auctions, err := s.repo.GetAuctionsByBidder(userID)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to get auctions for user %s: %w", userID, err)
	}

	views := make([]models.AuctionView, 0, len(auctions))
	for _, a := range auctions {
		views = append(views, models.NewAuctionView(a))
	}
	return views, nil
}

// RecentBids returns the latest bids across all auctions, newest first
func (s *LedgerService) RecentBids(_ context.Context, limit int) []models.Bid {
	if limit <= 0 {
		limit = DefaultRecentBidsLimit
	}
	return s.repo.GetRecentBids(limit)
}
