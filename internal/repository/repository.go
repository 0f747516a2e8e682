package repository

import (
	"auction-ledger/internal/auctionerrors"
	model "auction-ledger/internal/models"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// AuctionDB defines the in-memory state storage used by the ledger
type AuctionDB interface {
	AddUser(user model.User) error
	GetUser(userID string) (model.User, error)
	GetUserByName(name string) (model.User, error)
	ListUsers() []model.User

	AddAuction(auction model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions() []model.Auction
	RecordBidForAuction(bid model.Bid) error
	CloseAuction(auctionID string, reason model.CloseReason, at time.Time) error

	GetAuctionsByBidder(userID string) ([]model.Auction, error)
	GetRecentBids(limit int) []model.Bid

	Snapshot() ([]model.User, []model.Auction)
	Restore(users []model.User, auctions []model.Auction) error
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// Every read returns a copy so callers never share slices with the repo.
type MemoryRepo struct {
	mu            sync.RWMutex
	users         map[string]model.User    // key: userID
	userNames     map[string]string        // key: folded name -> userID
	userContacts  map[string]string        // key: folded contact -> userID
	userOrder     []string                 // registration order
	auctions      map[string]model.Auction // key: auctionID
	auctionOrder  []string                 // creation order
	bidderAuction map[string][]string      // key: userID -> auctionIDs the user has bid on
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	r := &MemoryRepo{}
	r.reset()
	return r
}

func (r *MemoryRepo) reset() {
	r.users = make(map[string]model.User)
	r.userNames = make(map[string]string)
	r.userContacts = make(map[string]string)
	r.userOrder = nil
	r.auctions = make(map[string]model.Auction)
	r.auctionOrder = nil
	r.bidderAuction = make(map[string][]string)
}

// fold normalizes identities; names and contacts are unique case-insensitively
func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AddUser stores a new user, rejecting a name or contact that is already taken
func (r *MemoryRepo) AddUser(user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addUserLocked(user)
}

func (r *MemoryRepo) addUserLocked(user model.User) error {
	if user.UserID == "" {
		return fmt.Errorf("add user: %w - empty user id", auctionerrors.ErrInvalidInput)
	}
	if _, ok := r.users[user.UserID]; ok {
		return fmt.Errorf("add user %s: %w", user.UserID, auctionerrors.ErrDuplicateIdentity)
	}
	if _, ok := r.userNames[fold(user.Name)]; ok {
		return fmt.Errorf("add user %q: %w - name taken", user.Name, auctionerrors.ErrDuplicateIdentity)
	}
	if _, ok := r.userContacts[fold(user.Contact)]; ok {
		return fmt.Errorf("add user %q: %w - contact taken", user.Name, auctionerrors.ErrDuplicateIdentity)
	}

	r.users[user.UserID] = user
	r.userNames[fold(user.Name)] = user.UserID
	r.userContacts[fold(user.Contact)] = user.UserID
	r.userOrder = append(r.userOrder, user.UserID)
	return nil
}

// GetUser returns a user by id
func (r *MemoryRepo) GetUser(userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUnknownUser)
	}
	return u, nil
}

// GetUserByName looks a user up by name, ignoring case
func (r *MemoryRepo) GetUserByName(name string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.userNames[fold(name)]
	if !ok {
		return model.User{}, fmt.Errorf("get user by name %q: %w", name, auctionerrors.ErrUnknownUser)
	}
	return r.users[id], nil
}

// ListUsers returns all users in registration order
func (r *MemoryRepo) ListUsers() []model.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]model.User, 0, len(r.userOrder))
	for _, id := range r.userOrder {
		users = append(users, r.users[id])
	}
	return users
}

// AddAuction stores a new auction
func (r *MemoryRepo) AddAuction(auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addAuctionLocked(auction)
}

func (r *MemoryRepo) addAuctionLocked(auction model.Auction) error {
	if auction.AuctionID == "" {
		return fmt.Errorf("add auction: %w - empty auction id", auctionerrors.ErrInvalidInput)
	}
	if _, ok := r.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("add auction %s: %w - id already used", auction.AuctionID, auctionerrors.ErrInvalidInput)
	}

	stored := auction.Clone()
	r.auctions[auction.AuctionID] = stored
	r.auctionOrder = append(r.auctionOrder, auction.AuctionID)
	for _, b := range stored.Bids {
		r.indexBidderLocked(b.BidderID, b.AuctionID)
	}
	return nil
}

// GetAuction returns a copy of an auction and its bids
func (r *MemoryRepo) GetAuction(auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrUnknownAuction)
	}
	return a.Clone(), nil
}

// ListAuctions returns copies of all auctions in creation order
func (r *MemoryRepo) ListAuctions() []model.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(r.auctionOrder))
	for _, id := range r.auctionOrder {
		auctions = append(auctions, r.auctions[id].Clone())
	}
	return auctions
}

// RecordBidForAuction appends a bid to the auction's history
func (r *MemoryRepo) RecordBidForAuction(bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[bid.AuctionID]
	if !ok {
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrUnknownAuction)
	}
	if !a.IsOpen() {
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionClosed)
	}

	a.Bids = append(a.Bids, bid)
	r.auctions[bid.AuctionID] = a
	r.indexBidderLocked(bid.BidderID, bid.AuctionID)
	return nil
}

func (r *MemoryRepo) indexBidderLocked(userID, auctionID string) {
	for _, id := range r.bidderAuction[userID] {
		if id == auctionID {
			return
		}
	}
	r.bidderAuction[userID] = append(r.bidderAuction[userID], auctionID)
}

// CloseAuction moves an open auction to Closed. Closing is terminal.
func (r *MemoryRepo) CloseAuction(auctionID string, reason model.CloseReason, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrUnknownAuction)
	}
	if !a.IsOpen() {
		return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAuctionAlreadyClosed)
	}

	closedAt := at
	a.Status = model.StatusClosed
	a.CloseReason = reason
	a.ClosedAt = &closedAt
	r.auctions[auctionID] = a
	return nil
}

// GetAuctionsByBidder returns all auctions a user has bid on, in order of their first bid
func (r *MemoryRepo) GetAuctionsByBidder(userID string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.bidderAuction[userID]
	auctions := make([]model.Auction, 0, len(ids))
	for _, id := range ids {
		if a, ok := r.auctions[id]; ok {
			auctions = append(auctions, a.Clone())
		}
	}
	return auctions, nil
}

// GetRecentBids returns up to limit bids across all auctions, newest first
func (r *MemoryRepo) GetRecentBids(limit int) []model.Bid {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bids []model.Bid
	for _, id := range r.auctionOrder {
		bids = append(bids, r.auctions[id].Bids...)
	}
	// bid ids are time-ordered, so they settle equal timestamps
	sort.Slice(bids, func(i, j int) bool {
		if !bids[i].CreatedAt.Equal(bids[j].CreatedAt) {
			return bids[i].CreatedAt.After(bids[j].CreatedAt)
		}
		return bids[i].BidID > bids[j].BidID
	})
	if limit > 0 && len(bids) > limit {
		bids = bids[:limit]
	}
	if bids == nil {
		bids = []model.Bid{}
	}
	return bids
}

// Snapshot returns copies of all users and auctions in insertion order
func (r *MemoryRepo) Snapshot() ([]model.User, []model.Auction) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]model.User, 0, len(r.userOrder))
	for _, id := range r.userOrder {
		users = append(users, r.users[id])
	}
	auctions := make([]model.Auction, 0, len(r.auctionOrder))
	for _, id := range r.auctionOrder {
		auctions = append(auctions, r.auctions[id].Clone())
	}
	return users, auctions
}

// Restore replaces the whole state. On error the previous state is kept.
func (r *MemoryRepo) Restore(users []model.User, auctions []model.Auction) error {
	next := NewMemoryRepo()
	for _, u := range users {
		if err := next.addUserLocked(u); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	for _, a := range auctions {
		if _, ok := next.users[a.OwnerID]; !ok {
			return fmt.Errorf("restore auction %s: %w", a.AuctionID, auctionerrors.ErrUnknownOwner)
		}
		if err := next.addAuctionLocked(a); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = next.users
	r.userNames = next.userNames
	r.userContacts = next.userContacts
	r.userOrder = next.userOrder
	r.auctions = next.auctions
	r.auctionOrder = next.auctionOrder
	r.bidderAuction = next.bidderAuction
	return nil
}
