// Package sqlitestore keeps the ledger snapshot in a SQLite database.
package sqlitestore

import (
	model "auction-ledger/internal/models"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const timeLayout = time.RFC3339Nano

// Store persists snapshots as rows; every save replaces the previous snapshot in one transaction
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path and applies migrations
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlitestore: database path cannot be empty")
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(log.StandardLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlitestore: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("sqlitestore: run migrations: %w", err)
	}
	return nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces all stored rows with users and auctions
func (s *Store) SaveSnapshot(ctx context.Context, users []model.User, auctions []model.Auction) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"bids", "auctions", "users"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlitestore: clear %s: %w", table, err)
		}
	}

	if err = insertUsers(ctx, tx, users); err != nil {
		return err
	}
	if err = insertAuctions(ctx, tx, auctions); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return nil
}

func insertUsers(ctx context.Context, tx *sql.Tx, users []model.User) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO users (id, seq, name, contact, password_hash, password_salt, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare users insert: %w", err)
	}
	defer stmt.Close()

	for i, u := range users {
		if _, err := stmt.ExecContext(ctx, u.UserID, i, u.Name, u.Contact, u.PasswordHash, u.PasswordSalt, formatTime(u.CreatedAt)); err != nil {
			return fmt.Errorf("sqlitestore: insert user %s: %w", u.UserID, err)
		}
	}
	return nil
}

func insertAuctions(ctx context.Context, tx *sql.Tx, auctions []model.Auction) error {
	auctionStmt, err := tx.PrepareContext(ctx, `INSERT INTO auctions
		(id, seq, title, description, starting_price, owner_id, deadline, threshold_multiple, status, close_reason, closed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare auctions insert: %w", err)
	}
	defer auctionStmt.Close()

	bidStmt, err := tx.PrepareContext(ctx, `INSERT INTO bids (id, auction_id, seq, bidder_id, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlitestore: prepare bids insert: %w", err)
	}
	defer bidStmt.Close()

	for i, a := range auctions {
		threshold := decimal.NullDecimal{}
		if a.Policy.ThresholdMultiple != nil {
			threshold = decimal.NewNullDecimal(*a.Policy.ThresholdMultiple)
		}
		_, err := auctionStmt.ExecContext(ctx,
			a.AuctionID, i, a.Title, a.Description, a.StartingPrice, a.OwnerID,
			nullTime(a.Policy.Deadline), threshold, string(a.Status), string(a.CloseReason),
			nullTime(a.ClosedAt), formatTime(a.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("sqlitestore: insert auction %s: %w", a.AuctionID, err)
		}

		for j, b := range a.Bids {
			if _, err := bidStmt.ExecContext(ctx, b.BidID, a.AuctionID, j, b.BidderID, b.Amount, formatTime(b.CreatedAt)); err != nil {
				return fmt.Errorf("sqlitestore: insert bid %s: %w", b.BidID, err)
			}
		}
	}
	return nil
}

// LoadSnapshot reads every row back in insertion order
func (s *Store) LoadSnapshot(ctx context.Context) ([]model.User, []model.Auction, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, nil, err
	}
	auctions, err := s.loadAuctions(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := s.loadBids(ctx, auctions); err != nil {
		return nil, nil, err
	}
	return users, auctions, nil
}

func (s *Store) loadUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, contact, password_hash, password_salt, created_at FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var (
			u         model.User
			createdAt string
		)
		if err := rows.Scan(&u.UserID, &u.Name, &u.Contact, &u.PasswordHash, &u.PasswordSalt, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan user: %w", err)
		}
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: iterate users: %w", err)
	}
	return users, nil
}

func (s *Store) loadAuctions(ctx context.Context) ([]model.Auction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description, starting_price, owner_id, deadline,
		threshold_multiple, status, close_reason, closed_at, created_at FROM auctions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: query auctions: %w", err)
	}
	defer rows.Close()

	auctions := []model.Auction{}
	for rows.Next() {
		var (
			a                   model.Auction
			deadline, closedAt  sql.NullString
			threshold           decimal.NullDecimal
			status, closeReason string
			createdAt           string
		)
		if err := rows.Scan(&a.AuctionID, &a.Title, &a.Description, &a.StartingPrice, &a.OwnerID, &deadline,
			&threshold, &status, &closeReason, &closedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan auction: %w", err)
		}

		a.Status = model.AuctionStatus(status)
		a.CloseReason = model.CloseReason(closeReason)
		if threshold.Valid {
			f := threshold.Decimal
			a.Policy.ThresholdMultiple = &f
		}
		if a.Policy.Deadline, err = parseNullTime(deadline); err != nil {
			return nil, err
		}
		if a.ClosedAt, err = parseNullTime(closedAt); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		a.Bids = []model.Bid{}
		auctions = append(auctions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitestore: iterate auctions: %w", err)
	}
	return auctions, nil
}

func (s *Store) loadBids(ctx context.Context, auctions []model.Auction) error {
	index := make(map[string]int, len(auctions))
	for i, a := range auctions {
		index[a.AuctionID] = i
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, auction_id, bidder_id, amount, created_at FROM bids ORDER BY auction_id, seq`)
	if err != nil {
		return fmt.Errorf("sqlitestore: query bids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b         model.Bid
			createdAt string
		)
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.BidderID, &b.Amount, &createdAt); err != nil {
			return fmt.Errorf("sqlitestore: scan bid: %w", err)
		}
		if b.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		i, ok := index[b.AuctionID]
		if !ok {
			return fmt.Errorf("sqlitestore: bid %s references missing auction %s", b.BidID, b.AuctionID)
		}
		auctions[i].Bids = append(auctions[i].Bids, b)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlitestore: iterate bids: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlitestore: parse time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
