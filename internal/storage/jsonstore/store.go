// Package jsonstore keeps the ledger snapshot in a single JSON document that is
// rewritten in full on every save.
package jsonstore

import (
	model "auction-ledger/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// document is the on-disk layout
type document struct {
	Users    []model.User    `json:"users"`
	Auctions []model.Auction `json:"auctions"`
}

// FileStore persists snapshots to a JSON file
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path. The file is created on first save.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("jsonstore: data file path cannot be empty")
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// LoadSnapshot reads the file. A missing file is an empty snapshot; a corrupt one is an error.
func (s *FileStore) LoadSnapshot(ctx context.Context) ([]model.User, []model.Auction, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []model.User{}, []model.Auction{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("jsonstore: read %s: %w", s.path, err)
	}
	if len(raw) == 0 {
		return []model.User{}, []model.Auction{}, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("jsonstore: decode %s: %w", s.path, err)
	}
	if doc.Users == nil {
		doc.Users = []model.User{}
	}
	if doc.Auctions == nil {
		doc.Auctions = []model.Auction{}
	}
	for i := range doc.Auctions {
		if doc.Auctions[i].Bids == nil {
			doc.Auctions[i].Bids = []model.Bid{}
		}
	}
	return doc.Users, doc.Auctions, nil
}

// SaveSnapshot writes the whole snapshot to a temp file and renames it over the old one
func (s *FileStore) SaveSnapshot(ctx context.Context, users []model.User, auctions []model.Auction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(document{Users: users, Auctions: auctions}, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonstore: encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonstore: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonstore: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("jsonstore: replace %s: %w", s.path, err)
	}
	return nil
}
