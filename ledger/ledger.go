// Copyright (c) 2025 BVK Chaitanya

// Package ledger keeps a journal of finished auctions in a key-value
// database. Results are stored under "/results/<item-id>/<uid>" keys.
//
// The journal is a historical record; snipers are never resumed from it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/bvk/auctionsniper/gobs"
	"github.com/bvk/auctionsniper/kvutil"
	"github.com/bvk/auctionsniper/sniper"
	"github.com/bvkgo/kv"
	"github.com/google/uuid"
)

const Keyspace = "/results/"

type Ledger struct {
	db kv.Database
}

func New(db kv.Database) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil: %w", os.ErrInvalid)
	}
	return &Ledger{db: db}, nil
}

func resultKey(itemID, uid string) string {
	return path.Join(Keyspace, itemID, uid)
}

// itemDir returns the directory for the results of an item. Item ids that
// would name a directory outside the keyspace are rejected.
func itemDir(itemID string) (string, error) {
	if len(itemID) == 0 || itemID == "." || itemID == ".." || path.Base(itemID) != itemID {
		return "", fmt.Errorf("item id %q is invalid: %w", itemID, os.ErrInvalid)
	}
	dir := path.Join(Keyspace, itemID)
	if !strings.HasPrefix(dir, Keyspace) || path.Dir(dir)+"/" != Keyspace {
		return "", fmt.Errorf("item id %q is invalid: %w", itemID, os.ErrInvalid)
	}
	return dir, nil
}

// NewResult creates the journal record for a sniper with its final snapshot.
func NewResult(s *sniper.Sniper, final sniper.Snapshot, finishedAt time.Time) *gobs.AuctionResult {
	return &gobs.AuctionResult{
		UID:        s.UID(),
		ItemID:     final.ItemID,
		SniperID:   s.Self(),
		State:      string(final.State),
		LastPrice:  final.LastPrice,
		LastBid:    final.LastBid,
		NumBids:    s.NumBids(),
		JoinedAt:   s.JoinedAt(),
		FinishedAt: finishedAt,
	}
}

func check(r *gobs.AuctionResult) error {
	if r == nil {
		return fmt.Errorf("result cannot be nil: %w", os.ErrInvalid)
	}
	if _, err := uuid.Parse(r.UID); err != nil {
		return fmt.Errorf("result uid %q is not a uuid: %w", r.UID, os.ErrInvalid)
	}
	if _, err := itemDir(r.ItemID); err != nil {
		return fmt.Errorf("result: %w", err)
	}
	state := sniper.State(r.State)
	if err := state.Check(); err != nil {
		return fmt.Errorf("result for item %q: %w: %w", r.ItemID, err, os.ErrInvalid)
	}
	if !state.IsTerminal() {
		return fmt.Errorf("result for item %q is not final (%s): %w", r.ItemID, state, os.ErrInvalid)
	}
	return nil
}

// Save adds a result to the journal. Results are never overwritten.
func (l *Ledger) Save(ctx context.Context, r *gobs.AuctionResult) error {
	if err := check(r); err != nil {
		return err
	}
	key := resultKey(r.ItemID, r.UID)
	save := func(ctx context.Context, rw kv.ReadWriter) error {
		if _, err := rw.Get(ctx, key); err == nil {
			return fmt.Errorf("result %q already exists: %w", key, os.ErrExist)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return kvutil.Set(ctx, rw, key, r)
	}
	if err := kv.WithReadWriter(ctx, l.db, save); err != nil {
		return fmt.Errorf("could not save auction result: %w", err)
	}
	return nil
}

func (l *Ledger) Load(ctx context.Context, itemID, uid string) (*gobs.AuctionResult, error) {
	if _, err := itemDir(itemID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(uid); err != nil {
		return nil, fmt.Errorf("result uid %q is not a uuid: %w", uid, os.ErrInvalid)
	}
	return kvutil.GetDB[gobs.AuctionResult](ctx, l.db, resultKey(itemID, uid))
}

// List returns the results for an item ordered by their finish time. All
// results are returned when item id is empty.
func (l *Ledger) List(ctx context.Context, itemID string) ([]*gobs.AuctionResult, error) {
	dir := Keyspace
	if len(itemID) != 0 {
		d, err := itemDir(itemID)
		if err != nil {
			return nil, err
		}
		dir = d
	}
	begin, end := kvutil.PathRange(dir)

	var results []*gobs.AuctionResult
	collect := func(ctx context.Context, r kv.Reader, key string, v *gobs.AuctionResult) error {
		results = append(results, v)
		return nil
	}
	if err := kvutil.AscendDB(ctx, l.db, begin, end, collect); err != nil {
		return nil, fmt.Errorf("could not list auction results: %w", err)
	}

	slices.SortStableFunc(results, func(a, b *gobs.AuctionResult) int {
		return a.FinishedAt.Compare(b.FinishedAt)
	})
	return results, nil
}
