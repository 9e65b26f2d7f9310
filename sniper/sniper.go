// Copyright (c) 2025 BVK Chaitanya

// Package sniper implements the bidding engine for a single auction item.
//
// Next is the bidding policy as a pure function over snapshots. Sniper binds
// the policy to an auction channel: a single worker (Run) applies the events
// from the channel in their delivery order, publishes the resulting snapshots
// to the observers and sends the bids.
package sniper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bvk/auctionsniper/auction"
	"github.com/google/uuid"
	"github.com/visvasity/topic"
)

var ErrSendFailed = errors.New("could not send auction command")

// Observer receives sniper status updates. Observers are invoked
// synchronously from the sniper's worker in their registration order, so they
// must not block for long. The same snapshot may be reported more than once.
type Observer interface {
	SniperChanged(snapshot Snapshot)

	// SniperFailed reports a failure that didn't crash the sniper, like a bid
	// that could not be sent or a malformed auction message.
	SniperFailed(snapshot Snapshot, err error)
}

type Sniper struct {
	uid    string
	itemID string
	self   string

	channel auction.Channel

	observers []Observer

	snapshot atomic.Pointer[Snapshot]

	joined  atomic.Bool
	running atomic.Bool

	closeOnce sync.Once

	joinedAt time.Time
	numBids  atomic.Int64

	events   *topic.Receiver[auction.Event]
	failures *topic.Receiver[*auction.ParseError]
}

// New creates a sniper for an item on the given auction channel. The sniper
// bids under the identity self. Channel subscriptions are created here, so
// events delivered after the Join command are never missed.
func New(itemID, self string, ch auction.Channel, observers ...Observer) (_ *Sniper, status error) {
	if len(itemID) == 0 {
		return nil, fmt.Errorf("item id cannot be empty: %w", os.ErrInvalid)
	}
	if len(self) == 0 {
		return nil, fmt.Errorf("sniper identity cannot be empty: %w", os.ErrInvalid)
	}
	if ch == nil || ch.ItemID() != itemID {
		return nil, fmt.Errorf("auction channel is not for item %q: %w", itemID, os.ErrInvalid)
	}

	events, err := ch.GetEvents()
	if err != nil {
		return nil, fmt.Errorf("could not subscribe to auction events: %w", err)
	}
	defer func() {
		if status != nil {
			events.Close()
		}
	}()

	failures, err := ch.GetFailures()
	if err != nil {
		return nil, fmt.Errorf("could not subscribe to auction failures: %w", err)
	}

	s := &Sniper{
		uid:       uuid.New().String(),
		itemID:    itemID,
		self:      self,
		channel:   ch,
		observers: observers,
		events:    events,
		failures:  failures,
	}
	initial := Joining(itemID)
	s.snapshot.Store(&initial)
	return s, nil
}

func (s *Sniper) String() string {
	return "sniper:" + s.itemID
}

func (s *Sniper) UID() string {
	return s.uid
}

func (s *Sniper) ItemID() string {
	return s.itemID
}

func (s *Sniper) Self() string {
	return s.self
}

func (s *Sniper) JoinedAt() time.Time {
	return s.joinedAt
}

func (s *Sniper) NumBids() int {
	return int(s.numBids.Load())
}

// Snapshot returns the snapshot from the last completed transition. It never
// blocks.
func (s *Sniper) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Join sends the join command to the auction. It must be called once, before
// the events are processed.
func (s *Sniper) Join(ctx context.Context) error {
	if !s.joined.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: already joined: %w", s, os.ErrExist)
	}

	snap := s.Snapshot()
	s.notifyChanged(snap)

	if err := s.channel.Send(ctx, auction.Join{}); err != nil {
		err = fmt.Errorf("%s: could not join: %w: %w", s, ErrSendFailed, err)
		slog.Error("could not send join command", "sniper", s, "err", err)
		s.notifyFailed(snap, err)
		return err
	}
	s.joinedAt = time.Now()
	slog.Info("joined the auction", "sniper", s, "self", s.self, "uid", s.uid)
	return nil
}

// Run processes auction events until the sniper reaches a terminal state or
// the context is canceled. Run must be called at most once.
func (s *Sniper) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%s: worker is already started: %w", s, os.ErrExist)
	}
	defer s.Close()

	eventsCh, err := topic.ReceiveCh(s.events)
	if err != nil {
		return err
	}
	failuresCh, err := topic.ReceiveCh(s.failures)
	if err != nil {
		return err
	}

	for snap := s.Snapshot(); !snap.State.IsTerminal(); snap = s.Snapshot() {
		select {
		case <-ctx.Done():
			slog.Info("sniper is stopped before the auction is closed", "sniper", s, "snapshot", snap, "reason", context.Cause(ctx))
			return context.Cause(ctx)

		case ev, ok := <-eventsCh:
			if !ok {
				return fmt.Errorf("%s: auction event stream is closed: %w", s, os.ErrClosed)
			}
			if end, ok := ev.(auction.StreamEnded); ok {
				slog.Error("auction connection is lost before the auction is closed", "sniper", s, "snapshot", snap, "err", end.Err)
				return fmt.Errorf("%s: auction connection is lost: %w: %w", s, os.ErrClosed, end.Err)
			}
			s.apply(ctx, ev)

		case perr, ok := <-failuresCh:
			if !ok {
				failuresCh = nil
				continue
			}
			slog.Warn("ignoring malformed auction message", "sniper", s, "raw", perr.Raw, "reason", perr.Reason)
			s.notifyFailed(snap, perr)
		}
	}

	slog.Info("auction is finished", "sniper", s, "snapshot", s.Snapshot(), "bids", s.NumBids())
	return nil
}

// Close releases the channel subscriptions. Run closes the sniper when it
// returns; the auction channel itself is not closed.
func (s *Sniper) Close() {
	s.closeOnce.Do(func() {
		s.events.Close()
		s.failures.Close()
	})
}

// apply performs one transition. A bid that cannot be sent leaves the sniper
// LOSING at the reported price with the previous bid.
func (s *Sniper) apply(ctx context.Context, ev auction.Event) {
	current := s.Snapshot()
	next, bid := Next(current, ev, s.self)

	if bid != nil {
		if err := s.channel.Send(ctx, bid); err != nil {
			err = fmt.Errorf("%s: could not send bid %d: %w: %w", s, bid.Amount, ErrSendFailed, err)
			slog.Error("could not send bid (not retried)", "sniper", s, "amount", bid.Amount, "err", err)
			losing := current.Losing(next.LastPrice)
			s.publish(losing)
			s.notifyFailed(losing, err)
			return
		}
		s.numBids.Add(1)
		slog.Info("sent bid", "sniper", s, "amount", bid.Amount, "price", next.LastPrice)
	}
	s.publish(next)
}

func (s *Sniper) publish(snap Snapshot) {
	s.snapshot.Store(&snap)
	s.notifyChanged(snap)
}

func (s *Sniper) notifyChanged(snap Snapshot) {
	for _, o := range s.observers {
		o.SniperChanged(snap)
	}
}

func (s *Sniper) notifyFailed(snap Snapshot, err error) {
	for _, o := range s.observers {
		o.SniperFailed(snap, err)
	}
}
