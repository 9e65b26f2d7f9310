// Copyright (c) 2025 BVK Chaitanya

// Package collector runs multiple snipers, one per auction item, in a single
// process. Every sniper has its own auction channel and its own worker, so
// events for one item never affect another item's sniper.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bvk/auctionsniper/auction"
	"github.com/bvk/auctionsniper/ctxutil"
	"github.com/bvk/auctionsniper/sniper"
	"github.com/visvasity/topic"
)

var (
	ErrDuplicate   = fmt.Errorf("sniper for the item already exists: %w", os.ErrExist)
	ErrNotFinished = errors.New("sniper is not finished")
)

// Dialer opens an auction channel for an item.
type Dialer interface {
	Dial(ctx context.Context, itemID string) (auction.Channel, error)
}

type entry struct {
	itemID  string
	sniper  *sniper.Sniper
	channel auction.Channel

	// finished is set when the terminal snapshot is observed.
	finished atomic.Bool

	// ready, stopped and err are guarded by the collector's mutex. Entries that
	// are not ready are reservations for an Add in progress.
	ready   bool
	stopped bool
	err     error
}

type Collector struct {
	cg ctxutil.CloseGroup

	self   string
	dialer Dialer
	opts   Options

	updates *topic.Topic[sniper.Snapshot]

	adds sync.WaitGroup

	mu sync.Mutex

	closed bool

	entryMap map[string]*entry

	// changeCh is closed and replaced when any sniper is finished or stopped.
	changeCh chan struct{}
}

// New creates a collector that bids under the identity self on auction
// channels opened by the dialer.
func New(self string, dialer Dialer, opts *Options) (*Collector, error) {
	if len(self) == 0 {
		return nil, fmt.Errorf("sniper identity cannot be empty: %w", os.ErrInvalid)
	}
	if dialer == nil {
		return nil, fmt.Errorf("dialer cannot be nil: %w", os.ErrInvalid)
	}
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	c := &Collector{
		self:     self,
		dialer:   dialer,
		opts:     *opts,
		updates:  topic.New[sniper.Snapshot](),
		entryMap: make(map[string]*entry),
		changeCh: make(chan struct{}),
	}
	return c, nil
}

// Close stops all sniper workers and closes their auction channels. Snipers
// that are not finished are abandoned in their current state.
func (c *Collector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.adds.Wait()
	c.cg.Close()
	c.updates.Close()

	c.mu.Lock()
	c.broadcastLocked()
	c.mu.Unlock()
	return nil
}

func (c *Collector) Self() string {
	return c.self
}

func checkItemID(itemID string) error {
	if len(itemID) == 0 {
		return fmt.Errorf("item id cannot be empty: %w", os.ErrInvalid)
	}
	if itemID == "." || itemID == ".." {
		return fmt.Errorf("item id %q is reserved: %w", itemID, os.ErrInvalid)
	}
	if strings.TrimSpace(itemID) != itemID || strings.ContainsAny(itemID, "/;") {
		return fmt.Errorf("item id %q has invalid characters: %w", itemID, os.ErrInvalid)
	}
	return nil
}

// Add starts a new sniper for the item. The sniper joins the auction before
// Add returns. Items already in the collector are rejected with ErrDuplicate
// and the registry is unchanged.
func (c *Collector) Add(ctx context.Context, itemID string) (_ *sniper.Sniper, status error) {
	if err := checkItemID(itemID); err != nil {
		return nil, err
	}

	e := &entry{itemID: itemID}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("collector is closed: %w", os.ErrClosed)
	}
	if _, ok := c.entryMap[itemID]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("item %q: %w", itemID, ErrDuplicate)
	}
	c.entryMap[itemID] = e
	c.adds.Add(1)
	c.mu.Unlock()

	defer c.adds.Done()
	defer func() {
		if status != nil {
			c.mu.Lock()
			delete(c.entryMap, itemID)
			c.mu.Unlock()
		}
	}()

	ch, err := c.dialer.Dial(ctx, itemID)
	if err != nil {
		slog.Error("could not open auction channel", "item", itemID, "err", err)
		return nil, fmt.Errorf("could not open auction channel for item %q: %w", itemID, err)
	}
	defer func() {
		if status != nil {
			ch.Close()
		}
	}()

	observers := append([]sniper.Observer{&entryObserver{c: c, e: e}}, c.opts.Observers...)
	s, err := sniper.New(itemID, c.self, ch, observers...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if status != nil {
			s.Close()
		}
	}()
	e.sniper = s
	e.channel = ch

	if err := s.Join(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("collector is closed: %w", os.ErrClosed)
	}
	e.ready = true
	c.cg.Go(func(ctx context.Context) {
		c.runSniper(ctx, e)
	})
	slog.Info("added new sniper", "item", itemID, "uid", s.UID())
	return s, nil
}

func (c *Collector) runSniper(ctx context.Context, e *entry) {
	err := e.sniper.Run(ctx)
	if err != nil && !errors.Is(err, os.ErrClosed) {
		slog.Error("sniper stopped before the auction is closed", "item", e.itemID, "err", err)
	}
	if err := e.channel.Close(); err != nil {
		slog.Warn("could not close auction channel", "item", e.itemID, "err", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e.stopped = true
	e.err = err
	c.broadcastLocked()
}

func (c *Collector) broadcastLocked() {
	close(c.changeCh)
	c.changeCh = make(chan struct{})
}

// readyLocked returns the entries that completed their join.
func (c *Collector) readyLocked() []*entry {
	var entries []*entry
	for _, e := range c.entryMap {
		if e.ready {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b *entry) int {
		return strings.Compare(a.itemID, b.itemID)
	})
	return entries
}

// Get returns the sniper for an item.
func (c *Collector) Get(itemID string) (*sniper.Sniper, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entryMap[itemID]
	if !ok || !e.ready {
		return nil, fmt.Errorf("item %q: %w", itemID, os.ErrNotExist)
	}
	return e.sniper, nil
}

// Snipers returns all snipers ordered by their item id.
func (c *Collector) Snipers() []*sniper.Sniper {
	c.mu.Lock()
	defer c.mu.Unlock()

	var snipers []*sniper.Sniper
	for _, e := range c.readyLocked() {
		snipers = append(snipers, e.sniper)
	}
	return snipers
}

// Snapshots returns the current snapshots of all snipers ordered by their
// item id.
func (c *Collector) Snapshots() []sniper.Snapshot {
	var snaps []sniper.Snapshot
	for _, s := range c.Snipers() {
		snaps = append(snaps, s.Snapshot())
	}
	return snaps
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.readyLocked())
}

// AllFinished returns true if every sniper is in a terminal state. It is
// true for an empty collector.
func (c *Collector) AllFinished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.readyLocked() {
		if !e.sniper.Snapshot().State.IsTerminal() {
			return false
		}
	}
	return true
}

// WaitFinished blocks until every sniper is in a terminal state. Returns an
// error if a sniper has stopped without finishing or when the collector is
// closed.
func (c *Collector) WaitFinished(ctx context.Context) error {
	for {
		c.mu.Lock()
		finished := true
		for _, e := range c.readyLocked() {
			if e.sniper.Snapshot().State.IsTerminal() {
				continue
			}
			if e.stopped {
				c.mu.Unlock()
				return fmt.Errorf("sniper for item %q stopped before the auction is closed: %w", e.itemID, e.err)
			}
			finished = false
		}
		closed := c.closed
		changeCh := c.changeCh
		c.mu.Unlock()

		if finished {
			return nil
		}
		if closed {
			return fmt.Errorf("collector is closed: %w", os.ErrClosed)
		}

		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-changeCh:
		}
	}
}

// Reap removes a finished sniper from the collector. Snipers whose worker
// has stopped without finishing can also be removed.
func (c *Collector) Reap(itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entryMap[itemID]
	if !ok || !e.ready {
		return fmt.Errorf("item %q: %w", itemID, os.ErrNotExist)
	}
	if snap := e.sniper.Snapshot(); !snap.State.IsTerminal() && !e.stopped {
		return fmt.Errorf("item %q is in state %s: %w", itemID, snap.State, ErrNotFinished)
	}
	delete(c.entryMap, itemID)
	slog.Info("removed sniper", "item", itemID, "uid", e.sniper.UID(), "snapshot", e.sniper.Snapshot())
	return nil
}

// Updates subscribes to the snapshots published by all snipers. Snapshots
// from a single sniper are received in their publication order.
func (c *Collector) Updates() (*topic.Receiver[sniper.Snapshot], error) {
	return topic.Subscribe(c.updates, 0, false /* includeRecent */)
}

type entryObserver struct {
	c *Collector
	e *entry
}

func (v *entryObserver) SniperChanged(snap sniper.Snapshot) {
	v.c.updates.Send(snap)

	if !snap.State.IsTerminal() || !v.e.finished.CompareAndSwap(false, true) {
		return
	}
	slog.Info("auction is finished", "item", snap.ItemID, "state", snap.State, "price", snap.LastPrice, "bid", snap.LastBid)
	if v.c.opts.OnFinished != nil {
		v.c.opts.OnFinished(v.e.sniper, snap)
	}

	v.c.mu.Lock()
	v.c.broadcastLocked()
	v.c.mu.Unlock()
}

func (v *entryObserver) SniperFailed(snap sniper.Snapshot, err error) {
	slog.Warn("sniper reported a failure", "item", snap.ItemID, "state", snap.State, "err", err)
}
