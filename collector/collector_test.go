// Copyright (c) 2025 BVK Chaitanya

package collector

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bvk/auctionsniper/auction"
	"github.com/bvk/auctionsniper/auction/memauction"
	"github.com/bvk/auctionsniper/sniper"
	"github.com/visvasity/topic"
)

const self = "sniper"

func waitForState(t *testing.T, c *Collector, itemID string, state sniper.State) sniper.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s, err := c.Get(itemID)
		if err != nil {
			t.Fatal(err)
		}
		if snap := s.Snapshot(); snap.State == state {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s to become %s", itemID, state)
	return sniper.Snapshot{}
}

func TestCollectorIsolation(t *testing.T) {
	ctx := context.Background()
	server := memauction.NewServer()

	c, err := New(self, server, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Add(ctx, "item-A"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Add(ctx, "item-B"); err != nil {
		t.Fatal(err)
	}
	if n := c.Len(); n != 2 {
		t.Fatalf("want 2 snipers, got %d", n)
	}

	a, _ := server.Auction("item-A")
	b, _ := server.Auction("item-B")

	a.ReportPrice(1000, 98, "other bidder")
	waitForState(t, c, "item-A", sniper.BIDDING)

	a.ReportPrice(1098, 97, self)
	waitForState(t, c, "item-A", sniper.WINNING)

	a.AnnounceClosed()
	final := waitForState(t, c, "item-A", sniper.WON)
	if final.LastPrice != 1098 {
		t.Fatalf("want final price 1098, got %d", final.LastPrice)
	}

	if snap := waitForState(t, c, "item-B", sniper.JOINING); snap != sniper.Joining("item-B") {
		t.Fatalf("want item-B to be untouched, got %v", snap)
	}
	if cmds := b.Commands(); len(cmds) != 1 || cmds[0] != (auction.Join{}) {
		t.Fatalf("want only the join command for item-B, got %v", cmds)
	}

	snaps := c.Snapshots()
	if len(snaps) != 2 || snaps[0].ItemID != "item-A" || snaps[1].ItemID != "item-B" {
		t.Fatalf("want snapshots sorted by item id, got %v", snaps)
	}
	if c.AllFinished() {
		t.Fatalf("want AllFinished to be false while item-B is active")
	}
}

func TestCollectorDuplicate(t *testing.T) {
	ctx := context.Background()
	server := memauction.NewServer()

	c, err := New(self, server, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	first, err := c.Add(ctx, "item-A")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Add(ctx, "item-A"); !errors.Is(err, ErrDuplicate) || !errors.Is(err, os.ErrExist) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if n := c.Len(); n != 1 {
		t.Fatalf("want 1 sniper, got %d", n)
	}
	if s, err := c.Get("item-A"); err != nil || s != first {
		t.Fatalf("want the first sniper to stay registered, got %v, %v", s, err)
	}
	a, _ := server.Auction("item-A")
	if cmds := a.Commands(); len(cmds) != 1 {
		t.Fatalf("want a single join, got %v", cmds)
	}
}

func TestCollectorInvalidItem(t *testing.T) {
	ctx := context.Background()
	c, err := New(self, memauction.NewServer(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	for _, id := range []string{"", " item", "a/b", "a;b", ".", ".."} {
		if _, err := c.Add(ctx, id); !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("%q: want os.ErrInvalid, got %v", id, err)
		}
	}
}

func TestCollectorJoinFailure(t *testing.T) {
	ctx := context.Background()
	server := memauction.NewServer()

	c, err := New(self, server, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	a := server.Open("item-A")
	a.FailSends(errors.New("network is down"))

	if _, err := c.Add(ctx, "item-A"); !errors.Is(err, sniper.ErrSendFailed) {
		t.Fatalf("want ErrSendFailed, got %v", err)
	}
	if n := c.Len(); n != 0 {
		t.Fatalf("want an empty collector after join failure, got %d", n)
	}
	if _, err := c.Get("item-A"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}
	if err := a.Send(ctx, auction.Join{}); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want the auction channel to be closed, got %v", err)
	}

	// Item can be added again.
	if _, err := c.Add(ctx, "item-A"); err != nil {
		t.Fatal(err)
	}
}

type failingDialer struct{}

func (failingDialer) Dial(ctx context.Context, itemID string) (auction.Channel, error) {
	return nil, os.ErrPermission
}

func TestCollectorDialFailure(t *testing.T) {
	c, err := New(self, failingDialer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Add(context.Background(), "item-A"); !errors.Is(err, os.ErrPermission) {
		t.Fatalf("want os.ErrPermission, got %v", err)
	}
	if n := c.Len(); n != 0 {
		t.Fatalf("want an empty collector, got %d", n)
	}
}

func TestCollectorReapAndWait(t *testing.T) {
	ctx := context.Background()
	server := memauction.NewServer()

	var mu sync.Mutex
	var finished []sniper.Snapshot
	opts := &Options{
		OnFinished: func(s *sniper.Sniper, final sniper.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			finished = append(finished, final)
		},
	}

	c, err := New(self, server, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if !c.AllFinished() {
		t.Fatalf("want AllFinished for an empty collector")
	}
	if err := c.WaitFinished(ctx); err != nil {
		t.Fatalf("want nil for an empty collector, got %v", err)
	}

	for _, id := range []string{"item-A", "item-B"} {
		if _, err := c.Add(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.Reap("item-A"); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("want ErrNotFinished, got %v", err)
	}
	if err := c.Reap("item-X"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}

	sctx, scancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer scancel()
	if err := c.WaitFinished(sctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want context.DeadlineExceeded, got %v", err)
	}

	a, _ := server.Auction("item-A")
	b, _ := server.Auction("item-B")
	a.AnnounceClosed()
	b.ReportPrice(500, 10, self)
	b.AnnounceClosed()

	wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
	defer wcancel()
	if err := c.WaitFinished(wctx); err != nil {
		t.Fatal(err)
	}
	if !c.AllFinished() {
		t.Fatalf("want AllFinished after auctions are closed")
	}

	mu.Lock()
	if len(finished) != 2 {
		t.Fatalf("want 2 finished callbacks, got %v", finished)
	}
	mu.Unlock()

	if s, _ := c.Get("item-B"); s.Snapshot().State != sniper.WON {
		t.Fatalf("want item-B WON, got %v", s.Snapshot())
	}

	if err := c.Reap("item-A"); err != nil {
		t.Fatal(err)
	}
	if n := c.Len(); n != 1 {
		t.Fatalf("want 1 sniper after reap, got %d", n)
	}
	if err := c.Reap("item-A"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist after reap, got %v", err)
	}
}

func TestCollectorUpdates(t *testing.T) {
	ctx := context.Background()
	server := memauction.NewServer()

	c, err := New(self, server, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	updates, err := c.Updates()
	if err != nil {
		t.Fatal(err)
	}
	defer updates.Close()
	updatesCh, err := topic.ReceiveCh(updates)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Add(ctx, "item-A"); err != nil {
		t.Fatal(err)
	}
	a, _ := server.Auction("item-A")
	a.ReportPrice(1000, 98, "other bidder")
	a.AnnounceClosed()

	want := []sniper.State{sniper.JOINING, sniper.BIDDING, sniper.LOST}
	for i, w := range want {
		select {
		case snap := <-updatesCh:
			if snap.State != w {
				t.Fatalf("%d: want %s, got %v", i, w, snap)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%d: timed out waiting for update", i)
		}
	}
}

func TestCollectorClose(t *testing.T) {
	ctx := context.Background()
	server := memauction.NewServer()

	c, err := New(self, server, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Add(ctx, "item-A"); err != nil {
		t.Fatal(err)
	}
	a, _ := server.Auction("item-A")

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Send(ctx, auction.Join{}); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want auction channel to be closed, got %v", err)
	}
	if _, err := c.Add(ctx, "item-B"); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want os.ErrClosed, got %v", err)
	}
	if err := c.WaitFinished(ctx); err == nil {
		t.Fatalf("want an error from a closed collector with active snipers")
	}
}
