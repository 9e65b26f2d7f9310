// Copyright (c) 2025 BVK Chaitanya

package sniper

import (
	"math"
	"testing"

	"github.com/bvk/auctionsniper/auction"
)

const self = "sniper"

func TestNextTable(t *testing.T) {
	type testCase struct {
		current Snapshot
		event   auction.Event
		want    Snapshot
		bid     int64 // zero means no bid
	}

	item := "item-54321"
	other := auction.PriceReported{Price: 1000, Increment: 98, Bidder: "other bidder"}
	mine := auction.PriceReported{Price: 1098, Increment: 97, Bidder: self}

	testCases := []testCase{
		{Joining(item), other, Snapshot{item, 1000, 1098, BIDDING}, 1098},
		{Joining(item), mine, Snapshot{item, 1098, 1098, WINNING}, 0},
		{Joining(item), auction.Closed{}, Snapshot{item, 0, 0, LOST}, 0},

		{Snapshot{item, 900, 950, BIDDING}, other, Snapshot{item, 1000, 1098, BIDDING}, 1098},
		{Snapshot{item, 1000, 1098, BIDDING}, mine, Snapshot{item, 1098, 1098, WINNING}, 0},
		{Snapshot{item, 1000, 1098, BIDDING}, auction.Closed{}, Snapshot{item, 1000, 1098, LOST}, 0},

		{Snapshot{item, 900, 800, LOSING}, other, Snapshot{item, 1000, 1098, BIDDING}, 1098},
		{Snapshot{item, 900, 800, LOSING}, mine, Snapshot{item, 1098, 1098, WINNING}, 0},
		{Snapshot{item, 900, 800, LOSING}, auction.Closed{}, Snapshot{item, 900, 800, LOST}, 0},

		{Snapshot{item, 1098, 1098, WINNING}, mine, Snapshot{item, 1098, 1098, WINNING}, 0},
		{Snapshot{item, 900, 900, WINNING}, other, Snapshot{item, 1000, 1098, BIDDING}, 1098},
		{Snapshot{item, 1098, 1098, WINNING}, auction.Closed{}, Snapshot{item, 1098, 1098, WON}, 0},
	}

	for i, tc := range testCases {
		got, bid := Next(tc.current, tc.event, self)
		if got != tc.want {
			t.Errorf("%d: %s + %#v: want %v, got %v", i, tc.current, tc.event, tc.want, got)
		}
		if tc.bid == 0 && bid != nil {
			t.Errorf("%d: want no bid, got %v", i, *bid)
		}
		if tc.bid != 0 && (bid == nil || bid.Amount != tc.bid) {
			t.Errorf("%d: want bid %d, got %v", i, tc.bid, bid)
		}
	}
}

func allEvents() []auction.Event {
	return []auction.Event{
		auction.Closed{},
		auction.PriceReported{Price: 0, Increment: 0, Bidder: "other"},
		auction.PriceReported{Price: 1000, Increment: 98, Bidder: "other bidder"},
		auction.PriceReported{Price: 1098, Increment: 97, Bidder: self},
		auction.PriceReported{Price: 521, Increment: 22, Bidder: "Sniper"},
		auction.PriceReported{Price: math.MaxInt64, Increment: 1, Bidder: "other"},
	}
}

func allSnapshots() []Snapshot {
	var snaps []Snapshot
	for _, s := range States {
		snaps = append(snaps, Snapshot{ItemID: "item", LastPrice: 100, LastBid: 110, State: s})
	}
	return snaps
}

func TestNextIsDeterministic(t *testing.T) {
	for _, snap := range allSnapshots() {
		for _, ev := range allEvents() {
			before := snap
			s1, b1 := Next(snap, ev, self)
			s2, b2 := Next(snap, ev, self)
			if snap != before {
				t.Fatalf("input snapshot is modified")
			}
			if s1 != s2 {
				t.Fatalf("%v + %#v: results differ: %v != %v", snap, ev, s1, s2)
			}
			if (b1 == nil) != (b2 == nil) || (b1 != nil && *b1 != *b2) {
				t.Fatalf("%v + %#v: bids differ: %v != %v", snap, ev, b1, b2)
			}
		}
	}
}

func TestTerminalAbsorption(t *testing.T) {
	for _, state := range []State{WON, LOST} {
		snap := Snapshot{ItemID: "item", LastPrice: 1098, LastBid: 1098, State: state}
		for _, ev := range allEvents() {
			got, bid := Next(snap, ev, self)
			if got != snap {
				t.Fatalf("%v + %#v: want unchanged, got %v", snap, ev, got)
			}
			if bid != nil {
				t.Fatalf("%v + %#v: want no bid, got %v", snap, ev, *bid)
			}
		}
	}
}

func TestBidAmount(t *testing.T) {
	for _, snap := range allSnapshots() {
		for _, ev := range allEvents() {
			_, bid := Next(snap, ev, self)
			if bid == nil {
				continue
			}
			price, ok := ev.(auction.PriceReported)
			if !ok {
				t.Fatalf("bid issued for non-price event %#v", ev)
			}
			if bid.Amount != price.Price+price.Increment {
				t.Fatalf("want bid %d, got %d", price.Price+price.Increment, bid.Amount)
			}
		}
	}
}

func TestOwnPriceNeverBids(t *testing.T) {
	for _, snap := range allSnapshots() {
		if snap.State.IsTerminal() {
			continue
		}
		ev := auction.PriceReported{Price: 1098, Increment: 97, Bidder: self}
		got, bid := Next(snap, ev, self)
		if bid != nil {
			t.Fatalf("%v: want no bid for own price, got %v", snap, *bid)
		}
		if got.State != WINNING {
			t.Fatalf("%v: want WINNING, got %v", snap, got.State)
		}
		if got.LastBid != got.LastPrice {
			t.Fatalf("winning snapshot must have last bid equal to last price: %v", got)
		}
	}
}

func TestOverflowDoesNotBid(t *testing.T) {
	ev := auction.PriceReported{Price: math.MaxInt64, Increment: 1, Bidder: "other"}
	got, bid := Next(Joining("item"), ev, self)
	if bid != nil {
		t.Fatalf("want no bid, got %v", *bid)
	}
	if got.State != LOSING || got.LastPrice != math.MaxInt64 {
		t.Fatalf("want LOSING at max price, got %v", got)
	}
}

func TestScenarioJoinThenLose(t *testing.T) {
	snap := Joining("item-54321")
	snap, bid := Next(snap, auction.Closed{}, self)
	if bid != nil || snap.State != LOST {
		t.Fatalf("want LOST without bids, got %v, %v", snap, bid)
	}
}

func TestScenarioOutbidThenWin(t *testing.T) {
	snap := Joining("item-54321")

	snap, bid := Next(snap, auction.PriceReported{Price: 1000, Increment: 98, Bidder: "other"}, self)
	if bid == nil || bid.Amount != 1098 {
		t.Fatalf("want bid 1098, got %v", bid)
	}
	if snap.State != BIDDING {
		t.Fatalf("want BIDDING, got %v", snap.State)
	}

	snap, bid = Next(snap, auction.PriceReported{Price: 1098, Increment: 97, Bidder: self}, self)
	if bid != nil || snap.State != WINNING {
		t.Fatalf("want WINNING without bid, got %v, %v", snap, bid)
	}

	snap, bid = Next(snap, auction.Closed{}, self)
	if bid != nil || snap.State != WON {
		t.Fatalf("want WON without bid, got %v, %v", snap, bid)
	}
	if snap.LastPrice != 1098 {
		t.Fatalf("want last price 1098, got %d", snap.LastPrice)
	}
}
