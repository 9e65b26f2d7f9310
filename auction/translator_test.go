// Copyright (c) 2025 BVK Chaitanya

package auction

import (
	"errors"
	"testing"
)

type recorder struct {
	events   []Event
	failures []*ParseError
}

func (r *recorder) AuctionEvent(ev Event)           { r.events = append(r.events, ev) }
func (r *recorder) AuctionFailure(perr *ParseError) { r.failures = append(r.failures, perr) }

func TestTranslatePrice(t *testing.T) {
	r := new(recorder)
	tr := NewTranslator("item-54321", r)

	tr.Translate("SOLVersion: 1.1; Event: PRICE; CurrentPrice: 1000; Increment: 98; Bidder: other bidder;")
	if len(r.failures) != 0 {
		t.Fatalf("want no failures, got %v", r.failures)
	}
	if len(r.events) != 1 {
		t.Fatalf("want 1 event, got %d", len(r.events))
	}
	want := PriceReported{Price: 1000, Increment: 98, Bidder: "other bidder"}
	if r.events[0] != want {
		t.Fatalf("want %#v, got %#v", want, r.events[0])
	}
}

func TestTranslateClose(t *testing.T) {
	r := new(recorder)
	tr := NewTranslator("item-54321", r)

	// Other fields, even malformed numbers, are not inspected for CLOSE.
	tr.Translate("SOLVersion: 1.1; Event: CLOSE; CurrentPrice: abc;")
	if len(r.failures) != 0 {
		t.Fatalf("want no failures, got %v", r.failures)
	}
	if len(r.events) != 1 || r.events[0] != (Closed{}) {
		t.Fatalf("want a Closed event, got %#v", r.events)
	}
}

func TestTranslateFailures(t *testing.T) {
	msgs := []string{
		"SOLVersion: 1.1; Event: PRICE; CurrentPrice: abc; Increment: 98; Bidder: other;",
		"SOLVersion: 1.1; Event: PRICE; CurrentPrice: 1000; Bidder: other;",
		"SOLVersion: 1.1; Event: PRICE; CurrentPrice: 1000; Increment: 98;",
		"SOLVersion: 1.1; Event: PRICE; CurrentPrice: 1000; Increment: 98; Bidder: ;",
		"SOLVersion: 1.1; Event: PRICE; CurrentPrice: -1; Increment: 98; Bidder: other;",
		"SOLVersion: 1.1; Event: PRICE; CurrentPrice: 10.5; Increment: 98; Bidder: other;",
		"SOLVersion: 1.1; Event: AUCTION-PAUSED;",
		"SOLVersion: 1.1; CurrentPrice: 1000;",
		"SOLVersion: 1.1; Event PRICE;",
		"",
	}
	for _, msg := range msgs {
		r := new(recorder)
		NewTranslator("item-1", r).Translate(msg)
		if len(r.events) != 0 {
			t.Errorf("%q: want no events, got %#v", msg, r.events)
			continue
		}
		if len(r.failures) != 1 {
			t.Errorf("%q: want one failure, got %d", msg, len(r.failures))
			continue
		}
		perr := r.failures[0]
		if perr.Raw != msg || perr.ItemID != "item-1" {
			t.Errorf("%q: failure doesn't identify the message: %#v", msg, perr)
		}
		if !errors.Is(perr, ErrProtocolParse) {
			t.Errorf("%q: want ErrProtocolParse, got %v", msg, perr)
		}
	}
}

func TestParseMessageTolerance(t *testing.T) {
	testCases := []struct {
		raw  string
		want Event
	}{
		{
			raw:  "Bidder: sniper; Increment: 7; Event: PRICE; CurrentPrice: 192",
			want: PriceReported{Price: 192, Increment: 7, Bidder: "sniper"},
		},
		{
			raw:  "event=price;price=500;increment=21;bidder=other bidder",
			want: PriceReported{Price: 500, Increment: 21, Bidder: "other bidder"},
		},
		{
			// duplicate keys: the last occurrence wins
			raw:  "Event: PRICE; CurrentPrice: 1; CurrentPrice: 2; Increment: 3; Bidder: a; Bidder: b;",
			want: PriceReported{Price: 2, Increment: 3, Bidder: "b"},
		},
		{
			raw:  "  Event :  close ;",
			want: Closed{},
		},
	}

	for i, tc := range testCases {
		got, err := ParseMessage(tc.raw)
		if err != nil {
			t.Errorf("%d: %q: unexpected error %v", i, tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%d: want %#v, got %#v", i, tc.want, got)
		}
	}
}

func TestEventRoundTrip(t *testing.T) {
	events := []Event{
		PriceReported{Price: 1098, Increment: 97, Bidder: "sniper"},
		Closed{},
	}
	for _, ev := range events {
		raw, err := FormatEvent(ev)
		if err != nil {
			t.Fatal(err)
		}
		got, err := ParseMessage(raw)
		if err != nil {
			t.Fatal(err)
		}
		if got != ev {
			t.Fatalf("want %#v, got %#v", ev, got)
		}
	}
}
