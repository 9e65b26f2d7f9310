// Copyright (c) 2025 BVK Chaitanya

package wsauction

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/auctionsniper/auction"
	"github.com/bvk/auctionsniper/sniper"
	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

// fakeHouse is a websocket auction house that replies to the sniper with
// scripted messages.
type fakeHouse struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    map[string]*websocket.Conn
	commands map[string][]string

	connCh    chan string
	commandCh chan string
}

func newFakeHouse() *fakeHouse {
	return &fakeHouse{
		conns:     make(map[string]*websocket.Conn),
		commands:  make(map[string][]string),
		connCh:    make(chan string, 10),
		commandCh: make(chan string, 100),
	}
}

func (h *fakeHouse) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	itemID := strings.TrimPrefix(r.URL.Path, "/auctions/")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.conns[itemID] = conn
	h.mu.Unlock()
	h.connCh <- itemID

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.mu.Lock()
		h.commands[itemID] = append(h.commands[itemID], string(msg))
		h.mu.Unlock()
		h.commandCh <- string(msg)
	}
}

func (h *fakeHouse) send(t *testing.T, itemID, msg string) {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.conns[itemID].WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatal(err)
	}
}

func (h *fakeHouse) closeConn(itemID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[itemID].Close()
}

func (h *fakeHouse) waitCommand(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-h.commandCh:
		if got != want {
			t.Fatalf("want command %q, got %q", want, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for command %q", want)
	}
}

func (h *fakeHouse) waitConn(t *testing.T) string {
	t.Helper()
	select {
	case id := <-h.connCh:
		return id
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a connection")
	}
	return ""
}

func TestNewDialer(t *testing.T) {
	valid := map[string]string{
		"ws://localhost:8080/auctions":    "ws://localhost:8080/auctions/item-1",
		"http://localhost:8080/auctions/": "ws://localhost:8080/auctions/item-1",
		"https://example.com":             "wss://example.com/item-1",
	}
	for base, want := range valid {
		d, err := NewDialer(base, nil)
		if err != nil {
			t.Fatalf("%s: %v", base, err)
		}
		if got := d.itemURL("item-1"); got != want {
			t.Fatalf("%s: want %q, got %q", base, want, got)
		}
	}

	for _, base := range []string{"ftp://localhost", "ws://", "::bad"} {
		if _, err := NewDialer(base, nil); err == nil {
			t.Fatalf("%s: want an error", base)
		}
	}
	if _, err := NewDialer("ws://localhost", &Options{SendRate: -1}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for negative rate, got %v", err)
	}

	d, err := NewDialer("ws://localhost:8080/auctions", nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"", ".", ".."} {
		if _, err := d.Dial(context.Background(), id); !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("%q: want os.ErrInvalid, got %v", id, err)
		}
	}
}

func TestChannel(t *testing.T) {
	ctx := context.Background()
	house := newFakeHouse()
	server := httptest.NewServer(house)
	defer server.Close()

	d, err := NewDialer(server.URL+"/auctions", &Options{SendRate: 100, SendBurst: 10})
	if err != nil {
		t.Fatal(err)
	}

	ch, err := d.Dial(ctx, "item-54321")
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()

	if id := house.waitConn(t); id != "item-54321" {
		t.Fatalf("want connection for item-54321, got %q", id)
	}

	events, err := ch.GetEvents()
	if err != nil {
		t.Fatal(err)
	}
	defer events.Close()
	eventsCh, err := topic.ReceiveCh(events)
	if err != nil {
		t.Fatal(err)
	}

	failures, err := ch.GetFailures()
	if err != nil {
		t.Fatal(err)
	}
	defer failures.Close()
	failuresCh, err := topic.ReceiveCh(failures)
	if err != nil {
		t.Fatal(err)
	}

	if err := ch.Send(ctx, auction.Join{}); err != nil {
		t.Fatal(err)
	}
	house.waitCommand(t, "SOLVersion: 1.1; Command: JOIN;")

	if err := ch.Send(ctx, auction.Bid{Amount: 1098}); err != nil {
		t.Fatal(err)
	}
	house.waitCommand(t, "SOLVersion: 1.1; Command: BID; Price: 1098;")

	house.send(t, "item-54321", "SOLVersion: 1.1; Event: PRICE; CurrentPrice: 1000; Increment: 98; Bidder: other bidder;")
	house.send(t, "item-54321", "SOLVersion: 1.1; Event: BOGUS;")
	house.send(t, "item-54321", "SOLVersion: 1.1; Event: CLOSE;")

	want := []auction.Event{
		auction.PriceReported{Price: 1000, Increment: 98, Bidder: "other bidder"},
		auction.Closed{},
	}
	for i, w := range want {
		select {
		case ev := <-eventsCh:
			if ev != w {
				t.Fatalf("%d: want %#v, got %#v", i, w, ev)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%d: timed out waiting for event", i)
		}
	}

	select {
	case perr := <-failuresCh:
		if perr.ItemID != "item-54321" || !errors.Is(perr, auction.ErrProtocolParse) {
			t.Fatalf("unexpected parse error %v", perr)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for parse failure")
	}

	if err := ch.Close(); err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(ctx, auction.Join{}); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("want os.ErrClosed after close, got %v", err)
	}
}

func TestRemoteClose(t *testing.T) {
	ctx := context.Background()
	house := newFakeHouse()
	server := httptest.NewServer(house)
	defer server.Close()

	d, err := NewDialer(server.URL+"/auctions", nil)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := d.Dial(ctx, "item-1")
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()
	house.waitConn(t)

	events, err := ch.GetEvents()
	if err != nil {
		t.Fatal(err)
	}
	defer events.Close()
	eventsCh, err := topic.ReceiveCh(events)
	if err != nil {
		t.Fatal(err)
	}

	house.send(t, "item-1", "SOLVersion: 1.1; Event: CLOSE;")
	house.closeConn("item-1")

	for _, want := range []string{"closed", "ended"} {
		select {
		case ev, ok := <-eventsCh:
			if !ok {
				t.Fatalf("want %s event, got closed events channel", want)
			}
			switch want {
			case "closed":
				if _, ok := ev.(auction.Closed); !ok {
					t.Fatalf("want auction.Closed event, got %#v", ev)
				}
			case "ended":
				if _, ok := ev.(auction.StreamEnded); !ok {
					t.Fatalf("want auction.StreamEnded event, got %#v", ev)
				}
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s event", want)
		}
	}

	// Receivers stay open until the channel is closed.
	if err := ch.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case _, ok := <-eventsCh:
		if ok {
			t.Fatalf("want events channel to be closed")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for events channel to close")
	}
}

func TestCloseThenHangup(t *testing.T) {
	ctx := context.Background()
	house := newFakeHouse()
	server := httptest.NewServer(house)
	defer server.Close()

	d, err := NewDialer(server.URL+"/auctions", &Options{SendRate: 100})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		ch, err := d.Dial(ctx, "item-7")
		if err != nil {
			t.Fatal(err)
		}
		house.waitConn(t)

		s, err := sniper.New("item-7", "sniper", ch)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Join(ctx); err != nil {
			t.Fatal(err)
		}
		house.waitCommand(t, "SOLVersion: 1.1; Command: JOIN;")

		errCh := make(chan error, 1)
		go func() { errCh <- s.Run(ctx) }()

		house.send(t, "item-7", "SOLVersion: 1.1; Event: PRICE; CurrentPrice: 1000; Increment: 98; Bidder: sniper;")
		house.send(t, "item-7", "SOLVersion: 1.1; Event: CLOSE;")
		house.closeConn("item-7")

		select {
		case err := <-errCh:
			if err != nil {
				t.Fatalf("%d: want nil, got %v", i, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%d: timed out waiting for the sniper", i)
		}
		if snap := s.Snapshot(); snap.State != sniper.WON || snap.LastPrice != 1000 {
			t.Fatalf("%d: want WON at 1000, got %v", i, snap)
		}
		ch.Close()
	}
}

func TestHangupBeforeClose(t *testing.T) {
	ctx := context.Background()
	house := newFakeHouse()
	server := httptest.NewServer(house)
	defer server.Close()

	d, err := NewDialer(server.URL+"/auctions", nil)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := d.Dial(ctx, "item-8")
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()
	house.waitConn(t)

	s, err := sniper.New("item-8", "sniper", ch)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Join(ctx); err != nil {
		t.Fatal(err)
	}
	house.waitCommand(t, "SOLVersion: 1.1; Command: JOIN;")

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	house.closeConn("item-8")

	select {
	case err := <-errCh:
		if !errors.Is(err, os.ErrClosed) {
			t.Fatalf("want os.ErrClosed, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the sniper")
	}
	if snap := s.Snapshot(); snap.State != sniper.JOINING {
		t.Fatalf("want JOINING, got %v", snap)
	}
}

func TestSniperOverWebsocket(t *testing.T) {
	ctx := context.Background()
	house := newFakeHouse()
	server := httptest.NewServer(house)
	defer server.Close()

	d, err := NewDialer(server.URL+"/auctions", &Options{SendRate: 100})
	if err != nil {
		t.Fatal(err)
	}
	ch, err := d.Dial(ctx, "item-54321")
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()
	house.waitConn(t)

	s, err := sniper.New("item-54321", "sniper", ch)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Join(ctx); err != nil {
		t.Fatal(err)
	}
	house.waitCommand(t, "SOLVersion: 1.1; Command: JOIN;")

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	house.send(t, "item-54321", "SOLVersion: 1.1; Event: PRICE; CurrentPrice: 1000; Increment: 98; Bidder: other bidder;")
	house.waitCommand(t, "SOLVersion: 1.1; Command: BID; Price: 1098;")

	house.send(t, "item-54321", "SOLVersion: 1.1; Event: PRICE; CurrentPrice: 1098; Increment: 97; Bidder: sniper;")
	house.send(t, "item-54321", "SOLVersion: 1.1; Event: CLOSE;")

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for the sniper")
	}
	if snap := s.Snapshot(); snap.State != sniper.WON || snap.LastPrice != 1098 {
		t.Fatalf("want WON at 1098, got %v", snap)
	}
}
