// Copyright (c) 2025 BVK Chaitanya

// Package memauction implements an in-memory auction house. Channels opened
// on a Server behave like network auction channels: inbound messages are raw
// protocol text passed through the standard Translator and outbound commands
// are recorded for inspection.
package memauction

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/bvk/auctionsniper/auction"
	"github.com/visvasity/topic"
)

type Server struct {
	mu       sync.Mutex
	auctions map[string]*Auction
}

func NewServer() *Server {
	return &Server{
		auctions: make(map[string]*Auction),
	}
}

// Dial opens the channel for an item. Items are created on first use. Dialing
// an item whose channel was closed opens a fresh one.
func (s *Server) Dial(ctx context.Context, itemID string) (auction.Channel, error) {
	return s.Open(itemID), nil
}

// Open is like Dial, but returns the concrete type.
func (s *Server) Open(itemID string) *Auction {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.auctions[itemID]; ok && !a.isClosed() {
		return a
	}
	a := newAuction(itemID)
	s.auctions[itemID] = a
	return a
}

// Auction returns the last channel opened for the item.
func (s *Server) Auction(itemID string) (*Auction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[itemID]
	return a, ok
}

// Auction is an in-memory auction.Channel for a single item.
type Auction struct {
	itemID string

	publisher  *auction.Publisher
	translator *auction.Translator
	commands   *topic.Topic[auction.Command]

	mu      sync.Mutex
	sent    []auction.Command
	sendErr error
	closed  bool
}

var _ auction.Channel = &Auction{}

func newAuction(itemID string) *Auction {
	pub := auction.NewPublisher()
	return &Auction{
		itemID:     itemID,
		publisher:  pub,
		translator: auction.NewTranslator(itemID, pub),
		commands:   topic.New[auction.Command](),
	}
}

func (a *Auction) ItemID() string {
	return a.itemID
}

func (a *Auction) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	a.publisher.Close()
	a.commands.Close()
	return nil
}

func (a *Auction) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Auction) Send(ctx context.Context, cmd auction.Command) error {
	if _, err := auction.FormatCommand(cmd); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return fmt.Errorf("%s: channel is closed: %w", a.itemID, os.ErrClosed)
	}
	if a.sendErr != nil {
		return a.sendErr
	}
	if v, ok := cmd.(*auction.Bid); ok {
		cmd = *v
	}
	a.sent = append(a.sent, cmd)
	a.commands.Send(cmd)
	return nil
}

func (a *Auction) GetEvents() (*topic.Receiver[auction.Event], error) {
	return a.publisher.GetEvents()
}

func (a *Auction) GetFailures() (*topic.Receiver[*auction.ParseError], error) {
	return a.publisher.GetFailures()
}

// GetCommands subscribes to the commands sent by the sniper.
func (a *Auction) GetCommands() (*topic.Receiver[auction.Command], error) {
	return topic.Subscribe(a.commands, 0, false /* includeRecent */)
}

// Commands returns all commands sent so far.
func (a *Auction) Commands() []auction.Command {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.sent)
}

// FailSends makes all subsequent Send calls fail with the input error. A nil
// error restores normal operation.
func (a *Auction) FailSends(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sendErr = err
}

// Deliver passes a raw protocol message to the channel subscribers.
func (a *Auction) Deliver(raw string) {
	if a.isClosed() {
		return
	}
	a.translator.Translate(raw)
}

func (a *Auction) ReportPrice(price, increment int64, bidder string) {
	raw, _ := auction.FormatEvent(auction.PriceReported{Price: price, Increment: increment, Bidder: bidder})
	a.Deliver(raw)
}

func (a *Auction) AnnounceClosed() {
	raw, _ := auction.FormatEvent(auction.Closed{})
	a.Deliver(raw)
}

// Hangup simulates a lost connection to the auction house. Messages
// delivered earlier are still received before the end of the stream.
func (a *Auction) Hangup() {
	if a.isClosed() {
		return
	}
	a.publisher.EndStream(io.ErrUnexpectedEOF)
}
