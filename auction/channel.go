// Copyright (c) 2025 BVK Chaitanya

package auction

import (
	"context"
	"io"

	"github.com/visvasity/topic"
)

// Channel is a bidirectional messaging session scoped to a single auction
// item. Events are delivered to every receiver in the order they arrived on
// the channel.
type Channel interface {
	io.Closer

	ItemID() string

	// Send delivers a command to the auction house. Transport failures are
	// returned to the caller.
	Send(ctx context.Context, cmd Command) error

	// GetEvents subscribes to translated events. Only the events published
	// after the subscription are delivered. When the auction house goes away a
	// StreamEnded event follows the last received event.
	GetEvents() (*topic.Receiver[Event], error)

	// GetFailures subscribes to messages that could not be translated.
	GetFailures() (*topic.Receiver[*ParseError], error)
}

// Publisher is a Listener that fans translated events and failures out to
// topic subscribers. Channel implementations feed it through a Translator.
type Publisher struct {
	events   *topic.Topic[Event]
	failures *topic.Topic[*ParseError]
}

func NewPublisher() *Publisher {
	return &Publisher{
		events:   topic.New[Event](),
		failures: topic.New[*ParseError](),
	}
}

// Close closes the topics. Events still queued for the receivers are
// dropped, so channels must call Close only after their consumers are done.
func (p *Publisher) Close() {
	p.events.Close()
	p.failures.Close()
}

func (p *Publisher) AuctionEvent(ev Event) {
	p.events.Send(ev)
}

// EndStream publishes a StreamEnded event after all events published so far.
func (p *Publisher) EndStream(err error) {
	p.events.Send(StreamEnded{Err: err})
}

func (p *Publisher) AuctionFailure(perr *ParseError) {
	p.failures.Send(perr)
}

func (p *Publisher) GetEvents() (*topic.Receiver[Event], error) {
	return topic.Subscribe(p.events, 0, false /* includeRecent */)
}

func (p *Publisher) GetFailures() (*topic.Receiver[*ParseError], error) {
	return topic.Subscribe(p.failures, 0, false /* includeRecent */)
}
