// Copyright (c) 2025 BVK Chaitanya

// Package auction defines the messages exchanged with an auction house and the
// contract for a per-item auction channel.
//
// Inbound messages are events (PriceReported, Closed) and outbound messages
// are commands (Join, Bid). Raw protocol text is converted into events by the
// Translator, which reports malformed messages through a separate failure
// path instead of dropping them.
//
// All prices and bids are integers in the smallest currency unit.
package auction

import "strings"

// Event is an inbound auction message. Implementations are immutable values.
type Event interface {
	isEvent()
}

// PriceReported announces the current price of the item, the minimum
// increment for the next bid and the identity of the current highest bidder.
type PriceReported struct {
	Price     int64
	Increment int64
	Bidder    string
}

// Closed announces the end of the auction.
type Closed struct{}

// StreamEnded is published by a channel after the last event when the
// connection to the auction house is lost. It is not a protocol message and
// never changes the sniper state.
type StreamEnded struct {
	Err error
}

func (PriceReported) isEvent() {}
func (Closed) isEvent()        {}
func (StreamEnded) isEvent()   {}

type PriceSource int

const (
	FromOtherBidder PriceSource = iota
	FromSniper
)

func (s PriceSource) String() string {
	if s == FromSniper {
		return "FromSniper"
	}
	return "FromOtherBidder"
}

// Source classifies the reported price by comparing the bidder identity with
// the sniper's own identity. Identities must match exactly.
func (v PriceReported) Source(self string) PriceSource {
	if v.Bidder == self {
		return FromSniper
	}
	return FromOtherBidder
}

// BidderName returns the bidder identity used by an auction house for a
// connection user of the form "name@host/resource".
func BidderName(user string) string {
	if p := strings.IndexByte(user, '@'); p >= 0 {
		return user[:p]
	}
	return user
}
