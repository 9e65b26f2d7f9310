// Copyright (c) 2025 BVK Chaitanya

package gobs

import "time"

// AuctionResult is the journal record for a sniper that reached a terminal
// state.
type AuctionResult struct {
	UID    string
	ItemID string

	// SniperID is the bidder identity used in the auction.
	SniperID string

	State string

	LastPrice int64
	LastBid   int64

	NumBids int

	JoinedAt   time.Time
	FinishedAt time.Time
}
