// Copyright (c) 2025 BVK Chaitanya

package sniper

import (
	"math"

	"github.com/bvk/auctionsniper/auction"
)

// Next computes the sniper's next snapshot for an auction event. It also
// returns the bid to send to the auction, if any. Next has no side effects.
//
// A price from another bidder is always answered with a bid of price plus
// the reported increment. A price reported for the sniper's own bid makes the
// sniper the winner. Closing the auction makes a winning sniper WON and any
// other sniper LOST. Terminal snapshots are returned unchanged.
func Next(current Snapshot, event auction.Event, self string) (Snapshot, *auction.Bid) {
	if current.State.IsTerminal() {
		return current, nil
	}

	switch ev := event.(type) {
	case auction.Closed:
		return current.Closed(), nil

	case auction.PriceReported:
		if ev.Source(self) == auction.FromSniper {
			return current.Winning(ev.Price), nil
		}
		if ev.Increment > math.MaxInt64-ev.Price {
			return current.Losing(ev.Price), nil
		}
		bid := &auction.Bid{Amount: ev.Price + ev.Increment}
		return current.Bidding(ev.Price, bid.Amount), bid
	}
	return current, nil
}
