// Copyright (c) 2025 BVK Chaitanya

package sniper

import "fmt"

type State string

const (
	JOINING State = "JOINING"
	BIDDING State = "BIDDING"
	WINNING State = "WINNING"
	LOSING  State = "LOSING"
	LOST    State = "LOST"
	WON     State = "WON"
)

// States lists all sniper states in display order.
var States = []State{JOINING, BIDDING, WINNING, LOSING, LOST, WON}

// IsTerminal returns true for states that no event can leave.
func (s State) IsTerminal() bool {
	return s == LOST || s == WON
}

func (s State) Check() error {
	for _, v := range States {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid sniper state %q", string(s))
}

// Snapshot is the status of an auction item from the sniper's point of view.
// Snapshots are values; every transition produces a new one.
type Snapshot struct {
	ItemID    string
	LastPrice int64
	LastBid   int64
	State     State
}

// Joining returns the initial snapshot for an item.
func Joining(itemID string) Snapshot {
	return Snapshot{ItemID: itemID, State: JOINING}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s:%s(price=%d,bid=%d)", s.ItemID, s.State, s.LastPrice, s.LastBid)
}

// IsForSameItemAs returns true if both snapshots belong to the same item.
func (s Snapshot) IsForSameItemAs(other Snapshot) bool {
	return s.ItemID == other.ItemID
}

// Bidding records a bid placed in response to a price from another bidder.
func (s Snapshot) Bidding(price, bid int64) Snapshot {
	return Snapshot{ItemID: s.ItemID, LastPrice: price, LastBid: bid, State: BIDDING}
}

// Winning records a price reported for the sniper's own bid.
func (s Snapshot) Winning(price int64) Snapshot {
	return Snapshot{ItemID: s.ItemID, LastPrice: price, LastBid: price, State: WINNING}
}

// Losing records a price from another bidder that the sniper could not
// answer with a bid. The last bid is unchanged.
func (s Snapshot) Losing(price int64) Snapshot {
	return Snapshot{ItemID: s.ItemID, LastPrice: price, LastBid: s.LastBid, State: LOSING}
}

// Closed returns the final snapshot when the auction is closed.
func (s Snapshot) Closed() Snapshot {
	final := s
	if s.State == WINNING {
		final.State = WON
	} else {
		final.State = LOST
	}
	return final
}
