// Copyright (c) 2025 BVK Chaitanya

// Package notify sends auction results to the users through messengers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/auctionsniper/ctxutil"
	"github.com/bvk/auctionsniper/sniper"
)

// Messenger delivers a text message to the user.
type Messenger interface {
	SendMessage(ctx context.Context, at time.Time, msg string) error
}

// Notifier is a sniper.Observer that sends a message when an auction is
// finished or when a bid could not be placed. Messages are sent in the
// background so that the sniper is never blocked on the messengers.
type Notifier struct {
	cg ctxutil.CloseGroup

	timeout time.Duration

	messengers []Messenger
}

var _ sniper.Observer = &Notifier{}

func New(timeout time.Duration, messengers ...Messenger) *Notifier {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Notifier{
		timeout:    timeout,
		messengers: messengers,
	}
}

// Close waits for the messages in progress.
func (n *Notifier) Close() error {
	n.cg.Close()
	return nil
}

func (n *Notifier) SniperChanged(snap sniper.Snapshot) {
	if !snap.State.IsTerminal() {
		return
	}
	n.notify(time.Now(), FormatResult(snap))
}

func (n *Notifier) SniperFailed(snap sniper.Snapshot, err error) {
	if !errors.Is(err, sniper.ErrSendFailed) {
		return
	}
	n.notify(time.Now(), fmt.Sprintf("%s: could not place a bid at price %d: %v", snap.ItemID, snap.LastPrice, err))
}

func (n *Notifier) notify(at time.Time, msg string) {
	if len(n.messengers) == 0 {
		return
	}
	n.cg.Go(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		for _, m := range n.messengers {
			if err := m.SendMessage(ctx, at, msg); err != nil {
				slog.Error("could not send notification (ignored)", "message", msg, "err", err)
			}
		}
	})
}

// FormatResult returns the user facing description of a snapshot.
func FormatResult(snap sniper.Snapshot) string {
	switch snap.State {
	case sniper.WON:
		return fmt.Sprintf("%s: auction is WON at price %d", snap.ItemID, snap.LastPrice)
	case sniper.LOST:
		if snap.LastBid == 0 {
			return fmt.Sprintf("%s: auction is LOST without any bids", snap.ItemID)
		}
		return fmt.Sprintf("%s: auction is LOST at price %d (last bid %d)", snap.ItemID, snap.LastPrice, snap.LastBid)
	}
	return fmt.Sprintf("%s: auction is %s at price %d (last bid %d)", snap.ItemID, snap.State, snap.LastPrice, snap.LastBid)
}
