// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// SniperID is the bidder identity for all auctions.
	SniperID string

	// NotifyTimeout is the timeout for delivering one notification.
	NotifyTimeout time.Duration

	// SaveTimeout is the timeout for saving a result in the database.
	SaveTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.NotifyTimeout == 0 {
		v.NotifyTimeout = time.Minute
	}
	if v.SaveTimeout == 0 {
		v.SaveTimeout = 10 * time.Second
	}
}

func (v *Options) Check() error {
	if len(v.SniperID) == 0 {
		return fmt.Errorf("sniper id cannot be empty: %w", os.ErrInvalid)
	}
	if v.NotifyTimeout < 0 || v.SaveTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
