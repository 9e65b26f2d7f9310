// Copyright (c) 2025 BVK Chaitanya

package collector

import (
	"fmt"
	"os"

	"github.com/bvk/auctionsniper/sniper"
)

type Options struct {
	// Observers are attached to every sniper, after the collector's own
	// observer, in the given order.
	Observers []sniper.Observer

	// OnFinished is called once per sniper when it reaches a terminal state. It
	// runs on the sniper's worker goroutine.
	OnFinished func(s *sniper.Sniper, final sniper.Snapshot)
}

func (v *Options) setDefaults() {
}

func (v *Options) Check() error {
	for i, o := range v.Observers {
		if o == nil {
			return fmt.Errorf("observer %d is nil: %w", i, os.ErrInvalid)
		}
	}
	return nil
}
