// Copyright (c) 2025 BVK Chaitanya

package wsauction

import (
	"fmt"
	"os"
	"time"
)

type Options struct {
	// SendRate is the maximum number of commands sent per second on a single
	// auction channel.
	SendRate float64

	// SendBurst is the maximum number of commands that can be sent at once.
	SendBurst int

	// HandshakeTimeout is the timeout for opening the websocket.
	HandshakeTimeout time.Duration

	// WriteTimeout is the timeout for writing one command to the websocket.
	WriteTimeout time.Duration
}

func (v *Options) setDefaults() {
	if v.SendRate == 0 {
		v.SendRate = 5
	}
	if v.SendBurst == 0 {
		v.SendBurst = 1
	}
	if v.HandshakeTimeout == 0 {
		v.HandshakeTimeout = 10 * time.Second
	}
	if v.WriteTimeout == 0 {
		v.WriteTimeout = 5 * time.Second
	}
}

func (v *Options) Check() error {
	if v.SendRate < 0 {
		return fmt.Errorf("send rate cannot be negative: %w", os.ErrInvalid)
	}
	if v.SendBurst < 0 {
		return fmt.Errorf("send burst cannot be negative: %w", os.ErrInvalid)
	}
	if v.HandshakeTimeout < 0 || v.WriteTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative: %w", os.ErrInvalid)
	}
	return nil
}
