// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bvk/auctionsniper/pushover"
	"github.com/bvk/auctionsniper/telegram"
)

// Secrets holds the optional messenger credentials.
type Secrets struct {
	Pushover *pushover.Keys    `json:"pushover,omitempty"`
	Telegram *telegram.Secrets `json:"telegram,omitempty"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("could not parse secrets file %q: %w", fpath, err)
	}
	if err := s.Check(); err != nil {
		return nil, fmt.Errorf("secrets file %q: %w", fpath, err)
	}
	return s, nil
}

func (v *Secrets) Check() error {
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	if v.Pushover != nil {
		if err := v.Pushover.Check(); err != nil {
			return err
		}
	}
	return nil
}
