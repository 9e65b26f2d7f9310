// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"fmt"
	"os"
	"slices"
)

// Secrets holds the bot token and the telegram user names that are allowed
// to talk to the bot. Notifications are sent to the owner and the others.
type Secrets struct {
	BotToken string `json:"token"`

	OwnerID string `json:"owner"`

	AdminID string `json:"admin"`

	OtherIDs []string `json:"others"`
}

func (v *Secrets) Check() error {
	if len(v.BotToken) == 0 {
		return fmt.Errorf("bot token cannot be empty: %w", os.ErrInvalid)
	}
	if len(v.OwnerID) == 0 {
		return fmt.Errorf("owner id cannot be empty: %w", os.ErrInvalid)
	}
	if slices.Contains(v.OtherIDs, "") {
		return fmt.Errorf("empty string in other ids is not a valid id: %w", os.ErrInvalid)
	}
	if len(v.AdminID) != 0 && slices.Contains(v.OtherIDs, v.AdminID) {
		return fmt.Errorf("admin id should not be repeated in other ids: %w", os.ErrInvalid)
	}
	if slices.Contains(v.OtherIDs, v.OwnerID) {
		return fmt.Errorf("owner id should not be repeated in other ids: %w", os.ErrInvalid)
	}
	return nil
}

func (v *Secrets) Clone() *Secrets {
	return &Secrets{
		BotToken: v.BotToken,
		OwnerID:  v.OwnerID,
		AdminID:  v.AdminID,
		OtherIDs: slices.Clone(v.OtherIDs),
	}
}
