// Copyright (c) 2025 BVK Chaitanya

package api

import (
	"fmt"
	"os"
)

func (v *AddRequest) Check() error {
	if len(v.ItemIDs) == 0 {
		return fmt.Errorf("at least one item id is required: %w", os.ErrInvalid)
	}
	seen := make(map[string]bool)
	for _, id := range v.ItemIDs {
		if len(id) == 0 {
			return fmt.Errorf("item id cannot be empty: %w", os.ErrInvalid)
		}
		if seen[id] {
			return fmt.Errorf("item id %q is repeated: %w", id, os.ErrInvalid)
		}
		seen[id] = true
	}
	return nil
}

func (v *ReapRequest) Check() error {
	if len(v.ItemIDs) == 0 && !v.Finished {
		return fmt.Errorf("item ids or finished flag is required: %w", os.ErrInvalid)
	}
	if len(v.ItemIDs) != 0 && v.Finished {
		return fmt.Errorf("item ids and finished flag cannot be used together: %w", os.ErrInvalid)
	}
	return nil
}
