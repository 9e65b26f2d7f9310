// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"fmt"
	"strings"

	"github.com/bvk/auctionsniper/gobs"
	"github.com/bvk/auctionsniper/ledger"
)

func TypeNameValue(typename string) (any, error) {
	var v any
	switch typename {
	case "AuctionResult":
		v = new(gobs.AuctionResult)
	case "TelegramState":
		v = new(gobs.TelegramState)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}

// KeyTypeName returns the value type name for known database keys.
func KeyTypeName(key string) (string, bool) {
	switch {
	case strings.HasPrefix(key, ledger.Keyspace):
		return "AuctionResult", true
	case strings.HasPrefix(key, "/telegram/") && strings.HasSuffix(key, "/state"):
		return "TelegramState", true
	}
	return "", false
}
