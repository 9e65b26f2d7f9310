// Copyright (c) 2025 BVK Chaitanya

// Package defaults computes the default values for command-line flags from
// the SNIPER_ prefixed environment variables.
package defaults

import (
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

func ServerPort() int {
	const defaultValue = 10000

	value := os.Getenv("SNIPER_SERVER_PORT")
	if len(value) == 0 {
		return defaultValue
	}

	port, err := strconv.ParseInt(value, 10, 16)
	if err != nil || port <= 0 {
		log.Printf("SNIPER_SERVER_PORT value must be a positive decimal integer (value %s is ignored)", value)
		return defaultValue
	}
	return int(port)
}

func DataDir() string {
	const fallbackValue = "."
	user, err := user.Current()
	if err != nil {
		log.Printf("could not query for current user (using fallback data directory): %v", err)
		return fallbackValue
	}
	if len(user.HomeDir) == 0 {
		log.Printf("could not find home directory; using fallback data directory")
		return fallbackValue
	}

	var defaultValue = filepath.Join(user.HomeDir, ".auctionsniper")
	value := os.Getenv("SNIPER_DATA_DIR")
	if len(value) == 0 {
		return defaultValue
	}

	if !filepath.IsAbs(value) {
		log.Printf("SNIPER_DATA_DIR value must be an absolute path (value %s is ignored)", value)
		return defaultValue
	}
	return value
}

func LogDir() string {
	var dataDir = DataDir()

	var defaultValue = filepath.Join(dataDir, "logs")
	value := os.ExpandEnv(os.Getenv("SNIPER_LOG_DIR"))
	if len(value) == 0 {
		return defaultValue
	}

	if !filepath.IsAbs(value) {
		if strings.ContainsRune(value, os.PathSeparator) {
			log.Printf("SNIPER_LOG_DIR value must be an absolute path or a directory base name (value %s is ignored)", value)
			return defaultValue
		}
		return filepath.Join(dataDir, value)
	}
	return value
}

// SniperID returns the bidder identity. It is empty when SNIPER_ID is not
// set.
func SniperID() string {
	return strings.TrimSpace(os.Getenv("SNIPER_ID"))
}

// AuctionURL returns the base url of the auction house. It is empty when
// SNIPER_AUCTION_URL is not set.
func AuctionURL() string {
	return strings.TrimSpace(os.Getenv("SNIPER_AUCTION_URL"))
}
