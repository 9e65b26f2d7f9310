// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/auctionsniper/server"
)

func secretsPath(dataDir string) (string, error) {
	if _, err := os.Stat(dataDir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("could not stat data directory %q: %w", dataDir, err)
		}
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return "", fmt.Errorf("could not create data directory %q: %w", dataDir, err)
		}
	}
	dir, err := filepath.Abs(dataDir)
	if err != nil {
		return "", fmt.Errorf("could not determine data-dir %q absolute path: %w", dataDir, err)
	}
	return filepath.Join(dir, "secrets.json"), nil
}

// updateSecrets loads the secrets file from the data directory, if any, and
// saves it back after the update function returns nil.
func updateSecrets(dataDir string, update func(*server.Secrets) error) error {
	fpath, err := secretsPath(dataDir)
	if err != nil {
		return err
	}

	secrets, err := server.SecretsFromFile(fpath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		secrets = new(server.Secrets)
	}

	if err := update(secrets); err != nil {
		return err
	}
	if err := secrets.Check(); err != nil {
		return err
	}

	js, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(fpath, js, os.FileMode(0600)); err != nil {
		return err
	}
	return nil
}

// mask hides all but the last four characters of a secret value.
func mask(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
