// Copyright (c) 2023 BVK Chaitanya

package cmdutil

import (
	"context"
	"flag"
	"fmt"
	"path"
	"path/filepath"

	"github.com/bvkgo/kv"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
)

// DBFlags selects a database. Database in a local directory is opened
// directly, otherwise the daemon's database is used over http.
type DBFlags struct {
	ClientFlags

	dbURLPath string

	dataDir string
}

func (f *DBFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", "", "Path to the data directory with the database (daemon must not be running)")

	f.ClientFlags.SetFlags(fset)
	fset.StringVar(&f.dbURLPath, "db-url-path", "/db", "path to db api handler")
}

// IsRemoteDatabase returns true if target database is a remote database over
// http.
func (f *DBFlags) IsRemoteDatabase() bool {
	return f.dataDir == ""
}

func (f *DBFlags) GetDatabase(ctx context.Context) (db kv.Database, closer func(), status error) {
	if len(f.dataDir) != 0 {
		bopts := badger.DefaultOptions(filepath.Join(f.dataDir, "db")).WithReadOnly(true)
		bdb, err := badger.Open(bopts)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open the database: %w", err)
		}
		db := kvbadger.New(bdb, IsGoodKey)
		return db, func() { bdb.Close() }, nil
	}

	addrURL := f.ClientFlags.AddressURL()
	addrURL.Path = path.Join(addrURL.Path, f.dbURLPath)
	db = kvhttp.New(addrURL, f.ClientFlags.HttpClient())
	return db, func() {}, nil
}

// IsGoodKey returns true for absolute, clean database keys.
func IsGoodKey(k string) bool {
	return path.IsAbs(k) && k == path.Clean(k)
}
