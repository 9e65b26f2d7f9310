// Copyright (c) 2025 BVK Chaitanya

// Package envfile loads environment variables from simple NAME=value files.
package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

type options struct {
	variableNamePrefix string

	searchDirs []string

	searchCurrentDirectory bool

	scanParentDirectories bool

	overwriteIfExists bool
}

type assignment struct {
	key, value string
}

// UpdateEnv updates current process's environment with the values read from
// the first env file found in the search path. User's home directory is
// searched when no other search locations are given through the options.
//
// Lines starting with # are ignored. NO shell escaping or expansion is
// performed on the values.
func UpdateEnv(filename string, opts ...Option) error {
	if strings.ContainsRune(filename, os.PathSeparator) {
		return fmt.Errorf("file name contains path separator: %w", os.ErrInvalid)
	}
	var fopts options
	for _, v := range opts {
		if err := v.apply(&fopts); err != nil {
			return err
		}
	}

	fpaths, err := searchPaths(filename, &fopts)
	if err != nil {
		return err
	}
	for _, fpath := range fpaths {
		vars, err := readFile(fpath, fopts.variableNamePrefix)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		for _, v := range vars {
			if len(os.Getenv(v.key)) != 0 && !fopts.overwriteIfExists {
				continue
			}
			os.Setenv(v.key, v.value)
		}
		return nil
	}
	return nil
}

func searchPaths(filename string, fopts *options) ([]string, error) {
	var fpaths []string
	for _, dir := range fopts.searchDirs {
		fpaths = append(fpaths, filepath.Join(dir, filename))
	}
	if fopts.searchCurrentDirectory {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		fpaths = append(fpaths, filepath.Join(cwd, filename))
		if fopts.scanParentDirectories {
			last, dir := cwd, filepath.Dir(cwd)
			for dir != last {
				fpaths = append(fpaths, filepath.Join(dir, filename))
				last, dir = dir, filepath.Dir(dir)
			}
		}
	}
	if len(fpaths) == 0 {
		user, err := user.Current()
		if err != nil {
			return nil, err
		}
		if len(user.HomeDir) == 0 {
			return nil, fmt.Errorf("could not determine current user's home directory")
		}
		fpaths = []string{filepath.Join(user.HomeDir, filename)}
	}
	return fpaths, nil
}

func readFile(fpath, prefix string) ([]assignment, error) {
	fp, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	vars, err := parse(fp, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fpath, err)
	}
	return vars, nil
}

func parse(r io.Reader, prefix string) ([]assignment, error) {
	var vars []assignment
	scanner := bufio.NewScanner(r)
	for i := 1; scanner.Scan(); i++ {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid/unrecognized variable assignment on line %d: %w", i, os.ErrInvalid)
		}
		if !prefixRe.MatchString(key) {
			return nil, fmt.Errorf("invalid environment variable name %q on line %d: %w", key, i, os.ErrInvalid)
		}
		vars = append(vars, assignment{key: prefix + key, value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}
