// Copyright (c) 2023 BVK Chaitanya

// Package daemonize respawns the current program as a background process.
package daemonize

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"log/syslog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CheckFunc verifies that the background process is initialized. It returns
// true with a non-nil error if the check should be retried.
type CheckFunc func(ctx context.Context, child *os.Process) (retry bool, err error)

// Daemonize respawns the current program in the background with the same
// command-line arguments. The environment variable named by envKey identifies
// the background process, so it must not be used for anything else. Daemonize
// must be called before opening databases, starting servers, etc.
//
// Standard input and outputs of the background process are replaced with
// /dev/null and the standard library log is redirected to syslog.
//
// Parent process uses the check function to wait for the background process
// to initialize. When successful, Daemonize returns nil in the background
// process and exits the parent process. When unsuccessful, Daemonize returns
// an error to the parent process.
func Daemonize(ctx context.Context, envKey string, check CheckFunc) error {
	if len(envKey) == 0 {
		return fmt.Errorf("environment variable name cannot be empty: %w", os.ErrInvalid)
	}
	if v := os.Getenv(envKey); len(v) == 0 {
		if err := daemonizeParent(ctx, envKey, check); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := daemonizeChild(filepath.Base(os.Args[0])); err != nil {
		os.Exit(1)
	}
	return nil
}

func daemonizeParent(ctx context.Context, envKey string, check CheckFunc) error {
	binary, err := exec.LookPath(os.Args[0])
	if err != nil {
		return fmt.Errorf("could not lookup binary: %w", err)
	}
	binaryPath, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("could not determine absolute path for binary: %w", err)
	}

	// Background process parses the same command-line, so relative paths must
	// resolve the same way.
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not determine working directory: %w", err)
	}

	file, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", os.DevNull, err)
	}
	defer file.Close()

	// Receive signal when child-process dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGCHLD, os.Interrupt)
	defer stop()

	attr := &os.ProcAttr{
		Dir:   cwd,
		Env:   append(os.Environ(), fmt.Sprintf("%s=%d", envKey, os.Getpid())),
		Files: []*os.File{file, file, file},
	}
	child, err := os.StartProcess(binaryPath, os.Args, attr)
	if err != nil {
		return fmt.Errorf("could not start process: %w", err)
	}
	slog.InfoContext(ctx, "started background process", "pid", child.Pid)

	if check != nil {
		time.Sleep(time.Second)
		for ctx.Err() == nil {
			retry, err := check(ctx, child)
			if err == nil {
				break
			}
			if !retry {
				return err
			}
			slog.WarnContext(ctx, "background process is not yet initialized", "pid", child.Pid, "err", err)
			time.Sleep(time.Second)
		}
	}
	if err := context.Cause(ctx); err != nil {
		return fmt.Errorf("could not initialize the background process: %w", err)
	}
	return nil
}

func daemonizeChild(tag string) error {
	syslogger, err := syslog.New(syslog.LOG_INFO, tag)
	if err != nil {
		return fmt.Errorf("could not create syslog: %w", err)
	}
	log.SetOutput(syslogger)

	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("could not set session id: %w", err)
	}
	return nil
}
