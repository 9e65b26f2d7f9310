// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bvk/auctionsniper/ctxutil"
	"github.com/bvk/auctionsniper/daemonize"
	"github.com/bvk/auctionsniper/httputil"
	"github.com/bvk/auctionsniper/server"
	"github.com/bvk/auctionsniper/subcmds/cmdutil"
	"github.com/bvk/auctionsniper/subcmds/defaults"
	"github.com/bvk/auctionsniper/wsauction"
	"github.com/bvkgo/kv/kvhttp"
	"github.com/bvkgo/kvbadger"
	"github.com/dgraph-io/badger/v4"
	"github.com/nightlyone/lockfile"
	"github.com/visvasity/cli"
	"github.com/visvasity/sglog"
)

type Run struct {
	cmdutil.ServerFlags

	background bool

	restart         bool
	shutdownTimeout time.Duration

	noPprof      bool
	logStderr    bool
	exitWhenDone bool

	sniperID   string
	auctionURL string
	planPath   string
	items      string

	secretsPath string
	dataDir     string
}

func (c *Run) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("run", flag.ContinueOnError)
	c.ServerFlags.SetFlags(fset)
	fset.BoolVar(&c.background, "background", false, "runs the daemon in background")
	fset.BoolVar(&c.restart, "restart", false, "when true, kills any old instance")
	fset.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 30*time.Second, "max timeout for shutdown when restarting")
	fset.BoolVar(&c.noPprof, "no-pprof", false, "when true net/http/pprof handler is not registered")
	fset.BoolVar(&c.logStderr, "log-stderr", false, "when true, logs are written to stderr instead of the log files")
	fset.BoolVar(&c.exitWhenDone, "exit-when-done", false, "when true, exits after all auctions are finished")
	fset.StringVar(&c.sniperID, "sniper-id", defaults.SniperID(), "bidder identity in the auctions (default is SNIPER_ID value)")
	fset.StringVar(&c.auctionURL, "auction-url", defaults.AuctionURL(), "base url for the auction house (default is SNIPER_AUCTION_URL value)")
	fset.StringVar(&c.planPath, "plan", "", "path to a YAML plan file with sniper id, auction url and items")
	fset.StringVar(&c.items, "items", "", "comma separated list of items to snipe")
	fset.StringVar(&c.secretsPath, "secrets-file", "", "path to credentials file")
	fset.StringVar(&c.dataDir, "data-dir", defaults.DataDir(), "path to the data directory")
	return "run", fset, cli.CmdFunc(c.run)
}

func (c *Run) Purpose() string {
	return "Runs the auction sniper daemon in foreground or background"
}

func (c *Run) Description() string {
	return `

Command "run" starts the auction sniper daemon. Daemon joins the auctions for
the items given on the command-line, through the -items flag or in the plan
file and bids automatically until the auctions are closed. More items can be
added to a running daemon with the "bid" command.

PLAN FILE

Plan file is a YAML file with the following format:

    sniper-id: sniper
    auction-url: ws://localhost:8080/auctions
    items:
      - item-54321
      - item-65432

Command-line flags take precedence over the plan file values.

SECRETS FILE

Secrets file is optional. It holds the Telegram and Pushover parameters for
notifications and can be created with the "setup" commands.

`
}

func (c *Run) run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var plan Plan
	if len(c.planPath) != 0 {
		p, err := PlanFromFile(c.planPath)
		if err != nil {
			return fmt.Errorf("could not load plan file %q: %w", c.planPath, err)
		}
		plan = *p
	}
	if len(c.sniperID) == 0 {
		c.sniperID = plan.SniperID
	}
	if len(c.auctionURL) == 0 {
		c.auctionURL = plan.AuctionURL
	}
	if len(c.sniperID) == 0 {
		return fmt.Errorf("sniper id is required: %w", os.ErrInvalid)
	}
	if len(c.auctionURL) == 0 {
		return fmt.Errorf("auction url is required: %w", os.ErrInvalid)
	}
	items := mergeItems(plan.Items, strings.Split(c.items, ","), args)

	dialer, err := wsauction.NewDialer(c.auctionURL, nil /* opts */)
	if err != nil {
		return err
	}

	if _, err := os.Stat(c.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("could not stat data directory %q: %w", c.dataDir, err)
		}
		if err := os.MkdirAll(c.dataDir, 0700); err != nil {
			return fmt.Errorf("could not create data directory %q: %w", c.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(c.dataDir)
	if err != nil {
		return fmt.Errorf("could not determine data-dir %q absolute path: %w", c.dataDir, err)
	}

	if len(c.secretsPath) == 0 {
		c.secretsPath = filepath.Join(dataDir, "secrets.json")
	}
	secrets, err := server.SecretsFromFile(c.secretsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		secrets = nil
	}

	addr, err := c.ServerFlags.TCPAddr(defaults.ServerPort())
	if err != nil {
		return err
	}

	// Health checker for the background process initialization. We need to
	// verify that responding http server is really our child and not an older
	// instance.
	check := func(ctx context.Context, child *os.Process) (bool, error) {
		client := http.Client{Timeout: time.Second}
		resp, err := client.Get(fmt.Sprintf("http://%s/pid", addr.String()))
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return true, fmt.Errorf("http status: %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, err
		}
		if pid := string(data); pid != fmt.Sprintf("%d", child.Pid) {
			return c.restart, fmt.Errorf("is another instance already running? pid mismatch: want %d got %s", child.Pid, pid)
		}
		return false, nil
	}

	if c.background {
		if err := daemonize.Daemonize(ctx, "SNIPER_DAEMONIZE", check); err != nil {
			return err
		}
	}

	if !c.logStderr {
		logDir := filepath.Join(dataDir, "logs")
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return fmt.Errorf("could not create log directory %q: %w", logDir, err)
		}
		backend := sglog.NewBackend(&sglog.Options{
			LogDirs: []string{logDir},
		})
		defer backend.Close()
		slog.SetDefault(slog.New(backend.Handler()))
	}

	log.SetFlags(log.Flags() | log.Lmicroseconds)
	slog.Info("starting auction sniper", "data-dir", dataDir, "secrets", c.secretsPath, "sniper", c.sniperID, "auction-url", c.auctionURL)

	lockPath := filepath.Join(dataDir, "auctionsniper.lock")
	flock, err := lockfile.New(lockPath)
	if err != nil {
		return fmt.Errorf("could not create lock file %q: %w", lockPath, err)
	}
	if err := flock.TryLock(); err != nil {
		if !c.restart {
			return fmt.Errorf("could not get lock on file %q: %w", lockPath, err)
		}
		owner, err := flock.GetOwner()
		if err != nil {
			return fmt.Errorf("could not get current owner of the lock file: %w", err)
		}
		if err := owner.Signal(os.Interrupt); err == nil {
			slog.Info("waiting for the previous instance to shutdown", "pid", owner.Pid)
			if err := ctxutil.RetryTimeout(ctx, time.Second, c.shutdownTimeout, flock.TryLock); err != nil {
				if err := owner.Signal(os.Kill); err != nil {
					return fmt.Errorf("could not kill current owner of the lock file: %w", err)
				}
				ctxutil.Sleep(ctx, time.Millisecond)
			}
		}
		if err := flock.TryLock(); err != nil {
			return fmt.Errorf("could not get lock on file %q after killing previous instance: %w", lockPath, err)
		}
	}
	defer flock.Unlock()

	// Start HTTP server.
	s, err := httputil.New(nil /* opts */)
	if err != nil {
		return err
	}
	defer s.Close()

	tcpServer, err := s.StartTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("could not start http server on %s: %w", addr, err)
	}
	defer s.Stop(tcpServer)

	if !c.noPprof {
		s.AddHandler("/debug/pprof/heap", pprof.Handler("heap"))
		s.AddHandler("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		s.AddHandler("/debug/pprof/allocs", pprof.Handler("allocs"))
		s.AddHandler("/debug/pprof/block", pprof.Handler("block"))
		s.AddHandler("/debug/pprof/mutex", pprof.Handler("mutex"))
	}

	// Open the database.
	bopts := badger.DefaultOptions(filepath.Join(dataDir, "db"))
	bdb, err := badger.Open(bopts)
	if err != nil {
		return fmt.Errorf("could not open the database: %w", err)
	}
	defer bdb.Close()
	db := kvbadger.New(bdb, cmdutil.IsGoodKey)

	s.AddHandler("/db/", http.StripPrefix("/db", kvhttp.Handler(db)))

	sopts := &server.Options{
		SniperID: c.sniperID,
	}
	sniper, err := server.New(ctx, secrets, db, dialer, sopts)
	if err != nil {
		return err
	}
	defer sniper.Close()

	sniperAPIs := sniper.HandlerMap()
	for k, v := range sniperAPIs {
		s.AddHandler(k, v)
	}
	defer func() {
		for k := range sniperAPIs {
			s.RemoveHandler(k)
		}
	}()

	if _, err := sniper.Add(ctx, items...); err != nil {
		return err
	}

	slog.Info("started auction sniper server", "addr", addr, "items", items)
	s.AddHandler("/pid", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, fmt.Sprintf("%d", os.Getpid()))
	}))

	if c.exitWhenDone {
		if err := sniper.Collector().WaitFinished(ctx); err != nil {
			return fmt.Errorf("could not wait for the auctions to finish: %w", err)
		}
		for _, snap := range sniper.Collector().Snapshots() {
			fmt.Printf("%s\n", snap)
		}
		slog.Info("all auctions are finished")
		return nil
	}

	<-ctx.Done()
	slog.Info("auction sniper server is shutting down", "cause", context.Cause(ctx))
	return nil
}
