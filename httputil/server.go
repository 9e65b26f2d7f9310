// Copyright (c) 2023 BVK Chaitanya

// Package httputil implements an http server whose handlers can be added and
// removed while it is running, along with helpers for JSON APIs.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bvk/auctionsniper/ctxutil"
	"github.com/bvk/auctionsniper/syncmap"
	"github.com/google/uuid"
)

type Server struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup

	opts Options

	nextServerID atomic.Int64
	serverMap    syncmap.Map[int64, *http.Server]

	mux atomic.Pointer[http.ServeMux]

	mutex      sync.Mutex
	handlerMap map[string]http.Handler
}

// New creates a http server without any listeners.
func New(opts *Options) (*Server, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	s := &Server{
		ctx:        ctx,
		cancel:     cancel,
		opts:       *opts,
		handlerMap: make(map[string]http.Handler),
	}
	s.updateHandlerMux()
	return s, nil
}

func (s *Server) Close() error {
	s.cancel(os.ErrClosed)
	for _, svr := range s.serverMap.Range {
		svr.Close()
	}
	s.wg.Wait()
	return nil
}

// StartTCP starts serving on a new tcp listener. The listener port is
// updated in the input address when it is zero. StartTCP returns after the
// server has responded to a test request.
func (s *Server) StartTCP(ctx context.Context, addr *net.TCPAddr) (id int64, status error) {
	l, err := net.Listen("tcp", addr.String())
	if err != nil {
		return -1, err
	}
	defer func() {
		if status != nil {
			l.Close()
		}
	}()

	if addr.Port == 0 {
		laddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			return -1, fmt.Errorf("created listener addr is not *net.TCPAddr type")
		}
		addr.Port = laddr.Port
	}

	testPath := "/" + uuid.New().String()
	s.AddHandler(testPath, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		slog.Debug("received http server test request", "addr", addr, "remote", r.RemoteAddr)
	}))
	defer s.RemoveHandler(testPath)

	server := &http.Server{
		Handler: s,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}
	defer func() {
		if status != nil {
			server.Close()
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for s.ctx.Err() == nil {
			if err := server.Serve(l); err != nil {
				if errors.Is(err, http.ErrServerClosed) {
					return
				}
				slog.ErrorContext(ctx, "http server failed", "addr", addr, "err", err)
			}
		}
	}()

	u := &url.URL{
		Scheme: "http",
		Host:   l.Addr().String(),
		Path:   testPath,
	}
	if err := s.waitReady(ctx, u); err != nil {
		return -1, err
	}

	id = s.nextServerID.Add(1) - 1
	s.serverMap.Store(id, server)
	return id, nil
}

func (s *Server) waitReady(ctx context.Context, u *url.URL) error {
	client := http.Client{
		Timeout: s.opts.ServerCheckTimeout,
	}
	check := func() error {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(r)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("test request returned http status %d", resp.StatusCode)
		}
		return nil
	}
	if err := ctxutil.RetryTimeout(ctx, s.opts.ServerCheckRetryInterval, s.opts.ServerCheckTimeout, check); err != nil {
		return fmt.Errorf("could not invoke test handler: %w", err)
	}
	return nil
}

func (s *Server) Stop(id int64) error {
	svr, ok := s.serverMap.LoadAndDelete(id)
	if !ok {
		return fmt.Errorf("http server %d not found: %w", id, os.ErrNotExist)
	}
	_ = svr.Close()
	return nil
}

func (s *Server) AddHandler(pattern string, handler http.Handler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.handlerMap[pattern] = handler
	s.updateHandlerMux()
}

// RemoveHandler removes the handler for a pattern. Returns false if the
// pattern has no handler.
func (s *Server) RemoveHandler(pattern string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.handlerMap[pattern]; !ok {
		return false
	}
	delete(s.handlerMap, pattern)
	s.updateHandlerMux()
	return true
}

func (s *Server) updateHandlerMux() {
	m := http.NewServeMux()
	for k, v := range s.handlerMap {
		m.Handle(k, v)
	}
	s.mux.Store(m)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.Load().ServeHTTP(w, r)
}
