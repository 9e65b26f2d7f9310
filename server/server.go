// Copyright (c) 2023 BVK Chaitanya

// Package server runs the auction snipers as a service. Finished auctions
// are journaled in the database and announced through the configured
// messengers.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bvk/auctionsniper/api"
	"github.com/bvk/auctionsniper/collector"
	"github.com/bvk/auctionsniper/httputil"
	"github.com/bvk/auctionsniper/ledger"
	"github.com/bvk/auctionsniper/notify"
	"github.com/bvk/auctionsniper/pushover"
	"github.com/bvk/auctionsniper/sniper"
	"github.com/bvk/auctionsniper/telegram"
	"github.com/bvkgo/kv"
)

type Server struct {
	opts Options

	db kv.Database

	ledger *ledger.Ledger

	notifier *notify.Notifier

	collector *collector.Collector

	telegramClient *telegram.Client
	pushoverClient *pushover.Client
}

// New creates the service. Auction channels are opened with the dialer.
// Secrets can be nil when no messengers are configured.
func New(ctx context.Context, secrets *Secrets, db kv.Database, dialer collector.Dialer, opts *Options) (_ *Server, status error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if secrets == nil {
		secrets = new(Secrets)
	}
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	l, err := ledger.New(db)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:   *opts,
		db:     db,
		ledger: l,
	}
	defer func() {
		if status != nil {
			s.Close()
		}
	}()

	var messengers []notify.Messenger
	if secrets.Pushover != nil {
		client, err := pushover.New(secrets.Pushover, "")
		if err != nil {
			return nil, fmt.Errorf("could not create pushover client: %w", err)
		}
		s.pushoverClient = client
		messengers = append(messengers, client)
	}
	if secrets.Telegram != nil {
		client, err := telegram.New(ctx, db, secrets.Telegram)
		if err != nil {
			return nil, fmt.Errorf("could not create telegram client: %w", err)
		}
		s.telegramClient = client
		messengers = append(messengers, client)
	}
	s.notifier = notify.New(opts.NotifyTimeout, messengers...)

	copts := &collector.Options{
		Observers:  []sniper.Observer{s.notifier},
		OnFinished: s.saveResult,
	}
	c, err := collector.New(opts.SniperID, dialer, copts)
	if err != nil {
		return nil, err
	}
	s.collector = c

	if err := s.AddTelegramCommand(ctx, "snipers", "Prints the status of all snipers", s.snipersTelegramCmd); err != nil {
		return nil, err
	}
	if err := s.AddTelegramCommand(ctx, "results", "Prints the finished auctions", s.resultsTelegramCmd); err != nil {
		return nil, err
	}
	return s, nil
}

// Close stops all snipers and the messengers.
func (s *Server) Close() error {
	if s.collector != nil {
		s.collector.Close()
	}
	if s.notifier != nil {
		s.notifier.Close()
	}
	if s.telegramClient != nil {
		s.telegramClient.Close()
	}
	return nil
}

func (s *Server) Collector() *collector.Collector {
	return s.collector
}

func (s *Server) Ledger() *ledger.Ledger {
	return s.ledger
}

// HandlerMap returns the http handlers for the api endpoints.
func (s *Server) HandlerMap() map[string]http.Handler {
	return map[string]http.Handler{
		api.AddPath:         httputil.JSONHandler(s.doAdd),
		api.ListPath:        httputil.JSONHandler(s.doList),
		api.ReapPath:        httputil.JSONHandler(s.doReap),
		api.ResultsListPath: httputil.JSONHandler(s.doResultsList),
	}
}

// saveResult journals a finished auction. It runs on the sniper's worker.
func (s *Server) saveResult(sn *sniper.Sniper, final sniper.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()

	r := ledger.NewResult(sn, final, time.Now())
	if err := s.ledger.Save(ctx, r); err != nil {
		slog.Error("could not save auction result (ignored)", "item", r.ItemID, "uid", r.UID, "err", err)
		return
	}
	slog.Info("saved auction result", "item", r.ItemID, "uid", r.UID, "state", r.State)
}
