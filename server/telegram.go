// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"fmt"

	"github.com/bvk/auctionsniper/notify"
	"github.com/visvasity/cli"
)

// AddTelegramCommand registers a bot command when telegram is configured.
func (s *Server) AddTelegramCommand(ctx context.Context, name, purpose string, handler cli.CmdFunc) error {
	if s.telegramClient != nil {
		return s.telegramClient.AddCommand(ctx, name, purpose, handler)
	}
	return nil // Ignored
}

func (s *Server) snipersTelegramCmd(ctx context.Context, args []string) error {
	stdout := cli.Stdout(ctx)
	snaps := s.collector.Snapshots()
	if len(snaps) == 0 {
		fmt.Fprintln(stdout, "No active snipers.")
		return nil
	}
	for _, snap := range snaps {
		fmt.Fprintf(stdout, "%s: %s price=%d bid=%d\n", snap.ItemID, snap.State, snap.LastPrice, snap.LastBid)
	}
	return nil
}

func (s *Server) resultsTelegramCmd(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("at most one item id is expected")
	}
	var itemID string
	if len(args) == 1 {
		itemID = args[0]
	}
	results, err := s.ledger.List(ctx, itemID)
	if err != nil {
		return err
	}

	stdout := cli.Stdout(ctx)
	if len(results) == 0 {
		fmt.Fprintln(stdout, "No finished auctions.")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(stdout, "%s %s\n", r.FinishedAt.Format("2006-01-02 15:04"), notify.FormatResult(resultSnapshot(r)))
	}
	return nil
}
