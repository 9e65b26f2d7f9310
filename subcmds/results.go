// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bvk/auctionsniper/api"
	"github.com/bvk/auctionsniper/ledger"
	"github.com/bvk/auctionsniper/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Results struct {
	cmdutil.DBFlags
	PriceFlags
}

func (c *Results) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("results", flag.ContinueOnError)
	c.DBFlags.SetFlags(fset)
	c.PriceFlags.SetFlags(fset)
	return "results", fset, cli.CmdFunc(c.run)
}

func (c *Results) Purpose() string {
	return "Results prints the finished auctions"
}

func (c *Results) Description() string {
	return `

Command "results" prints the final state of the finished auctions from the
journal. Results are fetched from the running daemon by default. When the
daemon is not running, use the -data-dir flag to read them from the database
directly.

`
}

func (c *Results) run(ctx context.Context, args []string) error {
	if err := c.PriceFlags.check(); err != nil {
		return err
	}
	if len(args) > 1 {
		return fmt.Errorf("command takes at most one (item id) argument")
	}
	var itemID string
	if len(args) == 1 {
		itemID = args[0]
	}

	if c.DBFlags.IsRemoteDatabase() {
		req := &api.ResultsListRequest{ItemID: itemID}
		resp, err := cmdutil.Post[api.ResultsListResponse](ctx, &c.DBFlags.ClientFlags, api.ResultsListPath, req)
		if err != nil {
			return fmt.Errorf("could not list results: %w", err)
		}
		return printResults(os.Stdout, resp.Results, &c.PriceFlags)
	}

	db, closer, err := c.DBFlags.GetDatabase(ctx)
	if err != nil {
		return err
	}
	defer closer()

	l, err := ledger.New(db)
	if err != nil {
		return err
	}
	rs, err := l.List(ctx, itemID)
	if err != nil {
		return err
	}
	var results []*api.Result
	for _, r := range rs {
		results = append(results, &api.Result{
			UID:        r.UID,
			ItemID:     r.ItemID,
			SniperID:   r.SniperID,
			State:      r.State,
			LastPrice:  r.LastPrice,
			LastBid:    r.LastBid,
			NumBids:    r.NumBids,
			JoinedAt:   r.JoinedAt,
			FinishedAt: r.FinishedAt,
		})
	}
	return printResults(os.Stdout, results, &c.PriceFlags)
}

func printResults(w io.Writer, results []*api.Result, pf *PriceFlags) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No finished auctions")
		return nil
	}

	var won int
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Item\tResult\tFinal Price\tLast Bid\tBids\tBidder\tDuration\tFinished\n")
	for _, r := range results {
		if r.State == "WON" {
			won++
		}
		duration := "-"
		if !r.JoinedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.JoinedAt).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n", r.ItemID, r.State, pf.Format(r.LastPrice), pf.Format(r.LastBid), r.NumBids, r.SniperID, duration, r.FinishedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nWon %d of %d auctions\n", won, len(results))
	return nil
}
