// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bvk/auctionsniper/api"
	"github.com/bvk/auctionsniper/sniper"
	"github.com/bvk/auctionsniper/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Status struct {
	cmdutil.ClientFlags
	PriceFlags
}

func (c *Status) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	c.PriceFlags.SetFlags(fset)
	return "status", fset, cli.CmdFunc(c.run)
}

func (c *Status) Purpose() string {
	return "Status prints the state of all or selected snipers"
}

func (c *Status) run(ctx context.Context, args []string) error {
	if err := c.PriceFlags.check(); err != nil {
		return err
	}
	if len(args) > 1 {
		return fmt.Errorf("command takes at most one (item id) argument")
	}

	req := new(api.ListRequest)
	if len(args) == 1 {
		req.ItemID = args[0]
	}
	resp, err := cmdutil.Post[api.ListResponse](ctx, &c.ClientFlags, api.ListPath, req)
	if err != nil {
		return fmt.Errorf("could not list snipers: %w", err)
	}
	return printStatus(os.Stdout, resp, &c.PriceFlags)
}

func printStatus(w io.Writer, resp *api.ListResponse, pf *PriceFlags) error {
	if len(resp.Snipers) == 0 {
		fmt.Fprintf(w, "No snipers for bidder %s\n", resp.SniperID)
		return nil
	}

	counts := make(map[sniper.State]int)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Item\tState\tLast Price\tLast Bid\tBids\tJoined\tUID\n")
	for _, s := range resp.Snipers {
		state := sniper.State(s.State)
		if err := state.Check(); err != nil {
			return fmt.Errorf("item %q: %w", s.ItemID, err)
		}
		counts[state]++

		joined := "-"
		if !s.JoinedAt.IsZero() {
			joined = s.JoinedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", s.ItemID, s.State, pf.Format(s.LastPrice), pf.Format(s.LastBid), s.NumBids, joined, s.UID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var parts []string
	for _, state := range sniper.States {
		if n := counts[state]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", state, n))
		}
	}
	fmt.Fprintf(w, "\nBidder %s: %s\n", resp.SniperID, strings.Join(parts, " "))
	return nil
}
