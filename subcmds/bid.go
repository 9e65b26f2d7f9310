// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"

	"github.com/bvk/auctionsniper/api"
	"github.com/bvk/auctionsniper/subcmds/cmdutil"
	"github.com/visvasity/cli"
)

type Bid struct {
	cmdutil.ClientFlags
}

func (c *Bid) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("bid", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return "bid", fset, cli.CmdFunc(c.run)
}

func (c *Bid) Purpose() string {
	return "Starts snipers for the items in the running daemon"
}

func (c *Bid) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("needs one or more item ids as arguments")
	}

	req := &api.AddRequest{
		ItemIDs: mergeItems(args),
	}
	if err := req.Check(); err != nil {
		return err
	}
	resp, err := cmdutil.Post[api.AddResponse](ctx, &c.ClientFlags, api.AddPath, req)
	if err != nil {
		return fmt.Errorf("could not add snipers: %w", err)
	}
	for _, s := range resp.Snipers {
		fmt.Printf("%s %s %s\n", s.ItemID, s.UID, s.State)
	}
	return nil
}
