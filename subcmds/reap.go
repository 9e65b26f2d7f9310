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

type Reap struct {
	cmdutil.ClientFlags

	finished bool
}

func (c *Reap) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("reap", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	fset.BoolVar(&c.finished, "finished", false, "when true, removes all finished snipers")
	return "reap", fset, cli.CmdFunc(c.run)
}

func (c *Reap) Purpose() string {
	return "Removes finished snipers from the running daemon"
}

func (c *Reap) Description() string {
	return `

Command "reap" removes snipers for the closed auctions from the daemon. Results
of the finished auctions are saved in the database and can be printed with the
"results" command even after the snipers are removed.

`
}

func (c *Reap) run(ctx context.Context, args []string) error {
	req := &api.ReapRequest{
		ItemIDs:  args,
		Finished: c.finished,
	}
	if err := req.Check(); err != nil {
		return err
	}
	resp, err := cmdutil.Post[api.ReapResponse](ctx, &c.ClientFlags, api.ReapPath, req)
	if err != nil {
		return fmt.Errorf("could not reap snipers: %w", err)
	}
	for _, id := range resp.ItemIDs {
		fmt.Println(id)
	}
	return nil
}
