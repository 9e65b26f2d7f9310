// Copyright (c) 2023 BVK Chaitanya

package main

import (
	"context"
	"log"
	"os"

	"github.com/bvk/auctionsniper/envfile"
	"github.com/bvk/auctionsniper/subcmds"
	"github.com/bvk/auctionsniper/subcmds/db"
	"github.com/bvk/auctionsniper/subcmds/setup"
	"github.com/visvasity/cli"
)

func commands() []cli.Command {
	dbCmds := []cli.Command{
		new(db.Get),
		new(db.List),
	}

	setupCmds := []cli.Command{
		new(setup.Show),
		new(setup.Telegram),
		new(setup.PushOver),
	}

	cmds := []cli.Command{
		new(subcmds.Run),
		new(subcmds.Bid),
		new(subcmds.Status),
		new(subcmds.Reap),
		new(subcmds.Results),
		cli.NewGroup("db", "View the database directly", dbCmds...),
		cli.NewGroup("setup", "Configure notification services", setupCmds...),
	}
	return cmds
}

func main() {
	if err := envfile.UpdateEnv(".auctionsniper", envfile.SearchCurrentDir(true), envfile.VariableNamePrefix("SNIPER_")); err != nil {
		log.Printf("could not load environment file (ignored): %v", err)
	}

	if err := cli.Run(context.Background(), commands(), os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
