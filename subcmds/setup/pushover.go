// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"time"

	"github.com/bvk/auctionsniper/pushover"
	"github.com/bvk/auctionsniper/server"
	"github.com/bvk/auctionsniper/subcmds/defaults"
	"github.com/visvasity/cli"
)

type PushOver struct {
	dataDir     string
	skipTesting bool

	appID  string
	userID string
}

func (c *PushOver) Purpose() string {
	return "Setup configures PushOver service API parameters"
}

func (c *PushOver) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("pushover", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", defaults.DataDir(), "path to the data directory")
	fset.StringVar(&c.userID, "user-id", "", "PushOver service user identifier")
	fset.StringVar(&c.appID, "app-id", "", "PushOver service Application identifier")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "pushover", fset, cli.CmdFunc(c.run)
}

func (c *PushOver) Description() string {
	return `

Command "pushover" helps users receive auction results on their mobile phones
through the Pushover service.

Pushover keys are optional. They can be configured as follows:

  $ auctionsniper setup pushover --app-id=awja5ue...ito7svf --user-id=uscjs2...tvp4kv

`
}

func (c *PushOver) run(ctx context.Context, args []string) error {
	return updateSecrets(c.dataDir, func(secrets *server.Secrets) error {
		keys := &pushover.Keys{
			ApplicationKey: c.appID,
			UserKey:        c.userID,
		}
		client, err := pushover.New(keys, "" /* endpoint */)
		if err != nil {
			return err
		}
		if !c.skipTesting {
			if err := client.SendMessage(ctx, time.Now(), "Test message from Pushover config setup; please ignore."); err != nil {
				return err
			}
		}
		secrets.Pushover = keys
		return nil
	})
}
