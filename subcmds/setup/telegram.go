// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bvk/auctionsniper/ctxutil"
	"github.com/bvk/auctionsniper/server"
	"github.com/bvk/auctionsniper/subcmds/defaults"
	"github.com/bvk/auctionsniper/telegram"
	"github.com/bvkgo/kv/kvmemdb"
	"github.com/visvasity/cli"
	"golang.org/x/term"
)

type Telegram struct {
	dataDir     string
	skipTesting bool

	ownerID  string
	adminID  string
	otherIDs string
	botToken string
}

func (c *Telegram) Purpose() string {
	return "Setup configures Telegram service API parameters"
}

func (c *Telegram) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("telegram", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", defaults.DataDir(), "path to the data directory")
	fset.StringVar(&c.ownerID, "owner-id", "", "Owner's telegram user id")
	fset.StringVar(&c.adminID, "admin-id", "", "Administrator's telegram user id")
	fset.StringVar(&c.otherIDs, "other-ids", "", "Comma separated list of other telegram user ids")
	fset.StringVar(&c.botToken, "bot-token", "", "Telegram bot's authentication token")
	fset.BoolVar(&c.skipTesting, "skip-testing", false, "don't test the parameters")
	return "telegram", fset, cli.CmdFunc(c.run)
}

func (c *Telegram) Description() string {
	return `

Command "telegram" helps users receive auction results on their Telegram
account through a Telegram bot. Bot also answers the /snipers and /results
commands from the configured users.

Telegram configuration is optional. It can be configured as follows:

  $ auctionsniper setup telegram --owner-id=username --bot-token=USCJS2...TVP4KV

`
}

func (c *Telegram) run(ctx context.Context, args []string) error {
	var others []string
	for _, id := range strings.Split(c.otherIDs, ",") {
		if id = strings.TrimSpace(id); len(id) != 0 {
			others = append(others, id)
		}
	}

	return updateSecrets(c.dataDir, func(secrets *server.Secrets) error {
		tsecrets := &telegram.Secrets{
			OwnerID:  c.ownerID,
			AdminID:  c.adminID,
			OtherIDs: others,
			BotToken: c.botToken,
		}
		if err := tsecrets.Check(); err != nil {
			return err
		}

		if !c.skipTesting {
			fmt.Println("Start a chat with telegram bot and then press any key")
			if err := waitForKey(); err != nil {
				return err
			}

			client, err := telegram.New(ctx, kvmemdb.New(), tsecrets)
			if err != nil {
				return err
			}
			defer client.Close()

			// Give the bot some time to receive the chat started above.
			ctxutil.Sleep(ctx, time.Second)
			if err := client.SendMessage(ctx, time.Now(), "Test message from Telegram config setup; please ignore."); err != nil {
				return err
			}
		}
		secrets.Telegram = tsecrets
		return nil
	})
}

func waitForKey() error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("standard input is not a terminal (use -skip-testing flag)")
	}
	// switch stdin into 'raw' mode
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState)

	b := make([]byte, 1)
	if _, err := os.Stdin.Read(b); err != nil {
		return err
	}
	return nil
}
