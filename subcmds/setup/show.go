// Copyright (c) 2025 BVK Chaitanya

package setup

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bvk/auctionsniper/server"
	"github.com/bvk/auctionsniper/subcmds/defaults"
	"github.com/visvasity/cli"
)

type Show struct {
	dataDir string
}

func (c *Show) Purpose() string {
	return "Prints the current configuration with secret values masked"
}

func (c *Show) Command() (string, *flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("show", flag.ContinueOnError)
	fset.StringVar(&c.dataDir, "data-dir", defaults.DataDir(), "path to the data directory")
	return "show", fset, cli.CmdFunc(c.run)
}

func (c *Show) run(ctx context.Context, args []string) error {
	fpath, err := secretsPath(c.dataDir)
	if err != nil {
		return err
	}
	secrets, err := server.SecretsFromFile(fpath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		fmt.Printf("No secrets are configured in %s\n", fpath)
		return nil
	}
	printSecrets(os.Stdout, secrets)
	return nil
}

func printSecrets(w io.Writer, secrets *server.Secrets) {
	if v := secrets.Telegram; v != nil {
		fmt.Fprintf(w, "telegram.owner-id  %s\n", v.OwnerID)
		if len(v.AdminID) != 0 {
			fmt.Fprintf(w, "telegram.admin-id  %s\n", v.AdminID)
		}
		if len(v.OtherIDs) != 0 {
			fmt.Fprintf(w, "telegram.other-ids %s\n", strings.Join(v.OtherIDs, ","))
		}
		fmt.Fprintf(w, "telegram.bot-token %s\n", mask(v.BotToken))
	}
	if v := secrets.Pushover; v != nil {
		fmt.Fprintf(w, "pushover.app-id    %s\n", mask(v.ApplicationKey))
		fmt.Fprintf(w, "pushover.user-id   %s\n", mask(v.UserKey))
	}
	if secrets.Telegram == nil && secrets.Pushover == nil {
		fmt.Fprintln(w, "No messengers are configured")
	}
}
