// Copyright (c) 2025 BVK Chaitanya

// Package telegram sends notifications through a Telegram bot and runs bot
// commands from authorized users.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bvk/auctionsniper/ctxutil"
	"github.com/bvk/auctionsniper/gobs"
	"github.com/bvk/auctionsniper/kvutil"
	"github.com/bvk/auctionsniper/syncmap"
	"github.com/bvkgo/kv"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/visvasity/cli"
)

type Command struct {
	Purpose string
	Handler cli.CmdFunc
}

type Client struct {
	cg ctxutil.CloseGroup

	db kv.Database

	bot *bot.Bot

	self *models.User

	secrets *Secrets

	// mu protects the state.
	mu sync.Mutex

	state *gobs.TelegramState

	commandMap syncmap.Map[string, *Command]
}

var start = time.Now()

func stateKey(botName string) string {
	return path.Join("/telegram", botName, "state")
}

// New connects to the Telegram bot and starts processing the bot commands.
// Chat ids of the authorized users are remembered in the database, so that
// notifications can be delivered to them.
func New(ctx context.Context, db kv.Database, secrets *Secrets) (*Client, error) {
	if err := secrets.Check(); err != nil {
		return nil, err
	}

	c := &Client{
		db:      db,
		secrets: secrets.Clone(),
	}

	b, err := bot.New(secrets.BotToken, bot.WithDefaultHandler(c.handler))
	if err != nil {
		return nil, fmt.Errorf("could not create telegram bot: %w", err)
	}
	c.bot = b

	self, err := b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get telegram bot information: %w", err)
	}
	c.self = self

	state, err := kvutil.GetDB[gobs.TelegramState](ctx, db, stateKey(self.Username))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		state = &gobs.TelegramState{
			UserChatIDMap: make(map[string]int64),
		}
	}
	c.state = state

	c.commandMap.Store("uptime", &Command{
		Purpose: "Prints the auction sniper uptime",
		Handler: c.uptime,
	})
	c.commandMap.Store("version", &Command{
		Purpose: "Prints the auction sniper build information",
		Handler: c.version,
	})
	if err := c.setCommands(ctx); err != nil {
		return nil, err
	}

	c.cg.Go(func(ctx context.Context) {
		c.bot.Start(ctx)
	})
	return c, nil
}

func (c *Client) Close() error {
	c.cg.Close()
	return nil
}

func (c *Client) BotUserName() string {
	return c.self.Username
}

func (c *Client) OwnerUserName() string {
	return c.secrets.OwnerID
}

// AddCommand registers a new bot command. Handler output written to the
// cli.Stdout is sent back as the reply.
func (c *Client) AddCommand(ctx context.Context, name, purpose string, handler cli.CmdFunc) error {
	if len(name) == 0 || len(purpose) == 0 || handler == nil {
		return os.ErrInvalid
	}
	cmd := &Command{
		Purpose: purpose,
		Handler: handler,
	}
	if _, loaded := c.commandMap.LoadOrStore(name, cmd); loaded {
		return fmt.Errorf("bot command %q: %w", name, os.ErrExist)
	}
	return c.setCommands(ctx)
}

func (c *Client) setCommands(ctx context.Context) error {
	var cmds []models.BotCommand
	for name, cmd := range c.commandMap.Range {
		cmds = append(cmds, models.BotCommand{
			Command:     name,
			Description: cmd.Purpose,
		})
	}
	slices.SortFunc(cmds, func(a, b models.BotCommand) int {
		return strings.Compare(a.Command, b.Command)
	})

	ok, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: cmds})
	if err != nil {
		return fmt.Errorf("could not set bot commands: %w", err)
	}
	if !ok {
		return fmt.Errorf("could not set bot commands")
	}
	return nil
}

// parseCommand returns the command name and its arguments from a message.
func parseCommand(msg *models.Message) (string, []string, error) {
	if msg == nil || len(msg.Text) == 0 || len(msg.Entities) == 0 {
		return "", nil, os.ErrInvalid
	}
	entity := msg.Entities[0]
	if entity.Type != models.MessageEntityTypeBotCommand || entity.Offset != 0 {
		return "", nil, os.ErrInvalid
	}
	if msg.Text[0] != '/' || entity.Length > len(msg.Text) {
		return "", nil, os.ErrInvalid
	}
	name := msg.Text[1:entity.Length]
	// Commands in group chats are addressed as /name@botname.
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	args := strings.Fields(msg.Text[entity.Length:])
	return name, args, nil
}

func (c *Client) isValidUser(user string) bool {
	return user == c.secrets.OwnerID || user == c.secrets.AdminID || slices.Contains(c.secrets.OtherIDs, user)
}

// SendMessage sends a notification to the owner and other users who have
// started a chat with the bot.
func (c *Client) SendMessage(ctx context.Context, at time.Time, text string) error {
	msg := at.Format("2006-01-02 15:04:05 MST") + " " + text

	receivers := append([]string{c.secrets.OwnerID}, c.secrets.OtherIDs...)
	c.mu.Lock()
	chatIDs := make(map[string]int64)
	for _, receiver := range receivers {
		if cid, ok := c.state.UserChatIDMap[receiver]; ok {
			chatIDs[receiver] = cid
		}
	}
	c.mu.Unlock()

	nsent := 0
	for _, receiver := range receivers {
		cid, ok := chatIDs[receiver]
		if !ok {
			slog.Warn("could not notify receiver without chat id", "receiver", receiver)
			continue
		}
		p := &bot.SendMessageParams{
			ChatID: cid,
			Text:   msg,
		}
		if _, err := c.bot.SendMessage(ctx, p); err != nil {
			slog.Error("could not notify receiver (ignored)", "receiver", receiver, "err", err)
			continue
		}
		nsent++
	}
	if nsent == 0 {
		return fmt.Errorf("no telegram receivers could be notified")
	}
	return nil
}

func (c *Client) handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	sender := update.Message.From.Username
	if !c.isValidUser(sender) {
		slog.Warn("received message from unauthorized user (ignored)", "sender", sender, "message", update.Message.Text)
		return
	}

	if err := c.updateChatID(ctx, sender, update.Message.Chat.ID); err != nil {
		slog.Warn("could not update chat id (ignored)", "sender", sender, "err", err)
	}

	if err := c.respond(ctx, update.Message); err != nil {
		slog.Error("could not respond to user command (ignored)", "sender", sender, "err", err)
	}
}

func (c *Client) respond(ctx context.Context, msg *models.Message) error {
	var reply string
	name, args, err := parseCommand(msg)
	if err != nil {
		reply = "Messages other than bot commands are not supported."
	} else if cmd, ok := c.commandMap.Load(name); !ok {
		reply = fmt.Sprintf("Command %q is not supported.", name)
	} else {
		var sb strings.Builder
		if err := cmd.Handler(cli.WithStdout(ctx, &sb), args); err != nil {
			slog.Error("could not handle bot command", "command", name, "err", err)
			reply = err.Error()
		} else {
			reply = sb.String()
		}
	}
	if len(reply) == 0 {
		return nil
	}

	disabled := true
	p := &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   reply,
		ReplyParameters: &models.ReplyParameters{
			MessageID: msg.ID,
		},
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disabled,
		},
	}
	if _, err := c.bot.SendMessage(ctx, p); err != nil {
		return err
	}
	return nil
}

func (c *Client) updateChatID(ctx context.Context, user string, chatID int64) error {
	c.mu.Lock()
	if id, ok := c.state.UserChatIDMap[user]; ok && id == chatID {
		c.mu.Unlock()
		return nil
	}
	c.state.UserChatIDMap[user] = chatID
	state, err := gobs.Clone(c.state)
	c.mu.Unlock()

	if err != nil {
		return err
	}
	slog.Info("saving chat id of an authorized user", "user", user, "chat-id", chatID)
	if err := kvutil.SetDB(ctx, c.db, stateKey(c.BotUserName()), state); err != nil {
		return fmt.Errorf("could not save telegram state: %w", err)
	}
	return nil
}

func (c *Client) uptime(ctx context.Context, args []string) error {
	const day = 24 * time.Hour
	d := time.Since(start).Truncate(time.Second)
	if d < day {
		fmt.Fprintf(cli.Stdout(ctx), "%v", d)
		return nil
	}
	fmt.Fprintf(cli.Stdout(ctx), "%dd%v", d/day, d%day)
	return nil
}

func (c *Client) version(ctx context.Context, _ []string) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fmt.Errorf("could not read build information")
	}
	// Dependency versions are skipped to stay within the message size limits.
	stdout := cli.Stdout(ctx)
	fmt.Fprintln(stdout, "Go:", info.GoVersion)
	fmt.Fprintln(stdout, "Module:", info.Main.Path, info.Main.Version)
	for _, s := range info.Settings {
		if strings.HasPrefix(s.Key, "vcs.") {
			fmt.Fprintln(stdout, s.Key+":", s.Value)
		}
	}
	return nil
}
