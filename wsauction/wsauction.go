// Copyright (c) 2025 BVK Chaitanya

// Package wsauction implements auction channels over websockets. Every item
// has its own websocket at "<base-url>/<item-id>" and every text message on
// it is one auction protocol message.
package wsauction

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bvk/auctionsniper/auction"
	"github.com/bvk/auctionsniper/ctxutil"
	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
	"golang.org/x/time/rate"
)

type Dialer struct {
	baseURL *url.URL
	opts    Options
}

// NewDialer creates a dialer for the auction house at the base url. Http
// urls are converted to their websocket equivalents.
func NewDialer(baseURL string, opts *Options) (*Dialer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse auction url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("auction url scheme %q is not supported: %w", u.Scheme, os.ErrInvalid)
	}
	if len(u.Host) == 0 {
		return nil, fmt.Errorf("auction url %q has no host: %w", baseURL, os.ErrInvalid)
	}

	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return &Dialer{baseURL: u, opts: *opts}, nil
}

func (d *Dialer) itemURL(itemID string) string {
	u := *d.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + url.PathEscape(itemID)
	u.RawPath = ""
	return u.String()
}

// Dial opens the websocket for an item.
func (d *Dialer) Dial(ctx context.Context, itemID string) (auction.Channel, error) {
	if len(itemID) == 0 {
		return nil, fmt.Errorf("item id cannot be empty: %w", os.ErrInvalid)
	}
	if itemID == "." || itemID == ".." {
		return nil, fmt.Errorf("item id %q is reserved: %w", itemID, os.ErrInvalid)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: d.opts.HandshakeTimeout,
	}
	addr := d.itemURL(itemID)
	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		slog.Error("could not dial to auction websocket", "item", itemID, "url", addr, "err", err)
		return nil, fmt.Errorf("could not dial to %q: %w", addr, err)
	}

	pub := auction.NewPublisher()
	c := &Channel{
		itemID:       itemID,
		conn:         conn,
		publisher:    pub,
		translator:   auction.NewTranslator(itemID, pub),
		limiter:      rate.NewLimiter(rate.Limit(d.opts.SendRate), d.opts.SendBurst),
		writeTimeout: d.opts.WriteTimeout,
	}
	c.cg.Go(c.goReadMessages)
	slog.Info("opened auction websocket", "item", itemID, "url", addr)
	return c, nil
}

// Channel is an auction.Channel on a websocket connection.
type Channel struct {
	cg ctxutil.CloseGroup

	itemID string

	conn *websocket.Conn

	publisher  *auction.Publisher
	translator *auction.Translator

	limiter *rate.Limiter

	writeTimeout time.Duration

	// writeMu serializes the writers.
	writeMu sync.Mutex

	closeOnce sync.Once
}

var _ auction.Channel = &Channel{}

func (c *Channel) ItemID() string {
	return c.itemID
}

// Close closes the websocket. Event receivers are closed after the reader
// goroutine is stopped.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cg.Close()
		defer c.publisher.Close()

		c.writeMu.Lock()
		defer c.writeMu.Unlock()

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}

func (c *Channel) GetEvents() (*topic.Receiver[auction.Event], error) {
	return c.publisher.GetEvents()
}

func (c *Channel) GetFailures() (*topic.Receiver[*auction.ParseError], error) {
	return c.publisher.GetFailures()
}

// Send writes a command to the websocket. Commands are rate limited; Send
// blocks until the command can be sent or the context is canceled.
func (c *Channel) Send(ctx context.Context, cmd auction.Command) error {
	raw, err := auction.FormatCommand(cmd)
	if err != nil {
		return err
	}
	if err := context.Cause(c.cg.Context()); err != nil {
		return fmt.Errorf("%s: channel is closed: %w", c.itemID, os.ErrClosed)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: could not wait for send rate limit: %w", c.itemID, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := context.Cause(c.cg.Context()); err != nil {
		return fmt.Errorf("%s: channel is closed: %w", c.itemID, os.ErrClosed)
	}
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		slog.Error("could not write auction command", "item", c.itemID, "command", cmd, "err", err)
		return fmt.Errorf("%s: could not write command: %w", c.itemID, err)
	}
	slog.Debug("sent auction command", "item", c.itemID, "raw", raw)
	return nil
}

// goReadMessages translates the incoming messages until the connection is
// lost or the channel is closed. A lost connection is reported to the event
// receivers in order, after the messages received before it.
func (c *Channel) goReadMessages(ctx context.Context) {
	for ctx.Err() == nil {
		mtype, msg, err := c.readMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("could not read auction message; stopping the reader", "item", c.itemID, "err", err)
				c.publisher.EndStream(err)
			}
			return
		}
		if mtype != websocket.TextMessage {
			slog.Warn("ignoring non-text auction message", "item", c.itemID, "type", mtype)
			continue
		}
		c.translator.Translate(string(msg))
	}
}

func (c *Channel) readMessage(ctx context.Context) (int, []byte, error) {
	stopc := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
		close(stopc)
	})

	mtype, msg, err := c.conn.ReadMessage()
	if !stop() {
		// The AfterFunc was started. Wait for it to complete and reset the
		// deadline.
		<-stopc
		c.conn.SetReadDeadline(time.Time{})
		return 0, nil, context.Cause(ctx)
	}
	if err != nil {
		return 0, nil, err
	}
	return mtype, msg, nil
}
