// Copyright (c) 2023 BVK Chaitanya

// Package pushover sends notifications to mobile phones through the Pushover
// service.
package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// MessagesURL is the Pushover endpoint for sending messages.
const MessagesURL = "https://api.pushover.net/1/messages.json"

type Client struct {
	token string
	user  string

	url string

	httpClient *http.Client
}

// New creates a Pushover client. An empty endpoint selects the default
// MessagesURL.
func New(keys *Keys, endpoint string) (*Client, error) {
	if err := keys.Check(); err != nil {
		return nil, err
	}
	if len(endpoint) == 0 {
		endpoint = MessagesURL
	}
	c := &Client{
		token: keys.ApplicationKey,
		user:  keys.UserKey,
		url:   endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	return c, nil
}

type message struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// SendMessage delivers a notification stamped with the input time.
func (c *Client) SendMessage(ctx context.Context, at time.Time, msg string) error {
	m := &message{
		Token:     c.token,
		User:      c.user,
		Title:     "auctionsniper",
		Timestamp: at.Unix(),
		Message:   msg,
	}
	var msgbuf bytes.Buffer
	if err := json.NewEncoder(&msgbuf).Encode(m); err != nil {
		return fmt.Errorf("could not json-encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &msgbuf)
	if err != nil {
		return fmt.Errorf("could not create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform post request: %w", err)
	}
	defer resp.Body.Close()

	r := new(response)
	if err := json.NewDecoder(resp.Body).Decode(r); err != nil {
		return fmt.Errorf("could not json-decode response for http-status %d: %w", resp.StatusCode, err)
	}
	if r.Status != 1 {
		if len(r.Errors) != 0 {
			return fmt.Errorf("send failed with http-status %d and error: %w", resp.StatusCode, errors.New(r.Errors[0]))
		}
		return fmt.Errorf("send failed with http-status %d and zero response-status code (%#v)", resp.StatusCode, *r)
	}
	slog.Debug("sent pushover notification", "request", r.Request)
	return nil
}
