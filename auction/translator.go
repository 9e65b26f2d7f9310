// Copyright (c) 2025 BVK Chaitanya

package auction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrProtocolParse = errors.New("malformed auction message")

// ParseError reports an inbound message that could not be translated into an
// Event. It identifies the offending raw message.
type ParseError struct {
	ItemID string
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	if len(e.ItemID) == 0 {
		return fmt.Sprintf("could not parse auction message %q: %s", e.Raw, e.Reason)
	}
	return fmt.Sprintf("%s: could not parse auction message %q: %s", e.ItemID, e.Raw, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrProtocolParse
}

// Listener receives the output of a Translator. For every translated message
// exactly one of the two methods is called.
type Listener interface {
	AuctionEvent(ev Event)
	AuctionFailure(perr *ParseError)
}

// Translator converts raw protocol messages for one item into events.
type Translator struct {
	itemID   string
	listener Listener
}

func NewTranslator(itemID string, listener Listener) *Translator {
	return &Translator{
		itemID:   itemID,
		listener: listener,
	}
}

// Translate parses the raw message and forwards the result to the listener.
// Malformed messages are reported through the listener's failure method.
func (t *Translator) Translate(raw string) {
	ev, err := ParseMessage(raw)
	if err != nil {
		t.listener.AuctionFailure(&ParseError{
			ItemID: t.itemID,
			Raw:    raw,
			Reason: err.Error(),
		})
		return
	}
	t.listener.AuctionEvent(ev)
}

// ParseMessage parses a single raw event message.
//
// Messages are semicolon separated "Key: Value" fields. Keys are case
// insensitive, "=" is accepted in place of ":" and the last occurrence of a
// repeated key wins. CLOSE events ignore all other fields.
func ParseMessage(raw string) (Event, error) {
	fields, err := splitFields(raw)
	if err != nil {
		return nil, err
	}

	etype, ok := fields["event"]
	if !ok {
		return nil, fmt.Errorf("event type is missing")
	}

	switch strings.ToUpper(etype) {
	case "CLOSE":
		return Closed{}, nil

	case "PRICE":
		price, err := parseAmount(fields, "price")
		if err != nil {
			return nil, err
		}
		increment, err := parseAmount(fields, "increment")
		if err != nil {
			return nil, err
		}
		bidder, ok := fields["bidder"]
		if !ok {
			return nil, fmt.Errorf("field \"bidder\" is missing")
		}
		if len(bidder) == 0 {
			return nil, fmt.Errorf("field \"bidder\" is empty")
		}
		return PriceReported{Price: price, Increment: increment, Bidder: bidder}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", etype)
}

var keyAliases = map[string]string{
	"currentprice": "price",
}

func splitFields(raw string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if len(part) == 0 {
			continue
		}
		p := strings.IndexAny(part, ":=")
		if p == -1 {
			return nil, fmt.Errorf("field %q has no key/value separator", part)
		}
		key := strings.ToLower(strings.TrimSpace(part[:p]))
		if len(key) == 0 {
			return nil, fmt.Errorf("field %q has an empty key", part)
		}
		if alias, ok := keyAliases[key]; ok {
			key = alias
		}
		fields[key] = strings.TrimSpace(part[p+1:])
	}
	return fields, nil
}

func parseAmount(fields map[string]string, key string) (int64, error) {
	s, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("field %q is missing", key)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q value %q is not an integer", key, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("field %q value %d is negative", key, v)
	}
	return v, nil
}
