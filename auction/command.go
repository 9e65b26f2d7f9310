// Copyright (c) 2025 BVK Chaitanya

package auction

import (
	"fmt"
	"strings"
)

// ProtocolVersion is sent with every outbound message.
const ProtocolVersion = "1.1"

// Command is an outbound message to the auction house.
type Command interface {
	isCommand()
}

// Join registers the sniper as a participant. It must be the first command
// sent on a channel.
type Join struct{}

// Bid offers Amount for the item.
type Bid struct {
	Amount int64
}

func (Join) isCommand() {}
func (Bid) isCommand()  {}

func (Join) String() string  { return "JOIN" }
func (v Bid) String() string { return fmt.Sprintf("BID(%d)", v.Amount) }

// FormatCommand renders a command in the wire format.
func FormatCommand(cmd Command) (string, error) {
	switch v := cmd.(type) {
	case Join:
		return fmt.Sprintf("SOLVersion: %s; Command: JOIN;", ProtocolVersion), nil
	case Bid:
		return fmt.Sprintf("SOLVersion: %s; Command: BID; Price: %d;", ProtocolVersion, v.Amount), nil
	case *Bid:
		if v == nil {
			return "", fmt.Errorf("nil bid command")
		}
		return FormatCommand(*v)
	}
	return "", fmt.Errorf("unsupported command type %T", cmd)
}

// ParseCommand is the inverse of FormatCommand. Auction house fakes use it to
// inspect what a sniper has sent.
func ParseCommand(raw string) (Command, error) {
	fields, err := splitFields(raw)
	if err != nil {
		return nil, err
	}
	switch name := strings.ToUpper(fields["command"]); name {
	case "JOIN":
		return Join{}, nil
	case "BID":
		amount, err := parseAmount(fields, "price")
		if err != nil {
			return nil, err
		}
		return Bid{Amount: amount}, nil
	case "":
		return nil, fmt.Errorf("command name is missing")
	default:
		return nil, fmt.Errorf("unknown command %q", name)
	}
}

// FormatEvent renders an event in the wire format.
func FormatEvent(ev Event) (string, error) {
	switch v := ev.(type) {
	case Closed:
		return fmt.Sprintf("SOLVersion: %s; Event: CLOSE;", ProtocolVersion), nil
	case PriceReported:
		return fmt.Sprintf("SOLVersion: %s; Event: PRICE; CurrentPrice: %d; Increment: %d; Bidder: %s;", ProtocolVersion, v.Price, v.Increment, v.Bidder), nil
	}
	return "", fmt.Errorf("unsupported event type %T", ev)
}
