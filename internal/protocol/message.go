// Package protocol implements the line protocol spoken with the growth unit.
//
// Inbound lines have the shape CATEGORY:PAYLOAD and are dispatched by
// category to a Handler. Outbound lines are COMMAND:VALUE and are built as
// Command values.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the category from the payload, and a command from its value.
const Delimiter = ":"

// ErrMalformedLine is returned for a line without a delimiter.
var ErrMalformedLine = errors.New("malformed line")

// Category selects which handler processes an inbound line.
type Category string

const (
	CategoryDiagnostic Category = "ARDUINO_READ"
	CategoryHandshake  Category = "INIT"
	CategoryTelemetry  Category = "INFO"
)

// Message is one inbound line split on its first delimiter.
type Message struct {
	Category Category
	Payload  string
}

// ParseLine splits a raw line into its category and payload.
func ParseLine(line string) (Message, error) {
	category, payload, ok := strings.Cut(line, Delimiter)
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	return Message{Category: Category(category), Payload: payload}, nil
}

// Command is one outbound NAME:VALUE line.
type Command struct {
	Name  string
	Value string
}

func (c Command) String() string {
	return c.Name + Delimiter + c.Value
}

// Sender delivers commands to the device.
type Sender interface {
	Send(cmd Command) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(cmd Command) error

func (f SenderFunc) Send(cmd Command) error { return f(cmd) }
