package link

import (
	"errors"
	"time"
)

var (
	// ErrLinkUnavailable is returned by Send when the link is not Connected.
	ErrLinkUnavailable = errors.New("link unavailable")
	// ErrStopped is returned once Stop has been called.
	ErrStopped = errors.New("link stopped")
)

// State is the connection state of the device link.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of the link.
type Status struct {
	State          State     `json:"-"`
	StateName      string    `json:"state"`
	Path           string    `json:"path"`
	Baud           int       `json:"baud"`
	Attempts       int       `json:"attempts"`
	Reconnects     int       `json:"reconnects"`
	ConnectedSince time.Time `json:"connected_since,omitzero"`
}
