package realtime

import "time"

// Status represents the current phase of the connection lifecycle.
type Status int

const (
	// StatusDisconnected means the manager is not connected.
	StatusDisconnected Status = iota

	// StatusConnecting means the manager is establishing a connection.
	StatusConnecting

	// StatusConnected means the transport is up and authenticated.
	StatusConnected

	// StatusReconnecting means the manager is retrying after a
	// non-intentional disconnect.
	StatusReconnecting

	// StatusError means the last connection attempt failed or retries
	// are exhausted.
	StatusError
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the observable connection state snapshot.
//
// Invariant: Status == StatusConnected implies Err == nil and
// ReconnectAttempts == 0.
type State struct {
	Status            Status
	Err               error
	LastConnected     time.Time
	ReconnectAttempts int
}
