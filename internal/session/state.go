package session

import "errors"

// State is the lifecycle state of the model switch operation.
type State string

const (
	// StateReady means idle: the last switch succeeded or none was attempted.
	StateReady State = "ready"
	// StateLoading means a switch is queued or executing on the owner loop.
	StateLoading State = "loading"
	// StateError means the last switch failed.
	StateError State = "error"
)

// ErrBusy is returned when a non-forced switch is requested while another
// switch is still loading.
var ErrBusy = errors.New("model is loading")

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	State State
	// ActiveID is the model that last finished loading, empty if none.
	ActiveID string
	// PendingID is the model being switched to. It is non-empty iff State is
	// StateLoading.
	PendingID string
	// LastError holds the failure detail of the last switch, empty otherwise.
	LastError string
}

// ModelID returns the id a status poll should report: the pending model while
// loading, the active model otherwise.
func (s Snapshot) ModelID() string {
	if s.State == StateLoading {
		return s.PendingID
	}
	return s.ActiveID
}

// Ticket identifies one accepted switch. Only the most recently issued ticket
// may move the session out of StateLoading.
type Ticket uint64
