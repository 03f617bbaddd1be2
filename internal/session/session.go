// Package session tracks the lifecycle of the active model switch.
//
// Ownership rule: BeginSwitch is the only call request handlers make that
// writes state. CompleteSwitch and FailSwitch are reserved for the owner loop
// executing the queued switch command. Everybody may read a Snapshot.
package session

import (
	"sync"

	"github.com/bhandras/avatarctl/internal/logger"
)

// Session is the process-wide switch state machine.
type Session struct {
	mu     sync.Mutex
	state  Snapshot
	issued Ticket

	watchers map[int]chan Snapshot
	nextID   int
}

// New creates a session in StateReady with no active model.
func New() *Session {
	return &Session{
		state:    Snapshot{State: StateReady},
		watchers: make(map[int]chan Snapshot),
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the session is in StateReady.
func (s *Session) Ready() bool {
	return s.Snapshot().State == StateReady
}

// BeginSwitch atomically moves the session to StateLoading for id and returns
// the ticket the owner must present on completion.
//
// Without force, a switch requested while loading is rejected with ErrBusy
// and the state is left untouched.
func (s *Session) BeginSwitch(id string, force bool) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.State == StateLoading && !force {
		return 0, ErrBusy
	}

	s.issued++
	s.state.State = StateLoading
	s.state.PendingID = id
	s.state.LastError = ""
	s.notifyLocked()
	return s.issued, nil
}

// CompleteSwitch records that the switch identified by ticket loaded id.
//
// The active model always becomes id. The session only returns to StateReady
// if no newer switch was accepted since; otherwise it keeps loading the newer
// pending model.
func (s *Session) CompleteSwitch(ticket Ticket, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.ActiveID = id
	if ticket != s.issued {
		logger.Debugf("[session] switch to %s finished but superseded by %s",
			id, s.state.PendingID)
		s.notifyLocked()
		return
	}
	s.state.State = StateReady
	s.state.PendingID = ""
	s.state.LastError = ""
	s.notifyLocked()
}

// FailSwitch records that the switch identified by ticket failed. The active
// model id is left unchanged.
func (s *Session) FailSwitch(ticket Ticket, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket != s.issued {
		logger.Debugf("[session] superseded switch failed: %v", err)
		return
	}
	s.state.State = StateError
	s.state.PendingID = ""
	s.state.LastError = "switch failed"
	if err != nil {
		s.state.LastError = err.Error()
	}
	s.notifyLocked()
}

// Subscribe returns a channel that receives the latest snapshot after every
// transition, and a func to stop receiving. Slow readers only see the newest
// snapshot.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 1)
	s.watchers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers, id)
		})
	}
	return ch, cancel
}

func (s *Session) notifyLocked() {
	snap := s.state
	for _, ch := range s.watchers {
		// Replace any unread snapshot with the newest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
