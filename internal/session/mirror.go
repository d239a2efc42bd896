package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyAttached is returned when a Mirror is attached to a second Notifier.
var ErrAlreadyAttached = errors.New("session mirror already attached")

// Mirror holds the last session pushed by a Notifier.
//
// The subscription callback registered by Attach is the only writer; every change
// replaces the value wholesale. Readers get the value current at the moment of the
// call, and an expired session reads as signed out.
type Mirror struct {
	current atomic.Pointer[Session]

	mu       sync.Mutex
	detach   func()
	attached bool

	now func() time.Time
}

// NewMirror creates an empty, unattached mirror.
func NewMirror() *Mirror {
	return &Mirror{now: time.Now}
}

// Attach subscribes the mirror to n. The returned function unsubscribes and
// clears the mirrored session.
func (m *Mirror) Attach(n Notifier) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attached {
		return nil, ErrAlreadyAttached
	}
	m.attached = true
	m.detach = n.Subscribe(m.replace)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.detach != nil {
			m.detach()
			m.detach = nil
		}
		m.attached = false
		m.current.Store(nil)
	}, nil
}

func (m *Mirror) replace(s *Session) {
	m.current.Store(s.clone())
}

// Session implements Source.
func (m *Mirror) Session(ctx context.Context) (*Session, error) {
	s := m.current.Load()
	if s == nil || s.Expired(m.now()) {
		return nil, nil
	}
	return s.clone(), nil
}
