package call

import (
	"fmt"
	"sync"
)

// NotificationRef is the handle needed to update a posted chat alert in
// place (Slack channel + message timestamp).
type NotificationRef struct {
	Channel   string
	Timestamp string
}

// Zero reports whether the alert was never posted.
func (r NotificationRef) Zero() bool {
	return r.Channel == "" && r.Timestamp == ""
}

// PendingCall tracks one inbound call awaiting a responder.
type PendingCall struct {
	CallSID        string
	CallerNumber   string
	ConferenceRoom string
	Notification   NotificationRef

	deadline Timer
}

// Store is the registry of in-flight calls. The accept handler and the
// deadline timer race for each record; Resolve hands the record to
// exactly one of them.
type Store struct {
	mu    sync.Mutex
	calls map[string]*PendingCall
}

// NewStore creates an empty pending-call store.
func NewStore() *Store {
	return &Store{calls: make(map[string]*PendingCall)}
}

// ConferenceRoomFor derives the conference room name for a call. The
// room must be stable across the responder-join and caller-redirect
// instructions, so it is a pure function of the call SID.
func ConferenceRoomFor(callSID string) string {
	return fmt.Sprintf("conf-%s", callSID)
}

// Add registers a pending call with its armed deadline timer. Adding the
// same call SID twice replaces the old record and stops its timer.
func (s *Store) Add(pc *PendingCall, deadline Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.calls[pc.CallSID]; ok && old.deadline != nil {
		old.deadline.Stop()
	}
	pc.deadline = deadline
	s.calls[pc.CallSID] = pc
}

// Resolve atomically removes and returns the pending call, stopping its
// deadline timer. The second caller for the same SID gets ok=false and
// must treat the call as already handled; the store is the single
// source of truth, not the timer's Stop result.
func (s *Store) Resolve(callSID string) (*PendingCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.calls[callSID]
	if !ok {
		return nil, false
	}
	delete(s.calls, callSID)
	if pc.deadline != nil {
		pc.deadline.Stop()
	}
	return pc, true
}

// Len returns the number of calls still awaiting a responder.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
