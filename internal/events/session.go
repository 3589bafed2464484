// Package events defines the payloads carried by the session hub brokers.
package events

import "time"

// AllSessions is the SessionID of an invalidation covering every session
// of the owner.
const AllSessions = "all"

// SessionEventType describes which mutation made a cache stale.
type SessionEventType string

// Session event type constants.
const (
	SessionEventArchived    SessionEventType = "archived"
	SessionEventRestored    SessionEventType = "restored"
	SessionEventDeleted     SessionEventType = "deleted"
	SessionEventRenamed     SessionEventType = "renamed"
	SessionEventShared      SessionEventType = "shared"
	SessionEventUnshared    SessionEventType = "unshared"
	SessionEventArchivedAll SessionEventType = "archived_all"
	SessionEventDeletedAll  SessionEventType = "deleted_all"
)

// SessionEvent is an invalidation signal: the cached state of SessionID
// (or of every session, see AllSessions) no longer matches the store.
type SessionEvent struct {
	SessionID string
	Title     string
	Type      SessionEventType
	Timestamp time.Time
}

// All reports whether the event invalidates every session.
func (e SessionEvent) All() bool {
	return e.SessionID == AllSessions
}

// Enters reports whether the event can move a session into the active
// list, in which case the id is by definition not cached there yet.
func (e SessionEvent) Enters() bool {
	return e.Type == SessionEventRestored
}

func newSessionEvent(id string, typ SessionEventType) SessionEvent {
	return SessionEvent{
		SessionID: id,
		Type:      typ,
		Timestamp: time.Now(),
	}
}

// NewSessionArchivedEvent creates a session archived event.
func NewSessionArchivedEvent(id string) SessionEvent {
	return newSessionEvent(id, SessionEventArchived)
}

// NewSessionRestoredEvent creates an event for a session that left the archive.
func NewSessionRestoredEvent(id string) SessionEvent {
	return newSessionEvent(id, SessionEventRestored)
}

// NewSessionDeletedEvent creates a session deleted event.
func NewSessionDeletedEvent(id string) SessionEvent {
	return newSessionEvent(id, SessionEventDeleted)
}

// NewSessionRenamedEvent creates a session renamed event.
func NewSessionRenamedEvent(id, title string) SessionEvent {
	e := newSessionEvent(id, SessionEventRenamed)
	e.Title = title
	return e
}

// NewSessionSharedEvent creates a shared or unshared event.
func NewSessionSharedEvent(id string, shared bool) SessionEvent {
	if shared {
		return newSessionEvent(id, SessionEventShared)
	}
	return newSessionEvent(id, SessionEventUnshared)
}

// NewAllArchivedEvent invalidates every session after a bulk archive.
func NewAllArchivedEvent() SessionEvent {
	return newSessionEvent(AllSessions, SessionEventArchivedAll)
}

// NewAllDeletedEvent invalidates every session after a bulk delete.
func NewAllDeletedEvent() SessionEvent {
	return newSessionEvent(AllSessions, SessionEventDeletedAll)
}
