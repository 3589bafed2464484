//nolint:goconst // Test files use literal strings for clarity.
package events

import (
	"errors"
	"testing"
	"time"
)

func TestSessionEventTypes(t *testing.T) {
	types := []SessionEventType{
		SessionEventArchived,
		SessionEventRestored,
		SessionEventDeleted,
		SessionEventRenamed,
		SessionEventShared,
		SessionEventUnshared,
		SessionEventArchivedAll,
		SessionEventDeletedAll,
	}

	seen := make(map[SessionEventType]bool)
	for _, typ := range types {
		if seen[typ] {
			t.Errorf("duplicate event type: %s", typ)
		}
		seen[typ] = true

		if string(typ) == "" {
			t.Error("event type should have non-empty string value")
		}
	}
}

func TestNewSessionArchivedEvent(t *testing.T) {
	before := time.Now()
	event := NewSessionArchivedEvent("session-123")
	after := time.Now()

	if event.SessionID != "session-123" {
		t.Errorf("expected SessionID 'session-123', got %q", event.SessionID)
	}
	if event.Type != SessionEventArchived {
		t.Errorf("expected Type SessionEventArchived, got %q", event.Type)
	}
	if event.Timestamp.Before(before) || event.Timestamp.After(after) {
		t.Error("timestamp should be within test bounds")
	}
	if event.All() {
		t.Error("single-session event should not invalidate all")
	}
	if event.Enters() {
		t.Error("archived event should not enter the active list")
	}
}

func TestNewSessionRestoredEvent(t *testing.T) {
	event := NewSessionRestoredEvent("session-456")

	if event.Type != SessionEventRestored {
		t.Errorf("expected Type SessionEventRestored, got %q", event.Type)
	}
	if !event.Enters() {
		t.Error("restored event should enter the active list")
	}
}

func TestNewSessionRenamedEvent(t *testing.T) {
	title := "Session with 日本語 and émojis 🎉"
	event := NewSessionRenamedEvent("s", title)

	if event.Title != title {
		t.Errorf("expected Title %q, got %q", title, event.Title)
	}
	if event.Type != SessionEventRenamed {
		t.Errorf("expected Type SessionEventRenamed, got %q", event.Type)
	}
}

func TestNewSessionSharedEvent(t *testing.T) {
	t.Run("shared", func(t *testing.T) {
		if got := NewSessionSharedEvent("s", true).Type; got != SessionEventShared {
			t.Errorf("expected SessionEventShared, got %q", got)
		}
	})

	t.Run("unshared", func(t *testing.T) {
		if got := NewSessionSharedEvent("s", false).Type; got != SessionEventUnshared {
			t.Errorf("expected SessionEventUnshared, got %q", got)
		}
	})
}

func TestAllEvents(t *testing.T) {
	for _, event := range []SessionEvent{NewAllArchivedEvent(), NewAllDeletedEvent()} {
		if !event.All() {
			t.Errorf("%s: expected All() to be true", event.Type)
		}
		if event.SessionID != AllSessions {
			t.Errorf("%s: expected SessionID %q, got %q", event.Type, AllSessions, event.SessionID)
		}
	}
}

func TestNoticeString(t *testing.T) {
	t.Run("info notice", func(t *testing.T) {
		n := NewInfoNotice("bulk", "Exported 3 sessions")
		if n.String() != "Exported 3 sessions" {
			t.Errorf("unexpected string %q", n.String())
		}
		if n.Level != NoticeInfo {
			t.Errorf("expected info level, got %q", n.Level)
		}
	})

	t.Run("error notice includes cause", func(t *testing.T) {
		n := NewErrorNotice("history", "", "Failed to fetch sessions", errors.New("boom"))
		if n.String() != "Failed to fetch sessions: boom" {
			t.Errorf("unexpected string %q", n.String())
		}
		if n.Level != NoticeError {
			t.Errorf("expected error level, got %q", n.Level)
		}
	})
}
