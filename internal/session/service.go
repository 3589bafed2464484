package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guilhermegouw/chatkeeper/internal/debug"
	"github.com/guilhermegouw/chatkeeper/internal/events"
	"github.com/guilhermegouw/chatkeeper/internal/pubsub"
)

const component = "session"

// ErrEmptyTitle is returned when renaming to a blank title.
var ErrEmptyTitle = errors.New("title must not be empty")

// Service performs single-session mutations. Every successful mutation is
// followed by an invalidation naming the session; failures are surfaced as
// error notices and returned.
type Service struct {
	gateway Mutator
	bus     pubsub.Publisher[events.SessionEvent]
	notices pubsub.Publisher[events.NoticeEvent]
}

// NewService creates a new session service publishing on hub.
func NewService(gateway Mutator, hub *pubsub.Hub) *Service {
	s := &Service{gateway: gateway}
	if hub != nil {
		s.bus = hub.Session
		s.notices = hub.Notice
	}
	return s
}

// Archive moves a session out of the active list.
func (s *Service) Archive(ctx context.Context, id string) error {
	if err := s.gateway.SetArchived(ctx, id, true); err != nil {
		return s.fail(id, "Failed to archive chat", err)
	}
	s.publish(events.NewSessionArchivedEvent(id))
	return nil
}

// Unarchive moves a session back into the active list.
func (s *Service) Unarchive(ctx context.Context, id string) error {
	if err := s.gateway.SetArchived(ctx, id, false); err != nil {
		return s.fail(id, "Failed to unarchive chat", err)
	}
	s.publish(events.NewSessionRestoredEvent(id))
	return nil
}

// Delete permanently removes a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.gateway.DeleteOne(ctx, id); err != nil {
		return s.fail(id, "Failed to delete chat", err)
	}
	s.publish(events.NewSessionDeletedEvent(id))
	return nil
}

// Rename updates a session title. Surrounding whitespace is dropped.
func (s *Service) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if err := s.gateway.Rename(ctx, id, title); err != nil {
		return s.fail(id, "Failed to rename chat", err)
	}
	s.publish(events.NewSessionRenamedEvent(id, title))
	return nil
}

// Share enables the public link of a session and returns its URL.
func (s *Service) Share(ctx context.Context, id string) (string, error) {
	url, err := s.gateway.SetShared(ctx, id, true)
	if err != nil {
		return "", s.fail(id, "Failed to share chat", err)
	}
	s.publish(events.NewSessionSharedEvent(id, true))
	return url, nil
}

// Unshare revokes the public link of a session.
func (s *Service) Unshare(ctx context.Context, id string) error {
	if _, err := s.gateway.SetShared(ctx, id, false); err != nil {
		return s.fail(id, "Failed to unshare chat", err)
	}
	s.publish(events.NewSessionSharedEvent(id, false))
	return nil
}

func (s *Service) publish(event events.SessionEvent) {
	debug.Event(component, string(event.Type), event.SessionID)
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

func (s *Service) fail(id, message string, err error) error {
	debug.Error(component, err, message+" "+id)
	if s.notices != nil {
		s.notices.Publish(events.NewErrorNotice(component, id, message, err))
	}
	return fmt.Errorf("%s %s: %w", strings.ToLower(message), id, err)
}
