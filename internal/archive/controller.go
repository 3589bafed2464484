// Package archive drives the archived-sessions dialog.
package archive

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/guilhermegouw/chatkeeper/internal/debug"
	"github.com/guilhermegouw/chatkeeper/internal/events"
	"github.com/guilhermegouw/chatkeeper/internal/pubsub"
	"github.com/guilhermegouw/chatkeeper/internal/session"
)

const component = "archive"

var (
	// ErrClosed is returned when operating on a closed dialog.
	ErrClosed = errors.New("archive dialog is closed")
	// ErrStale is returned by a fetch whose dialog was closed or reopened
	// before the response arrived.
	ErrStale = errors.New("archive response discarded")
)

// State is the dialog state.
type State int

// Dialog states.
const (
	StateClosed State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Gateway is what the dialog needs from the session store.
type Gateway interface {
	ListArchived(ctx context.Context, ownerToken string) ([]session.Record, error)
	session.Mutator
}

// Controller holds the archived list for one open dialog. Every Open starts
// from an empty cache; responses belonging to an earlier Open are dropped,
// and so is any response overtaken by a later fetch of the same Open.
type Controller struct { //nolint:govet // fieldalignment: preserving logical field order
	gateway Gateway
	token   string
	service *session.Service
	notices pubsub.Publisher[events.NoticeEvent]

	mu         sync.Mutex
	state      State
	cache      []session.Record
	err        error
	generation uint64
	// seq numbers fetches; only the latest one issued may replace the cache.
	seq uint64
}

// New creates a closed archive dialog controller.
func New(gateway Gateway, ownerToken string, hub *pubsub.Hub) *Controller {
	c := &Controller{
		gateway: gateway,
		token:   ownerToken,
		service: session.NewService(gateway, hub),
	}
	if hub != nil {
		c.notices = hub.Notice
	}
	return c
}

// Open opens the dialog and fetches the archived list.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.state = StateLoading
	c.cache = nil
	c.err = nil
	c.mu.Unlock()

	debug.Event(component, "open", c.token)
	return c.fetch(ctx, gen)
}

// Close closes the dialog and discards the cache. A fetch still in flight
// will be ignored when it completes.
func (c *Controller) Close() {
	c.mu.Lock()
	c.generation++
	c.state = StateClosed
	c.cache = nil
	c.err = nil
	c.mu.Unlock()

	debug.Event(component, "close", c.token)
}

// Unarchive restores a session to the active list, announces it on the
// invalidation bus and re-fetches the archived list.
func (c *Controller) Unarchive(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	gen := c.generation
	c.mu.Unlock()

	if err := c.service.Unarchive(ctx, id); err != nil {
		return err
	}
	return c.fetch(ctx, gen)
}

// State returns the dialog state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the last failed fetch.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Sessions returns a copy of the archived list.
func (c *Controller) Sessions() []session.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cache)
}

func (c *Controller) fetch(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	records, err := c.gateway.ListArchived(ctx, c.token)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		debug.Event(component, "discard", "stale archived list")
		return ErrStale
	}
	if seq != c.seq {
		// A later fetch of this dialog owns the cache.
		c.mu.Unlock()
		debug.Event(component, "discard", "superseded archived list")
		return nil
	}
	if err != nil {
		// The previous list of this dialog, if any, stays visible.
		c.state = StateError
		c.err = err
	} else {
		c.state = StateReady
		c.cache = records
		c.err = nil
	}
	c.mu.Unlock()

	if err != nil {
		debug.Error(component, err, "list archived")
		if c.notices != nil {
			c.notices.Publish(events.NewErrorNotice(component, "", "Failed to load archived chats", err))
		}
		return err
	}
	debug.Event(component, "state", StateReady.String())
	return nil
}
