// Package history keeps the grouped list of active sessions in sync with
// the remote store.
package history

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/guilhermegouw/chatkeeper/internal/debug"
	"github.com/guilhermegouw/chatkeeper/internal/events"
	"github.com/guilhermegouw/chatkeeper/internal/pubsub"
	"github.com/guilhermegouw/chatkeeper/internal/session"
)

const component = "history"

// ErrUnmounted is returned by a fetch whose result was discarded because
// the controller was unmounted while it was in flight.
var ErrUnmounted = errors.New("session list unmounted")

// State is the lifecycle state of the session list.
type State int

// Session list states.
const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Lister fetches the active sessions of an owner.
type Lister interface {
	ListActive(ctx context.Context, ownerToken string) ([]session.Record, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used by CurrentGroups.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithOnChange registers a callback invoked after every state change. It
// runs outside the controller lock.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// Controller owns the cache of active sessions. The cache is only ever
// replaced wholesale by a successful fetch; a failed fetch leaves the last
// good cache in place.
type Controller struct { //nolint:govet // fieldalignment: preserving logical field order
	gateway  Lister
	token    string
	hub      *pubsub.Hub
	now      func() time.Time
	onChange func(State)

	flight singleflight.Group
	wake   chan struct{}
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	cache      []session.Record
	cached     map[string]struct{}
	err        error
	fetching   bool
	dirty      bool
	generation uint64
	lifetime   context.Context
	cancel     context.CancelFunc
}

// New creates a session list controller for the owner's active sessions.
func New(gateway Lister, ownerToken string, hub *pubsub.Hub, opts ...Option) *Controller {
	c := &Controller{
		gateway:  gateway,
		token:    ownerToken,
		hub:      hub,
		now:      time.Now,
		wake:     make(chan struct{}, 1),
		cached:   map[string]struct{}{},
		lifetime: context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount subscribes to invalidations and performs the initial fetch. The
// subscription lives until Unmount or until ctx is done.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return c.Refresh(ctx)
	}
	lifetime, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.lifetime = lifetime
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			c.Unmount()
		case <-lifetime.Done():
		}
	}()

	if c.hub != nil {
		sub := c.hub.Session.Subscribe(lifetime)
		c.wg.Add(1)
		go c.listen(sub)
	}
	c.wg.Add(1)
	go c.refresher(lifetime)

	debug.Event(component, "mount", c.token)
	return c.Refresh(ctx)
}

// Unmount drops the subscription, discards any in-flight result and resets
// the controller to Idle.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	c.lifetime = context.Background()
	c.generation++
	c.state = StateIdle
	c.cache = nil
	c.cached = map[string]struct{}{}
	c.err = nil
	c.fetching = false
	c.dirty = false
	c.mu.Unlock()

	c.wg.Wait()
	// A wake queued before the refresher stopped belongs to this mount.
	select {
	case <-c.wake:
	default:
	}
	debug.Event(component, "unmount", c.token)
	c.changed(StateIdle)
}

// Refresh fetches the active list. A call made while a fetch is in flight
// joins that fetch instead of issuing another one. ctx bounds only the
// wait; the fetch itself runs for the controller's lifetime.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	gen := c.generation
	lifetime := c.lifetime
	c.mu.Unlock()

	ch := c.flight.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return nil, c.load(lifetime, gen)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnMutationComplete is the invalidation entry point. It triggers a
// re-fetch when id is events.AllSessions or a cached session.
func (c *Controller) OnMutationComplete(id string) {
	c.mu.Lock()
	_, known := c.cached[id]
	c.mu.Unlock()

	if id == events.AllSessions || known {
		c.invalidate()
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the last failed fetch, or nil after a success.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Sessions returns a copy of the cache.
func (c *Controller) Sessions() []session.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cache)
}

// CurrentGroups returns the cache grouped by date.
func (c *Controller) CurrentGroups() []session.Group {
	return session.GroupByDate(c.Sessions(), c.now())
}

func (c *Controller) handle(ev events.SessionEvent) {
	// A restored session is not cached here yet but belongs in the list.
	if ev.Enters() {
		c.invalidate()
		return
	}
	c.OnMutationComplete(ev.SessionID)
}

// invalidate marks an in-flight fetch as stale, or schedules a new one.
// An unmounted controller has nothing to refresh.
func (c *Controller) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return
	}
	if c.fetching {
		c.dirty = true
		return
	}

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) listen(sub <-chan pubsub.Event[events.SessionEvent]) {
	defer c.wg.Done()
	for ev := range sub {
		debug.Event(component, "invalidation", ev.Payload.SessionID)
		c.handle(ev.Payload)
	}
}

func (c *Controller) refresher(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			_ = c.Refresh(ctx) //nolint:errcheck // failures are published as notices
		}
	}
}

// load fetches until no invalidation arrived during the last fetch, so the
// final cache reflects the store after the latest signal.
func (c *Controller) load(ctx context.Context, gen uint64) error {
	for {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return ErrUnmounted
		}
		c.fetching = true
		c.dirty = false
		c.state = StateLoading
		c.mu.Unlock()
		c.changed(StateLoading)

		records, err := c.gateway.ListActive(ctx, c.token)

		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return ErrUnmounted
		}
		again := c.dirty
		c.dirty = false
		c.fetching = again
		if err != nil {
			c.state = StateError
			c.err = err
		} else {
			c.cache = records
			c.cached = make(map[string]struct{}, len(records))
			for i := range records {
				c.cached[records[i].ID] = struct{}{}
			}
			c.state = StateReady
			c.err = nil
		}
		state := c.state
		c.mu.Unlock()
		c.changed(state)

		if err != nil {
			debug.Error(component, err, "list active")
			if c.hub != nil {
				c.hub.Notice.Publish(events.NewErrorNotice(component, "", "Failed to load chats", err))
			}
		}
		if !again {
			return err
		}
	}
}

func (c *Controller) changed(state State) {
	debug.Event(component, "state", state.String())
	if c.onChange != nil {
		c.onChange(state)
	}
}
