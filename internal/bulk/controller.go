// Package bulk runs the whole-collection actions: archive all, delete all
// and export all. Each one goes through a confirmation step.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/guilhermegouw/chatkeeper/internal/debug"
	"github.com/guilhermegouw/chatkeeper/internal/events"
	"github.com/guilhermegouw/chatkeeper/internal/pubsub"
	"github.com/guilhermegouw/chatkeeper/internal/session"
)

const component = "bulk"

var (
	// ErrBusy is returned when a flow is requested while another one is
	// confirming or executing.
	ErrBusy = errors.New("another bulk action is in progress")
	// ErrNotConfirming is returned by Confirm or Cancel without a pending
	// confirmation.
	ErrNotConfirming = errors.New("no bulk action awaiting confirmation")
	// ErrExecuting is returned by Cancel once the action was dispatched.
	ErrExecuting = errors.New("bulk action is executing")
	// ErrCancelled is returned by Request when its flow was cancelled
	// while the archive all snapshot was loading.
	ErrCancelled = errors.New("bulk action cancelled")
)

// Action identifies a bulk flow.
type Action int

// Bulk actions.
const (
	ActionArchiveAll Action = iota + 1
	ActionDeleteAll
	ActionExportAll
)

func (a Action) String() string {
	switch a {
	case ActionArchiveAll:
		return "archive all"
	case ActionDeleteAll:
		return "delete all"
	case ActionExportAll:
		return "export all"
	}
	return "none"
}

// Phase is the position of the controller in a flow.
type Phase int

// Flow phases.
const (
	PhaseIdle Phase = iota
	PhaseConfirming
	PhaseExecuting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConfirming:
		return "confirming"
	case PhaseExecuting:
		return "executing"
	}
	return "unknown"
}

// Gateway is what the bulk flows need from the session store.
type Gateway interface {
	ListActive(ctx context.Context, ownerToken string) ([]session.Record, error)
	SetArchived(ctx context.Context, id string, archived bool) error
	DeleteAll(ctx context.Context, ownerToken string) error
	ExportAll(ctx context.Context, ownerToken string) ([]byte, error)
}

// ItemError is the failure of one session in a batch.
type ItemError struct {
	SessionID string
	Err       error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("session %s: %v", e.SessionID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Result reports what an executed action did.
type Result struct {
	Action Action
	// Archived lists the sessions archived by archive all.
	Archived []string
	// Failed lists the sessions archive all could not archive.
	Failed []*ItemError
	// Export is the document produced by export all.
	Export []byte
}

// Option configures a Controller.
type Option func(*Controller)

// WithRedirect sets the navigation performed after a successful delete all.
func WithRedirect(fn func()) Option {
	return func(c *Controller) {
		c.redirect = fn
	}
}

// Controller enforces that at most one bulk flow is active at a time.
type Controller struct { //nolint:govet // fieldalignment: preserving logical field order
	gateway  Gateway
	token    string
	bus      pubsub.Publisher[events.SessionEvent]
	notices  pubsub.Publisher[events.NoticeEvent]
	redirect func()

	mu     sync.Mutex
	action Action
	phase  Phase
	// loading is set while the archive all snapshot is in flight.
	loading bool
	pending []string
	flow    uint64
}

// New creates an idle bulk controller.
func New(gateway Gateway, ownerToken string, hub *pubsub.Hub, opts ...Option) *Controller {
	c := &Controller{
		gateway: gateway,
		token:   ownerToken,
	}
	if hub != nil {
		c.bus = hub.Session
		c.notices = hub.Notice
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request opens the confirmation for action. Archive all snapshots the
// active list at this point; Pending returns it for display, and Confirm
// archives exactly those sessions. Until the snapshot arrives the flow can
// be cancelled but not confirmed.
func (c *Controller) Request(ctx context.Context, action Action) error {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.flow++
	flow := c.flow
	c.action = action
	c.phase = PhaseConfirming
	c.loading = action == ActionArchiveAll
	c.pending = nil
	c.mu.Unlock()

	debug.Event(component, "confirming", action.String())
	if action != ActionArchiveAll {
		return nil
	}

	records, err := c.gateway.ListActive(ctx, c.token)

	c.mu.Lock()
	if flow != c.flow {
		c.mu.Unlock()
		debug.Event(component, "discard", "snapshot of a cancelled flow")
		return ErrCancelled
	}
	if err != nil {
		c.clear()
		c.mu.Unlock()
		return c.fail("", "Failed to load chats", err)
	}
	c.loading = false
	c.pending = session.IDs(records)
	c.mu.Unlock()
	return nil
}

// Cancel abandons a pending confirmation.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseExecuting:
		return ErrExecuting
	case PhaseIdle:
		return ErrNotConfirming
	}
	debug.Event(component, "cancel", c.action.String())
	c.clear()
	return nil
}

// Confirm executes the pending action. Once dispatched the action cannot
// be cancelled: cancellation of ctx does not reach the gateway calls.
func (c *Controller) Confirm(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if phase := c.phase; phase != PhaseConfirming || c.loading {
		c.mu.Unlock()
		if phase == PhaseExecuting {
			return Result{}, ErrExecuting
		}
		return Result{}, ErrNotConfirming
	}
	action := c.action
	pending := c.pending
	c.phase = PhaseExecuting
	c.mu.Unlock()
	defer c.reset()

	debug.Event(component, "executing", action.String())
	ctx = context.WithoutCancel(ctx)

	switch action {
	case ActionArchiveAll:
		return c.archiveAll(ctx, pending)
	case ActionDeleteAll:
		return c.deleteAll(ctx)
	case ActionExportAll:
		return c.exportAll(ctx)
	}
	return Result{}, fmt.Errorf("unknown bulk action %d", action)
}

// Action returns the active flow, or zero when idle.
func (c *Controller) Action() Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.action
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Pending returns the sessions archive all will act on.
func (c *Controller) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.pending)
}

// archiveAll archives every pending session. A failed item is reported and
// the loop carries on, so the batch may end partially applied.
func (c *Controller) archiveAll(ctx context.Context, ids []string) (Result, error) {
	res := Result{Action: ActionArchiveAll}
	var errs []error

	for _, id := range ids {
		if err := c.gateway.SetArchived(ctx, id, true); err != nil {
			item := &ItemError{SessionID: id, Err: err}
			res.Failed = append(res.Failed, item)
			errs = append(errs, c.fail(id, "Failed to archive chat", item))
			continue
		}
		res.Archived = append(res.Archived, id)
	}

	if len(res.Archived) > 0 {
		c.publish(events.NewAllArchivedEvent())
	}
	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	c.info(fmt.Sprintf("Archived %d chats", len(res.Archived)))
	return res, nil
}

func (c *Controller) deleteAll(ctx context.Context) (Result, error) {
	res := Result{Action: ActionDeleteAll}
	if err := c.gateway.DeleteAll(ctx, c.token); err != nil {
		return res, c.fail("", "Failed to delete chats", err)
	}

	c.publish(events.NewAllDeletedEvent())
	c.info("Deleted all chats")
	if c.redirect != nil {
		c.redirect()
	}
	return res, nil
}

// exportAll changes nothing in the store, so it publishes no invalidation.
func (c *Controller) exportAll(ctx context.Context) (Result, error) {
	res := Result{Action: ActionExportAll}
	data, err := c.gateway.ExportAll(ctx, c.token)
	if err != nil {
		return res, c.fail("", "Failed to export chats", err)
	}
	res.Export = data
	c.info("Exported chats")
	return res, nil
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.clear()
	c.mu.Unlock()
	debug.Event(component, "state", PhaseIdle.String())
}

// clear returns to idle and retires the current flow. c.mu must be held.
func (c *Controller) clear() {
	c.flow++
	c.action = 0
	c.phase = PhaseIdle
	c.loading = false
	c.pending = nil
}

func (c *Controller) publish(event events.SessionEvent) {
	debug.Event(component, string(event.Type), event.SessionID)
	if c.bus != nil {
		c.bus.Publish(event)
	}
}

func (c *Controller) info(message string) {
	if c.notices != nil {
		c.notices.Publish(events.NewInfoNotice(component, message))
	}
}

func (c *Controller) fail(id, message string, err error) error {
	debug.Error(component, err, message)
	if c.notices != nil {
		c.notices.Publish(events.NewErrorNotice(component, id, message, err))
	}
	return fmt.Errorf("%s: %w", message, err)
}
