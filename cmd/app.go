package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/guilhermegouw/chatkeeper/internal/config"
	"github.com/guilhermegouw/chatkeeper/internal/events"
	"github.com/guilhermegouw/chatkeeper/internal/gateway"
	"github.com/guilhermegouw/chatkeeper/internal/pubsub"
	"github.com/guilhermegouw/chatkeeper/internal/session"
)

// app is the session-management context of one command: the gateway, the
// hub every controller publishes on and the printer showing its notices.
type app struct {
	cfg     *config.Config
	token   string
	client  *gateway.Client
	hub     *pubsub.Hub
	service *session.Service
	out     io.Writer
	printer *noticePrinter
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	token, err := cfg.RequireToken()
	if err != nil {
		return nil, err
	}

	client := gateway.New(gateway.Options{
		Root:      cfg.API.Root,
		Timeout:   cfg.Timeout(),
		RetryMax:  cfg.API.RetryMax,
		RateLimit: cfg.API.RateLimit,
	})
	hub := pubsub.NewHub()

	return &app{
		cfg:     cfg,
		token:   token,
		client:  client,
		hub:     hub,
		service: session.NewService(client, hub),
		out:     cmd.OutOrStdout(),
		printer: startNoticePrinter(hub, cmd.ErrOrStderr()),
	}, nil
}

// Close shuts the hub down and waits until every published notice has been
// printed.
func (a *app) Close() {
	a.hub.Shutdown()
	a.printer.wait()
}

// noticePrinter renders the notice bus as colored lines: the CLI's toasts.
type noticePrinter struct {
	out  *termenv.Output
	mu   sync.Mutex
	done chan struct{}
}

func startNoticePrinter(hub *pubsub.Hub, w io.Writer) *noticePrinter {
	p := &noticePrinter{
		out:  termenv.NewOutput(w),
		done: make(chan struct{}),
	}
	// The subscription ends when the hub shuts down.
	sub := hub.Notice.Subscribe(context.Background())
	go func() {
		defer close(p.done)
		for ev := range sub {
			p.print(ev.Payload)
		}
	}()
	return p
}

func (p *noticePrinter) print(n events.NoticeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark := p.out.String("✓").Foreground(p.out.Color("2"))
	if n.Level == events.NoticeError {
		mark = p.out.String("✗").Foreground(p.out.Color("1")).Bold()
	}
	fmt.Fprintf(p.out, "%s %s\n", mark, n.String())
}

func (p *noticePrinter) wait() {
	<-p.done
}
