package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/chatkeeper/internal/archive"
	"github.com/guilhermegouw/chatkeeper/internal/bulk"
	"github.com/guilhermegouw/chatkeeper/internal/history"
)

const shellHelp = `Commands:
  list                   show active chats
  refresh                re-fetch active chats
  archived               show archived chats
  archive <id>           archive a chat
  unarchive <id>         restore an archived chat
  delete <id>            delete a chat
  rename <id> <title>    rename a chat
  share <id>             share a chat and print its link
  unshare <id>           stop sharing a chat
  archive-all            archive every active chat
  delete-all             delete every chat
  export [file]          export every chat
  help                   show this help
  quit                   leave the shell`

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Keep the chat list open and manage it interactively",
		Long: `Keep the chat list open and manage it interactively.

The list stays mounted for the whole session: every change made from the
shell invalidates it and the refreshed list is printed.`,
		Args: cobra.NoArgs,
		RunE: runShell,
	}
}

// shell is one interactive session over a mounted list.
type shell struct {
	app    *app
	list   *history.Controller
	dialog *archive.Controller
	bulk   *bulk.Controller
	lines  *bufio.Scanner

	mu  sync.Mutex
	out io.Writer
}

func runShell(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sh := &shell{
		app:    a,
		dialog: archive.New(a.client, a.token, a.hub),
		bulk:   a.bulkController(),
		lines:  bufio.NewScanner(cmd.InOrStdin()),
		out:    a.out,
	}
	a.out = sh
	sh.list = history.New(a.client, a.token, a.hub, history.WithOnChange(sh.listChanged))

	ctx := cmd.Context()
	// A failed first fetch was already shown; the shell stays usable.
	_ = sh.list.Mount(ctx) //nolint:errcheck // failures are published as notices
	defer sh.list.Unmount()

	sh.printf("%s\n", shellHelp)
	for {
		sh.printf("> ")
		line, ok := sh.next()
		if !ok {
			sh.printf("\n")
			return nil
		}
		quit, err := sh.dispatch(ctx, line)
		if err != nil {
			var se *shownError
			if !errors.As(err, &se) {
				sh.printf("error: %v\n", err)
			}
		}
		if quit {
			return nil
		}
	}
}

// Write serializes output from the prompt loop and the list's refresher.
func (s *shell) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s, format, args...)
}

func (s *shell) next() (string, bool) {
	for s.lines.Scan() {
		if line := strings.TrimSpace(s.lines.Text()); line != "" {
			return line, true
		}
	}
	return "", false
}

func (s *shell) listChanged(state history.State) {
	if state == history.StateReady {
		s.render()
	}
}

func (s *shell) render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out)
	printGroups(s.out, s.list.CurrentGroups(), time.Now())
}

func (s *shell) confirm(prompt string) (bool, error) {
	s.printf("%s [y/N] ", prompt)
	line, ok := s.next()
	if !ok {
		return false, nil
	}
	return isYes(line), nil
}

func (s *shell) dispatch(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		s.printf("%s\n", shellHelp)
	case "list", "ls":
		s.render()
	case "refresh":
		return false, shown(s.list.Refresh(ctx))
	case "archived":
		if err := s.dialog.Open(ctx); err != nil {
			return false, shown(err)
		}
		printSessions(s, s.dialog.Sessions(), time.Now(), "No archived chats.")
		s.dialog.Close()
	case "archive", "unarchive", "delete", "share", "unshare":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <id>", name)
		}
		return false, s.mutate(ctx, name, args[0])
	case "rename":
		if len(args) < 2 {
			return false, fmt.Errorf("usage: rename <id> <title>")
		}
		return false, renameSession(ctx, s.app, args[0], strings.Join(args[1:], " "))
	case "archive-all":
		return false, executeBulk(ctx, s.app, s.bulk, bulk.ActionArchiveAll, s.confirm, "")
	case "delete-all":
		return false, executeBulk(ctx, s.app, s.bulk, bulk.ActionDeleteAll, s.confirm, "")
	case "export":
		output := ""
		if len(args) > 0 {
			output = args[0]
		}
		return false, executeBulk(ctx, s.app, s.bulk, bulk.ActionExportAll, s.confirm, output)
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	return false, nil
}

func (s *shell) mutate(ctx context.Context, name, id string) error {
	service := s.app.service
	switch name {
	case "archive":
		return shown(service.Archive(ctx, id))
	case "delete":
		return shown(service.Delete(ctx, id))
	case "unshare":
		return shown(service.Unshare(ctx, id))
	case "share":
		url, err := service.Share(ctx, id)
		if err != nil {
			return shown(err)
		}
		if url != "" {
			s.printf("%s\n", url)
		}
		return nil
	case "unarchive":
		if err := s.dialog.Open(ctx); err != nil {
			return shown(err)
		}
		defer s.dialog.Close()
		return shown(s.dialog.Unarchive(ctx, id))
	}
	return fmt.Errorf("unknown command %q", name)
}
