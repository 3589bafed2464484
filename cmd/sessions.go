package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/guilhermegouw/chatkeeper/internal/archive"
	"github.com/guilhermegouw/chatkeeper/internal/history"
	"github.com/guilhermegouw/chatkeeper/internal/session"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active chats grouped by date",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	list := history.New(a.client, a.token, a.hub)
	if err := list.Mount(cmd.Context()); err != nil {
		return shown(err)
	}
	defer list.Unmount()

	printGroups(a.out, list.CurrentGroups(), time.Now())
	return nil
}

func newArchivedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archived",
		Short: "List archived chats",
		Args:  cobra.NoArgs,
		RunE:  runArchived,
	}
}

func runArchived(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	dialog := archive.New(a.client, a.token, a.hub)
	if err := dialog.Open(cmd.Context()); err != nil {
		return shown(err)
	}
	defer dialog.Close()

	printSessions(a.out, dialog.Sessions(), time.Now(), "No archived chats.")
	return nil
}

func newSharedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shared",
		Short: "List shared chats",
		Args:  cobra.NoArgs,
		RunE:  runShared,
	}
}

func runShared(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.client.ListShared(cmd.Context(), a.token)
	if err != nil {
		return fmt.Errorf("listing shared chats: %w", err)
	}
	printSessions(a.out, records, time.Now(), "No shared chats.")
	return nil
}

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.Archive(cmd.Context(), args[0]); err != nil {
				return shown(err)
			}
			fmt.Fprintf(a.out, "Archived %s\n", args[0])
			return nil
		},
	}
}

func newUnarchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unarchive <id>",
		Short: "Restore an archived chat to the active list",
		Args:  cobra.ExactArgs(1),
		RunE:  runUnarchive,
	}
}

func runUnarchive(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	dialog := archive.New(a.client, a.token, a.hub)
	if err := dialog.Open(cmd.Context()); err != nil {
		return shown(err)
	}
	defer dialog.Close()

	if err := dialog.Unarchive(cmd.Context(), args[0]); err != nil {
		return shown(err)
	}
	fmt.Fprintf(a.out, "Restored %s\n", args[0])
	printSessions(a.out, dialog.Sessions(), time.Now(), "No archived chats left.")
	return nil
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.Delete(cmd.Context(), args[0]); err != nil {
				return shown(err)
			}
			fmt.Fprintf(a.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			title := strings.Join(args[1:], " ")
			if err := renameSession(cmd.Context(), a, args[0], title); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Renamed %s to %q\n", args[0], strings.TrimSpace(title))
			return nil
		},
	}
}

// renameSession rejects an empty title before any request is made; only
// gateway failures are published as notices.
func renameSession(ctx context.Context, a *app, id, title string) error {
	err := a.service.Rename(ctx, id, title)
	if err == nil || errors.Is(err, session.ErrEmptyTitle) {
		return err
	}
	return shown(err)
}

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share <id>",
		Short: "Share a chat and print its public link",
		Args:  cobra.ExactArgs(1),
		RunE:  runShare,
	}
	cmd.Flags().Bool("off", false, "Stop sharing the chat")
	cmd.Flags().Bool("copy", false, "Copy the share link to the clipboard")
	return cmd
}

func runShare(cmd *cobra.Command, args []string) error {
	off, err := cmd.Flags().GetBool("off")
	if err != nil {
		return fmt.Errorf("getting off flag: %w", err)
	}
	copyLink, err := cmd.Flags().GetBool("copy")
	if err != nil {
		return fmt.Errorf("getting copy flag: %w", err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]
	if off {
		if err := a.service.Unshare(cmd.Context(), id); err != nil {
			return shown(err)
		}
		fmt.Fprintf(a.out, "Stopped sharing %s\n", id)
		return nil
	}

	url, err := a.service.Share(cmd.Context(), id)
	if err != nil {
		return shown(err)
	}
	if url == "" {
		fmt.Fprintf(a.out, "Shared %s\n", id)
		return nil
	}
	fmt.Fprintln(a.out, url)

	if copyLink {
		if err := clipboard.WriteAll(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to copy link: %v\n", err)
		}
	}
	return nil
}
