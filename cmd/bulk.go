package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/chatkeeper/internal/bulk"
)

func newArchiveAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive-all",
		Short: "Archive every active chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBulk(cmd, bulk.ActionArchiveAll, "")
		},
	}
	addYesFlag(cmd)
	return cmd
}

func newDeleteAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every chat, active and archived",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBulk(cmd, bulk.ActionDeleteAll, "")
		},
	}
	addYesFlag(cmd)
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every chat as a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("getting output flag: %w", err)
			}
			return runBulk(cmd, bulk.ActionExportAll, output)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write the export to this file instead of stdout")
	addYesFlag(cmd)
	return cmd
}

func addYesFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

func runBulk(cmd *cobra.Command, action bulk.Action, output string) error {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("getting yes flag: %w", err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	c := a.bulkController()
	confirm := func(prompt string) (bool, error) {
		if yes {
			return true, nil
		}
		return askYesNo(cmd.InOrStdin(), a.out, prompt)
	}
	return executeBulk(cmd.Context(), a, c, action, confirm, output)
}

func (a *app) bulkController() *bulk.Controller {
	return bulk.New(a.client, a.token, a.hub, bulk.WithRedirect(func() {
		fmt.Fprintf(a.out, "Continue at %s\n", a.cfg.RedirectAfterDeleteAll)
	}))
}

// executeBulk walks one flow through request, confirmation and execution.
// It is shared by the one-shot commands and the shell.
func executeBulk(
	ctx context.Context,
	a *app,
	c *bulk.Controller,
	action bulk.Action,
	confirm func(prompt string) (bool, error),
	output string,
) error {
	if err := c.Request(ctx, action); err != nil {
		if errors.Is(err, bulk.ErrBusy) {
			return err
		}
		return shown(err)
	}

	ok, err := confirm(confirmPrompt(action, len(c.Pending())))
	if err != nil || !ok {
		_ = c.Cancel() //nolint:errcheck // the flow is known to be confirming
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	res, err := c.Confirm(ctx)
	if err != nil {
		return shown(err)
	}

	if action == bulk.ActionExportAll {
		return writeExport(a.out, output, res.Export)
	}
	return nil
}

func confirmPrompt(action bulk.Action, pending int) string {
	switch action {
	case bulk.ActionArchiveAll:
		return fmt.Sprintf("Archive %d chats?", pending)
	case bulk.ActionDeleteAll:
		return "Delete all chats? This cannot be undone."
	case bulk.ActionExportAll:
		return "Export all chats?"
	}
	return "Continue?"
}

func askYesNo(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	return isYes(line), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func writeExport(out io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := out.Write(data)
		if err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
			_, err = fmt.Fprintln(out)
		}
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	fmt.Fprintf(out, "Exported to %s\n", path)
	return nil
}
