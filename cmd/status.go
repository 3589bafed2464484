package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/chatkeeper/internal/config"
	"github.com/guilhermegouw/chatkeeper/internal/debug"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and session store reachability",
		Long: `Display the current chatkeeper status including:
  - Configuration files in use
  - API root and owner token
  - Active, archived and shared chat counts`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "chatkeeper Status")
	fmt.Fprintln(out, strings.Repeat("─", 40))
	fmt.Fprintln(out)

	fmt.Fprintf(out, "API Root:   %s\n", cfg.API.Root)
	fmt.Fprintf(out, "Timeout:    %s (retries: %d)\n", cfg.Timeout(), cfg.API.RetryMax)
	fmt.Fprintf(out, "Token:      %s\n", maskToken(cfg.Token))
	fmt.Fprintf(out, "Store File: %s\n", cfg.Server.DBPath)
	fmt.Fprintln(out)

	if config.IsFirstRun() && cfg.Token == "" {
		fmt.Fprintln(out, "Status: Not configured")
		fmt.Fprintln(out, "Run 'chatkeeper config init --token <token>' to get started.")
		fmt.Fprintln(out)
	} else if err := printCounts(cmd, out); err != nil {
		fmt.Fprintf(out, "Session Store: unreachable (%v)\n", err)
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Config File: %s\n", config.GlobalConfigPath())
	if project := config.ProjectConfigPath(); project != "" {
		fmt.Fprintf(out, "Project Config: %s\n", project)
	}
	if debug.IsEnabled() {
		fmt.Fprintf(out, "Debug Log: %s\n", debug.LogPath())
	}
	return nil
}

func printCounts(cmd *cobra.Command, out io.Writer) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	active, err := a.client.ListActive(ctx, a.token)
	if err != nil {
		return err
	}
	archived, err := a.client.ListArchived(ctx, a.token)
	if err != nil {
		return err
	}
	shared, err := a.client.ListShared(ctx, a.token)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Session Store: reachable")
	fmt.Fprintf(out, "  Active:   %d\n", len(active))
	fmt.Fprintf(out, "  Archived: %d\n", len(archived))
	fmt.Fprintf(out, "  Shared:   %d\n", len(shared))
	fmt.Fprintln(out, "  Brokers:")
	for _, line := range strings.Split(strings.TrimSpace(a.hub.Report()), "\n") {
		fmt.Fprintf(out, "    %s\n", line)
	}
	fmt.Fprintln(out)
	return nil
}

func maskToken(token string) string {
	switch {
	case token == "":
		return "(not set)"
	case len(token) <= 4:
		return strings.Repeat("*", len(token))
	}
	return token[:2] + strings.Repeat("*", len(token)-4) + token[len(token)-2:]
}
