// Package cmd provides the CLI commands for chatkeeper.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/guilhermegouw/chatkeeper/internal/config"
	"github.com/guilhermegouw/chatkeeper/internal/debug"
)

// Version is set at build time.
var Version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatkeeper",
		Short: "Manage the chat history kept by a chats API",
		Long: `chatkeeper lists, archives, shares, renames, exports and deletes the
chat sessions a chats API keeps for an owner token.

It can also serve a reference implementation of that API backed by SQLite:
  chatkeeper serve
  chatkeeper config set token my-token
  chatkeeper list`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: enableDebug,
	}

	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging to the data directory's debug.log")
	cmd.PersistentFlags().String("config", "", "Read configuration from this file only")

	cmd.AddCommand(
		newListCmd(),
		newArchivedCmd(),
		newSharedCmd(),
		newArchiveCmd(),
		newUnarchiveCmd(),
		newDeleteCmd(),
		newRenameCmd(),
		newShareCmd(),
		newArchiveAllCmd(),
		newDeleteAllCmd(),
		newExportCmd(),
		newShellCmd(),
		newServeCmd(),
		newConfigCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the chatkeeper version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatkeeper %s\n", Version)
		},
	}
}

func enableDebug(cmd *cobra.Command, _ []string) error {
	debugMode, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return fmt.Errorf("getting debug flag: %w", err)
	}
	if !debugMode || debug.IsEnabled() {
		return nil
	}

	logPath := filepath.Join(xdg.DataHome, "chatkeeper", "debug.log")
	if debugErr := debug.Enable(logPath); debugErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to enable debug logging: %v\n", debugErr)
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Debug: %s\n", logPath)
	return nil
}

// loadConfig loads the file named by --config, or the global and project
// files. options.debug turns on logging when --debug did not.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("getting config flag: %w", err)
	}

	var cfg *config.Config
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.Options.Debug && !debug.IsEnabled() {
		if err := debug.Enable(cfg.DebugLogPath()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to enable debug logging: %v\n", err)
		}
	}
	return cfg, nil
}

// shownError marks an error the user has already seen as a notice.
type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

func shown(err error) error {
	if err == nil {
		return nil
	}
	return &shownError{err: err}
}

// Execute runs the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer debug.Disable()

	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	var se *shownError
	if err != nil && !errors.As(err, &se) {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}
