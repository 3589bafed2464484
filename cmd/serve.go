package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/chatkeeper/internal/db"
	"github.com/guilhermegouw/chatkeeper/internal/server"
	"github.com/guilhermegouw/chatkeeper/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chats API from a local SQLite store",
		Long: `Serve the chats API from a local SQLite store.

The store lives at server.db_path (by default in the data directory).
Metrics are exposed at /metrics and liveness at /healthz.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx := cmd.Context()
	database, err := db.Open(ctx, cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	srv := server.New(store.NewSQLiteStore(database.Conn()), server.Options{
		Addr:      addr,
		PublicURL: cfg.Server.PublicURL,
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Serving chats API on %s (store: %s)\n", addr, database.Path())
	return srv.Run(ctx)
}
