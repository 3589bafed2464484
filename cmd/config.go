package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/chatkeeper/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration file",
	}
	cmd.AddCommand(newConfigSetCmd(), newConfigPathCmd(), newConfigInitCmd())
	return cmd
}

// configPath is the file config subcommands edit: --config, or the global file.
func configPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", fmt.Errorf("getting config flag: %w", err)
	}
	if path == "" {
		path = config.GlobalConfigPath()
	}
	return path, nil
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a single configuration field",
		Long: "Set a single configuration field. Only that field is rewritten.\n\nKeys:\n  " +
			strings.Join(config.SettableKeys, "\n  "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			value, err := config.ParseValue(args[0], args[1])
			if err != nil {
				return err
			}
			if err := config.SetFileField(path, args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration files in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			if project := config.ProjectConfigPath(); project != "" {
				fmt.Fprintln(cmd.OutOrStdout(), project)
			}
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return fmt.Errorf("getting force flag: %w", err)
			}
			token, err := cmd.Flags().GetString("token")
			if err != nil {
				return fmt.Errorf("getting token flag: %w", err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Defaults()
			cfg.Token = token
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().String("token", "", "Owner token to store, e.g. $CHATKEEPER_OWNER")
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}
