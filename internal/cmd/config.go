package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	embeddedconfig "github.com/livedesk/livedesk/config"
	"github.com/livedesk/livedesk/internal/config"
)

var (
	configOutputPath string
	configForce      bool
)

// configCmd represents the config parent command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage livedesk configuration",
	Long: `Manage livedesk configuration files.

Use the subcommands to create or inspect configuration files.`,
}

// configCreateCmd represents the config create subcommand
var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a default configuration file",
	Long: `Create a default configuration file.

This command writes the embedded default configuration to
$LIVEDESKRC, or ~/.livedeskrc when it is not set. Every key is
listed with its default value.

Examples:
  livedesk config create                     # Create the default file
  livedesk config create --output ./rc.yaml  # Create ./rc.yaml
  livedesk config create --force             # Overwrite existing file`,
	RunE: runConfigCreate,
}

// configShowCmd prints the effective configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCreateCmd)
	configCmd.AddCommand(configShowCmd)

	configCreateCmd.Flags().StringVarP(&configOutputPath, "output", "o", "",
		"File to write (default: $LIVEDESKRC or ~/.livedeskrc)")
	configCreateCmd.Flags().BoolVarP(&configForce, "force", "f", false,
		"Overwrite existing configuration file without prompting")
}

func runConfigCreate(cmd *cobra.Command, args []string) error {
	path := configOutputPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(path); err == nil && !configForce {
		fmt.Fprintf(out, "⚠️  Configuration file already exists: %s\n", path)
		fmt.Fprintln(out, "Use --force to overwrite the existing file.")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, embeddedconfig.DefaultConfigYAML, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(out, "✅ Configuration file created: %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Set server.base_url to your support backend")
	fmt.Fprintln(out, "  2. Run 'livedesk chat' to start a webchat session")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "server.base_url:                   %s\n", cfg.Server.BaseURL)
	fmt.Fprintf(out, "server.ws_url:                     %s\n", newAPIClient().WebSocketURL("{sessionId}"))
	fmt.Fprintf(out, "server.timeout:                    %s\n", cfg.Server.Timeout)
	fmt.Fprintf(out, "transport.reconnect_delay:         %s\n", cfg.Transport.ReconnectDelay)
	fmt.Fprintf(out, "transport.max_reconnect_delay:     %s\n", cfg.Transport.MaxReconnectDelay)
	fmt.Fprintf(out, "transport.heartbeat_interval:      %s\n", cfg.Transport.HeartbeatInterval)
	fmt.Fprintf(out, "transport.reconnect_kick_interval: %s\n", cfg.Transport.KickInterval)

	storagePath, err := cfg.StoragePath()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "storage.path:                      %s\n", storagePath)
	if cfg.Cache.Enabled {
		cachePath, err := cfg.CachePath()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "cache.path:                        %s\n", cachePath)
	} else {
		fmt.Fprintln(out, "cache:                             disabled")
	}
	return nil
}
