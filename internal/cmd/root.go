// Package cmd provides the CLI commands for livedesk.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/livedesk/livedesk/internal/appdir"
	"github.com/livedesk/livedesk/internal/client"
	"github.com/livedesk/livedesk/internal/config"
	"github.com/livedesk/livedesk/internal/logging"
	"github.com/livedesk/livedesk/internal/sessionstore"
	"github.com/livedesk/livedesk/internal/ticketcache"
)

var (
	// Global flags
	configPath    string
	serverURL     string
	debug         bool
	logLevel      string // --log-level flag (debug, info, warn, error)
	logFile       string
	logComponents string

	// Loaded configuration
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "livedesk",
	Short: "livedesk - webchat and ticket client for the support desk",
	Long: `livedesk talks to a customer-support backend from the terminal.

It can hold a live webchat session as a visitor, with automatic
reconnection, and rebuild ticket threads from a customer's history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help and completion commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load configuration from %s: %w", path, err)
		}
		if serverURL != "" {
			cfg.Server.BaseURL = strings.TrimRight(serverURL, "/")
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		if err := appdir.EnsureDir(); err != nil {
			return fmt.Errorf("failed to create livedesk directory: %w", err)
		}

		// Priority: --log-level flag > --debug flag > config file
		effectiveLogLevel := logLevel
		if effectiveLogLevel == "" && debug {
			effectiveLogLevel = "debug"
		}
		logCfg, err := cfg.LoggingOptions(effectiveLogLevel)
		if err != nil {
			return err
		}
		if logFile != "" {
			if logCfg.File == nil {
				logCfg.File = &logging.FileConfig{}
			}
			logCfg.File.Path = logFile
		}
		if logComponents != "" {
			logCfg.Components = splitList(logComponents)
		}
		if err := logging.Initialize(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (default: $LIVEDESKRC or ~/.livedeskrc)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Backend REST API root, overrides server.base_url")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (shorthand for --log-level=debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: from config)")
	rootCmd.PersistentFlags().StringVarP(&logFile, "logfile", "l", "", "Log file path (logs are also written to console)")
	rootCmd.PersistentFlags().StringVar(&logComponents, "log-components", "", "Comma-separated list of components to log (e.g., 'transport,widget'). Empty means all components.")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// newAPIClient builds the REST client from the loaded configuration.
func newAPIClient() *client.Client {
	opts := []client.Option{client.WithTimeout(cfg.Server.Timeout)}
	if cfg.Server.WSURL != "" {
		opts = append(opts, client.WithWebSocketURL(cfg.Server.WSURL))
	}
	return client.New(cfg.Server.BaseURL, opts...)
}

// openSessionStore opens the persisted visitor session.
func openSessionStore() (*sessionstore.Store, error) {
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	storage, err := sessionstore.OpenFileStorage(path)
	if err != nil {
		return nil, err
	}
	return sessionstore.New(storage), nil
}

// openTicketCache opens the offline cache, or returns nil when disabled.
func openTicketCache() (*ticketcache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	path, err := cfg.CachePath()
	if err != nil {
		return nil, err
	}
	return ticketcache.Open(path)
}
