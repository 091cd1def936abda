package cmd

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/zhubert/parley/internal/app"
	"github.com/zhubert/parley/internal/config"
	"github.com/zhubert/parley/internal/logger"
)

var (
	debugMode             bool
	quietMode             bool
	configPath            string
	serverURL             string
	version, commit, date string
)

// SetVersionInfo sets version information from ldflags
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Terminal chat client",
	Long: `Parley is a terminal chat client for direct and group conversations.

By default it runs against an embedded store in ~/.parley. Point it at a
relay started with "parley serve" to chat with other people.`,
	RunE:          runTUI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", true, "Enable debug logging (on by default)")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Reduce logging to info level only")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.parley/config.json)")
	rootCmd.Flags().StringVar(&serverURL, "server", "", "Relay websocket URL; switches to remote mode")
}

func initConfig() {
	if quietMode {
		logger.SetDebug(false)
	} else if debugMode {
		logger.SetDebug(true)
	}
}

// Execute runs the root command
func Execute() error {
	// Set version dynamically
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(versionTemplate())
	return rootCmd.Execute()
}

func versionTemplate() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("parley %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("parley %s\n", version)
}

// loadConfig reads --config, or the default config file.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if serverURL != "" {
		cfg.SetBackend(config.BackendRemote)
		cfg.SetServerURL(serverURL)
	}

	// Ensure logger is closed on exit
	defer logger.Close()

	be, closeBackend, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	// Create and run the app
	m := app.New(cfg, be, version)
	defer m.Shutdown()
	p := tea.NewProgram(m)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}
