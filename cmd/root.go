package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/eyelife/internal/app"
	"github.com/joescharf/eyelife/internal/gateway"
	"github.com/joescharf/eyelife/internal/logger"
	"github.com/joescharf/eyelife/internal/output"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui     *output.UI
	engine *app.App

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "eyelife",
	Short: "Eye Life - track daily habits and timed sessions",
	Long: `eyelife is a command-line client for the Eye Life habit tracker.
It lists and completes today's habits, times habit sessions, keeps
daily notes, and can serve the running engine to local UIs.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)
	cobra.OnFinalize(closeEngine)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/eyelife/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "eyelife")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("EYELIFE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	setDefaults(filepath.Join(home, ".config", "eyelife"))

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers the default for every config key under stateDir.
func setDefaults(stateDir string) {
	viper.SetDefault("api_url", gateway.DefaultBaseURL)
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "eyelife.db"))
	viper.SetDefault("credential.backend", app.CredentialDB)
	viper.SetDefault("http_timeout", "30s")
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.file", filepath.Join(stateDir, "eyelife.log"))
	viper.SetDefault("serve.port", 8765)
	viper.SetDefault("serve.refresh_interval", "5m")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	if _, err := logger.Init(logger.Config{
		Level:   viper.GetString("log.level"),
		File:    viper.GetString("log.file"),
		Verbose: verbose,
	}); err != nil {
		ui.Warning("Logging disabled: %v", err)
	}

	// The engine is built lazily, only when a command needs it.
	// This allows config/version commands to run without a db.
}

// rootRun handles `eyelife` with no subcommand: show today's habits.
func rootRun(cmd *cobra.Command) error {
	if _, err := getEngine(); err != nil {
		return cmd.Help()
	}
	return habitTodayRun()
}

// getEngine returns the shared engine, building it on first call.
func getEngine() (*app.App, error) {
	if engine != nil {
		return engine, nil
	}

	a, err := app.New(context.Background(), app.Config{
		APIURL:            viper.GetString("api_url"),
		DBPath:            viper.GetString("db_path"),
		CredentialBackend: viper.GetString("credential.backend"),
		HTTPTimeout:       viper.GetDuration("http_timeout"),
		OnSessionExpired: func() {
			ui.Warning("Session expired. Run 'eyelife auth login' to sign in again.")
		},
	})
	if err != nil {
		return nil, err
	}

	engine = a
	return engine, nil
}

func closeEngine() {
	if engine == nil {
		return
	}
	if err := engine.Close(); err != nil {
		ui.Warning("Close database: %v", err)
	}
	engine = nil
}
