package cmd

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "eyelife"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage eyelife configuration.

Running bare 'eyelife config' is the same as 'eyelife config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configCheckRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# eyelife configuration
# See: eyelife config show (for effective values and sources)

# Backend API base URL (default: http://localhost:8000/api)
api_url: "{{ .APIURL }}"

# State/data directory (default: ~/.config/eyelife)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/eyelife/eyelife.db)
# db_path: {{ .DBPath }}

# Request timeout for backend calls (default: 30s)
http_timeout: "{{ .HTTPTimeout }}"

# Credential storage
credential:
  # Where the session token is kept: "db" or "keyring" (default: "db")
  backend: "{{ .CredentialBackend }}"

# Logging
log:
  # debug, info, warn, or error (default: "warn")
  level: "{{ .LogLevel }}"
  # Rotated log file
  file: "{{ .LogFile }}"

# Local control API (eyelife serve)
serve:
  # Port to listen on (default: 8765)
  port: {{ .ServePort }}
  # How often habits, the timer and today's notes are re-fetched (default: 5m, 0 disables)
  refresh_interval: "{{ .RefreshInterval }}"
`

type configTemplateData struct {
	APIURL            string
	StateDir          string
	DBPath            string
	HTTPTimeout       string
	CredentialBackend string
	LogLevel          string
	LogFile           string
	ServePort         int
	RefreshInterval   string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		APIURL:            viper.GetString("api_url"),
		StateDir:          viper.GetString("state_dir"),
		DBPath:            viper.GetString("db_path"),
		HTTPTimeout:       viper.GetString("http_timeout"),
		CredentialBackend: viper.GetString("credential.backend"),
		LogLevel:          viper.GetString("log.level"),
		LogFile:           viper.GetString("log.file"),
		ServePort:         viper.GetInt("serve.port"),
		RefreshInterval:   viper.GetString("serve.refresh_interval"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "api_url", EnvVar: "EYELIFE_API_URL"},
	{Key: "state_dir", EnvVar: "EYELIFE_STATE_DIR"},
	{Key: "db_path", EnvVar: "EYELIFE_DB_PATH"},
	{Key: "http_timeout", EnvVar: "EYELIFE_HTTP_TIMEOUT"},
	{Key: "credential.backend", EnvVar: "EYELIFE_CREDENTIAL_BACKEND"},
	{Key: "log.level", EnvVar: "EYELIFE_LOG_LEVEL"},
	{Key: "log.file", EnvVar: "EYELIFE_LOG_FILE"},
	{Key: "serve.port", EnvVar: "EYELIFE_SERVE_PORT"},
	{Key: "serve.refresh_interval", EnvVar: "EYELIFE_SERVE_REFRESH_INTERVAL"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-24s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'eyelife config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}

// configProblems lists the effective values the engine would reject or
// misread, as "key: reason".
func configProblems() []string {
	var problems []string

	if u, err := url.Parse(viper.GetString("api_url")); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, "api_url: want an http or https URL")
	}
	switch viper.GetString("credential.backend") {
	case "db", "keyring":
	default:
		problems = append(problems, `credential.backend: want "db" or "keyring"`)
	}
	for _, key := range []string{"http_timeout", "serve.refresh_interval"} {
		d, err := time.ParseDuration(viper.GetString(key))
		if err != nil || d < 0 {
			problems = append(problems, key+": want a non-negative duration like 30s or 5m")
		}
	}
	if lvl := viper.GetString("log.level"); lvl != "" {
		if _, err := log.ParseLevel(lvl); err != nil {
			problems = append(problems, "log.level: want debug, info, warn, or error")
		}
	}
	if p := viper.GetInt("serve.port"); p < 1 || p > 65535 {
		problems = append(problems, "serve.port: want 1-65535")
	}
	return problems
}

func configCheckRun() error {
	problems := configProblems()
	if len(problems) == 0 {
		ui.Success("Configuration is valid")
		return nil
	}
	for _, p := range problems {
		ui.Error("%s", p)
	}
	return fmt.Errorf("%d configuration problem(s)", len(problems))
}
