package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// KeyringConfig controls which OS secret backends are tried.
type KeyringConfig struct {
	// Backends lists keyring backend names in preference order
	// (e.g., "keychain", "secret-service", "wincred", "pass", "file").
	// Empty means the built-in order.
	Backends []string `mapstructure:"backends" yaml:"backends"`

	// FileDir is where the encrypted file backend keeps its items.
	FileDir string `mapstructure:"file_dir" yaml:"file_dir"`
}

// OAuthConfig holds the authorization flow settings.
type OAuthConfig struct {
	// AuthURL and TokenURL override Google's endpoints when set.
	AuthURL  string `mapstructure:"auth_url" yaml:"auth_url"`
	TokenURL string `mapstructure:"token_url" yaml:"token_url"`

	// Scopes requested on consent.
	Scopes []string `mapstructure:"scopes" yaml:"scopes"`

	// CallbackPorts are loopback ports tried in order for the redirect
	// listener. Empty means any free port.
	CallbackPorts []int `mapstructure:"callback_ports" yaml:"callback_ports"`

	// Timeout bounds how long connect waits for the browser callback.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// GmailConfig holds mail API settings.
type GmailConfig struct {
	// Endpoint overrides the Gmail API base URL when set.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	DatabasePath string        `mapstructure:"database_path" yaml:"database_path"`
	Keyring      KeyringConfig `mapstructure:"keyring" yaml:"keyring"`
	OAuth        OAuthConfig   `mapstructure:"oauth" yaml:"oauth"`
	Gmail        GmailConfig   `mapstructure:"gmail" yaml:"gmail"`
	Log          LogConfig     `mapstructure:"log" yaml:"log"`
}

// DefaultScopes are requested when the config names none. They cover
// sending, reading the profile address and the OpenID identity.
var DefaultScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.compose",
}

// DefaultConnectTimeout bounds the wait for the OAuth browser callback.
const DefaultConnectTimeout = 5 * time.Minute

// envPrefix namespaces environment overrides, e.g.
// COMPANYTINDER_LOG_LEVEL=debug.
const envPrefix = "COMPANYTINDER"

// ConfigDir returns ~/.config/companytinder.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "companytinder")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/companytinder/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		DatabasePath: filepath.Join(ConfigDir(), "app.db"),
		Keyring: KeyringConfig{
			FileDir: filepath.Join(ConfigDir(), "credentials"),
		},
		OAuth: OAuthConfig{
			Scopes:  append([]string(nil), DefaultScopes...),
			Timeout: DefaultConnectTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration with
// environment overrides applied.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := newViper(path)

	// Set defaults so missing keys resolve to sensible values and so
	// AutomaticEnv can see every key.
	v.SetDefault("database_path", def.DatabasePath)
	v.SetDefault("keyring.backends", def.Keyring.Backends)
	v.SetDefault("keyring.file_dir", def.Keyring.FileDir)
	v.SetDefault("oauth.auth_url", "")
	v.SetDefault("oauth.token_url", "")
	v.SetDefault("oauth.scopes", def.OAuth.Scopes)
	v.SetDefault("oauth.callback_ports", []int{})
	v.SetDefault("oauth.timeout", def.OAuth.Timeout)
	v.SetDefault("gmail.endpoint", "")
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	if err := v.ReadInConfig(); err != nil {
		_, missingFile := err.(*os.PathError)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !missingFile && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(cfg.OAuth.Scopes) == 0 {
		cfg.OAuth.Scopes = append([]string(nil), DefaultScopes...)
	}
	if cfg.OAuth.Timeout <= 0 {
		cfg.OAuth.Timeout = DefaultConnectTimeout
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database_path", cfg.DatabasePath)
	v.Set("keyring", cfg.Keyring)
	v.Set("oauth", cfg.OAuth)
	v.Set("gmail", cfg.Gmail)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
