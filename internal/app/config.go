package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/startstudio/harvest-mcp/internal/credentials"
	"github.com/startstudio/harvest-mcp/internal/harvest"
	"github.com/startstudio/harvest-mcp/internal/harvestid"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// CredentialStorageType represents the storage backends for the credential
// record.
type CredentialStorageType string

const (
	CredentialStorageTypeFile    CredentialStorageType = "file"
	CredentialStorageTypeKeyring CredentialStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat         = LogFormatText
	DefaultConfigCredentialStorage = CredentialStorageTypeFile
	DefaultConfigAPIBaseURL        = harvest.DefaultBaseURL
	DefaultConfigAPITimeout        = 30 * time.Second
	DefaultConfigCallbackHost      = harvestid.DefaultCallbackHost
	DefaultConfigCallbackPort      = harvestid.DefaultCallbackPort
	DefaultConfigCallbackPath      = harvestid.DefaultCallbackPath
)

// keyringService namespaces this application's entry in the OS keyring.
const keyringService = "harvest-mcp"

// CredentialsConfig describes where the credential record lives.
type CredentialsConfig struct {
	Storage CredentialStorageType `json:"storage" validate:"required,oneof=file keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to the credentials file
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewStore creates a credential store from the configuration.
func (c *CredentialsConfig) NewStore() (credentials.Store, error) {
	switch c.Storage {
	case CredentialStorageTypeFile:
		return credentials.NewFileStore(c.File)
	case CredentialStorageTypeKeyring:
		return credentials.NewKeyringStore(keyringService, c.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage)
	}
}

// OAuthConfig holds the local callback listener settings. These must match
// the redirect URL registered with the Harvest OAuth application.
type OAuthConfig struct {
	CallbackHost string `json:"callback_host" validate:"hostname_rfc1123|ip"`
	CallbackPort uint16 `json:"callback_port"` // Port range 0-65535 handled by uint16 type
	CallbackPath string `json:"callback_path" validate:"required,startswith=/"`
}

// APIConfig holds Harvest API settings.
type APIConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
	// Timeout bounds every outbound HTTP call.
	Timeout time.Duration `json:"timeout"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel    slog.Level        `json:"log_level"`
	LogFormat   LogFormat         `json:"log_format" validate:"oneof=text json"`
	Credentials CredentialsConfig `json:"credentials"`
	OAuth       OAuthConfig       `json:"oauth"`
	API         APIConfig         `json:"api"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Credentials.Storage == "" {
		c.Credentials.Storage = DefaultConfigCredentialStorage
	}
	if c.OAuth.CallbackHost == "" {
		c.OAuth.CallbackHost = DefaultConfigCallbackHost
	}
	if c.OAuth.CallbackPort == 0 {
		c.OAuth.CallbackPort = DefaultConfigCallbackPort
	}
	if c.OAuth.CallbackPath == "" {
		c.OAuth.CallbackPath = DefaultConfigCallbackPath
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultConfigAPITimeout
	}

	// Dynamic defaults based on storage type
	switch c.Credentials.Storage {
	case CredentialStorageTypeFile:
		if c.Credentials.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("credentials.file required (auto-detect failed: %w)", err)
			}
			c.Credentials.File = filepath.Join(configDir, "harvest-mcp", "credentials.json")
		}
	case CredentialStorageTypeKeyring:
		if c.Credentials.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("credentials.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Credentials.KeyringUser = currentUser.Username
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Credentials.Storage {
	case CredentialStorageTypeFile:
		if c.Credentials.File == "" {
			return errors.New("file path required for file storage")
		}
	case CredentialStorageTypeKeyring:
		if c.Credentials.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
