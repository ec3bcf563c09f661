package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/startstudio/harvest-mcp/internal/credentials"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		LogFormat: LogFormatText,
		Credentials: CredentialsConfig{
			Storage: CredentialStorageTypeFile,
			File:    filepath.Join(t.TempDir(), "credentials.json"),
		},
		OAuth: OAuthConfig{
			CallbackHost: "localhost",
			CallbackPort: 3000,
			CallbackPath: "/oauth/callback",
		},
		API: APIConfig{
			BaseURL: "https://api.harvestapp.com/v2",
			Timeout: 30 * time.Second,
		},
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, CredentialStorageTypeFile, cfg.Credentials.Storage)
	assert.NotEmpty(t, cfg.Credentials.File, "file storage gets a per-user default path")
	assert.Equal(t, "localhost", cfg.OAuth.CallbackHost)
	assert.Equal(t, uint16(3000), cfg.OAuth.CallbackPort)
	assert.Equal(t, "/oauth/callback", cfg.OAuth.CallbackPath)
	assert.Equal(t, "https://api.harvestapp.com/v2", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)

	assert.NoError(t, cfg.Validate(), "defaults must validate")
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		LogFormat: LogFormatJSON,
		Credentials: CredentialsConfig{
			Storage: CredentialStorageTypeFile,
			File:    "/tmp/custom/credentials.json",
		},
		OAuth: OAuthConfig{
			CallbackPort: 8080,
		},
		API: APIConfig{
			Timeout: 5 * time.Second,
		},
	}

	require.NoError(t, cfg.ApplyDefaults())

	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, "/tmp/custom/credentials.json", cfg.Credentials.File)
	assert.Equal(t, uint16(8080), cfg.OAuth.CallbackPort)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)

	// Untouched fields still get defaults.
	assert.Equal(t, "localhost", cfg.OAuth.CallbackHost)
	assert.Equal(t, "/oauth/callback", cfg.OAuth.CallbackPath)
	assert.Equal(t, "https://api.harvestapp.com/v2", cfg.API.BaseURL)
}

func TestApplyDefaultsKeyringUser(t *testing.T) {
	cfg := &Config{
		Credentials: CredentialsConfig{
			Storage: CredentialStorageTypeKeyring,
		},
	}

	require.NoError(t, cfg.ApplyDefaults())
	assert.NotEmpty(t, cfg.Credentials.KeyringUser, "keyring user defaults to the current OS user")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{"valid", func(cfg *Config) {}, false},
		{"json log format", func(cfg *Config) { cfg.LogFormat = LogFormatJSON }, false},
		{"unknown log format", func(cfg *Config) { cfg.LogFormat = "yaml" }, true},
		{"unknown storage", func(cfg *Config) { cfg.Credentials.Storage = "vault" }, true},
		{"missing storage", func(cfg *Config) { cfg.Credentials.Storage = "" }, true},
		{"file storage without path", func(cfg *Config) { cfg.Credentials.File = "" }, true},
		{"keyring storage without user", func(cfg *Config) {
			cfg.Credentials.Storage = CredentialStorageTypeKeyring
			cfg.Credentials.KeyringUser = ""
		}, true},
		{"keyring storage with user", func(cfg *Config) {
			cfg.Credentials.Storage = CredentialStorageTypeKeyring
			cfg.Credentials.KeyringUser = "tess"
		}, false},
		{"callback host ip", func(cfg *Config) { cfg.OAuth.CallbackHost = "127.0.0.1" }, false},
		{"callback host invalid", func(cfg *Config) { cfg.OAuth.CallbackHost = "not a host" }, true},
		{"callback path missing slash", func(cfg *Config) { cfg.OAuth.CallbackPath = "oauth/callback" }, true},
		{"empty callback path", func(cfg *Config) { cfg.OAuth.CallbackPath = "" }, true},
		{"missing base url", func(cfg *Config) { cfg.API.BaseURL = "" }, true},
		{"invalid base url", func(cfg *Config) { cfg.API.BaseURL = "not-a-url" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCredentialsConfigNewStore(t *testing.T) {
	t.Run("file storage", func(t *testing.T) {
		cfg := CredentialsConfig{
			Storage: CredentialStorageTypeFile,
			File:    filepath.Join(t.TempDir(), "nested", "credentials.json"),
		}

		store, err := cfg.NewStore()
		require.NoError(t, err)
		assert.IsType(t, &credentials.FileStore{}, store)
	})

	t.Run("keyring storage", func(t *testing.T) {
		cfg := CredentialsConfig{
			Storage:     CredentialStorageTypeKeyring,
			KeyringUser: "tess",
		}

		store, err := cfg.NewStore()
		require.NoError(t, err)
		assert.IsType(t, &credentials.KeyringStore{}, store)
	})

	t.Run("unsupported storage", func(t *testing.T) {
		cfg := CredentialsConfig{Storage: "vault"}

		_, err := cfg.NewStore()
		assert.Error(t, err)
	})
}
