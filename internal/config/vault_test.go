package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescreener/internal/errors"
)

// fakeVault serves KVv2 reads for the given path -> data map
func fakeVault(t *testing.T, secrets map[string]map[string]any) *VaultClient {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/v1/")
		data, ok := secrets[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.Address = srv.URL
	client, err := api.NewClient(cfg)
	require.NoError(t, err)
	client.SetToken("test-token")

	return newVaultClientFromAPI(client, errors.Discard())
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "json number", input: json.Number("7"), expected: 7},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetSecretV2(t *testing.T) {
	client := fakeVault(t, map[string]map[string]any{
		"secret/data/screener/gemini": {"api_key": "AIzaSyTESTKEY1234"},
	})

	secret, err := client.GetSecretV2("secret/data/screener/gemini")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
	assert.Equal(t, "AIzaSyTESTKEY1234", secret.Data["api_key"])

	_, err = client.GetSecretV2("secret/data/missing")
	assert.Error(t, err)
}

func TestGetSecretV2NilClient(t *testing.T) {
	var client *VaultClient
	_, err := client.GetSecretV2("secret/data/x")
	assert.EqualError(t, err, "vault client not initialized")
}

func TestGetStringSliceSecret(t *testing.T) {
	client := fakeVault(t, map[string]map[string]any{
		"secret/data/screener/api": {"keys": "alpha, beta ,gamma", "count": 3},
	})

	keys, err := client.GetStringSliceSecret("secret/data/screener/api", "keys")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, keys)

	_, err = client.GetStringSecret("secret/data/screener/api", "count")
	assert.Error(t, err, "non-string values are rejected")

	_, err = client.GetStringSecret("secret/data/screener/api", "absent")
	assert.Error(t, err)
}

func TestApplySecrets(t *testing.T) {
	client := fakeVault(t, map[string]map[string]any{
		"secret/data/screener/api":     {"keys": "k1,k2"},
		"secret/data/screener/gemini":  {"api_key": "vault-gemini-key"},
		"secret/data/screener/storage": {"access_key": "AKIA", "secret_key": "shh"},
	})

	t.Run("fills missing values", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{
			APIKeys:   "secret/data/screener/api",
			GeminiKey: "secret/data/screener/gemini",
			Storage:   "secret/data/screener/storage",
		}}}

		require.NoError(t, applySecrets(client, cfg, errors.Discard()))
		assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
		assert.Equal(t, "vault-gemini-key", cfg.AI.APIKey)
		assert.Equal(t, "AKIA", cfg.Storage.S3.AccessKey)
		assert.Equal(t, "shh", cfg.Storage.S3.SecretKey)
	})

	t.Run("environment key wins over vault", func(t *testing.T) {
		cfg := &Config{
			AI:    AIConfig{APIKey: "env-key"},
			Vault: VaultConfig{Secrets: VaultSecrets{GeminiKey: "secret/data/screener/gemini"}},
		}

		require.NoError(t, applySecrets(client, cfg, errors.Discard()))
		assert.Equal(t, "env-key", cfg.AI.APIKey)
	})

	t.Run("missing secret is an error", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{Storage: "secret/data/nope"}}}
		assert.Error(t, applySecrets(client, cfg, errors.Discard()))
	})
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token\n"), 0600))

	token, err := resolveVaultToken(VaultConfig{Token: "direct"})
	require.NoError(t, err)
	assert.Equal(t, "direct", token)

	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "file-token", token)

	_, err = resolveVaultToken(VaultConfig{})
	assert.Error(t, err)
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, ApplyVaultSecrets(cfg, errors.Discard()))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "AIza****1234", maskSecret("AIzaSyXXXX1234"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}
