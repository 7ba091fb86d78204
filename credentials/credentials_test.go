package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westkingdom/regnum-portal/config"
	"github.com/westkingdom/regnum-portal/errors"
)

// setConfig sets a config key for the duration of one test.
func setConfig(t *testing.T, key string, value interface{}) {
	t.Helper()
	config.LoadDefaults(map[string]interface{}{key: value})
	t.Cleanup(func() { config.Config.Delete(key) })
}

const secretsJSON = `{
	"web": {
		"client_id": "test-client.apps.googleusercontent.com",
		"client_secret": "shhh",
		"auth_uri": "https://accounts.google.com/o/oauth2/auth",
		"token_uri": "https://oauth2.googleapis.com/token",
		"redirect_uris": ["https://portal.org.example/oauth2/callback"]
	}
}`

func writeSecrets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "google_credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeSecrets(t, secretsJSON)

	creds, err := Load(WithCandidateFiles(path))
	require.NoError(t, err)
	assert.Equal(t, "test-client.apps.googleusercontent.com", creds.ClientID)
	assert.Equal(t, "shhh", creds.ClientSecret)
	assert.Equal(t, "https://portal.org.example/oauth2/callback", creds.RedirectURL)
	assert.Equal(t, DefaultScopes, creds.Scopes)
}

func TestLoadPrefersFirstExistingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.json")
	path := writeSecrets(t, secretsJSON)

	creds, err := Load(WithCandidateFiles(missing, path))
	require.NoError(t, err)
	assert.Equal(t, "test-client.apps.googleusercontent.com", creds.ClientID)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "env-client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-secret")

	missing := filepath.Join(t.TempDir(), "nope.json")
	creds, err := Load(
		WithCandidateFiles(missing),
		WithRedirectURL("http://localhost:8501"),
	)
	require.NoError(t, err)
	assert.Equal(t, "env-client", creds.ClientID)
	assert.Equal(t, "env-secret", creds.ClientSecret)
	assert.Equal(t, "http://localhost:8501", creds.RedirectURL)
}

func TestLoadFromConfigKeys(t *testing.T) {
	setConfig(t, "auth.google.id", "cfg-client")
	setConfig(t, "auth.google.secret", "cfg-secret")

	missing := filepath.Join(t.TempDir(), "nope.json")
	creds, err := Load(WithCandidateFiles(missing))
	require.NoError(t, err)
	assert.Equal(t, "cfg-client", creds.ClientID)
	assert.Equal(t, "cfg-secret", creds.ClientSecret)
}

func TestLoadFromConfiguredFile(t *testing.T) {
	path := writeSecrets(t, secretsJSON)
	setConfig(t, "auth.google.credentialsFile", path)

	creds, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-client.apps.googleusercontent.com", creds.ClientID)
}

func TestLoadFailsWithoutAnySource(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	missing := filepath.Join(t.TempDir(), "nope.json")
	_, err := Load(WithCandidateFiles(missing))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Equal(t, 412, errors.HTTPStatusCode(err))
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := writeSecrets(t, `{"web": `)
	_, err := Load(WithCandidateFiles(path))
	assert.Error(t, err)
}

func TestLoadRejectsIncompleteSecrets(t *testing.T) {
	path := writeSecrets(t, `{"web": {"client_id": "id-only"}}`)
	_, err := Load(WithCandidateFiles(path))
	assert.Error(t, err)
}

func TestOAuthConfig(t *testing.T) {
	path := writeSecrets(t, secretsJSON)
	creds, err := Load(WithCandidateFiles(path), WithScopes("openid"))
	require.NoError(t, err)

	cfg := creds.OAuthConfig()
	assert.Equal(t, creds.ClientID, cfg.ClientID)
	assert.Equal(t, []string{"openid"}, cfg.Scopes)
	assert.Contains(t, cfg.Endpoint.AuthURL, "accounts.google.com")
}
