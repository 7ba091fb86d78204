// Package credentials loads the portal's Google OAuth client configuration
// and service account key material. Configuration is looked up in a fixed
// order: a configured secrets file, the mounted secrets file (the Cloud Run
// layout), a local development file, the auth.google.id / auth.google.secret
// config keys, then environment variables. If none are present the portal
// must not start; there is no unauthenticated fallback mode.
package credentials

import (
	"encoding/json"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/grpc/codes"

	"github.com/westkingdom/regnum-portal/config"
	"github.com/westkingdom/regnum-portal/errors"
)

const (
	// Path where the client secret is mounted in production.
	MountedSecretsFile = "/oauth/google_credentials.json"

	// Fallback path for local development.
	LocalSecretsFile = "google_credentials.json"

	envClientID     = "GOOGLE_CLIENT_ID"
	envClientSecret = "GOOGLE_CLIENT_SECRET"

	keyClientID        = "auth.google.id"
	keyClientSecret    = "auth.google.secret"
	keyCredentialsFile = "auth.google.credentialsFile"
)

// ErrNoCredentials indicates that no OAuth client configuration could be
// found. This is fatal: request processing must not proceed without it.
var ErrNoCredentials = errors.NewC(
	"credentials: no OAuth client configuration found in candidate files or environment",
	codes.FailedPrecondition,
)

// DefaultScopes cover identity claims plus read access to group membership.
var DefaultScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/admin.directory.group.member.readonly",
}

// Credentials holds the OAuth client configuration for the login handshake.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Option customizes credential loading.
type Option func(*loader)

// WithCandidateFiles overrides the list of files checked for client secrets.
// Files are tried in order; the first one that exists wins.
func WithCandidateFiles(paths ...string) Option {
	return func(l *loader) {
		l.files = paths
	}
}

// WithRedirectURL sets the authorized redirect target for the OAuth flow.
func WithRedirectURL(u string) Option {
	return func(l *loader) {
		l.redirectURL = u
	}
}

// WithScopes replaces the default scope set.
func WithScopes(scopes ...string) Option {
	return func(l *loader) {
		l.scopes = scopes
	}
}

type loader struct {
	files       []string
	redirectURL string
	scopes      []string
}

// Load produces Credentials from the first available source. It returns
// ErrNoCredentials if neither a secrets file nor the GOOGLE_CLIENT_ID /
// GOOGLE_CLIENT_SECRET environment variables are present. Secret material is
// never logged.
func Load(opts ...Option) (*Credentials, error) {
	l := &loader{
		files:  []string{MountedSecretsFile, LocalSecretsFile},
		scopes: DefaultScopes,
	}
	if path := config.String(keyCredentialsFile); path != "" {
		l.files = append([]string{path}, l.files...)
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, path := range l.files {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err).WithCode(codes.FailedPrecondition).
				Append("credentials: failed to read " + path)
		}
		return l.fromJSON(data)
	}

	id := strings.TrimSpace(config.String(keyClientID))
	secret := strings.TrimSpace(config.String(keyClientSecret))
	if id == "" || secret == "" {
		id = strings.TrimSpace(os.Getenv(envClientID))
		secret = strings.TrimSpace(os.Getenv(envClientSecret))
	}
	if id != "" && secret != "" {
		return &Credentials{
			ClientID:     id,
			ClientSecret: secret,
			RedirectURL:  l.redirectURL,
			Scopes:       l.scopes,
		}, nil
	}

	return nil, ErrNoCredentials
}

// clientSecrets mirrors the "web" block of Google's client secrets JSON.
type clientSecrets struct {
	Web struct {
		ClientID     string   `json:"client_id"`
		ClientSecret string   `json:"client_secret"`
		RedirectURIs []string `json:"redirect_uris"`
	} `json:"web"`
}

func (l *loader) fromJSON(data []byte) (*Credentials, error) {
	var cs clientSecrets
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, errors.Codef(codes.FailedPrecondition,
			"credentials: client secrets file is not valid JSON: %s", err)
	}
	if cs.Web.ClientID == "" || cs.Web.ClientSecret == "" {
		return nil, errors.NewC(
			"credentials: client secrets file missing client_id or client_secret",
			codes.FailedPrecondition)
	}

	redirect := l.redirectURL
	if redirect == "" && len(cs.Web.RedirectURIs) > 0 {
		redirect = cs.Web.RedirectURIs[0]
	}

	return &Credentials{
		ClientID:     cs.Web.ClientID,
		ClientSecret: cs.Web.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       l.scopes,
	}, nil
}

// OAuthConfig returns an oauth2 configuration for the authorization-code
// handshake against Google's endpoints.
func (c *Credentials) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
	}
}
