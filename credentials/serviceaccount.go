package credentials

import (
	"context"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/grpc/codes"

	"github.com/westkingdom/regnum-portal/config"
	"github.com/westkingdom/regnum-portal/errors"
)

const (
	// Path where the service account key is mounted in production.
	MountedServiceAccountFile = "/secrets/sa/service_account.json"

	// Fallback path for local development.
	LocalServiceAccountFile = "regnum-service-account-key.json"

	keyServiceAccountFile = "auth.google.serviceAccountFile"
)

// DirectoryScopes are requested for the service account used to query group
// membership.
var DirectoryScopes = []string{
	"https://www.googleapis.com/auth/admin.directory.group.readonly",
	"https://www.googleapis.com/auth/admin.directory.group.member.readonly",
	"https://www.googleapis.com/auth/admin.directory.user.readonly",
}

// ServiceAccountTokenSource builds a token source from a service account key
// with domain-wide delegation, impersonating the given workspace admin. The
// key is read from the first candidate path that exists. Missing key material
// is a configuration error; the directory client must not silently run
// unauthenticated.
func ServiceAccountTokenSource(ctx context.Context, impersonate string, candidates ...string) (oauth2.TokenSource, error) {
	if len(candidates) == 0 {
		candidates = []string{MountedServiceAccountFile, LocalServiceAccountFile}
		if path := config.String(keyServiceAccountFile); path != "" {
			candidates = append([]string{path}, candidates...)
		}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err).WithCode(codes.FailedPrecondition).
				Append("credentials: failed to read service account key " + path)
		}

		cfg, err := google.JWTConfigFromJSON(data, DirectoryScopes...)
		if err != nil {
			return nil, errors.Codef(codes.FailedPrecondition,
				"credentials: invalid service account key %s: %s", path, err)
		}
		cfg.Subject = impersonate
		return cfg.TokenSource(ctx), nil
	}

	return nil, errors.NewC(
		"credentials: no service account key found in candidate paths",
		codes.FailedPrecondition)
}
