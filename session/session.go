// Package session drives the portal's OAuth login handshake and owns the
// resulting per-user session.
//
// Authentication is delegated to Google: the manager produces an
// authorization URL, exchanges the returned code for tokens, and verifies
// the ID token's signature, audience, and hosted-domain claim. The verified
// session is held only in server-side interaction state; nothing is written
// to a durable store.
//
// A second, portal-minted token path exists for the break-glass password
// fallback (see the pwdauth package). Both kinds of session are re-verified
// on every protected request.
package session

import (
	"time"

	"google.golang.org/grpc/codes"

	"github.com/westkingdom/regnum-portal/errors"
)

// Names of the identity providers a session can originate from.
const (
	ProviderGoogle   = "google"
	ProviderPassword = "password"
)

var (
	// No live session; the caller should render the login entry point.
	ErrNotAuthenticated = errors.NewC("session: not authenticated", codes.Unauthenticated)

	// The authorization-code exchange failed. Recoverable: the user can
	// re-initiate the login flow. Never retried automatically.
	ErrHandshake = errors.NewC("session: authorization code exchange failed", codes.Unauthenticated)

	// The identity token failed signature, audience, or expiry checks. The
	// session is destroyed and the user must re-authenticate.
	ErrTokenInvalid = errors.NewC("session: identity token is invalid or expired", codes.Unauthenticated)

	// The token is valid but asserts the wrong organization domain. Terminal
	// for the session; the user must log in with a different account.
	ErrDomainMismatch = errors.NewC("session: account does not belong to the organization", codes.PermissionDenied)

	// The authorization code was already exchanged once.
	ErrCodeConsumed = errors.NewC("session: authorization code already consumed", codes.InvalidArgument)

	// The callback's state parameter was not issued by this interaction, so
	// the code cannot be trusted.
	ErrStateMismatch = errors.NewC("session: oauth state parameter was not issued by this session", codes.Unauthenticated)
)

// State of the login handshake for one user interaction.
//
// Anonymous → PendingCallback → Authenticated → Expired/Denied → Anonymous.
// PendingCallback is carried by the identity provider rather than locally:
// after LoginURL the manager still reports Anonymous until a code arrives.
type State int

const (
	Anonymous State = iota
	Authenticated
	Denied
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Denied:
		return "denied"
	default:
		return "anonymous"
	}
}

// Session is the verified identity material for one logged-in user. Owned
// exclusively by that user's interaction state and never shared across
// identities.
type Session struct {
	// Unique ID for this session.
	ID string

	// The raw signed identity token asserting the user's verified email and
	// domain claim. Re-verified on every protected request.
	IdentityToken string

	// Access credential obtained from the handshake. May expire
	// independently of the identity token.
	AccessToken  string
	RefreshToken string

	// Expiry of the access credential, as reported by the provider.
	CredentialExpiry time.Time

	// Normalized (lowercased, trimmed) address from the verified token.
	Email string

	// Organization-domain claim asserted by the identity provider.
	Domain string

	// Display name, if the provider supplied one.
	Name string

	// Which provider authenticated this session.
	Provider string

	CreatedAt time.Time

	// AuthorizedHint caches the last authorization check for display only.
	// It is never consulted when gating access.
	AuthorizedHint bool
}
