package session

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/westkingdom/regnum-portal/config"
	"github.com/westkingdom/regnum-portal/errors"
	"github.com/westkingdom/regnum-portal/logging"
)

// Exchanger abstracts the oauth2 authorization-code exchange so the manager
// can be tested without a live provider. *oauth2.Config satisfies this.
type Exchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

// Manager owns the session for a single user interaction. Each user's
// requests are handled to completion before the next, so the manager itself
// is not locked; the Registry guards concurrent access across users.
type Manager struct {
	exchanger Exchanger
	verifier  Verifier
	settings  config.Settings

	state   State
	session *Session

	// Codes exchanged during this interaction, so a replayed code is
	// rejected instead of re-exchanged. Cleared on logout.
	consumed map[string]struct{}

	// States handed out by LoginURL and not yet redeemed. A callback whose
	// state is absent here did not originate from this interaction.
	issuedStates map[string]struct{}
}

// NewManager returns a manager in the Anonymous state.
func NewManager(exchanger Exchanger, verifier Verifier, settings config.Settings) *Manager {
	return &Manager{
		exchanger:    exchanger,
		verifier:     verifier,
		settings:     settings,
		state:        Anonymous,
		consumed:     map[string]struct{}{},
		issuedStates: map[string]struct{}{},
	}
}

// State reports where the login handshake currently stands.
func (m *Manager) State() State {
	if m.session != nil {
		return Authenticated
	}
	return m.state
}

// Session returns the live session, or nil when anonymous.
func (m *Manager) Session() *Session {
	return m.session
}

// CurrentIdentity returns the normalized email of the live session. The
// boolean is false when no session exists.
func (m *Manager) CurrentIdentity() (string, bool) {
	if m.session == nil {
		return "", false
	}
	return m.session.Email, true
}

// LoginURL produces the provider authorization URL for the given opaque
// state and remembers the state so the callback can prove it originated
// here. The handshake then continues provider-side; locally the manager
// stays Anonymous until a code arrives.
func (m *Manager) LoginURL(state string) string {
	m.issuedStates[state] = struct{}{}
	return m.exchanger.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// CompleteHandshake exchanges an authorization code for credentials and
// creates the session. The state must be one this manager handed out via
// LoginURL; anything else is rejected before the exchange.
//
// A code is consumed at most once: if a session already exists, a redundant
// code in the same interaction is ignored rather than re-exchanged, and a
// replay of a consumed code is rejected. Exchange failures leave the manager
// Anonymous; the user recovers by re-initiating the login flow.
func (m *Manager) CompleteHandshake(ctx context.Context, code, state string) error {
	if m.session != nil {
		logging.Info(ctx, "session: ignoring redundant authorization code")
		return nil
	}
	if code == "" {
		return errors.Mark(ErrHandshake).Append("empty authorization code")
	}
	if _, used := m.consumed[code]; used {
		return errors.Mark(ErrCodeConsumed)
	}
	if _, issued := m.issuedStates[state]; !issued {
		logging.Warnw(ctx, "session: callback with unknown state parameter")
		return errors.Mark(ErrStateMismatch)
	}
	delete(m.issuedStates, state)

	tok, err := m.exchanger.Exchange(ctx, code)
	if err != nil {
		logging.Errorw(ctx, "session: token exchange failed", "error", err)
		return errors.Mark(ErrHandshake).Append(err.Error())
	}
	m.consumed[code] = struct{}{}

	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return errors.Mark(ErrHandshake).Append("provider response missing id_token")
	}

	claims, err := m.verifier.Verify(ctx, raw)
	if err != nil {
		return errors.Mark(ErrHandshake).Append(err.Error())
	}

	email := normalizeEmail(claims.Email)
	if m.settings.OrgDomain != "" && claims.HostedDomain != m.settings.OrgDomain {
		m.state = Denied
		logging.Warnw(ctx, "session: domain claim mismatch",
			"email", email, "hd", claims.HostedDomain, "want", m.settings.OrgDomain)
		return errors.Mark(ErrDomainMismatch).WithPublicMessage(
			"You must sign in with a " + m.settings.OrgDomain + " account.")
	}

	m.session = &Session{
		ID:               uuid.NewString(),
		IdentityToken:    raw,
		AccessToken:      tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		CredentialExpiry: tok.Expiry,
		Email:            email,
		Domain:           claims.HostedDomain,
		Name:             claims.Name,
		Provider:         ProviderGoogle,
		CreatedAt:        timeFunc(),
	}
	m.state = Authenticated
	logging.Infow(ctx, "session: user authenticated", "email", email, "session", m.session.ID)
	return nil
}

// BeginLocalSession installs a session backed by a portal-minted identity
// token, for the password fallback. The token is validated before use; the
// domain-claim rule applies the same as for provider logins.
func (m *Manager) BeginLocalSession(ctx context.Context, signedToken string) error {
	id, err := ParseIdentityToken(signedToken, m.settings.SigningKey)
	if err != nil {
		return errors.Mark(ErrTokenInvalid).Append(err.Error())
	}

	email := normalizeEmail(id.Email)
	if m.settings.OrgDomain != "" && id.Domain != m.settings.OrgDomain {
		m.state = Denied
		return errors.Mark(ErrDomainMismatch).WithPublicMessage(
			"You must sign in with a " + m.settings.OrgDomain + " account.")
	}

	m.session = &Session{
		ID:            uuid.NewString(),
		IdentityToken: signedToken,
		Email:         email,
		Domain:        id.Domain,
		Name:          id.Name,
		Provider:      ProviderPassword,
		CreatedAt:     timeFunc(),
	}
	m.state = Authenticated
	logging.Infow(ctx, "session: password fallback authenticated", "email", email)
	return nil
}

// Validate re-verifies the session's identity token against the current
// time. Called on every protected request.
//
// Expired or invalid tokens destroy the session and return ErrTokenInvalid:
// the caller should re-render the login entry point. A domain-claim mismatch
// destroys the session and returns ErrDomainMismatch, which callers must
// present as an explicit denial rather than a login prompt.
func (m *Manager) Validate(ctx context.Context) (Identity, error) {
	if m.session == nil {
		if m.state == Denied {
			// A prior domain mismatch stands until logout. Surfacing it here
			// keeps the user on the denial message instead of a login loop.
			return Identity{}, errors.Mark(ErrDomainMismatch).WithPublicMessage(
				"You must sign in with a " + m.settings.OrgDomain + " account.")
		}
		return Identity{}, errors.Mark(ErrNotAuthenticated)
	}
	s := m.session

	var id Identity
	switch s.Provider {
	case ProviderPassword:
		parsed, err := ParseIdentityToken(s.IdentityToken, m.settings.SigningKey)
		if err != nil {
			m.destroy(Anonymous)
			logging.Warnw(ctx, "session: identity token rejected", "error", err)
			return Identity{}, errors.Mark(ErrTokenInvalid).Append(err.Error())
		}
		parsed.SessionID = s.ID
		id = parsed
	default:
		claims, err := m.verifier.Verify(ctx, s.IdentityToken)
		if err != nil {
			m.destroy(Anonymous)
			logging.Warnw(ctx, "session: identity token rejected", "error", err)
			return Identity{}, errors.Mark(ErrTokenInvalid).Append(err.Error())
		}
		id = Identity{
			SessionID: s.ID,
			Email:     normalizeEmail(claims.Email),
			Name:      claims.Name,
			Domain:    claims.HostedDomain,
			Provider:  s.Provider,
			AuthTime:  s.CreatedAt,
		}
	}

	if m.settings.OrgDomain != "" && id.Domain != m.settings.OrgDomain {
		m.destroy(Denied)
		logging.Warnw(ctx, "session: domain claim mismatch on validation",
			"email", id.Email, "hd", id.Domain)
		return Identity{}, errors.Mark(ErrDomainMismatch).WithPublicMessage(
			"Access denied: your account does not belong to " + m.settings.OrgDomain + ".")
	}
	return id, nil
}

// SetAuthorizedHint records the last authorization result on the session for
// display purposes. Gating decisions never read it.
func (m *Manager) SetAuthorizedHint(authorized bool) {
	if m.session != nil {
		m.session.AuthorizedHint = authorized
	}
}

// Logout destroys the session and clears consumed handshake parameters.
// Always leaves the manager Anonymous, even if called twice.
func (m *Manager) Logout(ctx context.Context) {
	if m.session != nil {
		logging.Infow(ctx, "session: logout", "email", m.session.Email)
	}
	m.destroy(Anonymous)
	m.consumed = map[string]struct{}{}
	m.issuedStates = map[string]struct{}{}
}

func (m *Manager) destroy(next State) {
	m.session = nil
	m.state = next
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
