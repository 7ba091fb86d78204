// Package pwdauth is the password fallback for signing in when the OAuth
// provider is unreachable. Accounts are provisioned out of band by an
// administrator; there is no self-service registration. Successful logins
// mint a portal-signed identity token and install it as a local session, so
// everything downstream of login treats both providers identically.
package pwdauth

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/grpc/codes"

	"github.com/westkingdom/regnum-portal/config"
	"github.com/westkingdom/regnum-portal/errors"
	"github.com/westkingdom/regnum-portal/logging"
	"github.com/westkingdom/regnum-portal/session"
)

// ErrInvalidCredentials is returned for every login failure. Unknown account
// and wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.NewC("pwdauth: invalid credentials", codes.Unauthenticated)

// Account is a provisioned fallback login.
type Account struct {
	Email        string
	Name         string
	PasswordHash string
}

// Authenticator validates fallback credentials and begins local sessions.
type Authenticator struct {
	mu       sync.RWMutex
	accounts map[string]Account
	hasher   Hasher
	settings config.Settings
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithHasher overrides the password hasher. Tests use TestHasher.
func WithHasher(h Hasher) Option {
	return func(a *Authenticator) { a.hasher = h }
}

// New returns an Authenticator with no accounts provisioned.
func New(settings config.Settings, opts ...Option) *Authenticator {
	a := &Authenticator{
		accounts: map[string]Account{},
		hasher:   BcryptHasher{},
		settings: settings,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Provision adds or replaces an account. The password is hashed here; the
// plaintext is never stored.
func (a *Authenticator) Provision(email, name, password string) error {
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return errors.Wrap(err).Append("pwdauth: failed to hash password")
	}
	email = normalize(email)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[email] = Account{Email: email, Name: name, PasswordHash: hash}
	return nil
}

// Revoke removes an account. Live sessions are unaffected until their token
// expires.
func (a *Authenticator) Revoke(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.accounts, normalize(email))
}

// Login verifies the credentials and installs a session on mgr. The minted
// token carries the account's email domain, so the domain rule is enforced
// the same as for provider logins.
func (a *Authenticator) Login(ctx context.Context, mgr *session.Manager, email, password string) error {
	email = normalize(email)

	a.mu.RLock()
	account, ok := a.accounts[email]
	a.mu.RUnlock()
	if !ok || !a.hasher.Compare(account.PasswordHash, password) {
		logging.Warnw(ctx, "pwdauth: login rejected", "email", email)
		return errors.Mark(ErrInvalidCredentials).WithPublicMessage("Invalid email or password.")
	}

	token, err := session.IdentityToken(session.Identity{
		Email:    account.Email,
		Name:     account.Name,
		Domain:   domainOf(account.Email),
		Provider: session.ProviderPassword,
	}, a.settings.SigningKey, a.settings.TokenExpiration)
	if err != nil {
		return errors.Wrap(err).Append("pwdauth: failed to mint identity token")
	}

	if err := mgr.BeginLocalSession(ctx, token); err != nil {
		return err
	}
	logging.Infow(ctx, "pwdauth: fallback login", "email", account.Email)
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func domainOf(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}
