// Package guard is the single entry point protected pages call before
// rendering. It composes session validation and group authorization into one
// decision with three verdicts: proceed, send the user to login, or show an
// explicit denial.
package guard

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/westkingdom/regnum-portal/authz"
	"github.com/westkingdom/regnum-portal/config"
	"github.com/westkingdom/regnum-portal/errors"
	"github.com/westkingdom/regnum-portal/logging"
	"github.com/westkingdom/regnum-portal/session"
)

// Verdict is what a protected page should do next.
type Verdict int

const (
	// RedirectToLogin means there is no usable session; render the login
	// entry point.
	RedirectToLogin Verdict = iota

	// Denied means the user is authenticated but not allowed in. Render the
	// denial message, never the login prompt.
	Denied

	// Proceed means the page may render for the returned identity.
	Proceed
)

func (v Verdict) String() string {
	switch v {
	case Proceed:
		return "proceed"
	case Denied:
		return "denied"
	default:
		return "redirect-to-login"
	}
}

// Outcome carries the verdict plus everything the page needs to act on it.
type Outcome struct {
	Verdict Verdict

	// Identity of the caller. Set whenever the session validated, so a
	// membership denial still identifies who was turned away.
	Identity session.Identity

	// LoginURL to send the user to, set when the verdict is RedirectToLogin.
	LoginURL string

	// Message suitable for display, set when the verdict is Denied.
	Message string

	// Decision is the underlying authorization decision, when one was made.
	Decision authz.Decision
}

// Guard gates page rendering for one user's session.
type Guard struct {
	sessions *session.Manager
	resolver *authz.Resolver
	settings config.Settings
}

// New builds a guard over the user's session manager and the shared resolver.
func New(sessions *session.Manager, resolver *authz.Resolver, settings config.Settings) *Guard {
	return &Guard{sessions: sessions, resolver: resolver, settings: settings}
}

// Require checks that the current user is authenticated and a member of
// group. An empty group means the portal's default required group. Every
// protected page calls this before rendering anything sensitive.
func (g *Guard) Require(ctx context.Context, group string) Outcome {
	if group == "" {
		group = g.settings.RequiredGroup
	}

	id, err := g.sessions.Validate(ctx)
	if err != nil {
		if errors.Is(err, session.ErrDomainMismatch) {
			return Outcome{Verdict: Denied, Message: publicMessage(err)}
		}
		return Outcome{
			Verdict:  RedirectToLogin,
			LoginURL: g.sessions.LoginURL(uuid.NewString()),
		}
	}

	decision := g.resolver.Resolve(ctx, id.Email, group)
	if !decision.Authorized() {
		g.sessions.SetAuthorizedHint(false)
		logging.Warnw(ctx, "guard: access denied",
			"subject", id.Email, "group", group, "outcome", decision.Outcome.String())
		return Outcome{
			Verdict:  Denied,
			Identity: id,
			Decision: decision,
			Message: fmt.Sprintf("Access to this page requires membership in %s. Contact %s to request access.",
				group, g.settings.ContactAddress),
		}
	}

	g.sessions.SetAuthorizedHint(true)
	return Outcome{Verdict: Proceed, Identity: id, Decision: decision}
}

// IsAuthorized reports whether the current user is a member of group,
// validating the session first. An empty group means the portal's default
// required group. Any verdict other than a confirmed membership, including
// a missing session or an unanswerable directory question, is false.
func (g *Guard) IsAuthorized(ctx context.Context, group string) bool {
	if group == "" {
		group = g.settings.RequiredGroup
	}
	id, err := g.sessions.Validate(ctx)
	if err != nil {
		return false
	}
	return g.resolver.Resolve(ctx, id.Email, group).Authorized()
}

// CurrentIdentity returns the signed-in email, if any. It does not validate
// the session; use Require before trusting the result for access decisions.
func (g *Guard) CurrentIdentity() (string, bool) {
	return g.sessions.CurrentIdentity()
}

// AuthorizedHint reports the last authorization result Require recorded on
// the session. Display-only; gating goes through Require or IsAuthorized.
func (g *Guard) AuthorizedHint() bool {
	s := g.sessions.Session()
	return s != nil && s.AuthorizedHint
}

// Logout ends the session.
func (g *Guard) Logout(ctx context.Context) {
	g.sessions.Logout(ctx)
}

func publicMessage(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.PublicMessage()
	}
	return err.Error()
}
