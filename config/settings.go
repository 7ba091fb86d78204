package config

import "time"

// Settings is the auth gate configuration, resolved once at startup and
// passed by value to the session manager, resolver, and guard. Consolidating
// the toggles here keeps bypass and fallback behavior consistent across the
// gate instead of being re-read from the environment at check time.
type Settings struct {
	// OrgDomain is the Google Workspace hosted domain users must belong to.
	OrgDomain string

	// RequiredGroup is the default group protected pages check against.
	RequiredGroup string

	// ContactAddress is included in access denied messages so users know who
	// to ask for group membership.
	ContactAddress string

	// BypassGroupCheck disables the membership check for subjects whose email
	// matches OrgDomain. Operational escape hatch only; defaults to off and
	// every use is logged.
	BypassGroupCheck bool

	// MembershipTTL bounds how long a cached membership result is trusted.
	MembershipTTL time.Duration

	// RedirectURL is the absolute OAuth callback target.
	RedirectURL string

	// ImpersonateUser is the workspace admin the directory service account
	// acts as, via domain-wide delegation.
	ImpersonateUser string

	// SigningKey signs portal-minted identity tokens.
	SigningKey []byte

	// TokenExpiration is the validity window for portal-minted tokens.
	TokenExpiration time.Duration
}

// Resolve reads the auth gate settings from the global Config.
func Resolve() Settings {
	return Settings{
		OrgDomain:        String("auth.orgDomain"),
		RequiredGroup:    String("auth.requiredGroup"),
		ContactAddress:   String("auth.contactAddress"),
		BypassGroupCheck: Bool("auth.bypassGroupCheck"),
		MembershipTTL:    Duration("auth.membershipCacheTtl"),
		RedirectURL:      String("auth.redirectUrl"),
		ImpersonateUser:  String("auth.impersonateUser"),
		SigningKey:       []byte(String("auth.signingKey")),
		TokenExpiration:  Duration("auth.expiration"),
	}
}
