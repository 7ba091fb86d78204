package authz

import (
	"context"
	"strings"

	"github.com/westkingdom/regnum-portal/config"
	"github.com/westkingdom/regnum-portal/directory"
	"github.com/westkingdom/regnum-portal/logging"
)

// Outcome is the three-valued result of a membership question.
type Outcome int

const (
	// Indeterminate means the question could not be answered. Callers must
	// treat it as a denial, never as confirmed non-membership.
	Indeterminate Outcome = iota

	// NotMember means the directory confirmed the subject is not a member.
	NotMember

	// Member means membership was confirmed, directly or through nesting.
	Member
)

func (o Outcome) String() string {
	switch o {
	case Member:
		return "member"
	case NotMember:
		return "not-member"
	default:
		return "indeterminate"
	}
}

// Decision sources, recorded for logging and diagnostics.
const (
	SourceBypass = "bypass"
	SourceCache  = "cache-hit"
	SourceDirect = "direct-lookup"
	SourceNested = "nested-lookup"
)

// Decision is the result of resolving one subject against one group.
type Decision struct {
	Subject  string
	Group    string
	Outcome  Outcome
	Source   string
	CacheAge string
}

// Authorized reports whether the decision grants access. Only a confirmed
// membership does; an unanswerable question does not.
func (d Decision) Authorized() bool {
	return d.Outcome == Member
}

// Resolver answers "may this identity use the portal" by consulting, in
// order: the bypass toggle, the cache, a direct membership lookup, and a
// full listing that covers nested groups.
type Resolver struct {
	dir      directory.Client
	cache    *Cache
	settings config.Settings
}

// NewResolver builds a resolver over the given directory client. The cache
// TTL comes from settings.
func NewResolver(dir directory.Client, settings config.Settings) *Resolver {
	return &Resolver{
		dir:      dir,
		cache:    NewCache(settings.MembershipTTL),
		settings: settings,
	}
}

// Cache exposes the resolver's cache, mainly so operational tooling can
// invalidate or prune it.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve determines whether email belongs to group. Directory failures
// produce Indeterminate and are never cached, so the next request retries.
func (r *Resolver) Resolve(ctx context.Context, email, group string) Decision {
	email = strings.ToLower(strings.TrimSpace(email))
	d := Decision{Subject: email, Group: group}

	if r.settings.BypassGroupCheck && hasDomain(email, r.settings.OrgDomain) {
		logging.Warnw(ctx, "authz: group check bypassed",
			"subject", email, "group", group)
		d.Outcome = Member
		d.Source = SourceBypass
		return d
	}

	if value, age, ok := r.cache.Get(email, group); ok {
		d.Source = SourceCache
		d.CacheAge = age.String()
		if value {
			d.Outcome = Member
		} else {
			d.Outcome = NotMember
		}
		return d
	}

	member, err := r.dir.GetMember(ctx, group, email)
	switch {
	case err == nil:
		logging.Infow(ctx, "authz: direct membership confirmed",
			"subject", email, "group", group, "role", member.Role)
		r.cache.Put(email, group, true)
		d.Outcome = Member
		d.Source = SourceDirect
		return d
	case directory.IsNotMember(err):
		// Not a direct member. Nested membership may still apply.
	default:
		logging.Errorw(ctx, "authz: direct membership lookup failed",
			"subject", email, "group", group, "error", err)
		d.Outcome = Indeterminate
		d.Source = SourceDirect
		return d
	}

	members, err := r.dir.ListMembers(ctx, group, true)
	if err != nil {
		logging.Errorw(ctx, "authz: nested membership listing failed",
			"subject", email, "group", group, "error", err)
		d.Outcome = Indeterminate
		d.Source = SourceNested
		return d
	}

	d.Source = SourceNested
	for _, m := range members {
		if strings.EqualFold(m.Email, email) {
			r.cache.Put(email, group, true)
			d.Outcome = Member
			return d
		}
	}

	logging.Infow(ctx, "authz: membership not found",
		"subject", email, "group", group, "searched", len(members))
	r.cache.Put(email, group, false)
	d.Outcome = NotMember
	return d
}

func hasDomain(email, domain string) bool {
	return domain != "" && strings.HasSuffix(email, "@"+strings.ToLower(domain))
}
