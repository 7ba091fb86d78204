package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/westkingdom/regnum-portal/config"
	"github.com/westkingdom/regnum-portal/directory"
	"github.com/westkingdom/regnum-portal/errors"
)

const (
	testGroup  = "regnum-site@org.example"
	testDomain = "org.example"
)

func testSettings() config.Settings {
	return config.Settings{
		OrgDomain:     testDomain,
		RequiredGroup: testGroup,
		MembershipTTL: 5 * time.Minute,
	}
}

func newResolver(dir directory.Client, settings config.Settings) *Resolver {
	return NewResolver(dir, settings)
}

func TestResolveDirectMember(t *testing.T) {
	fake := directory.NewFake()
	fake.AddDirect(testGroup, "a@org.example")
	r := newResolver(fake, testSettings())

	d := r.Resolve(context.Background(), "a@org.example", testGroup)
	assert.Equal(t, Member, d.Outcome)
	assert.Equal(t, SourceDirect, d.Source)
	assert.True(t, d.Authorized())
	assert.Equal(t, 1, fake.GetCalls)
	assert.Equal(t, 0, fake.ListCalls, "direct hit skips the full listing")
}

func TestResolveNestedMember(t *testing.T) {
	fake := directory.NewFake()
	fake.AddDerived(testGroup, "Nested@Org.Example")
	r := newResolver(fake, testSettings())

	d := r.Resolve(context.Background(), "nested@org.example", testGroup)
	assert.Equal(t, Member, d.Outcome)
	assert.Equal(t, SourceNested, d.Source)
	assert.Equal(t, 1, fake.GetCalls)
	assert.Equal(t, 1, fake.ListCalls)
}

func TestResolveNotMember(t *testing.T) {
	fake := directory.NewFake()
	r := newResolver(fake, testSettings())

	d := r.Resolve(context.Background(), "stranger@org.example", testGroup)
	assert.Equal(t, NotMember, d.Outcome)
	assert.False(t, d.Authorized())
}

func TestResolveCachesWithinTTL(t *testing.T) {
	fake := directory.NewFake()
	fake.AddDirect(testGroup, "a@org.example")
	r := newResolver(fake, testSettings())

	for i := 0; i < 5; i++ {
		d := r.Resolve(context.Background(), "a@org.example", testGroup)
		assert.True(t, d.Authorized())
	}
	assert.Equal(t, 1, fake.GetCalls, "one directory round trip per TTL window")

	d := r.Resolve(context.Background(), "a@org.example", testGroup)
	assert.Equal(t, SourceCache, d.Source)
	assert.NotEmpty(t, d.CacheAge)
}

func TestResolveRefetchesAfterTTL(t *testing.T) {
	fake := directory.NewFake()
	fake.AddDirect(testGroup, "a@org.example")
	r := newResolver(fake, testSettings())

	now := time.Now()
	r.cache.now = func() time.Time { return now }

	require.True(t, r.Resolve(context.Background(), "a@org.example", testGroup).Authorized())
	assert.Equal(t, 1, fake.GetCalls)

	now = now.Add(6 * time.Minute)
	d := r.Resolve(context.Background(), "a@org.example", testGroup)
	assert.True(t, d.Authorized())
	assert.Equal(t, SourceDirect, d.Source)
	assert.Equal(t, 2, fake.GetCalls, "stale entry forces a fresh lookup")
}

func TestResolveNegativeCached(t *testing.T) {
	fake := directory.NewFake()
	r := newResolver(fake, testSettings())

	r.Resolve(context.Background(), "stranger@org.example", testGroup)
	d := r.Resolve(context.Background(), "stranger@org.example", testGroup)
	assert.Equal(t, NotMember, d.Outcome)
	assert.Equal(t, SourceCache, d.Source)
	assert.Equal(t, 1, fake.ListCalls)
}

func TestResolveDirectFailureIsIndeterminate(t *testing.T) {
	fake := directory.NewFake()
	fake.GetErr = directory.ErrPermission
	r := newResolver(fake, testSettings())

	d := r.Resolve(context.Background(), "a@org.example", testGroup)
	assert.Equal(t, Indeterminate, d.Outcome)
	assert.False(t, d.Authorized(), "an unanswered question never grants access")
	assert.Equal(t, 0, fake.ListCalls, "permission failures are not retried via listing")
}

func TestResolveListingFailureIsIndeterminate(t *testing.T) {
	fake := directory.NewFake()
	fake.ListErr = errors.NewC("directory: transient failure", codes.Unavailable)
	r := newResolver(fake, testSettings())

	d := r.Resolve(context.Background(), "a@org.example", testGroup)
	assert.Equal(t, Indeterminate, d.Outcome)
	assert.Equal(t, SourceNested, d.Source)
}

func TestResolveFailuresNeverCached(t *testing.T) {
	fake := directory.NewFake()
	fake.GetErr = directory.ErrPermission
	r := newResolver(fake, testSettings())

	r.Resolve(context.Background(), "a@org.example", testGroup)
	r.Resolve(context.Background(), "a@org.example", testGroup)
	assert.Equal(t, 2, fake.GetCalls, "each request retries after a failure")
	assert.Equal(t, 0, r.cache.Len())

	// Once the directory recovers, the next resolve succeeds and caches.
	fake.GetErr = nil
	fake.AddDirect(testGroup, "a@org.example")
	d := r.Resolve(context.Background(), "a@org.example", testGroup)
	assert.True(t, d.Authorized())
	assert.Equal(t, 1, r.cache.Len())
}

func TestResolveBypass(t *testing.T) {
	fake := directory.NewFake()
	settings := testSettings()
	settings.BypassGroupCheck = true
	r := newResolver(fake, settings)

	d := r.Resolve(context.Background(), "a@org.example", testGroup)
	assert.Equal(t, Member, d.Outcome)
	assert.Equal(t, SourceBypass, d.Source)
	assert.Equal(t, 0, fake.GetCalls, "bypass makes no directory calls")
	assert.Equal(t, 0, fake.ListCalls)
}

func TestResolveBypassRequiresOrgDomain(t *testing.T) {
	fake := directory.NewFake()
	settings := testSettings()
	settings.BypassGroupCheck = true
	r := newResolver(fake, settings)

	d := r.Resolve(context.Background(), "outsider@elsewhere.example", testGroup)
	assert.NotEqual(t, SourceBypass, d.Source, "bypass never applies outside the org domain")
	assert.Equal(t, NotMember, d.Outcome)
}

func TestResolveNormalizesSubject(t *testing.T) {
	fake := directory.NewFake()
	fake.AddDirect(testGroup, "a@org.example")
	r := newResolver(fake, testSettings())

	require.True(t, r.Resolve(context.Background(), "a@org.example", testGroup).Authorized())

	d := r.Resolve(context.Background(), "  A@ORG.EXAMPLE ", testGroup)
	assert.Equal(t, SourceCache, d.Source, "casing variants share one cache entry")
}

func TestResolveDistinctGroupsCachedSeparately(t *testing.T) {
	fake := directory.NewFake()
	fake.AddDirect(testGroup, "a@org.example")
	r := newResolver(fake, testSettings())

	require.True(t, r.Resolve(context.Background(), "a@org.example", testGroup).Authorized())

	d := r.Resolve(context.Background(), "a@org.example", "other@org.example")
	assert.Equal(t, NotMember, d.Outcome)
	assert.NotEqual(t, SourceCache, d.Source)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "member", Member.String())
	assert.Equal(t, "not-member", NotMember.String())
	assert.Equal(t, "indeterminate", Indeterminate.String())
}
