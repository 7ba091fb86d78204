package directory

import (
	"context"
	"strings"
)

// Fake is an in-memory Client for tests. It records call counts so tests
// can assert how many real lookups an authorization path performed.
type Fake struct {
	// Direct maps group → direct member emails.
	Direct map[string][]string

	// Derived maps group → emails reachable only through nested groups.
	Derived map[string][]string

	// GetErr and ListErr, when set, are returned by the corresponding call.
	GetErr  error
	ListErr error

	GetCalls  int
	ListCalls int
}

// NewFake returns an empty fake directory.
func NewFake() *Fake {
	return &Fake{
		Direct:  map[string][]string{},
		Derived: map[string][]string{},
	}
}

// AddDirect records a direct membership.
func (f *Fake) AddDirect(group, email string) {
	f.Direct[group] = append(f.Direct[group], email)
}

// AddDerived records a membership reachable only via a nested group.
func (f *Fake) AddDerived(group, email string) {
	f.Derived[group] = append(f.Derived[group], email)
}

func (f *Fake) GetMember(ctx context.Context, group, email string) (*Member, error) {
	f.GetCalls++
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	for _, m := range f.Direct[group] {
		if strings.EqualFold(m, email) {
			return &Member{Email: m, Role: "MEMBER", Type: "USER", Status: "ACTIVE"}, nil
		}
	}
	return nil, ErrNotMember
}

func (f *Fake) ListMembers(ctx context.Context, group string, includeNested bool) ([]Member, error) {
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []Member
	for _, m := range f.Direct[group] {
		out = append(out, Member{Email: m, Role: "MEMBER", Type: "USER", Status: "ACTIVE"})
	}
	if includeNested {
		for _, m := range f.Derived[group] {
			out = append(out, Member{Email: m, Role: "MEMBER", Type: "USER", Status: "ACTIVE"})
		}
	}
	return out, nil
}

var _ Client = (*Fake)(nil)
