// Package directory wraps the Google Admin SDK Directory API for group
// membership queries.
//
// Three outcome classes are kept distinct, because the resolver treats them
// very differently: a missing member record is normal and non-fatal
// (ErrNotMember); a permission failure means the calling service account
// cannot answer the question and must not be read as "not a member"; and a
// transient failure is retryable at the caller's discretion. The client
// itself never retries.
package directory

import (
	"context"

	"google.golang.org/grpc/codes"

	"github.com/westkingdom/regnum-portal/errors"
)

// ErrNotMember indicates the identity has no membership record in the group.
// This is a normal outcome, not a failure.
var ErrNotMember = errors.NewC("directory: not a member", codes.NotFound)

// ErrPermission indicates the calling identity lacks rights to query the
// directory. Callers must treat the membership question as unanswered.
var ErrPermission = errors.NewC("directory: permission denied querying membership", codes.PermissionDenied)

// Member is one entry in a group's membership listing.
type Member struct {
	// Email of the member.
	Email string

	// Role within the group (OWNER, MANAGER, MEMBER).
	Role string

	// Type of member (USER, GROUP, CUSTOMER).
	Type string

	// Delivery/membership status as reported by the directory.
	Status string
}

// Client answers group membership questions.
type Client interface {
	// GetMember looks up a direct membership record. Returns ErrNotMember
	// when the identity is not a direct member.
	GetMember(ctx context.Context, group, email string) (*Member, error)

	// ListMembers returns every member of the group, following pagination
	// until exhausted. With includeNested, members derived through nested
	// groups are included. Callers never see partial results.
	ListMembers(ctx context.Context, group string, includeNested bool) ([]Member, error)
}

// IsNotMember reports whether err is the normal not-a-member outcome.
func IsNotMember(err error) bool {
	return errors.Is(err, ErrNotMember)
}

// IsPermission reports whether err is a directory permission failure, which
// must be surfaced as indeterminate rather than a confident denial.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}
