package directory

import (
	"context"
	"net/http"

	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"github.com/westkingdom/regnum-portal/errors"
	"github.com/westkingdom/regnum-portal/logging"
)

// GoogleClient implements Client against the Admin SDK Directory API.
type GoogleClient struct {
	svc *admin.Service
}

// NewGoogleClient builds a directory client from API client options,
// typically option.WithTokenSource using the service account token source
// from the credentials package.
func NewGoogleClient(ctx context.Context, opts ...option.ClientOption) (*GoogleClient, error) {
	svc, err := admin.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err).WithCode(codes.FailedPrecondition).
			Append("directory: failed to build admin service")
	}
	return &GoogleClient{svc: svc}, nil
}

// NewGoogleClientFromService wraps an existing admin service. Useful for
// tests that point the service at a local HTTP server.
func NewGoogleClientFromService(svc *admin.Service) *GoogleClient {
	return &GoogleClient{svc: svc}
}

// GetMember fetches a direct membership record.
func (c *GoogleClient) GetMember(ctx context.Context, group, email string) (*Member, error) {
	m, err := c.svc.Members.Get(group, email).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	return &Member{
		Email:  m.Email,
		Role:   m.Role,
		Type:   m.Type,
		Status: m.Status,
	}, nil
}

// ListMembers lists all members of a group, following continuation cursors
// until the listing is exhausted.
func (c *GoogleClient) ListMembers(ctx context.Context, group string, includeNested bool) ([]Member, error) {
	var out []Member
	call := c.svc.Members.List(group).IncludeDerivedMembership(includeNested).Context(ctx)
	err := call.Pages(ctx, func(page *admin.Members) error {
		for _, m := range page.Members {
			out = append(out, Member{
				Email:  m.Email,
				Role:   m.Role,
				Type:   m.Type,
				Status: m.Status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	logging.Debugw(ctx, "directory: listed group members",
		"group", group, "count", len(out), "nested", includeNested)
	return out, nil
}

// classify maps googleapi errors onto the three outcome classes.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return errors.Mark(ErrNotMember)
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.Mark(ErrPermission).Append(gerr.Message)
		}
	}
	return errors.Wrap(err).WithCode(codes.Unavailable).
		Append("directory: transient failure")
}
