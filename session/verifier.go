package session

import (
	"context"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/grpc/codes"

	"github.com/westkingdom/regnum-portal/errors"
)

// IDTokenClaims are the claims extracted from a provider-issued identity
// token after verification.
type IDTokenClaims struct {
	Email         string
	EmailVerified bool
	Name          string

	// HostedDomain is Google's `hd` claim: the workspace domain the account
	// belongs to. Empty for consumer accounts.
	HostedDomain string

	Expiry time.Time
}

// Verifier checks a provider-issued identity token's signature, audience,
// and expiry, returning its claims. Implementations must perform a real
// verification on every call; callers rely on this to catch expired tokens
// between requests.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*IDTokenClaims, error)
}

// NewGoogleVerifier returns a Verifier that validates Google ID tokens
// against the given OAuth client ID.
func NewGoogleVerifier(clientID string) Verifier {
	return &googleVerifier{audience: clientID}
}

type googleVerifier struct {
	audience string
}

func (v *googleVerifier) Verify(ctx context.Context, rawToken string) (*IDTokenClaims, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.audience)
	if err != nil {
		return nil, errors.Wrap(err).WithCode(codes.Unauthenticated).
			Append("session: id token validation failed")
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errors.Mark(ErrTokenInvalid).Append("id token missing email claim")
	}

	claims := &IDTokenClaims{
		Email:  email,
		Expiry: time.Unix(payload.Expires, 0),
	}
	claims.Name, _ = payload.Claims["name"].(string)
	claims.HostedDomain, _ = payload.Claims["hd"].(string)
	claims.EmailVerified, _ = payload.Claims["email_verified"].(bool)
	return claims, nil
}
