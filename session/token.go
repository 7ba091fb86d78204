package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/codes"

	"github.com/westkingdom/regnum-portal/errors"
)

// Leeway for JWT expiration checks.
const jwtLeeway = 5 * time.Second

// Issuer and audience for portal-minted tokens. Tokens created by this
// portal are only ever consumed by this portal.
const tokenIssuer = "regnum-portal"

// Allows time to be stubbed in tests.
var timeFunc = time.Now

// Claims registered in a portal-minted identity token.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`

	// Organization-domain claim, mirroring Google's `hd` claim.
	Domain string `json:"hd,omitempty"`

	// Which provider originally authenticated the user.
	Provider string `json:"idp"`
}

// Identity is the verified subject of a live session.
type Identity struct {
	SessionID string
	Email     string
	Name      string
	Domain    string
	Provider  string
	AuthTime  time.Time
}

// IdentityToken creates a signed HS256 JWT for the given identity. Used by
// the password fallback and by tests; Google logins carry Google's own ID
// token instead.
func IdentityToken(identity Identity, key []byte, expiration time.Duration) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        identity.SessionID,
			Subject:   identity.Email,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenIssuer},
			IssuedAt:  jwt.NewNumericDate(timeFunc()),
			ExpiresAt: jwt.NewNumericDate(timeFunc().Add(expiration)),
		},
		Name:     identity.Name,
		Email:    identity.Email,
		Domain:   identity.Domain,
		Provider: identity.Provider,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err).WithCode(codes.Unauthenticated)
	}
	return ss, nil
}

// ParseIdentityToken takes a signed JWT, validates it, and returns the
// identity encoded within. Invalid and expired tokens error.
func ParseIdentityToken(tokenString string, key []byte) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return key, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenIssuer),
		jwt.WithLeeway(jwtLeeway),
		jwt.WithTimeFunc(timeFunc),
		jwt.WithIssuedAt(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return Identity{}, errors.Wrap(err).WithCode(codes.Unauthenticated)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, errors.Mark(ErrTokenInvalid).Append("invalid claims")
	}
	if claims.Email == "" {
		return Identity{}, errors.Mark(ErrTokenInvalid).Append("missing email")
	}

	return Identity{
		SessionID: claims.ID,
		Email:     claims.Email,
		Name:      claims.Name,
		Domain:    claims.Domain,
		Provider:  claims.Provider,
		AuthTime:  claims.IssuedAt.Time,
	}, nil
}
