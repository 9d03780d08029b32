package identity

import (
	"context"
	"fmt"
	"strings"

	"naktender/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// KeySetSource resolves a JWKS URL to its key set. *jwk.Cache satisfies it.
type KeySetSource interface {
	Lookup(ctx context.Context, u string) (jwk.Set, error)
}

// JWKSURL is where the issuer publishes its signing keys.
func JWKSURL(issuerURL string) string {
	return strings.TrimSuffix(issuerURL, "/") + "/.well-known/jwks.json"
}

type TokenVerifier struct {
	keys    KeySetSource
	jwksURL string
	issuer  string
}

func NewTokenVerifier(keys KeySetSource, issuerURL string) *TokenVerifier {
	return &TokenVerifier{
		keys:    keys,
		jwksURL: JWKSURL(issuerURL),
		issuer:  strings.TrimSuffix(issuerURL, "/"),
	}
}

// Verify checks signature, expiry and issuer of an access token and
// returns its subject. Every rejection wraps types.ErrUnauthenticated.
func (v *TokenVerifier) Verify(ctx context.Context, accessToken string) (string, error) {
	set, err := v.keys.Lookup(ctx, v.jwksURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.Parse([]byte(accessToken), opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %s", types.ErrUnauthenticated, err)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return "", fmt.Errorf("%w: token has no subject", types.ErrUnauthenticated)
	}

	return subject, nil
}
