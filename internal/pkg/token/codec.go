// internal/pkg/token/codec.go
package token

import (
	"time"

	xerrors "notesaas-service/internal/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Codec encodes and decodes session tokens. Tokens are standard
// header.claims.signature JWTs, but the signature is a placeholder: Decode
// never verifies it and accepts any value in the third segment. Real signing
// and verification belong to a production identity provider, not this core.
type Codec struct {
	issuer string
	secret []byte
}

// placeholderKey signs outgoing tokens so they are well-formed three-segment
// strings. It carries no secrecy value and is never used to verify.
var placeholderKey = []byte("notesaas-placeholder-signature")

func NewCodec(issuer string) *Codec {
	return &Codec{issuer: issuer, secret: placeholderKey}
}

// Encode serializes claims into a three-segment token. Deterministic for a
// given claims value; no cryptographic guarantee.
func (c *Codec) Encode(claims *Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", xerrors.Wrap(err, "encode token")
	}
	return signed, nil
}

// Decode splits a token into its three segments and deserializes the claims
// segment. It fails with ErrMalformedToken when the segment count is not
// three or the claims segment is not well-formed. The signature segment is
// ignored entirely, and expiry is not checked here: the session store owns
// expiry handling.
func (c *Codec) Decode(raw string) (*Claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, &Claims{})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrMalformedToken, err.Error())
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, xerrors.ErrMalformedToken
	}
	return claims, nil
}

// Issue builds claims for a subject and encodes them. The jti is a fresh
// ULID; iat/exp are derived from now and ttl.
func (c *Codec) Issue(subject string, claims Claims, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subject,
		ID:        ulid.Make().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	raw, err := c.Encode(&claims)
	if err != nil {
		return "", nil, err
	}
	return raw, &claims, nil
}
