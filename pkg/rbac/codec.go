package rbac

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of tokens minted by Issue.
const DefaultTokenTTL = 12 * time.Hour

// Codec signs and verifies session tokens with a shared HMAC secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

func WithTokenTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCodecClock replaces time.Now for both signing and verification.
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	c := &Codec{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// Issue signs a token for s that expires after the codec TTL.
func (c *Codec) Issue(s Session) (string, error) {
	if !s.Role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s.Role)
	}
	now := c.now()
	claims := Claims{
		Role:          string(s.Role),
		AssociationID: s.AssociationID,
		Email:         s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// Parse verifies raw and returns its session. A manager session must name
// an association.
func (c *Codec) Parse(raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, ErrNoSession
	}

	var claims Claims
	_, err := c.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	s := Session{
		Role:          Role(strings.TrimSpace(claims.Role)),
		AssociationID: strings.TrimSpace(claims.AssociationID),
		Email:         strings.TrimSpace(claims.Email),
	}
	switch {
	case s.Role == "":
		return Session{}, fmt.Errorf("%w: missing role", ErrInvalidSession)
	case !s.Role.Valid():
		return Session{}, fmt.Errorf("%w: %q", ErrUnknownRole, s.Role)
	case s.Role == RoleManager && s.AssociationID == "":
		return Session{}, fmt.Errorf("%w: manager without association", ErrInvalidSession)
	}
	return s, nil
}
