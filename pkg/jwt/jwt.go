package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims are the claims of a user access token issued by the auth provider.
// Subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	gojwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens with a shared secret.
type Service struct {
	key    []byte
	parser *gojwt.Parser
}

// Option configures token verification.
type Option func(*serviceOptions)

type serviceOptions struct {
	audience string
	issuer   string
	leeway   time.Duration
	now      func() time.Time
}

// WithAudience requires tokens to carry aud.
func WithAudience(aud string) Option {
	return func(o *serviceOptions) { o.audience = aud }
}

// WithIssuer requires tokens to carry iss.
func WithIssuer(iss string) Option {
	return func(o *serviceOptions) { o.issuer = iss }
}

// WithLeeway tolerates clock skew on exp, nbf and iat.
func WithLeeway(d time.Duration) Option {
	return func(o *serviceOptions) { o.leeway = d }
}

// WithTimeFunc replaces time.Now during validation.
func WithTimeFunc(now func() time.Time) Option {
	return func(o *serviceOptions) { o.now = now }
}

// New creates a Service for the given secret.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	o := &serviceOptions{}
	for _, opt := range opts {
		opt(o)
	}

	parserOpts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithLeeway(o.leeway),
	}
	if o.audience != "" {
		parserOpts = append(parserOpts, gojwt.WithAudience(o.audience))
	}
	if o.issuer != "" {
		parserOpts = append(parserOpts, gojwt.WithIssuer(o.issuer))
	}
	if o.now != nil {
		parserOpts = append(parserOpts, gojwt.WithTimeFunc(o.now))
	}

	return &Service{
		key:    signingKey,
		parser: gojwt.NewParser(parserOpts...),
	}, nil
}

// NewFromString is New for string secrets.
func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Generate signs claims with HS256.
func (s *Service) Generate(claims Claims) (string, error) {
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Parse verifies the token and returns its claims. Tokens without a subject
// or expiry are rejected.
func (s *Service) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gojwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrExpiredToken)
		case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrInvalidSignature)
		default:
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w: missing subject", ErrInvalidToken, ErrInvalidClaims)
	}
	return claims, nil
}
