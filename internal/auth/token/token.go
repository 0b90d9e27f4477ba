// Package token implements the signed, expiring token authentication scheme.
//
// Signing and verification are delegated to JWS/JWT primitives; the rest of
// the pipeline treats tokens as opaque strings and works with the decoded
// Claims.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/minjoonchoi/httpgate/internal/observability"
)

// Common errors for token verification.
var (
	// ErrTokenInvalid indicates a malformed token or a bad signature.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrMissingSubject indicates a verified token without a subject claim.
	ErrMissingSubject = errors.New("token has no subject")
)

// refreshClaim marks refresh tokens so they cannot be presented as access
// tokens and vice versa.
const refreshClaim = "refresh"

// Claims carries the decoded identity of a verified token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Refresh   bool
	Extra     map[string]interface{}
}

// Config holds the externally supplied signing material and lifetimes.
type Config struct {
	SecretKey  string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service signs and verifies tokens.
type Service struct {
	secret []byte
	alg    jwa.SignatureAlgorithm
	access time.Duration
	refresh time.Duration
	logger observability.Logger
}

// ServiceOption is a functional option for the service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger observability.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a token service from configuration.
func NewService(cfg Config, opts ...ServiceOption) (*Service, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	alg := jwa.HS256
	if cfg.Algorithm != "" {
		alg = jwa.SignatureAlgorithm(cfg.Algorithm)
	}

	s := &Service{
		secret:  []byte(cfg.SecretKey),
		alg:     alg,
		access:  cfg.AccessTTL,
		refresh: cfg.RefreshTTL,
		logger:  observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccessToken creates a signed access token for the subject.
func (s *Service) IssueAccessToken(subject string, extra map[string]interface{}) (string, error) {
	return s.issue(subject, s.access, false, extra)
}

// IssueRefreshToken creates a signed refresh token for the subject.
func (s *Service) IssueRefreshToken(subject string) (string, error) {
	return s.issue(subject, s.refresh, true, nil)
}

func (s *Service) issue(subject string, ttl time.Duration, refresh bool, extra map[string]interface{}) (string, error) {
	now := time.Now()
	builder := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(now).
		Expiration(now.Add(ttl))

	if refresh {
		builder = builder.Claim(refreshClaim, true)
	}
	for k, v := range extra {
		builder = builder.Claim(k, v)
	}

	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(s.alg, s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify checks a token's signature and expiry and returns its claims. An
// expired token yields ErrTokenExpired; any other failure yields
// ErrTokenInvalid.
func (s *Service) Verify(ctx context.Context, raw string) (*Claims, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithContext(ctx),
		jwt.WithKey(s.alg, s.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, ErrTokenExpired
		}
		s.logger.Debug("token verification failed", observability.Error(err))
		return nil, ErrTokenInvalid
	}

	if tok.Subject() == "" {
		return nil, ErrMissingSubject
	}

	claims := &Claims{
		Subject:   tok.Subject(),
		ExpiresAt: tok.Expiration(),
		IssuedAt:  tok.IssuedAt(),
		Extra:     tok.PrivateClaims(),
	}
	if v, ok := claims.Extra[refreshClaim]; ok {
		refresh, _ := v.(bool)
		claims.Refresh = refresh
		delete(claims.Extra, refreshClaim)
	}
	return claims, nil
}

// VerifyRefresh verifies a token and requires it to be a refresh token.
func (s *Service) VerifyRefresh(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !claims.Refresh {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration {
	return s.access
}
