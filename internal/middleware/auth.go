package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minjoonchoi/httpgate/internal/auth/apikey"
	"github.com/minjoonchoi/httpgate/internal/auth/token"
	"github.com/minjoonchoi/httpgate/internal/observability"
	"github.com/minjoonchoi/httpgate/internal/pathmatch"
)

const bearerPrefix = "Bearer "

// Decision is the outcome of evaluating a request against the auth gate.
// When Allowed is false, Status, Detail and WWWAuthenticate describe the
// rejection response.
type Decision struct {
	Allowed         bool
	Claims          *token.Claims
	Status          int
	Detail          string
	WWWAuthenticate string
}

func allow(claims *token.Claims) Decision {
	return Decision{Allowed: true, Claims: claims}
}

func reject(detail string, challenge bool) Decision {
	d := Decision{Status: http.StatusUnauthorized, Detail: detail}
	if challenge {
		d.WWWAuthenticate = "Bearer"
	}
	return d
}

// AuthGateConfig holds configuration for the authentication gate.
type AuthGateConfig struct {
	APIKey           *apikey.Validator
	APIKeyPrefix     string
	APIKeyExclusions *pathmatch.ExclusionList
	Tokens           *token.Service
	JWTEnabled       bool
	JWTExclusions    *pathmatch.ExclusionList
	Logger           observability.Logger
}

// AuthGate evaluates requests against the configured API key and bearer
// token schemes. A scheme applies only where it is enabled and the path is
// not excluded for it. A bare request passes unless some scheme applies; a
// request carrying an Authorization header must be accepted by an
// applicable scheme, or the header is rejected as malformed.
type AuthGate struct {
	apiKey           *apikey.Validator
	apiKeyPrefix     string
	apiKeyExclusions *pathmatch.ExclusionList
	tokens           *token.Service
	jwtEnabled       bool
	jwtExclusions    *pathmatch.ExclusionList
	logger           observability.Logger
}

// NewAuthGate creates an authentication gate.
func NewAuthGate(cfg AuthGateConfig) *AuthGate {
	if cfg.Logger == nil {
		cfg.Logger = observability.GetGlobalLogger()
	}
	if cfg.APIKeyExclusions == nil {
		cfg.APIKeyExclusions = pathmatch.NewExclusionList(nil, nil)
	}
	if cfg.JWTExclusions == nil {
		cfg.JWTExclusions = pathmatch.NewExclusionList(nil, nil)
	}
	prefix := cfg.APIKeyPrefix
	if prefix == "" {
		prefix = "ApiKey "
	}
	return &AuthGate{
		apiKey:           cfg.APIKey,
		apiKeyPrefix:     prefix,
		apiKeyExclusions: cfg.APIKeyExclusions,
		tokens:           cfg.Tokens,
		jwtEnabled:       cfg.JWTEnabled && cfg.Tokens != nil,
		jwtExclusions:    cfg.JWTExclusions,
		logger:           cfg.Logger,
	}
}

// Evaluate decides whether a request with the given path and Authorization
// header value may proceed. Every combination of scheme state, exclusion
// state and header shape maps to exactly one decision.
func (g *AuthGate) Evaluate(ctx context.Context, path, authorization string) Decision {
	apiKeyEnabled := g.apiKey != nil && g.apiKey.Enabled()
	jwtEnabled := g.jwtEnabled

	if !apiKeyEnabled && !jwtEnabled {
		return allow(nil)
	}

	apiKeyExcluded := g.apiKeyExclusions.IsExcluded(path)
	jwtExcluded := g.jwtExclusions.IsExcluded(path)

	apiKeyRequired := apiKeyEnabled && !apiKeyExcluded
	jwtRequired := jwtEnabled && !jwtExcluded

	if authorization == "" {
		if apiKeyRequired {
			return reject("API key or access token required.", false)
		}
		if jwtRequired {
			return reject("API key or access token required.", true)
		}
		return allow(nil)
	}

	// Each scheme only applies where it is required; a credential on an
	// excluded path falls through to the malformed-header rejection, even
	// when its own scheme would have accepted it elsewhere.
	if apiKeyRequired && strings.HasPrefix(authorization, g.apiKeyPrefix) {
		key := authorization[len(g.apiKeyPrefix):]
		if err := g.apiKey.Validate(key); err != nil {
			g.logger.Warn("api key rejected",
				observability.String("path", path),
				observability.Error(err),
			)
			return reject("Invalid API key.", false)
		}
		return allow(nil)
	}

	if jwtRequired && strings.HasPrefix(authorization, bearerPrefix) {
		raw := authorization[len(bearerPrefix):]
		claims, err := g.tokens.Verify(ctx, raw)
		if err != nil {
			g.logger.Warn("bearer token rejected",
				observability.String("path", path),
				observability.Error(err),
			)
			return reject("Invalid or expired credentials.", true)
		}
		return allow(claims)
	}

	return g.rejectMalformed(apiKeyEnabled, jwtEnabled)
}

// rejectMalformed rejects an Authorization header whose prefix matches no
// enabled scheme, naming the acceptable prefixes.
func (g *AuthGate) rejectMalformed(apiKeyEnabled, jwtEnabled bool) Decision {
	keyPrefix := strings.TrimSpace(g.apiKeyPrefix)
	switch {
	case apiKeyEnabled && jwtEnabled:
		return reject(fmt.Sprintf(
			"Invalid Authorization header format. Use the '%s' or 'Bearer' prefix.", keyPrefix), true)
	case apiKeyEnabled:
		return reject(fmt.Sprintf(
			"Invalid Authorization header format. Use the '%s' prefix.", keyPrefix), false)
	default:
		return reject("Invalid Authorization header format. Use the 'Bearer' prefix.", true)
	}
}

// Middleware returns the gin handler enforcing the gate. Verified bearer
// claims are attached to the request context for downstream handlers.
func (g *AuthGate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := g.Evaluate(c.Request.Context(), c.Request.URL.Path, c.GetHeader("Authorization"))
		if !decision.Allowed {
			if decision.WWWAuthenticate != "" {
				c.Header("WWW-Authenticate", decision.WWWAuthenticate)
			}
			c.AbortWithStatusJSON(decision.Status, gin.H{"detail": decision.Detail})
			return
		}
		if decision.Claims != nil {
			ctx := token.ContextWithClaims(c.Request.Context(), decision.Claims)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
