package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"docchat-server/internal/config"
)

const principalContextKey = "auth_principal"

// Principal is the authenticated user resolved from a verified token.
type Principal struct {
	ID       string
	Email    string
	Username string
}

// Validator validates JWTs using JWKS.
type Validator struct {
	cfg  *config.Config
	log  zerolog.Logger
	jwks *keyfunc.JWKS
}

// NewValidator starts background JWKS fetching for the configured endpoint.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   cfg.RefreshJWKSInterval,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, options)
	if err != nil {
		return nil, err
	}

	return &Validator{
		cfg:  cfg,
		log:  log,
		jwks: jwks,
	}, nil
}

// Middleware verifies the bearer token and resolves the request principal.
// Requests without a valid token are rejected before reaching handlers.
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		parserOpts := []jwt.ParserOption{
			jwt.WithIssuer(v.cfg.Issuer),
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
			jwt.WithLeeway(v.cfg.ClockSkew),
		}
		if v.cfg.Audience != "" {
			parserOpts = append(parserOpts, jwt.WithAudience(v.cfg.Audience))
		}

		token, err := jwt.Parse(tokenString, v.jwks.Keyfunc, parserOpts...)
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		principal, err := principalFromToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token claims")
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal set by Middleware.
func PrincipalFromContext(c *gin.Context) (*Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*Principal)
	if !ok {
		return nil, false
	}
	return principal, true
}

func principalFromToken(token *jwt.Token) (*Principal, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}

	principal := &Principal{ID: sub}
	if email, ok := claims["email"].(string); ok {
		principal.Email = email
	}
	if username, ok := claims["preferred_username"].(string); ok {
		principal.Username = username
	}
	return principal, nil
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
