package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lifeloop/lifeloop/internal/auditctx"
	iauth "github.com/lifeloop/lifeloop/internal/auth"
	"github.com/lifeloop/lifeloop/pkg/errors"
	"github.com/lifeloop/lifeloop/pkg/response"
)

const (
	CtxIdentityKey  = "authIdentity"
	CtxUserIDKey    = "userID"
	CtxUserEmailKey = "userEmail"
)

// AuthOption customises the Auth middleware.
type AuthOption func(*authOptions)

type authOptions struct {
	unauthorized gin.HandlerFunc
}

// WithUnauthorizedHandler replaces the default JSON error body written when
// credentials are missing or invalid. The request is aborted afterwards.
func WithUnauthorizedHandler(handler gin.HandlerFunc) AuthOption {
	return func(o *authOptions) {
		if handler != nil {
			o.unauthorized = handler
		}
	}
}

func writeUnauthorized(c *gin.Context) {
	response.Error(c, errors.ErrUnauthorized)
}

// Auth verifies the bearer token, or the session cookie when cookieName is
// set and no Authorization header is present.
func Auth(verifier iauth.TokenVerifier, cookieName string, opts ...AuthOption) gin.HandlerFunc {
	options := authOptions{unauthorized: writeUnauthorized}
	for _, opt := range opts {
		opt(&options)
	}

	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && cookieName != "" {
			if value, err := c.Cookie(cookieName); err == nil {
				token = strings.TrimSpace(value)
			}
		}
		if token == "" || verifier == nil {
			c.Header("WWW-Authenticate", "Bearer")
			options.unauthorized(c)
			c.Abort()
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil || identity == nil || identity.UserID == "" {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			options.unauthorized(c)
			c.Abort()
			return
		}

		c.Set(CtxIdentityKey, identity)
		c.Set(CtxUserIDKey, identity.UserID)
		c.Set(CtxUserEmailKey, identity.Email)

		actor, _ := auditctx.FromContext(c.Request.Context())
		actor.UserID = identity.UserID
		actor.Email = identity.Email
		c.Request = c.Request.WithContext(auditctx.WithActor(c.Request.Context(), actor))

		c.Next()
	}
}

// Actor stores the client address and user agent for audit logging.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
