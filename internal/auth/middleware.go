package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const sessionKey = "auth.session"

// Authenticator resolves bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Session, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// session on the gin context for handlers.
func Middleware(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.String(http.StatusUnauthorized, ErrAuthRequired.Error())
			c.Abort()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		sess, err := a.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, ErrAuthRequired) {
				c.String(http.StatusUnauthorized, ErrAuthRequired.Error())
			} else if errors.Is(err, context.DeadlineExceeded) {
				c.String(http.StatusRequestTimeout, "session lookup timed out after 5 seconds")
			} else {
				c.String(http.StatusInternalServerError, "session lookup failed")
			}
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// SessionFrom returns the session stored by Middleware.
func SessionFrom(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok && sess != nil
}

// WithSession stores sess on the context. Handlers behind Middleware never need
// it; tests use it to skip token handling.
func WithSession(c *gin.Context, sess *Session) {
	c.Set(sessionKey, sess)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
