// Package http provides the gin HTTP surface: router, handlers, and
// middleware.
package http

import (
	"crypto/subtle"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apperrors "github.com/habitvault/habitvault/internal/errors"
	"github.com/habitvault/habitvault/internal/httputil"
	"github.com/habitvault/habitvault/internal/session"
)

// CustomLoggerMiddleware logs each request with its request id, method, path,
// status, and duration. Bodies are never logged: every payload in this system
// is user data.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("http request",
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// bearerToken extracts the Bearer token from the Authorization header.
// The "bearer" prefix is matched case-insensitively.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	const bearerPrefix = "bearer "
	if len(authHeader) <= len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	return authHeader[len(bearerPrefix):], true
}

// SessionAuthMiddleware authenticates requests via a session token in the
// Authorization header. Resolution fails closed: a missing header, malformed
// token, bad signature, expired session, or rotated signing key all produce
// the same 401.
func SessionAuthMiddleware(sessions *session.UseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		user, found, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}
		if !found {
			logger.Debug("authentication failed: invalid session token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))
		c.Next()
	}
}

// AdminAuthMiddleware guards operator endpoints with a static bearer token.
// With no token configured the endpoints are disabled outright.
func AdminAuthMiddleware(adminToken string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			logger.Warn("admin endpoint called but no admin token is configured")
			httputil.HandleErrorGin(c, apperrors.ErrNotFound, logger)
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
			logger.Debug("admin authentication failed")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
