package http

import (
	"context"

	userDomain "github.com/habitvault/habitvault/internal/user/domain"
)

type contextKey string

const userContextKey contextKey = "user"

// WithUser stores the authenticated user in the request context.
func WithUser(ctx context.Context, user userDomain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUser returns the authenticated user from the request context.
func GetUser(ctx context.Context) (userDomain.User, bool) {
	user, ok := ctx.Value(userContextKey).(userDomain.User)
	return user, ok
}
