package middlewares

import "context"

type ctxKey string

const (
	// gin context keys (string-keyed by gin convention)
	ctxUserIDKey = "auth.userID"
	ctxNameKey   = "auth.name"
	ctxEmailKey  = "auth.email"

	// request-context key for code below the HTTP layer
	KeyUserID ctxKey = "user_id"
)

func withActor(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, KeyUserID, id)
}
