package actorctx

import (
	"context"

	"github.com/rmendes/userhub/internal/http/middlewares"
)

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, middlewares.KeyUserID, userID)
}

func UserIDFrom(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(middlewares.KeyUserID).(int64)

	return v, ok && v > 0
}
