package service

import (
	"context"

	"github.com/rmendes/userhub/internal/domain/user"
	"github.com/rmendes/userhub/internal/jobs"
	"github.com/rmendes/userhub/internal/utils"
)

// UserStore is the persistence boundary the services depend on. Satisfied by
// the postgres repo in production and the memory repo in tests.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
	UpdatePartial(ctx context.Context, id int64, p user.Patch) (user.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (user.User, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, limit int, after *utils.UserCursor) ([]user.User, error)
}

// JobEnqueuer hands async work to the delivery pipeline.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, j jobs.Job) error
}
