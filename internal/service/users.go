package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rmendes/userhub/internal/actorctx"
	"github.com/rmendes/userhub/internal/domain/user"
	"github.com/rmendes/userhub/internal/security"
	"github.com/rmendes/userhub/internal/utils"
)

// ErrBadCursor rejects malformed pagination cursors.
var ErrBadCursor = errors.New("invalid list cursor")

// UsersService is the admin-facing CRUD over the user store. Passwords are
// hashed here so no plaintext ever reaches a repo.
type UsersService struct {
	users UserStore
	log   *slog.Logger
}

func NewUsersService(users UserStore, log *slog.Logger) *UsersService {
	return &UsersService{users: users, log: log}
}

type CreateInput struct {
	Email     string
	Name      string
	Password  string
	Role      string
	BirthDate *time.Time
}

type UpdateInput struct {
	Email     string
	Name      string
	Password  string
	Role      string
	BirthDate *time.Time
}

type PatchInput struct {
	Email     *string
	Name      *string
	Password  *string
	Role      *string
	BirthDate *time.Time
}

func (s *UsersService) Create(ctx context.Context, in CreateInput) (user.User, error) {
	role := in.Role

	if role == "" {
		role = user.RoleUser
	}

	hash, err := security.HashPassword(in.Password)

	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.Create(ctx, user.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         role,
		BirthDate:    in.BirthDate,
	})

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, ErrConflict
		}

		return user.User{}, err
	}

	s.logActor(ctx, "user created", u.ID)

	return u, nil
}

// List pages users; cursor is opaque to callers.
func (s *UsersService) List(ctx context.Context, limit int, cursor string) ([]user.User, string, error) {
	var after *utils.UserCursor

	if cursor != "" {
		c, err := utils.DecodeUserCursor(cursor)

		if err != nil {
			return nil, "", ErrBadCursor
		}

		after = &c
	}

	items, err := s.users.List(ctx, limit, after)

	if err != nil {
		return nil, "", err
	}

	next := ""

	if limit > 0 && len(items) == limit {
		last := items[len(items)-1]
		next, err = utils.EncodeUserCursor(last.CreatedAt, last.ID)

		if err != nil {
			return nil, "", err
		}
	}

	return items, next, nil
}

func (s *UsersService) Show(ctx context.Context, id int64) (user.User, error) {
	u, err := s.users.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// Update is full replacement; the password is always re-hashed.
func (s *UsersService) Update(ctx context.Context, id int64, in UpdateInput) (user.User, error) {
	exists, err := s.users.Exists(ctx, id)

	if err != nil {
		return user.User{}, err
	}

	if !exists {
		return user.User{}, ErrNotFound
	}

	hash, err := security.HashPassword(in.Password)

	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.Update(ctx, user.User{
		ID:           id,
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         in.Role,
		BirthDate:    in.BirthDate,
	})

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return user.User{}, ErrNotFound
		case errors.Is(err, user.ErrEmailTaken):
			return user.User{}, ErrConflict
		}

		return user.User{}, err
	}

	s.logActor(ctx, "user updated", id)

	return u, nil
}

// UpdatePartial hashes the password only when the patch carries one.
func (s *UsersService) UpdatePartial(ctx context.Context, id int64, in PatchInput) (user.User, error) {
	patch := user.Patch{
		Email:     in.Email,
		Name:      in.Name,
		Role:      in.Role,
		BirthDate: in.BirthDate,
	}

	if in.Password != nil {
		hash, err := security.HashPassword(*in.Password)

		if err != nil {
			return user.User{}, err
		}

		patch.PasswordHash = &hash
	}

	u, err := s.users.UpdatePartial(ctx, id, patch)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			return user.User{}, ErrNotFound
		case errors.Is(err, user.ErrEmailTaken):
			return user.User{}, ErrConflict
		}

		return user.User{}, err
	}

	s.logActor(ctx, "user patched", id)

	return u, nil
}

func (s *UsersService) Delete(ctx context.Context, id int64) error {
	err := s.users.Delete(ctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrNotFound
		}

		return err
	}

	s.logActor(ctx, "user deleted", id)

	return nil
}

func (s *UsersService) logActor(ctx context.Context, msg string, subjectID int64) {
	actor, ok := actorctx.UserIDFrom(ctx)

	if !ok {
		actor = 0
	}

	s.log.InfoContext(ctx, msg, "subject_id", subjectID, "actor_id", actor)
}
