package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmendes/userhub/internal/domain/user"
	"github.com/rmendes/userhub/internal/observability"
	"github.com/rmendes/userhub/internal/utils"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, name, role, birth_date, created_at, updated_at`

type UsersRepo struct {
	pool    *pgxpool.Pool
	metrics *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

// WithMetrics attaches a Prometheus sink; DB ops are then observed per logical op.
func (r *UsersRepo) WithMetrics(p *observability.Prom) *UsersRepo {
	r.metrics = p
	return r
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.metrics == nil {
		return fn()
	}

	return r.metrics.ObserveDB(op, fn)
}

func scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.BirthDate,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		row := r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		)
		return scanUser(row, &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		row := r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		)
		return scanUser(row, &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// Create inserts a new user; the id and timestamps come back from the database.
// The unique-email constraint is the only duplicate guard (no app-level lock).
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		row := r.pool.QueryRow(
			ctx,
			`INSERT INTO users (email, password_hash, name, role, birth_date)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+userColumns,
			u.Email, u.PasswordHash, u.Name, u.Role, u.BirthDate,
		)
		return scanUser(row, &u)
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// Update replaces every mutable column (PUT semantics).
func (r *UsersRepo) Update(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.update", func() error {
		row := r.pool.QueryRow(
			ctx,
			`UPDATE users
			 SET email = $2, password_hash = $3, name = $4, role = $5, birth_date = $6, updated_at = now()
			 WHERE id = $1
			 RETURNING `+userColumns,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.BirthDate,
		)
		return scanUser(row, &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// UpdatePartial applies only the non-nil fields of the patch.
func (r *UsersRepo) UpdatePartial(ctx context.Context, id int64, p user.Patch) (user.User, error) {
	var u user.User

	err := r.observe("users.update_partial", func() error {
		row := r.pool.QueryRow(
			ctx,
			`UPDATE users
			 SET email = COALESCE($2, email),
			     password_hash = COALESCE($3, password_hash),
			     name = COALESCE($4, name),
			     role = COALESCE($5, role),
			     birth_date = COALESCE($6, birth_date),
			     updated_at = now()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, p.Email, p.PasswordHash, p.Name, p.Role, p.BirthDate,
		)
		return scanUser(row, &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) (user.User, error) {
	var u user.User

	err := r.observe("users.update_password", func() error {
		row := r.pool.QueryRow(
			ctx,
			`UPDATE users
			 SET password_hash = $2, updated_at = now()
			 WHERE id = $1
			 RETURNING `+userColumns,
			id, passwordHash,
		)
		return scanUser(row, &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id int64) error {
	return r.observe("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}

func (r *UsersRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool

	err := r.observe("users.exists", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`,
			id,
		).Scan(&exists)
	})

	if err != nil {
		return false, err
	}

	return exists, nil
}

// List pages users with a keyset cursor on (created_at, id).
func (r *UsersRepo) List(ctx context.Context, limit int, after *utils.UserCursor) ([]user.User, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1`
	args := []any{limit}

	if after != nil {
		query = `SELECT ` + userColumns + ` FROM users
		 WHERE (created_at, id) > ($2, $3)
		 ORDER BY created_at, id LIMIT $1`
		args = append(args, after.CreatedAt, after.ID)
	}

	var out []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u user.User
			if err := scanUser(rows, &u); err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}
