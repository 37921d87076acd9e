package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/TIANLI0/TissueKit/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, username, email, password_hash, roles, created_at, last_login`

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u         model.User
		roles     []byte
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &roles, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(roles, &u.Roles); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// FindByUsername returns ErrNotFound when no such user exists.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`select `+userColumns+` from users where username = $1`, username))
}

// Exists reports whether username or email is already taken.
func (r *UserRepo) Exists(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	const q = `
select exists(select 1 from users where username = $1),
       exists(select 1 from users where email = $2)`
	err = r.DB.QueryRowContext(ctx, q, username, email).Scan(&usernameTaken, &emailTaken)
	return
}

// Create inserts u and fills in its id and creation time.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return err
	}
	const q = `
insert into users (username, email, password_hash, roles)
values ($1, $2, $3, $4)
returning id, created_at`
	return r.DB.QueryRowContext(ctx, q, u.Username, u.Email, u.PasswordHash, string(roles)).Scan(&u.ID, &u.CreatedAt)
}

func (r *UserRepo) TouchLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `update users set last_login = $2 where id = $1`, id, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
