package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gnarlyhq/gnarly/core"
	"github.com/gnarlyhq/gnarly/core/user"
)

var newestFirst = core.DBOrdering{Field: "id"} // descending

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type dbUser struct {
	ID        int       `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (u dbUser) unmarshal() user.User {
	return user.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

// trapUniqueEmailErr maps the sqlite UNIQUE violation on users.email to user.ErrEmailExists.
func trapUniqueEmailErr(err error, msg string) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.ExecContext(ctx,
		"INSERT INTO users (email, name, created_at) VALUES (?, ?, ?)",
		usr.Email, usr.Name, usr.CreatedAt.UTC(),
	)
	if err != nil {
		return user.User{}, trapUniqueEmailErr(err, "inserting user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting inserted user id")
	}
	return repo.GetUserByID(ctx, int(id))
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []dbUser
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT id, email, name, created_at FROM users ORDER BY "+newestFirst.String())
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unmarshal())
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row dbUser
	err := repo.db.GetContext(ctx, &row,
		"SELECT id, email, name, created_at FROM users WHERE id = ?", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	return row.unmarshal(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE users SET email = ?, name = ? WHERE id = ?",
		usr.Email, usr.Name, usr.ID,
	)
	if err != nil {
		return user.User{}, trapUniqueEmailErr(err, "updating user")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return user.User{}, errors.Wrap(err, "counting updated users")
	}
	if cnt == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) DeleteUserByID(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting deleted users")
	}
	if cnt == 0 {
		return user.ErrNotFound
	}
	return nil
}
