package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/medibook/doctor-appointment-booking/internal/model"
)

// UserRepo provides data access to the users table.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the provided database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// GetByEmail loads a user by email.  Returns sql.ErrNoRows untouched so
// the auth handler can distinguish "no account" from other failures.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, public_id, name, email, phone, password_hash, created_at
               FROM users
               WHERE email = ?`
	var u model.User
	err := r.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.PublicID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user and populates ID and PublicID on the passed
// struct.  A duplicate email surfaces as ErrEmailTaken by inspecting the
// MySQL duplicate-key error code, so the handler does not need a prior
// existence check to race against.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.PublicID = uuid.NewString()
	const q = `INSERT INTO users (public_id, name, email, phone, password_hash, created_at)
               VALUES (?, ?, ?, ?, ?, UTC_TIMESTAMP())`
	res, err := r.db.ExecContext(ctx, q, u.PublicID, u.Name, u.Email, u.Phone, u.PasswordHash)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrEmailTaken
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}
