package repository

import (
	"context"
	"database/sql"
	"errors"
	"pharmacy-api/common"
	"pharmacy-api/model"

	"github.com/lib/pq"
)

// IUserRepository defines the contract for user database operations.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int) (*model.User, error)
	GetAllUsers(ctx context.Context) ([]*model.User, error)
	UpdateUserRole(ctx context.Context, userID int, newRole string) error
	UpdateLastLogin(ctx context.Context, userID int) error
	UpdateProfile(ctx context.Context, userID int, fullName, email string) (*model.User, error)
	SetEmailVerified(ctx context.Context, userID int) error
}

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, full_name, email, password, role, status, is_email_verified, last_login, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var lastLogin sql.NullTime
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.Password,
		&user.Role, &user.Status, &user.IsEmailVerified, &lastLogin,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (full_name, email, password, role, status)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, is_email_verified, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, user.FullName, user.Email, user.Password, user.Role, user.Status).
		Scan(&user.ID, &user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return common.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	return user, err
}

func (r *UserRepository) GetAllUsers(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user := &model.User{}
		var lastLogin sql.NullTime
		if err := rows.Scan(&user.ID, &user.FullName, &user.Email, &user.Password,
			&user.Role, &user.Status, &user.IsEmailVerified, &lastLogin,
			&user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			user.LastLogin = &lastLogin.Time
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateUserRole(ctx context.Context, userID int, newRole string) error {
	query := `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, query, newRole, userID)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return common.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int) error {
	query := `UPDATE users SET last_login = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, userID)
	return err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID int, fullName, email string) (*model.User, error) {
	query := `UPDATE users
	          SET full_name = COALESCE(NULLIF($1, ''), full_name),
	              email = COALESCE(NULLIF($2, ''), email),
	              updated_at = NOW()
	          WHERE id = $3
	          RETURNING ` + userColumns
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, fullName, email, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, common.ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) SetEmailVerified(ctx context.Context, userID int) error {
	query := `UPDATE users SET is_email_verified = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.DB.ExecContext(ctx, query, userID)
	return err
}
