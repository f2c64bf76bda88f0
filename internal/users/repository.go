package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leaddesk/leaddesk/internal/platform/db"
	"github.com/leaddesk/leaddesk/internal/shared"
)

// ErrDuplicateEmail is returned when the email is already registered.
var ErrDuplicateEmail = errors.New("users: email already exists")

const userColumns = `id, name, email, mobile, designation, status, city_ids, category_ids, password_hash, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns users matching filter ordered by name.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter) ([]User, error) {
	var conditions []string
	var args []any
	if filter.Designation != "" {
		args = append(args, string(filter.Designation))
		conditions = append(conditions, fmt.Sprintf("designation = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + userColumns + ` FROM users`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GetUser fetches one user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return user, err
}

// CreateUser inserts user and returns the stored record.
func (r *Repository) CreateUser(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, mobile, designation, status, city_ids, category_ids, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		user.Name, user.Email, user.Mobile, string(user.Designation), string(user.Status),
		nonNil(user.CityIDs), nonNil(user.CategoryIDs), user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		if db.ConstraintViolated(err, "users_email_key") {
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return created, nil
}

// UpdateUser overwrites the mutable columns of user.
func (r *Repository) UpdateUser(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $2, mobile = $3, designation = $4, status = $5, city_ids = $6, category_ids = $7,
		    password_hash = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		user.ID, user.Name, user.Mobile, string(user.Designation), string(user.Status),
		nonNil(user.CityIDs), nonNil(user.CategoryIDs), user.PasswordHash)
	updated, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return updated, err
}

// ReplaceTargets swaps the targets of one user inside a transaction.
func (r *Repository) ReplaceTargets(ctx context.Context, userID int64, targets []Target) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, t := range targets {
			_, err := tx.Exec(ctx, `
				INSERT INTO user_targets (user_id, month, year, target, achievement)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id, month, year)
				DO UPDATE SET target = EXCLUDED.target, achievement = EXCLUDED.achievement`,
				userID, t.Month, t.Year, t.Target, t.Achievement)
			if err != nil {
				return fmt.Errorf("upsert target %d/%d: %w", t.Month, t.Year, err)
			}
		}
		return nil
	})
}

// ListTargets returns the targets of one user, newest first.
func (r *Repository) ListTargets(ctx context.Context, userID int64) ([]Target, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, month, year, target, achievement
		FROM user_targets WHERE user_id = $1
		ORDER BY year DESC, month DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var targets []Target
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.UserID, &t.Month, &t.Year, &t.Target, &t.Achievement); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user        User
		designation string
		status      string
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Mobile, &designation, &status,
		&user.CityIDs, &user.CategoryIDs, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	user.Designation = shared.Designation(designation)
	user.Status = Status(status)
	return user, nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
