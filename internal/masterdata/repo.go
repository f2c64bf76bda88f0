package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leaddesk/leaddesk/internal/platform/db"
	"github.com/leaddesk/leaddesk/internal/shared"
)

const foreignKeyViolation = "23503"

var (
	// ErrDuplicateName is returned when a lookup with the same name exists.
	ErrDuplicateName = errors.New("masterdata: duplicate name")
	// ErrInUse is returned when a lookup is still referenced by leads.
	ErrInUse = errors.New("masterdata: lookup in use")
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// table names come from Kind.table, never from input.
func (r *pgRepository) List(ctx context.Context, kind Kind) ([]Lookup, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT id, name, is_active, created_at, updated_at FROM %s ORDER BY name`, kind.table()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lookup
	for rows.Next() {
		var l Lookup
		if err := rows.Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, kind Kind, id int64) (Lookup, error) {
	var l Lookup
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT id, name, is_active, created_at, updated_at FROM %s WHERE id = $1`, kind.table()), id).
		Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lookup{}, shared.ErrNotFound
	}
	return l, err
}

func (r *pgRepository) Create(ctx context.Context, kind Kind, l Lookup) (Lookup, error) {
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (name, is_active) VALUES ($1, $2)
		RETURNING id, name, is_active, created_at, updated_at`, kind.table()), l.Name, l.IsActive).
		Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Lookup{}, mapWriteError(err)
	}
	return l, nil
}

func (r *pgRepository) Update(ctx context.Context, kind Kind, l Lookup) (Lookup, error) {
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s SET name = $2, is_active = $3, updated_at = NOW() WHERE id = $1
		RETURNING id, name, is_active, created_at, updated_at`, kind.table()), l.ID, l.Name, l.IsActive).
		Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lookup{}, shared.ErrNotFound
	}
	if err != nil {
		return Lookup{}, mapWriteError(err)
	}
	return l, nil
}

func (r *pgRepository) Delete(ctx context.Context, kind Kind, id int64) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, kind.table()), id)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case db.UniqueViolation:
			return ErrDuplicateName
		case foreignKeyViolation:
			return ErrInUse
		}
	}
	return err
}
