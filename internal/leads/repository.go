package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leaddesk/leaddesk/internal/platform/db"
	"github.com/leaddesk/leaddesk/internal/shared"
)

// MobileConstraint is the unique index on leads.mobile.
const MobileConstraint = "leads_mobile_key"

const leadColumns = `id, name, contact_person, mobile, remarks, city_id, category_id, source_id, status,
	follow_up_date, appointment_date, appoint_to, lead_by, created_by, visit_result, created_at, updated_at`

// Repository is the lead store.
type Repository interface {
	Lister
	Get(ctx context.Context, id int64) (Lead, error)
	Create(ctx context.Context, lead Lead) (Lead, error)
	Update(ctx context.Context, lead Lead) (Lead, error)
	Delete(ctx context.Context, id int64) error
	DueFollowUps(ctx context.Context, from, to time.Time) ([]Lead, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// List returns one page of leads matching q plus the total and per-status counts.
func (r *PGRepository) List(ctx context.Context, q Query) (Page, error) {
	where, args := q.Where(true)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+where, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count leads: %w", err)
	}

	counts, err := r.countByStatus(ctx, q)
	if err != nil {
		return Page{}, err
	}

	_, limit := shared.NormalizePage(q.Page, q.Limit)
	offset := shared.Offset(q.Page, q.Limit)
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		leadColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return Page{}, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return Page{}, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	return Page{Leads: leads, TotalCount: total, StatusCount: counts}, nil
}

func (r *PGRepository) countByStatus(ctx context.Context, q Query) (map[Status]int, error) {
	where, args := q.Where(false)
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM leads WHERE `+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Get fetches one lead.
func (r *PGRepository) Get(ctx context.Context, id int64) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// Create inserts lead and returns the stored row.
func (r *PGRepository) Create(ctx context.Context, lead Lead) (Lead, error) {
	visit, err := marshalVisit(lead.VisitResult)
	if err != nil {
		return Lead{}, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, contact_person, mobile, remarks, city_id, category_id, source_id, status,
			follow_up_date, appointment_date, appoint_to, lead_by, created_by, visit_result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+leadColumns,
		lead.Name, lead.ContactPerson, lead.Mobile, lead.Remarks, lead.CityID, lead.CategoryID, lead.SourceID,
		string(lead.Status), lead.FollowUpDate, lead.AppointmentDate, lead.AppointTo, lead.LeadBy, lead.CreatedBy, visit)
	created, err := scanLead(row)
	if err != nil {
		return Lead{}, mapWriteError(err)
	}
	return created, nil
}

// Update overwrites the editable columns of lead. lead_by and created_by are immutable.
func (r *PGRepository) Update(ctx context.Context, lead Lead) (Lead, error) {
	visit, err := marshalVisit(lead.VisitResult)
	if err != nil {
		return Lead{}, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET name = $2, contact_person = $3, mobile = $4, remarks = $5, city_id = $6,
			category_id = $7, source_id = $8, status = $9, follow_up_date = $10, appointment_date = $11,
			appoint_to = $12, visit_result = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING `+leadColumns,
		lead.ID, lead.Name, lead.ContactPerson, lead.Mobile, lead.Remarks, lead.CityID, lead.CategoryID,
		lead.SourceID, string(lead.Status), lead.FollowUpDate, lead.AppointmentDate, lead.AppointTo, visit)
	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, mapWriteError(err)
	}
	return updated, nil
}

// Delete removes the lead permanently.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DueFollowUps returns leads whose follow-up date falls in [from, to).
func (r *PGRepository) DueFollowUps(ctx context.Context, from, to time.Time) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads
		WHERE follow_up_date >= $1 AND follow_up_date < $2
		ORDER BY follow_up_date, id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func scanLead(row pgx.Row) (Lead, error) {
	var (
		lead   Lead
		status string
		visit  []byte
	)
	err := row.Scan(&lead.ID, &lead.Name, &lead.ContactPerson, &lead.Mobile, &lead.Remarks,
		&lead.CityID, &lead.CategoryID, &lead.SourceID, &status,
		&lead.FollowUpDate, &lead.AppointmentDate, &lead.AppointTo, &lead.LeadBy, &lead.CreatedBy,
		&visit, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return Lead{}, err
	}
	lead.Status = Status(status)
	if len(visit) > 0 {
		var v VisitResult
		if err := json.Unmarshal(visit, &v); err != nil {
			return Lead{}, fmt.Errorf("decode visit_result: %w", err)
		}
		lead.VisitResult = &v
	}
	return lead, nil
}

func marshalVisit(v *VisitResult) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func mapWriteError(err error) error {
	if db.ConstraintViolated(err, MobileConstraint) {
		return ErrDuplicateMobile
	}
	return err
}
