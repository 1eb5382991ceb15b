package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/tenancy"
)

// FixedScheduleRepository is the pgx-backed implementation of
// domain.FixedScheduleRepository.
type FixedScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewFixedScheduleRepository(pool *pgxpool.Pool) *FixedScheduleRepository {
	return &FixedScheduleRepository{pool: pool}
}

const fixedScheduleColumns = `
	id, user_id, organization_id, name, amount, currency, type, category_id, day_of_month, start_date,
	end_date, is_active, paused_at, resumed_at, created_at, updated_at`

func (r *FixedScheduleRepository) Create(ctx context.Context, dctx domain.DataContext, fs *domain.FixedSchedule) (*domain.FixedSchedule, error) {
	userID, orgID := dctx.Stamp()
	fs.ID = uuid.New()
	fs.UserID = userID
	fs.OrganizationID = orgID
	now := time.Now().UTC()
	fs.CreatedAt, fs.UpdatedAt = now, now

	q := `INSERT INTO fixed_schedules (` + fixedScheduleColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err := r.pool.Exec(ctx, q,
		fs.ID, fs.UserID, fs.OrganizationID, fs.Name, decimalToPgNumeric(fs.Amount), fs.Currency, fs.Type,
		fs.CategoryID, fs.DayOfMonth, fs.StartDate, fs.EndDate, fs.IsActive, fs.PausedAt, fs.ResumedAt,
		fs.CreatedAt, fs.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create fixed schedule", err)
	}
	return fs, nil
}

func (r *FixedScheduleRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.FixedSchedule, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM fixed_schedules WHERE id = $1 AND %s`, fixedScheduleColumns, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{id}, args...)...)
	return scanFixedSchedule(row)
}

func (r *FixedScheduleRepository) List(ctx context.Context, dctx domain.DataContext, activeOnly bool, page domain.Page) (domain.PagedResult[domain.FixedSchedule], error) {
	page = page.Normalize()
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)
	where := filter
	if activeOnly {
		where += " AND is_active = true"
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM fixed_schedules WHERE %s`, where), args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.FixedSchedule]{}, domain.NewDependencyError("failed to count fixed schedules", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM fixed_schedules WHERE %s ORDER BY day_of_month ASC LIMIT $%d OFFSET $%d`,
		fixedScheduleColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.FixedSchedule]{}, domain.NewDependencyError("failed to list fixed schedules", err)
	}
	defer rows.Close()

	items := make([]domain.FixedSchedule, 0, page.PageSize)
	for rows.Next() {
		fs, err := scanFixedScheduleRows(rows)
		if err != nil {
			return domain.PagedResult[domain.FixedSchedule]{}, err
		}
		items = append(items, *fs)
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *FixedScheduleRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.FixedSchedule) error) (*domain.FixedSchedule, error) {
	fs, err := r.Get(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch(fs); err != nil {
		return nil, err
	}
	fs.UpdatedAt = time.Now().UTC()

	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(10)
	q := fmt.Sprintf(`
		UPDATE fixed_schedules SET name=$2, amount=$3, currency=$4, category_id=$5, day_of_month=$6,
			end_date=$7, is_active=$8, paused_at=$9, updated_at=$10
		WHERE id=$1 AND %s`, filter)
	args := append([]any{fs.ID, fs.Name, decimalToPgNumeric(fs.Amount), fs.Currency, fs.CategoryID, fs.DayOfMonth,
		fs.EndDate, fs.IsActive, fs.PausedAt, fs.UpdatedAt}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to update fixed schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrFixedScheduleNotFound
	}
	return fs, nil
}

func (r *FixedScheduleRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM fixed_schedules WHERE id=$1 AND %s`, filter)
	tag, err := r.pool.Exec(ctx, q, append([]any{id}, fargs...)...)
	if err != nil {
		return domain.NewDependencyError("failed to delete fixed schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFixedScheduleNotFound
	}
	return nil
}

func (r *FixedScheduleRepository) ListActive(ctx context.Context, dctx domain.DataContext) ([]domain.FixedSchedule, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)
	q := fmt.Sprintf(`SELECT %s FROM fixed_schedules WHERE is_active = true AND %s ORDER BY day_of_month ASC`, fixedScheduleColumns, filter)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to list active fixed schedules", err)
	}
	defer rows.Close()
	var out []domain.FixedSchedule
	for rows.Next() {
		fs, err := scanFixedScheduleRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fs)
	}
	return out, nil
}

func (r *FixedScheduleRepository) ListDueOn(ctx context.Context, dctx domain.DataContext, day int) ([]domain.FixedSchedule, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM fixed_schedules WHERE is_active = true AND day_of_month = $1 AND %s ORDER BY name ASC`, fixedScheduleColumns, filter)
	rows, err := r.pool.Query(ctx, q, append([]any{day}, args...)...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to list due fixed schedules", err)
	}
	defer rows.Close()
	var out []domain.FixedSchedule
	for rows.Next() {
		fs, err := scanFixedScheduleRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fs)
	}
	return out, nil
}

func scanFixedSchedule(row pgx.Row) (*domain.FixedSchedule, error) {
	var fs domain.FixedSchedule
	var amount pgtype.Numeric
	err := row.Scan(&fs.ID, &fs.UserID, &fs.OrganizationID, &fs.Name, &amount, &fs.Currency, &fs.Type,
		&fs.CategoryID, &fs.DayOfMonth, &fs.StartDate, &fs.EndDate, &fs.IsActive, &fs.PausedAt, &fs.ResumedAt,
		&fs.CreatedAt, &fs.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFixedScheduleNotFound
		}
		return nil, domain.NewDependencyError("failed to scan fixed schedule", err)
	}
	fs.Amount = pgNumericToDecimal(amount)
	return &fs, nil
}

func scanFixedScheduleRows(rows pgx.Rows) (*domain.FixedSchedule, error) {
	var fs domain.FixedSchedule
	var amount pgtype.Numeric
	err := rows.Scan(&fs.ID, &fs.UserID, &fs.OrganizationID, &fs.Name, &amount, &fs.Currency, &fs.Type,
		&fs.CategoryID, &fs.DayOfMonth, &fs.StartDate, &fs.EndDate, &fs.IsActive, &fs.PausedAt, &fs.ResumedAt,
		&fs.CreatedAt, &fs.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan fixed schedule", err)
	}
	fs.Amount = pgNumericToDecimal(amount)
	return &fs, nil
}
