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

// InstallmentRepository is the pgx-backed implementation of
// domain.InstallmentRepository.
type InstallmentRepository struct {
	pool *pgxpool.Pool
}

func NewInstallmentRepository(pool *pgxpool.Pool) *InstallmentRepository {
	return &InstallmentRepository{pool: pool}
}

const installmentColumns = `
	id, user_id, organization_id, name, total_amount, number_of_payments, payments_completed, type,
	category_id, start_date, day_of_month, currency, original_amount, original_currency, exchange_rate,
	created_at, updated_at`

func (r *InstallmentRepository) Create(ctx context.Context, dctx domain.DataContext, inst *domain.Installment) (*domain.Installment, error) {
	userID, orgID := dctx.Stamp()
	inst.ID = uuid.New()
	inst.UserID = userID
	inst.OrganizationID = orgID
	now := time.Now().UTC()
	inst.CreatedAt, inst.UpdatedAt = now, now

	q := `INSERT INTO installments (` + installmentColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err := r.pool.Exec(ctx, q,
		inst.ID, inst.UserID, inst.OrganizationID, inst.Name, decimalToPgNumeric(inst.TotalAmount),
		inst.NumberOfPayments, inst.PaymentsCompleted, inst.Type, inst.CategoryID, inst.StartDate, inst.DayOfMonth,
		inst.Currency, nullableDecimalToPgNumeric(inst.OriginalAmount), inst.OriginalCurrency,
		nullableDecimalToPgNumeric(inst.ExchangeRate), inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create installment", err)
	}
	return inst, nil
}

func (r *InstallmentRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Installment, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM installments WHERE id = $1 AND %s`, installmentColumns, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{id}, args...)...)
	return scanInstallment(row)
}

func (r *InstallmentRepository) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.Installment], error) {
	page = page.Normalize()
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM installments WHERE %s`, filter), args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.Installment]{}, domain.NewDependencyError("failed to count installments", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM installments WHERE %s ORDER BY start_date DESC LIMIT $%d OFFSET $%d`,
		installmentColumns, filter, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.Installment]{}, domain.NewDependencyError("failed to list installments", err)
	}
	defer rows.Close()

	items := make([]domain.Installment, 0, page.PageSize)
	for rows.Next() {
		inst, err := scanInstallmentRows(rows)
		if err != nil {
			return domain.PagedResult[domain.Installment]{}, err
		}
		items = append(items, *inst)
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *InstallmentRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Installment) error) (*domain.Installment, error) {
	inst, err := r.Get(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch(inst); err != nil {
		return nil, err
	}
	return r.save(ctx, dctx, inst)
}

func (r *InstallmentRepository) save(ctx context.Context, dctx domain.DataContext, inst *domain.Installment) (*domain.Installment, error) {
	inst.UpdatedAt = time.Now().UTC()
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(7)
	q := fmt.Sprintf(`
		UPDATE installments SET name=$2, payments_completed=$3, category_id=$4, day_of_month=$5, currency=$6, updated_at=$7
		WHERE id=$1 AND %s`, filter)
	args := append([]any{inst.ID, inst.Name, inst.PaymentsCompleted, inst.CategoryID, inst.DayOfMonth, inst.Currency, inst.UpdatedAt}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to update installment", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrInstallmentNotFound
	}
	return inst, nil
}

func (r *InstallmentRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM installments WHERE id=$1 AND %s`, filter)
	tag, err := r.pool.Exec(ctx, q, append([]any{id}, fargs...)...)
	if err != nil {
		return domain.NewDependencyError("failed to delete installment", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInstallmentNotFound
	}
	return nil
}

func (r *InstallmentRepository) ListOutstanding(ctx context.Context, dctx domain.DataContext) ([]domain.Installment, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)
	q := fmt.Sprintf(`SELECT %s FROM installments WHERE payments_completed < number_of_payments AND %s ORDER BY start_date ASC`, installmentColumns, filter)
	return queryInstallments(ctx, r.pool, q, args...)
}

func (r *InstallmentRepository) ListDueOn(ctx context.Context, dctx domain.DataContext, day int) ([]domain.Installment, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM installments WHERE payments_completed < number_of_payments AND day_of_month = $1 AND %s ORDER BY start_date ASC`, installmentColumns, filter)
	return queryInstallments(ctx, r.pool, q, append([]any{day}, args...)...)
}

// LockForUpdate takes a row-level lock for the payment coordinator (§4.J).
func (r *InstallmentRepository) LockForUpdate(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Installment, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM installments WHERE id = $1 AND %s FOR UPDATE`, installmentColumns, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{id}, args...)...)
	return scanInstallment(row)
}

func queryInstallments(ctx context.Context, q Querier, sql string, args ...any) ([]domain.Installment, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to query installments", err)
	}
	defer rows.Close()
	var out []domain.Installment
	for rows.Next() {
		inst, err := scanInstallmentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inst)
	}
	return out, nil
}

func scanInstallment(row pgx.Row) (*domain.Installment, error) {
	var i domain.Installment
	var total, original, exchangeRate pgtype.Numeric
	err := row.Scan(&i.ID, &i.UserID, &i.OrganizationID, &i.Name, &total, &i.NumberOfPayments, &i.PaymentsCompleted,
		&i.Type, &i.CategoryID, &i.StartDate, &i.DayOfMonth, &i.Currency, &original, &i.OriginalCurrency,
		&exchangeRate, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInstallmentNotFound
		}
		return nil, domain.NewDependencyError("failed to scan installment", err)
	}
	i.TotalAmount = pgNumericToDecimal(total)
	i.OriginalAmount = pgNumericToNullableDecimal(original)
	i.ExchangeRate = pgNumericToNullableDecimal(exchangeRate)
	return &i, nil
}

func scanInstallmentRows(rows pgx.Rows) (*domain.Installment, error) {
	var i domain.Installment
	var total, original, exchangeRate pgtype.Numeric
	err := rows.Scan(&i.ID, &i.UserID, &i.OrganizationID, &i.Name, &total, &i.NumberOfPayments, &i.PaymentsCompleted,
		&i.Type, &i.CategoryID, &i.StartDate, &i.DayOfMonth, &i.Currency, &original, &i.OriginalCurrency,
		&exchangeRate, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan installment", err)
	}
	i.TotalAmount = pgNumericToDecimal(total)
	i.OriginalAmount = pgNumericToNullableDecimal(original)
	i.ExchangeRate = pgNumericToNullableDecimal(exchangeRate)
	return &i, nil
}
