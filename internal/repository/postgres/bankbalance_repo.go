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

// BankBalanceRepository is the pgx-backed implementation of
// domain.BankBalanceRepository.
type BankBalanceRepository struct {
	pool *pgxpool.Pool
}

func NewBankBalanceRepository(pool *pgxpool.Pool) *BankBalanceRepository {
	return &BankBalanceRepository{pool: pool}
}

const bankBalanceColumns = `
	id, user_id, organization_id, balance, currency, effective_date, is_current, notes, bank_account_id, created_at, updated_at`

// Create flips every other current row for the owner_scope to false in
// the same transaction, then inserts the new current snapshot.
func (r *BankBalanceRepository) Create(ctx context.Context, dctx domain.DataContext, bal *domain.BankBalance) (*domain.BankBalance, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, domain.NewDependencyError("failed to begin bank balance create", err)
	}
	defer tx.Rollback(ctx)

	userID, orgID := dctx.Stamp()
	bal.ID = uuid.New()
	bal.UserID = userID
	bal.OrganizationID = orgID
	bal.IsCurrent = true
	now := time.Now().UTC()
	bal.CreatedAt, bal.UpdatedAt = now, now

	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(0)
	if _, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE bank_balances SET is_current = false WHERE %s`, filter), fargs...); err != nil {
		return nil, domain.NewDependencyError("failed to clear current bank balance", err)
	}

	q := `INSERT INTO bank_balances (` + bankBalanceColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = tx.Exec(ctx, q, bal.ID, bal.UserID, bal.OrganizationID, decimalToPgNumeric(bal.Balance), bal.Currency,
		bal.EffectiveDate, bal.IsCurrent, bal.Notes, bal.BankAccountID, bal.CreatedAt, bal.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create bank balance", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewDependencyError("failed to commit bank balance create", err)
	}
	return bal, nil
}

func (r *BankBalanceRepository) GetCurrent(ctx context.Context, dctx domain.DataContext) (*domain.BankBalance, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)
	q := fmt.Sprintf(`SELECT %s FROM bank_balances WHERE is_current = true AND %s`, bankBalanceColumns, filter)
	row := r.pool.QueryRow(ctx, q, args...)
	return scanBankBalance(row)
}

func (r *BankBalanceRepository) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.BankBalance], error) {
	page = page.Normalize()
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM bank_balances WHERE %s`, filter), args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.BankBalance]{}, domain.NewDependencyError("failed to count bank balances", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM bank_balances WHERE %s ORDER BY effective_date DESC LIMIT $%d OFFSET $%d`,
		bankBalanceColumns, filter, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.BankBalance]{}, domain.NewDependencyError("failed to list bank balances", err)
	}
	defer rows.Close()

	items := make([]domain.BankBalance, 0, page.PageSize)
	for rows.Next() {
		b, err := scanBankBalanceRows(rows)
		if err != nil {
			return domain.PagedResult[domain.BankBalance]{}, err
		}
		items = append(items, *b)
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *BankBalanceRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM bank_balances WHERE id=$1 AND %s`, filter)
	tag, err := r.pool.Exec(ctx, q, append([]any{id}, fargs...)...)
	if err != nil {
		return domain.NewDependencyError("failed to delete bank balance", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBankBalanceNotFound
	}
	return nil
}

func scanBankBalance(row pgx.Row) (*domain.BankBalance, error) {
	var b domain.BankBalance
	var balance pgtype.Numeric
	err := row.Scan(&b.ID, &b.UserID, &b.OrganizationID, &balance, &b.Currency, &b.EffectiveDate, &b.IsCurrent,
		&b.Notes, &b.BankAccountID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBankBalanceNotFound
		}
		return nil, domain.NewDependencyError("failed to scan bank balance", err)
	}
	b.Balance = pgNumericToDecimal(balance)
	return &b, nil
}

func scanBankBalanceRows(rows pgx.Rows) (*domain.BankBalance, error) {
	var b domain.BankBalance
	var balance pgtype.Numeric
	err := rows.Scan(&b.ID, &b.UserID, &b.OrganizationID, &balance, &b.Currency, &b.EffectiveDate, &b.IsCurrent,
		&b.Notes, &b.BankAccountID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan bank balance", err)
	}
	b.Balance = pgNumericToDecimal(balance)
	return &b, nil
}

// ExpectedIncomeRepository is the pgx-backed implementation of
// domain.ExpectedIncomeRepository.
type ExpectedIncomeRepository struct {
	pool *pgxpool.Pool
}

func NewExpectedIncomeRepository(pool *pgxpool.Pool) *ExpectedIncomeRepository {
	return &ExpectedIncomeRepository{pool: pool}
}

const expectedIncomeColumns = `id, user_id, organization_id, month, expected_amount, notes, created_at, updated_at`

// Upsert is keyed on (owner_scope, month): an existing row for the same
// month is replaced rather than duplicated.
func (r *ExpectedIncomeRepository) Upsert(ctx context.Context, dctx domain.DataContext, ei *domain.ExpectedIncome) (*domain.ExpectedIncome, error) {
	userID, orgID := dctx.Stamp()
	now := time.Now().UTC()

	existing, err := r.GetForMonth(ctx, dctx, ei.Month)
	if err == nil {
		ei.ID = existing.ID
		ei.CreatedAt = existing.CreatedAt
		ei.UpdatedAt = now
		const q = `UPDATE expected_incomes SET expected_amount=$2, notes=$3, updated_at=$4 WHERE id=$1`
		_, err := r.pool.Exec(ctx, q, ei.ID, decimalToPgNumeric(ei.ExpectedAmount), ei.Notes, ei.UpdatedAt)
		if err != nil {
			return nil, domain.NewDependencyError("failed to update expected income", err)
		}
		return ei, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	ei.ID = uuid.New()
	ei.UserID = userID
	ei.OrganizationID = orgID
	ei.CreatedAt, ei.UpdatedAt = now, now
	q := `INSERT INTO expected_incomes (` + expectedIncomeColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err = r.pool.Exec(ctx, q, ei.ID, ei.UserID, ei.OrganizationID, ei.Month, decimalToPgNumeric(ei.ExpectedAmount),
		ei.Notes, ei.CreatedAt, ei.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create expected income", err)
	}
	return ei, nil
}

func isNotFound(err error) bool {
	de, ok := domain.AsDomainError(err)
	return ok && de.Kind == domain.KindNotFound
}

func (r *ExpectedIncomeRepository) GetForMonth(ctx context.Context, dctx domain.DataContext, month time.Time) (*domain.ExpectedIncome, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM expected_incomes WHERE month = $1 AND %s`, expectedIncomeColumns, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{month}, args...)...)
	return scanExpectedIncome(row)
}

func (r *ExpectedIncomeRepository) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.ExpectedIncome], error) {
	page = page.Normalize()
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM expected_incomes WHERE %s`, filter), args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.ExpectedIncome]{}, domain.NewDependencyError("failed to count expected incomes", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM expected_incomes WHERE %s ORDER BY month DESC LIMIT $%d OFFSET $%d`,
		expectedIncomeColumns, filter, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.ExpectedIncome]{}, domain.NewDependencyError("failed to list expected incomes", err)
	}
	defer rows.Close()

	items := make([]domain.ExpectedIncome, 0, page.PageSize)
	for rows.Next() {
		ei, err := scanExpectedIncomeRows(rows)
		if err != nil {
			return domain.PagedResult[domain.ExpectedIncome]{}, err
		}
		items = append(items, *ei)
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *ExpectedIncomeRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM expected_incomes WHERE id=$1 AND %s`, filter)
	tag, err := r.pool.Exec(ctx, q, append([]any{id}, fargs...)...)
	if err != nil {
		return domain.NewDependencyError("failed to delete expected income", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("expected income not found")
	}
	return nil
}

func scanExpectedIncome(row pgx.Row) (*domain.ExpectedIncome, error) {
	var e domain.ExpectedIncome
	var amount pgtype.Numeric
	err := row.Scan(&e.ID, &e.UserID, &e.OrganizationID, &e.Month, &amount, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("expected income not found")
		}
		return nil, domain.NewDependencyError("failed to scan expected income", err)
	}
	e.ExpectedAmount = pgNumericToDecimal(amount)
	return &e, nil
}

func scanExpectedIncomeRows(rows pgx.Rows) (*domain.ExpectedIncome, error) {
	var e domain.ExpectedIncome
	var amount pgtype.Numeric
	err := rows.Scan(&e.ID, &e.UserID, &e.OrganizationID, &e.Month, &amount, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan expected income", err)
	}
	e.ExpectedAmount = pgNumericToDecimal(amount)
	return &e, nil
}
