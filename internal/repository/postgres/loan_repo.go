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

// LoanRepository is the pgx-backed implementation of domain.LoanRepository.
type LoanRepository struct {
	pool *pgxpool.Pool
}

func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `
	id, user_id, organization_id, name, original_amount, monthly_payment, interest_rate, total_payments,
	payments_made, remaining_balance, status, start_date, day_of_month, category_id, currency,
	original_currency, exchange_rate, created_at, updated_at`

func (r *LoanRepository) Create(ctx context.Context, dctx domain.DataContext, loan *domain.Loan) (*domain.Loan, error) {
	userID, orgID := dctx.Stamp()
	loan.ID = uuid.New()
	loan.UserID = userID
	loan.OrganizationID = orgID
	now := time.Now().UTC()
	loan.CreatedAt, loan.UpdatedAt = now, now

	q := `INSERT INTO loans (` + loanColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`
	_, err := r.pool.Exec(ctx, q,
		loan.ID, loan.UserID, loan.OrganizationID, loan.Name, decimalToPgNumeric(loan.OriginalAmount),
		decimalToPgNumeric(loan.MonthlyPayment), decimalToPgNumeric(loan.InterestRate), loan.TotalPayments,
		loan.PaymentsMade, decimalToPgNumeric(loan.RemainingBalance), loan.Status, loan.StartDate, loan.DayOfMonth,
		loan.CategoryID, loan.Currency, loan.OriginalCurrency, nullableDecimalToPgNumeric(loan.ExchangeRate),
		loan.CreatedAt, loan.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create loan", err)
	}
	return loan, nil
}

func (r *LoanRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Loan, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM loans WHERE id = $1 AND %s`, loanColumns, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{id}, args...)...)
	return scanLoan(row)
}

func (r *LoanRepository) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.Loan], error) {
	page = page.Normalize()
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM loans WHERE %s`, filter), args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.Loan]{}, domain.NewDependencyError("failed to count loans", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM loans WHERE %s ORDER BY start_date DESC LIMIT $%d OFFSET $%d`,
		loanColumns, filter, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.Loan]{}, domain.NewDependencyError("failed to list loans", err)
	}
	defer rows.Close()

	items := make([]domain.Loan, 0, page.PageSize)
	for rows.Next() {
		l, err := scanLoanRows(rows)
		if err != nil {
			return domain.PagedResult[domain.Loan]{}, err
		}
		items = append(items, *l)
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *LoanRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Loan) error) (*domain.Loan, error) {
	loan, err := r.Get(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch(loan); err != nil {
		return nil, err
	}
	return r.save(ctx, dctx, loan)
}

func (r *LoanRepository) save(ctx context.Context, dctx domain.DataContext, loan *domain.Loan) (*domain.Loan, error) {
	loan.UpdatedAt = time.Now().UTC()
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(9)
	q := fmt.Sprintf(`
		UPDATE loans SET name=$2, monthly_payment=$3, payments_made=$4, remaining_balance=$5, status=$6,
			category_id=$7, day_of_month=$8, updated_at=$9
		WHERE id=$1 AND %s`, filter)
	args := append([]any{loan.ID, loan.Name, decimalToPgNumeric(loan.MonthlyPayment), loan.PaymentsMade,
		decimalToPgNumeric(loan.RemainingBalance), loan.Status, loan.CategoryID, loan.DayOfMonth, loan.UpdatedAt}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to update loan", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

func (r *LoanRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM loans WHERE id=$1 AND %s`, filter)
	tag, err := r.pool.Exec(ctx, q, append([]any{id}, fargs...)...)
	if err != nil {
		return domain.NewDependencyError("failed to delete loan", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func (r *LoanRepository) ListActive(ctx context.Context, dctx domain.DataContext) ([]domain.Loan, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)
	q := fmt.Sprintf(`SELECT %s FROM loans WHERE status = 'active' AND %s ORDER BY start_date ASC`, loanColumns, filter)
	return queryLoans(ctx, r.pool, q, args...)
}

func (r *LoanRepository) ListDueOn(ctx context.Context, dctx domain.DataContext, day int) ([]domain.Loan, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM loans WHERE status = 'active' AND day_of_month = $1 AND %s ORDER BY start_date ASC`, loanColumns, filter)
	return queryLoans(ctx, r.pool, q, append([]any{day}, args...)...)
}

// LockForUpdate takes a row-level lock for the payment coordinator (§4.J),
// guaranteeing RecordPayment/ReversePayment read-modify-write is atomic
// under concurrent requests.
func (r *LoanRepository) LockForUpdate(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Loan, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM loans WHERE id = $1 AND %s FOR UPDATE`, loanColumns, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{id}, args...)...)
	return scanLoan(row)
}

func queryLoans(ctx context.Context, q Querier, sql string, args ...any) ([]domain.Loan, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to query loans", err)
	}
	defer rows.Close()
	var out []domain.Loan
	for rows.Next() {
		l, err := scanLoanRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var l domain.Loan
	var original, monthly, rate, remaining, exchangeRate pgtype.Numeric
	err := row.Scan(&l.ID, &l.UserID, &l.OrganizationID, &l.Name, &original, &monthly, &rate, &l.TotalPayments,
		&l.PaymentsMade, &remaining, &l.Status, &l.StartDate, &l.DayOfMonth, &l.CategoryID, &l.Currency,
		&l.OriginalCurrency, &exchangeRate, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, domain.NewDependencyError("failed to scan loan", err)
	}
	l.OriginalAmount = pgNumericToDecimal(original)
	l.MonthlyPayment = pgNumericToDecimal(monthly)
	l.InterestRate = pgNumericToDecimal(rate)
	l.RemainingBalance = pgNumericToDecimal(remaining)
	l.ExchangeRate = pgNumericToNullableDecimal(exchangeRate)
	return &l, nil
}

func scanLoanRows(rows pgx.Rows) (*domain.Loan, error) {
	var l domain.Loan
	var original, monthly, rate, remaining, exchangeRate pgtype.Numeric
	err := rows.Scan(&l.ID, &l.UserID, &l.OrganizationID, &l.Name, &original, &monthly, &rate, &l.TotalPayments,
		&l.PaymentsMade, &remaining, &l.Status, &l.StartDate, &l.DayOfMonth, &l.CategoryID, &l.Currency,
		&l.OriginalCurrency, &exchangeRate, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan loan", err)
	}
	l.OriginalAmount = pgNumericToDecimal(original)
	l.MonthlyPayment = pgNumericToDecimal(monthly)
	l.InterestRate = pgNumericToDecimal(rate)
	l.RemainingBalance = pgNumericToDecimal(remaining)
	l.ExchangeRate = pgNumericToNullableDecimal(exchangeRate)
	return &l, nil
}
