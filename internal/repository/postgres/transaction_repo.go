package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"fortunaflow/internal/domain"
	"fortunaflow/internal/tenancy"
)

// TransactionRepository is the pgx-backed implementation of
// domain.TransactionRepository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `
	id, user_id, organization_id, amount, currency, type, category_id, description, date, entry_pattern,
	is_recurring, recurring_source_id, installment_id, installment_number, loan_id, credit_card_id, bank_account_id,
	original_amount, original_currency, exchange_rate, created_at, updated_at`

func (r *TransactionRepository) Create(ctx context.Context, dctx domain.DataContext, txn *domain.Transaction) (*domain.Transaction, error) {
	userID, orgID := dctx.Stamp()
	txn.ID = uuid.New()
	txn.UserID = userID
	txn.OrganizationID = orgID
	now := time.Now().UTC()
	txn.CreatedAt, txn.UpdatedAt = now, now

	q := `INSERT INTO transactions (` + transactionColumns + `) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`
	_, err := r.pool.Exec(ctx, q,
		txn.ID, txn.UserID, txn.OrganizationID, decimalToPgNumeric(txn.Amount), txn.Currency, txn.Type, txn.CategoryID,
		txn.Description, txn.Date, txn.EntryPattern, txn.IsRecurring, txn.RecurringSourceID, txn.InstallmentID,
		txn.InstallmentNumber, txn.LoanID, txn.CreditCardID, txn.BankAccountID,
		nullableDecimalToPgNumeric(txn.OriginalAmount), txn.OriginalCurrency, nullableDecimalToPgNumeric(txn.ExchangeRate),
		txn.CreatedAt, txn.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create transaction", err)
	}
	return txn, nil
}

func (r *TransactionRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Transaction, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1 AND %s`, transactionColumns, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{id}, args...)...)
	return scanTransaction(row)
}

func (r *TransactionRepository) List(ctx context.Context, dctx domain.DataContext, filter domain.TransactionFilter, page domain.Page) (domain.PagedResult[domain.Transaction], error) {
	page = page.Normalize()
	where, args := filterClauses(dctx, filter)

	var total int
	countQ := fmt.Sprintf(`SELECT count(*) FROM transactions WHERE %s`, strings.Join(where, " AND "))
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.Transaction]{}, domain.NewDependencyError("failed to count transactions", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, strings.Join(where, " AND "), len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.Transaction]{}, domain.NewDependencyError("failed to list transactions", err)
	}
	defer rows.Close()

	items := make([]domain.Transaction, 0, page.PageSize)
	for rows.Next() {
		t, err := scanTransactionRows(rows)
		if err != nil {
			return domain.PagedResult[domain.Transaction]{}, err
		}
		items = append(items, *t)
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *TransactionRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Transaction) error) (*domain.Transaction, error) {
	txn, err := r.Get(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch(txn); err != nil {
		return nil, err
	}
	txn.UpdatedAt = time.Now().UTC()

	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(8)
	q := fmt.Sprintf(`
		UPDATE transactions SET amount=$2, currency=$3, type=$4, category_id=$5, description=$6, date=$7, updated_at=$8
		WHERE id=$1 AND %s`, filter)
	args := append([]any{id, decimalToPgNumeric(txn.Amount), txn.Currency, txn.Type, txn.CategoryID, txn.Description, txn.Date, txn.UpdatedAt}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to update transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM transactions WHERE id=$1 AND %s`, filter)
	args := append([]any{id}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return domain.NewDependencyError("failed to delete transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// BulkCreate inserts the given transactions inside one database
// transaction, one INSERT per row (the service caps a batch at 500),
// rolling back entirely on any row failure (§9 bulk ops).
func (r *TransactionRepository) BulkCreate(ctx context.Context, dctx domain.DataContext, txns []*domain.Transaction) ([]*domain.Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, domain.NewDependencyError("failed to begin bulk create", err)
	}
	defer tx.Rollback(ctx)

	userID, orgID := dctx.Stamp()
	now := time.Now().UTC()
	for _, txn := range txns {
		txn.ID = uuid.New()
		txn.UserID = userID
		txn.OrganizationID = orgID
		txn.CreatedAt, txn.UpdatedAt = now, now
		q := `INSERT INTO transactions (` + transactionColumns + `) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`
		_, err := tx.Exec(ctx, q,
			txn.ID, txn.UserID, txn.OrganizationID, decimalToPgNumeric(txn.Amount), txn.Currency, txn.Type, txn.CategoryID,
			txn.Description, txn.Date, txn.EntryPattern, txn.IsRecurring, txn.RecurringSourceID, txn.InstallmentID,
			txn.InstallmentNumber, txn.LoanID, txn.CreditCardID, txn.BankAccountID,
			nullableDecimalToPgNumeric(txn.OriginalAmount), txn.OriginalCurrency, nullableDecimalToPgNumeric(txn.ExchangeRate),
			txn.CreatedAt, txn.UpdatedAt)
		if err != nil {
			return nil, domain.NewDependencyError("bulk create failed", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewDependencyError("failed to commit bulk create", err)
	}
	return txns, nil
}

func (r *TransactionRepository) BulkDelete(ctx context.Context, dctx domain.DataContext, ids []uuid.UUID) (int, error) {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM transactions WHERE id = ANY($1) AND %s`, filter)
	args := append([]any{ids}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, domain.NewDependencyError("failed to bulk delete transactions", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *TransactionRepository) ListInRange(ctx context.Context, dctx domain.DataContext, start, end time.Time) ([]domain.Transaction, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(2)
	q := fmt.Sprintf(`SELECT %s FROM transactions WHERE date >= $1 AND date < $2 AND %s ORDER BY date ASC`, transactionColumns, filter)
	rows, err := r.pool.Query(ctx, q, append([]any{start, end}, args...)...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to list transactions in range", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransactionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

// ExistsForSource is the idempotency-key check of the glossary's
// "(user_id, source_kind, source_id, date, is_recurring=true)" tuple.
// sourceKind only selects which provenance column to match against —
// loans and fixed schedules both stamp entry_pattern=recurring (§4.G
// step 1), so the provenance column (loan_id/recurring_source_id/
// installment_id) is what disambiguates, not the entry_pattern value.
func (r *TransactionRepository) ExistsForSource(ctx context.Context, dctx domain.DataContext, sourceKind domain.EntryPattern, sourceID uuid.UUID, date time.Time) (bool, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(3)
	var sourceCol string
	switch sourceKind {
	case domain.EntryPatternRecurring:
		sourceCol = "recurring_source_id"
	case domain.EntryPatternInstallment:
		sourceCol = "installment_id"
	case domain.EntryPatternLoanPayment:
		sourceCol = "loan_id"
	default:
		return false, domain.NewInvariantError("ExistsForSource requires a recurring/installment/loan_payment source kind")
	}
	q := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM transactions WHERE %s = $1 AND date = $2 AND is_recurring AND %s)`, sourceCol, filter)
	var exists bool
	err := r.pool.QueryRow(ctx, q, append([]any{sourceID, date}, args...)...).Scan(&exists)
	if err != nil {
		return false, domain.NewDependencyError("failed to check transaction existence", err)
	}
	return exists, nil
}

func (r *TransactionRepository) ExportRows(ctx context.Context, dctx domain.DataContext, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	where, args := filterClauses(dctx, filter)
	q := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY date ASC`, transactionColumns, strings.Join(where, " AND "))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to export transactions", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransactionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func filterClauses(dctx domain.DataContext, filter domain.TransactionFilter) ([]string, []any) {
	ownFilter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)
	where := []string{ownFilter}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("date < $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Pattern != nil {
		args = append(args, *filter.Pattern)
		where = append(where, fmt.Sprintf("entry_pattern = $%d", len(args)))
	}
	return where, args
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount, originalAmount, exchangeRate pgtype.Numeric
	err := row.Scan(&t.ID, &t.UserID, &t.OrganizationID, &amount, &t.Currency, &t.Type, &t.CategoryID,
		&t.Description, &t.Date, &t.EntryPattern, &t.IsRecurring, &t.RecurringSourceID, &t.InstallmentID,
		&t.InstallmentNumber, &t.LoanID, &t.CreditCardID, &t.BankAccountID,
		&originalAmount, &t.OriginalCurrency, &exchangeRate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, domain.NewDependencyError("failed to scan transaction", err)
	}
	t.Amount = pgNumericToDecimal(amount)
	t.OriginalAmount = pgNumericToNullableDecimal(originalAmount)
	t.ExchangeRate = pgNumericToNullableDecimal(exchangeRate)
	return &t, nil
}

func scanTransactionRows(rows pgx.Rows) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount, originalAmount, exchangeRate pgtype.Numeric
	err := rows.Scan(&t.ID, &t.UserID, &t.OrganizationID, &amount, &t.Currency, &t.Type, &t.CategoryID,
		&t.Description, &t.Date, &t.EntryPattern, &t.IsRecurring, &t.RecurringSourceID, &t.InstallmentID,
		&t.InstallmentNumber, &t.LoanID, &t.CreditCardID, &t.BankAccountID,
		&originalAmount, &t.OriginalCurrency, &exchangeRate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan transaction", err)
	}
	t.Amount = pgNumericToDecimal(amount)
	t.OriginalAmount = pgNumericToNullableDecimal(originalAmount)
	t.ExchangeRate = pgNumericToNullableDecimal(exchangeRate)
	return &t, nil
}
