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

// SubscriptionRepository is the pgx-backed implementation of
// domain.SubscriptionRepository.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

const subscriptionColumns = `
	id, user_id, organization_id, name, amount, currency, billing_cycle, next_renewal_date, is_active,
	paused_at, auto_renew, provider, credit_card_id, category_id, created_at, updated_at`

func (r *SubscriptionRepository) Create(ctx context.Context, dctx domain.DataContext, sub *domain.Subscription) (*domain.Subscription, error) {
	userID, orgID := dctx.Stamp()
	sub.ID = uuid.New()
	sub.UserID = userID
	sub.OrganizationID = orgID
	now := time.Now().UTC()
	sub.CreatedAt, sub.UpdatedAt = now, now

	q := `INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	_, err := r.pool.Exec(ctx, q,
		sub.ID, sub.UserID, sub.OrganizationID, sub.Name, decimalToPgNumeric(sub.Amount), sub.Currency,
		sub.BillingCycle, sub.NextRenewalDate, sub.IsActive, sub.PausedAt, sub.AutoRenew, sub.Provider,
		sub.CreditCardID, sub.CategoryID, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create subscription", err)
	}
	return sub, nil
}

func (r *SubscriptionRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Subscription, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE id = $1 AND %s`, subscriptionColumns, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{id}, args...)...)
	return scanSubscription(row)
}

func (r *SubscriptionRepository) List(ctx context.Context, dctx domain.DataContext, activeOnly bool, page domain.Page) (domain.PagedResult[domain.Subscription], error) {
	page = page.Normalize()
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)
	where := filter
	if activeOnly {
		where += " AND is_active = true"
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM subscriptions WHERE %s`, where), args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.Subscription]{}, domain.NewDependencyError("failed to count subscriptions", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE %s ORDER BY next_renewal_date ASC LIMIT $%d OFFSET $%d`,
		subscriptionColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.Subscription]{}, domain.NewDependencyError("failed to list subscriptions", err)
	}
	defer rows.Close()

	items := make([]domain.Subscription, 0, page.PageSize)
	for rows.Next() {
		s, err := scanSubscriptionRows(rows)
		if err != nil {
			return domain.PagedResult[domain.Subscription]{}, err
		}
		items = append(items, *s)
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Subscription) error) (*domain.Subscription, error) {
	sub, err := r.Get(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch(sub); err != nil {
		return nil, err
	}
	sub.UpdatedAt = time.Now().UTC()

	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(9)
	q := fmt.Sprintf(`
		UPDATE subscriptions SET name=$2, amount=$3, next_renewal_date=$4, is_active=$5, paused_at=$6,
			auto_renew=$7, category_id=$8, updated_at=$9
		WHERE id=$1 AND %s`, filter)
	args := append([]any{sub.ID, sub.Name, decimalToPgNumeric(sub.Amount), sub.NextRenewalDate, sub.IsActive,
		sub.PausedAt, sub.AutoRenew, sub.CategoryID, sub.UpdatedAt}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to update subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM subscriptions WHERE id=$1 AND %s`, filter)
	tag, err := r.pool.Exec(ctx, q, append([]any{id}, fargs...)...)
	if err != nil {
		return domain.NewDependencyError("failed to delete subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) ListRenewingWithin(ctx context.Context, dctx domain.DataContext, days int) ([]domain.Subscription, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`
		SELECT %s FROM subscriptions
		WHERE is_active = true AND next_renewal_date <= now() + ($1 || ' days')::interval AND %s
		ORDER BY next_renewal_date ASC`, subscriptionColumns, filter)
	rows, err := r.pool.Query(ctx, q, append([]any{days}, args...)...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to list renewing subscriptions", err)
	}
	defer rows.Close()
	var out []domain.Subscription
	for rows.Next() {
		s, err := scanSubscriptionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	var amount pgtype.Numeric
	err := row.Scan(&s.ID, &s.UserID, &s.OrganizationID, &s.Name, &amount, &s.Currency, &s.BillingCycle,
		&s.NextRenewalDate, &s.IsActive, &s.PausedAt, &s.AutoRenew, &s.Provider, &s.CreditCardID, &s.CategoryID,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, domain.NewDependencyError("failed to scan subscription", err)
	}
	s.Amount = pgNumericToDecimal(amount)
	return &s, nil
}

func scanSubscriptionRows(rows pgx.Rows) (*domain.Subscription, error) {
	var s domain.Subscription
	var amount pgtype.Numeric
	err := rows.Scan(&s.ID, &s.UserID, &s.OrganizationID, &s.Name, &amount, &s.Currency, &s.BillingCycle,
		&s.NextRenewalDate, &s.IsActive, &s.PausedAt, &s.AutoRenew, &s.Provider, &s.CreditCardID, &s.CategoryID,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan subscription", err)
	}
	s.Amount = pgNumericToDecimal(amount)
	return &s, nil
}

// CreditCardRepository is the pgx-backed implementation of
// domain.CreditCardRepository.
type CreditCardRepository struct {
	pool *pgxpool.Pool
}

func NewCreditCardRepository(pool *pgxpool.Pool) *CreditCardRepository {
	return &CreditCardRepository{pool: pool}
}

const creditCardColumns = `
	id, user_id, organization_id, name, last_four_digits, card_network, issuer, credit_limit, billing_day,
	currency, is_active, color, created_at, updated_at`

func (r *CreditCardRepository) Create(ctx context.Context, dctx domain.DataContext, cc *domain.CreditCard) (*domain.CreditCard, error) {
	userID, orgID := dctx.Stamp()
	cc.ID = uuid.New()
	cc.UserID = userID
	cc.OrganizationID = orgID
	now := time.Now().UTC()
	cc.CreatedAt, cc.UpdatedAt = now, now

	q := `INSERT INTO credit_cards (` + creditCardColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := r.pool.Exec(ctx, q, cc.ID, cc.UserID, cc.OrganizationID, cc.Name, cc.LastFourDigits, cc.CardNetwork,
		cc.Issuer, decimalToPgNumeric(cc.CreditLimit), cc.BillingDay, cc.Currency, cc.IsActive, cc.Color,
		cc.CreatedAt, cc.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to create credit card", err)
	}
	return cc, nil
}

func (r *CreditCardRepository) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.CreditCard, error) {
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`SELECT %s FROM credit_cards WHERE id = $1 AND %s`, creditCardColumns, filter)
	row := r.pool.QueryRow(ctx, q, append([]any{id}, args...)...)
	return scanCreditCard(row)
}

func (r *CreditCardRepository) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.CreditCard], error) {
	page = page.Normalize()
	filter, args := tenancy.NewOwnershipFilter(dctx).SQL(0)

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM credit_cards WHERE %s`, filter), args...).Scan(&total); err != nil {
		return domain.PagedResult[domain.CreditCard]{}, domain.NewDependencyError("failed to count credit cards", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM credit_cards WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		creditCardColumns, filter, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.PagedResult[domain.CreditCard]{}, domain.NewDependencyError("failed to list credit cards", err)
	}
	defer rows.Close()

	items := make([]domain.CreditCard, 0, page.PageSize)
	for rows.Next() {
		c, err := scanCreditCardRows(rows)
		if err != nil {
			return domain.PagedResult[domain.CreditCard]{}, err
		}
		items = append(items, *c)
	}
	return domain.NewPagedResult(items, total, page), nil
}

func (r *CreditCardRepository) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.CreditCard) error) (*domain.CreditCard, error) {
	cc, err := r.Get(ctx, dctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch(cc); err != nil {
		return nil, err
	}
	cc.UpdatedAt = time.Now().UTC()

	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(6)
	q := fmt.Sprintf(`
		UPDATE credit_cards SET name=$2, credit_limit=$3, billing_day=$4, is_active=$5, updated_at=$6
		WHERE id=$1 AND %s`, filter)
	args := append([]any{cc.ID, cc.Name, decimalToPgNumeric(cc.CreditLimit), cc.BillingDay, cc.IsActive, cc.UpdatedAt}, fargs...)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return nil, domain.NewDependencyError("failed to update credit card", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrCreditCardNotFound
	}
	return cc, nil
}

func (r *CreditCardRepository) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	filter, fargs := tenancy.NewOwnershipFilter(dctx).SQL(1)
	q := fmt.Sprintf(`DELETE FROM credit_cards WHERE id=$1 AND %s`, filter)
	tag, err := r.pool.Exec(ctx, q, append([]any{id}, fargs...)...)
	if err != nil {
		return domain.NewDependencyError("failed to delete credit card", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCreditCardNotFound
	}
	return nil
}

func scanCreditCard(row pgx.Row) (*domain.CreditCard, error) {
	var c domain.CreditCard
	var limit pgtype.Numeric
	err := row.Scan(&c.ID, &c.UserID, &c.OrganizationID, &c.Name, &c.LastFourDigits, &c.CardNetwork, &c.Issuer,
		&limit, &c.BillingDay, &c.Currency, &c.IsActive, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCreditCardNotFound
		}
		return nil, domain.NewDependencyError("failed to scan credit card", err)
	}
	c.CreditLimit = pgNumericToDecimal(limit)
	return &c, nil
}

func scanCreditCardRows(rows pgx.Rows) (*domain.CreditCard, error) {
	var c domain.CreditCard
	var limit pgtype.Numeric
	err := rows.Scan(&c.ID, &c.UserID, &c.OrganizationID, &c.Name, &c.LastFourDigits, &c.CardNetwork, &c.Issuer,
		&limit, &c.BillingDay, &c.Currency, &c.IsActive, &c.Color, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, domain.NewDependencyError("failed to scan credit card", err)
	}
	c.CreditLimit = pgNumericToDecimal(limit)
	return &c, nil
}
