package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
)

// SubscriptionService owns subscription and credit-card CRUD plus the
// renewal-advance operation automation calls once a subscription's
// renewal date has passed.
type SubscriptionService struct {
	subRepo domain.SubscriptionRepository
	ccRepo  domain.CreditCardRepository
	audit   *audit.Recorder
}

func NewSubscriptionService(subRepo domain.SubscriptionRepository, ccRepo domain.CreditCardRepository, auditRecorder *audit.Recorder) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo, ccRepo: ccRepo, audit: auditRecorder}
}

func (s *SubscriptionService) Create(ctx context.Context, dctx domain.DataContext, sub *domain.Subscription) (*domain.Subscription, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	created, err := s.subRepo.Create(ctx, dctx, sub)
	if err != nil {
		return nil, err
	}
	s.auditSub(ctx, dctx, "CREATE", created)
	return created, nil
}

func (s *SubscriptionService) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Subscription, error) {
	return s.subRepo.Get(ctx, dctx, id)
}

func (s *SubscriptionService) List(ctx context.Context, dctx domain.DataContext, activeOnly bool, page domain.Page) (domain.PagedResult[domain.Subscription], error) {
	return s.subRepo.List(ctx, dctx, activeOnly, page)
}

func (s *SubscriptionService) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.Subscription) error) (*domain.Subscription, error) {
	updated, err := s.subRepo.Update(ctx, dctx, id, func(sub *domain.Subscription) error {
		if err := patch(sub); err != nil {
			return err
		}
		return sub.Validate()
	})
	if err != nil {
		return nil, err
	}
	s.auditSub(ctx, dctx, "UPDATE", updated)
	return updated, nil
}

// Pause stops renewal advancement without losing the subscription's
// history; Resume clears the pause and leaves next_renewal_date as it
// was.
func (s *SubscriptionService) Pause(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Subscription, error) {
	return s.subRepo.Update(ctx, dctx, id, func(sub *domain.Subscription) error {
		sub.IsActive = false
		t := time.Now().UTC()
		sub.PausedAt = &t
		return nil
	})
}

func (s *SubscriptionService) Resume(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Subscription, error) {
	return s.subRepo.Update(ctx, dctx, id, func(sub *domain.Subscription) error {
		sub.IsActive = true
		sub.PausedAt = nil
		return nil
	})
}

func (s *SubscriptionService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	if err := s.subRepo.Delete(ctx, dctx, id); err != nil {
		return err
	}
	userID, orgID := dctx.Stamp()
	s.recordAudit(ctx, "subscriptions", "DELETE", id, userID, orgID, nil, nil)
	return nil
}

// DueRenewals lists every subscription renewing within the given number
// of days; it backs the due-renewals endpoint.
func (s *SubscriptionService) DueRenewals(ctx context.Context, dctx domain.DataContext, days int) ([]domain.Subscription, error) {
	return s.subRepo.ListRenewingWithin(ctx, dctx, days)
}

func (s *SubscriptionService) auditSub(ctx context.Context, dctx domain.DataContext, action string, sub *domain.Subscription) {
	userID, orgID := dctx.Stamp()
	s.recordAudit(ctx, "subscriptions", action, sub.ID, userID, orgID, nil, map[string]any{
		"name": sub.Name, "amount": sub.Amount.String(), "billing_cycle": sub.BillingCycle, "is_active": sub.IsActive,
	})
}

func (s *SubscriptionService) recordAudit(ctx context.Context, table, action string, id, userID uuid.UUID, orgID *uuid.UUID, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, audit.Entry{TableName: table, RecordID: id, UserID: userID, Action: action, OldValues: before, NewValues: after, OrganizationID: orgID})
}

// CreditCardService owns credit-card CRUD.
type CreditCardService struct {
	repo  domain.CreditCardRepository
	audit *audit.Recorder
}

func NewCreditCardService(repo domain.CreditCardRepository, auditRecorder *audit.Recorder) *CreditCardService {
	return &CreditCardService{repo: repo, audit: auditRecorder}
}

func (s *CreditCardService) Create(ctx context.Context, dctx domain.DataContext, cc *domain.CreditCard) (*domain.CreditCard, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, dctx, cc)
	if err != nil {
		return nil, err
	}
	userID, orgID := dctx.Stamp()
	if s.audit != nil {
		_ = s.audit.Record(ctx, audit.Entry{
			TableName: "credit_cards", RecordID: created.ID, UserID: userID, Action: "CREATE",
			NewValues: map[string]any{"name": created.Name, "last_four_digits": created.LastFourDigits},
			OrganizationID: orgID,
		})
	}
	return created, nil
}

func (s *CreditCardService) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.CreditCard, error) {
	return s.repo.Get(ctx, dctx, id)
}

func (s *CreditCardService) List(ctx context.Context, dctx domain.DataContext, page domain.Page) (domain.PagedResult[domain.CreditCard], error) {
	return s.repo.List(ctx, dctx, page)
}

func (s *CreditCardService) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.CreditCard) error) (*domain.CreditCard, error) {
	return s.repo.Update(ctx, dctx, id, func(cc *domain.CreditCard) error {
		if err := patch(cc); err != nil {
			return err
		}
		return cc.Validate()
	})
}

func (s *CreditCardService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	return s.repo.Delete(ctx, dctx, id)
}
