package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AlertSeverity is a closed enumeration (§3 Alert).
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is a generated notification, matched across regenerations by a
// deterministic key so is_read/created_at survive (§3 Alert, §4.H).
type Alert struct {
	ID                uuid.UUID     `json:"id"`
	UserID            uuid.UUID     `json:"userId"`
	OrganizationID    *uuid.UUID    `json:"organizationId,omitempty"`
	Key               string        `json:"-"`
	AlertType         string        `json:"alertType"`
	Severity          AlertSeverity `json:"severity"`
	Title             string        `json:"title"`
	Message           string        `json:"message"`
	RelatedEntityType string        `json:"relatedEntityType,omitempty"`
	RelatedEntityID   *uuid.UUID    `json:"relatedEntityId,omitempty"`
	RelatedMonth      *time.Time    `json:"relatedMonth,omitempty"`
	IsRead            bool          `json:"isRead"`
	IsDismissed       bool          `json:"isDismissed"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// AlertRepository persists alerts and supports the convergent-set
// reconciliation protocol of §4.H.
type AlertRepository interface {
	// ListNonDismissedByKeyPrefix loads existing non-dismissed alerts
	// whose key starts with prefix (used to bucket a family, e.g. all
	// "negative_cashflow:" or all entity-derived keys).
	ListNonDismissedByKeyPrefix(ctx context.Context, dctx DataContext, prefix string) ([]Alert, error)
	List(ctx context.Context, dctx DataContext, unreadOnly bool, page Page) (PagedResult[Alert], error)
	// Reconcile upserts the fresh set (preserving is_read/created_at on
	// matched keys) and deletes bucketed keys absent from fresh, in one
	// transaction.
	Reconcile(ctx context.Context, dctx DataContext, keyPrefix string, fresh []Alert) ([]Alert, error)
	MarkRead(ctx context.Context, dctx DataContext, id uuid.UUID) error
	Dismiss(ctx context.Context, dctx DataContext, id uuid.UUID) error
}
