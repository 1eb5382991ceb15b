package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryTypeIncome  EntryType = "income"
	EntryTypeExpense EntryType = "expense"
)

// Category groups transactions, fixed schedules, installments, loans,
// subscriptions under a label (§3 Category).
type Category struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"userId"`
	OrganizationID *uuid.UUID `json:"organizationId,omitempty"`
	Name          string     `json:"name"`
	NameHe        string     `json:"nameHe"`
	Type          EntryType  `json:"type"`
	Color         string     `json:"color"`
	Icon          string     `json:"icon"`
	IsArchived    bool       `json:"isArchived"`
	ParentID      *uuid.UUID `json:"parentId,omitempty"`
	DisplayOrder  int        `json:"displayOrder"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Validate enforces name/color floors and type closure.
func (c *Category) Validate() error {
	name, err := ValidateName(c.Name)
	if err != nil {
		return err
	}
	c.Name = name
	if err := ValidateColor(c.Color); err != nil {
		return err
	}
	switch c.Type {
	case EntryTypeIncome, EntryTypeExpense:
	default:
		return NewSchemaError("type must be income or expense")
	}
	return nil
}

// CategoryRepository persists categories. Uniqueness is enforced on
// (owner_scope, name, type) among non-archived rows; archived rows are
// excluded from the duplicate check. Delete applies to a category whether
// it is archived or not.
type CategoryRepository interface {
	Create(ctx context.Context, dctx DataContext, cat *Category) (*Category, error)
	Get(ctx context.Context, dctx DataContext, id uuid.UUID) (*Category, error)
	List(ctx context.Context, dctx DataContext, includeArchived bool, page Page) (PagedResult[Category], error)
	Update(ctx context.Context, dctx DataContext, id uuid.UUID, patch func(*Category) error) (*Category, error)
	Archive(ctx context.Context, dctx DataContext, id uuid.UUID) error
	Delete(ctx context.Context, dctx DataContext, id uuid.UUID) error
	HasDependents(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsActiveDuplicate(ctx context.Context, dctx DataContext, name string, entryType EntryType, excludeID *uuid.UUID) (bool, error)
}
