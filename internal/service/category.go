package service

import (
	"context"

	"github.com/google/uuid"

	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
)

// CategoryService owns category CRUD and the archive/delete guard rails
// that keep a category in use by a transaction, fixed schedule,
// installment, loan, or subscription from disappearing outright.
type CategoryService struct {
	repo  domain.CategoryRepository
	audit *audit.Recorder
}

func NewCategoryService(repo domain.CategoryRepository, auditRecorder *audit.Recorder) *CategoryService {
	return &CategoryService{repo: repo, audit: auditRecorder}
}

func (s *CategoryService) Create(ctx context.Context, dctx domain.DataContext, cat *domain.Category) (*domain.Category, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	dup, err := s.repo.ExistsActiveDuplicate(ctx, dctx, cat.Name, cat.Type, nil)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, domain.NewConflictError("a category with this name and type already exists")
	}

	created, err := s.repo.Create(ctx, dctx, cat)
	if err != nil {
		return nil, err
	}

	userID, orgID := dctx.Stamp()
	s.recordAudit(ctx, "CREATE", created.ID, userID, orgID, nil, categoryAuditFields(created))
	return created, nil
}

func (s *CategoryService) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.Category, error) {
	return s.repo.Get(ctx, dctx, id)
}

func (s *CategoryService) List(ctx context.Context, dctx domain.DataContext, includeArchived bool, page domain.Page) (domain.PagedResult[domain.Category], error) {
	return s.repo.List(ctx, dctx, includeArchived, page)
}

func (s *CategoryService) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, name, color, icon string, displayOrder int) (*domain.Category, error) {
	before, err := s.repo.Get(ctx, dctx, id)
	if err != nil {
		return nil, err
	}

	if name != before.Name {
		dup, err := s.repo.ExistsActiveDuplicate(ctx, dctx, name, before.Type, &id)
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, domain.NewConflictError("a category with this name and type already exists")
		}
	}

	updated, err := s.repo.Update(ctx, dctx, id, func(c *domain.Category) error {
		c.Name = name
		c.Color = color
		c.Icon = icon
		c.DisplayOrder = displayOrder
		return c.Validate()
	})
	if err != nil {
		return nil, err
	}

	userID, orgID := dctx.Stamp()
	s.recordAudit(ctx, "UPDATE", id, userID, orgID, categoryAuditFields(before), categoryAuditFields(updated))
	return updated, nil
}

// Archive soft-removes a category from pickers without breaking the
// history of entities that already reference it.
func (s *CategoryService) Archive(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, dctx, id); err != nil {
		return err
	}
	userID, orgID := dctx.Stamp()
	s.recordAudit(ctx, "ARCHIVE", id, userID, orgID, nil, nil)
	return nil
}

// Delete hard-removes a category; it refuses when any entity still
// references it, because that would orphan history silently.
func (s *CategoryService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	hasDependents, err := s.repo.HasDependents(ctx, id)
	if err != nil {
		return err
	}
	if hasDependents {
		return domain.NewConflictError("category is still referenced by existing records")
	}
	if err := s.repo.Delete(ctx, dctx, id); err != nil {
		return err
	}
	userID, orgID := dctx.Stamp()
	s.recordAudit(ctx, "DELETE", id, userID, orgID, nil, nil)
	return nil
}

func (s *CategoryService) recordAudit(ctx context.Context, action string, id, userID uuid.UUID, orgID *uuid.UUID, before, after map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, audit.Entry{
		TableName: "categories", RecordID: id, UserID: userID, Action: action,
		OldValues: before, NewValues: after, OrganizationID: orgID,
	})
}

func categoryAuditFields(c *domain.Category) map[string]any {
	if c == nil {
		return nil
	}
	return map[string]any{"name": c.Name, "type": c.Type, "color": c.Color, "icon": c.Icon, "is_archived": c.IsArchived}
}
