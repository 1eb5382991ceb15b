package service

import (
	"context"

	"github.com/google/uuid"

	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
	"fortunaflow/internal/tenancy"
)

// OrganizationService owns organization and membership CRUD, gated by
// the role floors in internal/tenancy (§4.I).
type OrganizationService struct {
	repo     domain.OrganizationRepository
	userRepo domain.UserRepository
	audit    *audit.Recorder
}

func NewOrganizationService(repo domain.OrganizationRepository, userRepo domain.UserRepository, auditRecorder *audit.Recorder) *OrganizationService {
	return &OrganizationService{repo: repo, userRepo: userRepo, audit: auditRecorder}
}

// Create provisions a new organization and seats the creator as owner.
func (s *OrganizationService) Create(ctx context.Context, creatorID uuid.UUID, org *domain.Organization) (*domain.Organization, error) {
	if err := org.Validate(); err != nil {
		return nil, err
	}
	org.OwnerID = creatorID
	org.IsActive = true
	created, err := s.repo.Create(ctx, org)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.AddMember(ctx, &domain.OrgMember{
		OrganizationID: created.ID, UserID: creatorID, Role: domain.RoleOwner, IsActive: true,
	}); err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, audit.Entry{
			TableName: "organizations", RecordID: created.ID, UserID: creatorID, Action: "CREATE",
			NewValues: map[string]any{"name": created.Name, "slug": created.Slug},
		})
	}
	return created, nil
}

func (s *OrganizationService) Get(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	return s.repo.GetByID(ctx, id)
}

// Update requires admin role or better.
func (s *OrganizationService) Update(ctx context.Context, dctx domain.DataContext, org *domain.Organization) (*domain.Organization, error) {
	if err := tenancy.Require(dctx, tenancy.ActionOrgUpdate); err != nil {
		return nil, err
	}
	if err := org.Validate(); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, org)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		orgID := &updated.ID
		_ = s.audit.Record(ctx, audit.Entry{
			TableName: "organizations", RecordID: updated.ID, UserID: dctx.UserID, Action: "UPDATE",
			NewValues: map[string]any{"name": updated.Name}, OrganizationID: orgID,
		})
	}
	return updated, nil
}

// Delete requires owner role.
func (s *OrganizationService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	if err := tenancy.Require(dctx, tenancy.ActionOrgDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		orgID := &id
		_ = s.audit.Record(ctx, audit.Entry{TableName: "organizations", RecordID: id, UserID: dctx.UserID, Action: "DELETE", OrganizationID: orgID})
	}
	return nil
}

func (s *OrganizationService) ListMembers(ctx context.Context, orgID uuid.UUID) ([]domain.OrgMember, error) {
	return s.repo.ListMembers(ctx, orgID)
}

// AddMember requires admin role or better.
func (s *OrganizationService) AddMember(ctx context.Context, dctx domain.DataContext, userID uuid.UUID, role domain.Role) (*domain.OrgMember, error) {
	if err := tenancy.Require(dctx, tenancy.ActionMemberAdd); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	member, err := s.repo.AddMember(ctx, &domain.OrgMember{
		OrganizationID: dctx.OrganizationID, UserID: userID, Role: role, IsActive: true,
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		orgID := &dctx.OrganizationID
		_ = s.audit.Record(ctx, audit.Entry{
			TableName: "org_members", RecordID: member.ID, UserID: dctx.UserID, Action: "CREATE",
			NewValues: map[string]any{"user_id": userID, "role": role}, OrganizationID: orgID,
		})
	}
	return member, nil
}

// RemoveMember applies the admin-vs-owner and self-removal carve-outs
// from tenancy.CanRemoveMember before deactivating the membership.
func (s *OrganizationService) RemoveMember(ctx context.Context, dctx domain.DataContext, targetUserID uuid.UUID) error {
	target, err := s.repo.GetMember(ctx, dctx.OrganizationID, targetUserID)
	if err != nil {
		return err
	}
	if err := tenancy.CanRemoveMember(dctx, targetUserID, target.Role); err != nil {
		return err
	}
	if err := s.repo.RemoveMember(ctx, dctx.OrganizationID, targetUserID); err != nil {
		return err
	}
	if s.audit != nil {
		orgID := &dctx.OrganizationID
		_ = s.audit.Record(ctx, audit.Entry{TableName: "org_members", RecordID: target.ID, UserID: dctx.UserID, Action: "REMOVE", OrganizationID: orgID})
	}
	return nil
}

// ChangeMemberRole applies tenancy.CanChangeMemberRole's self-demotion
// guard before reassigning the role.
func (s *OrganizationService) ChangeMemberRole(ctx context.Context, dctx domain.DataContext, targetUserID uuid.UUID, newRole domain.Role) error {
	if err := tenancy.CanChangeMemberRole(dctx, targetUserID); err != nil {
		return err
	}
	if err := s.repo.UpdateMemberRole(ctx, dctx.OrganizationID, targetUserID, newRole); err != nil {
		return err
	}
	if s.audit != nil {
		orgID := &dctx.OrganizationID
		_ = s.audit.Record(ctx, audit.Entry{
			TableName: "org_members", RecordID: uuid.Nil, UserID: dctx.UserID, Action: "ROLE_CHANGE",
			NewValues: map[string]any{"target_user_id": targetUserID, "role": newRole}, OrganizationID: orgID,
		})
	}
	return nil
}

func (s *OrganizationService) ReactivateMember(ctx context.Context, dctx domain.DataContext, targetUserID uuid.UUID) (*domain.OrgMember, error) {
	if err := tenancy.Require(dctx, tenancy.ActionMemberAdd); err != nil {
		return nil, err
	}
	return s.repo.ReactivateMember(ctx, dctx.OrganizationID, targetUserID)
}
