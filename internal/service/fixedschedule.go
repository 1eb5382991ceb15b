package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fortunaflow/internal/audit"
	"fortunaflow/internal/domain"
)

// FixedScheduleService owns fixed-schedule CRUD plus the pause/resume
// toggles the projection engine's AdmitsMonth check relies on.
type FixedScheduleService struct {
	repo  domain.FixedScheduleRepository
	audit *audit.Recorder
}

func NewFixedScheduleService(repo domain.FixedScheduleRepository, auditRecorder *audit.Recorder) *FixedScheduleService {
	return &FixedScheduleService{repo: repo, audit: auditRecorder}
}

func (s *FixedScheduleService) Create(ctx context.Context, dctx domain.DataContext, fs *domain.FixedSchedule) (*domain.FixedSchedule, error) {
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	fs.IsActive = true
	created, err := s.repo.Create(ctx, dctx, fs)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "CREATE", created.ID, fixedAuditFields(created))
	return created, nil
}

func (s *FixedScheduleService) Get(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.FixedSchedule, error) {
	return s.repo.Get(ctx, dctx, id)
}

func (s *FixedScheduleService) List(ctx context.Context, dctx domain.DataContext, activeOnly bool, page domain.Page) (domain.PagedResult[domain.FixedSchedule], error) {
	return s.repo.List(ctx, dctx, activeOnly, page)
}

func (s *FixedScheduleService) Update(ctx context.Context, dctx domain.DataContext, id uuid.UUID, patch func(*domain.FixedSchedule) error) (*domain.FixedSchedule, error) {
	updated, err := s.repo.Update(ctx, dctx, id, func(fs *domain.FixedSchedule) error {
		if err := patch(fs); err != nil {
			return err
		}
		return fs.Validate()
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "UPDATE", id, fixedAuditFields(updated))
	return updated, nil
}

// Pause marks the schedule inactive from now on; the projection engine's
// AdmitsMonth check will skip every future month for it.
func (s *FixedScheduleService) Pause(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.FixedSchedule, error) {
	updated, err := s.repo.Update(ctx, dctx, id, func(fs *domain.FixedSchedule) error {
		fs.IsActive = false
		t := time.Now().UTC()
		fs.PausedAt = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "PAUSE", id, fixedAuditFields(updated))
	return updated, nil
}

func (s *FixedScheduleService) Resume(ctx context.Context, dctx domain.DataContext, id uuid.UUID) (*domain.FixedSchedule, error) {
	updated, err := s.repo.Update(ctx, dctx, id, func(fs *domain.FixedSchedule) error {
		fs.IsActive = true
		t := time.Now().UTC()
		fs.ResumedAt = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, dctx, "RESUME", id, fixedAuditFields(updated))
	return updated, nil
}

func (s *FixedScheduleService) Delete(ctx context.Context, dctx domain.DataContext, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, dctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, dctx, "DELETE", id, nil)
	return nil
}

func (s *FixedScheduleService) recordAudit(ctx context.Context, dctx domain.DataContext, action string, id uuid.UUID, after map[string]any) {
	if s.audit == nil {
		return
	}
	userID, orgID := dctx.Stamp()
	_ = s.audit.Record(ctx, audit.Entry{TableName: "fixed_schedules", RecordID: id, UserID: userID, Action: action, NewValues: after, OrganizationID: orgID})
}

func fixedAuditFields(fs *domain.FixedSchedule) map[string]any {
	return map[string]any{"name": fs.Name, "amount": fs.Amount.String(), "type": fs.Type, "is_active": fs.IsActive}
}
