package automation

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"fortunaflow/internal/domain"
)

// Scheduler drives Processor.Process once a day for every active owner
// scope — each individual user's personal data plus every active
// organization — so recurring loans, fixed schedules, and installments
// charge themselves without a human in the loop (§4.G).
type Scheduler struct {
	cron      *cron.Cron
	processor *Processor
	userRepo  domain.UserRepository
	orgRepo   domain.OrganizationRepository
	spec      string
	running   bool
}

// NewScheduler builds a Scheduler that fires processor runs on spec (a
// standard 5-field cron expression). Callers in production wire spec to
// something like "0 5 * * *" (05:00 daily); tests can pass a tighter
// expression and drive Tick directly instead of waiting on Start.
func NewScheduler(processor *Processor, userRepo domain.UserRepository, orgRepo domain.OrganizationRepository, spec string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		processor: processor,
		userRepo:  userRepo,
		orgRepo:   orgRepo,
		spec:      spec,
	}
}

// Start registers the daily tick and begins the cron goroutine. Safe to
// call once; a second call is a no-op.
func (s *Scheduler) Start() error {
	if s.running {
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	s.running = true
	log.Info().Str("spec", s.spec).Msg("automation scheduler started")
	return nil
}

// Stop drains the in-flight tick (if any) and halts the cron goroutine.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	log.Info().Msg("automation scheduler stopped")
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	referenceDate := time.Now().UTC()
	result, err := s.Tick(ctx, referenceDate)
	if err != nil {
		log.Error().Err(err).Msg("automation tick failed")
		return
	}
	log.Info().
		Int("loans_charged", result.LoansCharged).
		Int("fixed_charged", result.FixedCharged).
		Int("installments_charged", result.InstallmentsCharged).
		Int("skipped", result.Skipped).
		Msg("automation tick complete")
}

// Tick runs Processor.Process once per active owner scope for
// referenceDate and returns the summed result, so tests and the cron
// callback share one code path.
func (s *Scheduler) Tick(ctx context.Context, referenceDate time.Time) (Result, error) {
	var total Result

	users, err := s.userRepo.ListActive(ctx)
	if err != nil {
		return total, err
	}
	for _, u := range users {
		dctx := domain.DataContext{UserID: u.ID}
		r, err := s.processor.Process(ctx, dctx, referenceDate, false)
		if err != nil {
			log.Error().Err(err).Str("user_id", u.ID.String()).Msg("automation tick failed for user scope")
			continue
		}
		total = mergeResults(total, r)
	}

	orgs, err := s.orgRepo.ListActive(ctx)
	if err != nil {
		return total, err
	}
	for _, org := range orgs {
		dctx := domain.DataContext{UserID: org.OwnerID, OrganizationID: org.ID, IsOrgContext: true, Role: domain.RoleOwner}
		r, err := s.processor.Process(ctx, dctx, referenceDate, false)
		if err != nil {
			log.Error().Err(err).Str("organization_id", org.ID.String()).Msg("automation tick failed for organization scope")
			continue
		}
		total = mergeResults(total, r)
	}

	return total, nil
}

func mergeResults(a, b Result) Result {
	return Result{
		LoansCharged:        a.LoansCharged + b.LoansCharged,
		FixedCharged:        a.FixedCharged + b.FixedCharged,
		InstallmentsCharged: a.InstallmentsCharged + b.InstallmentsCharged,
		Skipped:             a.Skipped + b.Skipped,
	}
}
