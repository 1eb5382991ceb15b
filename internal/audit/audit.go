// Package audit records one append-only entry per successful mutation, in
// the same transaction as the mutation itself (§4.L, §5 per-request
// atomicity).
package audit

import (
	"context"

	"github.com/google/uuid"

	"fortunaflow/internal/domain"
)

// Entry is the set of fields a mutation supplies; ID/ChangedAt are stamped
// by the repository on Append.
type Entry struct {
	TableName      string
	RecordID       uuid.UUID
	UserID         uuid.UUID
	Action         string
	OldValues      map[string]any
	NewValues      map[string]any
	OrganizationID *uuid.UUID
}

// Recorder appends audit entries. Constructed over the same repository
// every mutating service shares.
type Recorder struct {
	repo domain.AuditLogRepository
}

func NewRecorder(repo domain.AuditLogRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record appends one entry. Errors from this call should fail the
// surrounding transaction — an unaudited mutation is not a partial
// success, it's a silent one.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	return r.repo.Append(ctx, &domain.AuditLogEntry{
		TableName:      e.TableName,
		RecordID:       e.RecordID,
		UserID:         e.UserID,
		Action:         e.Action,
		OldValues:      e.OldValues,
		NewValues:      e.NewValues,
		OrganizationID: e.OrganizationID,
	})
}

// BulkAction formats the "BULK_<VERB>" tag used by bulk endpoints; each
// affected row still gets its own entry (§9 Open Question, resolved: one
// entry per row rather than a single rollup).
func BulkAction(verb string) string {
	return "BULK_" + verb
}
