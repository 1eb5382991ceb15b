// Package postgres hand-writes SQL against pgx/pgxpool instead of the
// sqlc-generated layer the teacher used — the generated db/sqlc package
// was not part of the retrieved reference pack (see DESIGN.md).
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so repository
// methods can run either directly against the pool or inside a caller's
// transaction (per-request atomicity, §5).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
