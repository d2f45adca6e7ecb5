// Package database defines the connector contract the entity runtime and
// relationship lifecycle persist through, plus a SQL implementation of it.
// Metadata resolution never touches this package; only row operations do.
package database

import (
	"context"
	"time"
)

// QueryParams tunes a Find call.
type QueryParams struct {
	// OrderBy is a column name, prefixed with "-" for descending order.
	OrderBy string
	Limit   int
	Offset  int
	// IncludeDeleted disables the implicit "not soft-deleted" filter.
	IncludeDeleted bool
}

// AuditStamp carries the actor and instant recorded on soft deletes.
type AuditStamp struct {
	At time.Time
	By any
}

// Stamp builds an AuditStamp for the given actor at the current time.
func Stamp(actor any) AuditStamp {
	return AuditStamp{At: time.Now().UTC(), By: actor}
}

// NotNull is a criteria marker value selecting rows where the column is
// present. A nil criteria value selects rows where it is absent.
type NotNull struct{}

// Record is a persistable row handle. The entity runtime and relationship
// instances implement it; the connector never constructs records itself.
type Record interface {
	// Table is the backing table name.
	Table() string
	// PrimaryKey returns the key column and its current value.
	PrimaryKey() (string, any)
	// Columns returns the current column values to persist.
	Columns() map[string]any
	// SetColumn stores a column value on the record.
	SetColumn(column string, value any)
}

// Connector is the persistence seam. Criteria maps use equality per column,
// with nil meaning IS NULL, NotNull meaning IS NOT NULL, and slice values
// meaning membership.
type Connector interface {
	Find(ctx context.Context, table string, criteria map[string]any, fields []string, params QueryParams) ([]map[string]any, error)
	Create(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	SoftDelete(ctx context.Context, rec Record, stamp AuditStamp) error
	HardDelete(ctx context.Context, rec Record) error
	RecordExists(ctx context.Context, table string, criteria map[string]any) (bool, error)
	// SoftDeleteWhere bulk-stamps every active row matching criteria and
	// returns the number of rows affected.
	SoftDeleteWhere(ctx context.Context, table string, criteria map[string]any, stamp AuditStamp) (int64, error)
}
