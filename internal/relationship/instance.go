package relationship

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/database"
	"github.com/trestlehq/trestle/internal/errs"
	"github.com/trestlehq/trestle/internal/schema"
)

// Instance is a live relationship handle: resolved metadata plus the row
// state for persistence operations. Row-level operations populate and
// mutate the one instance they were called on; no operation allocates a
// replacement mid-flight.
type Instance struct {
	meta  *schema.Relationship
	state State
	conn  database.Connector
	core  *schema.FieldSet
	log   *zap.Logger
	row   map[string]any
}

// Option configures an Instance.
type Option func(*Instance)

// WithConnector attaches the persistence seam used by row operations.
func WithConnector(conn database.Connector) Option {
	return func(i *Instance) { i.conn = conn }
}

// WithCoreFields supplies the core field set merged into the relationship's
// layout during resolution.
func WithCoreFields(core *schema.FieldSet) Option {
	return func(i *Instance) { i.core = core }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(i *Instance) { i.log = log }
}

// New wraps relationship metadata in a lifecycle instance. Metadata that
// arrives already resolved, such as entries served from a warm cache,
// starts in the ready state.
func New(meta *schema.Relationship, opts ...Option) *Instance {
	inst := &Instance{meta: meta, log: zap.NewNop()}
	for _, opt := range opts {
		opt(inst)
	}
	if meta != nil && meta.Resolved {
		inst.state = StateReady
	}
	return inst
}

// Meta returns the wrapped metadata.
func (i *Instance) Meta() *schema.Relationship { return i.meta }

// State returns the lifecycle state.
func (i *Instance) State() State { return i.state }

// Validate confirms required keys and advances to the validated state.
func (i *Instance) Validate() error {
	if i.state >= StateValidated {
		return nil
	}
	if err := Validate(i.meta); err != nil {
		return err
	}
	i.state = StateValidated
	return nil
}

// Resolve generates the table name and field layout and advances to ready.
func (i *Instance) Resolve() error {
	if i.state >= StateReady {
		return nil
	}
	if err := i.Validate(); err != nil {
		return err
	}
	if err := Resolve(i.meta, i.core, i.log); err != nil {
		return err
	}
	i.state = StateReady
	return nil
}

// Ready reports whether the instance can serve row operations.
func (i *Instance) Ready() bool { return i.state == StateReady }

// ModelIDField maps a participant name to its generated key field name.
func (i *Instance) ModelIDField(participant string) (string, error) {
	return ModelIDField(i.meta, participant)
}

// HandleModelDeletion applies the cascade policy for one participant row
// being deleted. Restrict fails with a ConstraintError while active related
// rows exist and is a successful no-op otherwise; cascade and softDelete
// both bulk soft-delete the related rows; anything else is a SchemaError.
func (i *Instance) HandleModelDeletion(ctx context.Context, entity string, entityID any, action schema.CascadeAction, actor any) (bool, error) {
	if err := i.Resolve(); err != nil {
		return false, err
	}
	if i.conn == nil {
		return false, errs.NewConfiguration(i.meta.Name, errNoConnector)
	}
	keyField, err := i.ModelIDField(entity)
	if err != nil {
		return false, err
	}

	switch action {
	case schema.CascadeRestrict:
		exists, err := i.conn.RecordExists(ctx, i.meta.Table, map[string]any{
			keyField:     entityID,
			"deleted_at": nil,
		})
		if err != nil {
			return false, err
		}
		if exists {
			return false, errs.NewConstraint(entity, i.meta.Name, i.meta.Table)
		}
		return true, nil

	case schema.CascadeDelete, schema.CascadeSoftDelete:
		count, err := i.conn.SoftDeleteWhere(ctx, i.meta.Table, map[string]any{
			keyField: entityID,
		}, database.Stamp(actor))
		if err != nil {
			return false, err
		}
		i.log.Debug("cascaded relationship rows",
			zap.String("relationship", i.meta.Name),
			zap.String("entity", entity),
			zap.Int64("rows", count))
		return true, nil
	}

	return false, errs.Schemaf(i.meta.Name, "unknown cascade action %q", action.String())
}

// Remove soft-deletes the one active row joining the two participant ids,
// in participant order. A missing row is logged and reported as false, not
// an error. A found row is loaded into this same instance, stamped with
// deletion audit fields, and persisted.
func (i *Instance) Remove(ctx context.Context, idA, idB any, actor any) (bool, error) {
	if err := i.Resolve(); err != nil {
		return false, err
	}
	if i.conn == nil {
		return false, errs.NewConfiguration(i.meta.Name, errNoConnector)
	}
	participants := i.meta.Participants()
	fieldA, err := i.ModelIDField(participants[0])
	if err != nil {
		return false, err
	}
	fieldB, err := i.ModelIDField(participants[1])
	if err != nil {
		return false, err
	}

	rows, err := i.conn.Find(ctx, i.meta.Table, map[string]any{
		fieldA:       idA,
		fieldB:       idB,
		"deleted_at": nil,
	}, nil, database.QueryParams{Limit: 1, IncludeDeleted: true})
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		i.log.Info("no active relationship row to remove",
			zap.String("relationship", i.meta.Name),
			zap.Any(fieldA, idA),
			zap.Any(fieldB, idB))
		return false, nil
	}

	i.row = rows[0]
	i.SetColumn("deleted_at", time.Now().UTC())
	i.SetColumn("deleted_by", actor)
	if err := i.conn.Update(ctx, i); err != nil {
		return false, err
	}
	return true, nil
}

// Row returns the row data currently held by the instance.
func (i *Instance) Row() map[string]any { return i.row }

// Table implements database.Record.
func (i *Instance) Table() string { return i.meta.Table }

// PrimaryKey implements database.Record.
func (i *Instance) PrimaryKey() (string, any) {
	if i.row == nil {
		return "id", nil
	}
	return "id", i.row["id"]
}

// Columns implements database.Record.
func (i *Instance) Columns() map[string]any {
	out := make(map[string]any, len(i.row))
	for k, v := range i.row {
		out[k] = v
	}
	return out
}

// SetColumn implements database.Record.
func (i *Instance) SetColumn(column string, value any) {
	if i.row == nil {
		i.row = make(map[string]any)
	}
	i.row[column] = value
}
