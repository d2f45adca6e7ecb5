// Package model is the entity runtime: live records that materialize typed
// field and relationship objects lazily from the metadata engine and apply
// cascade policy on deletion.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/database"
	"github.com/trestlehq/trestle/internal/errs"
	"github.com/trestlehq/trestle/internal/fieldtypes"
	"github.com/trestlehq/trestle/internal/metadata"
	"github.com/trestlehq/trestle/internal/relationship"
	"github.com/trestlehq/trestle/internal/rules"
	"github.com/trestlehq/trestle/internal/schema"
)

// Model is one live entity record. It references the engine's shared
// metadata rather than owning a copy, and holds the row's column values.
type Model struct {
	meta   *schema.Entity
	engine *metadata.Engine
	conn   database.Connector
	log    *zap.Logger
	actor  any

	values map[string]any
	exists bool

	fields map[string]fieldtypes.Field
	rels   map[string]*relationship.Instance
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Model) { m.log = log }
}

// WithActor records who performs writes, stamped into the audit fields.
func WithActor(actor any) Option {
	return func(m *Model) { m.actor = actor }
}

// New builds a record for the named entity. The entity must exist in the
// engine's metadata; a miss propagates the engine's NotFoundError.
func New(ctx context.Context, engine *metadata.Engine, conn database.Connector, entityName string, opts ...Option) (*Model, error) {
	meta, err := engine.Entity(ctx, entityName)
	if err != nil {
		return nil, err
	}
	m := &Model{
		meta:   meta,
		engine: engine,
		conn:   conn,
		log:    zap.NewNop(),
		values: make(map[string]any),
		fields: make(map[string]fieldtypes.Field),
		rels:   make(map[string]*relationship.Instance),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Meta returns the entity metadata the record is built on.
func (m *Model) Meta() *schema.Entity { return m.meta }

// Exists reports whether the record is backed by a persisted row.
func (m *Model) Exists() bool { return m.exists }

// ID returns the primary key value, nil before the first save.
func (m *Model) ID() any { return m.values["id"] }

// Field materializes the typed field object for name. Instances are cached
// per record.
func (m *Model) Field(name string) (fieldtypes.Field, error) {
	if f, ok := m.fields[name]; ok {
		return f, nil
	}
	desc, ok := m.meta.Field(name)
	if !ok {
		return nil, errs.NewNotFound("field", name, m.meta.FieldNames())
	}
	f, err := m.engine.FieldRegistry().New(desc)
	if err != nil {
		return nil, err
	}
	m.fields[name] = f
	return f, nil
}

// Relationship materializes the named relationship as a live instance bound
// to this record's connector. Instances are cached per record.
func (m *Model) Relationship(ctx context.Context, name string) (*relationship.Instance, error) {
	if inst, ok := m.rels[name]; ok {
		return inst, nil
	}
	meta, err := m.engine.Relationship(ctx, name)
	if err != nil {
		return nil, err
	}
	inst := relationship.New(meta,
		relationship.WithConnector(m.conn),
		relationship.WithLogger(m.log))
	m.rels[name] = inst
	return inst, nil
}

// Relationships returns live instances for every relationship this entity
// participates in.
func (m *Model) Relationships(ctx context.Context) ([]*relationship.Instance, error) {
	metas, err := m.engine.RelationshipsFor(ctx, m.meta.Name)
	if err != nil {
		return nil, err
	}
	out := make([]*relationship.Instance, 0, len(metas))
	for _, meta := range metas {
		if inst, ok := m.rels[meta.Name]; ok {
			out = append(out, inst)
			continue
		}
		inst := relationship.New(meta,
			relationship.WithConnector(m.conn),
			relationship.WithLogger(m.log))
		m.rels[meta.Name] = inst
		out = append(out, inst)
	}
	return out, nil
}

// Get returns the current value of a field.
func (m *Model) Get(name string) any { return m.values[name] }

// Set normalizes and stores a field value. Unknown fields are a
// NotFoundError; read-only fields are refused.
func (m *Model) Set(name string, value any) error {
	desc, ok := m.meta.Field(name)
	if !ok {
		return errs.NewNotFound("field", name, m.meta.FieldNames())
	}
	if desc.ReadOnly {
		return fmt.Errorf("field %q is read-only", name)
	}
	field, err := m.Field(name)
	if err != nil {
		return err
	}
	normalized, err := field.Normalize(value)
	if err != nil {
		return err
	}
	m.values[name] = normalized
	return nil
}

// setRaw bypasses the read-only guard for runtime-managed stamps.
func (m *Model) setRaw(name string, value any) {
	m.values[name] = value
}

// Load reads the row with the given id into the record. A missing or
// soft-deleted row is database.ErrNotFound.
func (m *Model) Load(ctx context.Context, id any) error {
	rows, err := m.conn.Find(ctx, m.meta.Table, map[string]any{"id": id}, nil, database.QueryParams{Limit: 1})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return database.ErrNotFound
	}
	m.values = rows[0]
	m.exists = true
	return nil
}

// Populate replaces the record's values wholesale, marking it persisted.
// Used when rows arrive from a bulk query.
func (m *Model) Populate(row map[string]any) {
	m.values = make(map[string]any, len(row))
	for k, v := range row {
		m.values[k] = v
	}
	m.exists = true
}

// Validate runs every configured rule for every field against the current
// values. Fields flagged required are checked even without an explicit
// Required rule.
func (m *Model) Validate() error {
	var failures []*rules.RuleError
	registry := m.engine.RuleRegistry()
	for _, desc := range m.meta.Fields.Fields() {
		specs := desc.Rules
		if desc.Required && !containsRule(specs, "Required") {
			specs = append([]string{"Required"}, specs...)
		}
		resolved := registry.Resolve(specs, m.log)
		value := m.values[desc.Name]
		for _, rule := range resolved {
			if err := rule.Validate(desc.Name, value); err != nil {
				var ruleErr *rules.RuleError
				if errors.As(err, &ruleErr) {
					failures = append(failures, ruleErr)
				} else {
					return err
				}
			}
		}
	}
	if len(failures) > 0 {
		return &ValidationError{Errors: failures}
	}
	return nil
}

// Save validates and persists the record, stamping audit fields. New
// records receive a generated id.
func (m *Model) Save(ctx context.Context) error {
	now := time.Now().UTC()
	if !m.exists {
		if m.values["id"] == nil {
			m.setRaw("id", uuid.NewString())
		}
		m.setRaw("created_at", now)
		m.setRaw("created_by", m.actor)
	}
	m.setRaw("updated_at", now)
	m.setRaw("updated_by", m.actor)

	if err := m.Validate(); err != nil {
		return err
	}

	if m.exists {
		return m.conn.Update(ctx, m)
	}
	if err := m.conn.Create(ctx, m); err != nil {
		return err
	}
	m.exists = true
	return nil
}

// Delete applies each relationship's cascade policy and then soft-deletes
// the record. A restrict policy with active related rows aborts with the
// resolver's ConstraintError before anything is touched.
func (m *Model) Delete(ctx context.Context) error {
	if !m.exists {
		return database.ErrNotFound
	}
	if err := m.applyCascades(ctx); err != nil {
		return err
	}
	return m.conn.SoftDelete(ctx, m, database.Stamp(m.actor))
}

// HardDelete removes the row permanently, applying cascade policy first.
func (m *Model) HardDelete(ctx context.Context) error {
	if !m.exists {
		return database.ErrNotFound
	}
	if err := m.applyCascades(ctx); err != nil {
		return err
	}
	return m.conn.HardDelete(ctx, m)
}

// applyCascades runs every relationship's deletion policy for this record.
// Restrict checks run first so a constraint failure aborts before any
// cascade has mutated related rows.
func (m *Model) applyCascades(ctx context.Context) error {
	instances, err := m.Relationships(ctx)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		if inst.Meta().OnDelete != schema.CascadeRestrict {
			continue
		}
		if _, err := inst.HandleModelDeletion(ctx, m.meta.Name, m.ID(), schema.CascadeRestrict, m.actor); err != nil {
			return err
		}
	}
	for _, inst := range instances {
		if inst.Meta().OnDelete == schema.CascadeRestrict {
			continue
		}
		if _, err := inst.HandleModelDeletion(ctx, m.meta.Name, m.ID(), inst.Meta().OnDelete, m.actor); err != nil {
			return err
		}
	}
	return nil
}

// Table implements database.Record.
func (m *Model) Table() string { return m.meta.Table }

// PrimaryKey implements database.Record.
func (m *Model) PrimaryKey() (string, any) { return "id", m.values["id"] }

// Columns implements database.Record, limited to database-backed fields.
func (m *Model) Columns() map[string]any {
	out := make(map[string]any, len(m.values))
	for name, value := range m.values {
		if desc, ok := m.meta.Field(name); ok && !desc.DBField {
			continue
		}
		out[name] = value
	}
	return out
}

// SetColumn implements database.Record for connector write-backs.
func (m *Model) SetColumn(column string, value any) { m.setRaw(column, value) }

func containsRule(specs []string, name string) bool {
	for _, spec := range specs {
		if spec == name || len(spec) > len(name) && spec[:len(name)+1] == name+":" {
			return true
		}
	}
	return false
}
