package metadata

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/fieldtypes"
	"github.com/trestlehq/trestle/internal/relationship"
	"github.com/trestlehq/trestle/internal/rules"
	"github.com/trestlehq/trestle/internal/schema"
)

// LoadAll returns the warm snapshot, building it first if necessary. A warm
// engine answers from memory with no source or store I/O. Concurrent
// callers share one in-flight build.
func (e *Engine) LoadAll(ctx context.Context) (*Snapshot, error) {
	e.mu.RLock()
	if e.state == StateWarm && e.snap != nil {
		snap := e.snap
		e.mu.RUnlock()
		return snap, nil
	}
	e.mu.RUnlock()

	v, err, _ := e.group.Do("load", func() (any, error) {
		return e.load(ctx, false)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Reload discards the warm cache and rebuilds from the schema sources,
// bypassing the cache store on the way in and rewriting it on the way out.
func (e *Engine) Reload(ctx context.Context) (*Snapshot, error) {
	v, err, _ := e.group.Do("load", func() (any, error) {
		return e.load(ctx, true)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (e *Engine) load(ctx context.Context, force bool) (*Snapshot, error) {
	e.mu.Lock()
	if !force && e.state == StateWarm && e.snap != nil {
		snap := e.snap
		e.mu.Unlock()
		return snap, nil
	}
	e.state = StateLoading
	e.mu.Unlock()

	if !force && e.store != nil {
		snap, ok, err := e.store.Load(ctx)
		switch {
		case err != nil:
			e.log.Warn("cache store read failed, falling back to scan", zap.Error(err))
		case ok:
			e.log.Info("metadata served from cache store",
				zap.String("generation", snap.Generation),
				zap.Int("entities", len(snap.Entities)))
			e.install(snap)
			return snap, nil
		}
	}

	snap, err := e.build(ctx)
	if err != nil {
		e.mu.Lock()
		e.state = StateCold
		e.mu.Unlock()
		return nil, err
	}

	if e.store != nil {
		if err := e.store.Save(ctx, snap); err != nil {
			e.log.Warn("cache store write failed", zap.Error(err))
		}
	}
	e.install(snap)
	return snap, nil
}

func (e *Engine) install(snap *Snapshot) {
	e.mu.Lock()
	e.snap = snap
	e.state = StateWarm
	e.mu.Unlock()
}

// build scans every schema source and produces a fresh snapshot. Individual
// malformed sources are logged and excluded; only a missing entity
// directory or a broken core field template aborts the build.
func (e *Engine) build(ctx context.Context) (*Snapshot, error) {
	started := time.Now()

	fieldTypes := fieldtypes.Catalog(e.fields, e.log)
	ruleTypes := rules.Catalog(e.rules, e.log)

	standardCore, err := e.provider.StandardCoreFields()
	if err != nil {
		return nil, err
	}

	entities, err := e.buildEntities(ctx, fieldTypes)
	if err != nil {
		return nil, err
	}
	relationships := e.buildRelationships(entities, standardCore)

	snap := &Snapshot{
		Entities:      entities,
		Relationships: relationships,
		FieldTypes:    fieldTypes,
		RuleTypes:     ruleTypes,
		Generation:    ulid.Make().String(),
		BuiltAt:       time.Now().UTC(),
	}
	e.log.Info("metadata load complete",
		zap.String("generation", snap.Generation),
		zap.Int("entities", len(entities)),
		zap.Int("relationships", len(relationships)),
		zap.Duration("elapsed", time.Since(started)))
	return snap, nil
}

func (e *Engine) buildEntities(ctx context.Context, fieldTypes map[string]fieldtypes.TypeDescriptor) (map[string]*schema.Entity, error) {
	items, err := e.source.Entities()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*schema.Entity, len(items))
	for _, item := range items {
		entity, err := schema.DecodeEntity(item.Name, item.Data)
		if err != nil {
			e.log.Warn("skipping malformed entity schema",
				zap.String("entity", item.Name),
				zap.String("path", item.Path),
				zap.Error(err))
			continue
		}
		entity.SourcePath = item.Path

		core, err := e.provider.AllCoreFieldsForModel(entity.Class)
		if err != nil {
			return nil, err
		}
		merged := core
		merged.Merge(entity.Fields)
		entity.Fields = merged

		e.resolveFieldExtras(ctx, entity.Name, entity.Fields, fieldTypes)
		out[entity.Name] = entity
	}
	return out, nil
}

// resolveFieldExtras fills dynamic option lists and default operator sets
// on every field of the set. An option source failure leaves that field's
// options empty and is logged, never fatal.
func (e *Engine) resolveFieldExtras(ctx context.Context, owner string, fields *schema.FieldSet, fieldTypes map[string]fieldtypes.TypeDescriptor) {
	for _, field := range fields.Fields() {
		if field.OptionsProvider != "" {
			resolved, err := e.options.Resolve(ctx, field.OptionsProvider)
			if err != nil {
				e.log.Warn("dynamic options unavailable",
					zap.String("entity", owner),
					zap.String("field", field.Name),
					zap.String("provider", field.OptionsProvider),
					zap.Error(err))
				field.Options = nil
			} else {
				field.Options = resolved
			}
		}
		if len(field.Operators) == 0 {
			if td, ok := fieldTypes[field.Kind.String()]; ok {
				field.Operators = append([]string(nil), td.Operators...)
			}
		}
	}
}

// buildRelationships resolves standalone relationship sources plus the
// definitions nested under each entity. Standalone definitions win a name
// collision with a nested one.
func (e *Engine) buildRelationships(entities map[string]*schema.Entity, core *schema.FieldSet) map[string]*schema.Relationship {
	out := make(map[string]*schema.Relationship)

	items, err := e.source.Relationships()
	if err != nil {
		e.log.Warn("relationship schema scan failed", zap.Error(err))
		items = nil
	}
	for _, item := range items {
		rel, err := schema.DecodeRelationship(item.Name, item.Data)
		if err != nil {
			e.log.Warn("skipping malformed relationship schema",
				zap.String("relationship", item.Name),
				zap.String("path", item.Path),
				zap.Error(err))
			continue
		}
		rel.SourcePath = item.Path
		e.admitRelationship(out, rel, entities, core)
	}

	for _, entity := range sortedEntities(entities) {
		for _, rel := range entity.Nested {
			if existing, ok := out[rel.Name]; ok {
				e.log.Warn("nested relationship shadowed by an existing definition",
					zap.String("relationship", rel.Name),
					zap.String("entity", entity.Name),
					zap.String("existing", existing.SourcePath))
				continue
			}
			rel.SourcePath = entity.SourcePath
			e.admitRelationship(out, rel, entities, core)
		}
	}
	return out
}

func (e *Engine) admitRelationship(out map[string]*schema.Relationship, rel *schema.Relationship, entities map[string]*schema.Entity, core *schema.FieldSet) {
	if err := relationship.Resolve(rel, core, e.log); err != nil {
		e.log.Warn("skipping invalid relationship",
			zap.String("relationship", rel.Name),
			zap.Error(err))
		return
	}
	for _, participant := range rel.Participants() {
		if _, ok := entities[participant]; !ok {
			e.log.Warn("relationship references an unknown entity",
				zap.String("relationship", rel.Name),
				zap.String("entity", participant))
		}
	}
	out[rel.Name] = rel
}
