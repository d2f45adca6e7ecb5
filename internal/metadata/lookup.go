package metadata

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/errs"
	"github.com/trestlehq/trestle/internal/fieldtypes"
	"github.com/trestlehq/trestle/internal/rules"
	"github.com/trestlehq/trestle/internal/schema"
)

// Entity returns the named entity's metadata. Lookup is exact and
// case-sensitive against the warm cache; a miss is a NotFoundError carrying
// the available names and never triggers a rescan.
func (e *Engine) Entity(ctx context.Context, name string) (*schema.Entity, error) {
	snap, err := e.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	entity, ok := snap.Entities[name]
	if !ok {
		return nil, errs.NewNotFound("entity", name, entityNames(snap))
	}
	return entity, nil
}

// Relationship returns the named relationship's resolved metadata, with the
// same exact-match contract as Entity.
func (e *Engine) Relationship(ctx context.Context, name string) (*schema.Relationship, error) {
	snap, err := e.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	rel, ok := snap.Relationships[name]
	if !ok {
		return nil, errs.NewNotFound("relationship", name, relationshipNames(snap))
	}
	return rel, nil
}

// AvailableEntities returns the loaded entity names sorted.
func (e *Engine) AvailableEntities(ctx context.Context) ([]string, error) {
	snap, err := e.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return entityNames(snap), nil
}

// EntityExists reports whether the named entity is loaded. Load failures
// are logged and reported as absence.
func (e *Engine) EntityExists(ctx context.Context, name string) bool {
	snap, err := e.LoadAll(ctx)
	if err != nil {
		e.log.Warn("entity existence check failed", zap.String("entity", name), zap.Error(err))
		return false
	}
	_, ok := snap.Entities[name]
	return ok
}

// AllRelationships returns every loaded relationship keyed by name, both
// standalone definitions and those nested under entities. Nested entries
// carry their owning entity name.
func (e *Engine) AllRelationships(ctx context.Context) (map[string]*schema.Relationship, error) {
	snap, err := e.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*schema.Relationship, len(snap.Relationships))
	for name, rel := range snap.Relationships {
		out[name] = rel
	}
	return out, nil
}

// RelationshipsFor returns the relationships the named entity participates
// in, sorted by name.
func (e *Engine) RelationshipsFor(ctx context.Context, entity string) ([]*schema.Relationship, error) {
	snap, err := e.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*schema.Relationship
	for _, name := range relationshipNames(snap) {
		if rel := snap.Relationships[name]; rel.Involves(entity) {
			out = append(out, rel)
		}
	}
	return out, nil
}

// FieldTypeDefinitions returns the field type catalog.
func (e *Engine) FieldTypeDefinitions(ctx context.Context) (map[string]fieldtypes.TypeDescriptor, error) {
	snap, err := e.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return snap.FieldTypes, nil
}

// RuleDefinitions returns the validation rule catalog.
func (e *Engine) RuleDefinitions(ctx context.Context) (map[string]rules.RuleDescriptor, error) {
	snap, err := e.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return snap.RuleTypes, nil
}

// ClearEntity drops one entity from the cache and sends the engine back to
// the cold path; the next lookup rebuilds from sources. The cache store is
// cleared too so the stale blob cannot resurrect the entry.
func (e *Engine) ClearEntity(ctx context.Context, name string) {
	var class string
	e.mu.Lock()
	if e.snap != nil {
		if entity, ok := e.snap.Entities[name]; ok {
			class = entity.Class
		}
		delete(e.snap.Entities, name)
	}
	e.state = StateCold
	e.mu.Unlock()

	if class != "" {
		e.provider.InvalidateClass(class)
	}
	e.clearStore(ctx)
}

// ClearAll drops the whole cache, the provider's merged core field entries,
// and the cache store blob.
func (e *Engine) ClearAll(ctx context.Context) {
	e.mu.Lock()
	e.snap = nil
	e.state = StateCold
	e.mu.Unlock()

	e.provider.InvalidateAll()
	e.clearStore(ctx)
}

func (e *Engine) clearStore(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.Clear(ctx); err != nil {
		e.log.Warn("cache store clear failed", zap.Error(err))
	}
}

// ResolveEntityIdentifier strips any namespace qualification from a raw
// identifier, leaving the simple entity name. Separators handled are
// backslash, slash and dot; the empty string maps to itself.
func ResolveEntityIdentifier(raw string) string {
	name := raw
	for _, sep := range []string{"\\", "/", "."} {
		if i := strings.LastIndex(name, sep); i >= 0 {
			name = name[i+len(sep):]
		}
	}
	return name
}

func entityNames(snap *Snapshot) []string {
	out := make([]string, 0, len(snap.Entities))
	for name := range snap.Entities {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func relationshipNames(snap *Snapshot) []string {
	out := make([]string, 0, len(snap.Relationships))
	for name := range snap.Relationships {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedEntities(entities map[string]*schema.Entity) []*schema.Entity {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*schema.Entity, 0, len(names))
	for _, name := range names {
		out = append(out, entities[name])
	}
	return out
}
