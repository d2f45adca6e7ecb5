// Package fieldtypes implements the built-in field kinds and the catalog
// that describes them to API and UI consumers.
package fieldtypes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/trestlehq/trestle/internal/schema"
)

// Filter operators fields can declare support for.
const (
	OpEq         = "eq"
	OpNeq        = "neq"
	OpContains   = "contains"
	OpStartsWith = "startsWith"
	OpEndsWith   = "endsWith"
	OpIn         = "in"
	OpGt         = "gt"
	OpGte        = "gte"
	OpLt         = "lt"
	OpLte        = "lte"
	OpBetween    = "between"
	OpIsNull     = "isNull"
	OpNotNull    = "notNull"
	OpOverlaps   = "overlaps"
)

// Field is a live, typed field materialized from a descriptor. Instances
// normalize raw write values and report the capabilities the catalog and
// the query layer rely on.
type Field interface {
	// Kind returns the field's declared kind.
	Kind() schema.Kind
	// Descriptor returns the descriptor the field was built from.
	Descriptor() *schema.FieldDescriptor
	// Component names the UI widget that renders the field.
	Component() string
	// Operators lists the filter operators the field supports. Descriptor
	// overrides win over the kind's defaults.
	Operators() []string
	// ApplicableRules lists validation rule names that make sense for the
	// kind, used by schema tooling to offer choices.
	ApplicableRules() []string
	// Description is a one-line human description of the kind.
	Description() string
	// Normalize coerces a raw write value into the field's storage shape.
	Normalize(value any) (any, error)
}

// Constructor builds a Field from its descriptor. Constructors reject
// descriptors declaring a different kind.
type Constructor func(desc *schema.FieldDescriptor) (Field, error)

// Registry maps field kinds to constructors. The default registry carries
// every built-in kind; callers may register replacements or extensions.
type Registry struct {
	mu    sync.RWMutex
	ctors map[schema.Kind]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[schema.Kind]Constructor)}
}

// DefaultRegistry returns a registry populated with all built-in kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(schema.KindID, newID)
	r.Register(schema.KindText, newText)
	r.Register(schema.KindBigText, newBigText)
	r.Register(schema.KindEmail, newEmail)
	r.Register(schema.KindInteger, newInteger)
	r.Register(schema.KindFloat, newFloat)
	r.Register(schema.KindBoolean, newBoolean)
	r.Register(schema.KindDate, newDate)
	r.Register(schema.KindDateTime, newDateTime)
	r.Register(schema.KindEnum, newEnum)
	r.Register(schema.KindMultiEnum, newMultiEnum)
	r.Register(schema.KindRelatedRecord, newRelatedRecord)
	r.Register(schema.KindImage, newImage)
	r.Register(schema.KindVideo, newVideo)
	r.Register(schema.KindPassword, newPassword)
	r.Register(schema.KindRadioButtonSet, newRadioButtonSet)
	return r
}

// Register installs or replaces the constructor for a kind.
func (r *Registry) Register(kind schema.Kind, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[kind] = ctor
}

// New materializes a field from its descriptor.
func (r *Registry) New(desc *schema.FieldDescriptor) (Field, error) {
	if desc == nil {
		return nil, fmt.Errorf("field descriptor cannot be nil")
	}
	r.mu.RLock()
	ctor, ok := r.ctors[desc.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no field implementation registered for type %q", desc.Kind)
	}
	return ctor(desc)
}

// Kinds returns the registered kinds in canonical declaration order, with
// any extension kinds appended in numeric order.
func (r *Registry) Kinds() []schema.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schema.Kind, 0, len(r.ctors))
	for kind := range r.ctors {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// base carries the descriptor handle shared by every built-in field.
type base struct {
	desc *schema.FieldDescriptor
}

func (b *base) Descriptor() *schema.FieldDescriptor { return b.desc }
func (b *base) Kind() schema.Kind                   { return b.desc.Kind }

// operators applies the descriptor override rule shared by all kinds.
func (b *base) operators(defaults []string) []string {
	if len(b.desc.Operators) > 0 {
		return append([]string(nil), b.desc.Operators...)
	}
	return append([]string(nil), defaults...)
}

// guardKind rejects descriptors whose declared kind does not match the
// constructor being invoked.
func guardKind(desc *schema.FieldDescriptor, want schema.Kind) error {
	if desc.Kind != want {
		return fmt.Errorf("descriptor %q declares type %s, constructor builds %s",
			desc.Name, desc.Kind, want)
	}
	return nil
}
