package schema

import (
	"fmt"

	"go.uber.org/zap"
)

// Override keys that can never change an existing field's identity. A core
// field stays the field it is; attempts to rename or retype it are dropped
// with a warning and the remaining overrides still apply.
const (
	overrideKeyName = "name"
	overrideKeyType = "type"
)

// FieldDescriptor is the fully resolved description of a single entity or
// relationship field. Descriptors are built either from a schema source file
// or programmatically, then merged and annotated by the metadata engine.
type FieldDescriptor struct {
	// Name is the canonical field name, unique within its FieldSet.
	Name string `yaml:"name" msgpack:"name"`
	// Kind is the declared field type.
	Kind Kind `yaml:"type" msgpack:"type"`
	// Label is the human-readable form shown in generated surfaces.
	Label string `yaml:"label" msgpack:"label"`

	Required bool `yaml:"required" msgpack:"required"`
	ReadOnly bool `yaml:"readOnly" msgpack:"readOnly"`
	Unique   bool `yaml:"unique" msgpack:"unique"`
	// DBField reports whether the field is backed by a table column.
	// Computed and presentation-only fields set it to false.
	DBField bool `yaml:"dbField" msgpack:"dbField"`

	// Rules names the validation rules applied on write, in order.
	Rules []string `yaml:"rules" msgpack:"rules"`
	// Operators lists the filter operators the field supports. Empty means
	// the defaults for the field's kind apply.
	Operators []string `yaml:"operators" msgpack:"operators"`

	// Default is the value assumed when a write omits the field.
	Default any `yaml:"default" msgpack:"default"`

	// Options holds the static choice list for Enum, MultiEnum and
	// RadioButtonSet fields.
	Options []string `yaml:"options" msgpack:"options"`
	// OptionsProvider names a registered dynamic option source. When set it
	// takes precedence over Options at resolution time.
	OptionsProvider string `yaml:"optionsProvider" msgpack:"optionsProvider"`

	// RelatedModel names the target entity for RelatedRecord fields and for
	// the foreign key fields generated by relationship resolution.
	RelatedModel string `yaml:"relatedModel" msgpack:"relatedModel"`

	// Annotations carries schema keys the engine does not interpret.
	Annotations map[string]any `yaml:"annotations" msgpack:"annotations"`
}

// NewFieldDescriptor builds a descriptor with the defaults every field
// starts from: database-backed, optional, labeled from its name.
func NewFieldDescriptor(name string, kind Kind) (*FieldDescriptor, error) {
	if name == "" {
		return nil, fmt.Errorf("field name cannot be empty")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("field %q: invalid kind", name)
	}
	return &FieldDescriptor{
		Name:    name,
		Kind:    kind,
		Label:   HumanizeLabel(name),
		DBField: true,
	}, nil
}

// Clone returns a deep copy of the descriptor. Slice and map members are
// copied so callers can mutate the clone freely.
func (f *FieldDescriptor) Clone() *FieldDescriptor {
	if f == nil {
		return nil
	}
	c := *f
	c.Rules = append([]string(nil), f.Rules...)
	c.Operators = append([]string(nil), f.Operators...)
	c.Options = append([]string(nil), f.Options...)
	if f.Annotations != nil {
		c.Annotations = make(map[string]any, len(f.Annotations))
		for k, v := range f.Annotations {
			c.Annotations[k] = v
		}
	}
	return &c
}

// ApplyOverrides returns a copy of f with the given schema overrides merged
// in. The name and type keys are protected: overriding either is dropped
// with a warning while every other key in the same override map still lands.
func (f *FieldDescriptor) ApplyOverrides(overrides map[string]any, log *zap.Logger) *FieldDescriptor {
	out := f.Clone()
	if len(overrides) == 0 {
		return out
	}
	if log == nil {
		log = zap.NewNop()
	}
	for key, value := range overrides {
		switch key {
		case overrideKeyName, overrideKeyType:
			log.Warn("ignoring protected field override",
				zap.String("field", f.Name),
				zap.String("key", key))
		case "label":
			if s, ok := asString(value); ok {
				out.Label = s
			}
		case "required":
			if b, ok := asBool(value); ok {
				out.Required = b
			}
		case "readOnly":
			if b, ok := asBool(value); ok {
				out.ReadOnly = b
			}
		case "unique":
			if b, ok := asBool(value); ok {
				out.Unique = b
			}
		case "dbField":
			if b, ok := asBool(value); ok {
				out.DBField = b
			}
		case "rules":
			if list, ok := asStringSlice(value); ok {
				out.Rules = list
			}
		case "operators":
			if list, ok := asStringSlice(value); ok {
				out.Operators = list
			}
		case "default":
			out.Default = value
		case "options":
			if list, ok := asStringSlice(value); ok {
				out.Options = list
			}
		case "optionsProvider":
			if s, ok := asString(value); ok {
				out.OptionsProvider = s
			}
		case "relatedModel":
			if s, ok := asString(value); ok {
				out.RelatedModel = s
			}
		default:
			if out.Annotations == nil {
				out.Annotations = make(map[string]any)
			}
			out.Annotations[key] = value
		}
	}
	return out
}

// HasOptions reports whether the field carries a choice list, static or
// provider-backed.
func (f *FieldDescriptor) HasOptions() bool {
	return len(f.Options) > 0 || f.OptionsProvider != ""
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asStringSlice(v any) ([]string, bool) {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...), true
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
