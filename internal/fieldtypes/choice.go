package fieldtypes

import (
	"fmt"

	"github.com/trestlehq/trestle/internal/schema"
)

// EnumField stores one value from a fixed option list. Membership is only
// enforced when the descriptor carries options; a provider-backed field
// whose options failed to resolve accepts any string.
type EnumField struct{ base }

func newEnum(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindEnum); err != nil {
		return nil, err
	}
	return &EnumField{base{desc}}, nil
}

func (f *EnumField) Component() string   { return "select" }
func (f *EnumField) Description() string { return "One choice from a fixed list" }
func (f *EnumField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpIn, OpIsNull, OpNotNull})
}
func (f *EnumField) ApplicableRules() []string {
	return []string{"Required", "In"}
}

func (f *EnumField) Normalize(value any) (any, error) {
	s, err := normalizeString(f.desc.Name, value)
	if err != nil || s == nil {
		return s, err
	}
	choice := s.(string)
	if len(f.desc.Options) > 0 && !containsOption(f.desc.Options, choice) {
		return nil, fmt.Errorf("field %q: %q is not one of the allowed options", f.desc.Name, choice)
	}
	return choice, nil
}

// MultiEnumField stores a set of values from a fixed option list.
type MultiEnumField struct{ base }

func newMultiEnum(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindMultiEnum); err != nil {
		return nil, err
	}
	return &MultiEnumField{base{desc}}, nil
}

func (f *MultiEnumField) Component() string   { return "multiselect" }
func (f *MultiEnumField) Description() string { return "Multiple choices from a fixed list" }
func (f *MultiEnumField) Operators() []string {
	return f.operators([]string{OpContains, OpOverlaps, OpIsNull, OpNotNull})
}
func (f *MultiEnumField) ApplicableRules() []string {
	return []string{"Required", "In"}
}

func (f *MultiEnumField) Normalize(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	var choices []string
	switch v := value.(type) {
	case []string:
		choices = append(choices, v...)
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %q: expected strings, got %T", f.desc.Name, item)
			}
			choices = append(choices, s)
		}
	case string:
		choices = []string{v}
	default:
		return nil, fmt.Errorf("field %q: expected a list of strings, got %T", f.desc.Name, value)
	}
	if len(f.desc.Options) > 0 {
		for _, choice := range choices {
			if !containsOption(f.desc.Options, choice) {
				return nil, fmt.Errorf("field %q: %q is not one of the allowed options", f.desc.Name, choice)
			}
		}
	}
	return choices, nil
}

// RadioButtonSetField is an enum rendered as radio buttons. Storage and
// membership behavior match EnumField.
type RadioButtonSetField struct{ base }

func newRadioButtonSet(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindRadioButtonSet); err != nil {
		return nil, err
	}
	return &RadioButtonSetField{base{desc}}, nil
}

func (f *RadioButtonSetField) Component() string   { return "radio-group" }
func (f *RadioButtonSetField) Description() string { return "One choice rendered as radio buttons" }
func (f *RadioButtonSetField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpIn, OpIsNull, OpNotNull})
}
func (f *RadioButtonSetField) ApplicableRules() []string {
	return []string{"Required", "In"}
}

func (f *RadioButtonSetField) Normalize(value any) (any, error) {
	s, err := normalizeString(f.desc.Name, value)
	if err != nil || s == nil {
		return s, err
	}
	choice := s.(string)
	if len(f.desc.Options) > 0 && !containsOption(f.desc.Options, choice) {
		return nil, fmt.Errorf("field %q: %q is not one of the allowed options", f.desc.Name, choice)
	}
	return choice, nil
}

func containsOption(options []string, choice string) bool {
	for _, opt := range options {
		if opt == choice {
			return true
		}
	}
	return false
}
