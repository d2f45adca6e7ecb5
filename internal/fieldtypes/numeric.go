package fieldtypes

import (
	"fmt"
	"math"
	"strconv"

	"github.com/trestlehq/trestle/internal/schema"
)

// IntegerField is a whole-number field stored as int64.
type IntegerField struct{ base }

func newInteger(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindInteger); err != nil {
		return nil, err
	}
	return &IntegerField{base{desc}}, nil
}

func (f *IntegerField) Component() string   { return "number" }
func (f *IntegerField) Description() string { return "Whole number" }
func (f *IntegerField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIn, OpIsNull, OpNotNull})
}
func (f *IntegerField) ApplicableRules() []string {
	return []string{"Required", "Min", "Max"}
}

func (f *IntegerField) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("field %q: value out of range", f.desc.Name)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("field %q: expected a whole number", f.desc.Name)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: %q is not an integer", f.desc.Name, v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("field %q: expected an integer, got %T", f.desc.Name, value)
}

// FloatField is a floating-point field stored as float64.
type FloatField struct{ base }

func newFloat(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindFloat); err != nil {
		return nil, err
	}
	return &FloatField{base{desc}}, nil
}

func (f *FloatField) Component() string   { return "number" }
func (f *FloatField) Description() string { return "Decimal number" }
func (f *FloatField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIsNull, OpNotNull})
}
func (f *FloatField) ApplicableRules() []string {
	return []string{"Required", "Min", "Max"}
}

func (f *FloatField) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: %q is not a number", f.desc.Name, v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("field %q: expected a number, got %T", f.desc.Name, value)
}

// BooleanField is a true/false flag.
type BooleanField struct{ base }

func newBoolean(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindBoolean); err != nil {
		return nil, err
	}
	return &BooleanField{base{desc}}, nil
}

func (f *BooleanField) Component() string   { return "checkbox" }
func (f *BooleanField) Description() string { return "True or false flag" }
func (f *BooleanField) Operators() []string {
	return f.operators([]string{OpEq, OpIsNull, OpNotNull})
}
func (f *BooleanField) ApplicableRules() []string {
	return []string{"Required"}
}

func (f *BooleanField) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %q is not a boolean", f.desc.Name, v)
		}
		return b, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	}
	return nil, fmt.Errorf("field %q: expected a boolean, got %T", f.desc.Name, value)
}
