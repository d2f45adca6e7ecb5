package fieldtypes

import (
	"fmt"
	"time"

	"github.com/trestlehq/trestle/internal/schema"
)

// DateLayout is the storage form for Date fields.
const DateLayout = "2006-01-02"

// DateField is a calendar date with no time component. Values normalize to
// midnight UTC of the given day.
type DateField struct{ base }

func newDate(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindDate); err != nil {
		return nil, err
	}
	return &DateField{base{desc}}, nil
}

func (f *DateField) Component() string   { return "date" }
func (f *DateField) Description() string { return "Calendar date" }
func (f *DateField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIsNull, OpNotNull})
}
func (f *DateField) ApplicableRules() []string {
	return []string{"Required"}
}

func (f *DateField) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %q is not a date (want %s)", f.desc.Name, v, DateLayout)
		}
		return t, nil
	}
	return nil, fmt.Errorf("field %q: expected a date, got %T", f.desc.Name, value)
}

// DateTimeField is an instant in time, stored in UTC.
type DateTimeField struct{ base }

func newDateTime(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindDateTime); err != nil {
		return nil, err
	}
	return &DateTimeField{base{desc}}, nil
}

func (f *DateTimeField) Component() string   { return "datetime" }
func (f *DateTimeField) Description() string { return "Date and time" }
func (f *DateTimeField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIsNull, OpNotNull})
}
func (f *DateTimeField) ApplicableRules() []string {
	return []string{"Required"}
}

func (f *DateTimeField) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", DateLayout} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("field %q: %q is not a timestamp", f.desc.Name, v)
	}
	return nil, fmt.Errorf("field %q: expected a timestamp, got %T", f.desc.Name, value)
}
