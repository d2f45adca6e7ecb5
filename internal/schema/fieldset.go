package schema

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// FieldSet is an insertion-ordered collection of field descriptors keyed by
// name. Iteration order is the order fields were first added, which mirrors
// declaration order in the schema source.
type FieldSet struct {
	names  []string
	byName map[string]*FieldDescriptor
}

// NewFieldSet returns an empty field set.
func NewFieldSet() *FieldSet {
	return &FieldSet{byName: make(map[string]*FieldDescriptor)}
}

// Set adds the descriptor or replaces an existing one with the same name.
// Replacing keeps the field's original position.
func (s *FieldSet) Set(f *FieldDescriptor) error {
	if f == nil {
		return fmt.Errorf("field descriptor cannot be nil")
	}
	if f.Name == "" {
		return fmt.Errorf("field name cannot be empty")
	}
	if s.byName == nil {
		s.byName = make(map[string]*FieldDescriptor)
	}
	if _, exists := s.byName[f.Name]; !exists {
		s.names = append(s.names, f.Name)
	}
	s.byName[f.Name] = f
	return nil
}

// Get returns the descriptor for name.
func (s *FieldSet) Get(name string) (*FieldDescriptor, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Has reports whether a field with the given name exists.
func (s *FieldSet) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns the field names in insertion order.
func (s *FieldSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Fields returns the descriptors in insertion order.
func (s *FieldSet) Fields() []*FieldDescriptor {
	out := make([]*FieldDescriptor, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.byName[name])
	}
	return out
}

// Len returns the number of fields in the set.
func (s *FieldSet) Len() int {
	return len(s.names)
}

// Clone returns a deep copy of the set, cloning every descriptor.
func (s *FieldSet) Clone() *FieldSet {
	out := NewFieldSet()
	for _, name := range s.names {
		_ = out.Set(s.byName[name].Clone())
	}
	return out
}

// Merge folds other into s. Fields present in both keep their position in s
// but take other's descriptor; fields only in other append in order.
func (s *FieldSet) Merge(other *FieldSet) {
	if other == nil {
		return
	}
	for _, f := range other.Fields() {
		_ = s.Set(f)
	}
}

// EncodeMsgpack writes the set as an ordered descriptor array so cached
// snapshots round-trip field order.
func (s *FieldSet) EncodeMsgpack(enc *msgpack.Encoder) error {
	fields := s.Fields()
	if err := enc.EncodeArrayLen(len(fields)); err != nil {
		return err
	}
	for _, f := range fields {
		if err := enc.Encode(f); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMsgpack restores a set written by EncodeMsgpack.
func (s *FieldSet) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	s.names = nil
	s.byName = make(map[string]*FieldDescriptor, n)
	for i := 0; i < n; i++ {
		var f FieldDescriptor
		if err := dec.Decode(&f); err != nil {
			return err
		}
		if err := s.Set(&f); err != nil {
			return err
		}
	}
	return nil
}
