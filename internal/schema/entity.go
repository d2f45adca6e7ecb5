package schema

// DefaultClass is the model class an entity belongs to when its schema does
// not name one. Core field templates are keyed by class.
const DefaultClass = "Model"

// ListConfig tunes the collection surfaces generated for an entity.
type ListConfig struct {
	// Searchable lists the fields matched by free-text search.
	Searchable []string `yaml:"searchable" msgpack:"searchable"`
	// Sortable lists the fields list views may order by.
	Sortable []string `yaml:"sortable" msgpack:"sortable"`
	// DefaultSort is the initial sort expression, "-field" for descending.
	DefaultSort string `yaml:"defaultSort" msgpack:"defaultSort"`
	// PerPage is the default page size. Zero means the runtime default.
	PerPage int `yaml:"perPage" msgpack:"perPage"`
}

// Entity is the resolved metadata for one model: its identity, its merged
// field set, and the relationships it participates in.
type Entity struct {
	// Name is the canonical entity name, matching its schema directory.
	Name string `yaml:"name" msgpack:"name"`
	// Table is the backing table. Derived from Name when not declared.
	Table string `yaml:"table" msgpack:"table"`
	// Class selects the core field template merged into Fields.
	Class string `yaml:"class" msgpack:"class"`

	// Fields is the merged, ordered field collection: core fields first,
	// then the entity's declared fields, which win on name collision.
	Fields *FieldSet `yaml:"fields" msgpack:"fields"`

	// RelationshipNames lists standalone relationships the entity opted
	// into by name.
	RelationshipNames []string `yaml:"relationships" msgpack:"relationships"`
	// Nested holds relationship definitions embedded in the entity schema.
	Nested []*Relationship `yaml:"nested" msgpack:"nested"`

	// List configures collection views. Nil means all defaults.
	List *ListConfig `yaml:"list" msgpack:"list"`

	// SourcePath records where the entity was loaded from, for diagnostics.
	SourcePath string `yaml:"-" msgpack:"sourcePath"`
}

// NewEntity builds an entity with a derived table name, the default class,
// and an empty field set.
func NewEntity(name string) *Entity {
	return &Entity{
		Name:   name,
		Table:  DeriveTableName(name),
		Class:  DefaultClass,
		Fields: NewFieldSet(),
	}
}

// Field returns the named field descriptor.
func (e *Entity) Field(name string) (*FieldDescriptor, bool) {
	if e.Fields == nil {
		return nil, false
	}
	return e.Fields.Get(name)
}

// HasField reports whether the entity's merged field set contains name.
func (e *Entity) HasField(name string) bool {
	_, ok := e.Field(name)
	return ok
}

// FieldNames returns the merged field names in order.
func (e *Entity) FieldNames() []string {
	if e.Fields == nil {
		return nil
	}
	return e.Fields.Names()
}

// Clone returns a deep copy of the entity. Nested relationships and the
// field set are copied; callers may mutate the result freely.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	if e.Fields != nil {
		c.Fields = e.Fields.Clone()
	}
	c.RelationshipNames = append([]string(nil), e.RelationshipNames...)
	if e.Nested != nil {
		c.Nested = make([]*Relationship, len(e.Nested))
		for i, rel := range e.Nested {
			c.Nested[i] = rel.Clone()
		}
	}
	if e.List != nil {
		list := *e.List
		list.Searchable = append([]string(nil), e.List.Searchable...)
		list.Sortable = append([]string(nil), e.List.Sortable...)
		c.List = &list
	}
	return &c
}
