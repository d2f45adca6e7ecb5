package schema

import "fmt"

// RelationType is the cardinality of a relationship.
type RelationType int

const (
	// RelationInvalid is the zero value; it marks a relationship whose
	// type was never declared.
	RelationInvalid RelationType = iota
	OneToOne
	OneToMany
	ManyToMany
)

var relationTypeNames = map[RelationType]string{
	OneToOne:   "OneToOne",
	OneToMany:  "OneToMany",
	ManyToMany: "ManyToMany",
}

// String returns the schema-file spelling of the relation type.
func (t RelationType) String() string {
	if name, ok := relationTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether t is one of the declared relation types.
func (t RelationType) Valid() bool {
	_, ok := relationTypeNames[t]
	return ok
}

// ParseRelationType converts a schema-file type string to a RelationType.
func ParseRelationType(s string) (RelationType, error) {
	for t, name := range relationTypeNames {
		if name == s {
			return t, nil
		}
	}
	return RelationInvalid, fmt.Errorf("unknown relationship type %q", s)
}

// CascadeAction is the behavior applied to a relationship's rows when a
// participating model row is deleted.
type CascadeAction int

const (
	// CascadeRestrict blocks the delete while related rows exist. It is
	// the default when a schema declares nothing.
	CascadeRestrict CascadeAction = iota
	// CascadeDelete removes related relationship rows with the model row.
	CascadeDelete
	// CascadeSoftDelete stamps related relationship rows as deleted
	// without removing them.
	CascadeSoftDelete
)

var cascadeActionNames = map[CascadeAction]string{
	CascadeRestrict:   "restrict",
	CascadeDelete:     "cascade",
	CascadeSoftDelete: "softDelete",
}

// String returns the schema-file spelling of the cascade action.
func (a CascadeAction) String() string {
	if name, ok := cascadeActionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether a is one of the declared cascade actions.
func (a CascadeAction) Valid() bool {
	_, ok := cascadeActionNames[a]
	return ok
}

// ParseCascadeAction converts a schema-file onDelete string to an action.
func ParseCascadeAction(s string) (CascadeAction, error) {
	for a, name := range cascadeActionNames {
		if name == s {
			return a, nil
		}
	}
	return CascadeRestrict, fmt.Errorf("unknown cascade action %q", s)
}

// Relationship is the resolved metadata for a relationship between two
// entities, including the generated join table and field layout.
type Relationship struct {
	// Name is the canonical relationship name.
	Name string `yaml:"name" msgpack:"name"`
	// Type is the declared cardinality.
	Type RelationType `yaml:"type" msgpack:"type"`

	// ModelA and ModelB name the participants of OneToOne and ManyToMany
	// relationships, in declaration order.
	ModelA string `yaml:"modelA" msgpack:"modelA"`
	ModelB string `yaml:"modelB" msgpack:"modelB"`
	// ModelOne and ModelMany name the participants of OneToMany
	// relationships.
	ModelOne  string `yaml:"modelOne" msgpack:"modelOne"`
	ModelMany string `yaml:"modelMany" msgpack:"modelMany"`

	// Table is the generated relationship table name. Empty until the
	// relationship is resolved.
	Table string `yaml:"table" msgpack:"table"`
	// Fields is the resolved relationship field layout: core fields,
	// generated foreign keys, then additional fields. Nil until resolved.
	Fields *FieldSet `yaml:"fields" msgpack:"fields"`

	// Additional holds extra fields declared on the relationship itself,
	// in declaration order. They merge into Fields during resolution.
	Additional []*FieldDescriptor `yaml:"additionalFields" msgpack:"additionalFields"`

	// Constraints carries opaque constraint expressions for downstream
	// tooling. The engine preserves them without interpretation.
	Constraints []string `yaml:"constraints" msgpack:"constraints"`

	// OnDelete is the cascade behavior for participant deletion.
	OnDelete CascadeAction `yaml:"onDelete" msgpack:"onDelete"`

	// OwnerEntity names the entity a nested relationship was declared
	// under. Empty for standalone relationships.
	OwnerEntity string `yaml:"-" msgpack:"ownerEntity"`

	// Resolved reports whether table and field generation has run.
	Resolved bool `yaml:"-" msgpack:"resolved"`

	// SourcePath records where the relationship was loaded from.
	SourcePath string `yaml:"-" msgpack:"sourcePath"`
}

// NewRelationship builds a relationship with the default cascade behavior.
func NewRelationship(name string, t RelationType) *Relationship {
	return &Relationship{Name: name, Type: t, OnDelete: CascadeRestrict}
}

// Participants returns the two participating entity names in declaration
// order, or nil when the type is unknown.
func (r *Relationship) Participants() []string {
	switch r.Type {
	case OneToOne, ManyToMany:
		return []string{r.ModelA, r.ModelB}
	case OneToMany:
		return []string{r.ModelOne, r.ModelMany}
	}
	return nil
}

// Involves reports whether the named entity participates in r.
func (r *Relationship) Involves(entity string) bool {
	for _, p := range r.Participants() {
		if p == entity {
			return true
		}
	}
	return false
}

// Field returns the named resolved field descriptor.
func (r *Relationship) Field(name string) (*FieldDescriptor, bool) {
	if r.Fields == nil {
		return nil, false
	}
	return r.Fields.Get(name)
}

// Clone returns a deep copy of the relationship.
func (r *Relationship) Clone() *Relationship {
	if r == nil {
		return nil
	}
	c := *r
	if r.Fields != nil {
		c.Fields = r.Fields.Clone()
	}
	if r.Additional != nil {
		c.Additional = make([]*FieldDescriptor, len(r.Additional))
		for i, f := range r.Additional {
			c.Additional[i] = f.Clone()
		}
	}
	c.Constraints = append([]string(nil), r.Constraints...)
	return &c
}
