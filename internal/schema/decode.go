package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/trestlehq/trestle/internal/errs"
)

// Schema sources are decoded by hand from yaml nodes rather than through
// struct tags. Walking the mapping nodes directly keeps field declaration
// order, lets unknown keys flow into annotations instead of being dropped,
// and produces schema errors that name the offending key.

// DecodeEntity parses one entity schema document. The expected name comes
// from the source layout; a document declaring a different name is rejected.
func DecodeEntity(name string, data []byte) (*Entity, error) {
	root, err := rootMapping(data)
	if err != nil {
		return nil, err
	}
	e := NewEntity(name)
	for key, val := range mappingPairs(root) {
		switch key {
		case "name":
			declared, err := nodeString(val)
			if err != nil {
				return nil, errs.Schemaf(name, "name: %v", err)
			}
			if declared != "" && declared != name {
				return nil, errs.Schemaf(name, "declares name %q, expected %q", declared, name)
			}
		case "table":
			if e.Table, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(name, "table: %v", err)
			}
		case "class":
			if e.Class, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(name, "class: %v", err)
			}
		case "fields":
			if e.Fields, err = decodeFieldSet(name, val); err != nil {
				return nil, err
			}
		case "relationships":
			switch val.Kind {
			case yaml.SequenceNode:
				if e.RelationshipNames, err = nodeStringList(val); err != nil {
					return nil, errs.Schemaf(name, "relationships: %v", err)
				}
			case yaml.MappingNode:
				for relName, relNode := range mappingPairs(val) {
					rel, err := decodeRelationshipNode(relName, relNode)
					if err != nil {
						return nil, err
					}
					rel.OwnerEntity = name
					e.Nested = append(e.Nested, rel)
				}
			default:
				return nil, errs.Schemaf(name, "relationships must be a list of names or a mapping of definitions")
			}
		case "list":
			if e.List, err = decodeListConfig(name, val); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}

// DecodeFields parses a document whose top level is a fields mapping, as
// used by the core field template.
func DecodeFields(owner string, data []byte) (*FieldSet, error) {
	root, err := rootMapping(data)
	if err != nil {
		return nil, err
	}
	return decodeFieldSet(owner, root)
}

// DecodeRelationship parses one standalone relationship schema document.
func DecodeRelationship(name string, data []byte) (*Relationship, error) {
	root, err := rootMapping(data)
	if err != nil {
		return nil, err
	}
	return decodeRelationshipNode(name, root)
}

func decodeRelationshipNode(name string, node *yaml.Node) (*Relationship, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errs.Schemaf(name, "relationship definition must be a mapping")
	}
	r := NewRelationship(name, RelationInvalid)
	var err error
	for key, val := range mappingPairs(node) {
		switch key {
		case "name":
			declared, err := nodeString(val)
			if err != nil {
				return nil, errs.Schemaf(name, "name: %v", err)
			}
			if declared != "" && declared != name {
				return nil, errs.Schemaf(name, "declares name %q, expected %q", declared, name)
			}
		case "type":
			s, err := nodeString(val)
			if err != nil {
				return nil, errs.Schemaf(name, "type: %v", err)
			}
			if r.Type, err = ParseRelationType(s); err != nil {
				return nil, errs.Schemaf(name, "%v", err)
			}
		case "modelA":
			if r.ModelA, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(name, "modelA: %v", err)
			}
		case "modelB":
			if r.ModelB, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(name, "modelB: %v", err)
			}
		case "modelOne":
			if r.ModelOne, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(name, "modelOne: %v", err)
			}
		case "modelMany":
			if r.ModelMany, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(name, "modelMany: %v", err)
			}
		case "onDelete":
			s, err := nodeString(val)
			if err != nil {
				return nil, errs.Schemaf(name, "onDelete: %v", err)
			}
			if r.OnDelete, err = ParseCascadeAction(s); err != nil {
				return nil, errs.Schemaf(name, "%v", err)
			}
		case "additionalFields":
			set, err := decodeFieldSet(name, val)
			if err != nil {
				return nil, err
			}
			r.Additional = set.Fields()
		case "constraints":
			if r.Constraints, err = nodeStringList(val); err != nil {
				return nil, errs.Schemaf(name, "constraints: %v", err)
			}
		}
	}
	return r, nil
}

func decodeFieldSet(owner string, node *yaml.Node) (*FieldSet, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errs.Schemaf(owner, "fields must be a mapping of name to definition")
	}
	set := NewFieldSet()
	for name, val := range mappingPairs(node) {
		f, err := decodeField(owner, name, val)
		if err != nil {
			return nil, err
		}
		if err := set.Set(f); err != nil {
			return nil, errs.Schemaf(owner, "field %q: %v", name, err)
		}
	}
	return set, nil
}

func decodeField(owner, name string, node *yaml.Node) (*FieldDescriptor, error) {
	if name == "" {
		return nil, errs.Schemaf(owner, "field name cannot be empty")
	}
	f := &FieldDescriptor{Name: name, DBField: true}

	// Shorthand form: the whole definition is just the type string.
	if node.Kind == yaml.ScalarNode {
		kind, err := ParseKind(node.Value)
		if err != nil {
			return nil, errs.Schemaf(owner, "field %q: %v", name, err)
		}
		f.Kind = kind
		f.Label = HumanizeLabel(name)
		return f, nil
	}

	if node.Kind != yaml.MappingNode {
		return nil, errs.Schemaf(owner, "field %q: definition must be a mapping or a type string", name)
	}
	var err error
	for key, val := range mappingPairs(node) {
		switch key {
		case "name":
			// The mapping key names the field; a nested name key is noise.
		case "type":
			s, err := nodeString(val)
			if err != nil {
				return nil, errs.Schemaf(owner, "field %q: type: %v", name, err)
			}
			if f.Kind, err = ParseKind(s); err != nil {
				return nil, errs.Schemaf(owner, "field %q: %v", name, err)
			}
		case "label":
			if f.Label, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: label: %v", name, err)
			}
		case "required":
			if f.Required, err = nodeBool(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: required: %v", name, err)
			}
		case "readOnly":
			if f.ReadOnly, err = nodeBool(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: readOnly: %v", name, err)
			}
		case "unique":
			if f.Unique, err = nodeBool(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: unique: %v", name, err)
			}
		case "dbField":
			if f.DBField, err = nodeBool(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: dbField: %v", name, err)
			}
		case "rules":
			if f.Rules, err = nodeStringList(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: rules: %v", name, err)
			}
		case "operators":
			if f.Operators, err = nodeStringList(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: operators: %v", name, err)
			}
		case "default":
			if f.Default, err = nodeAny(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: default: %v", name, err)
			}
		case "options":
			if f.Options, err = nodeStringList(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: options: %v", name, err)
			}
		case "optionsProvider":
			if f.OptionsProvider, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: optionsProvider: %v", name, err)
			}
		case "relatedModel":
			if f.RelatedModel, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(owner, "field %q: relatedModel: %v", name, err)
			}
		default:
			v, err := nodeAny(val)
			if err != nil {
				return nil, errs.Schemaf(owner, "field %q: %s: %v", name, key, err)
			}
			if f.Annotations == nil {
				f.Annotations = make(map[string]any)
			}
			f.Annotations[key] = v
		}
	}
	if !f.Kind.Valid() {
		return nil, errs.Schemaf(owner, "field %q: missing required key \"type\"", name)
	}
	if f.Label == "" {
		f.Label = HumanizeLabel(name)
	}
	return f, nil
}

func decodeListConfig(owner string, node *yaml.Node) (*ListConfig, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errs.Schemaf(owner, "list must be a mapping")
	}
	cfg := &ListConfig{}
	var err error
	for key, val := range mappingPairs(node) {
		switch key {
		case "searchable":
			if cfg.Searchable, err = nodeStringList(val); err != nil {
				return nil, errs.Schemaf(owner, "list.searchable: %v", err)
			}
		case "sortable":
			if cfg.Sortable, err = nodeStringList(val); err != nil {
				return nil, errs.Schemaf(owner, "list.sortable: %v", err)
			}
		case "defaultSort":
			if cfg.DefaultSort, err = nodeString(val); err != nil {
				return nil, errs.Schemaf(owner, "list.defaultSort: %v", err)
			}
		case "perPage":
			if cfg.PerPage, err = nodeInt(val); err != nil {
				return nil, errs.Schemaf(owner, "list.perPage: %v", err)
			}
		}
	}
	return cfg, nil
}

func rootMapping(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("schema document is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("schema document must be a mapping")
	}
	return root, nil
}

// mappingPairs iterates a mapping node's key/value pairs in document order.
func mappingPairs(node *yaml.Node) func(func(string, *yaml.Node) bool) {
	return func(yield func(string, *yaml.Node) bool) {
		for i := 0; i+1 < len(node.Content); i += 2 {
			if !yield(node.Content[i].Value, node.Content[i+1]) {
				return
			}
		}
	}
}

func nodeString(node *yaml.Node) (string, error) {
	var s string
	if err := node.Decode(&s); err != nil {
		return "", fmt.Errorf("expected a string")
	}
	return s, nil
}

func nodeBool(node *yaml.Node) (bool, error) {
	var b bool
	if err := node.Decode(&b); err != nil {
		return false, fmt.Errorf("expected a boolean")
	}
	return b, nil
}

func nodeInt(node *yaml.Node) (int, error) {
	var n int
	if err := node.Decode(&n); err != nil {
		return 0, fmt.Errorf("expected an integer")
	}
	return n, nil
}

func nodeStringList(node *yaml.Node) ([]string, error) {
	var list []string
	if err := node.Decode(&list); err != nil {
		return nil, fmt.Errorf("expected a list of strings")
	}
	return list, nil
}

func nodeAny(node *yaml.Node) (any, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid value")
	}
	return v, nil
}
