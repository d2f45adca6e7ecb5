// Package relationship implements the relationship lifecycle: structural
// validation, deterministic table and foreign-key generation, cascade
// handling on participant deletion, and removal of individual rows.
package relationship

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/errs"
	"github.com/trestlehq/trestle/internal/schema"
)

// MaxTableNameLength caps generated relationship table names. Longer names
// are cut to exactly this many characters with no disambiguation, so two
// long names can collide; schema authors own keeping names short.
const MaxTableNameLength = 64

// State tracks a relationship instance through its lifecycle.
type State int

const (
	// StateUnvalidated holds raw metadata as loaded.
	StateUnvalidated State = iota
	// StateValidated means type-specific required keys are confirmed.
	StateValidated
	// StateResolved means the table name and key fields are generated.
	StateResolved
	// StateReady means the instance is usable by the entity runtime.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnvalidated:
		return "unvalidated"
	case StateValidated:
		return "validated"
	case StateResolved:
		return "resolved"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Validate confirms the metadata carries every key its type requires. The
// returned SchemaError names the first missing key.
func Validate(meta *schema.Relationship) error {
	if meta == nil {
		return errs.Schemaf("relationship", "metadata cannot be nil")
	}
	subject := meta.Name
	if subject == "" {
		return errs.Schemaf("relationship", "missing required key %q", "name")
	}
	if meta.Type == schema.RelationInvalid {
		return errs.Schemaf(subject, "missing required key %q", "type")
	}
	switch meta.Type {
	case schema.OneToMany:
		if meta.ModelOne == "" {
			return errs.Schemaf(subject, "missing required key %q", "modelOne")
		}
		if meta.ModelMany == "" {
			return errs.Schemaf(subject, "missing required key %q", "modelMany")
		}
	case schema.OneToOne, schema.ManyToMany:
		if meta.ModelA == "" {
			return errs.Schemaf(subject, "missing required key %q", "modelA")
		}
		if meta.ModelB == "" {
			return errs.Schemaf(subject, "missing required key %q", "modelB")
		}
	default:
		return errs.Schemaf(subject, "unknown relationship type %q", meta.Type.String())
	}
	return nil
}

// TableNameFor derives the relationship table name from the type and the
// participant names, truncated to MaxTableNameLength.
func TableNameFor(meta *schema.Relationship) (string, error) {
	if err := Validate(meta); err != nil {
		return "", err
	}
	var name string
	switch meta.Type {
	case schema.OneToOne:
		name = fmt.Sprintf("rel_1_%s_1_%s", strings.ToLower(meta.ModelA), strings.ToLower(meta.ModelB))
	case schema.OneToMany:
		name = fmt.Sprintf("rel_1_%s_M_%s", strings.ToLower(meta.ModelOne), strings.ToLower(meta.ModelMany))
	case schema.ManyToMany:
		name = fmt.Sprintf("rel_N_%s_M_%s", strings.ToLower(meta.ModelA), strings.ToLower(meta.ModelB))
	}
	if len(name) > MaxTableNameLength {
		name = name[:MaxTableNameLength]
	}
	return name, nil
}

// ModelIDField maps a participant entity name to its generated key field
// name. An entity that does not participate, or a metadata type outside the
// known set, is a SchemaError.
func ModelIDField(meta *schema.Relationship, participant string) (string, error) {
	switch meta.Type {
	case schema.OneToMany:
		switch participant {
		case meta.ModelOne:
			return fmt.Sprintf("one_%s_id", strings.ToLower(meta.ModelOne)), nil
		case meta.ModelMany:
			return fmt.Sprintf("many_%s_id", strings.ToLower(meta.ModelMany)), nil
		}
	case schema.OneToOne, schema.ManyToMany:
		if participant == meta.ModelA || participant == meta.ModelB {
			return fmt.Sprintf("%s_id", strings.ToLower(participant)), nil
		}
	default:
		return "", errs.Schemaf(meta.Name, "unknown relationship type %q", meta.Type.String())
	}
	return "", errs.Schemaf(meta.Name, "entity %q is not a participant", participant)
}

// GeneratedKeys builds the foreign-key field descriptors for the metadata,
// one per participant, in participant order.
func GeneratedKeys(meta *schema.Relationship) ([]*schema.FieldDescriptor, error) {
	if err := Validate(meta); err != nil {
		return nil, err
	}
	participants := meta.Participants()
	out := make([]*schema.FieldDescriptor, 0, len(participants))
	for _, participant := range participants {
		name, err := ModelIDField(meta, participant)
		if err != nil {
			return nil, err
		}
		out = append(out, foreignKey(name, participant))
	}
	return out, nil
}

func foreignKey(name, participant string) *schema.FieldDescriptor {
	return &schema.FieldDescriptor{
		Name:         name,
		Kind:         schema.KindID,
		Label:        participant + " ID",
		Required:     true,
		DBField:      true,
		RelatedModel: participant,
	}
}

// Resolve validates the metadata and generates its table name and field
// layout: core fields first, then the generated keys, then any additional
// fields. An additional field colliding with a generated key is dropped
// with a warning; it never shadows the key. Resolving already-resolved
// metadata is a no-op.
func Resolve(meta *schema.Relationship, core *schema.FieldSet, log *zap.Logger) error {
	if meta != nil && meta.Resolved {
		return nil
	}
	if err := Validate(meta); err != nil {
		return err
	}
	if log == nil {
		log = zap.NewNop()
	}

	table, err := TableNameFor(meta)
	if err != nil {
		return err
	}
	keys, err := GeneratedKeys(meta)
	if err != nil {
		return err
	}

	fields := schema.NewFieldSet()
	if core != nil {
		fields.Merge(core.Clone())
	}
	generated := make(map[string]bool, len(keys))
	for _, key := range keys {
		_ = fields.Set(key)
		generated[key.Name] = true
	}
	for _, extra := range meta.Additional {
		if generated[extra.Name] {
			log.Warn("additional field collides with a generated key and is ignored",
				zap.String("relationship", meta.Name),
				zap.String("field", extra.Name))
			continue
		}
		_ = fields.Set(extra.Clone())
	}

	meta.Table = table
	meta.Fields = fields
	meta.Resolved = true
	return nil
}
