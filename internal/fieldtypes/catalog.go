package fieldtypes

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/schema"
)

// TypeDescriptor describes one available field kind to API and UI
// consumers: how it renders, how it filters, and which rules apply.
type TypeDescriptor struct {
	Type           string   `json:"type" yaml:"type" msgpack:"type"`
	Implementation string   `json:"implementation" yaml:"implementation" msgpack:"implementation"`
	Description    string   `json:"description" yaml:"description" msgpack:"description"`
	Component      string   `json:"component" yaml:"component" msgpack:"component"`
	Operators      []string `json:"operators" yaml:"operators" msgpack:"operators"`
	Rules          []string `json:"rules" yaml:"rules" msgpack:"rules"`
}

// Catalog probes every registered kind with an empty configuration and
// returns a descriptor per kind that instantiates cleanly. A constructor
// failure is logged and that kind is skipped; the scan never aborts.
func Catalog(reg *Registry, log *zap.Logger) map[string]TypeDescriptor {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	out := make(map[string]TypeDescriptor)
	for _, kind := range reg.Kinds() {
		probe := &schema.FieldDescriptor{Name: "probe", Kind: kind, DBField: true}
		field, err := reg.New(probe)
		if err != nil {
			log.Warn("skipping field type that failed to instantiate",
				zap.String("type", kind.String()),
				zap.Error(err))
			continue
		}
		out[kind.String()] = TypeDescriptor{
			Type:           kind.String(),
			Implementation: implementationName(field),
			Description:    field.Description(),
			Component:      field.Component(),
			Operators:      field.Operators(),
			Rules:          field.ApplicableRules(),
		}
	}
	return out
}

func implementationName(f Field) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", f), "*")
}
