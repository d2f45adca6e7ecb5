// Package schema defines the declarative data model for trestle entities:
// field descriptors, ordered field sets, entity and relationship metadata,
// and the explicit decoding of schema source files into those structures.
package schema

import "fmt"

// Kind identifies one of the built-in field types an entity field can
// declare. The set is closed; schema files reference kinds by the exact
// strings returned from String.
type Kind int

const (
	// KindInvalid is the zero value and never a legal declared type.
	KindInvalid Kind = iota
	KindID
	KindText
	KindBigText
	KindEmail
	KindInteger
	KindFloat
	KindBoolean
	KindDate
	KindDateTime
	KindEnum
	KindMultiEnum
	KindRelatedRecord
	KindImage
	KindVideo
	KindPassword
	KindRadioButtonSet
)

var kindNames = map[Kind]string{
	KindID:             "ID",
	KindText:           "Text",
	KindBigText:        "BigText",
	KindEmail:          "Email",
	KindInteger:        "Integer",
	KindFloat:          "Float",
	KindBoolean:        "Boolean",
	KindDate:           "Date",
	KindDateTime:       "DateTime",
	KindEnum:           "Enum",
	KindMultiEnum:      "MultiEnum",
	KindRelatedRecord:  "RelatedRecord",
	KindImage:          "Image",
	KindVideo:          "Video",
	KindPassword:       "Password",
	KindRadioButtonSet: "RadioButtonSet",
}

// String returns the schema-file spelling of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind converts a schema-file type string to a Kind.
func ParseKind(s string) (Kind, error) {
	for kind, name := range kindNames {
		if name == s {
			return kind, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown field type %q", s)
}

// Kinds returns all declared kinds in their canonical order.
func Kinds() []Kind {
	return []Kind{
		KindID, KindText, KindBigText, KindEmail, KindInteger, KindFloat,
		KindBoolean, KindDate, KindDateTime, KindEnum, KindMultiEnum,
		KindRelatedRecord, KindImage, KindVideo, KindPassword,
		KindRadioButtonSet,
	}
}
