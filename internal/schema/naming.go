package schema

import (
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeriveTableName maps an entity name to its backing table name. Camel case
// is broken on word boundaries, existing underscores survive, and the last
// word is pluralized so Movie and Movies both land on movies.
func DeriveTableName(name string) string {
	return inflect.Pluralize(inflect.Underscore(name))
}

// HumanizeLabel turns a field or entity name into display text: snake and
// camel case both become space-separated title-cased words, so created_at
// reads "Created At" and relatedModel reads "Related Model".
func HumanizeLabel(name string) string {
	words := strings.ReplaceAll(inflect.Underscore(name), "_", " ")
	return cases.Title(language.English).String(words)
}
