package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestlehq/trestle/internal/errs"
)

const moviesYAML = `
name: Movies
class: Model
fields:
  title:
    type: Text
    required: true
    rules:
      - Required
      - MaxLength:200
  synopsis: BigText
  releaseDate:
    type: Date
    label: Released
  genre:
    type: Enum
    options:
      - drama
      - comedy
    group: details
relationships:
  - MovieQuotes
list:
  searchable:
    - title
  sortable:
    - title
    - releaseDate
  defaultSort: "-releaseDate"
  perPage: 50
`

func TestDecodeEntity(t *testing.T) {
	entity, err := DecodeEntity("Movies", []byte(moviesYAML))
	require.NoError(t, err)

	assert.Equal(t, "Movies", entity.Name)
	assert.Equal(t, "movies", entity.Table)
	assert.Equal(t, "Model", entity.Class)
	assert.Equal(t, []string{"MovieQuotes"}, entity.RelationshipNames)

	// Declaration order survives decoding.
	assert.Equal(t, []string{"title", "synopsis", "releaseDate", "genre"}, entity.Fields.Names())

	title, ok := entity.Fields.Get("title")
	require.True(t, ok)
	assert.Equal(t, KindText, title.Kind)
	assert.True(t, title.Required)
	assert.Equal(t, []string{"Required", "MaxLength:200"}, title.Rules)
	assert.Equal(t, "Title", title.Label)

	// Shorthand form carries just the type.
	synopsis, ok := entity.Fields.Get("synopsis")
	require.True(t, ok)
	assert.Equal(t, KindBigText, synopsis.Kind)
	assert.Equal(t, "Synopsis", synopsis.Label)

	released, _ := entity.Fields.Get("releaseDate")
	assert.Equal(t, "Released", released.Label)

	genre, _ := entity.Fields.Get("genre")
	assert.Equal(t, []string{"drama", "comedy"}, genre.Options)
	assert.Equal(t, "details", genre.Annotations["group"])

	require.NotNil(t, entity.List)
	assert.Equal(t, []string{"title"}, entity.List.Searchable)
	assert.Equal(t, "-releaseDate", entity.List.DefaultSort)
	assert.Equal(t, 50, entity.List.PerPage)
}

func TestDecodeEntityExplicitTable(t *testing.T) {
	entity, err := DecodeEntity("Movies", []byte("name: Movies\ntable: film_catalog\nfields:\n  title: Text\n"))
	require.NoError(t, err)
	assert.Equal(t, "film_catalog", entity.Table)
}

func TestDecodeEntityNameMismatch(t *testing.T) {
	_, err := DecodeEntity("Movies", []byte("name: Shows\n"))
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))
	assert.Contains(t, err.Error(), `declares name "Shows"`)
}

func TestDecodeEntityNestedRelationships(t *testing.T) {
	doc := `
name: Movies
fields:
  title: Text
relationships:
  MovieQuotes:
    type: OneToMany
    modelOne: Movies
    modelMany: MovieQuotes
    onDelete: cascade
`
	entity, err := DecodeEntity("Movies", []byte(doc))
	require.NoError(t, err)
	require.Len(t, entity.Nested, 1)

	rel := entity.Nested[0]
	assert.Equal(t, "MovieQuotes", rel.Name)
	assert.Equal(t, OneToMany, rel.Type)
	assert.Equal(t, "Movies", rel.ModelOne)
	assert.Equal(t, "MovieQuotes", rel.ModelMany)
	assert.Equal(t, CascadeDelete, rel.OnDelete)
	assert.Equal(t, "Movies", rel.OwnerEntity)
}

func TestDecodeEntityEmptyDocument(t *testing.T) {
	_, err := DecodeEntity("Movies", []byte(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestDecodeFieldMissingType(t *testing.T) {
	doc := `
name: Movies
fields:
  title:
    required: true
`
	_, err := DecodeEntity("Movies", []byte(doc))
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))
	assert.Contains(t, err.Error(), `missing required key "type"`)
}

func TestDecodeFieldUnknownType(t *testing.T) {
	_, err := DecodeEntity("Movies", []byte("fields:\n  title: Bogus\n"))
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))
	assert.Contains(t, err.Error(), `"Bogus"`)
}

func TestDecodeRelationship(t *testing.T) {
	doc := `
name: UserRoles
type: ManyToMany
modelA: Users
modelB: Roles
onDelete: restrict
additionalFields:
  grantedAt:
    type: DateTime
constraints:
  - unique
`
	rel, err := DecodeRelationship("UserRoles", []byte(doc))
	require.NoError(t, err)

	assert.Equal(t, ManyToMany, rel.Type)
	assert.Equal(t, "Users", rel.ModelA)
	assert.Equal(t, "Roles", rel.ModelB)
	assert.Equal(t, CascadeRestrict, rel.OnDelete)
	assert.Equal(t, []string{"unique"}, rel.Constraints)
	require.Len(t, rel.Additional, 1)
	assert.Equal(t, "grantedAt", rel.Additional[0].Name)
	assert.Equal(t, KindDateTime, rel.Additional[0].Kind)
}

func TestDecodeRelationshipUnknownType(t *testing.T) {
	_, err := DecodeRelationship("Broken", []byte("type: Bogus\n"))
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))
	assert.Contains(t, err.Error(), `unknown relationship type "Bogus"`)
}

func TestDecodeRelationshipDefaultsToRestrict(t *testing.T) {
	rel, err := DecodeRelationship("MovieQuotes", []byte("type: OneToMany\nmodelOne: Movies\nmodelMany: MovieQuotes\n"))
	require.NoError(t, err)
	assert.Equal(t, CascadeRestrict, rel.OnDelete)
}

func TestDecodeFields(t *testing.T) {
	set, err := DecodeFields("core", []byte("id:\n  type: ID\n  required: true\n  readOnly: true\ncreated_at:\n  type: DateTime\n  readOnly: true\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "created_at"}, set.Names())
	id, _ := set.Get("id")
	assert.True(t, id.Required)
	assert.True(t, id.ReadOnly)
}
