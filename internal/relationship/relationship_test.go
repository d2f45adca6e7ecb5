package relationship

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trestlehq/trestle/internal/errs"
	"github.com/trestlehq/trestle/internal/schema"
)

func oneToMany(t *testing.T, one, many string) *schema.Relationship {
	t.Helper()
	rel := schema.NewRelationship(many, schema.OneToMany)
	rel.ModelOne = one
	rel.ModelMany = many
	return rel
}

func manyToMany(t *testing.T, a, b string) *schema.Relationship {
	t.Helper()
	rel := schema.NewRelationship(a+b, schema.ManyToMany)
	rel.ModelA = a
	rel.ModelB = b
	return rel
}

func oneToOne(t *testing.T, a, b string) *schema.Relationship {
	t.Helper()
	rel := schema.NewRelationship(a+b, schema.OneToOne)
	rel.ModelA = a
	rel.ModelB = b
	return rel
}

func TestValidate(t *testing.T) {
	err := Validate(nil)
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))

	err = Validate(&schema.Relationship{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required key "name"`)

	err = Validate(&schema.Relationship{Name: "Broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required key "type"`)

	missingOne := schema.NewRelationship("MovieQuotes", schema.OneToMany)
	missingOne.ModelMany = "MovieQuotes"
	err = Validate(missingOne)
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))
	assert.Contains(t, err.Error(), `missing required key "modelOne"`)

	missingMany := schema.NewRelationship("MovieQuotes", schema.OneToMany)
	missingMany.ModelOne = "Movies"
	err = Validate(missingMany)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required key "modelMany"`)

	missingA := schema.NewRelationship("UserProfiles", schema.OneToOne)
	missingA.ModelB = "Profiles"
	err = Validate(missingA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required key "modelA"`)

	missingB := schema.NewRelationship("UserRoles", schema.ManyToMany)
	missingB.ModelA = "Users"
	err = Validate(missingB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required key "modelB"`)

	require.NoError(t, Validate(oneToMany(t, "Movies", "MovieQuotes")))
	require.NoError(t, Validate(oneToOne(t, "Users", "Profiles")))
	require.NoError(t, Validate(manyToMany(t, "Users", "Roles")))
}

func TestTableNameFor(t *testing.T) {
	rel := oneToMany(t, "Movies", "Movie_Quotes")
	table, err := TableNameFor(rel)
	require.NoError(t, err)
	assert.Equal(t, "rel_1_movies_M_movie_quotes", table)

	table, err = TableNameFor(oneToOne(t, "Users", "Profiles"))
	require.NoError(t, err)
	assert.Equal(t, "rel_1_users_1_profiles", table)

	table, err = TableNameFor(manyToMany(t, "Users", "Roles"))
	require.NoError(t, err)
	assert.Equal(t, "rel_N_users_M_roles", table)
}

func TestTableNameTruncation(t *testing.T) {
	// Participants sized so the untruncated name is exactly 70 characters.
	one := strings.Repeat("a", 30)
	many := strings.Repeat("b", 31)
	rel := oneToMany(t, one, many)

	full := "rel_1_" + one + "_M_" + many
	require.Len(t, full, 70)

	table, err := TableNameFor(rel)
	require.NoError(t, err)
	assert.Len(t, table, MaxTableNameLength)
	assert.Equal(t, full[:MaxTableNameLength], table)
}

func TestModelIDField(t *testing.T) {
	rel := oneToMany(t, "Movies", "Movie_Quotes")

	field, err := ModelIDField(rel, "Movies")
	require.NoError(t, err)
	assert.Equal(t, "one_movies_id", field)

	field, err = ModelIDField(rel, "Movie_Quotes")
	require.NoError(t, err)
	assert.Equal(t, "many_movie_quotes_id", field)

	pair := manyToMany(t, "Users", "Roles")
	field, err = ModelIDField(pair, "Users")
	require.NoError(t, err)
	assert.Equal(t, "users_id", field)
	field, err = ModelIDField(pair, "Roles")
	require.NoError(t, err)
	assert.Equal(t, "roles_id", field)

	_, err = ModelIDField(rel, "Users")
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))
	assert.Contains(t, err.Error(), `"Users" is not a participant`)

	_, err = ModelIDField(&schema.Relationship{Name: "Broken"}, "Movies")
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))
}

func TestGeneratedKeys(t *testing.T) {
	rel := manyToMany(t, "Users", "Roles")
	keys, err := GeneratedKeys(rel)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	assert.Equal(t, "users_id", keys[0].Name)
	assert.Equal(t, schema.KindID, keys[0].Kind)
	assert.Equal(t, "Users ID", keys[0].Label)
	assert.True(t, keys[0].Required)
	assert.True(t, keys[0].DBField)
	assert.Equal(t, "Users", keys[0].RelatedModel)

	assert.Equal(t, "roles_id", keys[1].Name)
	assert.Equal(t, "Roles ID", keys[1].Label)
	assert.Equal(t, "Roles", keys[1].RelatedModel)
}

func TestGeneratedKeysOneToMany(t *testing.T) {
	rel := oneToMany(t, "Movies", "MovieQuotes")
	keys, err := GeneratedKeys(rel)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "one_movies_id", keys[0].Name)
	assert.Equal(t, "Movies ID", keys[0].Label)
	assert.Equal(t, "many_moviequotes_id", keys[1].Name)
	assert.Equal(t, "MovieQuotes ID", keys[1].Label)
}

func coreSet(t *testing.T) *schema.FieldSet {
	t.Helper()
	set := schema.NewFieldSet()
	for _, name := range []string{"id", "created_at", "deleted_at"} {
		kind := schema.KindDateTime
		if name == "id" {
			kind = schema.KindID
		}
		desc, err := schema.NewFieldDescriptor(name, kind)
		require.NoError(t, err)
		require.NoError(t, set.Set(desc))
	}
	return set
}

func TestResolve(t *testing.T) {
	rel := manyToMany(t, "Users", "Roles")
	require.NoError(t, Resolve(rel, coreSet(t), zap.NewNop()))

	assert.True(t, rel.Resolved)
	assert.Equal(t, "rel_N_users_M_roles", rel.Table)
	assert.Equal(t,
		[]string{"id", "created_at", "deleted_at", "users_id", "roles_id"},
		rel.Fields.Names())
}

func TestResolveAdditionalFields(t *testing.T) {
	rel := manyToMany(t, "Users", "Roles")
	granted, err := schema.NewFieldDescriptor("grantedAt", schema.KindDateTime)
	require.NoError(t, err)
	rel.Additional = []*schema.FieldDescriptor{granted}

	require.NoError(t, Resolve(rel, coreSet(t), zap.NewNop()))
	assert.Equal(t,
		[]string{"id", "created_at", "deleted_at", "users_id", "roles_id", "grantedAt"},
		rel.Fields.Names())
}

func TestResolveAdditionalCollidesWithGeneratedKey(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	rel := manyToMany(t, "Users", "Roles")
	shadow, err := schema.NewFieldDescriptor("users_id", schema.KindText)
	require.NoError(t, err)
	shadow.Label = "Shadowed"
	rel.Additional = []*schema.FieldDescriptor{shadow}

	require.NoError(t, Resolve(rel, coreSet(t), log))

	kept, ok := rel.Fields.Get("users_id")
	require.True(t, ok)
	assert.Equal(t, schema.KindID, kept.Kind)
	assert.Equal(t, "Users ID", kept.Label)
	assert.Equal(t, 1, logs.FilterMessageSnippet("collides").Len())
}

func TestResolveIdempotent(t *testing.T) {
	rel := oneToOne(t, "Users", "Profiles")
	require.NoError(t, Resolve(rel, nil, nil))
	first := rel.Fields

	require.NoError(t, Resolve(rel, coreSet(t), nil))
	assert.Same(t, first, rel.Fields)
}

func TestResolveInvalidMetadata(t *testing.T) {
	rel := schema.NewRelationship("Broken", schema.OneToMany)
	err := Resolve(rel, nil, nil)
	require.Error(t, err)
	assert.True(t, errs.IsSchema(err))
	assert.False(t, rel.Resolved)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unvalidated", StateUnvalidated.String())
	assert.Equal(t, "validated", StateValidated.String())
	assert.Equal(t, "resolved", StateResolved.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "unknown", State(99).String())
}
