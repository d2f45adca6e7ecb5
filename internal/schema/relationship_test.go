package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelationType(t *testing.T) {
	for _, name := range []string{"OneToOne", "OneToMany", "ManyToMany"} {
		parsed, err := ParseRelationType(name)
		require.NoError(t, err)
		assert.Equal(t, name, parsed.String())
		assert.True(t, parsed.Valid())
	}

	_, err := ParseRelationType("Bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown relationship type "Bogus"`)

	var zero RelationType
	assert.False(t, zero.Valid())
}

func TestParseCascadeAction(t *testing.T) {
	cases := map[string]CascadeAction{
		"restrict":   CascadeRestrict,
		"cascade":    CascadeDelete,
		"softDelete": CascadeSoftDelete,
	}
	for name, want := range cases {
		parsed, err := ParseCascadeAction(name)
		require.NoError(t, err)
		assert.Equal(t, want, parsed)
		assert.Equal(t, name, parsed.String())
	}

	_, err := ParseCascadeAction("obliterate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown cascade action "obliterate"`)
}

func TestRelationshipParticipants(t *testing.T) {
	oneToMany := NewRelationship("MovieQuotes", OneToMany)
	oneToMany.ModelOne = "Movies"
	oneToMany.ModelMany = "MovieQuotes"
	assert.Equal(t, []string{"Movies", "MovieQuotes"}, oneToMany.Participants())

	manyToMany := NewRelationship("UserRoles", ManyToMany)
	manyToMany.ModelA = "Users"
	manyToMany.ModelB = "Roles"
	assert.Equal(t, []string{"Users", "Roles"}, manyToMany.Participants())

	invalid := NewRelationship("Broken", RelationInvalid)
	assert.Nil(t, invalid.Participants())
}

func TestRelationshipInvolves(t *testing.T) {
	rel := NewRelationship("MovieQuotes", OneToMany)
	rel.ModelOne = "Movies"
	rel.ModelMany = "MovieQuotes"

	assert.True(t, rel.Involves("Movies"))
	assert.True(t, rel.Involves("MovieQuotes"))
	assert.False(t, rel.Involves("Users"))
	assert.False(t, rel.Involves("movies"))
}

func TestRelationshipClone(t *testing.T) {
	rel := NewRelationship("UserRoles", ManyToMany)
	rel.ModelA = "Users"
	rel.ModelB = "Roles"
	rel.Fields = NewFieldSet()
	require.NoError(t, rel.Fields.Set(mustField(t, "users_id", KindID)))
	rel.Additional = []*FieldDescriptor{mustField(t, "grantedAt", KindDateTime)}
	rel.Constraints = []string{"unique"}

	clone := rel.Clone()
	clone.ModelA = "Accounts"
	clone.Constraints[0] = "none"
	clone.Additional[0].Label = "Changed"
	field, _ := clone.Fields.Get("users_id")
	field.Label = "Changed"

	assert.Equal(t, "Users", rel.ModelA)
	assert.Equal(t, "unique", rel.Constraints[0])
	assert.Equal(t, "Granted At", rel.Additional[0].Label)
	original, _ := rel.Fields.Get("users_id")
	assert.Equal(t, "Users Id", original.Label)
}
