package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewFieldDescriptor(t *testing.T) {
	field, err := NewFieldDescriptor("releaseDate", KindDate)
	require.NoError(t, err)

	assert.Equal(t, "releaseDate", field.Name)
	assert.Equal(t, KindDate, field.Kind)
	assert.Equal(t, "Release Date", field.Label)
	assert.True(t, field.DBField)
	assert.False(t, field.Required)
}

func TestNewFieldDescriptorRejectsBadInput(t *testing.T) {
	_, err := NewFieldDescriptor("", KindText)
	assert.Error(t, err)

	_, err = NewFieldDescriptor("title", KindInvalid)
	assert.Error(t, err)
}

func TestFieldDescriptorClone(t *testing.T) {
	field, err := NewFieldDescriptor("genre", KindEnum)
	require.NoError(t, err)
	field.Options = []string{"drama", "comedy"}
	field.Rules = []string{"Required"}
	field.Annotations = map[string]any{"group": "details"}

	clone := field.Clone()
	clone.Options[0] = "horror"
	clone.Rules[0] = "MaxLength:10"
	clone.Annotations["group"] = "other"

	assert.Equal(t, "drama", field.Options[0])
	assert.Equal(t, "Required", field.Rules[0])
	assert.Equal(t, "details", field.Annotations["group"])
}

func TestApplyOverridesProtectedKeys(t *testing.T) {
	core, err := NewFieldDescriptor("id", KindID)
	require.NoError(t, err)

	observed, logs := observer.New(zap.WarnLevel)
	log := zap.New(observed)

	out := core.ApplyOverrides(map[string]any{
		"name":  "hacked",
		"type":  "Hacked",
		"label": "Safe",
	}, log)

	assert.Equal(t, "id", out.Name)
	assert.Equal(t, KindID, out.Kind)
	assert.Equal(t, "Safe", out.Label)

	warnings := logs.FilterMessage("ignoring protected field override").All()
	assert.Len(t, warnings, 2)
}

func TestApplyOverridesMergesKnownKeys(t *testing.T) {
	field, err := NewFieldDescriptor("status", KindEnum)
	require.NoError(t, err)

	out := field.ApplyOverrides(map[string]any{
		"required":        true,
		"readOnly":        true,
		"unique":          true,
		"dbField":         false,
		"rules":           []any{"Required", "In:active|archived"},
		"operators":       []string{"eq", "in"},
		"default":         "active",
		"options":         []any{"active", "archived"},
		"optionsProvider": "statuses",
		"relatedModel":    "Users",
		"group":           "workflow",
	}, nil)

	assert.True(t, out.Required)
	assert.True(t, out.ReadOnly)
	assert.True(t, out.Unique)
	assert.False(t, out.DBField)
	assert.Equal(t, []string{"Required", "In:active|archived"}, out.Rules)
	assert.Equal(t, []string{"eq", "in"}, out.Operators)
	assert.Equal(t, "active", out.Default)
	assert.Equal(t, []string{"active", "archived"}, out.Options)
	assert.Equal(t, "statuses", out.OptionsProvider)
	assert.Equal(t, "Users", out.RelatedModel)
	assert.Equal(t, "workflow", out.Annotations["group"])

	// The receiver is untouched.
	assert.False(t, field.Required)
	assert.True(t, field.DBField)
}

func TestApplyOverridesEmptyMap(t *testing.T) {
	field, err := NewFieldDescriptor("title", KindText)
	require.NoError(t, err)

	out := field.ApplyOverrides(nil, nil)
	assert.Equal(t, field.Name, out.Name)
	assert.NotSame(t, field, out)
}

func TestHasOptions(t *testing.T) {
	field, err := NewFieldDescriptor("genre", KindEnum)
	require.NoError(t, err)
	assert.False(t, field.HasOptions())

	field.Options = []string{"drama"}
	assert.True(t, field.HasOptions())

	field.Options = nil
	field.OptionsProvider = "genres"
	assert.True(t, field.HasOptions())
}
