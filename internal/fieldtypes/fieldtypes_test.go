package fieldtypes

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestlehq/trestle/internal/schema"
)

func buildField(t *testing.T, kind schema.Kind, mutate ...func(*schema.FieldDescriptor)) Field {
	t.Helper()
	desc, err := schema.NewFieldDescriptor("probe", kind)
	require.NoError(t, err)
	for _, fn := range mutate {
		fn(desc)
	}
	field, err := DefaultRegistry().New(desc)
	require.NoError(t, err)
	return field
}

func TestRegistryCoversAllKinds(t *testing.T) {
	reg := DefaultRegistry()
	assert.Len(t, reg.Kinds(), 16)

	for _, kind := range schema.Kinds() {
		desc, err := schema.NewFieldDescriptor("probe", kind)
		require.NoError(t, err)
		field, err := reg.New(desc)
		require.NoError(t, err, kind.String())
		assert.Equal(t, kind, field.Kind())
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	reg := NewRegistry()
	desc, err := schema.NewFieldDescriptor("probe", schema.KindText)
	require.NoError(t, err)

	_, err = reg.New(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no field implementation registered")
}

func TestConstructorRejectsKindMismatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(schema.KindEmail, newText)

	desc, err := schema.NewFieldDescriptor("probe", schema.KindEmail)
	require.NoError(t, err)

	_, err = reg.New(desc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constructor builds Text")
}

func TestOperatorsDescriptorOverride(t *testing.T) {
	field := buildField(t, schema.KindText, func(d *schema.FieldDescriptor) {
		d.Operators = []string{OpEq}
	})
	assert.Equal(t, []string{OpEq}, field.Operators())

	plain := buildField(t, schema.KindText)
	assert.Contains(t, plain.Operators(), OpContains)
}

func TestIDNormalize(t *testing.T) {
	field := buildField(t, schema.KindID)

	got, err := field.Normalize("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
	require.NoError(t, err)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", got)

	got, err = field.Normalize("movie-42")
	require.NoError(t, err)
	assert.Equal(t, "movie-42", got)

	got, err = field.Normalize(42)
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	got, err = field.Normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = field.Normalize(4.2)
	assert.Error(t, err)
}

func TestBigTextSanitizes(t *testing.T) {
	field := buildField(t, schema.KindBigText)

	got, err := field.Normalize(`<p>hello</p><script>alert(1)</script>`)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", got)
}

func TestEmailNormalize(t *testing.T) {
	field := buildField(t, schema.KindEmail)

	got, err := field.Normalize("  Ada@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got)

	_, err = field.Normalize("not-an-email")
	assert.Error(t, err)

	got, err = field.Normalize("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestIntegerNormalize(t *testing.T) {
	field := buildField(t, schema.KindInteger)

	got, err := field.Normalize(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	got, err = field.Normalize(4.0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got)

	_, err = field.Normalize(4.5)
	assert.Error(t, err)

	got, err = field.Normalize("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), got)

	_, err = field.Normalize("twelve")
	assert.Error(t, err)
}

func TestFloatNormalize(t *testing.T) {
	field := buildField(t, schema.KindFloat)

	got, err := field.Normalize("3.14")
	require.NoError(t, err)
	assert.Equal(t, 3.14, got)

	got, err = field.Normalize(2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestBooleanNormalize(t *testing.T) {
	field := buildField(t, schema.KindBoolean)

	got, err := field.Normalize("true")
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = field.Normalize(0)
	require.NoError(t, err)
	assert.Equal(t, false, got)

	_, err = field.Normalize("maybe")
	assert.Error(t, err)
}

func TestDateNormalize(t *testing.T) {
	field := buildField(t, schema.KindDate)

	got, err := field.Normalize("2026-02-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), got)

	noon := time.Date(2026, 2, 14, 12, 30, 0, 0, time.UTC)
	got, err = field.Normalize(noon)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), got)

	_, err = field.Normalize("14/02/2026")
	assert.Error(t, err)
}

func TestDateTimeNormalize(t *testing.T) {
	field := buildField(t, schema.KindDateTime)

	got, err := field.Normalize("2026-02-14T09:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC), got)

	got, err = field.Normalize("2026-02-14 09:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC), got)

	_, err = field.Normalize("yesterday")
	assert.Error(t, err)
}

func TestEnumNormalize(t *testing.T) {
	field := buildField(t, schema.KindEnum, func(d *schema.FieldDescriptor) {
		d.Options = []string{"drama", "comedy"}
	})

	got, err := field.Normalize("drama")
	require.NoError(t, err)
	assert.Equal(t, "drama", got)

	_, err = field.Normalize("horror")
	assert.Error(t, err)

	// No options configured means membership is not enforced.
	open := buildField(t, schema.KindEnum)
	got, err = open.Normalize("anything")
	require.NoError(t, err)
	assert.Equal(t, "anything", got)
}

func TestMultiEnumNormalize(t *testing.T) {
	field := buildField(t, schema.KindMultiEnum, func(d *schema.FieldDescriptor) {
		d.Options = []string{"drama", "comedy", "noir"}
	})

	got, err := field.Normalize([]any{"drama", "noir"})
	require.NoError(t, err)
	assert.Equal(t, []string{"drama", "noir"}, got)

	got, err = field.Normalize("comedy")
	require.NoError(t, err)
	assert.Equal(t, []string{"comedy"}, got)

	_, err = field.Normalize([]string{"drama", "horror"})
	assert.Error(t, err)

	_, err = field.Normalize([]any{"drama", 7})
	assert.Error(t, err)
}

func TestRelatedRecordNormalize(t *testing.T) {
	field := buildField(t, schema.KindRelatedRecord, func(d *schema.FieldDescriptor) {
		d.RelatedModel = "Users"
	})

	related, ok := field.(*RelatedRecordField)
	require.True(t, ok)
	assert.Equal(t, "Users", related.RelatedModel())

	got, err := field.Normalize("user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got)
}

func TestImageNormalize(t *testing.T) {
	field := buildField(t, schema.KindImage)

	got, err := field.Normalize("uploads/poster.png")
	require.NoError(t, err)
	assert.Equal(t, "uploads/poster.png", got)

	got, err = field.Normalize("https://cdn.example.com/poster.jpg?w=300")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/poster.jpg?w=300", got)

	_, err = field.Normalize("uploads/poster.exe")
	assert.Error(t, err)
}

func TestVideoNormalize(t *testing.T) {
	field := buildField(t, schema.KindVideo)

	got, err := field.Normalize("clips/trailer.mp4")
	require.NoError(t, err)
	assert.Equal(t, "clips/trailer.mp4", got)

	// Hosted links skip the extension check entirely.
	got, err = field.Normalize("https://videos.example.com/watch?v=abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://videos.example.com/watch?v=abc123", got)

	_, err = field.Normalize("clips/trailer.avi")
	assert.Error(t, err)
}

func TestPasswordNormalize(t *testing.T) {
	field := buildField(t, schema.KindPassword)

	got, err := field.Normalize("hunter2hunter2")
	require.NoError(t, err)
	hash, ok := got.(string)
	require.True(t, ok)
	assert.Len(t, hash, 60)
	assert.True(t, strings.HasPrefix(hash, "$2"))
	assert.NotEqual(t, "hunter2hunter2", hash)

	password, ok := field.(*PasswordField)
	require.True(t, ok)
	assert.True(t, password.Verify(hash, "hunter2hunter2"))
	assert.False(t, password.Verify(hash, "wrong"))

	// Re-saving a stored hash must not double-hash it.
	again, err := field.Normalize(hash)
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	// Passwords are never filterable.
	assert.Nil(t, field.Operators())
}
