package fieldtypes

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/bcrypt"

	"github.com/trestlehq/trestle/internal/schema"
)

// IDField is the primary-key field. Values are opaque identifiers; when a
// string parses as a UUID it is canonicalized to its lowercase form.
type IDField struct{ base }

func newID(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindID); err != nil {
		return nil, err
	}
	return &IDField{base{desc}}, nil
}

func (f *IDField) Component() string   { return "hidden" }
func (f *IDField) Description() string { return "Unique record identifier" }
func (f *IDField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpIn})
}
func (f *IDField) ApplicableRules() []string { return nil }

func (f *IDField) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return v.String(), nil
	case string:
		if parsed, err := uuid.Parse(v); err == nil {
			return parsed.String(), nil
		}
		return v, nil
	case int, int32, int64:
		return fmt.Sprintf("%d", v), nil
	}
	return nil, fmt.Errorf("field %q: cannot use %T as an identifier", f.desc.Name, value)
}

// TextField is a single-line string.
type TextField struct{ base }

func newText(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindText); err != nil {
		return nil, err
	}
	return &TextField{base{desc}}, nil
}

func (f *TextField) Component() string   { return "text" }
func (f *TextField) Description() string { return "Single line of text" }
func (f *TextField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpContains, OpStartsWith, OpEndsWith, OpIn, OpIsNull, OpNotNull})
}
func (f *TextField) ApplicableRules() []string {
	return []string{"Required", "MinLength", "MaxLength", "Regex"}
}

func (f *TextField) Normalize(value any) (any, error) {
	return normalizeString(f.desc.Name, value)
}

// BigTextField is a multi-line rich text field. Writes are sanitized with a
// user-generated-content HTML policy so stored markup is safe to render.
type BigTextField struct {
	base
	policy *bluemonday.Policy
}

func newBigText(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindBigText); err != nil {
		return nil, err
	}
	return &BigTextField{base: base{desc}, policy: bluemonday.UGCPolicy()}, nil
}

func (f *BigTextField) Component() string   { return "textarea" }
func (f *BigTextField) Description() string { return "Long-form rich text" }
func (f *BigTextField) Operators() []string {
	return f.operators([]string{OpContains, OpIsNull, OpNotNull})
}
func (f *BigTextField) ApplicableRules() []string {
	return []string{"Required", "MaxLength"}
}

func (f *BigTextField) Normalize(value any) (any, error) {
	s, err := normalizeString(f.desc.Name, value)
	if err != nil || s == nil {
		return s, err
	}
	return f.policy.Sanitize(s.(string)), nil
}

// EmailField is a text field constrained to mailbox addresses. Addresses
// are lowercased on write.
type EmailField struct{ base }

func newEmail(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindEmail); err != nil {
		return nil, err
	}
	return &EmailField{base{desc}}, nil
}

func (f *EmailField) Component() string   { return "email" }
func (f *EmailField) Description() string { return "Email address" }
func (f *EmailField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpContains, OpEndsWith, OpIn, OpIsNull, OpNotNull})
}
func (f *EmailField) ApplicableRules() []string {
	return []string{"Required", "Email"}
}

func (f *EmailField) Normalize(value any) (any, error) {
	s, err := normalizeString(f.desc.Name, value)
	if err != nil || s == nil {
		return s, err
	}
	addr := strings.ToLower(strings.TrimSpace(s.(string)))
	if addr == "" {
		return "", nil
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return nil, fmt.Errorf("field %q: invalid email address", f.desc.Name)
	}
	return addr, nil
}

// PasswordField stores bcrypt hashes, never plaintext. Normalize hashes the
// incoming value; a value that already looks like a bcrypt hash passes
// through untouched so re-saving a record does not double-hash.
type PasswordField struct{ base }

func newPassword(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindPassword); err != nil {
		return nil, err
	}
	return &PasswordField{base{desc}}, nil
}

func (f *PasswordField) Component() string   { return "password" }
func (f *PasswordField) Description() string { return "Write-only secret, stored hashed" }

// Operators returns nil; password fields are never filterable.
func (f *PasswordField) Operators() []string { return nil }

func (f *PasswordField) ApplicableRules() []string {
	return []string{"Required", "MinLength"}
}

func (f *PasswordField) Normalize(value any) (any, error) {
	s, err := normalizeString(f.desc.Name, value)
	if err != nil || s == nil {
		return s, err
	}
	plain := s.(string)
	if plain == "" {
		return "", nil
	}
	if isBcryptHash(plain) {
		return plain, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("field %q: hash password: %w", f.desc.Name, err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches the stored bcrypt hash.
func (f *PasswordField) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && strings.HasPrefix(s, "$2")
}

func normalizeString(field string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, fmt.Errorf("field %q: expected a string, got %T", field, value)
}
