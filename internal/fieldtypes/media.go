package fieldtypes

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/trestlehq/trestle/internal/schema"
)

// RelatedRecordField references a row of another entity by id.
type RelatedRecordField struct{ base }

func newRelatedRecord(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindRelatedRecord); err != nil {
		return nil, err
	}
	return &RelatedRecordField{base{desc}}, nil
}

func (f *RelatedRecordField) Component() string { return "record-picker" }
func (f *RelatedRecordField) Description() string {
	return "Reference to a record of another entity"
}
func (f *RelatedRecordField) Operators() []string {
	return f.operators([]string{OpEq, OpNeq, OpIn, OpIsNull, OpNotNull})
}
func (f *RelatedRecordField) ApplicableRules() []string {
	return []string{"Required"}
}

// RelatedModel names the referenced entity, empty when the schema omitted it.
func (f *RelatedRecordField) RelatedModel() string { return f.desc.RelatedModel }

func (f *RelatedRecordField) Normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return v.String(), nil
	case string:
		return v, nil
	case int, int32, int64:
		return fmt.Sprintf("%d", v), nil
	}
	return nil, fmt.Errorf("field %q: cannot use %T as a record reference", f.desc.Name, value)
}

// ImageField stores the location of an uploaded image.
type ImageField struct{ base }

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true,
}

func newImage(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindImage); err != nil {
		return nil, err
	}
	return &ImageField{base{desc}}, nil
}

func (f *ImageField) Component() string   { return "image-upload" }
func (f *ImageField) Description() string { return "Uploaded image" }
func (f *ImageField) Operators() []string {
	return f.operators([]string{OpIsNull, OpNotNull})
}
func (f *ImageField) ApplicableRules() []string {
	return []string{"Required"}
}

func (f *ImageField) Normalize(value any) (any, error) {
	return normalizeMediaLocation(f.desc.Name, value, imageExtensions)
}

// VideoField stores the location of an uploaded or linked video.
type VideoField struct{ base }

var videoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".mkv": true,
}

func newVideo(desc *schema.FieldDescriptor) (Field, error) {
	if err := guardKind(desc, schema.KindVideo); err != nil {
		return nil, err
	}
	return &VideoField{base{desc}}, nil
}

func (f *VideoField) Component() string   { return "video-upload" }
func (f *VideoField) Description() string { return "Uploaded or linked video" }
func (f *VideoField) Operators() []string {
	return f.operators([]string{OpIsNull, OpNotNull})
}
func (f *VideoField) ApplicableRules() []string {
	return []string{"Required"}
}

func (f *VideoField) Normalize(value any) (any, error) {
	// Hosted video links carry no useful extension, so only local paths
	// are extension-checked.
	s, err := normalizeString(f.desc.Name, value)
	if err != nil || s == nil {
		return s, err
	}
	loc := s.(string)
	if loc == "" || strings.Contains(loc, "://") {
		return loc, nil
	}
	return normalizeMediaLocation(f.desc.Name, loc, videoExtensions)
}

func normalizeMediaLocation(field string, value any, allowed map[string]bool) (any, error) {
	s, err := normalizeString(field, value)
	if err != nil || s == nil {
		return s, err
	}
	loc := s.(string)
	if loc == "" {
		return "", nil
	}
	candidate := loc
	if u, err := url.Parse(loc); err == nil && u.Path != "" {
		candidate = u.Path
	}
	ext := strings.ToLower(path.Ext(candidate))
	if ext != "" && !allowed[ext] {
		return nil, fmt.Errorf("field %q: unsupported file type %q", field, ext)
	}
	return loc, nil
}
