package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"go.uber.org/zap"

	"github.com/trestlehq/trestle/internal/errs"
)

// Item is one schema document discovered by a source.
type Item struct {
	// Name is the entity or relationship name, taken from the directory.
	Name string
	// Path locates the document for diagnostics.
	Path string
	// Data is the raw document.
	Data []byte
}

// Source discovers schema documents. Implementations return every document
// they can read; unreadable individual documents are logged and omitted.
type Source interface {
	Entities() ([]Item, error)
	Relationships() ([]Item, error)
}

// Directory layout conventions: one subdirectory per definition, holding a
// file named after it.
const (
	EntitiesDir      = "entities"
	RelationshipsDir = "relationships"
)

var metadataExtensions = []string{".yaml", ".yml"}

// FSSource reads schema documents from a filesystem following the
// <dir>/<Name>/<Name>_metadata.yaml convention.
type FSSource struct {
	fsys fs.FS
	log  *zap.Logger
}

// NewFSSource builds a source over fsys.
func NewFSSource(fsys fs.FS, log *zap.Logger) *FSSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &FSSource{fsys: fsys, log: log}
}

// Entities scans the entities directory. A missing directory is a
// ConfigurationError; a schema set with no entities is not a valid source.
func (s *FSSource) Entities() ([]Item, error) {
	items, err := s.scan(EntitiesDir)
	if err != nil {
		return nil, errs.NewConfiguration(EntitiesDir, err)
	}
	return items, nil
}

// Relationships scans the relationships directory. Standalone relationship
// definitions are optional, so a missing directory yields an empty set.
func (s *FSSource) Relationships() ([]Item, error) {
	items, err := s.scan(RelationshipsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errs.NewConfiguration(RelationshipsDir, err)
	}
	return items, nil
}

func (s *FSSource) scan(dir string) ([]Item, error) {
	dirents, err := fs.ReadDir(s.fsys, dir)
	if err != nil {
		return nil, err
	}
	var items []Item
	for _, dirent := range dirents {
		if !dirent.IsDir() {
			continue
		}
		name := dirent.Name()
		item, ok := s.readDefinition(dir, name)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// readDefinition locates and reads <dir>/<name>/<name>_metadata.<ext>. A
// subdirectory without a matching file is logged and skipped.
func (s *FSSource) readDefinition(dir, name string) (Item, bool) {
	for _, ext := range metadataExtensions {
		p := path.Join(dir, name, fmt.Sprintf("%s_metadata%s", name, ext))
		data, err := fs.ReadFile(s.fsys, p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			s.log.Warn("schema file unreadable",
				zap.String("path", p),
				zap.Error(err))
			return Item{}, false
		}
		return Item{Name: name, Path: p, Data: data}, true
	}
	s.log.Warn("no metadata file in schema directory",
		zap.String("directory", path.Join(dir, name)))
	return Item{}, false
}
