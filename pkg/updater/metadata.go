package updater

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/avoss/lantern/internal/models"
)

// MetadataStore persists the last-known installed model and document set
// versions as a small JSON file.
type MetadataStore struct {
	path   string
	logger *zap.Logger
}

func NewMetadataStore(path string, logger *zap.Logger) *MetadataStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataStore{path: path, logger: logger}
}

// Load reads the local record. A missing or unparsable file is not an
// error: it means nothing has been installed yet.
func (s *MetadataStore) Load() models.Manifest {
	var record models.Manifest

	data, err := os.ReadFile(s.path)
	if err != nil {
		return record
	}
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn("local metadata unparsable, treating as empty",
			zap.String("path", s.path), zap.Error(err))
		return models.Manifest{}
	}
	return record
}

// Save overwrites the local record via write-to-temp-then-rename so a crash
// mid-write cannot leave a truncated file behind.
func (s *MetadataStore) Save(record models.Manifest) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metadata dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*")
	if err != nil {
		return fmt.Errorf("creating temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing metadata: %w", err)
	}
	return nil
}

// Path reports the backing file.
func (s *MetadataStore) Path() string { return s.path }
