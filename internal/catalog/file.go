package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/symdex/internal/domain"
)

// File is the on-disk relationship map.
//
//	root: Page
//	relationships:
//	  Page: [Header, Section]
//	  Section: [Card]
//	symbols:
//	  Page: "ρ"
type File struct {
	Root          string              `yaml:"root"`
	Relationships map[string][]string `yaml:"relationships"`
	// Symbols pins names to fixed symbols; the rest are generated.
	Symbols map[string]string `yaml:"symbols"`
}

// Load reads and parses a relationship map file.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return File{}, fmt.Errorf("read relationships %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a relationship map.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse relationships: %w: %w", domain.ErrInvalidRequest, err)
	}
	if len(f.Relationships) == 0 {
		return File{}, fmt.Errorf("relationships: at least one entry is required: %w", domain.ErrInvalidRequest)
	}
	for parent := range f.Relationships {
		if parent == "" {
			return File{}, fmt.Errorf("relationships: empty component name: %w", domain.ErrInvalidRequest)
		}
	}
	return f, nil
}
