package prompts

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest describes an optional prompt pack loaded from an on-disk
// manifest.yaml: a set of name overrides and extra on-disk template files
// layered on top of the bundled defaults, grounded on the teacher's
// yaml.Unmarshal-into-validated-struct pattern
// (services/trace/config/prefilter_config.go).
type Manifest struct {
	// Overrides maps the upper-cased "<PREFIX>_<SYMBOLTYPE>" to a
	// replacement prompt name,
	// taking priority over the embedded default but below any
	// THAUM_PROMPT_* environment override.
	Overrides map[string]string `yaml:"overrides"`

	// Dir is the directory overridden template files are read from,
	// relative to the manifest file's own directory. Empty means the
	// manifest carries name overrides only, reusing bundled templates.
	Dir string `yaml:"dir"`
}

// LoadManifest reads and validates a prompt-pack manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompts: reading manifest %q: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("prompts: parsing manifest %q: %w", path, err)
	}
	for key, name := range m.Overrides {
		if name == "" {
			return nil, fmt.Errorf("prompts: manifest %q: override %q has an empty target name", path, key)
		}
	}
	if m.Dir != "" && !filepath.IsAbs(m.Dir) {
		m.Dir = filepath.Join(filepath.Dir(path), m.Dir)
	}
	return &m, nil
}

// ApplyManifest layers m's name overrides and on-disk template directory
// onto the store. Overrides set here are shadowed by any matching
// THAUM_PROMPT_* environment variable at Name-resolution time.
func (s *Store) ApplyManifest(m *Manifest) {
	if m == nil {
		return
	}
	if s.manifestOverrides == nil {
		s.manifestOverrides = make(map[string]string, len(m.Overrides))
	}
	for key, name := range m.Overrides {
		s.manifestOverrides[key] = name
	}
	if m.Dir != "" {
		s.manifestDir = m.Dir
	}
}
