// Package manifest handles coinstr.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a coinstr.toml project configuration.
type Manifest struct {
	Project    Project    `toml:"project"`
	Source     Source     `toml:"source"`
	Instrument Instrument `toml:"instrument"`
	Cache      Cache      `toml:"cache"`

	// Dir is the directory containing the coinstr.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures where method chunks are read from.
type Source struct {
	Dirs    []string `toml:"dirs"`
	Pattern string   `toml:"pattern"`
}

// Instrument configures the instrumentation pass.
type Instrument struct {
	// OutputDir receives the generated bundles.
	OutputDir string `toml:"output-dir"`

	// Disasm attaches a disassembly listing next to each bundle.
	Disasm bool `toml:"disasm"`
}

// Cache configures the content-addressed result cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load parses a coinstr.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "coinstr.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	return &m, nil
}

// Exists reports whether a coinstr.toml is present in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "coinstr.toml"))
	return err == nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"methods"}
	}
	if m.Source.Pattern == "" {
		m.Source.Pattern = "*.chunk"
	}
	if m.Instrument.OutputDir == "" {
		m.Instrument.OutputDir = "out"
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".coinstr", "cache.db")
	}
}

// SourcePaths returns the configured source directories resolved against the
// manifest's own directory.
func (m *Manifest) SourcePaths() []string {
	out := make([]string, len(m.Source.Dirs))
	for i, d := range m.Source.Dirs {
		if filepath.IsAbs(d) {
			out[i] = d
		} else {
			out[i] = filepath.Join(m.Dir, d)
		}
	}
	return out
}

// CachePath returns the cache database path resolved against the manifest's
// own directory.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// OutputPath returns the bundle output directory resolved against the
// manifest's own directory.
func (m *Manifest) OutputPath() string {
	if filepath.IsAbs(m.Instrument.OutputDir) {
		return m.Instrument.OutputDir
	}
	return filepath.Join(m.Dir, m.Instrument.OutputDir)
}
