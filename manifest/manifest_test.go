package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "coinstr.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeManifest(t, `
[project]
name = "payments"
version = "1.2.0"

[source]
dirs = ["compiled", "extra"]
pattern = "*.cbor"

[instrument]
output-dir = "build"
disasm = true

[cache]
enabled = true
path = "cache/results.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if m.Project.Name != "payments" || m.Project.Version != "1.2.0" {
		t.Errorf("project = %+v", m.Project)
	}
	if len(m.Source.Dirs) != 2 || m.Source.Pattern != "*.cbor" {
		t.Errorf("source = %+v", m.Source)
	}
	if m.Instrument.OutputDir != "build" || !m.Instrument.Disasm {
		t.Errorf("instrument = %+v", m.Instrument)
	}
	if !m.Cache.Enabled {
		t.Error("cache not enabled")
	}
	if m.Dir == "" || !filepath.IsAbs(m.Dir) {
		t.Errorf("Dir = %q, want absolute path", m.Dir)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := writeManifest(t, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "methods" {
		t.Errorf("default source dirs = %v", m.Source.Dirs)
	}
	if m.Source.Pattern != "*.chunk" {
		t.Errorf("default pattern = %q", m.Source.Pattern)
	}
	if m.Instrument.OutputDir != "out" {
		t.Errorf("default output dir = %q", m.Instrument.OutputDir)
	}
	if m.Cache.Path == "" {
		t.Error("default cache path empty")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("loading a missing manifest succeeded")
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := writeManifest(t, "[project\nname = broken")
	if _, err := Load(dir); err == nil {
		t.Error("loading a malformed manifest succeeded")
	}
}

func TestPathResolution(t *testing.T) {
	dir := writeManifest(t, `
[source]
dirs = ["rel"]

[cache]
path = "/abs/cache.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	paths := m.SourcePaths()
	if len(paths) != 1 || !filepath.IsAbs(paths[0]) {
		t.Errorf("SourcePaths() = %v, want absolute", paths)
	}
	if m.CachePath() != "/abs/cache.db" {
		t.Errorf("CachePath() = %q, absolute path was rewritten", m.CachePath())
	}
	if !filepath.IsAbs(m.OutputPath()) {
		t.Errorf("OutputPath() = %q, want absolute", m.OutputPath())
	}
}

func TestExists(t *testing.T) {
	dir := writeManifest(t, "[project]\nname = \"x\"\n")
	if !Exists(dir) {
		t.Error("Exists() = false for a directory with coinstr.toml")
	}
	if Exists(t.TempDir()) {
		t.Error("Exists() = true for an empty directory")
	}
}
