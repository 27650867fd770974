// coinstr - monitor instrumentation for compiled method chunks
//
// Reads CBOR method chunks, virtualizes their monitor instructions into
// per-call lock ledgers, and writes instrumentation bundles for the
// suspend/resume pipeline to splice.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/qsingleton/coroutines/manifest"
	"github.com/qsingleton/coroutines/pkg/bytecode"
	"github.com/qsingleton/coroutines/pkg/instrument"
	"github.com/qsingleton/coroutines/store"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("coinstr")

func main() {
	manifestDir := flag.String("manifest", "", "Directory containing coinstr.toml")
	outDir := flag.String("o", "", "Output directory for bundles (overrides manifest)")
	cachePath := flag.String("cache", "", "Cache database path (overrides manifest)")
	noCache := flag.Bool("no-cache", false, "Skip the result cache entirely")
	disasm := flag.Bool("disasm", false, "Write a disassembly listing next to each bundle")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: coinstr [options] [chunks...]\n\n")
		fmt.Fprintf(os.Stderr, "Instruments method chunks so their monitor operations are tracked in a\n")
		fmt.Fprintf(os.Stderr, "per-call lock ledger, and writes one instrumentation bundle per method.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  coinstr -o out foo.chunk bar.chunk   # Instrument two chunks\n")
		fmt.Fprintf(os.Stderr, "  coinstr -manifest .                  # Instrument per coinstr.toml\n")
		fmt.Fprintf(os.Stderr, "  coinstr -disasm -o out foo.chunk     # Also write listings\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	cfg, err := loadConfig(*manifestDir, *outDir, *cachePath, *disasm, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.chunks) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no chunk files to instrument")
		flag.Usage()
		os.Exit(1)
	}

	var cache *store.Store
	if !*noCache && cfg.cachePath != "" {
		cache, err = store.Open(cfg.cachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening cache: %v\n", err)
			os.Exit(1)
		}
		defer cache.Close()
	}

	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	failures := 0
	for _, path := range cfg.chunks {
		if err := instrumentChunk(path, cfg, cache); err != nil {
			log.Errorf("%s: %s", path, err.Error())
			failures++
		}
	}
	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d chunks failed\n", failures, len(cfg.chunks))
		os.Exit(1)
	}
}

type config struct {
	chunks    []string
	outDir    string
	cachePath string
	disasm    bool
}

// loadConfig merges manifest settings with flag overrides. Explicit chunk
// arguments win over manifest source globs.
func loadConfig(manifestDir, outDir, cachePath string, disasm bool, args []string) (*config, error) {
	cfg := &config{
		chunks: args,
		outDir: outDir,
		disasm: disasm,
	}

	if manifestDir != "" {
		m, err := manifest.Load(manifestDir)
		if err != nil {
			return nil, err
		}
		if cfg.outDir == "" {
			cfg.outDir = m.OutputPath()
		}
		if m.Cache.Enabled {
			cfg.cachePath = m.CachePath()
		}
		if m.Instrument.Disasm {
			cfg.disasm = true
		}
		if len(cfg.chunks) == 0 {
			for _, dir := range m.SourcePaths() {
				matches, err := filepath.Glob(filepath.Join(dir, m.Source.Pattern))
				if err != nil {
					return nil, fmt.Errorf("bad source pattern: %w", err)
				}
				cfg.chunks = append(cfg.chunks, matches...)
			}
		}
	}

	if cfg.outDir == "" {
		cfg.outDir = "out"
	}
	if cachePath != "" {
		cfg.cachePath = cachePath
	}
	return cfg, nil
}

// instrumentChunk runs the full pipeline for one chunk file.
func instrumentChunk(path string, cfg *config, cache *store.Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	method, err := bytecode.UnmarshalMethod(data)
	if err != nil {
		return err
	}

	hash, err := method.ContentHash()
	if err != nil {
		return err
	}

	outPath := filepath.Join(cfg.outDir, bundleName(path))

	if cache != nil {
		cached, err := cache.Get(hash)
		if err == nil {
			log.Infof("%s: cache hit", method.Name)
			if err := os.WriteFile(outPath, cached, 0o644); err != nil {
				return err
			}
			if !cfg.disasm {
				return nil
			}
			// Generation is deterministic, so the listing can be rebuilt
			// without touching the cached bundle.
			mi, err := generateFor(method)
			if err != nil {
				return err
			}
			return writeListing(listingName(outPath), method, mi)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	mi, err := generateFor(method)
	if err != nil {
		return err
	}

	bundle, err := instrument.NewBundle(method, mi)
	if err != nil {
		return err
	}
	encoded, err := instrument.MarshalBundle(bundle)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return err
	}
	log.Infof("%s: %d monitor ops, %d bytes", method.Name, len(bundle.Replacements), len(encoded))

	if cfg.disasm {
		if err := writeListing(listingName(outPath), method, mi); err != nil {
			return err
		}
	}

	if cache != nil {
		if err := cache.Put(hash, method.Name, encoded); err != nil {
			return err
		}
	}
	return nil
}

// generateFor builds the monitor instrumentation for a method from scratch.
func generateFor(method *bytecode.Method) (*instrument.MonitorInstructions, error) {
	vars := instrument.NewMonitorVariables(bytecode.NewVarTable(method))
	gen, err := instrument.NewGenerator(method, vars)
	if err != nil {
		return nil, err
	}
	return gen.Generate()
}

// bundleName maps foo.chunk to foo.bundle.
func bundleName(chunkPath string) string {
	base := filepath.Base(chunkPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".bundle"
}

// listingName maps foo.bundle to foo.disasm.
func listingName(outPath string) string {
	return strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".disasm"
}

// writeListing writes a human-readable disassembly of everything generated
// for the method.
func writeListing(path string, method *bytecode.Method, mi *instrument.MonitorInstructions) error {
	var sb strings.Builder

	sb.WriteString(bytecode.DisassembleWithName(method.Body, method.Name))
	sb.WriteString("\n")

	for i, r := range mi.Replacements() {
		sb.WriteString(bytecode.DisassembleWithName(r.Repl, fmt.Sprintf("replacement %d (%s)", i, r.Original.Op)))
		sb.WriteString("\n")
	}

	for _, f := range []struct {
		name string
		list bytecode.InsnList
	}{
		{"init-ledger", mi.InitLedger()},
		{"load-saved-ledger", mi.LoadSavedLedger()},
		{"export-ledger", mi.ExportLedger()},
		{"acquire-all", mi.AcquireAll()},
		{"release-all", mi.ReleaseAll()},
	} {
		sb.WriteString(bytecode.DisassembleWithName(f.list, f.name))
		sb.WriteString("\n")
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
