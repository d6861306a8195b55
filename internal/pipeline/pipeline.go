// Package pipeline runs one load: it gathers the tool listings for an ELF
// file and feeds them through the symbol, function and call graph stages.
//
// Every load builds fresh state. The section-size parse runs alongside the
// function extraction, and the disassembly is fetched concurrently with
// both; the call graph stage starts only after extraction has completed,
// because it enriches the index extraction produced.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coral-mesh/elfinsight/internal/callgraph"
	"github.com/coral-mesh/elfinsight/internal/report"
	"github.com/coral-mesh/elfinsight/internal/safe"
	"github.com/coral-mesh/elfinsight/internal/symtab"
	"github.com/coral-mesh/elfinsight/internal/toolchain"
)

// ErrNoInput is returned when no ELF file was selected.
var ErrNoInput = errors.New("no file selected")

// Stage selects which parts of a load run.
type Stage uint8

const (
	// StageSymbols parses the sized symbol table.
	StageSymbols Stage = 1 << iota
	// StageGraph extracts functions and builds the call graph.
	StageGraph

	// StageAll runs every stage.
	StageAll = StageSymbols | StageGraph
)

// Options configures a Loader.
type Options struct {
	// Policy maps type codes to sections. The zero value selects symtab.DefaultPolicy.
	Policy symtab.SectionPolicy
	// Mnemonics are the call instructions scanned for. Empty selects callgraph.DefaultMnemonics.
	Mnemonics []string
}

// Loader runs loads against a listing source.
type Loader struct {
	source toolchain.Source
	logger zerolog.Logger
	opts   Options
}

// Result holds everything one load produced.
type Result struct {
	LoadID string
	File   string

	// Symbols is set when StageSymbols ran.
	Symbols *report.SymbolsPayload
	// Graph and GraphStats are set when StageGraph ran.
	Graph      *report.GraphPayload
	GraphStats callgraph.Stats

	// SkippedLines counts symbol table lines that were not records.
	SkippedLines int
	// InvalidAddresses counts function lines dropped for a bad address.
	InvalidAddresses int
}

// NewLoader creates a Loader.
func NewLoader(source toolchain.Source, logger zerolog.Logger, opts Options) (*Loader, error) {
	if opts.Policy.Codes == nil {
		opts.Policy = symtab.DefaultPolicy
	}
	if _, err := callgraph.NewBuilder(logger, opts.Mnemonics); err != nil {
		return nil, err
	}
	return &Loader{
		source: source,
		logger: logger,
		opts:   opts,
	}, nil
}

// ResolveInput turns a user-selected path into an absolute path to a
// regular file.
func ResolveInput(path string) (string, error) {
	if path == "" {
		return "", ErrNoInput
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	if _, err := safe.StatRegular(abs, false); err != nil {
		return "", fmt.Errorf("open ELF file: %w", err)
	}
	return abs, nil
}

// Load runs the selected stages for file. A tool failure aborts the whole
// load; no partial result is returned.
func (l *Loader) Load(ctx context.Context, file string, stages Stage) (*Result, error) {
	if stages&StageAll == 0 {
		return nil, fmt.Errorf("no stages selected")
	}

	res := &Result{
		LoadID: uuid.NewString(),
		File:   file,
	}
	logger := l.logger.With().Str("load_id", res.LoadID).Str("file", file).Logger()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)

	var table *symtab.Table
	if stages&StageSymbols != 0 {
		g.Go(func() error {
			var err error
			table, err = l.symbolTable(gctx, file)
			return err
		})
	}

	var (
		idx         *symtab.Index
		disassembly string
	)
	if stages&StageGraph != 0 {
		g.Go(func() error {
			var err error
			idx, res.InvalidAddresses, err = l.functions(gctx, logger, file)
			return err
		})
		g.Go(func() error {
			var err error
			disassembly, err = l.source.Listing(gctx, toolchain.KindDisassembly, file)
			if err != nil {
				return fmt.Errorf("load disassembly: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Load failed")
		return nil, err
	}

	if table != nil {
		payload := report.NewSymbolsPayload(table)
		res.Symbols = &payload
		res.SkippedLines = table.Skipped
	}

	if idx != nil {
		builder, err := callgraph.NewBuilder(logger.With().Str("stage", "callgraph").Logger(), l.opts.Mnemonics)
		if err != nil {
			return nil, err
		}
		graph, stats, err := builder.Build(disassembly, idx)
		if err != nil {
			return nil, fmt.Errorf("build call graph: %w", err)
		}
		payload := report.NewGraphPayload(graph, idx)
		res.Graph = &payload
		res.GraphStats = stats
	}

	event := logger.Info().Dur("duration", time.Since(start))
	if res.Symbols != nil {
		event = event.Int("symbols", len(res.Symbols.Symbols)).
			Uint64("flash_used", res.Symbols.FlashUsed).
			Uint64("ram_used", res.Symbols.RAMUsed)
	}
	if res.Graph != nil {
		event = event.Int("functions", len(res.Graph.Nodes)).
			Int("call_sites", res.GraphStats.CallSites).
			Int("unresolved_calls", res.GraphStats.Unresolved)
	}
	event.Msg("Load complete")

	return res, nil
}

func (l *Loader) symbolTable(ctx context.Context, file string) (*symtab.Table, error) {
	text, err := l.source.Listing(ctx, toolchain.KindSymbolSizes, file)
	if err != nil {
		return nil, fmt.Errorf("load symbol table: %w", err)
	}
	table, err := symtab.ParseSymbolTable(text, l.opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("parse symbol table: %w", err)
	}
	return table, nil
}

func (l *Loader) functions(ctx context.Context, logger zerolog.Logger, file string) (*symtab.Index, int, error) {
	text, err := l.source.Listing(ctx, toolchain.KindDefinedSymbols, file)
	if err != nil {
		return nil, 0, fmt.Errorf("load function symbols: %w", err)
	}

	invalid := 0
	idx := symtab.NewIndex()
	err = symtab.ExtractFunctions(text, idx, func(lineNo int, err error) {
		invalid++
		logger.Debug().Err(err).Int("line", lineNo).Msg("Skipping function symbol")
	})
	if err != nil {
		return nil, 0, fmt.Errorf("extract functions: %w", err)
	}
	return idx, invalid, nil
}
