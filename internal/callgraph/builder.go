// Package callgraph reconstructs a static call graph from objdump -d output.
package callgraph

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/elfinsight/internal/symtab"
)

// DefaultMnemonics are the ARM branch-and-link instructions scanned for.
var DefaultMnemonics = []string{"bl", "blx"}

// CallGraph maps a caller's normalized address to its callees, one entry per
// call site in the order they appear.
type CallGraph map[string][]string

// Edges returns the total number of call sites.
func (g CallGraph) Edges() int {
	n := 0
	for _, callees := range g {
		n += len(callees)
	}
	return n
}

// Stats describes one build pass.
type Stats struct {
	Labels     int `json:"labels"`
	CallSites  int `json:"callSites"`
	Unresolved int `json:"unresolved"`
	Orphaned   int `json:"orphaned"`
	Discovered int `json:"discovered"`
}

// conditionCodes are the ARM condition suffixes a call may carry.
const conditionCodes = "eq|ne|cs|hs|cc|lo|mi|pl|vs|vc|hi|ls|ge|lt|gt|le|al"

var labelPattern = regexp.MustCompile(`^([0-9A-Fa-f]+)\s+<([^>]+)>:\s*$`)

// Builder turns disassembly text into a CallGraph.
type Builder struct {
	logger zerolog.Logger
	call   *regexp.Regexp
}

// NewBuilder creates a builder matching the given call mnemonics. An empty
// list selects DefaultMnemonics.
func NewBuilder(logger zerolog.Logger, mnemonics []string) (*Builder, error) {
	if len(mnemonics) == 0 {
		mnemonics = DefaultMnemonics
	}

	quoted := make([]string, 0, len(mnemonics))
	for _, m := range mnemonics {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(m)))
	}
	if len(quoted) == 0 {
		return nil, fmt.Errorf("no call mnemonics configured")
	}

	// Mnemonic, optional condition code (blne inside an IT block) and width
	// suffix, the operand, then an optional objdump symbol annotation such as
	// <foo+0x4>.
	pattern := `(?:^|\s)(?i:` + strings.Join(quoted, "|") + `)` +
		`(?i:` + conditionCodes + `)?(?i:\.[nw])?\s+([^\s,;]+)(?:\s+<([^>]+)>)?`
	call, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile call pattern: %w", err)
	}

	return &Builder{logger: logger, call: call}, nil
}

// Build scans disassembly in a single pass. Functions discovered through
// labels or call targets are added to idx, which is shared with the symbol
// extractor.
func (b *Builder) Build(text string, idx *symtab.Index) (CallGraph, Stats, error) {
	graph := make(CallGraph)
	var stats Stats

	current := ""

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := labelPattern.FindStringSubmatch(line); m != nil {
			addr, err := symtab.Normalize(m[1])
			if err != nil {
				b.logger.Debug().Err(err).Int("line", lineNo).Msg("Skipping label with invalid address")
				current = ""
				continue
			}

			current = addr
			stats.Labels++
			if _, ok := graph[addr]; !ok {
				graph[addr] = []string{}
			}
			if !idx.HasAddress(addr) {
				idx.Add(addr, m[2])
				stats.Discovered++
			}
			continue
		}

		m := b.call.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		operand, annotation := m[1], m[2]

		if current == "" {
			stats.Orphaned++
			b.logger.Debug().Int("line", lineNo).Str("operand", operand).Msg("Skipping call outside any function")
			continue
		}

		target, ok := resolve(operand, idx)
		if !ok {
			stats.Unresolved++
			b.logger.Debug().Int("line", lineNo).Str("operand", operand).Msg("Unresolved call target")
			continue
		}

		graph[current] = append(graph[current], target)
		stats.CallSites++

		if !idx.HasAddress(target) {
			name := operand
			if annotation != "" {
				name = annotation
			}
			idx.Add(target, name)
			stats.Discovered++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read disassembly: %w", err)
	}

	return graph, stats, nil
}

// resolve maps a call operand to a normalized address: a known function name
// first, then a literal hex address.
func resolve(operand string, idx *symtab.Index) (string, bool) {
	if addr, ok := idx.AddressOf(operand); ok {
		return addr, true
	}
	if !symtab.IsHex(operand) {
		return "", false
	}
	addr, err := symtab.Normalize(operand)
	if err != nil {
		return "", false
	}
	return addr, true
}
