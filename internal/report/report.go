// Package report assembles the symbol and call graph payloads handed to
// presentation layers.
package report

import (
	"github.com/coral-mesh/elfinsight/internal/callgraph"
	"github.com/coral-mesh/elfinsight/internal/symtab"
)

// UsageTotals summarises memory use. Initialised data lives in flash and is
// copied to RAM at startup, so it counts towards both.
type UsageTotals struct {
	FlashUsed uint64 `json:"flashUsed"`
	RAMUsed   uint64 `json:"ramUsed"`
}

// Usage computes flash and RAM totals from section sizes.
func Usage(s symtab.SectionSizes) UsageTotals {
	return UsageTotals{
		FlashUsed: s.Text + s.ROData + s.Data,
		RAMUsed:   s.BSS + s.Data + s.BSSWeak,
	}
}

// SymbolsPayload is the symbol table view.
type SymbolsPayload struct {
	Symbols      []symtab.Symbol     `json:"symbols"`
	SectionSizes symtab.SectionSizes `json:"sectionSizes"`
	FlashUsed    uint64              `json:"flashUsed"`
	RAMUsed      uint64              `json:"ramUsed"`
}

// GraphPayload is the call graph view.
type GraphPayload struct {
	Nodes                 []symtab.FunctionSymbol `json:"nodes"`
	Edges                 callgraph.CallGraph     `json:"edges"`
	AddressToFunctionName map[string]string       `json:"addressToFunctionName"`
}

// NewSymbolsPayload builds the symbol table view from a parsed table.
func NewSymbolsPayload(t *symtab.Table) SymbolsPayload {
	usage := Usage(t.Sizes)

	symbols := t.Symbols
	if symbols == nil {
		symbols = []symtab.Symbol{}
	}
	return SymbolsPayload{
		Symbols:      symbols,
		SectionSizes: t.Sizes,
		FlashUsed:    usage.FlashUsed,
		RAMUsed:      usage.RAMUsed,
	}
}

// NewGraphPayload builds the call graph view. The index is copied, so the
// payload stays valid if idx is modified later.
func NewGraphPayload(g callgraph.CallGraph, idx *symtab.Index) GraphPayload {
	edges := make(callgraph.CallGraph, len(g))
	for caller, callees := range g {
		cp := make([]string, len(callees))
		copy(cp, callees)
		edges[caller] = cp
	}
	return GraphPayload{
		Nodes:                 idx.Functions(),
		Edges:                 edges,
		AddressToFunctionName: idx.AddressToName(),
	}
}
