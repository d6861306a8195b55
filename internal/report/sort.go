package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coral-mesh/elfinsight/internal/symtab"
)

// Sort keys accepted by SortSymbols.
const (
	SortNone    = ""
	SortSize    = "size"
	SortAddress = "address"
	SortName    = "name"
)

// SortKeys lists the accepted sort keys.
var SortKeys = []string{SortSize, SortAddress, SortName}

// SortSymbols returns a sorted copy of symbols. Size sorts largest first;
// ties keep input order.
func SortSymbols(symbols []symtab.Symbol, key string) ([]symtab.Symbol, error) {
	out := make([]symtab.Symbol, len(symbols))
	copy(out, symbols)

	var less func(a, b symtab.Symbol) bool
	switch key {
	case SortNone:
		return out, nil
	case SortSize:
		less = func(a, b symtab.Symbol) bool { return a.SizeBytes > b.SizeBytes }
	case SortAddress:
		less = func(a, b symtab.Symbol) bool { return addressLess(a.Address, b.Address) }
	case SortName:
		less = func(a, b symtab.Symbol) bool { return a.Name < b.Name }
	default:
		return nil, fmt.Errorf("unsupported sort key %q, must be one of: %v", key, SortKeys)
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// addressLess orders hex addresses numerically regardless of width.
func addressLess(a, b string) bool {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Limit truncates symbols to at most n entries. n <= 0 means no limit.
func Limit(symbols []symtab.Symbol, n int) []symtab.Symbol {
	if n <= 0 || n >= len(symbols) {
		return symbols
	}
	return symbols[:n]
}
