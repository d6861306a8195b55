package report

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/coral-mesh/elfinsight/internal/safe"
	"github.com/coral-mesh/elfinsight/internal/symtab"
)

// Filter selects symbols with a CEL expression over the variables
// name, address, size, section and location, for example
//
//	size >= 256 && section == "rodata"
//	name.startsWith("HAL_")
type Filter struct {
	expr    string
	program cel.Program
}

var filterEnv = mustFilterEnv()

func mustFilterEnv() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("address", cel.StringType),
		cel.Variable("size", cel.IntType),
		cel.Variable("section", cel.StringType),
		cel.Variable("location", cel.StringType),
	)
	if err != nil {
		panic(fmt.Sprintf("symbol filter environment: %v", err))
	}
	return env
}

// NewFilter compiles expr.
func NewFilter(expr string) (*Filter, error) {
	ast, iss := filterEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, iss.Err())
	}
	prg, err := filterEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, program: prg}, nil
}

// Match reports whether sym satisfies the filter.
func (f *Filter) Match(sym symtab.Symbol) (bool, error) {
	size, _ := safe.Uint64ToInt64(sym.SizeBytes)

	out, _, err := f.program.Eval(map[string]any{
		"name":     sym.Name,
		"address":  sym.Address,
		"size":     size,
		"section":  string(sym.Section),
		"location": sym.FileLocation,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q on %s: %w", f.expr, sym.Name, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %s, not bool", f.expr, out.Type())
	}
	return matched, nil
}

// Apply returns the symbols matching f, in input order.
func (f *Filter) Apply(symbols []symtab.Symbol) ([]symtab.Symbol, error) {
	out := make([]symtab.Symbol, 0, len(symbols))
	for _, sym := range symbols {
		ok, err := f.Match(sym)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sym)
		}
	}
	return out, nil
}
