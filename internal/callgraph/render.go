package callgraph

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// calleeCount is a distinct callee with the number of call sites reaching it.
type calleeCount struct {
	addr  string
	count int
}

// distinctCallees folds repeated call sites, keeping first-seen order.
func distinctCallees(callees []string) []calleeCount {
	seen := make(map[string]int, len(callees))
	out := make([]calleeCount, 0, len(callees))
	for _, c := range callees {
		if i, ok := seen[c]; ok {
			out[i].count++
			continue
		}
		seen[c] = len(out)
		out = append(out, calleeCount{addr: c, count: 1})
	}
	return out
}

// sortedCallers returns caller addresses in ascending order.
func sortedCallers(g CallGraph) []string {
	callers := make([]string, 0, len(g))
	for addr := range g {
		callers = append(callers, addr)
	}
	sort.Strings(callers)
	return callers
}

func label(names map[string]string, addr string) string {
	if name, ok := names[addr]; ok && name != "" {
		return name
	}
	return "0x" + addr
}

// WriteDOT writes the graph in Graphviz DOT syntax. Repeated call sites are
// folded into one edge labelled with the count.
func WriteDOT(w io.Writer, g CallGraph, names map[string]string) error {
	var buf strings.Builder
	buf.WriteString("digraph callgraph {\n")
	buf.WriteString("  node [shape=box, fontname=\"monospace\"];\n")

	nodes := make(map[string]bool)
	for _, caller := range sortedCallers(g) {
		nodes[caller] = true
		for _, c := range g[caller] {
			nodes[c] = true
		}
	}
	addrs := make([]string, 0, len(nodes))
	for addr := range nodes {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		fmt.Fprintf(&buf, "  %q [label=%s];\n", addr, strconv.Quote(label(names, addr)))
	}
	for _, caller := range sortedCallers(g) {
		for _, c := range distinctCallees(g[caller]) {
			if c.count > 1 {
				fmt.Fprintf(&buf, "  %q -> %q [label=\"%d\"];\n", caller, c.addr, c.count)
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n", caller, c.addr)
		}
	}
	buf.WriteString("}\n")

	_, err := io.WriteString(w, buf.String())
	return err
}

// RenderTree renders the calls reachable from root as an ASCII tree.
// maxDepth <= 0 means unlimited. Recursive calls are marked ↺ and not
// expanded. A function's callees are listed once per render; later
// occurrences are marked … so output stays linear in the number of edges.
func RenderTree(g CallGraph, names map[string]string, root string, maxDepth int) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("%s (0x%s)\n", label(names, root), root))

	r := &treeRenderer{
		g:        g,
		names:    names,
		maxDepth: maxDepth,
		path:     map[string]bool{root: true},
		expanded: map[string]bool{root: true},
	}
	r.renderChildren(&buf, root, "", 1)
	return buf.String()
}

type treeRenderer struct {
	g        CallGraph
	names    map[string]string
	maxDepth int
	// path holds the functions on the current branch.
	path map[string]bool
	// expanded holds the functions whose callees were already printed.
	expanded map[string]bool
}

func (r *treeRenderer) renderChildren(buf *strings.Builder, addr, prefix string, depth int) {
	children := distinctCallees(r.g[addr])
	for i, child := range children {
		isLast := i == len(children)-1

		connector := "├─"
		if isLast {
			connector = "└─"
		}

		suffix := ""
		if child.count > 1 {
			suffix = fmt.Sprintf(" ×%d", child.count)
		}
		recursive := r.path[child.addr]
		seen := !recursive && r.expanded[child.addr] && len(r.g[child.addr]) > 0
		switch {
		case recursive:
			suffix += " ↺"
		case seen:
			suffix += " …"
		}

		buf.WriteString(fmt.Sprintf("%s%s %s%s\n", prefix, connector, label(r.names, child.addr), suffix))

		if recursive || seen || (r.maxDepth > 0 && depth >= r.maxDepth) {
			continue
		}

		childPrefix := prefix
		if isLast {
			childPrefix += "  "
		} else {
			childPrefix += "│ "
		}

		r.expanded[child.addr] = true
		r.path[child.addr] = true
		r.renderChildren(buf, child.addr, childPrefix, depth+1)
		delete(r.path, child.addr)
	}
}

// Roots returns the callers that no other function calls, in ascending
// address order. A graph made only of cycles has no such callers, so every
// caller is returned instead.
func Roots(g CallGraph) []string {
	called := make(map[string]bool)
	for caller, callees := range g {
		for _, c := range callees {
			if c != caller {
				called[c] = true
			}
		}
	}

	var roots []string
	for _, caller := range sortedCallers(g) {
		if !called[caller] {
			roots = append(roots, caller)
		}
	}
	if len(roots) == 0 {
		return sortedCallers(g)
	}
	return roots
}

// Edge is a distinct caller->callee pair.
type Edge struct {
	Caller string
	Callee string
	Count  int
}

// EdgeList folds the graph into distinct edges, ordered by caller address
// and then by first call site.
func EdgeList(g CallGraph) []Edge {
	var edges []Edge
	for _, caller := range sortedCallers(g) {
		for _, c := range distinctCallees(g[caller]) {
			edges = append(edges, Edge{Caller: caller, Callee: c.addr, Count: c.count})
		}
	}
	return edges
}
