package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/elfinsight/internal/callgraph"
	"github.com/coral-mesh/elfinsight/internal/cli/helpers"
	errorpkg "github.com/coral-mesh/elfinsight/internal/errors"
	"github.com/coral-mesh/elfinsight/internal/pipeline"
	"github.com/coral-mesh/elfinsight/internal/report"
	"github.com/coral-mesh/elfinsight/internal/symtab"
)

var graphFormats = []helpers.OutputFormat{
	helpers.FormatTree,
	helpers.FormatTable,
	helpers.FormatJSON,
	helpers.FormatCSV,
	helpers.FormatDOT,
	helpers.FormatPprof,
}

// edgeRow is the display form of a call edge.
type edgeRow struct {
	Caller     string `header:"CALLER"`
	CallerAddr string `header:"CALLER_ADDR"`
	Callee     string `header:"CALLEE"`
	CalleeAddr string `header:"CALLEE_ADDR"`
	Calls      int    `header:"CALLS"`
}

func toEdgeRows(g callgraph.CallGraph, names map[string]string) []edgeRow {
	edges := callgraph.EdgeList(g)
	rows := make([]edgeRow, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, edgeRow{
			Caller:     names[e.Caller],
			CallerAddr: "0x" + e.Caller,
			Callee:     names[e.Callee],
			CalleeAddr: "0x" + e.Callee,
			Calls:      e.Count,
		})
	}
	return rows
}

// resolveRoot maps a function name or address to a node address.
func resolveRoot(p *report.GraphPayload, root string) (string, error) {
	addr := ""
	for _, n := range p.Nodes {
		if n.Name == root {
			addr = n.Address
		}
	}
	if addr != "" {
		return addr, nil
	}

	if symtab.IsHex(root) {
		normalized, err := symtab.Normalize(root)
		if err != nil {
			return "", err
		}
		if _, ok := p.AddressToFunctionName[normalized]; ok {
			return normalized, nil
		}
		if _, ok := p.Edges[normalized]; ok {
			return normalized, nil
		}
	}
	return "", fmt.Errorf("function %q not found", root)
}

func newGraphCmd(globals *globalFlags) *cobra.Command {
	var (
		format  helpers.OutputFormat
		root    string
		depth   int
		outPath string
		verbose bool
		sources sourceFlags
	)

	cmd := &cobra.Command{
		Use:   "graph [elf-file]",
		Short: "Build the static call graph",
		Long: `Extracts the defined functions with nm and scans the objdump -d disassembly
for branch-and-link calls (bl, blx) to build a caller -> callee graph.

Register-indirect calls cannot be resolved statically and are skipped.
Conditional calls (blne, blxeq, ...) count as calls.

In the tree, ↺ marks a recursive call and … a function whose callees were
already listed above.

Formats:
  tree   Call tree from --root, or from every function nothing calls
  table  One row per distinct caller/callee pair
  json   Nodes, edges and the address to name map
  dot    Graphviz digraph
  pprof  Profile for 'go tool pprof -http=: FILE' (use --out)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd, globals)
			if err != nil {
				return err
			}
			format = sess.outputFormat(cmd, format, graphFormats)

			res, err := sess.load(cmd, args, &sources, pipeline.StageGraph)
			if err != nil {
				return err
			}
			payload := res.Graph

			var out io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath) // #nosec G304 - path is chosen by the user
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer errorpkg.DeferClose(sess.logger, f, "failed to close output file")
				out = f
			}

			if err := writeGraph(out, sess.logger, res.LoadID, payload, format, root, depth); err != nil {
				return err
			}
			if verbose {
				st := res.GraphStats
				_, err := fmt.Fprintf(cmd.ErrOrStderr(),
					"functions: %d, labels: %d, call sites: %d, unresolved: %d, orphaned: %d, discovered: %d\n",
					len(payload.Nodes), st.Labels, st.CallSites, st.Unresolved, st.Orphaned, st.Discovered)
				return err
			}
			return nil
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTree, graphFormats)
	cmd.Flags().StringVar(&root, "root", "", "Function name or address to start the tree from")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum tree depth (0 = unlimited)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write output to a file instead of stdout")
	helpers.AddVerboseFlag(cmd, &verbose)
	sources.addFlags(cmd, pipeline.StageGraph)

	return cmd
}

func writeGraph(out io.Writer, logger zerolog.Logger, loadID string, payload *report.GraphPayload, format helpers.OutputFormat, root string, depth int) error {
	names := payload.AddressToFunctionName
	switch format {
	case helpers.FormatJSON:
		if fp, err := report.Fingerprint(payload); err == nil {
			logger.Debug().Str("load_id", loadID).Str("fingerprint", fp).Msg("Graph payload")
		}
		return (&helpers.JSONFormatter{}).Format(payload, out)
	case helpers.FormatDOT:
		return callgraph.WriteDOT(out, payload.Edges, names)
	case helpers.FormatPprof:
		return callgraph.WriteProfile(out, payload.Edges, names)
	case helpers.FormatTable, helpers.FormatCSV:
		formatter, err := helpers.NewFormatter(format)
		if err != nil {
			return err
		}
		rows := toEdgeRows(payload.Edges, names)
		if len(rows) == 0 && format == helpers.FormatTable {
			_, err := fmt.Fprintln(out, "No calls found.")
			return err
		}
		return formatter.Format(rows, out)
	default:
		roots := callgraph.Roots(payload.Edges)
		if root != "" {
			addr, err := resolveRoot(payload, root)
			if err != nil {
				return err
			}
			roots = []string{addr}
		}
		if len(roots) == 0 {
			_, err := fmt.Fprintln(out, "No calls found.")
			return err
		}
		for _, r := range roots {
			if _, err := io.WriteString(out, callgraph.RenderTree(payload.Edges, names, r, depth)); err != nil {
				return err
			}
		}
		return nil
	}
}
