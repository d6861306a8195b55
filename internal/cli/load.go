package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/elfinsight/internal/callgraph"
	"github.com/coral-mesh/elfinsight/internal/cli/helpers"
	"github.com/coral-mesh/elfinsight/internal/pipeline"
	"github.com/coral-mesh/elfinsight/internal/report"
)

// loadStats carries the per-load counters.
type loadStats struct {
	SkippedLines     int             `json:"skippedLines"`
	InvalidAddresses int             `json:"invalidAddresses"`
	Graph            callgraph.Stats `json:"graph"`
}

// loadFingerprints identify the payload contents of a load.
type loadFingerprints struct {
	Symbols string `json:"symbols"`
	Graph   string `json:"graph"`
}

// loadEnvelope is the combined output of a full load.
type loadEnvelope struct {
	LoadID       string                 `json:"loadId"`
	File         string                 `json:"file,omitempty"`
	Symbols      *report.SymbolsPayload `json:"symbols"`
	Graph        *report.GraphPayload   `json:"graph"`
	Stats        loadStats              `json:"stats"`
	Fingerprints loadFingerprints       `json:"fingerprints"`
}

func newLoadEnvelope(res *pipeline.Result) (*loadEnvelope, error) {
	env := &loadEnvelope{
		LoadID:  res.LoadID,
		File:    res.File,
		Symbols: res.Symbols,
		Graph:   res.Graph,
		Stats: loadStats{
			SkippedLines:     res.SkippedLines,
			InvalidAddresses: res.InvalidAddresses,
			Graph:            res.GraphStats,
		},
	}

	var err error
	if env.Fingerprints.Symbols, err = report.Fingerprint(res.Symbols); err != nil {
		return nil, fmt.Errorf("fingerprint symbols: %w", err)
	}
	if env.Fingerprints.Graph, err = report.Fingerprint(res.Graph); err != nil {
		return nil, fmt.Errorf("fingerprint graph: %w", err)
	}
	return env, nil
}

func newLoadCmd(globals *globalFlags) *cobra.Command {
	var sources sourceFlags

	cmd := &cobra.Command{
		Use:   "load [elf-file]",
		Short: "Run every stage and print both payloads as JSON",
		Long: `Runs the symbol table and call graph stages together and prints one JSON
document holding both payloads, the load counters and a content fingerprint
for each payload. Identical inputs produce identical fingerprints.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd, globals)
			if err != nil {
				return err
			}

			res, err := sess.load(cmd, args, &sources, pipeline.StageAll)
			if err != nil {
				return err
			}

			env, err := newLoadEnvelope(res)
			if err != nil {
				return err
			}
			return (&helpers.JSONFormatter{}).Format(env, cmd.OutOrStdout())
		},
	}

	sources.addFlags(cmd, pipeline.StageAll)

	return cmd
}
