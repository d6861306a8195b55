package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/elfinsight/internal/cli/helpers"
	"github.com/coral-mesh/elfinsight/internal/pipeline"
	"github.com/coral-mesh/elfinsight/internal/report"
	"github.com/coral-mesh/elfinsight/internal/symtab"
)

var symbolFormats = []helpers.OutputFormat{helpers.FormatTable, helpers.FormatJSON, helpers.FormatCSV}

// symbolRow is the display form of a symbol.
type symbolRow struct {
	Address  string `header:"ADDRESS"`
	Size     uint64 `header:"SIZE"`
	Section  string `header:"SECTION"`
	Name     string `header:"NAME"`
	Location string `header:"LOCATION"`
}

func toSymbolRows(symbols []symtab.Symbol) []symbolRow {
	rows := make([]symbolRow, 0, len(symbols))
	for _, sym := range symbols {
		location := sym.FileLocation
		if location == "" {
			location = "N/A"
		}
		rows = append(rows, symbolRow{
			Address:  "0x" + sym.Address,
			Size:     sym.SizeBytes,
			Section:  sym.Section.Label(),
			Name:     sym.Name,
			Location: location,
		})
	}
	return rows
}

func newSymbolsCmd(globals *globalFlags) *cobra.Command {
	var (
		format  helpers.OutputFormat
		sortBy  string
		limit   int
		filter  string
		sources sourceFlags
	)

	cmd := &cobra.Command{
		Use:   "symbols [elf-file]",
		Short: "List sized symbols with section totals",
		Long: `Runs nm -S -l on the ELF file and lists every sized symbol with its section,
followed by per-section totals and the flash/RAM summary.

Flash is .text + .rodata + .data; RAM is .bss + .data + weak .bss.

Filter expressions are CEL over the variables name, address, size, section
and location, for example:
  elfinsight symbols firmware.elf --filter 'section == "text" && size > 256'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd, globals)
			if err != nil {
				return err
			}
			format = sess.outputFormat(cmd, format, symbolFormats)

			res, err := sess.load(cmd, args, &sources, pipeline.StageSymbols)
			if err != nil {
				return err
			}
			payload := *res.Symbols

			if filter != "" {
				f, err := report.NewFilter(filter)
				if err != nil {
					return err
				}
				if payload.Symbols, err = f.Apply(payload.Symbols); err != nil {
					return err
				}
			}
			if payload.Symbols, err = report.SortSymbols(payload.Symbols, sortBy); err != nil {
				return err
			}
			payload.Symbols = report.Limit(payload.Symbols, limit)

			out := cmd.OutOrStdout()
			switch format {
			case helpers.FormatJSON:
				if fp, err := report.Fingerprint(payload); err == nil {
					sess.logger.Debug().Str("load_id", res.LoadID).Str("fingerprint", fp).Msg("Symbols payload")
				}
				return (&helpers.JSONFormatter{}).Format(payload, out)
			case helpers.FormatCSV:
				return (&helpers.CSVFormatter{}).Format(toSymbolRows(payload.Symbols), out)
			default:
				if err := renderUsage(out, res.File, &payload); err != nil {
					return err
				}
				if len(payload.Symbols) == 0 {
					_, err := fmt.Fprintln(out, "No symbols found.")
					return err
				}
				return (&helpers.TableFormatter{}).Format(toSymbolRows(payload.Symbols), out)
			}
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, symbolFormats)
	cmd.Flags().StringVar(&sortBy, "sort", report.SortNone, fmt.Sprintf("Sort by (%s)", strings.Join(report.SortKeys, ", ")))
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many symbols (0 = all)")
	cmd.Flags().StringVar(&filter, "filter", "", "CEL expression selecting symbols")
	sources.addFlags(cmd, pipeline.StageSymbols)

	return cmd
}
