package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/elfinsight/internal/cli/helpers"
	"github.com/coral-mesh/elfinsight/internal/report"
)

func newSchemaCmd() *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the output payloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas, err := report.Schemas()
			if err != nil {
				return err
			}

			if payload != "" {
				data, ok := schemas[payload]
				if !ok {
					names := make([]string, 0, len(schemas))
					for name := range schemas {
						names = append(names, name)
					}
					sort.Strings(names)
					return fmt.Errorf("unknown payload %q, must be one of: %s", payload, strings.Join(names, ", "))
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			return (&helpers.JSONFormatter{}).Format(schemas, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "Print only this payload's schema (symbols, graph)")

	return cmd
}
