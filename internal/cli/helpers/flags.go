package helpers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// formatValue is a pflag.Value restricted to a set of formats.
type formatValue struct {
	target    *OutputFormat
	supported []OutputFormat
}

var _ pflag.Value = (*formatValue)(nil)

func (v *formatValue) String() string {
	if v.target == nil {
		return ""
	}
	return string(*v.target)
}

func (v *formatValue) Set(s string) error {
	if err := ValidateFormat(s, v.supported); err != nil {
		return err
	}
	*v.target = OutputFormat(s)
	return nil
}

func (v *formatValue) Type() string {
	return "format"
}

// AddFormatFlag adds a standard --format/-o flag to a command. Values
// outside supportedFormats are rejected at parse time.
func AddFormatFlag(cmd *cobra.Command, formatVar *OutputFormat, defaultFormat OutputFormat, supportedFormats []OutputFormat) {
	*formatVar = defaultFormat

	names := formatNames(supportedFormats)
	description := fmt.Sprintf("Output format (%s)", strings.Join(names, ", "))
	cmd.Flags().VarP(&formatValue{target: formatVar, supported: supportedFormats}, "format", "o", description)

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// AddVerboseFlag adds a standard --verbose/-v flag.
func AddVerboseFlag(cmd *cobra.Command, verboseVar *bool) {
	cmd.Flags().BoolVarP(verboseVar, "verbose", "v", false, "Verbose output (show additional details)")
}

// ValidateFormat checks if the format is in the supported list.
func ValidateFormat(format string, supported []OutputFormat) error {
	for _, s := range supported {
		if format == string(s) {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(formatNames(supported), ", "))
}

func formatNames(formats []OutputFormat) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}
