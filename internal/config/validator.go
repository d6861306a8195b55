package config

import (
	"fmt"
	"strings"

	"github.com/coral-mesh/elfinsight/internal/symtab"
)

// ValidationError represents a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError collects every invalid field.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		builder.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

var (
	logLevels     = []string{"trace", "debug", "info", "warn", "error"}
	outputFormats = []string{"table", "json", "csv"}
)

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []ValidationError
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Version != SchemaVersion {
		add("version", "unsupported version %q, expected %q", c.Version, SchemaVersion)
	}

	if c.Toolchain.Timeout < 0 {
		add("toolchain.timeout", "timeout must not be negative")
	}
	if strings.TrimSpace(c.Toolchain.Prefix) != c.Toolchain.Prefix {
		add("toolchain.prefix", "prefix must not contain surrounding whitespace")
	}

	if _, err := symtab.PolicyByVersion(c.Analysis.SectionPolicy); err != nil {
		add("analysis.section_policy", "%v", err)
	}
	for _, m := range c.Analysis.CallMnemonics {
		if strings.TrimSpace(m) == "" || strings.ContainsAny(m, " \t") {
			add("analysis.call_mnemonics", "invalid mnemonic %q", m)
		}
	}

	if !contains(logLevels, c.Logging.Level) {
		add("logging.level", "must be one of: %s", strings.Join(logLevels, ", "))
	}
	if c.Output.Format != "" && !contains(outputFormats, c.Output.Format) {
		add("output.format", "must be one of: %s", strings.Join(outputFormats, ", "))
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
