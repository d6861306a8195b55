// Package config loads elfinsight configuration from a YAML file and
// ELFINSIGHT_* environment variables.
package config

import (
	"time"

	"github.com/coral-mesh/elfinsight/internal/callgraph"
	"github.com/coral-mesh/elfinsight/internal/symtab"
	"github.com/coral-mesh/elfinsight/internal/toolchain"
)

// SchemaVersion is the configuration schema version.
const SchemaVersion = "1"

// Config represents ~/.elfinsight/config.yaml.
type Config struct {
	Version   string          `yaml:"version"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Output    OutputConfig    `yaml:"output"`
}

// ToolchainConfig selects the binutils programs.
type ToolchainConfig struct {
	Prefix  string        `yaml:"prefix" env:"ELFINSIGHT_TOOLCHAIN_PREFIX"`
	NM      string        `yaml:"nm,omitempty" env:"ELFINSIGHT_NM"`
	Objdump string        `yaml:"objdump,omitempty" env:"ELFINSIGHT_OBJDUMP"`
	Timeout time.Duration `yaml:"timeout" env:"ELFINSIGHT_TOOL_TIMEOUT"`
}

// AnalysisConfig tunes the parsers.
type AnalysisConfig struct {
	SectionPolicy string   `yaml:"section_policy" env:"ELFINSIGHT_SECTION_POLICY"`
	CallMnemonics []string `yaml:"call_mnemonics,omitempty" env:"ELFINSIGHT_CALL_MNEMONICS"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"ELFINSIGHT_LOG_LEVEL"`
	// Pretty forces console output on or off. Unset follows whether stderr
	// is a terminal.
	Pretty *bool  `yaml:"pretty,omitempty" env:"ELFINSIGHT_LOG_PRETTY"`
}

// PrettyOr returns the configured Pretty value, or def when it is unset.
func (l LoggingConfig) PrettyOr(def bool) bool {
	if l.Pretty == nil {
		return def
	}
	return *l.Pretty
}

// OutputConfig sets output defaults.
type OutputConfig struct {
	// Format overrides each command's default format where the command
	// supports it. Empty keeps the command defaults.
	Format string `yaml:"format,omitempty" env:"ELFINSIGHT_OUTPUT_FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: SchemaVersion,
		Toolchain: ToolchainConfig{
			Prefix:  toolchain.DefaultPrefix,
			Timeout: 30 * time.Second,
		},
		Analysis: AnalysisConfig{
			SectionPolicy: symtab.DefaultPolicy.Version,
			CallMnemonics: append([]string(nil), callgraph.DefaultMnemonics...),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Tools returns the configured toolchain naming.
func (c *Config) Tools() toolchain.Toolchain {
	return toolchain.Toolchain{
		Prefix:  c.Toolchain.Prefix,
		NM:      c.Toolchain.NM,
		Objdump: c.Toolchain.Objdump,
	}
}
