package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coral-mesh/elfinsight/internal/cli/helpers"
	"github.com/coral-mesh/elfinsight/internal/config"
	"github.com/coral-mesh/elfinsight/internal/logging"
	"github.com/coral-mesh/elfinsight/internal/pipeline"
	"github.com/coral-mesh/elfinsight/internal/symtab"
	"github.com/coral-mesh/elfinsight/internal/toolchain"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	timeout    time.Duration
	prefix     string
	policy     string
}

func (g *globalFlags) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "Config file (default $ELFINSIGHT_CONFIG or ~/.elfinsight/config.yaml)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.DurationVar(&g.timeout, "timeout", 0, "Timeout for each tool invocation (e.g. 30s)")
	flags.StringVar(&g.prefix, "toolchain-prefix", "", "Toolchain prefix for nm/objdump (e.g. arm-none-eabi-)")
	flags.StringVar(&g.policy, "section-policy", "", fmt.Sprintf("Type code to section policy (%v)", symtab.PolicyVersions()))
}

// session is the resolved configuration and logger for one command run.
type session struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func newSession(cmd *cobra.Command, g *globalFlags) (*session, error) {
	path, explicit := g.configPath, g.configPath != ""
	if !explicit {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if flags.Changed("timeout") {
		cfg.Toolchain.Timeout = g.timeout
	}
	if flags.Changed("toolchain-prefix") {
		cfg.Toolchain.Prefix = g.prefix
	}
	if flags.Changed("section-policy") {
		cfg.Analysis.SectionPolicy = g.policy
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Pretty = cfg.Logging.PrettyOr(logCfg.Pretty)
	logCfg.Output = cmd.ErrOrStderr()

	return &session{
		cfg:    cfg,
		logger: logging.NewWithComponent(logCfg, cmd.Name()),
	}, nil
}

// sourceFlags name captured tool listings that replace running the tools.
type sourceFlags struct {
	nmSizes   string
	nmDefined string
	objdump   string
}

func (s *sourceFlags) addFlags(cmd *cobra.Command, stages pipeline.Stage) {
	if stages&pipeline.StageSymbols != 0 {
		cmd.Flags().StringVar(&s.nmSizes, "nm-sizes", "", "Captured nm -S -l output to use instead of running nm")
	}
	if stages&pipeline.StageGraph != 0 {
		cmd.Flags().StringVar(&s.nmDefined, "nm-defined", "", "Captured nm -C --defined-only output to use instead of running nm")
		cmd.Flags().StringVar(&s.objdump, "objdump-listing", "", "Captured objdump -d output to use instead of running objdump")
	}
}

func (s *sourceFlags) files() map[toolchain.Kind]string {
	files := make(map[toolchain.Kind]string)
	if s.nmSizes != "" {
		files[toolchain.KindSymbolSizes] = s.nmSizes
	}
	if s.nmDefined != "" {
		files[toolchain.KindDefinedSymbols] = s.nmDefined
	}
	if s.objdump != "" {
		files[toolchain.KindDisassembly] = s.objdump
	}
	return files
}

// complete reports whether every listing the stages need was captured.
func (s *sourceFlags) complete(stages pipeline.Stage) bool {
	files := s.files()
	if stages&pipeline.StageSymbols != 0 && files[toolchain.KindSymbolSizes] == "" {
		return false
	}
	if stages&pipeline.StageGraph != 0 &&
		(files[toolchain.KindDefinedSymbols] == "" || files[toolchain.KindDisassembly] == "") {
		return false
	}
	return true
}

// load resolves the input and runs the pipeline for stages.
func (s *session) load(cmd *cobra.Command, args []string, src *sourceFlags, stages pipeline.Stage) (*pipeline.Result, error) {
	captured := src.complete(stages)

	file := ""
	if len(args) > 0 {
		file = args[0]
	}
	if !captured {
		resolved, err := pipeline.ResolveInput(file)
		if err != nil {
			if errors.Is(err, pipeline.ErrNoInput) {
				return nil, fmt.Errorf("%w: pass an ELF file or captured listings", err)
			}
			return nil, err
		}
		file = resolved
	}

	var source toolchain.Source = &toolchain.ToolSource{
		Toolchain: s.cfg.Tools(),
		Runner:    toolchain.NewExecRunner(s.logger, s.cfg.Toolchain.Timeout),
	}
	if files := src.files(); len(files) > 0 {
		source = &toolchain.CapturedSource{Files: files, Fallback: source}
	}

	policy, err := symtab.PolicyByVersion(s.cfg.Analysis.SectionPolicy)
	if err != nil {
		return nil, err
	}

	loader, err := pipeline.NewLoader(source, s.logger, pipeline.Options{
		Policy:    policy,
		Mnemonics: s.cfg.Analysis.CallMnemonics,
	})
	if err != nil {
		return nil, err
	}

	return loader.Load(cmd.Context(), file, stages)
}

// outputFormat returns the --format value, or the configured default when
// the flag was not given and the command supports it.
func (s *session) outputFormat(cmd *cobra.Command, flagValue helpers.OutputFormat, supported []helpers.OutputFormat) helpers.OutputFormat {
	if cmd.Flags().Changed("format") {
		return flagValue
	}
	for _, f := range supported {
		if string(f) == s.cfg.Output.Format {
			return f
		}
	}
	return flagValue
}
