package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "arm-none-eabi-", cfg.Toolchain.Prefix)
	assert.Equal(t, 30*time.Second, cfg.Toolchain.Timeout)
	assert.Equal(t, "v2", cfg.Analysis.SectionPolicy)
	assert.Equal(t, []string{"bl", "blx"}, cfg.Analysis.CallMnemonics)
}

func TestLoad_MissingImplicitFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: "1"
toolchain:
  prefix: arm-zephyr-eabi-
  timeout: 5s
analysis:
  section_policy: v1
  call_mnemonics: [bl]
logging:
  level: debug
output:
  format: json
`), 0o600))

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "arm-zephyr-eabi-", cfg.Toolchain.Prefix)
	assert.Equal(t, 5*time.Second, cfg.Toolchain.Timeout)
	assert.Equal(t, "v1", cfg.Analysis.SectionPolicy)
	assert.Equal(t, []string{"bl"}, cfg.Analysis.CallMnemonics)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "arm-zephyr-eabi-nm", cfg.Tools().NMPath()[:len("arm-zephyr-eabi-nm")])
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nlogging:\n  level: warn\n"), 0o600))

	t.Setenv("ELFINSIGHT_LOG_LEVEL", "debug")
	t.Setenv("ELFINSIGHT_TOOL_TIMEOUT", "1m")
	t.Setenv("ELFINSIGHT_CALL_MNEMONICS", "bl, blx ,")
	t.Setenv("ELFINSIGHT_LOG_PRETTY", "true")
	t.Setenv("ELFINSIGHT_OBJDUMP", "/opt/gcc/bin/arm-none-eabi-objdump")

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NotNil(t, cfg.Logging.Pretty)
	assert.True(t, *cfg.Logging.Pretty)
	assert.Equal(t, time.Minute, cfg.Toolchain.Timeout)
	assert.Equal(t, []string{"bl", "blx"}, cfg.Analysis.CallMnemonics)
	assert.Equal(t, "/opt/gcc/bin/arm-none-eabi-objdump", cfg.Tools().ObjdumpPath())
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("ELFINSIGHT_TOOL_TIMEOUT", "soon")

	_, err := Load("", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ELFINSIGHT_TOOL_TIMEOUT")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("toolchain: [unterminated"), 0o600))

	_, err := Load(path, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Version = "0"
	cfg.Toolchain.Timeout = -time.Second
	cfg.Analysis.SectionPolicy = "v9"
	cfg.Analysis.CallMnemonics = []string{"bl", "b l"}
	cfg.Logging.Level = "verbose"
	cfg.Output.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)

	var multi *MultiValidationError
	require.ErrorAs(t, err, &multi)

	fields := make([]string, 0, len(multi.Errors))
	for _, e := range multi.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{
		"version",
		"toolchain.timeout",
		"analysis.section_policy",
		"analysis.call_mnemonics",
		"logging.level",
		"output.format",
	}, fields)
	assert.Contains(t, err.Error(), "validation failed with 6 errors")
}

func TestMarshal_RoundTripsThroughLoad(t *testing.T) {
	cfg := Default()
	cfg.Toolchain.Prefix = "arm-none-eabi-"
	cfg.Toolchain.Timeout = 90 * time.Second

	data, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 1m30s")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(ConfigEnv, "/etc/elfinsight.yaml")
	assert.Equal(t, "/etc/elfinsight.yaml", DefaultPath())

	t.Setenv(ConfigEnv, "")
	t.Setenv("HOME", "/home/dev")
	assert.Equal(t, filepath.Join("/home/dev", ".elfinsight", "config.yaml"), DefaultPath())
}

func TestLoggingConfig_PrettyOr(t *testing.T) {
	var unset LoggingConfig
	assert.True(t, unset.PrettyOr(true))
	assert.False(t, unset.PrettyOr(false))

	off, on := false, true
	assert.False(t, LoggingConfig{Pretty: &off}.PrettyOr(true))
	assert.True(t, LoggingConfig{Pretty: &on}.PrettyOr(false))
}

func TestLoad_PrettyFalseFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nlogging:\n  pretty: false\n"), 0o600))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	require.NotNil(t, cfg.Logging.Pretty)
	assert.False(t, cfg.Logging.PrettyOr(true))
}
