package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/elfinsight/internal/symtab"
	"github.com/coral-mesh/elfinsight/internal/toolchain"
)

// fakeSource serves fixed listings and records which kinds were requested.
type fakeSource struct {
	mu       sync.Mutex
	listings map[toolchain.Kind]string
	errs     map[toolchain.Kind]error
	calls    map[toolchain.Kind]int
}

func (f *fakeSource) Listing(_ context.Context, kind toolchain.Kind, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[toolchain.Kind]int)
	}
	f.calls[kind]++
	if err := f.errs[kind]; err != nil {
		return "", err
	}
	return f.listings[kind], nil
}

func fixtureSource(t *testing.T) *fakeSource {
	t.Helper()
	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join("testdata", name))
		require.NoError(t, err)
		return string(data)
	}
	return &fakeSource{listings: map[toolchain.Kind]string{
		toolchain.KindSymbolSizes:    read("nm_sizes.txt"),
		toolchain.KindDefinedSymbols: read("nm_defined.txt"),
		toolchain.KindDisassembly:    read("objdump.txt"),
	}}
}

func newTestLoader(t *testing.T, src toolchain.Source) *Loader {
	t.Helper()
	l, err := NewLoader(src, zerolog.Nop(), Options{})
	require.NoError(t, err)
	return l
}

func TestLoad_All(t *testing.T) {
	res, err := newTestLoader(t, fixtureSource(t)).Load(context.Background(), "fw.elf", StageAll)
	require.NoError(t, err)

	assert.NotEmpty(t, res.LoadID)
	assert.Equal(t, "fw.elf", res.File)

	require.NotNil(t, res.Symbols)
	assert.Len(t, res.Symbols.Symbols, 8)
	assert.Equal(t, uint64(0xd4+0x20+0x8), res.Symbols.FlashUsed)
	assert.Equal(t, uint64(0x400+0x8), res.Symbols.RAMUsed)
	assert.Equal(t, 2, res.SkippedLines)

	require.NotNil(t, res.Graph)
	assert.Equal(t, []string{"08000160", "080001f8", "080001f8", "08000134"}, res.Graph.Edges["08000134"])
	assert.Equal(t, "__aeabi_memcpy", res.Graph.AddressToFunctionName["080003fc"])
	assert.Len(t, res.Graph.Nodes, 6)
	assert.Equal(t, 1, res.GraphStats.Discovered)
	assert.Equal(t, 1, res.GraphStats.Unresolved)
}

func TestLoad_StagesRunOnlyWhatIsNeeded(t *testing.T) {
	src := fixtureSource(t)
	res, err := newTestLoader(t, src).Load(context.Background(), "fw.elf", StageSymbols)
	require.NoError(t, err)

	assert.NotNil(t, res.Symbols)
	assert.Nil(t, res.Graph)
	assert.Equal(t, map[toolchain.Kind]int{toolchain.KindSymbolSizes: 1}, src.calls)

	src = fixtureSource(t)
	res, err = newTestLoader(t, src).Load(context.Background(), "fw.elf", StageGraph)
	require.NoError(t, err)
	assert.Nil(t, res.Symbols)
	assert.NotNil(t, res.Graph)
	assert.Zero(t, src.calls[toolchain.KindSymbolSizes])

	_, err = newTestLoader(t, src).Load(context.Background(), "fw.elf", 0)
	assert.Error(t, err)
}

func TestLoad_Deterministic(t *testing.T) {
	l := newTestLoader(t, fixtureSource(t))

	first, err := l.Load(context.Background(), "fw.elf", StageAll)
	require.NoError(t, err)
	second, err := l.Load(context.Background(), "fw.elf", StageAll)
	require.NoError(t, err)

	assert.NotEqual(t, first.LoadID, second.LoadID)
	assert.Equal(t, first.Symbols, second.Symbols)
	assert.Equal(t, first.Graph, second.Graph)
	assert.Equal(t, first.GraphStats, second.GraphStats)
}

func TestLoad_ToolFailureAborts(t *testing.T) {
	toolErr := &toolchain.InvocationError{Tool: "arm-none-eabi-objdump", ExitCode: 1, Stderr: "objdump: fw.elf: file format not recognized"}

	src := fixtureSource(t)
	src.errs = map[toolchain.Kind]error{toolchain.KindDisassembly: toolErr}

	res, err := newTestLoader(t, src).Load(context.Background(), "fw.elf", StageAll)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, toolchain.ErrToolInvocationFailed)
	assert.Contains(t, err.Error(), "load disassembly")
	assert.Contains(t, err.Error(), "file format not recognized")
}

func TestLoad_MalformedSizeAborts(t *testing.T) {
	src := fixtureSource(t)
	src.listings[toolchain.KindSymbolSizes] = "00000100 zz T main\n"

	_, err := newTestLoader(t, src).Load(context.Background(), "fw.elf", StageAll)
	require.Error(t, err)
	assert.ErrorIs(t, err, symtab.ErrMalformedSizeField)
}

func TestLoad_EmptyOutput(t *testing.T) {
	src := &fakeSource{listings: map[toolchain.Kind]string{}}

	res, err := newTestLoader(t, src).Load(context.Background(), "fw.elf", StageAll)
	require.NoError(t, err)

	assert.Empty(t, res.Symbols.Symbols)
	assert.Equal(t, symtab.SectionSizes{}, res.Symbols.SectionSizes)
	assert.Zero(t, res.Symbols.FlashUsed)
	assert.Empty(t, res.Graph.Nodes)
	assert.Empty(t, res.Graph.Edges)
	assert.Empty(t, res.Graph.AddressToFunctionName)
}

func TestLoad_InvalidAddressesCounted(t *testing.T) {
	src := fixtureSource(t)
	src.listings[toolchain.KindDefinedSymbols] = "08000134 T main\n1a2b3c4d5e T too_wide\n"

	res, err := newTestLoader(t, src).Load(context.Background(), "fw.elf", StageGraph)
	require.NoError(t, err)
	assert.Equal(t, 1, res.InvalidAddresses)
}

func TestLoad_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{errs: map[toolchain.Kind]error{
		toolchain.KindSymbolSizes:    context.Canceled,
		toolchain.KindDefinedSymbols: context.Canceled,
		toolchain.KindDisassembly:    context.Canceled,
	}}
	_, err := newTestLoader(t, src).Load(ctx, "fw.elf", StageAll)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewLoader_RejectsEmptyMnemonics(t *testing.T) {
	_, err := NewLoader(&fakeSource{}, zerolog.Nop(), Options{Mnemonics: []string{""}})
	assert.Error(t, err)
}

func TestNewLoader_PolicyOption(t *testing.T) {
	src := &fakeSource{listings: map[toolchain.Kind]string{
		toolchain.KindSymbolSizes: "00000000 00000010 W weak_handler\n",
	}}

	l, err := NewLoader(src, zerolog.Nop(), Options{Policy: symtab.PolicyV1})
	require.NoError(t, err)
	res, err := l.Load(context.Background(), "fw.elf", StageSymbols)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), res.Symbols.SectionSizes.BSSWeak)
	assert.Equal(t, uint64(16), res.Symbols.RAMUsed)
}

func TestResolveInput(t *testing.T) {
	_, err := ResolveInput("")
	assert.ErrorIs(t, err, ErrNoInput)

	dir := t.TempDir()
	_, err = ResolveInput(dir)
	assert.Error(t, err)

	_, err = ResolveInput(filepath.Join(dir, "missing.elf"))
	assert.Error(t, err)

	path := filepath.Join(dir, "fw.elf")
	require.NoError(t, os.WriteFile(path, []byte("\x7fELF"), 0o600))
	got, err := ResolveInput(path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}
