package toolchain

import (
	"context"
	"fmt"
	"runtime"

	"github.com/coral-mesh/elfinsight/internal/safe"
)

// DefaultPrefix is the GNU Arm Embedded toolchain prefix.
const DefaultPrefix = "arm-none-eabi-"

// Toolchain names the binutils programs to run.
type Toolchain struct {
	// Prefix is prepended to "nm" and "objdump".
	Prefix string
	// NM overrides the nm program path.
	NM string
	// Objdump overrides the objdump program path.
	Objdump string
	// GOOS selects the executable suffix. Empty means runtime.GOOS.
	GOOS string
}

// NMPath returns the nm program to run.
func (t Toolchain) NMPath() string {
	if t.NM != "" {
		return t.NM
	}
	return t.Prefix + "nm" + t.exeSuffix()
}

// ObjdumpPath returns the objdump program to run.
func (t Toolchain) ObjdumpPath() string {
	if t.Objdump != "" {
		return t.Objdump
	}
	return t.Prefix + "objdump" + t.exeSuffix()
}

func (t Toolchain) exeSuffix() string {
	goos := t.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	if goos == "windows" {
		return ".exe"
	}
	return ""
}

// Kind identifies one of the three tool listings a load consumes.
type Kind string

const (
	// KindSymbolSizes is `nm -S -l`: sized symbols with source locations.
	KindSymbolSizes Kind = "symbol-sizes"
	// KindDefinedSymbols is `nm -C --defined-only`: demangled defined symbols.
	KindDefinedSymbols Kind = "defined-symbols"
	// KindDisassembly is `objdump -d`.
	KindDisassembly Kind = "disassembly"
)

// Kinds lists every listing kind in pipeline order.
var Kinds = []Kind{KindSymbolSizes, KindDefinedSymbols, KindDisassembly}

// Command returns the program and arguments producing kind for file.
func (t Toolchain) Command(kind Kind, file string) (string, []string, error) {
	switch kind {
	case KindSymbolSizes:
		return t.NMPath(), []string{"-S", "-l", file}, nil
	case KindDefinedSymbols:
		return t.NMPath(), []string{"-C", "--defined-only", file}, nil
	case KindDisassembly:
		return t.ObjdumpPath(), []string{"-d", file}, nil
	default:
		return "", nil, fmt.Errorf("unknown listing kind %q", kind)
	}
}

// Source produces the text of one listing for an ELF file.
type Source interface {
	Listing(ctx context.Context, kind Kind, file string) (string, error)
}

// ToolSource runs the toolchain to produce listings.
type ToolSource struct {
	Toolchain Toolchain
	Runner    Runner
}

// Listing implements Source.
func (s *ToolSource) Listing(ctx context.Context, kind Kind, file string) (string, error) {
	name, args, err := s.Toolchain.Command(kind, file)
	if err != nil {
		return "", err
	}
	return Invoke(ctx, s.Runner, name, args...)
}

// CapturedSource serves listings from files captured earlier, for example on
// a build host. Kinds without a file fall through to Fallback.
type CapturedSource struct {
	Files    map[Kind]string
	Fallback Source
	// MaxSize bounds each file. Zero means safe.DefaultMaxFileSize.
	MaxSize int64
}

// Listing implements Source.
func (s *CapturedSource) Listing(ctx context.Context, kind Kind, file string) (string, error) {
	path, ok := s.Files[kind]
	if !ok || path == "" {
		if s.Fallback == nil {
			return "", fmt.Errorf("no captured %s listing and no toolchain fallback", kind)
		}
		return s.Fallback.Listing(ctx, kind, file)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := safe.ReadFile(path, &safe.ReadOptions{MaxSize: s.MaxSize})
	if err != nil {
		return "", fmt.Errorf("read captured %s listing: %w", kind, err)
	}
	return string(data), nil
}
