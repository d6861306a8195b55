package symtab

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedSizeField is returned when a well-shaped symbol line carries a
// size that is not a hex number.
var ErrMalformedSizeField = errors.New("malformed size field")

// MalformedSizeError identifies the offending line of a symbol table.
type MalformedSizeError struct {
	// Line is the 1-based input line number.
	Line int
	// Field is the raw size token.
	Field string
}

// Error implements the error interface.
func (e *MalformedSizeError) Error() string {
	return fmt.Sprintf("line %d: %s: %q is not a hex size", e.Line, ErrMalformedSizeField, e.Field)
}

// Unwrap lets errors.Is match ErrMalformedSizeField.
func (e *MalformedSizeError) Unwrap() error {
	return ErrMalformedSizeField
}

// Symbol is one sized entry of an nm symbol table.
type Symbol struct {
	// Address is the symbol value as printed by nm, lowercase, without 0x.
	Address string `json:"address" header:"ADDRESS"`
	// SizeBytes is the decoded symbol size.
	SizeBytes uint64 `json:"sizeBytes" header:"SIZE"`
	// Section is derived from the type code through a SectionPolicy.
	Section Section `json:"section" header:"SECTION"`
	// Name is the symbol name.
	Name string `json:"name" header:"NAME"`
	// FileLocation is the source location from nm -l, empty when absent.
	FileLocation string `json:"fileLocation,omitempty" header:"LOCATION"`
}

// SectionSizes accumulates symbol sizes per section.
type SectionSizes struct {
	Text    uint64 `json:"text"`
	BSS     uint64 `json:"bss"`
	BSSWeak uint64 `json:"bssWeak"`
	Data    uint64 `json:"data"`
	ROData  uint64 `json:"rodata"`
}

// Add accounts size bytes to section. Unknown sections are ignored.
func (s *SectionSizes) Add(section Section, size uint64) {
	switch section {
	case SectionText:
		s.Text += size
	case SectionBSS:
		s.BSS += size
	case SectionBSSWeak:
		s.BSSWeak += size
	case SectionData:
		s.Data += size
	case SectionROData:
		s.ROData += size
	}
}

// Get returns the accumulated size for section.
func (s SectionSizes) Get(section Section) uint64 {
	switch section {
	case SectionText:
		return s.Text
	case SectionBSS:
		return s.BSS
	case SectionBSSWeak:
		return s.BSSWeak
	case SectionData:
		return s.Data
	case SectionROData:
		return s.ROData
	default:
		return 0
	}
}

// Total is the sum over all counted sections.
func (s SectionSizes) Total() uint64 {
	return s.Text + s.BSS + s.BSSWeak + s.Data + s.ROData
}

// Table is the result of parsing one symbol table listing.
type Table struct {
	Symbols []Symbol
	Sizes   SectionSizes
	// Skipped counts lines that were not symbol records.
	Skipped int
}

// ParseSymbolTable parses `nm -S -l` output:
//
//	<address> <size> <type> <name> [<file:line>]
//
// Lines with fewer than four fields, a non-hex address, or no single-letter
// type code in the third column are skipped. A malformed size on an otherwise
// well-shaped line fails the whole parse.
func ParseSymbolTable(text string, policy SectionPolicy) (*Table, error) {
	table := &Table{Symbols: []Symbol{}}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		sym, ok, err := parseSymbolLine(scanner.Text(), lineNo, policy)
		if err != nil {
			return nil, err
		}
		if !ok {
			table.Skipped++
			continue
		}

		table.Symbols = append(table.Symbols, sym)
		table.Sizes.Add(sym.Section, sym.SizeBytes)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read symbol table: %w", err)
	}

	return table, nil
}

func parseSymbolLine(line string, lineNo int, policy SectionPolicy) (Symbol, bool, error) {
	// nm -l separates the source location with a tab.
	location := ""
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		location = strings.TrimSpace(line[i+1:])
		line = line[:i]
	}

	fields := strings.Fields(line)
	if location == "" && len(fields) > 4 {
		location = strings.Join(fields[4:], " ")
	}
	if len(fields) < 4 {
		return Symbol{}, false, nil
	}
	if !IsHex(fields[0]) || len(fields[2]) != 1 {
		return Symbol{}, false, nil
	}

	size, err := strconv.ParseUint(fields[1], 16, 64)
	if err != nil {
		return Symbol{}, false, &MalformedSizeError{Line: lineNo, Field: fields[1]}
	}

	return Symbol{
		Address:      strings.ToLower(trimHexPrefix(fields[0])),
		SizeBytes:    size,
		Section:      policy.Lookup(fields[2][0]),
		Name:         fields[3],
		FileLocation: location,
	}, true, nil
}
