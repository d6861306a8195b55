package symtab

import (
	"bufio"
	"fmt"
	"strings"
)

// functionCodes are the nm type codes treated as functions. Undefined
// symbols are kept so they can label call targets.
var functionCodes = map[string]bool{
	"T": true, "t": true,
	"W": true, "w": true,
	"U": true, "u": true,
}

// IsFunctionCode reports whether an nm type code denotes a function.
func IsFunctionCode(code string) bool {
	return functionCodes[code]
}

// InvalidLineFunc receives lines rejected because of an invalid address.
type InvalidLineFunc func(lineNo int, err error)

// ExtractFunctions reads `nm -C --defined-only` output into idx:
//
//	<address> <type> <name...>
//
// The name is everything after the type column, so demangled names keep
// their embedded spaces. Lines with another type code or fewer than three
// fields are skipped. Lines whose address does not normalize are reported to
// onInvalid, if set, and skipped. Recurring names or addresses overwrite
// earlier entries.
func ExtractFunctions(text string, idx *Index, onInvalid InvalidLineFunc) error {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !IsFunctionCode(fields[1]) {
			continue
		}

		addr, err := Normalize(fields[0])
		if err != nil {
			if onInvalid != nil {
				onInvalid(lineNo, err)
			}
			continue
		}

		idx.Add(addr, strings.Join(fields[2:], " "))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read function symbols: %w", err)
	}
	return nil
}
