package symtab

import (
	"errors"
	"fmt"
	"strings"
)

// AddressWidth is the number of hex digits in a normalized address.
const AddressWidth = 8

// ErrInvalidAddress is returned when a token is not a usable hex address.
var ErrInvalidAddress = errors.New("invalid address")

// IsHex reports whether s is a non-empty hexadecimal token, optionally
// prefixed with 0x or 0X.
func IsHex(s string) bool {
	s = trimHexPrefix(s)
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

// Normalize canonicalizes a hex address for use as a map key: lowercase, no
// 0x prefix, left-padded with zeros to AddressWidth digits.
//
// Addresses wider than AddressWidth digits are rejected, never truncated.
// Leading zeros beyond the width are accepted since they do not change the
// value.
func Normalize(addr string) (string, error) {
	digits := trimHexPrefix(strings.TrimSpace(addr))
	if !IsHex(digits) {
		return "", fmt.Errorf("%w: %q is not hexadecimal", ErrInvalidAddress, addr)
	}

	digits = strings.ToLower(digits)
	if len(digits) > AddressWidth {
		trimmed := strings.TrimLeft(digits, "0")
		if len(trimmed) > AddressWidth {
			return "", fmt.Errorf("%w: %q exceeds %d hex digits", ErrInvalidAddress, addr, AddressWidth)
		}
		digits = trimmed
	}

	return strings.Repeat("0", AddressWidth-len(digits)) + digits, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
