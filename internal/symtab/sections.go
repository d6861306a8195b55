package symtab

import (
	"fmt"
	"sort"
)

// Section is the memory category a symbol is accounted to.
type Section string

const (
	SectionText    Section = "text"
	SectionBSS     Section = "bss"
	SectionBSSWeak Section = "bssWeak"
	SectionData    Section = "data"
	SectionROData  Section = "rodata"
	SectionUnknown Section = "unknown"
)

// Label returns the conventional ELF section name for display.
func (s Section) Label() string {
	switch s {
	case SectionText:
		return ".text"
	case SectionBSS:
		return ".bss"
	case SectionBSSWeak:
		return ".bss (weak)"
	case SectionData:
		return ".data"
	case SectionROData:
		return ".rodata"
	default:
		return "Unknown"
	}
}

// SectionPolicy maps nm type codes to sections. Codes missing from the table
// resolve to SectionUnknown and are not counted in any size total.
type SectionPolicy struct {
	Version string
	Codes   map[byte]Section
}

// Lookup returns the section for a type code.
func (p SectionPolicy) Lookup(code byte) Section {
	if s, ok := p.Codes[code]; ok {
		return s
	}
	return SectionUnknown
}

// PolicyV1 is the legacy table: uppercase W was accounted to its own
// ".bss (weak)" bucket and lowercase w was not recognised.
var PolicyV1 = SectionPolicy{
	Version: "v1",
	Codes: map[byte]Section{
		'T': SectionText, 't': SectionText,
		'W': SectionBSSWeak,
		'B': SectionBSS, 'b': SectionBSS,
		'D': SectionData, 'd': SectionData,
		'R': SectionROData, 'r': SectionROData,
	},
}

// PolicyV2 counts weak symbols as text: weak functions still occupy code space.
var PolicyV2 = SectionPolicy{
	Version: "v2",
	Codes: map[byte]Section{
		'T': SectionText, 't': SectionText,
		'W': SectionText, 'w': SectionText,
		'B': SectionBSS, 'b': SectionBSS,
		'D': SectionData, 'd': SectionData,
		'R': SectionROData, 'r': SectionROData,
	},
}

// DefaultPolicy is the policy used when none is configured.
var DefaultPolicy = PolicyV2

var policies = map[string]SectionPolicy{
	PolicyV1.Version: PolicyV1,
	PolicyV2.Version: PolicyV2,
}

// PolicyByVersion returns the registered policy for version.
func PolicyByVersion(version string) (SectionPolicy, error) {
	p, ok := policies[version]
	if !ok {
		return SectionPolicy{}, fmt.Errorf("unknown section policy %q (known: %v)", version, PolicyVersions())
	}
	return p, nil
}

// PolicyVersions lists the registered policy versions in sorted order.
func PolicyVersions() []string {
	versions := make([]string, 0, len(policies))
	for v := range policies {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}
