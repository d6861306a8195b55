package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/elfinsight/internal/symtab"
)

func filterFixture() []symtab.Symbol {
	return []symtab.Symbol{
		{Address: "08000134", SizeBytes: 44, Section: symtab.SectionText, Name: "main", FileLocation: "/src/main.c:42"},
		{Address: "08000160", SizeBytes: 512, Section: symtab.SectionText, Name: "HAL_Init"},
		{Address: "08000400", SizeBytes: 1024, Section: symtab.SectionROData, Name: "crc_table"},
		{Address: "20000000", SizeBytes: 4096, Section: symtab.SectionBSS, Name: "heap"},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{name: "size", expr: "size >= 1024", want: []string{"crc_table", "heap"}},
		{name: "section", expr: `section == "text"`, want: []string{"main", "HAL_Init"}},
		{name: "prefix", expr: `name.startsWith("HAL_")`, want: []string{"HAL_Init"}},
		{name: "location", expr: `location.contains("main.c")`, want: []string{"main"}},
		{name: "address", expr: `address.startsWith("2")`, want: []string{"heap"}},
		{name: "none", expr: "size > 100000", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.expr)
			require.NoError(t, err)

			got, err := f.Apply(filterFixture())
			require.NoError(t, err)

			names := make([]string, 0, len(got))
			for _, s := range got {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestFilter_Errors(t *testing.T) {
	_, err := NewFilter("size >")
	assert.Error(t, err)

	_, err = NewFilter("unknown_var == 1")
	assert.Error(t, err)

	f, err := NewFilter("name")
	require.NoError(t, err)
	_, err = f.Apply(filterFixture())
	assert.Error(t, err)
}
