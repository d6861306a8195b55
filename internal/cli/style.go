package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/coral-mesh/elfinsight/internal/report"
	"github.com/coral-mesh/elfinsight/internal/symtab"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Bold(true)
)

// renderUsage writes the flash/RAM summary shown above symbol tables.
func renderUsage(w io.Writer, file string, p *report.SymbolsPayload) error {
	s := p.SectionSizes

	var b strings.Builder
	b.WriteString(titleStyle.Render("Memory usage"))
	if file != "" {
		b.WriteString("  " + labelStyle.Render(file))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%s %s  %s\n",
		labelStyle.Render("Flash"),
		valueStyle.Render(fmt.Sprintf("%10s", humanize.IBytes(p.FlashUsed))),
		labelStyle.Render(breakdown(s, symtab.SectionText, symtab.SectionROData, symtab.SectionData)),
	))
	b.WriteString(fmt.Sprintf("%s %s  %s\n",
		labelStyle.Render("RAM  "),
		valueStyle.Render(fmt.Sprintf("%10s", humanize.IBytes(p.RAMUsed))),
		labelStyle.Render(breakdown(s, symtab.SectionBSS, symtab.SectionData, symtab.SectionBSSWeak)),
	))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// breakdown lists the non-empty sections that contribute to a total.
func breakdown(sizes symtab.SectionSizes, sections ...symtab.Section) string {
	parts := make([]string, 0, len(sections))
	for _, section := range sections {
		size := sizes.Get(section)
		if size == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", section.Label(), humanize.IBytes(size)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
