// Package document renders the specialist's markdown report into a
// paginated PDF.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

const (
	pageMargin   = 18.0
	lineHeight   = 5.5
	bodyFontSize = 10.5
)

// PDF renders line-oriented markdown: headings, bullet items, and body
// paragraphs. Inline emphasis markers are stripped rather than styled.
type PDF struct{}

var _ contractx.Renderer = PDF{}

func NewPDF() PDF {
	return PDF{}
}

func (PDF) Render(markdown string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimRight(line, " \t")
		switch {
		case line == "":
			doc.Ln(lineHeight / 2)
		case strings.HasPrefix(line, "### "):
			doc.SetFont("Helvetica", "B", 11.5)
			doc.MultiCell(0, lineHeight+1, tr(stripInline(strings.TrimPrefix(line, "### "))), "", "L", false)
			doc.Ln(1)
		case strings.HasPrefix(line, "## "):
			doc.SetFont("Helvetica", "B", 13)
			doc.MultiCell(0, lineHeight+2, tr(stripInline(strings.TrimPrefix(line, "## "))), "", "L", false)
			doc.Ln(1.5)
		case strings.HasPrefix(line, "# "):
			doc.SetFont("Helvetica", "B", 16)
			doc.MultiCell(0, lineHeight+3, tr(stripInline(strings.TrimPrefix(line, "# "))), "", "L", false)
			doc.Ln(2)
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			doc.SetFont("Helvetica", "", bodyFontSize)
			doc.MultiCell(0, lineHeight, tr("• "+stripInline(line[2:])), "", "L", false)
		default:
			doc.SetFont("Helvetica", "", bodyFontSize)
			doc.MultiCell(0, lineHeight, tr(stripInline(line)), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

var inlineReplacer = strings.NewReplacer("**", "", "__", "", "`", "")

func stripInline(s string) string {
	return strings.TrimSpace(inlineReplacer.Replace(s))
}
