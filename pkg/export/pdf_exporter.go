package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const reportFontFamily = "report"

// Report is a titled list of printable lines.
type Report struct {
	Title string
	Lines []string
}

// PDFExporter renders reports onto paginated A4 pages.
//
// Without a TTF font only the core Latin font is available, so Arabic names
// print as placeholders. With a font, glyphs are embedded but right-to-left
// shaping is left to the font.
type PDFExporter struct {
	fontPath string
	compress bool
}

// NewPDFExporter constructs a PDF exporter; fontPath may be empty.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath, compress: true}
}

// Render writes the title then one line per entry, breaking pages as needed.
func (e *PDFExporter) Render(report Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(e.compress)
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 20)

	family, translate := "Arial", pdf.UnicodeTranslatorFromDescriptor("")
	if e.fontPath != "" {
		pdf.AddUTF8Font(reportFontFamily, "", e.fontPath)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("load report font: %w", err)
		}
		family, translate = reportFontFamily, func(s string) string { return s }
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(family, "", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(family, "", 14)
	pdf.CellFormat(0, 10, translate(report.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(family, "", 11)
	for _, line := range report.Lines {
		pdf.MultiCell(0, 8, translate(line), "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
