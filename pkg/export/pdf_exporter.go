package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 190.0

// PDFExporter renders reports as A4 documents with one bordered table per section.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF document.
func (e *PDFExporter) Render(report Report) ([]byte, error) {
	if err := report.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if report.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(report.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	for _, section := range report.Sections {
		if section.Title != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, tr(section.Title), "", 1, "L", false, 0, "")
		}

		colWidth := pageWidth / float64(len(section.Headers))
		pdf.SetFont("Arial", "B", 9)
		for _, header := range section.Headers {
			pdf.CellFormat(colWidth, 7, tr(header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		if len(section.Rows) == 0 {
			pdf.CellFormat(pageWidth, 7, "no data", "1", 1, "C", false, 0, "")
		}
		for _, row := range section.Rows {
			for _, header := range section.Headers {
				pdf.CellFormat(colWidth, 7, tr(truncate(row[header], colWidth)), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(5)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate keeps long referrers inside their cell. About one character fits per
// millimetre at 9pt.
func truncate(value string, width float64) string {
	limit := int(width)
	if limit < 4 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
