// Package export renders tabular reports as CSV or PDF.
package export

import "fmt"

// Dataset is one table of a report.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Section is a titled table.
type Section struct {
	Title string
	Dataset
}

// Report is an ordered set of sections under one title.
type Report struct {
	Title    string
	Sections []Section
}

// Format names an output encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// ParseFormat accepts csv or pdf, defaulting to csv when raw is empty.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

func (r Report) validate() error {
	if len(r.Sections) == 0 {
		return fmt.Errorf("report %q has no sections", r.Title)
	}
	for _, s := range r.Sections {
		if len(s.Headers) == 0 {
			return fmt.Errorf("section %q requires at least one header", s.Title)
		}
	}
	return nil
}
