package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title: "Pitch analytics",
		Sections: []Section{
			{Title: "Summary", Dataset: Dataset{
				Headers: []string{"metric", "value"},
				Rows:    []map[string]string{{"metric": "total_views", "value": "3"}},
			}},
			{Title: "Referrers", Dataset: Dataset{
				Headers: []string{"referrer", "views"},
				Rows: []map[string]string{
					{"referrer": "Direct", "views": "2"},
					{"referrer": "https://news.example.com/a,b", "views": "1"},
				},
			}},
		},
	}
}

func TestCSVExporterRendersSections(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleReport())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, []string{
		"Summary",
		"metric,value",
		"total_views,3",
		"",
		"Referrers",
		"referrer,views",
		"Direct,2",
		`"https://news.example.com/a,b",1`,
	}, lines)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRejectEmptyReports(t *testing.T) {
	_, err := NewCSVExporter().Render(Report{Title: "empty"})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Report{Sections: []Section{{Title: "no headers"}}})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType())
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
