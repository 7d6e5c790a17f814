package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersHeaderOrder(t *testing.T) {
	data := Dataset{
		Headers: []string{"Class", "Students", "Assessments %"},
		Rows: []map[string]string{
			{"Class": "7A", "Students": "24", "Assessments %": "66.7"},
			{"Class": "7B", "Students": "21"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Class,Students,Assessments %", lines[0])
	assert.Equal(t, "7A,24,66.7", lines[1])
	assert.Equal(t, "7B,21,", lines[2])
}

func TestCSVExporterQuotesEmbeddedCommas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Student", "Risk"},
		Rows:    []map[string]string{{"Student": "Rao, Asha", "Risk": "high"}},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"Rao, Asha"`)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	data := Dataset{
		Headers: []string{"Metric", "Value"},
		Rows:    []map[string]string{{"Metric": "Total Students", "Value": "120"}},
	}

	out, err := NewPDFExporter().Render(data, "Engagement Overview")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "ignored")
	assert.Error(t, err)
}
