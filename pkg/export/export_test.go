package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attendanceDataset() Dataset {
	return Dataset{
		Title:   "Attendance 10A",
		Headers: []string{"Student", "2024-03-04", "2024-03-06"},
		Rows: []map[string]string{
			{"Student": "Ani", "2024-03-04": "PRESENT", "2024-03-06": "UNMARKED"},
			{"Student": "Budi", "2024-03-04": "ABSENT"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(attendanceDataset())
	require.NoError(t, err)

	expected := "Student,2024-03-04,2024-03-06\nAni,PRESENT,UNMARKED\nBudi,ABSENT,\n"
	assert.Equal(t, expected, string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(attendanceDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(12)
	total := 0.0
	for _, w := range widths {
		total += w
	}
	assert.InDelta(t, landscapeWidth, total, 0.001)
	assert.Equal(t, leadColumnMin, widths[0])
}
