package export

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

func trafficTable() Table {
	return NewTable(domain.TrafficStats, []domain.Document{
		{"Date": "2024-01-30", "Views": float64(10), "Unique visitors": float64(5), "Owner": "org", "Repo": "repo"},
		{"Date": "2024-01-31", "Views": float64(4), "Unique visitors": float64(2), "Owner": "org", "Repo": "repo"},
		{"Date": "2024-02-01", "Views": float64(7), "Unique visitors": float64(3), "Owner": "org", "Repo": "repo"},
	})
}

func TestAppendMonthlyTotals(t *testing.T) {
	got := AppendMonthlyTotals(trafficTable())

	require.Len(t, got.Rows, 5)
	assert.Equal(t, domain.Document{"Date": "2024-01", "Views": 14, "Unique visitors": 7}, got.Rows[3])
	assert.Equal(t, domain.Document{"Date": "2024-02", "Views": 7, "Unique visitors": 3}, got.Rows[4])
}

func TestAppendMonthlyTotals_LeavesOriginalAlone(t *testing.T) {
	tbl := trafficTable()
	_ = AppendMonthlyTotals(tbl)
	assert.Len(t, tbl.Rows, 3)
}

func TestAppendMonthlyTotals_NoMetricsNoRows(t *testing.T) {
	empty := NewTable(domain.TrafficStats, nil)
	assert.Empty(t, AppendMonthlyTotals(empty).Rows)
}

func TestEncodeJSON(t *testing.T) {
	data, err := EncodeJSON([]Table{trafficTable()})
	require.NoError(t, err)

	var doc map[string][]domain.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Contains(t, doc, "TrafficStats")
	assert.Len(t, doc["TrafficStats"], 3)
	// Temporal fields stay strings at the export boundary.
	assert.Equal(t, "2024-01-30", doc["TrafficStats"][0]["Date"])
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	tables := []Table{
		trafficTable(),
		NewTable(domain.Stars, []domain.Document{
			{"Date": "2024-01-01", "Total Stars": float64(3), "Owner": "org", "Repo": "repo"},
		}),
	}
	require.NoError(t, WriteWorkbook(path, tables))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Traffic Stats", "Stars"}, f.GetSheetList())

	rows, err := f.GetRows("Traffic Stats")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, domain.TrafficStats.Columns, rows[0])
	assert.Len(t, rows, 4)

	header, err := f.GetRows("Stars")
	require.NoError(t, err)
	assert.Equal(t, domain.Stars.Columns, header[0])
}
