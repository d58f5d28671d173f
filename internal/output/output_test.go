package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/myspacecornelius/leadscout/internal/lead"
)

func scored(name, org string, score float64) *lead.Lead {
	l := &lead.Lead{
		Name:       name,
		Org:        org,
		Email:      lead.EmailUnknown,
		Score:      score,
		Discovered: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	return l
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteMasterDedupsAndSortsBestFirst(t *testing.T) {
	w := NewWriter(Config{Dir: t.TempDir()}, nil)

	leads := []*lead.Lead{
		scored("Jane Smith", "Acme Ventures", 40),
		scored("John Doe", "Acme Ventures", 85),
		scored("Jane Smith", "Acme Ventures", 60), // repeat identity
	}
	res, err := w.WriteMaster(leads)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.New)

	rows := readRows(t, res.MasterPath)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, "John Doe", rows[1][0])
	assert.Equal(t, "Jane Smith", rows[2][0])
	assert.Equal(t, "40", rows[2][11])
}

func TestWriteMasterKeepsTimestampedHistory(t *testing.T) {
	w := NewWriter(Config{Dir: t.TempDir()}, nil)
	w.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	res, err := w.WriteMaster([]*lead.Lead{scored("Jane Smith", "Acme Ventures", 70)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.cfg.Dir, "enriched", "leads_20260301_093000.csv"), res.HistoryPath)

	rows := readRows(t, res.HistoryPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jane Smith", rows[1][0])
}

func TestDeltasAgainstPriorMaster(t *testing.T) {
	w := NewWriter(Config{Dir: t.TempDir(), XLSX: false}, nil)

	_, err := w.WriteMaster([]*lead.Lead{scored("Jane Smith", "Acme Ventures", 70)})
	require.NoError(t, err)

	res, err := w.WriteMaster([]*lead.Lead{
		scored("Jane Smith", "Acme Ventures", 75),
		scored("Ada Lovelace", "Byte Capital", 90),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.New)

	rows := readRows(t, res.DeltaPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ada Lovelace", rows[1][0])
}

func TestDeltasEmptyWhenNothingIsNew(t *testing.T) {
	w := NewWriter(Config{Dir: t.TempDir(), XLSX: false}, nil)
	set := []*lead.Lead{scored("Jane Smith", "Acme Ventures", 70)}

	_, err := w.WriteMaster(set)
	require.NoError(t, err)

	res, err := w.WriteMaster(set)
	require.NoError(t, err)
	assert.Zero(t, res.New)
	assert.Empty(t, res.DeltaPath)
}

func TestRowFormatsFields(t *testing.T) {
	l := scored("Jane Smith", "Acme Ventures", 85)
	l.SetEmail("jane.smith@acme.vc", lead.StatusSMTPVerified)
	l.Role = "General Partner"
	l.Sectors = []string{"fintech", "saas"}
	l.Tier = "HOT"

	r := row(l)
	require.Len(t, r, len(header))
	assert.Equal(t, "jane.smith@acme.vc", r[1])
	assert.Equal(t, "verified_by_smtp", r[2])
	assert.Equal(t, "fintech; saas", r[5])
	assert.Equal(t, "85", r[11])
	assert.Equal(t, "2026-03-01T12:00:00Z", r[14])

	blank := row(&lead.Lead{Name: "John Doe"})
	assert.Empty(t, blank[14])
}

func TestWriteRaw(t *testing.T) {
	w := NewWriter(Config{Dir: t.TempDir()}, nil)
	path, err := w.WriteRaw("batch_1.csv", []*lead.Lead{scored("Jane Smith", "Acme Ventures", 0)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.cfg.Dir, "raw", "batch_1.csv"), path)
	require.Len(t, readRows(t, path), 2)
}

func TestWriteMasterSpreadsheetMirrorsCSV(t *testing.T) {
	w := NewWriter(Config{Dir: t.TempDir(), XLSX: true}, nil)

	jane := scored("Jane Smith", "Acme Ventures", 85)
	jane.SetEmail("jane.smith@acme.vc", lead.StatusSMTPVerified)
	res, err := w.WriteMaster([]*lead.Lead{jane})
	require.NoError(t, err)
	require.NotEmpty(t, res.XLSXPath)

	f, err := excelize.OpenFile(res.XLSXPath)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue(sheetName, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", name)
	email, err := f.GetCellValue(sheetName, "B2")
	require.NoError(t, err)
	assert.Equal(t, "jane.smith@acme.vc", email)
	score, err := f.GetCellValue(sheetName, "L2")
	require.NoError(t, err)
	assert.Equal(t, "85", score)
}
