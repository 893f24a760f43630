package feeds

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeRateCardXLSX(t *testing.T, rows [][]string) string {
	t.Helper()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Rates")
	require.NoError(t, err)

	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}

	path := filepath.Join(t.TempDir(), "ratecard.xlsx")
	require.NoError(t, file.Save(path))
	return path
}

func TestLoadRateCard(t *testing.T) {
	path := writeRateCardXLSX(t, [][]string{
		{"Vertical", "CPM"},
		{"personal_finance", "14.50"},
		{"Education", "9.25"},
		{"health", "11"},
	})

	card, err := LoadRateCard(path)
	require.NoError(t, err)
	require.Len(t, card, 3)

	assert.InDelta(t, 14.50, card["personal_finance"], 1e-9)
	// Verticals are lowercased.
	assert.InDelta(t, 9.25, card["education"], 1e-9)
}

func TestLoadRateCard_SkipsBadRows(t *testing.T) {
	path := writeRateCardXLSX(t, [][]string{
		{"Vertical", "CPM"},
		{"finance", "12.0"},
		{"", "5.0"},
		{"gaming", "not-a-number"},
		{"negative", "-3"},
		{"only-one-cell"},
	})

	card, err := LoadRateCard(path)
	require.NoError(t, err)
	require.Len(t, card, 1)
	assert.InDelta(t, 12.0, card["finance"], 1e-9)
}

func TestLoadRateCard_NoUsableRows(t *testing.T) {
	path := writeRateCardXLSX(t, [][]string{
		{"Vertical", "CPM"},
	})

	_, err := LoadRateCard(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable rows")
}

func TestLoadRateCard_MissingFile(t *testing.T) {
	_, err := LoadRateCard(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open rate card")
}

func TestRateCardCPM(t *testing.T) {
	card := RateCard{"finance": 12.5}

	assert.InDelta(t, 12.5, card.CPM("Finance", 8.0), 1e-9)
	assert.InDelta(t, 8.0, card.CPM("unknown", 8.0), 1e-9)
}
