package feeds

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// RateCard maps vertical IDs to their CPM baselines in USD.
type RateCard map[string]float64

// CPM returns the baseline for a vertical, or the given default when the
// vertical is not on the card.
func (rc RateCard) CPM(vertical string, def float64) float64 {
	if cpm, ok := rc[strings.ToLower(vertical)]; ok {
		return cpm
	}
	return def
}

// LoadRateCard reads a vertical→CPM spreadsheet. The first sheet must
// carry a header row followed by rows with the vertical in column A and
// the CPM in column B. Rows with an unparseable CPM are logged and
// skipped.
func LoadRateCard(path string) (RateCard, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "feeds: open rate card")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("feeds: rate card has no sheets")
	}

	card := make(RateCard)
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue // header
		}
		if len(row.Cells) < 2 {
			continue
		}

		vertical := strings.ToLower(strings.TrimSpace(row.Cells[0].String()))
		if vertical == "" {
			continue
		}

		raw := strings.TrimSpace(row.Cells[1].String())
		cpm, err := strconv.ParseFloat(raw, 64)
		if err != nil || cpm < 0 {
			zap.L().Warn("rate card row has bad cpm, skipping",
				zap.Int("row", i+1),
				zap.String("vertical", vertical),
				zap.String("value", raw),
			)
			continue
		}

		card[vertical] = cpm
	}

	if len(card) == 0 {
		return nil, eris.New("feeds: rate card has no usable rows")
	}
	return card, nil
}
