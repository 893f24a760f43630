package feeds

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// trend CSV columns, matched case-insensitively by header name.
const (
	colTopic    = "topic"
	colVertical = "vertical"
	colMomentum = "momentum_score"
	colSource   = "source"
)

// TrendRow is one parsed trend candidate row. The planner converts these
// to model.TrendCandidate; feeds stays free of model imports so the CSV
// contract is testable in isolation.
type TrendRow struct {
	Topic         string
	Vertical      string
	MomentumScore float64
	Source        string
}

// ParseTrendCSV reads trend candidates from a CSV with a header row.
// Required columns: topic. Optional: vertical, momentum_score, source.
// Malformed rows are logged and skipped rather than failing the feed.
func ParseTrendCSV(r io.Reader) ([]TrendRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "feeds: read trend csv header")
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx[colTopic]; !ok {
		return nil, eris.New("feeds: trend csv missing topic column")
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var trends []TrendRow
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return trends, eris.Wrap(err, "feeds: read trend csv row")
		}

		topic := field(row, colTopic)
		if topic == "" {
			zap.L().Warn("trend csv row has no topic, skipping", zap.Int("line", line))
			continue
		}

		momentum := 0.0
		if raw := field(row, colMomentum); raw != "" {
			momentum, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				zap.L().Warn("trend csv row has bad momentum score, skipping",
					zap.Int("line", line),
					zap.String("value", raw),
				)
				continue
			}
		}

		source := field(row, colSource)
		if source == "" {
			source = "trend_csv"
		}

		trends = append(trends, TrendRow{
			Topic:         topic,
			Vertical:      field(row, colVertical),
			MomentumScore: momentum,
			Source:        source,
		})
	}

	return trends, nil
}
