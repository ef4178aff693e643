// Package ingest loads agent mobility records from external sources and tags
// them with spatial and temporal IDs.
package ingest

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/model"
)

// ReadCSV loads mobility records from CSV. The header must contain agent_id,
// latitude, longitude and timestamp columns; extra columns are ignored.
// A missing column, an unparseable value, or an out-of-range coordinate fails
// the load. Row order is preserved.
func ReadCSV(r io.Reader) ([]model.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		if err == io.EOF {
			return nil, eris.Wrap(model.ErrValidation, "ingest: empty CSV input")
		}
		return nil, eris.Wrapf(model.ErrValidation, "ingest: read CSV header: %v", err)
	}
	dec.DisallowMissingColumns = true

	var records []model.Record
	for {
		var rec model.Record
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(model.ErrValidation, "ingest: decode CSV row %d: %v", len(records)+1, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, eris.Wrapf(err, "ingest: row %d", len(records)+1)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		zap.L().Warn("ingest: CSV contained a header but no data rows")
	}
	return records, nil
}
