package segment

import (
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/urbansense/fleetcover/internal/model"
)

// WriteCSV serializes an incidence table as CSV rows of
// agent_id, stratum_id, temporal_id, count. This is the canonical hand-off
// artifact between aggregation and selection and may cross a process
// boundary.
func WriteCSV(w io.Writer, table *model.IncidenceTable) error {
	data, err := csvutil.Marshal(table.Rows())
	if err != nil {
		return eris.Wrap(err, "segment: marshal incidence table")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "segment: write incidence table")
	}
	return nil
}

// ReadCSV rebuilds an incidence table from its serialized form.
func ReadCSV(r io.Reader) (*model.IncidenceTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "segment: read incidence table")
	}

	var rows []model.IncidenceRow
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrap(err, "segment: unmarshal incidence table")
	}
	return model.FromRows(rows), nil
}
