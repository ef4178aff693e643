package segment

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbansense/fleetcover/internal/model"
)

func tagged(agent int64, stratum int, temporal int64) model.TaggedRecord {
	return model.TaggedRecord{
		Record:      model.Record{AgentID: agent},
		StratumID:   stratum,
		TemporalID:  temporal,
		HasStratum:  true,
		HasTemporal: true,
	}
}

func TestAggregate(t *testing.T) {
	records := []model.TaggedRecord{
		tagged(1, 0, 100),
		tagged(1, 0, 100),
		tagged(1, 2, 100),
		tagged(5, 0, 200),
	}

	table := Aggregate(records)

	assert.Equal(t, 2, table.NumAgents())
	assert.Equal(t, 2, table.Segments(1)[model.Segment{StratumID: 0, TemporalID: 100}])
	assert.Equal(t, 1, table.Segments(1)[model.Segment{StratumID: 2, TemporalID: 100}])
	assert.Equal(t, 1, table.Segments(5)[model.Segment{StratumID: 0, TemporalID: 200}])
	assert.Equal(t, 3, table.NumSegments())
}

func TestAggregate_DropsUntagged(t *testing.T) {
	noStratum := tagged(1, 0, 100)
	noStratum.HasStratum = false
	noTemporal := tagged(1, 0, 100)
	noTemporal.HasTemporal = false

	table := Aggregate([]model.TaggedRecord{noStratum, noTemporal, tagged(2, 1, 100)})

	assert.Equal(t, 1, table.NumAgents())
	assert.Equal(t, []int64{2}, table.Agents())
}

func TestAggregate_AllUntagged(t *testing.T) {
	r := tagged(1, 0, 100)
	r.HasStratum = false

	table := Aggregate([]model.TaggedRecord{r, r})
	assert.Equal(t, 0, table.NumAgents())
	assert.Equal(t, 0, table.NumSegments())
}

func TestWriteReadCSV_RoundTrip(t *testing.T) {
	table := model.NewIncidenceTable()
	table.Add(1, model.Segment{StratumID: 0, TemporalID: 100}, 3)
	table.Add(1, model.Segment{StratumID: 2, TemporalID: 200}, 1)
	table.Add(7, model.Segment{StratumID: 0, TemporalID: 100}, 5)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "agent_id,stratum_id,temporal_id,count", header)

	rebuilt, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, table.Rows(), rebuilt.Rows())
}

func TestReadCSV_Malformed(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("agent_id,stratum_id,temporal_id,count\n1,not_a_number,100,1\n"))
	require.Error(t, err)
}
