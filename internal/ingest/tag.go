package ingest

import (
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/model"
)

// PointClassifier assigns a stratum ID to a geographic point.
type PointClassifier interface {
	Classify(lng, lat float64) (int, bool)
}

// TimeClassifier assigns a temporal bucket ID to a timestamp.
type TimeClassifier interface {
	Classify(ts int64) (int64, bool)
}

// Tag annotates each record with its stratum and temporal bucket. Records
// outside all strata or outside the bucketized range keep unset tags and are
// dropped later by aggregation; tagging itself never fails.
func Tag(records []model.Record, pc PointClassifier, tc TimeClassifier) []model.TaggedRecord {
	tagged := make([]model.TaggedRecord, 0, len(records))

	unstratified := 0
	for _, r := range records {
		t := model.TaggedRecord{Record: r}
		if id, ok := pc.Classify(r.Longitude, r.Latitude); ok {
			t.StratumID = id
			t.HasStratum = true
		} else {
			unstratified++
		}
		if id, ok := tc.Classify(r.Timestamp); ok {
			t.TemporalID = id
			t.HasTemporal = true
		}
		tagged = append(tagged, t)
	}

	if unstratified > 0 {
		zap.L().Debug("ingest: records outside all strata",
			zap.Int("count", unstratified),
			zap.Int("total", len(records)),
		)
	}
	return tagged
}

// TimestampRange returns the minimum and maximum timestamps across records.
// The boolean is false for an empty slice.
func TimestampRange(records []model.Record) (minTS, maxTS int64, ok bool) {
	if len(records) == 0 {
		return 0, 0, false
	}
	minTS, maxTS = records[0].Timestamp, records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp < minTS {
			minTS = r.Timestamp
		}
		if r.Timestamp > maxTS {
			maxTS = r.Timestamp
		}
	}
	return minTS, maxTS, true
}
