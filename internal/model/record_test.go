package model

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr bool
	}{
		{"valid", Record{AgentID: 1, Latitude: 40.7, Longitude: -74.0, Timestamp: 100}, false},
		{"lat boundary low", Record{Latitude: -90, Longitude: 0}, false},
		{"lat boundary high", Record{Latitude: 90, Longitude: 0}, false},
		{"lng boundary low", Record{Latitude: 0, Longitude: -180}, false},
		{"lng boundary high", Record{Latitude: 0, Longitude: 180}, false},
		{"lat too low", Record{Latitude: -90.5, Longitude: 0}, true},
		{"lat too high", Record{Latitude: 91, Longitude: 0}, true},
		{"lng too low", Record{Latitude: 0, Longitude: -180.1}, true},
		{"lng too high", Record{Latitude: 0, Longitude: 200}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.True(t, eris.Is(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaggedRecord(t *testing.T) {
	r := TaggedRecord{Record: Record{AgentID: 5}}
	assert.False(t, r.Tagged())

	r.StratumID = 2
	r.HasStratum = true
	assert.False(t, r.Tagged())

	r.TemporalID = 3600
	r.HasTemporal = true
	assert.True(t, r.Tagged())
	assert.Equal(t, Segment{StratumID: 2, TemporalID: 3600}, r.Segment())
}

func TestTemporalBucketContains(t *testing.T) {
	b := TemporalBucket{ID: 100, Start: 100, End: 200}
	assert.True(t, b.Contains(100))
	assert.True(t, b.Contains(199))
	assert.False(t, b.Contains(200)) // half-open
	assert.False(t, b.Contains(99))
}
