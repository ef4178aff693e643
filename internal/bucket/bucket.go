// Package bucket partitions a timestamp range into fixed-width half-open
// temporal buckets and classifies timestamps into them.
package bucket

import (
	"github.com/rotisserie/eris"

	"github.com/urbansense/fleetcover/internal/model"
)

// Bucketizer assigns timestamps to half-open buckets [start, start+granularity)
// stepping from minTS. The final boundary is forced to maxTS+1 so the maximum
// timestamp is never dropped by the half-open convention.
type Bucketizer struct {
	minTS       int64
	maxTS       int64
	granularity int64
	buckets     []model.TemporalBucket
}

// New builds the bucket sequence for [minTS, maxTS] at the given granularity
// in seconds.
func New(minTS, maxTS, granularity int64) (*Bucketizer, error) {
	if granularity <= 0 {
		return nil, eris.Wrapf(model.ErrValidation, "bucket: granularity must be positive, got %d", granularity)
	}
	if minTS > maxTS {
		return nil, eris.Wrapf(model.ErrValidation, "bucket: min timestamp %d after max %d", minTS, maxTS)
	}

	limit := maxTS + 1
	var buckets []model.TemporalBucket
	for start := minTS; start < limit; start += granularity {
		end := start + granularity
		if end > limit {
			end = limit
		}
		buckets = append(buckets, model.TemporalBucket{ID: start, Start: start, End: end})
	}

	return &Bucketizer{
		minTS:       minTS,
		maxTS:       maxTS,
		granularity: granularity,
		buckets:     buckets,
	}, nil
}

// Classify returns the ID (start timestamp) of the bucket containing ts.
// The second return is false for timestamps outside [minTS, maxTS].
// Runs in O(1); this is called once per record.
func (b *Bucketizer) Classify(ts int64) (int64, bool) {
	if ts < b.minTS || ts > b.maxTS {
		return 0, false
	}
	id := b.minTS + (ts-b.minTS)/b.granularity*b.granularity
	return id, true
}

// Buckets returns the bucket sequence in time order.
func (b *Bucketizer) Buckets() []model.TemporalBucket {
	return b.buckets
}
