package world

import (
	"sort"

	"github.com/justapithecus/logbook/types"
)

// DefaultResourceRetention is the number of samples kept per resource.
const DefaultResourceRetention = 10000

// insertSample returns a new series with s inserted in timestamp order.
// A sample with the same timestamp as an existing one replaces it. The
// oldest samples are dropped once the series exceeds limit.
func insertSample(series []types.ResourceSample, s types.ResourceSample, limit int) []types.ResourceSample {
	i := sort.Search(len(series), func(i int) bool { return !series[i].Time.Before(s.Time) })

	var out []types.ResourceSample
	if i < len(series) && series[i].Time.Equal(s.Time) {
		out = make([]types.ResourceSample, len(series))
		copy(out, series)
		out[i] = s
	} else {
		out = make([]types.ResourceSample, 0, len(series)+1)
		out = append(out, series[:i]...)
		out = append(out, s)
		out = append(out, series[i:]...)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
