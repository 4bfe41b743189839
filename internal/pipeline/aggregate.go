package pipeline

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// groupMean sorts observations by time and averages values sharing a timestamp.
func groupMean(times []time.Time, values []float64) ([]time.Time, []float64) {
	groups := make(map[int64][]float64, len(times))
	keys := make([]int64, 0, len(times))
	for i, t := range times {
		k := t.UnixNano()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], values[i])
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	outTimes := make([]time.Time, len(keys))
	outValues := make([]float64, len(keys))
	for i, k := range keys {
		outTimes[i] = time.Unix(0, k).UTC()
		outValues[i] = stat.Mean(groups[k], nil)
	}
	return outTimes, outValues
}
