package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const storeLatencyFamily = "mediconnect_docstore_call_latency_seconds"

// LatencySnapshot summarizes one store operation's latency histogram.
type LatencySnapshot struct {
	Count int64   `json:"count"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// StoreLatency reads the document store histogram from gatherer and returns
// a snapshot per operation. Operations with no samples are omitted.
func StoreLatency(gatherer prometheus.Gatherer) map[string]LatencySnapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	out := map[string]LatencySnapshot{}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == storeLatencyFamily {
			family = mf
			break
		}
	}
	if family == nil {
		return out
	}

	for _, metric := range family.Metric {
		h := metric.GetHistogram()
		if h == nil || h.GetSampleCount() == 0 {
			continue
		}
		op := labelValue(metric, "operation")
		cumulativeByUpper := make(map[float64]uint64, len(h.Bucket))
		uppers := make([]float64, 0, len(h.Bucket)+1)
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] = b.GetCumulativeCount()
			uppers = append(uppers, b.GetUpperBound())
		}
		if _, ok := cumulativeByUpper[math.Inf(1)]; !ok {
			cumulativeByUpper[math.Inf(1)] = h.GetSampleCount()
			uppers = append(uppers, math.Inf(1))
		}
		sort.Float64s(uppers)

		total := h.GetSampleCount()
		out[op] = LatencySnapshot{
			Count: int64(total),
			P50Ms: histogramQuantile(0.50, total, uppers, cumulativeByUpper) * 1000.0,
			P95Ms: histogramQuantile(0.95, total, uppers, cumulativeByUpper) * 1000.0,
		}
	}
	return out
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// histogramQuantile interpolates linearly inside the bucket holding the
// q-th sample. The +Inf bucket reports its lower bound.
func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 || len(uppers) == 0 {
		return 0
	}
	target := q * float64(total)
	var prevUpper, prevCum float64
	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper = upper
			prevCum = cum
			continue
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}
		bucketCount := cum - prevCum
		if bucketCount <= 0 || upper == prevUpper {
			return upper
		}
		fraction := (target - prevCum) / bucketCount
		return prevUpper + math.Min(math.Max(fraction, 0), 1)*(upper-prevUpper)
	}
	return prevUpper
}
