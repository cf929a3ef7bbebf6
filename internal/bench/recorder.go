package bench

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histogramMin     = 1             // 1 microsecond
	histogramMax     = 3_600_000_000 // 1 hour in microseconds
	histogramSigFigs = 3
)

// LatencyStats holds latency percentiles of the successful requests.
type LatencyStats struct {
	Min  time.Duration `json:"min" yaml:"min"`
	Max  time.Duration `json:"max" yaml:"max"`
	Mean time.Duration `json:"mean" yaml:"mean"`
	P50  time.Duration `json:"p50" yaml:"p50"`
	P90  time.Duration `json:"p90" yaml:"p90"`
	P95  time.Duration `json:"p95" yaml:"p95"`
	P99  time.Duration `json:"p99" yaml:"p99"`
}

// Recorder aggregates request outcomes. Latencies go to an HDR histogram.
//
// Recorder is safe for concurrent use: counters are atomic and the histogram,
// whose RecordValue is not thread-safe, is guarded by a mutex.
type Recorder struct {
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	bytes     atomic.Int64

	countsMu sync.Mutex
	statuses map[int]int64
	errors   map[string]int64
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		latencyHist: hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		statuses:    make(map[int]int64),
		errors:      make(map[string]int64),
	}
}

// RecordSuccess records a request that produced a response.
func (r *Recorder) RecordSuccess(latency time.Duration, status int, bytes int) {
	micros := latency.Microseconds()
	micros = max(micros, histogramMin)
	micros = min(micros, histogramMax)

	r.latencyHistMu.Lock()
	_ = r.latencyHist.RecordValue(micros)
	r.latencyHistMu.Unlock()

	r.total.Add(1)
	r.succeeded.Add(1)
	r.bytes.Add(int64(bytes))

	r.countsMu.Lock()
	r.statuses[status]++
	r.countsMu.Unlock()
}

// RecordFailure records a request that ended with an error of the given kind.
func (r *Recorder) RecordFailure(kind string) {
	r.total.Add(1)
	r.failed.Add(1)

	r.countsMu.Lock()
	r.errors[kind]++
	r.countsMu.Unlock()
}

// Latency returns the latency percentiles recorded so far.
func (r *Recorder) Latency() LatencyStats {
	r.latencyHistMu.Lock()
	defer r.latencyHistMu.Unlock()

	if r.latencyHist.TotalCount() == 0 {
		return LatencyStats{}
	}

	micros := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }

	return LatencyStats{
		Min:  micros(r.latencyHist.Min()),
		Max:  micros(r.latencyHist.Max()),
		Mean: micros(int64(r.latencyHist.Mean())),
		P50:  micros(r.latencyHist.ValueAtQuantile(50)),
		P90:  micros(r.latencyHist.ValueAtQuantile(90)),
		P95:  micros(r.latencyHist.ValueAtQuantile(95)),
		P99:  micros(r.latencyHist.ValueAtQuantile(99)),
	}
}

// Summary is the result of a benchmark run.
type Summary struct {
	Total      int64            `json:"total" yaml:"total"`
	Succeeded  int64            `json:"succeeded" yaml:"succeeded"`
	Failed     int64            `json:"failed" yaml:"failed"`
	Bytes      int64            `json:"bytes" yaml:"bytes"`
	Duration   time.Duration    `json:"duration" yaml:"duration"`
	Throughput float64          `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Latency    LatencyStats     `json:"latency" yaml:"latency"`
	Statuses   map[int]int64    `json:"statuses,omitempty" yaml:"statuses,omitempty"`
	Errors     map[string]int64 `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Summary snapshots the recorder for a run that lasted elapsed.
func (r *Recorder) Summary(elapsed time.Duration) *Summary {
	summary := &Summary{
		Total:     r.total.Load(),
		Succeeded: r.succeeded.Load(),
		Failed:    r.failed.Load(),
		Bytes:     r.bytes.Load(),
		Duration:  elapsed,
		Latency:   r.Latency(),
		Statuses:  make(map[int]int64),
		Errors:    make(map[string]int64),
	}

	if elapsed > 0 {
		summary.Throughput = float64(summary.Total) / elapsed.Seconds()
	}

	r.countsMu.Lock()
	for status, count := range r.statuses {
		summary.Statuses[status] = count
	}

	for kind, count := range r.errors {
		summary.Errors[kind] = count
	}
	r.countsMu.Unlock()

	return summary
}
