package stresstest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Driver runs a Workload against a Target for a fixed duration,
// bounding in-flight requests with a counting semaphore.
type Driver struct {
	target   Target
	workload *Workload
	// workloadMu guards workload: actions are sampled from the main
	// loop but pushed back by worker goroutines on completion.
	workloadMu sync.Mutex
}

// NewDriver builds a Driver issuing workload's actions against target.
func NewDriver(target Target, workload *Workload) *Driver {
	return &Driver{target: target, workload: workload}
}

// Report summarizes one Run.
type Report struct {
	WorkloadName string
	Ops          int
	Errors       int
	Duration     time.Duration
	AvgLatency   time.Duration
	P50          time.Duration
	P90          time.Duration
	P99          time.Duration
}

// OpsPerSecond returns the achieved throughput.
func (r Report) OpsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Duration.Seconds()
}

// Run drives actions against the target for duration, honoring ctx
// cancellation, and returns a latency/throughput Report. At most
// workload.Concurrency actions are in flight at once.
func (d *Driver) Run(ctx context.Context, duration time.Duration) Report {
	sem := semaphore.NewWeighted(int64(d.workload.Concurrency))
	deadline := time.Now().Add(duration)

	var mu sync.Mutex
	var latencies []time.Duration
	var errCount int

	var wg sync.WaitGroup

	for time.Now().Before(deadline) && ctx.Err() == nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		d.workloadMu.Lock()
		action, payload, seed, existing := d.workload.NextAction()
		d.workloadMu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			start := time.Now()
			var opErr error
			switch action {
			case ActionWrite:
				externalID, err := d.target.Write(ctx, payload)
				opErr = err
				if err == nil {
					d.workloadMu.Lock()
					d.workload.PushFile(seed, externalID)
					d.workloadMu.Unlock()
				}
			case ActionRead:
				n, err := d.target.Read(ctx, existing.externalID)
				opErr = err
				if err == nil && n != payload.Len() {
					opErr = fmt.Errorf("stresstest: read %s: got %d bytes, want %d", existing.externalID, n, payload.Len())
				}
			}
			elapsed := time.Since(start)

			mu.Lock()
			latencies = append(latencies, elapsed)
			if opErr != nil {
				errCount++
			}
			mu.Unlock()
		}()
	}

	wg.Wait()

	return buildReport(d.workload.Name, latencies, errCount, duration)
}

func buildReport(name string, latencies []time.Duration, errCount int, duration time.Duration) Report {
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := Report{
		WorkloadName: name,
		Ops:          len(latencies),
		Errors:       errCount,
		Duration:     duration,
	}
	if len(latencies) == 0 {
		return report
	}

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	report.AvgLatency = sum / time.Duration(len(latencies))
	report.P50 = percentile(latencies, 0.50)
	report.P90 = percentile(latencies, 0.90)
	report.P99 = percentile(latencies, 0.99)
	return report
}

// percentile assumes sorted is already sorted ascending.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// String renders a one-line human-readable summary.
func (r Report) String() string {
	return fmt.Sprintf(
		"%s: %d ops (%d errors) in %s => %.1f ops/s; avg %s, p50 %s, p90 %s, p99 %s",
		r.WorkloadName, r.Ops, r.Errors, r.Duration, r.OpsPerSecond(),
		r.AvgLatency, r.P50, r.P90, r.P99,
	)
}
