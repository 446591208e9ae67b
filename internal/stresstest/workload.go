// Package stresstest implements a semaphore-bounded load generator
// that drives upload/read/associate actions against a Target, sampling
// payload sizes from a log-normal distribution and read-back
// candidates with a Zipf skew toward recently written files.
package stresstest

import (
	"io"
	"math"
	"math/rand"
)

// Action is the kind of operation a Workload samples next.
type Action int

const (
	ActionWrite Action = iota
	ActionRead
)

// pendingFile is a written file the workload can sample for read-back.
type pendingFile struct {
	seed       int64
	externalID string
}

// Workload samples a stream of write/read actions with log-normal
// payload sizes and a Zipf-skewed read-back preference for recently
// written files.
type Workload struct {
	Name        string
	Concurrency int

	rng *rand.Rand

	p50Size float64
	sigma   float64

	writeWeight int
	readWeight  int

	existing []pendingFile
}

// WorkloadConfig parameterizes NewWorkload.
type WorkloadConfig struct {
	Name        string
	Concurrency int
	Seed        int64

	P50Size uint64
	P99Size uint64

	WriteWeight int
	ReadWeight  int
}

// NewWorkload builds a Workload from cfg. The log-normal parameters
// are derived from the target p50/p99 sizes: mu = ln(p50),
// sigma = (ln(p99) - mu) / 2.3263, the z-score of the 99th percentile
// of a standard normal.
func NewWorkload(cfg WorkloadConfig) *Workload {
	if cfg.WriteWeight == 0 && cfg.ReadWeight == 0 {
		cfg.WriteWeight, cfg.ReadWeight = 1, 1
	}
	p50 := math.Log(float64(cfg.P50Size))
	p99 := math.Log(float64(cfg.P99Size))
	sigma := (p99 - p50) / 2.3263

	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Workload{
		Name:        cfg.Name,
		Concurrency: cfg.Concurrency,
		rng:         rng,
		p50Size:     p50,
		sigma:       sigma,
		writeWeight: cfg.WriteWeight,
		readWeight:  cfg.ReadWeight,
	}
}

// NextAction samples the next action. When there are no existing
// files to read back, it always returns a write. seed identifies the
// sampled payload: callers performing a write must PushFile(seed, ...)
// once the write succeeds, so it can later be sampled for read-back.
func (w *Workload) NextAction() (action Action, payload *RandReader, seed int64, existing pendingFile) {
	if len(w.existing) == 0 || w.rng.Intn(w.writeWeight+w.readWeight) < w.writeWeight {
		seed = w.rng.Int63()
		return ActionWrite, newRandReader(seed, w.sampleSizeFor(seed)), seed, pendingFile{}
	}

	idx := w.sampleReadback()
	f := w.existing[idx]
	w.existing = append(w.existing[:idx], w.existing[idx+1:]...)
	return ActionRead, newRandReader(f.seed, w.sampleSizeFor(f.seed)), f.seed, f
}

// sampleSizeFor deterministically reproduces the size written for a
// given seed, so a read-back validates against the same length a
// write produced without having to remember it separately.
func (w *Workload) sampleSizeFor(seed int64) int64 {
	r := rand.New(rand.NewSource(seed))
	size := math.Exp(w.p50Size + w.sigma*r.NormFloat64())
	if size < 0 {
		size = 0
	}
	return int64(size)
}

// sampleReadback picks an index into existing, skewed toward the most
// recently appended entries via a Zipf distribution.
func (w *Workload) sampleReadback() int {
	n := uint64(len(w.existing))
	if n == 1 {
		return 0
	}
	zipf := rand.NewZipf(w.rng, 2.0, 1.0, n-1)
	offset := zipf.Uint64()
	idx := int(n-1) - int(offset)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(w.existing) {
		idx = len(w.existing) - 1
	}
	return idx
}

// PushFile registers a newly written file so future actions may read
// it back.
func (w *Workload) PushFile(seed int64, externalID string) {
	w.existing = append(w.existing, pendingFile{seed: seed, externalID: externalID})
}

// RandReader is a deterministic pseudo-random byte stream of a fixed
// length, seeded so the same seed always reproduces the same bytes.
type RandReader struct {
	rng  *rand.Rand
	left int64
}

func newRandReader(seed int64, length int64) *RandReader {
	return &RandReader{rng: rand.New(rand.NewSource(seed)), left: length}
}

// Len reports the remaining unread byte count.
func (r *RandReader) Len() int64 { return r.left }

func (r *RandReader) Read(p []byte) (int, error) {
	if r.left <= 0 {
		return 0, io.EOF
	}
	n := int64(len(p))
	if n > r.left {
		n = r.left
	}
	for i := int64(0); i < n; i++ {
		p[i] = byte(r.rng.Intn(256))
	}
	r.left -= n
	return int(n), nil
}
