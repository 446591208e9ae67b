// Package chunk implements the streaming content-defined chunking
// pipeline: given a chunking strategy and a byte stream, it produces
// an ordered sequence of chunks whose concatenation reproduces the
// input exactly.
package chunk

// Kind discriminates the three chunking strategies. Strategy is
// represented as a tagged variant carrying parameters, dispatched on
// at the top of the upload path, rather than as a per-strategy
// dynamic-dispatch interface — the branches are few and stable.
type Kind int

const (
	// KindNone drains the stream into memory and emits it as one chunk.
	KindNone Kind = iota
	// KindFixed cuts the stream into fixed-size blocks.
	KindFixed
	// KindCdc applies FastCDC-2020 content-defined chunking.
	KindCdc
)

const (
	oneMiB = 1 << 20
	oneGiB = 1 << 30
)

// Default FastCDC parameters.
const (
	DefaultMinSize = 1 * oneMiB
	DefaultAvgSize = 2 * oneMiB
	DefaultMaxSize = 4 * oneMiB
)

// DefaultMaxWholeFile bounds how large a KindNone upload may be before
// it is read entirely into memory. This limit must be at least
// segment_size; the default segment size is 1 GiB, so this defaults to
// the same.
const DefaultMaxWholeFile = oneGiB

// Strategy selects how an incoming byte stream is split into chunks.
type Strategy struct {
	Kind Kind

	// FixedSize is the block length for KindFixed.
	FixedSize int

	// Min, Avg, Max are the FastCDC-2020 boundary parameters for
	// KindCdc. Constraint: Min <= Avg <= Max, all positive.
	Min, Avg, Max int

	// MaxWholeFile bounds KindNone's in-memory buffer. Zero means
	// DefaultMaxWholeFile.
	MaxWholeFile int64
}

// None returns the KindNone strategy: the whole input is a single
// chunk.
func None() Strategy {
	return Strategy{Kind: KindNone, MaxWholeFile: DefaultMaxWholeFile}
}

// Fixed returns the KindFixed strategy cutting the stream into blocks
// of exactly n bytes (the final block may be shorter).
func Fixed(n int) Strategy {
	return Strategy{Kind: KindFixed, FixedSize: n}
}

// Cdc returns the KindCdc strategy with explicit FastCDC-2020
// parameters.
func Cdc(min, avg, max int) Strategy {
	return Strategy{Kind: KindCdc, Min: min, Avg: avg, Max: max}
}

// DefaultCdc returns the KindCdc strategy with the standard
// parameters (1 MiB / 2 MiB / 4 MiB).
func DefaultCdc() Strategy {
	return Cdc(DefaultMinSize, DefaultAvgSize, DefaultMaxSize)
}

func (s Strategy) maxWholeFile() int64 {
	if s.MaxWholeFile <= 0 {
		return DefaultMaxWholeFile
	}
	return s.MaxWholeFile
}
