package chunk

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jotfs/fastcdc-go"

	"github.com/prn-tf/castore/internal/hashid"
)

// ErrWholeFileTooLarge is returned by Split/Stream under KindNone when
// the input exceeds the strategy's MaxWholeFile bound.
var ErrWholeFileTooLarge = errors.New("chunk: input exceeds whole-file size limit")

// Chunk is one piece of a split file: its bytes, its ChunkId, and its
// ordinal position within the original stream (0 for the first chunk;
// not a byte offset, and not a segment offset - that belongs to the
// chunk index once the chunk is stored).
type Chunk struct {
	Data    []byte
	ID      hashid.ChunkId
	Ordinal int
}

// Chunker splits a byte stream into chunks according to a Strategy.
// A Chunker is immutable and safe for concurrent use across streams.
type Chunker struct {
	strategy Strategy
}

// New returns a Chunker for the given strategy.
func New(strategy Strategy) *Chunker {
	return &Chunker{strategy: strategy}
}

// Split reads r to completion and returns every chunk in order. Use
// Stream instead when the caller wants to start storing chunks before
// the whole file has been read.
func (c *Chunker) Split(r io.Reader) ([]Chunk, error) {
	chunks := make([]Chunk, 0, 8)
	chunkCh, errCh := c.Stream(context.Background(), r)
	for ch := range chunkCh {
		chunks = append(chunks, ch)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return chunks, nil
}

// Stream splits r concurrently with the caller reading from the
// returned channel, mirroring the producer/consumer shape used
// elsewhere in the store for large uploads. The chunk channel is
// closed when the stream ends; the error channel then yields exactly
// one value (nil on success) and is itself closed.
//
// Cancelling ctx stops the split early and the error channel yields
// ctx.Err().
func (c *Chunker) Stream(ctx context.Context, r io.Reader) (<-chan Chunk, <-chan error) {
	chunkCh := make(chan Chunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)
		defer close(errCh)
		errCh <- c.split(ctx, r, chunkCh)
	}()

	return chunkCh, errCh
}

func (c *Chunker) split(ctx context.Context, r io.Reader, out chan<- Chunk) error {
	switch c.strategy.Kind {
	case KindNone:
		return c.splitNone(ctx, r, out)
	case KindFixed:
		return c.splitFixed(ctx, r, out)
	case KindCdc:
		return c.splitCdc(ctx, r, out)
	default:
		return fmt.Errorf("chunk: unknown strategy kind %d", c.strategy.Kind)
	}
}

func (c *Chunker) splitNone(ctx context.Context, r io.Reader, out chan<- Chunk) error {
	limit := c.strategy.maxWholeFile()
	limited := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return fmt.Errorf("chunk: read whole file: %w", err)
	}
	if int64(len(data)) > limit {
		return ErrWholeFileTooLarge
	}
	if len(data) == 0 {
		return nil
	}
	return emit(ctx, out, Chunk{Data: data, ID: hashid.NewChunkId(data), Ordinal: 0})
}

func (c *Chunker) splitFixed(ctx context.Context, r io.Reader, out chan<- Chunk) error {
	if c.strategy.FixedSize <= 0 {
		return fmt.Errorf("chunk: fixed chunk size must be positive, got %d", c.strategy.FixedSize)
	}
	buf := make([]byte, c.strategy.FixedSize)
	ordinal := 0
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if sendErr := emit(ctx, out, Chunk{Data: data, ID: hashid.NewChunkId(data), Ordinal: ordinal}); sendErr != nil {
				return sendErr
			}
			ordinal++
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chunk: read fixed block: %w", err)
		}
	}
}

func (c *Chunker) splitCdc(ctx context.Context, r io.Reader, out chan<- Chunk) error {
	opts := fastcdc.Options{
		AverageSize: c.strategy.Avg,
		MinSize:     c.strategy.Min,
		MaxSize:     c.strategy.Max,
	}
	chunker, err := fastcdc.NewChunker(r, opts)
	if err != nil {
		return fmt.Errorf("chunk: init fastcdc: %w", err)
	}

	ordinal := 0
	for {
		fc, err := chunker.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("chunk: fastcdc boundary: %w", err)
		}

		// fastcdc-go reuses its internal buffer across calls to Next.
		data := make([]byte, len(fc.Data))
		copy(data, fc.Data)

		if sendErr := emit(ctx, out, Chunk{Data: data, ID: hashid.NewChunkId(data), Ordinal: ordinal}); sendErr != nil {
			return sendErr
		}
		ordinal++
	}
}

func emit(ctx context.Context, out chan<- Chunk, c Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case out <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
