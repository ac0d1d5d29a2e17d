// Package stream drains a streaming model reply into an accumulator while
// handing each delta to the caller.
package stream

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// Chunk is one increment of a streamed reply. TotalTokens is set by
// providers that report usage, usually on the last chunk only.
type Chunk struct {
	Text        string
	TotalTokens int
}

type Result struct {
	Text       string
	TokensUsed int
	Chunks     int
}

// ChunkFunc receives each non-empty delta and the text accumulated so far.
type ChunkFunc func(delta, accumulated string)

type item struct {
	chunk Chunk
	err   error
}

// Run consumes chunks until the sequence ends, yields an error, or ctx is
// done. Iteration happens on a separate goroutine so a blocked provider
// never delays cancellation; returning stops that goroutine's range loop,
// which in turn closes the provider stream.
//
// On cancellation the partial text is discarded and ctx.Err() is returned;
// onChunk is never called after ctx is done. On a stream error the text
// received so far is returned alongside the error.
func Run(ctx context.Context, chunks iter.Seq2[Chunk, error], onChunk ChunkFunc) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	items := make(chan item)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		defer close(items)
		for c, err := range chunks {
			select {
			case items <- item{chunk: c, err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	var (
		acc strings.Builder
		res Result
	)
	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case it, ok := <-items:
			if !ok {
				res.Text = acc.String()
				return res, nil
			}
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			if it.err != nil {
				res.Text = acc.String()
				return res, fmt.Errorf("stream interrupted after %d chunks: %w", res.Chunks, it.err)
			}
			if it.chunk.TotalTokens > 0 {
				res.TokensUsed = it.chunk.TotalTokens
			}
			if it.chunk.Text == "" {
				continue
			}
			res.Chunks++
			acc.WriteString(it.chunk.Text)
			if onChunk != nil {
				onChunk(it.chunk.Text, acc.String())
			}
		}
	}
}

// FromSlice replays fixed chunks as a sequence. Useful for replies that
// were not streamed and for tests.
func FromSlice(chunks ...Chunk) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}

// Error returns a sequence that fails immediately.
func Error(err error) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		yield(Chunk{}, err)
	}
}
