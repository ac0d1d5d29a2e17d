package stream

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blockingStream yields the given chunks, then waits for ctx like a
// provider stream waiting on the network.
func blockingStream(ctx context.Context, first []Chunk, closed *atomic.Bool) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		defer closed.Store(true)
		for _, c := range first {
			if !yield(c, nil) {
				return
			}
		}
		<-ctx.Done()
		yield(Chunk{}, ctx.Err())
	}
}

func TestRun_AccumulatesChunks(t *testing.T) {
	var deltas, partials []string

	res, err := Run(context.Background(),
		FromSlice(Chunk{Text: "Hello"}, Chunk{Text: ", "}, Chunk{}, Chunk{Text: "world", TotalTokens: 17}),
		func(delta, acc string) {
			deltas = append(deltas, delta)
			partials = append(partials, acc)
		})

	require.NoError(t, err)
	assert.Equal(t, "Hello, world", res.Text)
	assert.Equal(t, 17, res.TokensUsed)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, []string{"Hello", ", ", "world"}, deltas)
	assert.Equal(t, []string{"Hello", "Hello, ", "Hello, world"}, partials)
}

func TestRun_EmptyStream(t *testing.T) {
	res, err := Run(context.Background(), FromSlice(), nil)

	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Zero(t, res.Chunks)
}

func TestRun_StreamError(t *testing.T) {
	boom := errors.New("connection reset")
	seq := func(yield func(Chunk, error) bool) {
		if !yield(Chunk{Text: "partial"}, nil) {
			return
		}
		yield(Chunk{}, boom)
	}

	res, err := Run(context.Background(), seq, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", res.Text)
}

func TestRun_ImmediateError(t *testing.T) {
	_, err := Run(context.Background(), Error(errors.New("quota")), nil)

	assert.EqualError(t, err, "stream interrupted after 0 chunks: quota")
}

func TestRun_CancelDiscardsRemainingChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closed atomic.Bool
	var calls atomic.Int32
	seq := blockingStream(ctx, []Chunk{{Text: "one"}, {Text: "two"}}, &closed)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := Run(ctx, seq, func(string, string) { calls.Add(1) })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, int32(2), calls.Load())
	assert.Eventually(t, closed.Load, time.Second, 5*time.Millisecond, "provider stream not closed")
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false

	_, err := Run(ctx, FromSlice(Chunk{Text: "x"}), func(string, string) { called = true })

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRun_CallbackCancelStopsFurtherCallbacks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	_, err := Run(ctx, FromSlice(Chunk{Text: "a"}, Chunk{Text: "b"}, Chunk{Text: "c"}), func(delta, _ string) {
		got = append(got, delta)
		cancel()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, got)
}
