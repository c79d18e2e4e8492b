package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"
)

type fakeContentEmbedder struct {
	values   []float32
	err      error
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	lastDims *int32
	mu       sync.Mutex
}

func (f *fakeContentEmbedder) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	if config != nil {
		f.mu.Lock()
		f.lastDims = config.OutputDimensionality
		f.mu.Unlock()
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: f.values}},
	}, nil
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestEmbedReturnsVector(t *testing.T) {
	fake := &fakeContentEmbedder{values: []float32{0.1, 0.2, 0.3}}
	client := newGeminiEmbeddingClient(fake, EmbeddingOptions{Model: "m", Dimensions: 3}, nil)

	got := client.Embed(context.Background(), "backend engineer")

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got)
	require.NotNil(t, fake.lastDims)
	assert.Equal(t, int32(3), *fake.lastDims)
}

func TestEmbedFailuresReturnEmptyVector(t *testing.T) {
	tests := []struct {
		name    string
		fake    *fakeContentEmbedder
		text    string
		timeout time.Duration
		warning string
	}{
		{name: "empty input", fake: &fakeContentEmbedder{values: []float32{1}}, text: "   ", warning: "skipping embedding of empty text"},
		{name: "backend error", fake: &fakeContentEmbedder{err: errors.New("503")}, text: "x", warning: "failed to generate embedding"},
		{name: "empty response", fake: &fakeContentEmbedder{}, text: "x", warning: "empty embedding result"},
		{name: "wrong dimension", fake: &fakeContentEmbedder{values: []float32{1, 2}}, text: "x", warning: "embedding dimension mismatch"},
		{name: "timeout", fake: &fakeContentEmbedder{values: []float32{1, 2, 3}, delay: time.Second}, text: "x", timeout: 20 * time.Millisecond, warning: "failed to generate embedding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observedLogger()
			client := newGeminiEmbeddingClient(tt.fake, EmbeddingOptions{Model: "m", Dimensions: 3, Timeout: tt.timeout}, log)

			got := client.Embed(context.Background(), tt.text)

			assert.Empty(t, got)
			assert.Equal(t, 1, logs.FilterMessage(tt.warning).Len())
		})
	}
}

func TestEmbedBoundsInFlightCalls(t *testing.T) {
	fake := &fakeContentEmbedder{values: []float32{1}, delay: 20 * time.Millisecond}
	client := newGeminiEmbeddingClient(fake, EmbeddingOptions{Model: "m", MaxInFlight: 2}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Embed(context.Background(), "text")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), fake.calls.Load())
	assert.LessOrEqual(t, fake.peak.Load(), int32(2))
}

func TestNewEmbeddingClientWithoutKey(t *testing.T) {
	log, logs := observedLogger()

	client, err := NewEmbeddingClient(context.Background(), "", EmbeddingOptions{Model: "gemini-embedding-001", Dimensions: 3072}, log)
	require.NoError(t, err)

	assert.Empty(t, client.Embed(context.Background(), "anything"))
	assert.Equal(t, "gemini-embedding-001", client.Model())
	assert.Equal(t, 3072, client.Dimensions())
	assert.Equal(t, 1, logs.FilterMessage("gemini api key is not set, semantic scoring disabled").Len())
}

func TestEmbedTimeoutExcludesQueueing(t *testing.T) {
	fake := &fakeContentEmbedder{values: []float32{1, 2}}
	client := newGeminiEmbeddingClient(fake, EmbeddingOptions{Model: "m", Timeout: 50 * time.Millisecond, MaxInFlight: 1}, nil)

	ctx := context.Background()
	require.NoError(t, client.sem.Acquire(ctx, 1))
	go func() {
		time.Sleep(120 * time.Millisecond)
		client.sem.Release(1)
	}()

	got := client.Embed(ctx, "queued behind another call")

	assert.Equal(t, []float32{1, 2}, got)
	assert.EqualValues(t, 1, fake.calls.Load())
}
