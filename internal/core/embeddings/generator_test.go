package embeddings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

type failingProvider struct {
	calls atomic.Int32
}

func (p *failingProvider) Name() ProviderName { return "failing" }
func (p *failingProvider) Dimensions() int    { return 4 }
func (p *failingProvider) IsAvailable() bool  { return true }

func (p *failingProvider) Embed(context.Context, string) ([]float32, error) {
	p.calls.Add(1)
	return nil, errors.New("model crashed")
}

func TestGenerator_LazyLoadRunsOnce(t *testing.T) {
	var loads atomic.Int32

	release := make(chan struct{})
	gen := NewGenerator(func(context.Context) (Provider, error) {
		loads.Add(1)
		<-release

		return NewMockProvider(8), nil
	}, 8, nil)

	const callers = 16

	var wg sync.WaitGroup

	results := make([][]float32, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			results[i] = gen.Embed(context.Background(), "ransomware hits hospitals")
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())

	for _, r := range results {
		require.Len(t, r, 8)
		assert.Equal(t, results[0], r)
	}

	gen.Embed(context.Background(), "again")
	assert.Equal(t, int32(1), loads.Load())
}

func TestGenerator_LoadFailureIsCached(t *testing.T) {
	var loads atomic.Int32

	gen := NewGenerator(func(context.Context) (Provider, error) {
		loads.Add(1)
		return nil, errors.New("no model file")
	}, 8, nil)

	assert.Nil(t, gen.Embed(context.Background(), "text"))
	assert.Nil(t, gen.Embed(context.Background(), "text"))
	assert.False(t, gen.Available(context.Background()))
	assert.Equal(t, int32(1), loads.Load())
}

func TestGenerator_CancelledFirstCallerDoesNotPoisonLoad(t *testing.T) {
	loader := func(ctx context.Context) (Provider, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return NewMockProvider(4), nil
	}
	gen := NewGenerator(loader, 4, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	gen.Available(cancelled)

	require.True(t, gen.Available(context.Background()))

	vec, err := gen.Generate(context.Background(), "ransomware hits hospitals")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestGenerator_EmptyText(t *testing.T) {
	gen := NewGenerator(StaticLoader(NewMockProvider(8)), 8, nil)

	_, err := gen.Generate(context.Background(), "  \n\t")
	require.ErrorIs(t, err, apperrors.ErrEmptyText)
	assert.Nil(t, gen.Embed(context.Background(), ""))
}

func TestGenerator_Unconfigured(t *testing.T) {
	gen := NewGenerator(nil, 8, nil)

	_, err := gen.Generate(context.Background(), "text")
	require.ErrorIs(t, err, apperrors.ErrNotConfigured)

	gen = NewGenerator(StaticLoader(NewOpenAIProvider(OpenAIConfig{})), 8, nil)
	assert.False(t, gen.Available(context.Background()))
}

func TestGenerator_PadsToDimensions(t *testing.T) {
	gen := NewGenerator(StaticLoader(NewMockProvider(4)), 10, nil)

	vec, err := gen.Generate(context.Background(), "phishing kit")
	require.NoError(t, err)
	require.Len(t, vec, 10)
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0}, vec[4:])
}

func TestGenerator_CircuitOpensAfterFailures(t *testing.T) {
	p := &failingProvider{}
	gen := NewGenerator(StaticLoader(p), 4, nil)

	for i := 0; i < defaultCircuitThreshold+3; i++ {
		assert.Nil(t, gen.Embed(context.Background(), "text"))
	}

	assert.Equal(t, int32(defaultCircuitThreshold), p.calls.Load())
}

func TestArticleText(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		summary string
		tags    []string
		want    string
	}{
		{
			name:    "all parts",
			title:   "Ransomware gang targets hospitals",
			summary: "A new campaign.",
			tags:    []string{"ransomware", " ", "healthcare"},
			want:    "Ransomware gang targets hospitals\n\nA new campaign.\n\nTags: ransomware, healthcare",
		},
		{name: "title only", title: "Title", want: "Title"},
		{name: "no tags line for blank tags", title: "T", tags: []string{"", "  "}, want: "T"},
		{name: "empty", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArticleText(tt.title, tt.summary, tt.tags))
		})
	}
}

func TestMockProvider_SharedWordsAreSimilar(t *testing.T) {
	p := NewMockProvider(64)
	ctx := context.Background()

	a, err := p.Embed(ctx, "ransomware attack on hospitals")
	require.NoError(t, err)
	b, err := p.Embed(ctx, "hospitals hit by ransomware attack")
	require.NoError(t, err)
	c, err := p.Embed(ctx, "quarterly earnings beat expectations")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-5)
	assert.Greater(t, CosineSimilarity(a, b), CosineSimilarity(a, c))
}

func TestPadToTargetDimensions(t *testing.T) {
	assert.Equal(t, []float32{1, 2}, PadToTargetDimensions([]float32{1, 2, 3}, 2))
	assert.Equal(t, []float32{1, 0, 0}, PadToTargetDimensions([]float32{1}, 3))
	assert.Equal(t, []float32{1}, PadToTargetDimensions([]float32{1}, 1))
}
