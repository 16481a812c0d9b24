package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"foodtube/internal/core/youtube"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   func(call int, prompt string) (string, error)
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	prompt := input[len(input)-1].Content
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	content, err := f.reply(call, prompt)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// newTestClient records sleeps instead of waiting.
func newTestClient(gen Generator, tune func(*Options)) (*Client, *[]time.Duration) {
	opts := DefaultOptions()
	if tune != nil {
		tune(&opts)
	}
	c := NewClient(gen, opts)
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	c.jitter = func(time.Duration) time.Duration { return 0 }
	return c, &slept
}

func videos(ids ...string) []youtube.Video {
	out := make([]youtube.Video, len(ids))
	for i, id := range ids {
		out[i] = youtube.Video{ID: id, Title: "title " + id, Description: "desc " + id}
	}
	return out
}

// idsIn returns the bracketed ids of a rendered video list.
func idsIn(prompt string) []string {
	var ids []string
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "[") {
			if end := strings.Index(line, "]"); end > 0 {
				ids = append(ids, line[1:end])
			}
		}
	}
	return ids
}

func TestClassifyBatchesAndPauses(t *testing.T) {
	gen := &fakeModel{reply: func(_ int, prompt string) (string, error) {
		var items []string
		for _, id := range idsIn(prompt) {
			items = append(items, fmt.Sprintf(`{"videoId":%q,"isRestaurant":%t}`, id, strings.HasSuffix(id, "0")))
		}
		return `{"results":[` + strings.Join(items, ",") + `]}`, nil
	}}
	c, slept := newTestClient(gen, func(o *Options) { o.ClassifyBatchSize = 30 })

	in := make([]string, 65)
	for i := range in {
		in[i] = fmt.Sprintf("v%d", i)
	}
	res, err := c.Classify(context.Background(), videos(in...))
	require.NoError(t, err)

	assert.Equal(t, 3, gen.callCount())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, *slept)
	assert.Len(t, res, 65)
	assert.Len(t, idsIn(gen.prompts[2]), 5)
	assert.Contains(t, gen.prompts[0], "Batch 1 of 3")
}

func TestClassifyDescriptionTruncated(t *testing.T) {
	gen := &fakeModel{reply: func(int, string) (string, error) { return `{"results":[]}`, nil }}
	c, _ := newTestClient(gen, nil)

	v := youtube.Video{ID: "a", Title: "t", Description: strings.Repeat("x", 250) + "TAIL"}
	_, err := c.Classify(context.Background(), []youtube.Video{v})
	require.NoError(t, err)
	assert.NotContains(t, gen.prompts[0], "TAIL")
	assert.Contains(t, gen.prompts[0], strings.Repeat("x", 200))
}

func TestClassifyRetriesTransientThenSucceeds(t *testing.T) {
	gen := &fakeModel{reply: func(call int, _ string) (string, error) {
		if call <= 2 {
			return "", errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED")
		}
		return "```json\n{\"results\":[{\"videoId\":\"a\",\"isRestaurant\":true}]}\n```", nil
	}}
	c, slept := newTestClient(gen, nil)

	res, err := c.Classify(context.Background(), videos("a"))
	require.NoError(t, err)
	assert.Equal(t, []ClassificationResult{{VideoID: "a", IsRestaurant: true}}, res)
	assert.Equal(t, 3, gen.callCount())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *slept)
}

func TestClassifyDegradesAfterRetryCap(t *testing.T) {
	gen := &fakeModel{reply: func(int, string) (string, error) {
		return "", errors.New("503 Service Unavailable")
	}}
	c, slept := newTestClient(gen, nil)

	res, err := c.Classify(context.Background(), videos("a", "b", "c"))
	require.NoError(t, err)

	// one attempt plus three retries
	assert.Equal(t, 4, gen.callCount())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *slept)
	require.Len(t, res, 3)
	for _, r := range res {
		assert.False(t, r.IsRestaurant)
	}
}

func TestClassifyPermanentErrorNotRetried(t *testing.T) {
	gen := &fakeModel{reply: func(int, string) (string, error) {
		return "", errors.New("400 invalid argument")
	}}
	c, slept := newTestClient(gen, nil)

	res, err := c.Classify(context.Background(), videos("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, gen.callCount())
	assert.Empty(t, *slept)
	assert.Equal(t, []ClassificationResult{{VideoID: "a"}}, res)
}

func TestClassifyMalformedOutputDegrades(t *testing.T) {
	for name, body := range map[string]string{
		"not json":        "sure, here you go",
		"missing results": `{"items":[]}`,
		"wrong type":      `{"results":[{"videoId":"a","isRestaurant":"yes"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			gen := &fakeModel{reply: func(int, string) (string, error) { return body, nil }}
			c, _ := newTestClient(gen, nil)

			res, err := c.Classify(context.Background(), videos("a", "b"))
			require.NoError(t, err)
			assert.Equal(t, 1, gen.callCount())
			assert.Equal(t, []ClassificationResult{{VideoID: "a"}, {VideoID: "b"}}, res)
		})
	}
}

func TestClassifyPartialAnswerPassedThrough(t *testing.T) {
	gen := &fakeModel{reply: func(int, string) (string, error) {
		return `{"results":[{"videoId":"a","isRestaurant":true},{"videoId":"b","isRestaurant":false}]}`, nil
	}}
	c, _ := newTestClient(gen, nil)

	res, err := c.Classify(context.Background(), videos("a", "b", "c"))
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestExtractPromptAndParsing(t *testing.T) {
	gen := &fakeModel{reply: func(int, string) (string, error) {
		return `{"results":[
			{"videoId":"a","restaurants":[{"name":"Kim's BBQ","region":"Seoul","foodType":"Korean BBQ"}]},
			{"videoId":"b","restaurants":null}]}`, nil
	}}
	c, _ := newTestClient(gen, nil)

	res, err := c.Extract(context.Background(), []ExtractInput{
		{Video: youtube.Video{ID: "a", Title: "A"}, TopComment: strings.Repeat("y", 310) + "TAIL"},
		{Video: youtube.Video{ID: "b", Title: "B"}},
	})
	require.NoError(t, err)

	assert.Contains(t, gen.prompts[0], "Top comment: (none)")
	assert.NotContains(t, gen.prompts[0], "TAIL")
	require.Len(t, res, 2)
	assert.Equal(t, []RestaurantInfo{{Name: "Kim's BBQ", Region: "Seoul", FoodType: "Korean BBQ"}}, res[0].Restaurants)
	assert.False(t, res[0].Degraded)
	assert.Empty(t, res[1].Restaurants)
}

func TestExtractDegradesToPlaceholders(t *testing.T) {
	gen := &fakeModel{reply: func(int, string) (string, error) {
		return "", errors.New("rate limit exceeded (429)")
	}}
	c, _ := newTestClient(gen, func(o *Options) { o.ExtractBatchSize = 10 })

	in := make([]ExtractInput, 12)
	for i := range in {
		in[i] = ExtractInput{Video: youtube.Video{ID: fmt.Sprintf("v%d", i)}}
	}
	res, err := c.Extract(context.Background(), in)
	require.NoError(t, err)

	// two batches, four attempts each
	assert.Equal(t, 8, gen.callCount())
	require.Len(t, res, 12)
	for i, r := range res {
		assert.Equal(t, in[i].Video.ID, r.VideoID)
		assert.True(t, r.Degraded)
		assert.Equal(t, []RestaurantInfo{{Name: Unknown, Region: Unknown, FoodType: Unknown}}, r.Restaurants)
	}
}

func TestCancelledContextIsReturned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &fakeModel{reply: func(int, string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	c, _ := newTestClient(gen, nil)

	_, err := c.Classify(ctx, videos("a"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyInputMakesNoCalls(t *testing.T) {
	gen := &fakeModel{reply: func(int, string) (string, error) { return `{"results":[]}`, nil }}
	c, _ := newTestClient(gen, nil)

	res, err := c.Classify(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res)
	ext, err := c.Extract(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ext)
	assert.Zero(t, gen.callCount())
}
