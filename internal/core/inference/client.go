package inference

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foodtube/internal/core/youtube"
	"foodtube/internal/logger"
	"foodtube/internal/platform/eino"
	"foodtube/prompts"

	gemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
)

const (
	descriptionLimit = 200
	commentLimit     = 300
	noComment        = "(none)"
)

// Generator is the part of an eino chat model the client needs.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Client runs the classify and extract stages in fixed-size batches. A batch
// that cannot be answered degrades to a safe default instead of failing the
// caller; only context cancellation is returned as an error.
type Client struct {
	gen     Generator
	prompts *prompts.SystemPrompts
	opts    Options
	log     *logger.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

func NewClient(gen Generator, opts Options) *Client {
	return &Client{
		gen:     gen,
		prompts: prompts.NewSystemPrompts(),
		opts:    opts.withDefaults(),
		log:     logger.New("Inference"),
		sleep:   sleepCtx,
		jitter:  randomJitter,
	}
}

// Classify decides for every video whether it is about a restaurant. Videos
// of a failed batch come back as not-a-restaurant.
func (c *Client) Classify(ctx context.Context, videos []youtube.Video) ([]ClassificationResult, error) {
	results := make([]ClassificationResult, 0, len(videos))
	err := c.forEachBatch(ctx, len(videos), c.opts.ClassifyBatchSize, func(start, end, index, total int) error {
		batch := videos[start:end]

		lines := make([]string, len(batch))
		for i, v := range batch {
			lines[i] = fmt.Sprintf("[%s] Title: %s\nDescription: %s", v.ID, v.Title, truncate(v.Description, descriptionLimit))
		}

		label := fmt.Sprintf("classify batch %d/%d", index, total)
		c.log.LogInfof("%s (%d videos)", label, len(batch))

		content, err := c.call(ctx, label, c.prompts.Classify, batchVars(lines, index, total), prompts.ClassifyResponseSchema())
		var parsed []ClassificationResult
		if err == nil {
			parsed, err = parseClassification(content)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.LogErrorf("%s failed, marking %d videos as non-restaurant: %v", label, len(batch), err)
			for _, v := range batch {
				results = append(results, ClassificationResult{VideoID: v.ID, IsRestaurant: false})
			}
			return nil
		}

		kept := 0
		for _, r := range parsed {
			if r.IsRestaurant {
				kept++
			}
		}
		c.log.LogSuccessf("%s done: %d/%d restaurant videos", label, kept, len(batch))
		results = append(results, parsed...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Extract pulls restaurant triples out of every input. Each video of a failed
// batch yields a single placeholder entry with every field set to Unknown.
func (c *Client) Extract(ctx context.Context, inputs []ExtractInput) ([]ExtractionResult, error) {
	results := make([]ExtractionResult, 0, len(inputs))
	err := c.forEachBatch(ctx, len(inputs), c.opts.ExtractBatchSize, func(start, end, index, total int) error {
		batch := inputs[start:end]

		lines := make([]string, len(batch))
		for i, in := range batch {
			comment := noComment
			if strings.TrimSpace(in.TopComment) != "" {
				comment = truncate(in.TopComment, commentLimit)
			}
			lines[i] = fmt.Sprintf("[%s]\nTitle: %s\nTop comment: %s", in.Video.ID, in.Video.Title, comment)
		}

		label := fmt.Sprintf("extract batch %d/%d", index, total)
		c.log.LogInfof("%s (%d videos)", label, len(batch))

		content, err := c.call(ctx, label, c.prompts.Extract, batchVars(lines, index, total), prompts.ExtractResponseSchema())
		var parsed []ExtractionResult
		if err == nil {
			parsed, err = parseExtraction(content)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.LogErrorf("%s failed, writing placeholders for %d videos: %v", label, len(batch), err)
			for _, in := range batch {
				results = append(results, placeholder(in.Video.ID))
			}
			return nil
		}

		found := 0
		for _, r := range parsed {
			found += len(r.Restaurants)
		}
		c.log.LogSuccessf("%s done: %d restaurants", label, found)
		results = append(results, parsed...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) forEachBatch(ctx context.Context, n, size int, fn func(start, end, index, total int) error) error {
	total := (n + size - 1) / size
	for start, index := 0, 1; start < n; start, index = start+size, index+1 {
		if start > 0 {
			if err := c.sleep(ctx, c.opts.BatchPause); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(start, min(start+size, n), index, total); err != nil {
			return err
		}
	}
	return nil
}

// call formats the template and asks the model, retrying transient failures.
func (c *Client) call(ctx context.Context, label string, tpl prompt.ChatTemplate, vars map[string]any, responseSchema *jsonschema.Schema) (string, error) {
	messages, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}

	return c.withRetry(ctx, label, func() (string, error) {
		resp, err := c.gen.Generate(ctx, messages,
			model.WithTemperature(c.opts.Temperature),
			gemini.WithResponseJSONSchema(responseSchema),
		)
		if err != nil {
			return "", err
		}
		if resp == nil {
			return "", fmt.Errorf("empty model response")
		}
		if usage := eino.ExtractTokenUsage(resp); usage.TotalTokens > 0 {
			c.log.LogDebugf("%s used %d tokens (%d in, %d out)", label, usage.TotalTokens, usage.InputTokens, usage.OutputTokens)
		}
		return resp.Content, nil
	})
}

func batchVars(lines []string, index, total int) map[string]any {
	return map[string]any{
		prompts.VarVideoList:  strings.Join(lines, "\n---\n"),
		prompts.VarBatchIndex: index,
		prompts.VarBatchTotal: total,
	}
}

func placeholder(videoID string) ExtractionResult {
	return ExtractionResult{
		VideoID:     videoID,
		Restaurants: []RestaurantInfo{{Name: Unknown, Region: Unknown, FoodType: Unknown}},
		Degraded:    true,
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
