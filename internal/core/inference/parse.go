package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedResponse = errors.New("malformed model response")

type classifyEnvelope struct {
	Results *[]ClassificationResult `json:"results"`
}

type extractEnvelope struct {
	Results *[]ExtractionResult `json:"results"`
}

// cleanJSON strips a surrounding markdown code fence with an optional json
// language tag in any case.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)
	if rest, ok := strings.CutPrefix(content, "```"); ok {
		if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
			rest = rest[4:]
		}
		content = rest
	}
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func parseClassification(content string) ([]ClassificationResult, error) {
	var env classifyEnvelope
	if err := json.Unmarshal([]byte(cleanJSON(content)), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Results == nil {
		return nil, fmt.Errorf("%w: missing results array", ErrMalformedResponse)
	}

	out := make([]ClassificationResult, 0, len(*env.Results))
	for _, r := range *env.Results {
		if r.VideoID == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func parseExtraction(content string) ([]ExtractionResult, error) {
	var env extractEnvelope
	if err := json.Unmarshal([]byte(cleanJSON(content)), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Results == nil {
		return nil, fmt.Errorf("%w: missing results array", ErrMalformedResponse)
	}

	out := make([]ExtractionResult, 0, len(*env.Results))
	for _, r := range *env.Results {
		if r.VideoID == "" {
			continue
		}
		if r.Restaurants == nil {
			r.Restaurants = []RestaurantInfo{}
		}
		out = append(out, r)
	}
	return out, nil
}
