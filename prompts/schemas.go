package prompts

import (
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func props(pairs ...orderedmap.Pair[string, *jsonschema.Schema]) *orderedmap.OrderedMap[string, *jsonschema.Schema] {
	return orderedmap.New[string, *jsonschema.Schema](
		orderedmap.WithInitialData[string, *jsonschema.Schema](pairs...),
	)
}

func prop(key string, s *jsonschema.Schema) orderedmap.Pair[string, *jsonschema.Schema] {
	return orderedmap.Pair[string, *jsonschema.Schema]{Key: key, Value: s}
}

func resultsEnvelope(item *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     string(schema.Object),
		Required: []string{"results"},
		Properties: props(
			prop("results", &jsonschema.Schema{
				Type:  string(schema.Array),
				Items: item,
			}),
		),
	}
}

// ClassifyResponseSchema forces {"results":[{"videoId","isRestaurant"}]}.
func ClassifyResponseSchema() *jsonschema.Schema {
	return resultsEnvelope(&jsonschema.Schema{
		Type:     string(schema.Object),
		Required: []string{"videoId", "isRestaurant"},
		Properties: props(
			prop("videoId", &jsonschema.Schema{
				Type:        string(schema.String),
				Description: "The id shown in square brackets for the video",
			}),
			prop("isRestaurant", &jsonschema.Schema{
				Type:        string(schema.Boolean),
				Description: "True when the video visits or reviews a specific place to eat or drink",
			}),
		),
	})
}

// ExtractResponseSchema forces
// {"results":[{"videoId","restaurants":[{"name","region","foodType"}]}]}.
func ExtractResponseSchema() *jsonschema.Schema {
	restaurant := &jsonschema.Schema{
		Type:     string(schema.Object),
		Required: []string{"name", "region", "foodType"},
		Properties: props(
			prop("name", &jsonschema.Schema{Type: string(schema.String), Description: "Restaurant name or \"unknown\""}),
			prop("region", &jsonschema.Schema{Type: string(schema.String), Description: "City or district or \"unknown\""}),
			prop("foodType", &jsonschema.Schema{Type: string(schema.String), Description: "Kind of food served or \"unknown\""}),
		),
	}
	return resultsEnvelope(&jsonschema.Schema{
		Type:     string(schema.Object),
		Required: []string{"videoId", "restaurants"},
		Properties: props(
			prop("videoId", &jsonschema.Schema{Type: string(schema.String)}),
			prop("restaurants", &jsonschema.Schema{Type: string(schema.Array), Items: restaurant}),
		),
	})
}
