package prompts

import (
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Templates use Go text/template syntax so the JSON examples in the system
// messages need no escaping.

func createClassifyTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(`# Your Role
You are an expert at classifying YouTube videos about restaurants, cafes and bars.

# Your Task
For every video in the list decide whether it visits or reviews a real, specific place to eat or drink.

# Classification Rules
- Visiting or reviewing a specific restaurant, cafe or bar → true
- Delivery food review that names the shop → true
- Recommendation video introducing several places → true
- Mukbang filmed at or about a specific shop → true
- Cooking at home or recipe video → false
- Convenience store or supermarket product review → false
- Food related but no specific place → false
- Not about food at all → false

# Output
Return exactly one result per input video, using the id shown in square brackets.
**IMPORTANT**: Respond with JSON only, in this shape:
{"results": [{"videoId": "VIDEO_ID", "isRestaurant": true}]}`),

		schema.UserMessage(`Batch {{.batch_index}} of {{.batch_total}}

Videos:
{{.video_list}}`),
	)
}

func createExtractTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(`# Your Role
You are a data engineer and food critic who extracts accurate restaurant information from YouTube video data.

# Your Task
Read each video's title and top comment and extract the restaurant name, the region and the type of food.

# Critical Requirements
1. Titles are full of hype words ("best ever", "life-changing"). Ignore them and prefer the real shop name given in the top comment.
2. If the top comment has no restaurant information, infer it from the title.
3. Mark any field you cannot find as "unknown". NEVER guess.
4. One video can feature several restaurants, so always return an array.

# Output
**IMPORTANT**: Respond with JSON only, in this shape:
{"results": [{"videoId": "VIDEO_ID", "restaurants": [{"name": "NAME", "region": "REGION", "foodType": "FOOD_TYPE"}]}]}`),

		schema.UserMessage(`Batch {{.batch_index}} of {{.batch_total}}

Videos:
{{.video_list}}`),
	)
}
