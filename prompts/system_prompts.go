package prompts

import (
	"github.com/cloudwego/eino/components/prompt"
)

// SystemPrompts holds the chat templates used by the scan pipeline.
type SystemPrompts struct {
	// Stage 1: is this video about a real restaurant visit or review?
	Classify prompt.ChatTemplate

	// Stage 2: pull restaurant name, region and food type out of a video.
	Extract prompt.ChatTemplate
}

// NewSystemPrompts creates and initializes all prompt templates
func NewSystemPrompts() *SystemPrompts {
	return &SystemPrompts{
		Classify: createClassifyTemplate(),
		Extract:  createExtractTemplate(),
	}
}

// Template variable names shared by both templates.
const (
	VarVideoList  = "video_list"
	VarBatchIndex = "batch_index"
	VarBatchTotal = "batch_total"
)
