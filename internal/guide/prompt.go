// Package guide is the guide-generation service client. The prompt it
// sends is a fixed contract: the role framing, the task instructions
// and the ordering of the embedded fields materially affect the remote
// model's output and must be reproduced exactly.
package guide

import "fmt"

// Format selects the kind of document the service produces.
type Format string

const (
	FormatGuide   Format = "guide"
	FormatArticle Format = "article"
)

// ParseFormat converts a user-supplied string into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatGuide, FormatArticle:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected guide or article)", s)
	}
}

// SystemRole is the fixed role framing for the generation model.
const SystemRole = "You are an expert technical writer. You watch screen recordings " +
	"and turn what happens in them, together with the spoken transcript, into clear, " +
	"accurate written documentation. You never invent steps that do not appear in the " +
	"recording."

// Task instructions per output format.
const (
	taskGuide = "Write a step-by-step how-to guide for the workflow shown in the " +
		"recording. Number every step, name the exact UI elements being used, and keep " +
		"each step to a single action. Start with a one-paragraph summary of what the " +
		"guide achieves. Output Markdown."

	taskArticle = "Write a knowledge-base article covering the topic demonstrated in " +
		"the recording. Organize it with descriptive headings, explain the why behind " +
		"each part of the workflow, and close with a short troubleshooting section if " +
		"the recording surfaces any pitfalls. Output Markdown."
)

// Prompt is the structured prompt sent to the generation service.
// Field order is part of the wire contract; do not reorder.
type Prompt struct {
	SystemRole       string `json:"system_role"`
	TaskInstructions string `json:"task_instructions"`
	Transcript       string `json:"transcript"`
	VideoDescription string `json:"video_description"`
	UserInstructions string `json:"user_instructions"`
	Format           Format `json:"format"`
}

// PromptInput carries the per-request values embedded into the fixed
// template.
type PromptInput struct {
	Transcript       string
	VideoDescription string
	UserInstructions string
	Format           Format
}

// BuildPrompt renders the fixed prompt template for one request.
func BuildPrompt(in PromptInput) Prompt {
	task := taskGuide
	if in.Format == FormatArticle {
		task = taskArticle
	}
	return Prompt{
		SystemRole:       SystemRole,
		TaskInstructions: task,
		Transcript:       in.Transcript,
		VideoDescription: in.VideoDescription,
		UserInstructions: in.UserInstructions,
		Format:           in.Format,
	}
}
