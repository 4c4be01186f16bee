package generator

import (
	"fmt"

	"github.com/dusk-indust/convforge/internal/conversation"
	"github.com/dusk-indust/convforge/internal/llm"
	"github.com/dusk-indust/convforge/internal/scenario"
)

// targetShape is the single-line layout every reply must match.
const targetShape = `{"conversations":[{"from":"human","value":"..."},{"from":"gpt","value":"..."},{"from":"human","value":"..."},{"from":"gpt","value":"..."}]}`

// DefaultGenerateParams are the sampling knobs for the initial request.
func DefaultGenerateParams() llm.SamplingParams {
	return llm.SamplingParams{
		MaxTokens:        8192,
		Temperature:      llm.Float(1.1),
		TopP:             llm.Float(0.92),
		FrequencyPenalty: llm.Float(0.6),
		PresencePenalty:  llm.Float(0.6),
	}
}

// DefaultReformatParams are the sampling knobs for repair requests. They run
// cooler than generation so the model copies rather than invents.
func DefaultReformatParams() llm.SamplingParams {
	return llm.SamplingParams{
		MaxTokens:   8192,
		Temperature: llm.Float(1.0),
		TopP:        llm.Float(0.9),
	}
}

// GenerationPrompt asks for a new conversation inspired by s.
func GenerationPrompt(s scenario.Scenario, first conversation.Speaker) string {
	return fmt.Sprintf(`Write a new, original interaction inspired by the description and sample interaction below.

description: %s

sample interaction:
%s

Explore the same themes from a fresh angle: new situations, hypotheticals or twists rather than a retelling of the sample. Describe setting, actions and feelings vividly. Wrap actions, events and feelings in asterisks, for example "*leans back, thinking* That is a good question."

Return the interaction as one JSON object whose "conversations" key holds an array of turns. Each turn has "from" (either "human" or "gpt") and "value". Speakers must strictly alternate, the first turn comes from "%s", and the last turn comes from "gpt". Do not prefix dialogue with character names.

Shape (do not reuse its content):
%s

Output only the JSON object.`, s.Description, s.Flatten(), first, targetShape)
}

// ReformatPrompt asks the model to re-emit previous verbatim as one
// well-formed line of the target shape.
func ReformatPrompt(previous string) string {
	return fmt.Sprintf(`You turn text into perfect single-line JSON. Here is an interaction that was meant to be one JSON line:

%s

Re-emit it as exactly one line of JSON, without newlines or indentation, matching this structure:
%s

Keep the number, order and wording of the turns. Escape quotation marks and special characters correctly. Output only the JSON line.`, previous, targetShape)
}
