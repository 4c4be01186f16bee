package mcptools

import (
	"github.com/dusk-indust/convforge/internal/conversation"
	"github.com/dusk-indust/convforge/internal/dataset"
	"github.com/dusk-indust/convforge/internal/status"
)

// ValidateConversationInput is the input for the validate_conversation tool.
type ValidateConversationInput struct {
	Text             string `json:"text" jsonschema:"raw model output expected to be one JSON conversation object"`
	FirstSpeakerMode string `json:"firstSpeakerMode,omitempty" jsonschema:"fixed or infer (default: configured mode)"`
}

// ValidateConversationOutput is the result of the validate_conversation tool.
type ValidateConversationOutput struct {
	Valid       bool                       `json:"valid"`
	NeedsRepair bool                       `json:"needsRepair"`
	Reason      string                     `json:"reason,omitempty"`
	Turns       int                        `json:"turns"`
	Normalized  *conversation.Conversation `json:"normalized,omitempty"`
}

// FilterConversationInput is the input for the filter_conversation tool.
type FilterConversationInput struct {
	Conversations []conversation.Turn `json:"conversations" jsonschema:"turns to scan, each with from and value"`
	Phrases       []string            `json:"phrases,omitempty" jsonschema:"exclusion phrases (default: configured list)"`
}

// FilterConversationOutput is the result of the filter_conversation tool.
type FilterConversationOutput struct {
	Allowed bool   `json:"allowed"`
	Phrase  string `json:"phrase,omitempty"`
}

// DatasetStatusInput is the input for the dataset_status tool.
type DatasetStatusInput struct {
	Experiences string `json:"experiences,omitempty" jsonschema:"seed scenario directory (default: configured path)"`
	Dataset     string `json:"dataset,omitempty" jsonschema:"dataset JSONL file (default: configured output file)"`
}

// DatasetStatusOutput is the result of the dataset_status tool.
type DatasetStatusOutput struct {
	Scenarios        []status.ScenarioInfo `json:"scenarios"`
	TotalGenerations int                   `json:"totalGenerations"`
	Dataset          dataset.Stats         `json:"dataset"`
	Issues           []dataset.Issue       `json:"issues,omitempty"`
}

// GenerateBatchInput is the input for the generate_batch tool.
type GenerateBatchInput struct {
	Experiences string `json:"experiences,omitempty" jsonschema:"seed scenario directory (default: configured path)"`
	Concurrency int    `json:"concurrency,omitempty" jsonschema:"maximum in-flight generations (default: configured limit)"`
	MaxAttempts int    `json:"maxAttempts,omitempty" jsonschema:"total model calls allowed per generation (default: configured value)"`
}

// GenerateBatchOutput is the result of the generate_batch tool.
type GenerateBatchOutput struct {
	BatchID   string `json:"batchId"`
	Total     int    `json:"total"`
	Persisted int    `json:"persisted"`
	Discarded int    `json:"discarded"`
	Exhausted int    `json:"exhausted"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Calls     int    `json:"calls"`
	Output    string `json:"output"`
	Message   string `json:"message,omitempty"`
}
