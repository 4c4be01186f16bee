package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dusk-indust/convforge/internal/conversation"
	"github.com/dusk-indust/convforge/internal/dataset"
	"github.com/dusk-indust/convforge/internal/scenario"
)

// DatasetExport is the top-level JSON export structure.
type DatasetExport struct {
	Name          string                      `json:"name"`
	ExportedAt    string                      `json:"exportedAt"`
	Count         int                         `json:"count"`
	Turns         int                         `json:"turns"`
	Skipped       int                         `json:"skipped,omitempty"`
	Conversations []conversation.Conversation `json:"conversations"`
}

// Dataset builds a DatasetExport from the JSONL file at path. Lines the
// validator rejects are counted in Skipped and left out.
func Dataset(path string, v conversation.Validator) (*DatasetExport, error) {
	convs, skipped, err := dataset.ReadAll(path, v)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	export := &DatasetExport{
		Name:          filepath.Base(path),
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		Count:         len(convs),
		Skipped:       skipped,
		Conversations: convs,
	}
	if export.Conversations == nil {
		export.Conversations = []conversation.Conversation{}
	}
	for _, c := range convs {
		export.Turns += c.Len()
	}
	return export, nil
}

// Seeds converts each scenario's seed dialogue to a ShareGPT conversation,
// skipping scenarios with an empty dialogue.
func Seeds(scenarios []scenario.Scenario) []conversation.Conversation {
	var out []conversation.Conversation
	for _, s := range scenarios {
		if len(s.Dialogue) == 0 {
			continue
		}
		out = append(out, s.ShareGPT())
	}
	return out
}
