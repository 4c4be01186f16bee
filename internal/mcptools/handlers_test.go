package mcptools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dusk-indust/convforge/internal/config"
	"github.com/dusk-indust/convforge/internal/conversation"
	"github.com/dusk-indust/convforge/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReply = `{"conversations":[{"from":"human","value":"hi"},{"from":"gpt","value":"hello"},{"from":"human","value":"bye"}]}`

type fixedTransport struct {
	text string
}

func (f fixedTransport) Submit(context.Context, []llm.Message, llm.SamplingParams) (llm.Response, error) {
	return llm.Response{Text: f.text}, nil
}

func newTestService(t *testing.T, transport llm.Transport) (*Service, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.API.Model = "test-model"
	cfg.Path.Experiences = filepath.Join(root, "experiences")
	cfg.Path.Output = filepath.Join(root, "output")

	require.NoError(t, os.MkdirAll(cfg.Path.Experiences, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Path.Experiences, "harbor.yaml"), []byte(`
description: A fishing harbor at dawn
dialogue:
  - speaker: human
    message: Any luck today?
  - speaker: fisher
    message: The sea was generous.
generations: 2
`), 0o644))
	return NewService(&cfg, transport, nil), &cfg
}

func TestValidateConversation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		input       ValidateConversationInput
		valid       bool
		turns       int
		reasonMatch string
	}{
		{
			name:  "valid with trailing human dropped",
			input: ValidateConversationInput{Text: "  " + validReply + "\n"},
			valid: true,
			turns: 2,
		},
		{
			name:        "missing end marker",
			input:       ValidateConversationInput{Text: `{"conversations":[]`},
			reasonMatch: "does not end with",
		},
		{
			name:        "gpt first in fixed mode",
			input:       ValidateConversationInput{Text: `{"conversations":[{"from":"gpt","value":"a"},{"from":"human","value":"b"}]}`},
			reasonMatch: "expected",
		},
		{
			name: "gpt first in infer mode",
			input: ValidateConversationInput{
				Text:             `{"conversations":[{"from":"gpt","value":"a"},{"from":"human","value":"b"},{"from":"gpt","value":"c"}]}`,
				FirstSpeakerMode: "infer",
			},
			valid: true,
			turns: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := svc.ValidateConversation(ctx, nil, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, out.Valid)
			assert.Equal(t, !tt.valid, out.NeedsRepair)
			if tt.valid {
				require.NotNil(t, out.Normalized)
				assert.Equal(t, tt.turns, out.Turns)
				last, _ := out.Normalized.Last()
				assert.Equal(t, conversation.GPT, last.From)
			} else {
				assert.Nil(t, out.Normalized)
				assert.Contains(t, strings.ToLower(out.Reason), tt.reasonMatch)
			}
		})
	}
}

func TestValidateConversation_BadMode(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, _, err := svc.ValidateConversation(context.Background(), nil, ValidateConversationInput{Text: validReply, FirstSpeakerMode: "random"})
	assert.Error(t, err)
}

func TestFilterConversation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	turns := []conversation.Turn{
		{From: conversation.Human, Value: "you seem to be lacking emotion"},
		{From: conversation.GPT, Value: "Not at all."},
	}
	_, out, err := svc.FilterConversation(ctx, nil, FilterConversationInput{Conversations: turns})
	require.NoError(t, err)
	assert.True(t, out.Allowed, "human turns are not screened")

	turns[1].Value = "What a rich tapestry of feeling."
	_, out, err = svc.FilterConversation(ctx, nil, FilterConversationInput{Conversations: turns})
	require.NoError(t, err)
	assert.False(t, out.Allowed)
	assert.Equal(t, "tapestry", out.Phrase)

	_, out, err = svc.FilterConversation(ctx, nil, FilterConversationInput{Conversations: turns, Phrases: []string{"feeling"}})
	require.NoError(t, err)
	assert.Equal(t, "feeling", out.Phrase)
}

func TestDatasetStatus(t *testing.T) {
	svc, cfg := newTestService(t, nil)
	require.NoError(t, os.MkdirAll(cfg.Path.Output, 0o755))
	require.NoError(t, os.WriteFile(cfg.OutputPath(), []byte(`{"conversations":[{"from":"human","value":"a"},{"from":"gpt","value":"b"}]}`+"\n"), 0o644))

	_, out, err := svc.DatasetStatus(context.Background(), nil, DatasetStatusInput{})
	require.NoError(t, err)
	require.Len(t, out.Scenarios, 1)
	assert.Equal(t, "harbor.yaml", out.Scenarios[0].Name)
	assert.Equal(t, 2, out.TotalGenerations)
	assert.Equal(t, 1, out.Dataset.Conversations)
	assert.Empty(t, out.Issues)
}

func TestGenerateBatch(t *testing.T) {
	svc, cfg := newTestService(t, fixedTransport{text: validReply})

	_, out, err := svc.GenerateBatch(context.Background(), nil, GenerateBatchInput{Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 2, out.Persisted)
	assert.Equal(t, 2, out.Calls)
	assert.Equal(t, cfg.OutputPath(), out.Output)
	assert.NotEmpty(t, out.BatchID)
	assert.Empty(t, out.Message)
}

func TestGenerateBatch_NoTransport(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, _, err := svc.GenerateBatch(context.Background(), nil, GenerateBatchInput{})
	assert.Error(t, err)
}

func TestGenerateBatch_MissingExperiences(t *testing.T) {
	svc, _ := newTestService(t, fixedTransport{text: validReply})
	_, _, err := svc.GenerateBatch(context.Background(), nil, GenerateBatchInput{Experiences: filepath.Join(t.TempDir(), "none")})
	assert.Error(t, err)
}
