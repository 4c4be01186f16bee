package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/convforge/internal/config"
	"github.com/dusk-indust/convforge/internal/conversation"
	"github.com/dusk-indust/convforge/internal/llm"
	"github.com/dusk-indust/convforge/internal/logging"
	"github.com/dusk-indust/convforge/internal/pipeline"
	"github.com/dusk-indust/convforge/internal/status"
)

// Service handles MCP tool calls against one configuration.
type Service struct {
	cfg       config.Config
	transport llm.Transport
	log       logrus.FieldLogger
}

// NewService creates a Service. transport may be nil, in which case
// generate_batch reports an error and the other tools still work.
func NewService(cfg *config.Config, transport llm.Transport, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{cfg: *cfg, transport: transport, log: log}
}

// ValidateConversation runs raw model text through the parser, the schema
// validator and the normalizer.
func (s *Service) ValidateConversation(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ValidateConversationInput,
) (*mcp.CallToolResult, ValidateConversationOutput, error) {
	v := s.cfg.Validator()
	if input.FirstSpeakerMode != "" {
		mode, err := conversation.ParseFirstSpeakerMode(input.FirstSpeakerMode)
		if err != nil {
			return nil, ValidateConversationOutput{}, err
		}
		v.Mode = mode
	}

	parsed, err := conversation.Parse(input.Text)
	if err == nil {
		var conv conversation.Conversation
		if conv, err = v.Decode(parsed); err == nil {
			normalized := conversation.Normalize(conv)
			return nil, ValidateConversationOutput{
				Valid:      true,
				Turns:      normalized.Len(),
				Normalized: &normalized,
			}, nil
		}
	}
	return nil, ValidateConversationOutput{NeedsRepair: true, Reason: err.Error()}, nil
}

// FilterConversation reports whether the content filter admits the turns.
func (s *Service) FilterConversation(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input FilterConversationInput,
) (*mcp.CallToolResult, FilterConversationOutput, error) {
	f := s.cfg.ContentFilter()
	if len(input.Phrases) > 0 {
		f = conversation.NewFilter(input.Phrases)
	}
	phrase, found := f.Match(conversation.Conversation{Conversations: input.Conversations})
	return nil, FilterConversationOutput{Allowed: !found, Phrase: phrase}, nil
}

// DatasetStatus summarizes the seed scenarios and the dataset file.
func (s *Service) DatasetStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DatasetStatusInput,
) (*mcp.CallToolResult, DatasetStatusOutput, error) {
	experiences := input.Experiences
	if experiences == "" {
		experiences = s.cfg.Path.Experiences
	}
	datasetPath := input.Dataset
	if datasetPath == "" {
		datasetPath = s.cfg.OutputPath()
	}

	report, err := status.Collect(experiences, datasetPath, s.cfg.Validator(), s.cfg.ContentFilter())
	if err != nil {
		return nil, DatasetStatusOutput{}, fmt.Errorf("dataset status: %w", err)
	}
	return nil, DatasetStatusOutput{
		Scenarios:        report.Scenarios,
		TotalGenerations: report.TotalGenerations,
		Dataset:          report.Dataset,
		Issues:           report.Issues,
	}, nil
}

// GenerateBatch runs a full generation batch and returns its tally.
func (s *Service) GenerateBatch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateBatchInput,
) (*mcp.CallToolResult, GenerateBatchOutput, error) {
	if s.transport == nil {
		return nil, GenerateBatchOutput{}, errors.New("generate_batch: no model endpoint configured")
	}

	cfg := s.cfg
	if input.Experiences != "" {
		cfg.Path.Experiences = input.Experiences
	}
	if input.Concurrency > 0 {
		cfg.System.ConcurrencyLimit = input.Concurrency
	}
	if input.MaxAttempts > 0 {
		cfg.System.MaxAttempts = input.MaxAttempts
	}

	summary, err := pipeline.Run(ctx, &cfg, s.transport, s.log, nil)
	if err != nil && summary.Total == 0 {
		return nil, GenerateBatchOutput{}, err
	}

	out := GenerateBatchOutput{
		BatchID:   summary.BatchID,
		Total:     summary.Total,
		Persisted: summary.Persisted,
		Discarded: summary.Discarded,
		Exhausted: summary.Exhausted,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Calls:     summary.Calls,
		Output:    cfg.OutputPath(),
	}
	if err != nil {
		out.Message = err.Error()
	}
	return nil, out, nil
}
