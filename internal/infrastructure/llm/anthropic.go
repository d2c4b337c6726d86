package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/ports"
)

// AnthropicJudge calls the Messages API with the same prompt contract as the
// OpenAI judge, so the two backends are interchangeable behind ports.Judge.
type AnthropicJudge struct {
	client anthropic.Client
	model  string
}

var (
	_ ports.Judge         = (*AnthropicJudge)(nil)
	_ ports.ListExtractor = (*AnthropicJudge)(nil)
)

// NewAnthropicJudge builds the judge from the LLM config section.
func NewAnthropicJudge(cfg config.LLMConfig) *AnthropicJudge {
	return &AnthropicJudge{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
	}
}

// Judge sends one candidate evaluation request and parses the verdict.
func (j *AnthropicJudge) Judge(ctx context.Context, req ports.JudgeRequest) (ports.JudgeResponse, error) {
	content, err := j.complete(ctx, req, judgeMaxTokens)
	if err != nil {
		return ports.JudgeResponse{}, err
	}
	return parseJudgeJSON(content)
}

// ExtractItems sends one listicle extraction request and parses the list.
func (j *AnthropicJudge) ExtractItems(ctx context.Context, req ports.JudgeRequest) ([]ports.SubItem, error) {
	content, err := j.complete(ctx, req, extractMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseSubItems(content)
}

func (j *AnthropicJudge) complete(ctx context.Context, req ports.JudgeRequest, maxTokens int64) (string, error) {
	message, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(j.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(judgeTemperature),
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		sb.WriteString(block.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty message content", ports.ErrBadJudgeResponse)
	}

	return sb.String(), nil
}
