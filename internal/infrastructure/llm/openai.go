package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/ports"
)

const (
	judgeTemperature = 0.1
	judgeMaxTokens   = 800
	// Extraction returns one entry per listed tool, so it needs more room
	// than a single verdict.
	extractMaxTokens = 2048
)

// OpenAIJudge calls an OpenAI-compatible chat completion endpoint. Setting
// BaseURL in the config points it at local servers (ollama, vllm) that speak
// the same protocol.
type OpenAIJudge struct {
	client openai.Client
	model  string
}

var (
	_ ports.Judge         = (*OpenAIJudge)(nil)
	_ ports.ListExtractor = (*OpenAIJudge)(nil)
)

// NewOpenAIJudge builds the judge from the LLM config section.
func NewOpenAIJudge(cfg config.LLMConfig) *OpenAIJudge {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIJudge{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Judge sends one candidate evaluation request and parses the verdict.
func (j *OpenAIJudge) Judge(ctx context.Context, req ports.JudgeRequest) (ports.JudgeResponse, error) {
	content, err := j.complete(ctx, req, judgeMaxTokens)
	if err != nil {
		return ports.JudgeResponse{}, err
	}
	return parseJudgeJSON(content)
}

// ExtractItems sends one listicle extraction request and parses the list.
func (j *OpenAIJudge) ExtractItems(ctx context.Context, req ports.JudgeRequest) ([]ports.SubItem, error) {
	content, err := j.complete(ctx, req, extractMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseSubItems(content)
}

func (j *OpenAIJudge) complete(ctx context.Context, req ports.JudgeRequest, maxTokens int64) (string, error) {
	response, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(j.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Temperature: openai.Float(judgeTemperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ports.ErrBadJudgeResponse)
	}

	return response.Choices[0].Message.Content, nil
}
