package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/unicornlens/server/internal/agent/model"
	logx "github.com/unicornlens/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey          string
	BaseURL         string
	AnswerConfig    *model.AnswerModelConfig
	SynthesisConfig *model.SynthesisModelConfig
}

// ChatModels holds the streaming answer model and the non-streaming
// synthesis model used for query generation, explanations and charts.
type ChatModels struct {
	Answer             *gemini.ChatModel
	Synthesis          *gemini.ChatModel
	AnswerModelName    string
	SynthesisModelName string
}

// NewChatModels creates both chat models on a shared Gemini client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModelAnswer, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.AnswerConfig.Model,
		Temperature: &config.AnswerConfig.Temperature,
		MaxTokens:   &config.AnswerConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating answer model")
		return nil, fmt.Errorf("error creating answer model: %w", err)
	}

	chatModelSynthesis, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.SynthesisConfig.Model,
		Temperature: &config.SynthesisConfig.Temperature,
		MaxTokens:   &config.SynthesisConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating synthesis model")
		return nil, fmt.Errorf("error creating synthesis model: %w", err)
	}

	return &ChatModels{
		Answer:             chatModelAnswer,
		Synthesis:          chatModelSynthesis,
		AnswerModelName:    config.AnswerConfig.Model,
		SynthesisModelName: config.SynthesisConfig.Model,
	}, nil
}

// BindToolsToAnswerModel binds tools to the streaming answer model.
func (cm *ChatModels) BindToolsToAnswerModel(ctx context.Context, tools []*schema.ToolInfo) error {
	if err := cm.Answer.BindTools(tools); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}

	logx.Debug().Msg("Successfully bound tools to answer model")
	return nil
}
