package eino

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	gemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"
)

// Config represents the configuration for Eino LLM integration
type Config struct {
	Provider string `json:"provider"` // only "gemini" for now
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

// Service owns the chat model the inference client talks to.
type Service struct {
	config    Config
	chatModel model.BaseChatModel
	tracer    *Tracer
}

// TokenUsage as reported by the provider for a single call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// NewService creates a new Eino service instance with proper provider initialization
func NewService(ctx context.Context, config Config) (*Service, error) {
	service := &Service{config: config, tracer: NewTracer()}
	if err := service.initializeChatModel(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}
	return service, nil
}

// NewServiceWithModel wraps a pre-configured chat model (tests, alternative providers).
func NewServiceWithModel(config Config, chatModel model.BaseChatModel) *Service {
	return &Service{config: config, chatModel: chatModel, tracer: NewTracer()}
}

func (s *Service) initializeChatModel(ctx context.Context) error {
	switch strings.ToLower(s.config.Provider) {
	case "gemini", "":
		return s.initializeGeminiModel(ctx)
	default:
		return fmt.Errorf("unsupported provider: %s. Supported: %s", s.config.Provider, strings.Join(GetAvailableProviders(), ", "))
	}
}

// initializeGeminiModel sets up Google Gemini as the LLM provider
func (s *Service) initializeGeminiModel(ctx context.Context) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	geminiModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: client,
		Model:  s.config.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini chat model: %w", err)
	}

	s.chatModel = geminiModel
	return nil
}

// Generate runs one chat completion with the tracer attached.
func (s *Service) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if s.chatModel == nil {
		return nil, fmt.Errorf("chat model not initialized")
	}
	if s.tracer != nil {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      s.config.Model,
			Type:      s.config.Provider,
			Component: components.ComponentOfChatModel,
		}, s.tracer.Handler())
	}
	return s.chatModel.Generate(ctx, messages, opts...)
}

// Stats reports the model call totals seen by this service.
func (s *Service) Stats() TraceStats {
	if s.tracer == nil {
		return TraceStats{}
	}
	return s.tracer.Stats()
}

// ExtractTokenUsage reads usage from the response metadata when the provider
// filled it in.
func ExtractTokenUsage(msg *schema.Message) TokenUsage {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return TokenUsage{}
	}
	u := msg.ResponseMeta.Usage
	return TokenUsage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}

// Model returns the configured model name.
func (s *Service) Model() string {
	return s.config.Model
}

// GetAvailableProviders returns list of supported LLM providers
func GetAvailableProviders() []string {
	return []string{"gemini"}
}
