package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/practerview-agent/internal/config"
	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// NewGenAIClient builds a genai client for the configured backend. The
// realtime conversation shares it.
func NewGenAIClient(ctx context.Context, cfg *config.AgentConfig) (*genai.Client, error) {
	cc := &genai.ClientConfig{}
	switch cfg.Backend {
	case config.BackendVertex:
		if cfg.GCPProjectID == "" || cfg.GCPLocation == "" {
			return nil, fmt.Errorf("PRACTERVIEW_GCP_PROJECT and PRACTERVIEW_GCP_LOCATION must be set for the vertex backend")
		}
		cc.Project = cfg.GCPProjectID
		cc.Location = cfg.GCPLocation
		cc.Backend = genai.BackendVertexAI
	default:
		if cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY must be set for the gemini backend")
		}
		cc.APIKey = cfg.GoogleAPIKey
		cc.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return client, nil
}

type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates an LLMClient for report generation.
func NewGeminiClient(client *genai.Client, modelName string) *GeminiClient {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiClient{
		client:    client,
		modelName: modelName,
	}
}

// GenerateReply implements domain.LLMClient.
func (g *GeminiClient) GenerateReply(
	ctx context.Context,
	task string,
	convCtx domain.ConversationContext,
) (string, error) {
	p := BuildPrompt(task, convCtx)

	contents := []*genai.Content{
		genai.NewContentFromText(p.User, genai.RoleUser),
	}

	temp := float32(0.4)
	topP := float32(0.9)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   int32(4096),
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}
	return text, nil
}
