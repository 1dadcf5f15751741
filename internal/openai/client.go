// Package openai wraps chat and embedding access behind a single client
// that fails over between configured providers.
package openai

import (
	"context"
	"fmt"

	"stylomail/internal/config"

	"github.com/sashabaranov/go-openai"
)

// provider is one configured backend with its model names. Azure
// deployments and the OpenAI platform name models differently, so each
// provider carries its own.
type provider struct {
	name       string
	api        *openai.Client
	chatModel  string
	embedModel openai.EmbeddingModel
}

// Client tries providers in order for every call. The first configured
// provider is primary; later ones only see traffic after a failure.
type Client struct {
	providers []provider
}

// NewClient builds the provider chain from config: Azure first when set,
// then the OpenAI platform. At least one must be configured.
func NewClient(cfg *config.Config) (*Client, error) {
	c := &Client{}

	if cfg.UseAzureOpenAI() {
		azureCfg := openai.DefaultAzureConfig(cfg.AzureOpenAIKey, cfg.AzureOpenAIEndpoint)
		c.providers = append(c.providers, provider{
			name:       "Azure OpenAI",
			api:        openai.NewClientWithConfig(azureCfg),
			chatModel:  cfg.AzureOpenAIGPTDeployment,
			embedModel: openai.EmbeddingModel(cfg.AzureOpenAIEmbeddingDeployment),
		})
	}

	if cfg.HasOpenAIFallback() {
		c.providers = append(c.providers, provider{
			name:       "OpenAI",
			api:        openai.NewClient(cfg.OpenAIKey),
			chatModel:  string(openai.GPT4oMini),
			embedModel: openai.SmallEmbedding3,
		})
	}

	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no OpenAI provider configured: set AZURE_OPENAI_ENDPOINT + AZURE_OPENAI_KEY or OPENAI_API_KEY")
	}

	fmt.Printf("[OPENAI_CLIENT] Primary provider: %s", c.providers[0].name)
	if len(c.providers) > 1 {
		fmt.Printf(" (fallback: %s)", c.providers[1].name)
	}
	fmt.Println()

	return c, nil
}

// CreateEmbeddings returns one vector per input text, in input order.
func (c *Client) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for i, p := range c.providers {
		if lastErr != nil {
			fmt.Printf("[OPENAI_CLIENT] %s embeddings failed, trying %s: %v\n", c.providers[i-1].name, p.name, lastErr)
		}
		resp, err := p.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: p.embedModel,
		})
		if err != nil {
			lastErr = err
			continue
		}
		vectors := make([][]float32, len(resp.Data))
		for j, d := range resp.Data {
			vectors[j] = d.Embedding
		}
		return vectors, nil
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// CreateChatCompletion runs the chat request against the provider chain.
func (c *Client) CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (*openai.ChatCompletionResponse, error) {
	var lastErr error
	for i, p := range c.providers {
		if lastErr != nil {
			fmt.Printf("[OPENAI_CLIENT] %s chat failed, trying %s: %v\n", c.providers[i-1].name, p.name, lastErr)
		}
		resp, err := p.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       p.chatModel,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
		if err != nil {
			lastErr = err
			continue
		}
		return &resp, nil
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
