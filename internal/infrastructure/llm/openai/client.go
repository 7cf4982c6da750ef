package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/ports"
	"github.com/kirillkom/deckgen/internal/infrastructure/resilience"
)

type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	// BatchSize caps the inputs sent per embeddings request.
	BatchSize int
}

// Client shares one SDK client and executor between the embedder and generator.
// SDK retries are disabled; the executor owns retry and breaker policy.
type Client struct {
	sdk      openaisdk.Client
	cfg      Config
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Client{
		sdk:      openaisdk.NewClient(opts...),
		cfg:      cfg,
		executor: executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.client.cfg.BatchSize {
		end := min(start+e.client.cfg.BatchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, domain.WrapError(domain.ErrEmbedding, "openai embed", err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	resp, err := resilience.Call(ctx, e.client.executor, "openai_embed", func(ctx context.Context) (*openaisdk.CreateEmbeddingResponse, error) {
		return e.client.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
			Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
			Model: openaisdk.EmbeddingModel(e.client.cfg.EmbeddingModel),
		})
	}, classifyError)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", classifyError, err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("vectors/texts mismatch: %d/%d", len(resp.Data), len(batch))
	}

	vectors := make([][]float32, len(batch))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(batch) || vectors[idx] != nil {
			return nil, fmt.Errorf("unexpected embedding index %d", item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vectors[idx] = vec
	}
	return vectors, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openaisdk.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		messages = append(messages, openaisdk.UserMessage(m))
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(g.client.cfg.ChatModel),
		Messages:    messages,
		Temperature: openaisdk.Float(req.Temperature),
	}

	completion, err := resilience.Call(ctx, g.client.executor, "openai_chat", func(ctx context.Context) (*openaisdk.ChatCompletion, error) {
		return g.client.sdk.Chat.Completions.New(ctx, params)
	}, classifyError)
	if err != nil {
		return "", resilience.WrapTemporary("openai chat", classifyError, err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai chat: empty choices")
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func classifyError(err error) resilience.ErrorClassification {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return resilience.ClassifyHTTP(&resilience.StatusError{
			Backend:    "openai",
			StatusCode: apiErr.StatusCode,
		})
	}
	return resilience.ClassifyHTTP(err)
}
