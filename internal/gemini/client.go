package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"genstory/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

// Client generates stories through the Gemini API. One GenerateContent
// call per Generate invocation, no retries: rate pacing and failure
// isolation belong to the caller.
type Client struct {
	client *genai.Client
	model  string
}

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint, used by tests.
	BaseURL string
}

var storyOutputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"stories": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":   {Type: genai.TypeString, Description: "Short, concise story title"},
					"message": {Type: genai.TypeString, Description: "One or two sentence message"},
				},
				Required: []string{"title", "message"},
			},
		},
	},
	Required: []string{"stories"},
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Generate maps the prompt segments to Gemini parts in order, issues a
// single call constrained to the story output schema, and validates the
// JSON reply against it.
func (c *Client) Generate(ctx context.Context, prompt llm.Prompt) (*llm.StoryOutput, error) {
	parts, err := toParts(prompt)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   storyOutputSchema,
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response")
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	var output llm.StoryOutput
	if err := json.Unmarshal([]byte(text), &output); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &output, nil
}

// BatchGenerate runs one Generate call per prompt concurrently and returns
// outputs index-aligned with the input. The first failure fails the whole
// batch; callers that need per-item isolation should call Generate
// sequentially instead.
func (c *Client) BatchGenerate(ctx context.Context, prompts []llm.Prompt) ([]*llm.StoryOutput, error) {
	outputs := make([]*llm.StoryOutput, len(prompts))

	g, ctx := errgroup.WithContext(ctx)
	for i, prompt := range prompts {
		g.Go(func() error {
			output, err := c.Generate(ctx, prompt)
			if err != nil {
				return err
			}
			outputs[i] = output
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func toParts(prompt llm.Prompt) ([]*genai.Part, error) {
	parts := make([]*genai.Part, 0, len(prompt))
	for _, segment := range prompt {
		switch s := segment.(type) {
		case llm.MediaReference:
			parts = append(parts, &genai.Part{FileData: &genai.FileData{FileURI: s.URL}})
		case llm.TextInstruction:
			parts = append(parts, &genai.Part{Text: s.Text})
		default:
			return nil, fmt.Errorf("unsupported prompt segment %T", segment)
		}
	}
	return parts, nil
}
