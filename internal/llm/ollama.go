package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"doc-compare/internal/config"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// Section is one section as returned by the model
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// OllamaLLM handles interactions with the Ollama LLM API
type OllamaLLM struct {
	Client     *api.Client
	Model      string
	MaxRetries int
	Timeout    time.Duration
	logger     *slog.Logger
}

// NewOllamaLLM creates a new Ollama LLM client. An empty cfg.Host falls back to OLLAMA_HOST.
func NewOllamaLLM(cfg config.LLMConfig, logger *slog.Logger) (*OllamaLLM, error) {
	if logger == nil {
		logger = slog.Default()
	}

	hostURL := envconfig.Host()
	if cfg.Host != "" {
		u, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to parse llm host %q: %w", cfg.Host, err)
		}
		hostURL = u
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaLLM{
		Client:     client,
		Model:      cfg.Model,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.Timeout,
		logger:     logger,
	}, nil
}

// SegmentationPrompt asks the model to group the lines of a document into
// sections. Each line is expected as "[size=S] text" so the model can use
// the font size as a heading signal.
func SegmentationPrompt(lines []string) string {
	var promptBuilder strings.Builder

	promptBuilder.WriteString("You split documents into sections using typography only. ")
	promptBuilder.WriteString("Each line below starts with its font size in brackets. ")
	promptBuilder.WriteString("Larger or numbered lines are usually section titles. ")
	promptBuilder.WriteString("Do not rewrite, summarize or translate any text. ")
	promptBuilder.WriteString(`Reply with JSON only: {"sections": [{"title": "...", "content": "..."}]} `)
	promptBuilder.WriteString("where content holds the body lines of the section joined by newlines, without the size markers.\n\n")

	promptBuilder.WriteString("Document:\n")
	for _, line := range lines {
		promptBuilder.WriteString(line)
		promptBuilder.WriteString("\n")
	}

	return promptBuilder.String()
}

// GenerateResponse generates a JSON response from the LLM, retrying failed calls
func (o *OllamaLLM) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	var resp string
	var err error

	for retries := 0; retries <= o.MaxRetries; retries++ {
		if retries > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(retries) * time.Second):
			}
			o.logger.Warn("retrying llm request", "attempt", retries+1, "error", err)
		}

		resp, err = o.generate(ctx, prompt)
		if err == nil {
			return resp, nil
		}
	}

	return "", fmt.Errorf("failed to generate response after %d retries: %w", o.MaxRetries, err)
}

func (o *OllamaLLM) generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := api.GenerateRequest{
		Model:  o.Model,
		Prompt: prompt,
		Format: json.RawMessage(`"json"`),
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0.0,
			"num_predict": 4096,
		},
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	var responseBuilder strings.Builder
	err := o.Client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := responseBuilder.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return responseBuilder.String(), nil
}

// DetectSections sends the rendered lines to the model and parses its answer
func (o *OllamaLLM) DetectSections(ctx context.Context, lines []string) ([]Section, error) {
	start := time.Now()

	raw, err := o.GenerateResponse(ctx, SegmentationPrompt(lines))
	if err != nil {
		return nil, err
	}

	sections, err := ParseSections(raw)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("llm segmentation done", "model", o.Model, "lines", len(lines), "sections", len(sections), "elapsed", time.Since(start))
	return sections, nil
}

// ParseSections decodes a model answer. Both a bare array and an object with
// a "sections" array are accepted; markdown code fences are stripped.
func ParseSections(raw string) ([]Section, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "[") {
		var sections []Section
		if err := json.Unmarshal([]byte(raw), &sections); err != nil {
			return nil, fmt.Errorf("failed to decode sections: %w", err)
		}
		return sections, nil
	}

	var wrapped struct {
		Sections []Section `json:"sections"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode sections: %w", err)
	}
	return wrapped.Sections, nil
}
