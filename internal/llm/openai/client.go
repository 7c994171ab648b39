package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentalops/reservations-tracker/internal/llm"
)

// ParseReservation implements llm.Provider using chat/completions with a
// JSON-object response format. The raw content goes back to the caller
// untouched; repair and schema validation happen upstream.
func (c *Client) ParseReservation(ctx context.Context, req llm.ParseRequest) (llm.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("openai.parse.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
	)

	schema := llm.BuildReservationJSONSchema(req.Platforms)
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildParseSystemPrompt(req)},
			{"role": "user", "content": llm.BuildParseUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + llm.MustJSON(schema)},
		},
	}

	content, err := c.chat(ctx, body)
	if err != nil {
		c.logger.Error("openai.parse.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.Response{}, err
	}
	c.logger.Info("openai.parse.ok", "req_id", rid, "bytes", len(content), "elapsed_ms", time.Since(start).Milliseconds())
	return llm.Response{Provider: c.Name(), Text: content, Latency: time.Since(start)}, nil
}

// ExtractText asks the model for a verbatim transcription of the document.
func (c *Client) ExtractText(ctx context.Context, doc string) (llm.Response, error) {
	start := time.Now()
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": 0,
		"messages": []map[string]any{
			{"role": "user", "content": llm.BuildExtractTextPrompt(doc)},
		},
	}
	content, err := c.chat(ctx, body)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Provider: c.Name(), Text: content, Latency: time.Since(start)}, nil
}

func (c *Client) GenerateText(ctx context.Context, prompt string, opts llm.GenerateOptions) (llm.Response, error) {
	start := time.Now()
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": opts.Temperature,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}
	content, err := c.chat(ctx, body)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Provider: c.Name(), Text: content, Latency: time.Since(start)}, nil
}

// chat posts to chat/completions and unwraps the first choice.
func (c *Client) chat(ctx context.Context, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return "", llm.ClassifyHTTPError(c.Name(), status, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", &llm.ProviderError{Provider: c.Name(), Kind: llm.ErrKindInvalid, Status: status, Cause: fmt.Errorf("decode openai response: %w", err)}
	}
	if len(cc.Choices) == 0 {
		return "", &llm.ProviderError{Provider: c.Name(), Kind: llm.ErrKindInvalid, Status: status, Cause: fmt.Errorf("no choices in openai response")}
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}
