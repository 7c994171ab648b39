package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentalops/reservations-tracker/internal/llm"
)

// ParseReservation implements llm.Provider over the messages API. Anthropic
// has no JSON response format flag, so the schema discipline lives entirely
// in the system prompt; the repair parser upstream absorbs the drift.
func (c *Client) ParseReservation(ctx context.Context, req llm.ParseRequest) (llm.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("anthropic.parse.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(req.Text),
	)

	schema := llm.BuildReservationJSONSchema(req.Platforms)
	system := llm.BuildParseSystemPrompt(req) +
		" Respond with raw JSON only, no markdown fences. JSON Schema:\n" + llm.MustJSON(schema)

	body := map[string]any{
		"model":       c.cfg.Model,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
		"system":      system,
		"messages": []map[string]any{
			{"role": "user", "content": llm.BuildParseUserPrompt(req)},
		},
	}

	content, err := c.message(ctx, body)
	if err != nil {
		c.logger.Error("anthropic.parse.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.Response{}, err
	}
	c.logger.Info("anthropic.parse.ok", "req_id", rid, "bytes", len(content), "elapsed_ms", time.Since(start).Milliseconds())
	return llm.Response{Provider: c.Name(), Text: content, Latency: time.Since(start)}, nil
}

func (c *Client) ExtractText(ctx context.Context, doc string) (llm.Response, error) {
	start := time.Now()
	body := map[string]any{
		"model":      c.cfg.Model,
		"max_tokens": c.cfg.MaxTokens,
		"messages": []map[string]any{
			{"role": "user", "content": llm.BuildExtractTextPrompt(doc)},
		},
	}
	content, err := c.message(ctx, body)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Provider: c.Name(), Text: content, Latency: time.Since(start)}, nil
}

func (c *Client) GenerateText(ctx context.Context, prompt string, opts llm.GenerateOptions) (llm.Response, error) {
	start := time.Now()
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	body := map[string]any{
		"model":       c.cfg.Model,
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	content, err := c.message(ctx, body)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Provider: c.Name(), Text: content, Latency: time.Since(start)}, nil
}

// message posts to /messages and concatenates the text content blocks.
func (c *Client) message(ctx context.Context, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/messages"
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": "2023-06-01",
	}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return "", llm.ClassifyHTTPError(c.Name(), status, err)
	}

	var mr struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &mr); err != nil {
		return "", &llm.ProviderError{Provider: c.Name(), Kind: llm.ErrKindInvalid, Status: status, Cause: fmt.Errorf("decode anthropic response: %w", err)}
	}
	var b strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &llm.ProviderError{Provider: c.Name(), Kind: llm.ErrKindInvalid, Status: status, Cause: fmt.Errorf("no text content in anthropic response")}
	}
	return strings.TrimSpace(b.String()), nil
}
