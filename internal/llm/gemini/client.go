package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentalops/reservations-tracker/internal/llm"
)

// ParseReservation implements llm.Provider over generateContent with a JSON
// mime type constraint.
func (c *Client) ParseReservation(ctx context.Context, req llm.ParseRequest) (llm.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("gemini.parse.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(req.Text),
	)

	schema := llm.BuildReservationJSONSchema(req.Platforms)
	prompt := llm.BuildParseSystemPrompt(req) +
		"\nJSON Schema:\n" + llm.MustJSON(schema) +
		"\n\n" + llm.BuildParseUserPrompt(req)

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":      c.cfg.Temperature,
			"responseMimeType": "application/json",
		},
	}

	content, err := c.generate(ctx, body)
	if err != nil {
		c.logger.Error("gemini.parse.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.Response{}, err
	}
	c.logger.Info("gemini.parse.ok", "req_id", rid, "bytes", len(content), "elapsed_ms", time.Since(start).Milliseconds())
	return llm.Response{Provider: c.Name(), Text: content, Latency: time.Since(start)}, nil
}

func (c *Client) ExtractText(ctx context.Context, doc string) (llm.Response, error) {
	start := time.Now()
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": llm.BuildExtractTextPrompt(doc)}}},
		},
	}
	content, err := c.generate(ctx, body)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Provider: c.Name(), Text: content, Latency: time.Since(start)}, nil
}

func (c *Client) GenerateText(ctx context.Context, prompt string, opts llm.GenerateOptions) (llm.Response, error) {
	start := time.Now()
	genCfg := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		genCfg["maxOutputTokens"] = opts.MaxTokens
	}
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": genCfg,
	}
	content, err := c.generate(ctx, body)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Provider: c.Name(), Text: content, Latency: time.Since(start)}, nil
}

// generate posts to models/<model>:generateContent and unwraps the first
// candidate's text parts. The key travels in a header so it never shows up
// in request-URL logs.
func (c *Client) generate(ctx context.Context, body map[string]any) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return "", llm.ClassifyHTTPError(c.Name(), status, err)
	}

	var gr struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", &llm.ProviderError{Provider: c.Name(), Kind: llm.ErrKindInvalid, Status: status, Cause: fmt.Errorf("decode gemini response: %w", err)}
	}
	if len(gr.Candidates) == 0 {
		return "", &llm.ProviderError{Provider: c.Name(), Kind: llm.ErrKindInvalid, Status: status, Cause: fmt.Errorf("no candidates in gemini response")}
	}
	var b strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", &llm.ProviderError{Provider: c.Name(), Kind: llm.ErrKindInvalid, Status: status, Cause: fmt.Errorf("empty candidate in gemini response")}
	}
	return strings.TrimSpace(b.String()), nil
}
