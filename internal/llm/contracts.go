package llm

import (
	"context"
	"fmt"
	"time"
)

// ReservationFields is the normalized shape we want from a provider.
type ReservationFields struct {
	GuestName    string  `json:"guest_name"`
	PropertyName string  `json:"property_name,omitempty"` // raw, as written in the document
	CheckinDate  string  `json:"checkin_date"`            // YYYY-MM-DD
	CheckoutDate string  `json:"checkout_date"`           // YYYY-MM-DD
	NumGuests    int     `json:"num_guests,omitempty"`
	TotalAmount  string  `json:"total_amount,omitempty"` // decimal, non-negative
	CurrencyCode string  `json:"currency_code,omitempty"`
	Platform     string  `json:"platform,omitempty"`
	Country      string  `json:"country,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	Confidence   float32 `json:"confidence,omitempty"` // optional (0..1)
}

// ParseRequest carries everything a provider needs for parse_reservation.
type ParseRequest struct {
	Text            string
	FilenameHint    string
	DefaultCurrency string
	Platforms       []string // canonical platform enum for the schema
}

// GenerateOptions configures generate_text.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float32
}

// Operation is the kind of provider call, part of the cache key.
type Operation string

const (
	OpExtractText      Operation = "extract_text"
	OpParseReservation Operation = "parse_reservation"
	OpGenerateText     Operation = "generate_text"
)

// ErrorKind classifies a provider failure. The orchestrator, not the
// adapter, decides whether to retry or fail over based on it.
type ErrorKind string

const (
	ErrKindAuth        ErrorKind = "auth"
	ErrKindRateLimited ErrorKind = "rate_limited"
	ErrKindServer      ErrorKind = "server_error"
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindInvalid     ErrorKind = "invalid_response"
)

// ProviderError is a classified provider failure. Transport failures and
// non-2xx statuses surface as this type, never as a raw error past the
// adapter layer.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Kind, e.Status)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Response is one provider attempt's result. Never mutated after creation.
type Response struct {
	Provider string
	Text     string
	Latency  time.Duration
}

// Provider is the capability-uniform interface over language-model backends.
// Each implementation owns its transport, auth scheme, and payload shape.
type Provider interface {
	Name() string
	// Configured reports whether a credential is available; unconfigured
	// providers are skipped by the selection policy.
	Configured() bool
	ExtractText(ctx context.Context, doc string) (Response, error)
	ParseReservation(ctx context.Context, req ParseRequest) (Response, error)
	GenerateText(ctx context.Context, prompt string, opts GenerateOptions) (Response, error)
}
