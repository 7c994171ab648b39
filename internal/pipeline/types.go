package pipeline

import (
	"github.com/rentalops/reservations-tracker/constants"
)

// Draft is the canonical pipeline output: a best-effort reservation record.
// PropertyID is nil when the property reference did not resolve; the raw
// mention and the match tier are kept for auditing.
type Draft struct {
	PropertyID         *int64  `json:"propertyId"`
	PropertyName       string  `json:"propertyName,omitempty"` // canonical when resolved, raw otherwise
	PropertyMatchTier  string  `json:"propertyMatchTier,omitempty"`
	PropertyConfidence float32 `json:"propertyConfidence,omitempty"`
	GuestName          string  `json:"guestName,omitempty"`
	CheckInDate        string  `json:"checkInDate,omitempty"` // YYYY-MM-DD
	CheckOutDate       string  `json:"checkOutDate,omitempty"`
	NumGuests          int     `json:"numGuests,omitempty"`
	TotalAmount        string  `json:"totalAmount,omitempty"` // decimal string, non-negative
	CurrencyCode       string  `json:"currencyCode,omitempty"`
	Platform           string  `json:"platform,omitempty"`
	Country            string  `json:"country,omitempty"`
	Notes              string  `json:"notes,omitempty"`
	Confidence         float32 `json:"confidence,omitempty"`
}

// FieldIssue is one field-level validation finding.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is computed fresh from a draft, never persisted on its own.
type ValidationResult struct {
	IsValid  bool                       `json:"isValid"`
	Errors   []FieldIssue               `json:"errors,omitempty"`
	Warnings []FieldIssue               `json:"warnings,omitempty"`
	Status   constants.ValidationStatus `json:"status"`
}

// Result is what a caller gets back for a run. Non-failed outcomes always
// carry the best-effort drafts plus the explicit missing-fields list.
type Result struct {
	RunID         string              `json:"runId"`
	Status        constants.RunStatus `json:"status"`
	Drafts        []Draft             `json:"drafts"`
	Validation    []ValidationResult  `json:"validation,omitempty"` // index-aligned with Drafts
	MissingFields []string            `json:"missingFields,omitempty"`
	Warnings      []string            `json:"warnings,omitempty"`
	Error         string              `json:"error,omitempty"` // set only on FAILED
	Retryable     bool                `json:"-"`               // failed run worth another attempt (provider outage)
}
