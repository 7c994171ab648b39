package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentalops/reservations-tracker/constants"
	"github.com/rentalops/reservations-tracker/internal/catalog"
	"github.com/rentalops/reservations-tracker/internal/common"
	"github.com/rentalops/reservations-tracker/internal/controlfile"
	"github.com/rentalops/reservations-tracker/internal/extract"
	"github.com/rentalops/reservations-tracker/internal/llm"
	"github.com/rentalops/reservations-tracker/internal/ratelimit"
)

// Orchestrator drives one document through the extraction state machine:
// Received, TextExtracted, TabularParsed or ModelParsed, PropertyResolved,
// Validated, then Accepted or NeedsReview. Failed is reachable from any state
// on an unreadable document or provider-chain exhaustion. Stages within a run
// are strictly sequential; runs are independent of each other.
type Orchestrator struct {
	extractor *extract.Extractor
	tabular   *controlfile.Parser
	selector  *llm.Selector
	limiter   *ratelimit.Limiter
	catalog   catalog.Catalog

	defaultCurrency string
	logger          *slog.Logger
}

func NewOrchestrator(
	extractor *extract.Extractor,
	tabular *controlfile.Parser,
	selector *llm.Selector,
	limiter *ratelimit.Limiter,
	cat catalog.Catalog,
	defaultCurrency string,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultCurrency == "" {
		defaultCurrency = "EUR"
	}
	return &Orchestrator{
		extractor:       extractor,
		tabular:         tabular,
		selector:        selector,
		limiter:         limiter,
		catalog:         cat,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// Run executes the full pipeline for one document. The returned Result is
// always terminal: Accepted, NeedsReview, or Failed. Non-failed outcomes
// carry the best-effort drafts and the explicit missing-fields list.
func (o *Orchestrator) Run(ctx context.Context, doc extract.RawDocument) Result {
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = common.WithRunID(ctx, runID)
	}
	start := time.Now()
	res := Result{RunID: runID, Status: constants.RunStatusReceived, Drafts: []Draft{}}

	o.transition(runID, &res, constants.RunStatusReceived)

	// stage 1: text extraction (xlsx goes straight to the tabular parser)
	var (
		drafts  []llm.ReservationFields
		tabular bool
	)
	if doc.Kind == constants.XLSX {
		parsed, err := o.tabular.ParseXLSX(doc.Content, doc.FileName)
		if err != nil {
			return o.fail(runID, &res, common.NewAppError("UNREADABLE", "xlsx decode failed", common.ErrUnreadableDocument))
		}
		o.transition(runID, &res, constants.RunStatusTextExtracted)
		drafts = parsed.Drafts
		res.Warnings = append(res.Warnings, parsed.Warnings...)
		tabular = true
	} else {
		extracted, err := o.extractor.Extract(ctx, doc)
		if err != nil {
			return o.fail(runID, &res, err)
		}
		o.transition(runID, &res, constants.RunStatusTextExtracted)
		res.Warnings = append(res.Warnings, extracted.Warnings...)

		// stage 2: tabular path when the control-sheet header is present and
		// actually yields rows; otherwise the model path
		if o.tabular.Detect(extracted.Text) {
			parsed := o.tabular.Parse(extracted.Text, doc.FileName)
			if len(parsed.Drafts) > 0 {
				drafts = parsed.Drafts
				res.Warnings = append(res.Warnings, parsed.Warnings...)
				tabular = true
			}
		}
		if !tabular {
			modelDrafts, err := o.parseWithProviders(ctx, extracted.Text, doc.FileName)
			if err != nil {
				return o.fail(runID, &res, err)
			}
			drafts = modelDrafts
		}
	}
	if tabular {
		o.transition(runID, &res, constants.RunStatusTabularParsed)
	} else {
		o.transition(runID, &res, constants.RunStatusModelParsed)
	}

	// stage 3: property resolution
	res.Drafts = o.resolveProperties(ctx, runID, drafts, doc.FileName, &res)
	o.transition(runID, &res, constants.RunStatusPropertyResolved)

	// stage 4: validation
	allValid := true
	for _, d := range res.Drafts {
		v := Validate(d)
		res.Validation = append(res.Validation, v)
		if !v.IsValid {
			allValid = false
		}
	}
	o.transition(runID, &res, constants.RunStatusValidated)

	// terminal state
	switch {
	case len(res.Drafts) == 0:
		res.MissingFields = appendMissing(res.MissingFields, "reservations")
		o.transition(runID, &res, constants.RunStatusNeedsReview)
	case !allValid || len(res.MissingFields) > 0:
		o.transition(runID, &res, constants.RunStatusNeedsReview)
	default:
		o.transition(runID, &res, constants.RunStatusAccepted)
	}

	o.logger.Info("pipeline.done",
		"run_id", runID,
		"status", string(res.Status),
		"drafts", len(res.Drafts),
		"missing_fields", len(res.MissingFields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// parseWithProviders walks the provider failover chain through the limiter.
// Each provider failure advances to the next; only full exhaustion is fatal.
// Every raw response goes through the repair parser, so a malformed response
// from a reachable provider degrades to fewer fields, never a failover.
func (o *Orchestrator) parseWithProviders(ctx context.Context, text, fileName string) ([]llm.ReservationFields, error) {
	req := llm.ParseRequest{
		Text:            text,
		FilenameHint:    fileName,
		DefaultCurrency: o.defaultCurrency,
		Platforms:       constants.PlatformsAsStringSlice(),
	}

	chain := o.selector.Chain("")
	if len(chain) == 0 {
		return nil, common.NewAppError("PROVIDERS", "no configured provider", common.ErrAllProvidersFailed)
	}

	var lastErr error
	for _, provider := range chain {
		resp, err := o.limiter.Do(ctx, ratelimit.Request{
			Provider: provider.Name(),
			Op:       llm.OpParseReservation,
			Input:    text,
		}, func(ctx context.Context) (llm.Response, error) {
			return provider.ParseReservation(ctx, req)
		})
		if err != nil {
			o.logger.Warn("pipeline.provider_failed", "provider", provider.Name(), "error", err)
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		records, tier := llm.Repair(resp.Text, o.logger)
		fields := llm.DecodeRecords(records, req.Platforms, o.logger)
		o.logger.Info("pipeline.model_parsed",
			"provider", provider.Name(),
			"repair_tier", tier.String(),
			"reservations", len(fields),
		)
		return fields, nil
	}
	return nil, common.NewAppError("PROVIDERS", "provider chain exhausted", errors.Join(common.ErrAllProvidersFailed, lastErr))
}

// resolveProperties runs each draft's property mention through the alias
// resolver. The tabular path's filename-derived property arrives already set
// on the draft; on the model path an empty mention falls back to the file
// name. Unresolved or ambiguous references never block the run; they surface
// as a missing propertyId field.
func (o *Orchestrator) resolveProperties(ctx context.Context, runID string, fields []llm.ReservationFields, fileName string, res *Result) []Draft {
	var entries []catalog.Entry
	if o.catalog != nil {
		var err error
		entries, err = o.catalog.ListProperties(ctx)
		if err != nil {
			o.logger.Error("pipeline.catalog_unavailable", "run_id", runID, "error", err)
			res.Warnings = append(res.Warnings, "property catalog unavailable")
		}
	}

	drafts := make([]Draft, 0, len(fields))
	for _, f := range fields {
		d := draftFromFields(f)

		rawName := f.PropertyName
		if rawName == "" {
			rawName = hintFromFileName(fileName)
		}
		if rawName == "" || len(entries) == 0 {
			res.MissingFields = appendMissing(res.MissingFields, "propertyId")
			drafts = append(drafts, d)
			continue
		}

		match, err := catalog.Resolve(rawName, entries, o.logger)
		if err != nil {
			res.MissingFields = appendMissing(res.MissingFields, "propertyId")
			d.PropertyName = rawName
			drafts = append(drafts, d)
			continue
		}
		id := match.PropertyID
		d.PropertyID = &id
		d.PropertyName = match.Name
		d.PropertyMatchTier = match.Tier.String()
		d.PropertyConfidence = match.Tier.Confidence()
		drafts = append(drafts, d)
	}
	return drafts
}

func draftFromFields(f llm.ReservationFields) Draft {
	return Draft{
		PropertyName: f.PropertyName,
		GuestName:    f.GuestName,
		CheckInDate:  f.CheckinDate,
		CheckOutDate: f.CheckoutDate,
		NumGuests:    f.NumGuests,
		TotalAmount:  f.TotalAmount,
		CurrencyCode: f.CurrencyCode,
		Platform:     f.Platform,
		Country:      f.Country,
		Notes:        f.Notes,
		Confidence:   f.Confidence,
	}
}

// hintFromFileName turns a document file name into a resolvable property
// mention: base name without extension, separators as spaces.
func hintFromFileName(fileName string) string {
	if fileName == "" {
		return ""
	}
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.TrimSpace(base)
}

func appendMissing(fields []string, name string) []string {
	for _, f := range fields {
		if f == name {
			return fields
		}
	}
	return append(fields, name)
}

func (o *Orchestrator) transition(runID string, res *Result, next constants.RunStatus) {
	o.logger.Debug("pipeline.state", "run_id", runID, "from", string(res.Status), "to", string(next))
	res.Status = next
}

func (o *Orchestrator) fail(runID string, res *Result, err error) Result {
	o.logger.Error("pipeline.failed", "run_id", runID, "state", string(res.Status), "error", err)
	res.Status = constants.RunStatusFailed
	res.Error = err.Error()
	// a provider outage may clear; a bad document never does
	res.Retryable = errors.Is(err, common.ErrAllProvidersFailed)
	return *res
}
