package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentalops/reservations-tracker/constants"
	"github.com/rentalops/reservations-tracker/internal/async"
	"github.com/rentalops/reservations-tracker/internal/catalog"
	"github.com/rentalops/reservations-tracker/internal/common"
	"github.com/rentalops/reservations-tracker/internal/controlfile"
	"github.com/rentalops/reservations-tracker/internal/extract"
	"github.com/rentalops/reservations-tracker/internal/llm"
	"github.com/rentalops/reservations-tracker/internal/pipeline"
	"github.com/rentalops/reservations-tracker/internal/ratelimit"
)

type stubProvider struct {
	reply string
}

func (s *stubProvider) Name() string     { return "openai" }
func (s *stubProvider) Configured() bool { return true }

func (s *stubProvider) ExtractText(_ context.Context, _ string) (llm.Response, error) {
	return llm.Response{Provider: "openai", Text: s.reply}, nil
}

func (s *stubProvider) ParseReservation(_ context.Context, _ llm.ParseRequest) (llm.Response, error) {
	return llm.Response{Provider: "openai", Text: s.reply}, nil
}

func (s *stubProvider) GenerateText(_ context.Context, _ string, _ llm.GenerateOptions) (llm.Response, error) {
	return llm.Response{Provider: "openai", Text: s.reply}, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	provider := &stubProvider{
		reply: `{"reservations":[{"guest_name":"Ana","property_name":"Sete Rios","checkin_date":"2025-03-21","checkout_date":"2025-03-23","num_guests":2,"platform":"airbnb"}]}`,
	}
	orch := pipeline.NewOrchestrator(
		extract.NewExtractor(nil),
		controlfile.NewParser(nil),
		llm.NewSelector([]llm.Provider{provider}, []string{"openai"}, "", nil),
		ratelimit.NewLimiter(ratelimit.Config{MaxPerWindow: 100, CacheTTL: time.Minute}, nil),
		&catalog.Static{Entries: []catalog.Entry{{ID: 7, Name: "Sete Rios"}}},
		"EUR",
		nil,
	)
	return New(orch, async.Config{Workers: 1, BackoffBase: time.Millisecond}, nil)
}

func awaitTerminal(t *testing.T, s *Service, runID string) pipeline.Result {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res, err := s.GetResult(runID)
		require.NoError(t, err)
		if constants.Terminal(res.Status) {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal status")
	return pipeline.Result{}
}

func TestSubmitAndGetResult(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	s.Start(ctx)
	defer func() { _ = s.Shutdown(ctx) }()

	runID, err := s.SubmitDocument(ctx, extract.RawDocument{
		Content:  []byte("booking text for Ana at Sete Rios"),
		Kind:     constants.TEXT,
		FileName: "reserva.txt",
	})
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	res := awaitTerminal(t, s, runID)
	assert.Equal(t, constants.RunStatusAccepted, res.Status)
	require.Len(t, res.Drafts, 1)
	require.NotNil(t, res.Drafts[0].PropertyID)
	assert.Equal(t, int64(7), *res.Drafts[0].PropertyID)
}

type downProvider struct{}

func (d *downProvider) Name() string     { return "openai" }
func (d *downProvider) Configured() bool { return true }

func (d *downProvider) ExtractText(_ context.Context, _ string) (llm.Response, error) {
	return llm.Response{}, &llm.ProviderError{Provider: "openai", Kind: llm.ErrKindServer, Status: 500}
}

func (d *downProvider) ParseReservation(_ context.Context, _ llm.ParseRequest) (llm.Response, error) {
	return llm.Response{}, &llm.ProviderError{Provider: "openai", Kind: llm.ErrKindServer, Status: 500}
}

func (d *downProvider) GenerateText(_ context.Context, _ string, _ llm.GenerateOptions) (llm.Response, error) {
	return llm.Response{}, &llm.ProviderError{Provider: "openai", Kind: llm.ErrKindServer, Status: 500}
}

func TestExhaustedRetriesReleaseDocument(t *testing.T) {
	orch := pipeline.NewOrchestrator(
		extract.NewExtractor(nil),
		controlfile.NewParser(nil),
		llm.NewSelector([]llm.Provider{&downProvider{}}, []string{"openai"}, "", nil),
		ratelimit.NewLimiter(ratelimit.Config{MaxPerWindow: 100, CacheTTL: time.Minute}, nil),
		&catalog.Static{Entries: []catalog.Entry{{ID: 7, Name: "Sete Rios"}}},
		"EUR",
		nil,
	)
	s := New(orch, async.Config{Workers: 1, MaxAttempts: 2, BackoffBase: time.Millisecond}, nil)
	ctx := context.Background()
	s.Start(ctx)
	defer func() { _ = s.Shutdown(ctx) }()

	runID, err := s.SubmitDocument(ctx, extract.RawDocument{
		Content:  []byte("booking text for Ana"),
		Kind:     constants.TEXT,
		FileName: "reserva.txt",
	})
	require.NoError(t, err)

	res := awaitTerminal(t, s, runID)
	assert.Equal(t, constants.RunStatusFailed, res.Status)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.RLock()
		_, held := s.docs[runID]
		s.mu.RUnlock()
		if !held {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("document bytes still held after the pool gave up")
}

func TestSubmitEmptyDocument(t *testing.T) {
	s := newTestService(t)

	_, err := s.SubmitDocument(context.Background(), extract.RawDocument{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestGetResultUnknownRun(t *testing.T) {
	s := newTestService(t)

	_, err := s.GetResult("no-such-run")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSubmitPath(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	s.Start(ctx)
	defer func() { _ = s.Shutdown(ctx) }()

	dir := t.TempDir()
	path := filepath.Join(dir, "reserva.txt")
	require.NoError(t, os.WriteFile(path, []byte("booking text for Ana"), 0o644))

	runID, err := s.SubmitPath(ctx, path)
	require.NoError(t, err)
	res := awaitTerminal(t, s, runID)
	assert.Equal(t, constants.RunStatusAccepted, res.Status)
}

func TestSubmitPathUnsupportedExtension(t *testing.T) {
	s := newTestService(t)

	_, err := s.SubmitPath(context.Background(), "/tmp/picture.png")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
