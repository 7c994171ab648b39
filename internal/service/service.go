package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/rentalops/reservations-tracker/constants"
	"github.com/rentalops/reservations-tracker/internal/async"
	"github.com/rentalops/reservations-tracker/internal/common"
	"github.com/rentalops/reservations-tracker/internal/extract"
	"github.com/rentalops/reservations-tracker/internal/pipeline"
)

// Service is the inbound surface of the pipeline: SubmitDocument hands a
// document to the worker pool and returns a run ID; GetResult reads the run
// store. The API layer that exposes this over HTTP is a separate collaborator.
type Service struct {
	orch   *pipeline.Orchestrator
	pool   *async.Pool
	logger *slog.Logger

	mu   sync.RWMutex
	runs map[string]pipeline.Result
	docs map[string]extract.RawDocument
}

func New(orch *pipeline.Orchestrator, poolCfg async.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		orch:   orch,
		logger: logger,
		runs:   make(map[string]pipeline.Result),
		docs:   make(map[string]extract.RawDocument),
	}
	// once the pool gives up on a job its document bytes have no further use
	poolCfg.OnDrop = s.evictDoc
	s.pool = async.NewPool(poolCfg, s.handle, logger)
	return s
}

func (s *Service) evictDoc(job async.Job) {
	s.mu.Lock()
	delete(s.docs, job.RunID)
	s.mu.Unlock()
}

// Start launches the worker pool.
func (s *Service) Start(ctx context.Context) { s.pool.Start(ctx) }

// Shutdown drains in-flight runs.
func (s *Service) Shutdown(ctx context.Context) error { return s.pool.Shutdown(ctx) }

// SubmitDocument accepts a document for asynchronous extraction and returns
// the run ID to poll with GetResult.
func (s *Service) SubmitDocument(ctx context.Context, doc extract.RawDocument) (string, error) {
	if len(doc.Content) == 0 {
		return "", common.NewAppError("SUBMIT", "empty document", common.ErrInvalidInput)
	}
	runID := uuid.NewString()

	s.mu.Lock()
	s.runs[runID] = pipeline.Result{RunID: runID, Status: constants.RunStatusReceived, Drafts: []pipeline.Draft{}}
	s.docs[runID] = doc
	s.mu.Unlock()

	if err := s.pool.Enqueue(ctx, async.Job{RunID: runID, Path: doc.FileName}); err != nil {
		s.mu.Lock()
		delete(s.runs, runID)
		delete(s.docs, runID)
		s.mu.Unlock()
		return "", err
	}
	s.logger.Info("service.submit", "run_id", runID, "file_name", doc.FileName, "bytes", len(doc.Content))
	return runID, nil
}

// SubmitPath reads a document from disk (inbox watcher hand-off) and submits
// it, deriving the kind from the file extension.
func (s *Service) SubmitPath(ctx context.Context, path string) (string, error) {
	kind := constants.MapExtToKind(filepath.Ext(path))
	if kind == "" {
		return "", common.NewAppError("SUBMIT", "unsupported file type "+filepath.Ext(path), common.ErrInvalidInput)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", common.NewAppError("SUBMIT", "read "+path, common.ErrInvalidInput)
	}
	return s.SubmitDocument(ctx, extract.RawDocument{
		Content:  content,
		Kind:     kind,
		FileName: filepath.Base(path),
	})
}

// GetResult returns the current state of a run; terminal once the status is
// Accepted, NeedsReview, or Failed.
func (s *Service) GetResult(runID string) (pipeline.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.runs[runID]
	if !ok {
		return pipeline.Result{}, common.NewAppError("RESULT", "unknown run "+runID, common.ErrNotFound)
	}
	return res, nil
}

// handle is the worker-pool handler: it runs the orchestrator for a queued
// document. A retryable failure (provider outage) reports an error so the
// pool's bounded retry applies; everything else is terminal on first pass.
func (s *Service) handle(ctx context.Context, job async.Job) error {
	s.mu.RLock()
	doc, ok := s.docs[job.RunID]
	s.mu.RUnlock()
	if !ok {
		return nil // run evicted or already finished
	}

	res := s.orch.Run(common.WithRunID(ctx, job.RunID), doc)

	s.mu.Lock()
	s.runs[job.RunID] = res
	if res.Status != constants.RunStatusFailed || !res.Retryable {
		delete(s.docs, job.RunID)
	}
	s.mu.Unlock()

	if res.Status == constants.RunStatusFailed && res.Retryable {
		return common.NewAppError("RUN", res.Error, common.ErrProviderUnavailable)
	}
	return nil
}
