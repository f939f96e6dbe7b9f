package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

const extractionFailedMessage = "AI failed to extract data."

// Simulator stands in for the extraction pipeline: every Step moves pending
// documents to processing and processing documents to a terminal status.
type Simulator struct {
	store    *Store
	schema   domain.Schema
	recorder Recorder
	logger   *slog.Logger
}

func NewSimulator(store *Store, schema domain.Schema, recorder Recorder, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{store: store, schema: schema, recorder: recorder, logger: logger}
}

// Step advances every in-progress document by one status and returns how many moved.
// Filenames containing "blurry" end in failed.
func (s *Simulator) Step() int {
	moved := 0
	for _, doc := range s.store.InProgress() {
		var (
			next   domain.Status
			data   domain.ExtractedData
			reason string
		)
		switch {
		case doc.Status == domain.StatusPending:
			next = domain.StatusProcessing
		case strings.Contains(strings.ToLower(doc.Filename), "blurry"):
			next = domain.StatusFailed
			reason = extractionFailedMessage
		default:
			next = domain.StatusCompleted
			data = s.sampleData(doc.DocumentType)
		}

		if _, err := s.store.Advance(doc.ID, next, data, reason); err != nil {
			// deleted by an admin between listing and advancing
			s.logger.Debug("simulator_advance_skipped", "document_id", doc.ID, "error", err)
			continue
		}
		moved++
		if s.recorder != nil {
			s.recorder.RecordTransition(metricsService, string(next))
		}
		s.logger.Info("document_advanced", "document_id", doc.ID, "status", next)
	}
	return moved
}

// Run steps every interval until ctx is done.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

func (s *Simulator) sampleData(docType domain.DocumentType) domain.ExtractedData {
	data := make(domain.ExtractedData)
	for _, key := range s.schema.Keys(docType) {
		data[key] = sampleValue(key)
	}
	return data
}

func sampleValue(key string) string {
	switch {
	case strings.Contains(key, "date"):
		return "2030-01-01"
	case strings.HasSuffix(key, "_ar"):
		return "نموذج"
	case key == "sex":
		return "M"
	case strings.Contains(key, "number"):
		return "AB123456"
	default:
		return "SAMPLE"
	}
}
