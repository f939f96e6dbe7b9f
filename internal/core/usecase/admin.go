package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/ports"
)

const exportPageSize = 100

type AdminUseCase struct {
	backend     ports.AdminBackend
	exporter    ports.DocumentExporter
	concurrency int
	logger      *slog.Logger
}

func NewAdminUseCase(backend ports.AdminBackend, exporter ports.DocumentExporter, logger *slog.Logger) *AdminUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminUseCase{
		backend:     backend,
		exporter:    exporter,
		concurrency: 4,
		logger:      logger,
	}
}

func (uc *AdminUseCase) Stats(ctx context.Context) (*domain.AdminStats, error) {
	stats, err := uc.backend.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load admin stats: %w", err)
	}
	return stats, nil
}

func (uc *AdminUseCase) List(ctx context.Context, page, perPage int, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	page, perPage = normalizePage(page, perPage)
	result, err := uc.backend.ListAllDocuments(ctx, page, perPage, filter)
	if err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}
	return result, nil
}

func (uc *AdminUseCase) Get(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, domain.Invalidf("document id is required")
	}
	doc, err := uc.backend.GetAnyDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Update applies an admin patch. Unlike users, admins may set any status.
func (uc *AdminUseCase) Update(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	if id == "" {
		return nil, domain.Invalidf("document id is required")
	}
	if patch.ExtractedData == nil && patch.Status == nil {
		return nil, domain.Invalidf("nothing to update")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.Invalidf("unknown status %q", *patch.Status)
	}
	doc, err := uc.backend.UpdateDocument(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	uc.logger.Info("admin_document_updated", "document_id", id, "status_changed", patch.Status != nil, "data_changed", patch.ExtractedData != nil)
	return doc, nil
}

func (uc *AdminUseCase) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.Invalidf("document id is required")
	}
	if err := uc.backend.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	uc.logger.Info("admin_document_deleted", "document_id", id)
	return nil
}

func (uc *AdminUseCase) Users(ctx context.Context) ([]domain.User, error) {
	users, err := uc.backend.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Export writes every document matching filter, plus the current stats, as a report.
// Pages after the first are fetched concurrently.
func (uc *AdminUseCase) Export(ctx context.Context, w io.Writer, filter domain.DocumentFilter) error {
	if uc.exporter == nil {
		return fmt.Errorf("export documents: no exporter configured")
	}
	if err := validateFilter(filter); err != nil {
		return err
	}

	var stats *domain.AdminStats
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s, err := uc.backend.Stats(groupCtx)
		if err != nil {
			return fmt.Errorf("load admin stats: %w", err)
		}
		stats = s
		return nil
	})

	first, err := uc.backend.ListAllDocuments(ctx, 1, exportPageSize, filter)
	if err != nil {
		_ = group.Wait()
		return fmt.Errorf("list all documents: %w", err)
	}

	pages := make([][]domain.Document, max(first.TotalPages, 1))
	pages[0] = first.Documents

	var mu sync.Mutex
	pageGroup, pageCtx := errgroup.WithContext(ctx)
	pageGroup.SetLimit(uc.concurrency)
	for page := 2; page <= first.TotalPages; page++ {
		pageGroup.Go(func() error {
			result, err := uc.backend.ListAllDocuments(pageCtx, page, exportPageSize, filter)
			if err != nil {
				return fmt.Errorf("list all documents page %d: %w", page, err)
			}
			mu.Lock()
			pages[page-1] = result.Documents
			mu.Unlock()
			return nil
		})
	}

	if err := pageGroup.Wait(); err != nil {
		_ = group.Wait()
		return err
	}
	if err := group.Wait(); err != nil {
		return err
	}

	var docs []domain.Document
	for _, p := range pages {
		docs = append(docs, p...)
	}
	if err := uc.exporter.Export(ctx, w, docs, stats); err != nil {
		return fmt.Errorf("export documents: %w", err)
	}
	uc.logger.Info("admin_documents_exported", "documents", len(docs), "pages", len(pages))
	return nil
}

func validateFilter(filter domain.DocumentFilter) error {
	if filter.DocumentType != "" && !filter.DocumentType.Valid() {
		return domain.Invalidf("unknown document type %q", filter.DocumentType)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.Invalidf("unknown status %q", filter.Status)
	}
	return nil
}

// JSONEditor holds the raw JSON text an admin edits for a document's extracted data.
// Applying malformed or non-object JSON leaves the last good value in place.
type JSONEditor struct {
	raw   string
	value domain.ExtractedData
}

func NewJSONEditor(data domain.ExtractedData) *JSONEditor {
	e := &JSONEditor{value: data.Clone()}
	if e.value == nil {
		e.value = domain.ExtractedData{}
	}
	e.raw = e.Format()
	return e
}

// Apply parses raw and reports whether it was accepted.
func (e *JSONEditor) Apply(raw string) bool {
	e.raw = raw
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var parsed domain.ExtractedData
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return false
	}
	if parsed == nil {
		parsed = domain.ExtractedData{}
	}
	e.value = parsed
	return true
}

func (e *JSONEditor) Raw() string { return e.raw }

func (e *JSONEditor) Value() domain.ExtractedData {
	return e.value.Clone()
}

// Format renders the current value as indented JSON.
func (e *JSONEditor) Format() string {
	out, err := json.MarshalIndent(e.value, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// Patch builds an admin update from the editor value and an optional status.
func (e *JSONEditor) Patch(status *domain.Status) domain.DocumentPatch {
	data := e.Value()
	return domain.DocumentPatch{ExtractedData: &data, Status: status}
}
