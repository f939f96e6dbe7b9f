package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/ports"
)

// ReviewForm holds the editable copy of a completed document's extracted fields.
// It is seeded once; later server data never overwrites it.
type ReviewForm struct {
	documentID string
	docType    domain.DocumentType
	groups     []domain.FieldGroup
	values     domain.ExtractedData
	edited     map[string]bool
}

// NewReviewForm copies extracted into a form laid out by the schema groups for docType.
// Keys missing from extracted start empty; extra keys are kept and submitted unchanged.
func NewReviewForm(documentID string, docType domain.DocumentType, extracted domain.ExtractedData, schema domain.Schema) *ReviewForm {
	values := extracted.Clone()
	if values == nil {
		values = domain.ExtractedData{}
	}
	groups := schema.Groups(docType)
	for _, g := range groups {
		for _, f := range g.Fields {
			if _, ok := values[f.Key]; !ok {
				values[f.Key] = ""
			}
		}
	}
	return &ReviewForm{
		documentID: documentID,
		docType:    docType,
		groups:     groups,
		values:     values,
		edited:     make(map[string]bool),
	}
}

func (f *ReviewForm) DocumentID() string                { return f.documentID }
func (f *ReviewForm) DocumentType() domain.DocumentType { return f.docType }

func (f *ReviewForm) Groups() []domain.FieldGroup {
	out := make([]domain.FieldGroup, len(f.groups))
	for i, g := range f.groups {
		out[i] = domain.FieldGroup{Title: g.Title, Fields: slices.Clone(g.Fields)}
	}
	return out
}

func (f *ReviewForm) Value(key string) string {
	return f.values[key]
}

// Set records a user edit. Empty keys are rejected.
func (f *ReviewForm) Set(key, value string) error {
	if key == "" {
		return domain.Invalidf("field key is required")
	}
	f.values[key] = value
	f.edited[key] = true
	return nil
}

// Values returns every field value, edited or not.
func (f *ReviewForm) Values() domain.ExtractedData {
	return f.values.Clone()
}

// Edited returns the keys changed by the user, sorted.
func (f *ReviewForm) Edited() []string {
	keys := make([]string, 0, len(f.edited))
	for k := range f.edited {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns an independent copy.
func (f *ReviewForm) Clone() *ReviewForm {
	if f == nil {
		return nil
	}
	edited := make(map[string]bool, len(f.edited))
	for k, v := range f.edited {
		edited[k] = v
	}
	return &ReviewForm{
		documentID: f.documentID,
		docType:    f.docType,
		groups:     f.Groups(),
		values:     f.values.Clone(),
		edited:     edited,
	}
}

type ConfirmDocumentUseCase struct {
	backend ports.DocumentBackend
	logger  *slog.Logger
}

func NewConfirmDocumentUseCase(backend ports.DocumentBackend, logger *slog.Logger) *ConfirmDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmDocumentUseCase{backend: backend, logger: logger}
}

// Confirm sends the full field mapping as the confirmed data for documentID.
func (uc *ConfirmDocumentUseCase) Confirm(ctx context.Context, documentID string, fields domain.ExtractedData) (*domain.Document, error) {
	if documentID == "" {
		return nil, domain.Invalidf("document id is required")
	}
	if len(fields) == 0 {
		return nil, domain.Invalidf("No data provided")
	}

	doc, err := uc.backend.ConfirmDocument(ctx, documentID, fields)
	if err != nil {
		uc.logger.Warn("document_confirm_failed", "document_id", documentID, "error", err)
		return nil, fmt.Errorf("confirm document: %w", err)
	}
	if doc == nil {
		doc = &domain.Document{ID: documentID}
	}
	if doc.Status == "" {
		doc.Status = domain.StatusConfirmed
	}
	if doc.ExtractedData == nil {
		doc.ExtractedData = fields.Clone()
	}

	uc.logger.Info("document_confirmed", "document_id", documentID, "fields", len(fields))
	return doc, nil
}
