package usecase

import (
	"context"
	"fmt"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/ports"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// DocumentQueryUseCase serves the signed-in user's own documents.
type DocumentQueryUseCase struct {
	backend ports.DocumentBackend
}

func NewDocumentQueryUseCase(backend ports.DocumentBackend) *DocumentQueryUseCase {
	return &DocumentQueryUseCase{backend: backend}
}

func (uc *DocumentQueryUseCase) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, domain.Invalidf("document id is required")
	}
	doc, err := uc.backend.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (uc *DocumentQueryUseCase) ListDocuments(ctx context.Context, page, perPage int) (*domain.DocumentPage, error) {
	page, perPage = normalizePage(page, perPage)
	result, err := uc.backend.ListDocuments(ctx, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return result, nil
}

func (uc *DocumentQueryUseCase) FieldSchema(ctx context.Context) (domain.Schema, error) {
	schema, err := uc.backend.FieldSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("load field schema: %w", err)
	}
	return schema, nil
}

func normalizePage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
