package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

type adminBackendFake struct {
	mu        sync.Mutex
	docs      []domain.Document
	listCalls []int
	listErr   error
	updated   map[string]domain.DocumentPatch
	deleted   []string
}

func (f *adminBackendFake) Stats(context.Context) (*domain.AdminStats, error) {
	return &domain.AdminStats{TotalDocuments: len(f.docs)}, nil
}

func (f *adminBackendFake) ListAllDocuments(_ context.Context, page, perPage int, _ domain.DocumentFilter) (*domain.DocumentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, page)
	if f.listErr != nil && page > 1 {
		return nil, f.listErr
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(f.docs))
	totalPages := (len(f.docs) + perPage - 1) / perPage
	return &domain.DocumentPage{
		Documents:  append([]domain.Document(nil), f.docs[start:end]...),
		Total:      len(f.docs),
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

func (f *adminBackendFake) GetAnyDocument(_ context.Context, id string) (*domain.Document, error) {
	return &domain.Document{ID: id}, nil
}

func (f *adminBackendFake) UpdateDocument(_ context.Context, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	if f.updated == nil {
		f.updated = map[string]domain.DocumentPatch{}
	}
	f.updated[id] = patch
	return &domain.Document{ID: id}, nil
}

func (f *adminBackendFake) DeleteDocument(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *adminBackendFake) ListUsers(context.Context) ([]domain.User, error) {
	return []domain.User{{ID: "u1", Role: domain.RoleAdmin}}, nil
}

func TestAdminExportCollectsEveryPageInOrder(t *testing.T) {
	backend := &adminBackendFake{}
	for i := range 250 {
		backend.docs = append(backend.docs, domain.Document{ID: fmt.Sprintf("doc-%03d", i)})
	}
	exporter := &exporterFake{}
	uc := NewAdminUseCase(backend, exporter, nil)

	var buf bytes.Buffer
	require.NoError(t, uc.Export(context.Background(), &buf, domain.DocumentFilter{Status: domain.StatusCompleted}))

	assert.Equal(t, "report", buf.String())
	require.Len(t, exporter.docs, 250)
	for i, doc := range exporter.docs {
		assert.Equal(t, fmt.Sprintf("doc-%03d", i), doc.ID)
	}
	require.NotNil(t, exporter.stats)
	assert.Equal(t, 250, exporter.stats.TotalDocuments)
	assert.ElementsMatch(t, []int{1, 2, 3}, backend.listCalls)
}

func TestAdminExportStopsOnPageError(t *testing.T) {
	backend := &adminBackendFake{listErr: domain.WrapError(domain.ErrServer, "list", errors.New("500"))}
	for i := range 150 {
		backend.docs = append(backend.docs, domain.Document{ID: fmt.Sprintf("doc-%d", i)})
	}
	exporter := &exporterFake{}
	uc := NewAdminUseCase(backend, exporter, nil)

	err := uc.Export(context.Background(), &bytes.Buffer{}, domain.DocumentFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrServer))
	assert.Nil(t, exporter.docs)
}

func TestAdminListRejectsUnknownFilter(t *testing.T) {
	uc := NewAdminUseCase(&adminBackendFake{}, nil, nil)

	_, err := uc.List(context.Background(), 1, 20, domain.DocumentFilter{Status: "archived"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestAdminUpdateValidatesPatch(t *testing.T) {
	backend := &adminBackendFake{}
	uc := NewAdminUseCase(backend, nil, nil)
	ctx := context.Background()

	_, err := uc.Update(ctx, "doc-1", domain.DocumentPatch{})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	bad := domain.Status("archived")
	_, err = uc.Update(ctx, "doc-1", domain.DocumentPatch{Status: &bad})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	status := domain.StatusPending
	_, err = uc.Update(ctx, "doc-1", domain.DocumentPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, *backend.updated["doc-1"].Status)
}

func TestJSONEditorIgnoresMalformedInput(t *testing.T) {
	editor := NewJSONEditor(domain.ExtractedData{"nom": "ALAMI"})

	assert.False(t, editor.Apply(`{"nom": "ALA`))
	assert.Equal(t, domain.ExtractedData{"nom": "ALAMI"}, editor.Value())
	assert.Equal(t, `{"nom": "ALA`, editor.Raw())

	assert.False(t, editor.Apply(`["nom"]`))
	assert.Equal(t, domain.ExtractedData{"nom": "ALAMI"}, editor.Value())

	assert.True(t, editor.Apply(`{"nom": "ALAOUI", "age": 42}`))
	assert.Equal(t, domain.ExtractedData{"nom": "ALAOUI", "age": "42"}, editor.Value())

	status := domain.StatusConfirmed
	patch := editor.Patch(&status)
	require.NotNil(t, patch.ExtractedData)
	assert.Equal(t, "ALAOUI", (*patch.ExtractedData)["nom"])
	assert.Equal(t, domain.StatusConfirmed, *patch.Status)
}

func TestJSONEditorFormatsIndented(t *testing.T) {
	editor := NewJSONEditor(domain.ExtractedData{"nom": "ALAMI"})
	assert.Equal(t, "{\n  \"nom\": \"ALAMI\"\n}", editor.Format())
	assert.Equal(t, editor.Format(), editor.Raw())
}
