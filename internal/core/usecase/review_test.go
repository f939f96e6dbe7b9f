package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

func TestNewReviewFormSeedsSchemaFields(t *testing.T) {
	extracted := domain.ExtractedData{"nom": "ALAMI", "numero_cin": "AB123456"}
	form := NewReviewForm("doc-1", domain.IdentityCard, extracted, testSchema())

	groups := form.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "Recto", groups[0].Title)
	assert.Equal(t, "ALAMI", form.Value("nom"))
	assert.Equal(t, "", form.Value("prenom"))
	assert.Equal(t, "AB123456", form.Value("numero_cin"), "keys outside the schema are kept")

	values := form.Values()
	assert.Len(t, values, 4)
	assert.Empty(t, form.Edited())
}

func TestNewReviewFormUnknownTypeHasNoGroups(t *testing.T) {
	form := NewReviewForm("doc-1", domain.VehicleRegistration, domain.ExtractedData{"marque": "DACIA"}, testSchema())

	assert.NotNil(t, form.Groups())
	assert.Empty(t, form.Groups())
	assert.Equal(t, "DACIA", form.Value("marque"))
}

func TestReviewFormDoesNotAliasSource(t *testing.T) {
	extracted := domain.ExtractedData{"nom": "ALAMI"}
	form := NewReviewForm("doc-1", domain.IdentityCard, extracted, testSchema())

	extracted["nom"] = "CHANGED"
	assert.Equal(t, "ALAMI", form.Value("nom"))

	values := form.Values()
	values["nom"] = "MUTATED"
	assert.Equal(t, "ALAMI", form.Value("nom"))
}

func TestReviewFormSetTracksEdits(t *testing.T) {
	form := NewReviewForm("doc-1", domain.IdentityCard, domain.ExtractedData{"nom": "ALAMI"}, testSchema())

	require.NoError(t, form.Set("prenom", "Yassine"))
	require.NoError(t, form.Set("nom", "ALAOUI"))
	assert.Equal(t, []string{"nom", "prenom"}, form.Edited())
	assert.Equal(t, "ALAOUI", form.Value("nom"))

	err := form.Set("", "x")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	clone := form.Clone()
	require.NoError(t, clone.Set("nom", "OTHER"))
	assert.Equal(t, "ALAOUI", form.Value("nom"))
}

func TestConfirmSendsEveryValue(t *testing.T) {
	backend := &backendFake{}
	uc := NewConfirmDocumentUseCase(backend, nil)

	fields := domain.ExtractedData{"nom": "ALAMI", "prenom": ""}
	doc, err := uc.Confirm(context.Background(), "doc-1", fields)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, doc.Status)
	require.Len(t, backend.confirmed, 1)
	assert.Equal(t, fields, backend.confirmed[0])
}

func TestConfirmRejectsEmptyPayload(t *testing.T) {
	backend := &backendFake{}
	uc := NewConfirmDocumentUseCase(backend, nil)

	_, err := uc.Confirm(context.Background(), "doc-1", domain.ExtractedData{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, backend.confirmed)
}
