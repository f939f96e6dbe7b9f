package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

func newSubmitter(backend *backendFake, converter *converterFake) *SubmitDocumentUseCase {
	return NewSubmitDocumentUseCase(backend, inspectorFake{}, converter, domain.MaxUploadBytes, nil)
}

func TestSubmitUploadsOnce(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1", Status: domain.StatusPending}}
	uc := newSubmitter(backend, &converterFake{})

	verso := jpeg("back.png")
	doc, err := uc.Submit(context.Background(), domain.IdentityCard, jpeg("front.jpg"), &verso)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, domain.StatusPending, doc.Status)

	require.Len(t, backend.uploads, 1)
	req := backend.uploads[0]
	assert.Equal(t, domain.IdentityCard, req.DocumentType)
	assert.Equal(t, "image/jpeg", req.Primary.ContentType)
	require.NotNil(t, req.Secondary)
	assert.Equal(t, "image/png", req.Secondary.ContentType)
}

func TestSubmitRequiresPrimaryImage(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1"}}
	uc := newSubmitter(backend, &converterFake{})

	_, err := uc.Submit(context.Background(), domain.DrivingLicense, domain.ImageFile{Name: "empty.jpg"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, "Please upload at least the Recto (Front) image.", domain.UserMessage(err))
	assert.Zero(t, backend.uploadCount())
}

func TestSubmitRejectsOversizedImageOfAnyType(t *testing.T) {
	for _, name := range []string{"big.jpg", "big.heic", "big.pdf"} {
		t.Run(name, func(t *testing.T) {
			backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1"}}
			converter := &converterFake{}
			uc := newSubmitter(backend, converter)

			big := domain.ImageFile{Name: name, Data: bytes.Repeat([]byte{1}, int(domain.MaxUploadBytes)+1)}
			_, err := uc.Submit(context.Background(), domain.IdentityCard, big, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			assert.Contains(t, domain.UserMessage(err), "20 MB")
			assert.Zero(t, backend.uploadCount())
			assert.Empty(t, converter.calls)
		})
	}
}

func TestSubmitAcceptsImageAtExactLimit(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1", Status: domain.StatusPending}}
	uc := newSubmitter(backend, &converterFake{})

	img := domain.ImageFile{Name: "edge.jpg", Data: make([]byte, domain.MaxUploadBytes)}
	_, err := uc.Submit(context.Background(), domain.IdentityCard, img, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.uploadCount())
}

func TestSubmitRejectsNonImage(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1"}}
	uc := newSubmitter(backend, &converterFake{})

	_, err := uc.Submit(context.Background(), domain.IdentityCard, jpeg("scan.pdf"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Zero(t, backend.uploadCount())
}

func TestSubmitRejectsUnknownDocumentType(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1"}}
	uc := newSubmitter(backend, &converterFake{})

	_, err := uc.Submit(context.Background(), domain.DocumentType("passport"), jpeg("a.jpg"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Zero(t, backend.uploadCount())
}

func TestSubmitConvertsHEICBeforeUpload(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1", Status: domain.StatusPending}}
	converter := &converterFake{}
	uc := newSubmitter(backend, converter)

	verso := jpeg("IMG_0002.HEIC")
	_, err := uc.Submit(context.Background(), domain.IdentityCard, jpeg("IMG_0001.heic"), &verso)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"IMG_0001.heic", "IMG_0002.HEIC"}, converter.calls)
	require.Len(t, backend.uploads, 1)
	req := backend.uploads[0]
	assert.Equal(t, "IMG_0001.jpg", req.Primary.Name)
	assert.Equal(t, "image/jpeg", req.Primary.ContentType)
	assert.Equal(t, "IMG_0002.jpg", req.Secondary.Name)
}

func TestSubmitValidatesEveryImageBeforeConverting(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1"}}
	converter := &converterFake{}
	uc := newSubmitter(backend, converter)

	verso := jpeg("back.pdf")
	_, err := uc.Submit(context.Background(), domain.IdentityCard, jpeg("IMG_0001.heic"), &verso)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Contains(t, domain.UserMessage(err), "back.pdf is not an image")
	assert.Empty(t, converter.calls)
	assert.Zero(t, backend.uploadCount())
}

func TestSubmitConversionFailureSendsNothing(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1"}}
	converter := &converterFake{err: errors.New("heif-convert: exit status 1")}
	uc := newSubmitter(backend, converter)

	_, err := uc.Submit(context.Background(), domain.IdentityCard, jpeg("IMG_0001.heic"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConversion))
	assert.Contains(t, domain.UserMessage(err), "could not convert IMG_0001.heic")
	assert.Zero(t, backend.uploadCount())
}

func TestSubmitRejectsConvertedImageOverLimit(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1"}}
	converter := &converterFake{out: make([]byte, 2048)}
	uc := NewSubmitDocumentUseCase(backend, inspectorFake{}, converter, 1024, nil)

	_, err := uc.Submit(context.Background(), domain.IdentityCard, jpeg("IMG_0001.heic"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Zero(t, backend.uploadCount())
}

func TestSubmitPropagatesBackendErrorKind(t *testing.T) {
	backend := &backendFake{uploadErr: domain.WrapError(domain.ErrNetwork, "upload", errors.New("connection refused"))}
	uc := newSubmitter(backend, &converterFake{})

	_, err := uc.Submit(context.Background(), domain.IdentityCard, jpeg("front.jpg"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	assert.Equal(t, 1, backend.uploadCount())
}

func TestSubmitRejectsResponseWithoutID(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{Status: domain.StatusPending}}
	uc := newSubmitter(backend, &converterFake{})

	_, err := uc.Submit(context.Background(), domain.IdentityCard, jpeg("front.jpg"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrServer))
}

func TestSubmitTreatsEmptySecondaryAsAbsent(t *testing.T) {
	backend := &backendFake{uploadDoc: &domain.Document{ID: "doc-1", Status: domain.StatusPending}}
	uc := newSubmitter(backend, &converterFake{})

	_, err := uc.Submit(context.Background(), domain.VehicleRegistration, jpeg("front.jpg"), &domain.ImageFile{})
	require.NoError(t, err)
	require.Len(t, backend.uploads, 1)
	assert.Nil(t, backend.uploads[0].Secondary)
}
