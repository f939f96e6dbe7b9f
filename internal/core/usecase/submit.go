package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/ports"
)

type SubmitDocumentUseCase struct {
	backend   ports.DocumentBackend
	inspector ports.ImageInspector
	converter ports.ImageConverter
	maxBytes  int64
	logger    *slog.Logger
}

func NewSubmitDocumentUseCase(
	backend ports.DocumentBackend,
	inspector ports.ImageInspector,
	converter ports.ImageConverter,
	maxBytes int64,
	logger *slog.Logger,
) *SubmitDocumentUseCase {
	if maxBytes <= 0 {
		maxBytes = domain.MaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitDocumentUseCase{
		backend:   backend,
		inspector: inspector,
		converter: converter,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Submit validates and prepares the images locally, then issues exactly one upload call.
// No request is sent when validation or HEIC conversion fails.
func (uc *SubmitDocumentUseCase) Submit(
	ctx context.Context,
	docType domain.DocumentType,
	primary domain.ImageFile,
	secondary *domain.ImageFile,
) (*domain.Document, error) {
	if !docType.Valid() {
		return nil, domain.Invalidf("unknown document type %q", docType)
	}
	if primary.Empty() {
		return nil, domain.Invalidf("Please upload at least the Recto (Front) image.")
	}
	if secondary != nil && secondary.Empty() {
		secondary = nil
	}

	images := []*domain.ImageFile{&primary}
	if secondary != nil {
		verso := *secondary
		images = append(images, &verso)
		secondary = &verso
	}

	for _, img := range images {
		if err := uc.checkSize(*img); err != nil {
			return nil, err
		}
	}

	if err := uc.prepare(ctx, images); err != nil {
		return nil, err
	}

	req := domain.UploadRequest{
		DocumentType: docType,
		Primary:      primary,
		Secondary:    secondary,
	}
	doc, err := uc.backend.Upload(ctx, req)
	if err != nil {
		uc.logger.Warn("document_upload_failed", "document_type", docType, "error", err)
		return nil, fmt.Errorf("upload document: %w", err)
	}
	if doc == nil || doc.ID == "" {
		return nil, domain.WrapError(domain.ErrServer, "upload document", fmt.Errorf("response carries no document id"))
	}
	if doc.Status == "" {
		doc.Status = domain.StatusPending
	}
	if !doc.Status.Valid() {
		return nil, domain.WrapError(domain.ErrServer, "upload document", fmt.Errorf("unexpected status %q", doc.Status))
	}

	uc.logger.Info("document_uploaded",
		"document_id", doc.ID,
		"document_type", docType,
		"status", doc.Status,
		"images", len(images),
	)
	return doc, nil
}

func (uc *SubmitDocumentUseCase) checkSize(img domain.ImageFile) error {
	if img.Size() > uc.maxBytes {
		return domain.Invalidf("%s is %.1f MB, which exceeds the %d MB limit",
			displayName(img), float64(img.Size())/(1024*1024), uc.maxBytes/(1024*1024))
	}
	return nil
}

// prepare resolves content types and converts HEIC/HEIF images in place.
// Every image is inspected before any conversion starts.
func (uc *SubmitDocumentUseCase) prepare(ctx context.Context, images []*domain.ImageFile) error {
	var pending []*domain.ImageFile
	for _, img := range images {
		contentType, heic := uc.inspector.Inspect(img.Name, img.Data)
		if heic {
			pending = append(pending, img)
			continue
		}
		if !strings.HasPrefix(contentType, "image/") {
			return domain.Invalidf("%s is not an image (detected %s); please upload a JPEG or PNG", displayName(*img), contentType)
		}
		img.ContentType = contentType
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, img := range pending {
		group.Go(func() error {
			converted, err := uc.converter.ConvertToJPEG(groupCtx, *img)
			if err != nil {
				return domain.ConversionFailed(fmt.Sprintf("could not convert %s to JPEG", displayName(*img)), err)
			}
			uc.logger.Debug("heic_converted", "name", img.Name, "bytes_in", img.Size(), "bytes_out", converted.Size())
			*img = converted
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	for _, img := range images {
		if err := uc.checkSize(*img); err != nil {
			return err
		}
	}
	return nil
}

func displayName(img domain.ImageFile) string {
	if img.Name == "" {
		return "image"
	}
	return img.Name
}
