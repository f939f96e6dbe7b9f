package ports

import (
	"context"
	"io"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

// DocumentBackend is the document half of the Extraction Backend HTTP contract.
type DocumentBackend interface {
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.Document, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ConfirmDocument(ctx context.Context, id string, data domain.ExtractedData) (*domain.Document, error)
	FieldSchema(ctx context.Context) (domain.Schema, error)
	ListDocuments(ctx context.Context, page, perPage int) (*domain.DocumentPage, error)
}

// DocumentGetter is the only call the status poller needs.
type DocumentGetter interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// SchemaSource provides the review-form field layout.
type SchemaSource interface {
	FieldSchema(ctx context.Context) (domain.Schema, error)
}

// AdminBackend exposes the elevated variants of the document contract.
type AdminBackend interface {
	Stats(ctx context.Context) (*domain.AdminStats, error)
	ListAllDocuments(ctx context.Context, page, perPage int, filter domain.DocumentFilter) (*domain.DocumentPage, error)
	GetAnyDocument(ctx context.Context, id string) (*domain.Document, error)
	UpdateDocument(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// AuthBackend issues and inspects bearer tokens.
type AuthBackend interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.Session, error)
	Me(ctx context.Context) (*domain.User, error)
	Logout(ctx context.Context) error
	ChangePassword(ctx context.Context, current, next string) error
}

// SessionStore keeps the bearer token between CLI invocations.
type SessionStore interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Clear(ctx context.Context) error
}

// ImageInspector identifies the MIME type of raw image bytes.
type ImageInspector interface {
	Inspect(name string, data []byte) (contentType string, heic bool)
}

// ImageConverter turns HEIC/HEIF images into JPEG.
type ImageConverter interface {
	ConvertToJPEG(ctx context.Context, img domain.ImageFile) (domain.ImageFile, error)
}

// EventPublisher announces lifecycle events to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.LifecycleEvent) error
}

// DocumentExporter renders an admin listing into a report.
type DocumentExporter interface {
	Export(ctx context.Context, w io.Writer, docs []domain.Document, stats *domain.AdminStats) error
}

// LifecycleObserver receives lifecycle measurements.
type LifecycleObserver interface {
	ObservePollTick(status domain.Status)
	ObserveTransition(from, to string)
}
