package ports

import (
	"context"
	"io"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

// DocumentSubmitter is the inbound contract for validated uploads.
type DocumentSubmitter interface {
	Submit(ctx context.Context, docType domain.DocumentType, primary domain.ImageFile, secondary *domain.ImageFile) (*domain.Document, error)
}

// DocumentConfirmer submits reviewed field values.
type DocumentConfirmer interface {
	Confirm(ctx context.Context, documentID string, fields domain.ExtractedData) (*domain.Document, error)
}

// DocumentReader is the inbound read model for a user's own documents.
type DocumentReader interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, page, perPage int) (*domain.DocumentPage, error)
	FieldSchema(ctx context.Context) (domain.Schema, error)
}

// DocumentAdministrator is the inbound contract for admin views.
type DocumentAdministrator interface {
	Stats(ctx context.Context) (*domain.AdminStats, error)
	List(ctx context.Context, page, perPage int, filter domain.DocumentFilter) (*domain.DocumentPage, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	Update(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
	Users(ctx context.Context) ([]domain.User, error)
	Export(ctx context.Context, w io.Writer, filter domain.DocumentFilter) error
}

// Authenticator is the inbound contract for session management.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.Session, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.User, error)
	ChangePassword(ctx context.Context, current, next string) error
}
