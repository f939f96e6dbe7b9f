package usecase

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

type getResult struct {
	doc *domain.Document
	err error
}

// backendFake scripts the document backend. GetDocument walks gets in order
// and repeats the last entry once the script is exhausted.
type backendFake struct {
	mu sync.Mutex

	uploadDoc *domain.Document
	uploadErr error
	uploads   []domain.UploadRequest

	gets     []getResult
	getCalls int
	getHook  func(ctx context.Context, call int) (*domain.Document, error)

	confirmDoc *domain.Document
	confirmErr error
	confirmed  []domain.ExtractedData

	schema domain.Schema
	pages  map[int]*domain.DocumentPage
}

func (f *backendFake) Upload(_ context.Context, req domain.UploadRequest) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, req)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.uploadDoc.Clone(), nil
}

func (f *backendFake) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	call := f.getCalls
	f.getCalls++
	hook := f.getHook
	var res getResult
	if len(f.gets) > 0 {
		res = f.gets[min(call, len(f.gets)-1)]
	}
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx, call)
	}
	if res.err != nil {
		return nil, res.err
	}
	if res.doc == nil {
		return nil, errors.New("no scripted response")
	}
	doc := res.doc.Clone()
	doc.ID = id
	return doc, nil
}

func (f *backendFake) ConfirmDocument(_ context.Context, id string, data domain.ExtractedData) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, data.Clone())
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	if f.confirmDoc != nil {
		return f.confirmDoc.Clone(), nil
	}
	return &domain.Document{ID: id, Status: domain.StatusConfirmed, ExtractedData: data.Clone()}, nil
}

func (f *backendFake) FieldSchema(context.Context) (domain.Schema, error) {
	return f.schema, nil
}

func (f *backendFake) ListDocuments(_ context.Context, page, _ int) (*domain.DocumentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &domain.DocumentPage{Page: page}, nil
}

func (f *backendFake) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *backendFake) confirmCalls() []domain.ExtractedData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ExtractedData(nil), f.confirmed...)
}

func (f *backendFake) setConfirmErr(err error) {
	f.mu.Lock()
	f.confirmErr = err
	f.mu.Unlock()
}

// inspectorFake classifies by extension: .heic/.heif are HEIC, .pdf/.txt are not images.
type inspectorFake struct{}

func (inspectorFake) Inspect(name string, _ []byte) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".heic", ".heif":
		return "image/heic", true
	case ".png":
		return "image/png", false
	case ".pdf":
		return "application/pdf", false
	case ".txt":
		return "text/plain; charset=utf-8", false
	default:
		return "image/jpeg", false
	}
}

type converterFake struct {
	mu    sync.Mutex
	calls []string
	err   error
	out   []byte
}

func (f *converterFake) ConvertToJPEG(_ context.Context, img domain.ImageFile) (domain.ImageFile, error) {
	f.mu.Lock()
	f.calls = append(f.calls, img.Name)
	f.mu.Unlock()
	if f.err != nil {
		return domain.ImageFile{}, f.err
	}
	data := f.out
	if data == nil {
		data = []byte{0xFF, 0xD8, 0xFF, 0xE0}
	}
	name := strings.TrimSuffix(img.Name, filepath.Ext(img.Name)) + ".jpg"
	return domain.ImageFile{Name: name, ContentType: "image/jpeg", Data: data}, nil
}

type publisherFake struct {
	mu     sync.Mutex
	events []domain.LifecycleEvent
}

func (f *publisherFake) Publish(_ context.Context, event domain.LifecycleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *publisherFake) kinds() []domain.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventKind, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

type observerFake struct {
	mu          sync.Mutex
	ticks       []domain.Status
	transitions []string
}

func (f *observerFake) ObservePollTick(status domain.Status) {
	f.mu.Lock()
	f.ticks = append(f.ticks, status)
	f.mu.Unlock()
}

func (f *observerFake) ObserveTransition(from, to string) {
	f.mu.Lock()
	f.transitions = append(f.transitions, from+"->"+to)
	f.mu.Unlock()
}

type sessionStoreFake struct {
	session *domain.Session
	saveErr error
	cleared int
}

func (f *sessionStoreFake) Load(context.Context) (*domain.Session, error) {
	return f.session, nil
}

func (f *sessionStoreFake) Save(_ context.Context, s *domain.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.session = s
	return nil
}

func (f *sessionStoreFake) Clear(context.Context) error {
	f.session = nil
	f.cleared++
	return nil
}

type exporterFake struct {
	docs  []domain.Document
	stats *domain.AdminStats
}

func (f *exporterFake) Export(_ context.Context, w io.Writer, docs []domain.Document, stats *domain.AdminStats) error {
	f.docs = docs
	f.stats = stats
	_, err := io.WriteString(w, "report")
	return err
}

func jpeg(name string) domain.ImageFile {
	return domain.ImageFile{Name: name, Data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}}
}

func testSchema() domain.Schema {
	return domain.Schema{
		domain.IdentityCard: {
			{Title: "Recto", Fields: []domain.Field{{Key: "nom", Label: "Nom"}, {Key: "prenom", Label: "Prénom"}}},
			{Title: "Verso", Fields: []domain.Field{{Key: "adresse", Label: "Adresse"}}},
		},
	}
}
