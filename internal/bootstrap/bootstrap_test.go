package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/AymaneHaj/Share-In/internal/adapters/http"
	"github.com/AymaneHaj/Share-In/internal/config"
	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/usecase"
	"github.com/AymaneHaj/Share-In/internal/observability/logging"
)

type harness struct {
	app     *App
	store   *httpadapter.Store
	uploads atomic.Int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{store: httpadapter.NewStore(httpadapter.StoreOptions{})}

	router := httpadapter.NewRouter(httpadapter.RouterOptions{Store: h.store, Logger: logging.Discard()})
	backend := router.Handler()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/documents/upload" {
			h.uploads.Add(1)
		}
		backend.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := config.Config{
		APIBaseURL:     server.URL + "/api",
		HTTPTimeout:    5 * time.Second,
		PollInterval:   20 * time.Millisecond,
		MaxUploadBytes: domain.MaxUploadBytes,
		HEICConverter:  "heif-convert",
		SessionStore:   config.SessionStoreFile,
		SessionPath:    filepath.Join(t.TempDir(), "session.json"),
		LogLevel:       "error",
	}
	app, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(app.Close)
	h.app = app

	_, err = app.Auth.Register(context.Background(), domain.Registration{
		Username: "amine", Email: "amine@example.com", Password: "secret", Name: "Amine",
	})
	require.NoError(t, err)
	return h
}

func jpeg(name string, size int) domain.ImageFile {
	data := make([]byte, size)
	copy(data, []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	return domain.ImageFile{Name: name, Data: data}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestUploadReviewAndConfirm(t *testing.T) {
	h := newHarness(t)
	ctx := waitCtx(t)

	lc := h.app.NewLifecycle()
	t.Cleanup(lc.Close)
	require.NoError(t, lc.LoadSchema(ctx))

	doc, err := lc.Submit(ctx, domain.IdentityCard, jpeg("front.jpg", 2048), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, doc.Status)
	assert.Equal(t, usecase.PhaseAwaitingProcessing, lc.Snapshot().Phase)

	_, err = h.store.Advance(doc.ID, domain.StatusProcessing, nil, "")
	require.NoError(t, err)
	_, err = h.store.Advance(doc.ID, domain.StatusCompleted, domain.ExtractedData{
		"first_name_fr": "Amine",
		"last_name_fr":  "Benali",
	}, "")
	require.NoError(t, err)

	snap, err := lc.WaitFor(ctx, usecase.PhaseAwaitingReview)
	require.NoError(t, err)
	require.Equal(t, usecase.PhaseAwaitingReview, snap.Phase)
	assert.Equal(t, "Amine", snap.Form.Value("first_name_fr"))
	assert.Len(t, snap.Form.Groups(), 2)

	require.NoError(t, lc.EditField("first_name_fr", "Amine B."))
	confirmed, err := lc.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	assert.Equal(t, usecase.PhaseConfirmed, lc.Snapshot().Phase)

	stored, err := h.app.Documents.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.Equal(t, "Amine B.", stored.ExtractedData["first_name_fr"])
	assert.Equal(t, "Benali", stored.ExtractedData["last_name_fr"])
	assert.EqualValues(t, 1, h.uploads.Load())
}

func TestFailedExtractionStopsPolling(t *testing.T) {
	h := newHarness(t)
	ctx := waitCtx(t)

	lc := h.app.NewLifecycle()
	t.Cleanup(lc.Close)

	doc, err := lc.Submit(ctx, domain.DrivingLicense, jpeg("permis.jpg", 1024), nil)
	require.NoError(t, err)

	_, err = h.store.Advance(doc.ID, domain.StatusFailed, nil, "low image quality")
	require.NoError(t, err)

	snap, err := lc.WaitFor(ctx, usecase.PhaseFailed)
	require.NoError(t, err)
	require.Equal(t, usecase.PhaseFailed, snap.Phase)
	assert.Equal(t, "low image quality", domain.UserMessage(snap.Err))
	assert.False(t, snap.Polling)
	assert.False(t, h.app.Poller.Active(doc.ID))

	err = lc.EditField("first_name_fr", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestOversizedUploadSendsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := waitCtx(t)

	lc := h.app.NewLifecycle()
	t.Cleanup(lc.Close)

	_, err := lc.Submit(ctx, domain.VehicleRegistration, jpeg("grise.jpg", 25*1024*1024), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualValues(t, 0, h.uploads.Load())

	snap := lc.Snapshot()
	assert.Equal(t, usecase.PhaseIdle, snap.Phase)
	assert.Error(t, snap.Err)
}

func TestExpiredTokenClearsSession(t *testing.T) {
	h := newHarness(t)
	ctx := waitCtx(t)

	stored, err := h.app.Sessions.Load(ctx)
	require.NoError(t, err)
	require.True(t, stored.Valid())

	require.NoError(t, h.app.Sessions.Save(ctx, &domain.Session{Token: "stale", User: stored.User}))

	_, err = h.app.Documents.ListDocuments(ctx, 1, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "Your session has expired. Please log in again.", domain.UserMessage(err))

	after, err := h.app.Sessions.Load(ctx)
	require.NoError(t, err)
	assert.False(t, after.Valid())
}
