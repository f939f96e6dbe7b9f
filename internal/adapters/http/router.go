package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

const metricsService = "devbackend"

// Recorder receives domain measurements from the dev backend.
type Recorder interface {
	RecordUpload(service, documentType string)
	RecordTransition(service, status string)
	RecordConfirm(service string, err error)
}

var allowedExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "jpe": true, "jfif": true,
	"webp": true, "gif": true, "bmp": true, "tiff": true, "tif": true,
	"svg": true, "ico": true, "heic": true, "heif": true,
	"avif": true, "jp2": true, "j2k": true, "jpx": true,
}

type RouterOptions struct {
	Store    *Store
	Schema   domain.Schema
	Recorder Recorder
	// Metrics serves /metrics when set; Instrument wraps every request.
	Metrics    http.Handler
	Instrument func(http.Handler) http.Handler
	Logger     *slog.Logger

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
	MaxUploadBytes int64
}

// Router serves the Extraction Backend HTTP contract from an in-memory Store.
type Router struct {
	store    *Store
	schema   domain.Schema
	recorder Recorder
	logger   *slog.Logger
	opts     RouterOptions
}

func NewRouter(opts RouterOptions) *Router {
	if opts.Schema == nil {
		opts.Schema = DefaultSchema()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = domain.MaxUploadBytes
	}
	if opts.QueueWait <= 0 {
		opts.QueueWait = 250 * time.Millisecond
	}
	return &Router{
		store:    opts.Store,
		schema:   opts.Schema,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/auth/register", rt.register)
	api.HandleFunc("POST /api/auth/login", rt.login)
	api.HandleFunc("GET /api/auth/me", rt.requireUser(rt.me))
	api.HandleFunc("POST /api/auth/logout", rt.requireUser(rt.logout))
	api.HandleFunc("PUT /api/auth/change-password", rt.requireUser(rt.changePassword))

	api.HandleFunc("GET /api/documents/schema", rt.fieldSchema)
	api.HandleFunc("POST /api/documents/upload", rt.requireUser(rt.uploadDocument))
	api.HandleFunc("GET /api/documents", rt.requireUser(rt.listDocuments))
	api.HandleFunc("GET /api/documents/{document_id}", rt.requireUser(rt.getDocument))
	api.HandleFunc("PUT /api/documents/{document_id}/confirm", rt.requireUser(rt.confirmDocument))

	api.HandleFunc("GET /api/admin/stats", rt.requireAdmin(rt.adminStats))
	api.HandleFunc("GET /api/admin/documents", rt.requireAdmin(rt.adminListDocuments))
	api.HandleFunc("GET /api/admin/documents/{document_id}", rt.requireAdmin(rt.adminGetDocument))
	api.HandleFunc("PUT /api/admin/documents/{document_id}", rt.requireAdmin(rt.adminUpdateDocument))
	api.HandleFunc("DELETE /api/admin/documents/{document_id}", rt.requireAdmin(rt.adminDeleteDocument))
	api.HandleFunc("GET /api/admin/users", rt.requireAdmin(rt.adminUsers))

	var limited http.Handler = api
	limited = backpressureMiddleware(limited, rt.opts.MaxInFlight, rt.opts.QueueWait)
	if rt.opts.RateLimitRPS > 0 {
		burst := max(rt.opts.RateLimitBurst, 1)
		limited = rateLimitMiddleware(limited, rate.NewLimiter(rate.Limit(rt.opts.RateLimitRPS), burst))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.opts.Metrics != nil {
		mux.Handle("GET /metrics", rt.opts.Metrics)
	}
	mux.Handle("/api/", otelhttp.NewHandler(limited, "devbackend",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))

	var handler http.Handler = mux
	if rt.opts.Instrument != nil {
		handler = rt.opts.Instrument(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionResponse struct {
	Message     string      `json:"message"`
	AccessToken string      `json:"access_token"`
	User        domain.User `json:"user"`
}

func (rt *Router) register(w http.ResponseWriter, r *http.Request) {
	var reg domain.Registration
	if err := decodeJSON(r, &reg); err != nil {
		writeError(w, err)
		return
	}
	user, err := rt.store.Register(reg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		Message:     "User registered successfully",
		AccessToken: rt.store.IssueToken(user.ID),
		User:        user,
	})
}

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, err)
		return
	}
	user, err := rt.store.Login(creds.Email, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Message:     "Login successful",
		AccessToken: rt.store.IssueToken(user.ID),
		User:        user,
	})
}

func (rt *Router) me(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

func (rt *Router) logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearerToken(r); ok {
		rt.store.RevokeToken(token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (rt *Router) changePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	user, _ := userFromContext(r.Context())
	if err := rt.store.ChangePassword(user.ID, body.Current, body.New); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

func (rt *Router) fieldSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.schema)
}

type uploadResponse struct {
	domain.Document
	DocumentID string `json:"document_id"`
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 2*rt.opts.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "File too large"})
			return
		}
		writeError(w, apiError(domain.ErrValidation, "multipart form is required"))
		return
	}

	docType := domain.DocumentType(r.FormValue("document_type"))
	switch {
	case docType == "":
		writeError(w, apiError(domain.ErrValidation, "document_type is required"))
		return
	case !docType.Valid():
		writeError(w, apiError(domain.ErrValidation, "Invalid document_type. Must be one of: cin, driving_license, vehicle_registration"))
		return
	}

	recto := formFile(r.MultipartForm, "file_recto")
	if recto == nil {
		recto = formFile(r.MultipartForm, "file")
	}
	if recto == nil {
		writeError(w, apiError(domain.ErrValidation, "Recto (Front) file is required"))
		return
	}
	if !allowedFile(recto.Filename) {
		writeError(w, apiError(domain.ErrValidation, "Invalid recto file format. Only image files are allowed."))
		return
	}
	if recto.Size > rt.opts.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "File too large"})
		return
	}

	var verso *UploadedFile
	if header := formFile(r.MultipartForm, "file_verso"); header != nil {
		if !allowedFile(header.Filename) {
			writeError(w, apiError(domain.ErrValidation, "Invalid verso file format. Only image files are allowed."))
			return
		}
		if header.Size > rt.opts.MaxUploadBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "File too large"})
			return
		}
		verso = &UploadedFile{Filename: header.Filename, Size: header.Size}
	}

	doc := rt.store.CreateDocument(user.ID, docType, UploadedFile{Filename: recto.Filename, Size: recto.Size}, verso)
	if rt.recorder != nil {
		rt.recorder.RecordUpload(metricsService, string(docType))
	}
	rt.logger.Info("document_uploaded",
		"request_id", requestIDFromContext(r.Context()),
		"document_id", doc.ID,
		"document_type", docType,
		"user_id", user.ID,
	)
	writeJSON(w, http.StatusAccepted, uploadResponse{Document: doc, DocumentID: doc.ID})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	page, perPage, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.store.ListDocuments(user.ID, page, perPage))
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	doc, err := rt.store.Document(user.ID, r.PathValue("document_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type documentEnvelope struct {
	Message  string          `json:"message"`
	Document domain.Document `json:"document"`
}

func (rt *Router) confirmDocument(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	var data domain.ExtractedData
	if err := decodeJSON(r, &data); err != nil {
		writeError(w, err)
		return
	}
	doc, err := rt.store.Confirm(user.ID, r.PathValue("document_id"), data)
	if rt.recorder != nil {
		rt.recorder.RecordConfirm(metricsService, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentEnvelope{Message: "document confirmed successfully", Document: doc})
}

func (rt *Router) adminStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.store.Stats())
}

func (rt *Router) adminListDocuments(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	query := r.URL.Query()
	filter := domain.DocumentFilter{
		DocumentType: domain.DocumentType(query.Get("document_type")),
		Status:       domain.Status(query.Get("status")),
		UserID:       query.Get("user_id"),
	}
	writeJSON(w, http.StatusOK, rt.store.AdminList(filter, page, perPage))
}

func (rt *Router) adminGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.store.AdminDocument(r.PathValue("document_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) adminUpdateDocument(w http.ResponseWriter, r *http.Request) {
	var patch domain.DocumentPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	doc, err := rt.store.AdminUpdate(r.PathValue("document_id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentEnvelope{Message: "Document updated successfully", Document: doc})
}

func (rt *Router) adminDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.store.AdminDelete(r.PathValue("document_id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully"})
}

func (rt *Router) adminUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"users": rt.store.Users()})
}

func decodeJSON(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return apiError(domain.ErrValidation, "invalid JSON body")
	}
	return nil
}

func pageParams(r *http.Request) (int, int, error) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	perPage, err := intParam(r, "per_page", 10)
	if err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, apiError(domain.ErrValidation, "%s must be a positive integer", name)
	}
	return value, nil
}

func formFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	headers := form.File[field]
	if len(headers) == 0 || headers[0].Filename == "" {
		return nil
	}
	return headers[0]
}

func allowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return allowedExtensions[ext]
}
