package httpadapter

import (
	"crypto/sha256"
	"crypto/subtle"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

type storedUser struct {
	user      domain.User
	salt      string
	password  [32]byte
	active    bool
	createdAt time.Time
}

type storedDocument struct {
	doc     domain.Document
	ownerID string
	// data is kept even while the status hides it from responses.
	data domain.ExtractedData
}

// InProgress is a document the simulator still has to move forward.
type InProgress struct {
	ID           string
	DocumentType domain.DocumentType
	Status       domain.Status
	Filename     string
}

type StoreOptions struct {
	// Admins lists emails that receive the admin role on registration.
	Admins []string
	Now    func() time.Time
}

// Store is the dev backend's in-memory database. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*storedUser
	byEmail    map[string]string
	byUsername map[string]string
	tokens     map[string]string
	docs       map[string]*storedDocument
	admins     map[string]bool
	now        func() time.Time
}

func NewStore(opts StoreOptions) *Store {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	admins := make(map[string]bool, len(opts.Admins))
	for _, email := range opts.Admins {
		admins[normalizeEmail(email)] = true
	}
	return &Store{
		users:      make(map[string]*storedUser),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		tokens:     make(map[string]string),
		docs:       make(map[string]*storedDocument),
		admins:     admins,
		now:        now,
	}
}

func (s *Store) Register(reg domain.Registration) (domain.User, error) {
	required := []struct{ name, value string }{
		{"username", reg.Username},
		{"email", reg.Email},
		{"password", reg.Password},
		{"name", reg.Name},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return domain.User{}, apiError(domain.ErrValidation, "%s is required", field.name)
		}
	}

	email := normalizeEmail(reg.Email)
	username := strings.TrimSpace(reg.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return domain.User{}, apiError(domain.ErrValidation, "Email already registered")
	}
	if _, taken := s.byUsername[username]; taken {
		return domain.User{}, apiError(domain.ErrValidation, "Username already taken")
	}

	role := domain.RoleUser
	if s.admins[email] {
		role = domain.RoleAdmin
	}
	now := s.now()
	u := &storedUser{
		user: domain.User{
			ID:       uuid.NewString(),
			Username: username,
			Email:    email,
			Name:     strings.TrimSpace(reg.Name),
			Role:     role,
		},
		salt:      uuid.NewString(),
		active:    true,
		createdAt: now,
	}
	u.password = hashPassword(u.salt, reg.Password)
	s.users[u.user.ID] = u
	s.byEmail[email] = u.user.ID
	s.byUsername[username] = u.user.ID
	return u.user, nil
}

func (s *Store) Login(email, password string) (domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.User{}, apiError(domain.ErrValidation, "Email and password are required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return domain.User{}, apiError(domain.ErrUnauthorized, "Invalid username or password")
	}
	u := s.users[id]
	if !u.checkPassword(password) {
		return domain.User{}, apiError(domain.ErrUnauthorized, "Invalid username or password")
	}
	if !u.active {
		return domain.User{}, apiError(domain.ErrUnauthorized, "Account is disabled")
	}
	return u.user, nil
}

func (s *Store) IssueToken(userID string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
	return token
}

func (s *Store) RevokeToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// Authenticate resolves a bearer token to its active user.
func (s *Store) Authenticate(token string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tokens[token]
	if !ok {
		return domain.User{}, apiError(domain.ErrUnauthorized, "Token has expired")
	}
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, apiError(domain.ErrUnauthorized, "User not found")
	}
	if !u.active {
		return domain.User{}, apiError(domain.ErrUnauthorized, "Account is disabled")
	}
	return u.user, nil
}

func (s *Store) ChangePassword(userID, current, next string) error {
	if current == "" || next == "" {
		return apiError(domain.ErrValidation, "Current and new passwords are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return apiError(domain.ErrNotFound, "User not found")
	}
	if !u.checkPassword(current) {
		return apiError(domain.ErrUnauthorized, "Current password is incorrect")
	}
	u.password = hashPassword(u.salt, next)
	return nil
}

func (s *Store) SetActive(userID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return apiError(domain.ErrNotFound, "User not found")
	}
	u.active = active
	return nil
}

func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := make([]*storedUser, 0, len(s.users))
	for _, u := range s.users {
		stored = append(stored, u)
	}
	slices.SortFunc(stored, func(a, b *storedUser) int { return b.createdAt.Compare(a.createdAt) })

	out := make([]domain.User, 0, len(stored))
	for _, u := range stored {
		user := u.user
		active := u.active
		user.IsActive = &active
		user.CreatedAt = u.createdAt.Format(time.RFC3339)
		out = append(out, user)
	}
	return out
}

// UploadedFile names one multipart file of an upload.
type UploadedFile struct {
	Filename string
	Size     int64
}

func (s *Store) CreateDocument(ownerID string, docType domain.DocumentType, recto UploadedFile, verso *UploadedFile) domain.Document {
	now := s.now()
	id := uuid.NewString()
	doc := domain.Document{
		ID:               id,
		DocumentType:     docType,
		Status:           domain.StatusPending,
		OriginalFilename: recto.Filename,
		ImagePathRecto:   "memory://" + id + "/recto/" + recto.Filename,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if verso != nil {
		doc.OriginalFilename = recto.Filename + ", " + verso.Filename
		doc.ImagePathVerso = "memory://" + id + "/verso/" + verso.Filename
	}

	s.mu.Lock()
	s.docs[id] = &storedDocument{doc: doc, ownerID: ownerID}
	s.mu.Unlock()
	return doc
}

// Document returns one of ownerID's documents.
func (s *Store) Document(ownerID, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.docs[id]
	if !ok || sd.ownerID != ownerID {
		return domain.Document{}, apiError(domain.ErrNotFound, "document not found")
	}
	return sd.view(), nil
}

func (s *Store) ListDocuments(ownerID string, page, perPage int) domain.DocumentPage {
	return s.list(page, perPage, false, func(sd *storedDocument) bool { return sd.ownerID == ownerID })
}

// Confirm stores the reviewed fields and marks the document confirmed.
func (s *Store) Confirm(ownerID, id string, data domain.ExtractedData) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sd, ok := s.docs[id]
	if !ok || sd.ownerID != ownerID {
		return domain.Document{}, apiError(domain.ErrNotFound, "document not found")
	}
	if sd.doc.Status != domain.StatusCompleted {
		return domain.Document{}, apiError(domain.ErrValidation, "Cannot confirm document with status %s", sd.doc.Status)
	}
	if len(data) == 0 {
		return domain.Document{}, apiError(domain.ErrValidation, "No data provided")
	}
	sd.data = data.Clone()
	s.setStatusLocked(sd, domain.StatusConfirmed, "")
	return sd.view(), nil
}

func (s *Store) AdminDocument(id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sd, ok := s.docs[id]
	if !ok {
		return domain.Document{}, apiError(domain.ErrNotFound, "Document not found")
	}
	return s.withOwnerLocked(sd), nil
}

func (s *Store) AdminList(filter domain.DocumentFilter, page, perPage int) domain.DocumentPage {
	return s.list(page, perPage, true, func(sd *storedDocument) bool {
		if filter.DocumentType != "" && sd.doc.DocumentType != filter.DocumentType {
			return false
		}
		if filter.Status != "" && sd.doc.Status != filter.Status {
			return false
		}
		if filter.UserID != "" && sd.ownerID != filter.UserID {
			return false
		}
		return true
	})
}

// AdminUpdate applies a patch in any status. Unknown statuses are ignored.
func (s *Store) AdminUpdate(id string, patch domain.DocumentPatch) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sd, ok := s.docs[id]
	if !ok {
		return domain.Document{}, apiError(domain.ErrNotFound, "Document not found")
	}
	if patch.ExtractedData != nil {
		sd.data = patch.ExtractedData.Clone()
		sd.doc.UpdatedAt = s.now()
	}
	if patch.Status != nil && patch.Status.Valid() {
		s.setStatusLocked(sd, *patch.Status, "")
	}
	return sd.view(), nil
}

func (s *Store) AdminDelete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return apiError(domain.ErrNotFound, "Document not found")
	}
	delete(s.docs, id)
	return nil
}

func (s *Store) Stats() domain.AdminStats {
	s.mu.RLock()
	stats := domain.AdminStats{
		TotalUsers:        len(s.users),
		TotalDocuments:    len(s.docs),
		DocumentsByType:   make(map[domain.DocumentType]int),
		DocumentsByStatus: make(map[domain.Status]int),
	}
	for _, t := range domain.DocumentTypes() {
		stats.DocumentsByType[t] = 0
	}
	for _, st := range domain.Statuses() {
		stats.DocumentsByStatus[st] = 0
	}
	for _, sd := range s.docs {
		stats.DocumentsByType[sd.doc.DocumentType]++
		stats.DocumentsByStatus[sd.doc.Status]++
	}
	s.mu.RUnlock()

	stats.RecentDocuments = s.list(1, 10, false, func(*storedDocument) bool { return true }).Documents
	return stats
}

// Advance moves a document to status, storing data and appending errorMessage when given.
// The simulator and tests drive processing through it.
func (s *Store) Advance(id string, status domain.Status, data domain.ExtractedData, errorMessage string) (domain.Document, error) {
	if !status.Valid() {
		return domain.Document{}, apiError(domain.ErrValidation, "unknown status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sd, ok := s.docs[id]
	if !ok {
		return domain.Document{}, apiError(domain.ErrNotFound, "document not found")
	}
	if data != nil {
		sd.data = data.Clone()
	}
	s.setStatusLocked(sd, status, errorMessage)
	return sd.view(), nil
}

func (s *Store) InProgress() []InProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []InProgress
	for _, sd := range s.docs {
		if sd.doc.Status != domain.StatusPending && sd.doc.Status != domain.StatusProcessing {
			continue
		}
		out = append(out, InProgress{
			ID:           sd.doc.ID,
			DocumentType: sd.doc.DocumentType,
			Status:       sd.doc.Status,
			Filename:     sd.doc.OriginalFilename,
		})
	}
	slices.SortFunc(out, func(a, b InProgress) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (s *Store) setStatusLocked(sd *storedDocument, status domain.Status, errorMessage string) {
	now := s.now()
	sd.doc.Status = status
	sd.doc.UpdatedAt = now
	if errorMessage != "" {
		sd.doc.ErrorMessages = append(sd.doc.ErrorMessages, errorMessage)
	}
	if status == domain.StatusCompleted || status == domain.StatusConfirmed {
		sd.doc.CompletedAt = &now
	}
}

func (s *Store) list(page, perPage int, withOwner bool, keep func(*storedDocument) bool) domain.DocumentPage {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*storedDocument
	for _, sd := range s.docs {
		if keep(sd) {
			matched = append(matched, sd)
		}
	}
	slices.SortFunc(matched, func(a, b *storedDocument) int {
		if c := b.doc.CreatedAt.Compare(a.doc.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.doc.ID, b.doc.ID)
	})

	total := len(matched)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	docs := make([]domain.Document, 0, end-start)
	for _, sd := range matched[start:end] {
		if withOwner {
			docs = append(docs, s.withOwnerLocked(sd))
		} else {
			docs = append(docs, sd.view())
		}
	}
	return domain.DocumentPage{
		Documents:  docs,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + perPage - 1) / perPage,
	}
}

func (s *Store) withOwnerLocked(sd *storedDocument) domain.Document {
	doc := sd.view()
	if u, ok := s.users[sd.ownerID]; ok {
		doc.User = &domain.DocumentOwner{ID: u.user.ID, Name: u.user.Name, Email: u.user.Email}
	}
	return doc
}

// view hides extracted data until extraction has completed.
func (sd *storedDocument) view() domain.Document {
	doc := *sd.doc.Clone()
	if sd.doc.Status == domain.StatusCompleted || sd.doc.Status == domain.StatusConfirmed {
		doc.ExtractedData = sd.data.Clone()
	}
	return doc
}

func (u *storedUser) checkPassword(password string) bool {
	candidate := hashPassword(u.salt, password)
	return subtle.ConstantTimeCompare(candidate[:], u.password[:]) == 1
}

func hashPassword(salt, password string) [32]byte {
	return sha256.Sum256([]byte(salt + ":" + password))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
