package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

type DocumentType string

const (
	IdentityCard        DocumentType = "cin"
	DrivingLicense      DocumentType = "driving_license"
	VehicleRegistration DocumentType = "vehicle_registration"
)

var documentTypes = []DocumentType{IdentityCard, DrivingLicense, VehicleRegistration}

// DocumentTypes lists the closed set of supported types in display order.
func DocumentTypes() []DocumentType {
	out := make([]DocumentType, len(documentTypes))
	copy(out, documentTypes)
	return out
}

// ParseDocumentType accepts the wire value and the common aliases for identity cards.
func ParseDocumentType(raw string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cin", "identity_card", "id_card":
		return IdentityCard, nil
	case "driving_license", "permis":
		return DrivingLicense, nil
	case "vehicle_registration", "carte_grise":
		return VehicleRegistration, nil
	default:
		return "", Invalidf("unknown document type %q (expected one of: cin, driving_license, vehicle_registration)", raw)
	}
}

func (t DocumentType) Valid() bool {
	for _, known := range documentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SupportsSecondary reports whether a verso image may accompany the recto.
// The backend accepts an optional verso for every type; only identity cards carry verso fields.
func (t DocumentType) SupportsSecondary() bool {
	return t.Valid()
}

func (t DocumentType) Label() string {
	switch t {
	case IdentityCard:
		return "CIN"
	case DrivingLicense:
		return "Permis"
	case VehicleRegistration:
		return "Carte Grise"
	default:
		return string(t)
	}
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusConfirmed  Status = "confirmed"
)

var statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusConfirmed}

func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s.Valid() {
		return s, nil
	}
	return "", Invalidf("unknown status %q", raw)
}

func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// IsTerminal reports whether polling stops at s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusConfirmed:
		return true
	default:
		return false
	}
}

// Rank orders statuses along the lifecycle; -1 for unknown values.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	case StatusConfirmed:
		return 3
	default:
		return -1
	}
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle monotonic.
func (s Status) CanAdvanceTo(next Status) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case StatusFailed, StatusConfirmed:
		return false
	case StatusCompleted:
		return next == StatusConfirmed
	default:
		return next.Rank() > s.Rank()
	}
}

// ExtractedData maps field keys to string values. Non-string JSON values are coerced to text.
type ExtractedData map[string]string

func (d *ExtractedData) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = nil
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("extracted data must be a JSON object: %w", err)
	}
	out := make(ExtractedData, len(raw))
	for key, value := range raw {
		out[key] = coerceJSONValue(value)
	}
	*d = out
	return nil
}

func (d ExtractedData) Clone() ExtractedData {
	if d == nil {
		return nil
	}
	return maps.Clone(d)
}

func coerceJSONValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err == nil {
			return strconv.FormatBool(b)
		}
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
	}
	return string(trimmed)
}

// DocumentOwner is attached to documents returned by admin endpoints.
type DocumentOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Document struct {
	ID               string         `json:"id"`
	DocumentType     DocumentType   `json:"document_type"`
	Status           Status         `json:"status"`
	OriginalFilename string         `json:"original_filename,omitempty"`
	ImagePathRecto   string         `json:"image_path_recto,omitempty"`
	ImagePathVerso   string         `json:"image_path_verso,omitempty"`
	ExtractedData    ExtractedData  `json:"extracted_data,omitempty"`
	ErrorMessages    []string       `json:"error_messages,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	User             *DocumentOwner `json:"user,omitempty"`
}

func (d *Document) UnmarshalJSON(b []byte) error {
	type plain Document
	var wire struct {
		plain
		DocumentID  string          `json:"document_id"`
		CreatedAt   backendTime     `json:"created_at"`
		UpdatedAt   backendTime     `json:"updated_at"`
		CompletedAt *backendTime    `json:"completed_at"`
		User        json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*d = Document(wire.plain)
	if d.ID == "" {
		d.ID = wire.DocumentID
	}
	d.CreatedAt = time.Time(wire.CreatedAt)
	d.UpdatedAt = time.Time(wire.UpdatedAt)
	d.CompletedAt = nil
	if wire.CompletedAt != nil && !time.Time(*wire.CompletedAt).IsZero() {
		t := time.Time(*wire.CompletedAt)
		d.CompletedAt = &t
	}
	d.User = nil
	if len(wire.User) > 0 && !bytes.Equal(bytes.TrimSpace(wire.User), []byte("null")) {
		var owner DocumentOwner
		if err := json.Unmarshal(wire.User, &owner); err != nil {
			return fmt.Errorf("decode document user: %w", err)
		}
		d.User = &owner
	}
	return nil
}

// Clone returns a deep copy so callers never share mutable maps or slices.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.ExtractedData = d.ExtractedData.Clone()
	if d.ErrorMessages != nil {
		out.ErrorMessages = append([]string(nil), d.ErrorMessages...)
	}
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		out.CompletedAt = &t
	}
	if d.User != nil {
		u := *d.User
		out.User = &u
	}
	return &out
}

// backendTime parses the naive ISO timestamps the backend emits as well as RFC 3339.
type backendTime time.Time

var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *backendTime) UnmarshalJSON(b []byte) error {
	var raw string
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = backendTime{}
		return nil
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if raw == "" {
		*t = backendTime{}
		return nil
	}
	for _, layout := range backendTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			*t = backendTime(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", raw)
}

type DocumentPage struct {
	Documents  []Document `json:"documents"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalPages int        `json:"total_pages"`
}

// DocumentFilter narrows admin listings. Empty fields are ignored.
type DocumentFilter struct {
	DocumentType DocumentType
	Status       Status
	UserID       string
}

// DocumentPatch is an admin update; nil fields are left untouched.
type DocumentPatch struct {
	ExtractedData *ExtractedData `json:"extracted_data,omitempty"`
	Status        *Status        `json:"status,omitempty"`
}

type AdminStats struct {
	TotalUsers        int                  `json:"total_users"`
	TotalDocuments    int                  `json:"total_documents"`
	DocumentsByType   map[DocumentType]int `json:"documents_by_type"`
	DocumentsByStatus map[Status]int       `json:"documents_by_status"`
	RecentDocuments   []Document           `json:"recent_documents"`
}
