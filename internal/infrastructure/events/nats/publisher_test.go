package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/infrastructure/resilience"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	failures []error
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestPublishUsesEventSubject(t *testing.T) {
	conn := &fakeConn{}
	publisher := newPublisher(conn, "documents.lifecycle.", nil, nil)

	err := publisher.Publish(context.Background(), domain.LifecycleEvent{
		Kind:         domain.EventConfirmed,
		DocumentID:   "doc-1",
		DocumentType: domain.IdentityCard,
		Status:       domain.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(conn.subjects) != 1 || conn.subjects[0] != "documents.lifecycle.confirmed" {
		t.Fatalf("unexpected subjects %v", conn.subjects)
	}

	var decoded map[string]any
	if err := json.Unmarshal(conn.payloads[0], &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded["event"] != "confirmed" || decoded["document_id"] != "doc-1" || decoded["status"] != "confirmed" {
		t.Fatalf("unexpected payload %v", decoded)
	}
	if _, ok := decoded["occurred_at"].(string); !ok {
		t.Fatalf("expected occurred_at to be filled, got %v", decoded["occurred_at"])
	}
}

func TestPublishRetriesTransientErrors(t *testing.T) {
	conn := &fakeConn{failures: []error{nats.ErrTimeout}}
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	}, nil)
	publisher := newPublisher(conn, "", executor, nil)

	if err := publisher.Publish(context.Background(), domain.LifecycleEvent{Kind: domain.EventUploaded, DocumentID: "d"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(conn.subjects) != 1 || conn.subjects[0] != DefaultSubjectPrefix+".uploaded" {
		t.Fatalf("unexpected subjects %v", conn.subjects)
	}
}

func TestPublishMarksConnectionErrorsTemporary(t *testing.T) {
	conn := &fakeConn{failures: []error{fmt.Errorf("wrapped: %w", nats.ErrConnectionClosed)}}
	publisher := newPublisher(conn, "", nil, nil)

	err := publisher.Publish(context.Background(), domain.LifecycleEvent{Kind: domain.EventReset})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestPublishRejectsEventWithoutKind(t *testing.T) {
	publisher := newPublisher(&fakeConn{}, "", nil, nil)
	if err := publisher.Publish(context.Background(), domain.LifecycleEvent{}); err == nil {
		t.Fatalf("expected error for event without kind")
	}
}

func TestClassifyNATSError(t *testing.T) {
	if c := classifyNATSError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("canceled must not retry or record: %+v", c)
	}
	if c := classifyNATSError(nats.ErrNoServers); !c.Retryable {
		t.Fatalf("no servers should retry: %+v", c)
	}
	if c := classifyNATSError(errors.New("bad subject")); c.Retryable {
		t.Fatalf("unknown errors should not retry: %+v", c)
	}
}

func TestNoopPublisher(t *testing.T) {
	if err := (Noop{}).Publish(context.Background(), domain.LifecycleEvent{Kind: domain.EventFailed}); err != nil {
		t.Fatalf("Noop.Publish() error = %v", err)
	}
}
