package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/ports"
)

type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseAwaitingProcessing Phase = "awaiting_processing"
	PhaseAwaitingReview     Phase = "awaiting_review"
	PhaseConfirmed          Phase = "confirmed"
	PhaseFailed             Phase = "failed"
)

// LifecycleSnapshot is an immutable copy of the lifecycle state.
type LifecycleSnapshot struct {
	Phase    Phase
	Document *domain.Document
	Form     *ReviewForm
	Err      error
	Busy     bool
	Polling  bool
	Version  uint64
}

type LifecycleDependencies struct {
	Submitter ports.DocumentSubmitter
	Confirmer ports.DocumentConfirmer
	Getter    ports.DocumentGetter
	Schemas   ports.SchemaSource
	Poller    *StatusPoller
	Publisher ports.EventPublisher
	Observer  ports.LifecycleObserver
	Logger    *slog.Logger
}

// Lifecycle is the single owner of one document's client-side state.
// Every mutation happens under mu; network calls run outside it and their
// results are dropped when a reset happened in the meantime.
type Lifecycle struct {
	submitter ports.DocumentSubmitter
	confirmer ports.DocumentConfirmer
	getter    ports.DocumentGetter
	schemas   ports.SchemaSource
	poller    *StatusPoller
	publisher ports.EventPublisher
	observer  ports.LifecycleObserver
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	phase   Phase
	doc     *domain.Document
	form    *ReviewForm
	err     error
	busy    bool
	polling bool
	epoch   uint64
	pollGen uint64
	poll    *PollHandle
	schema  domain.Schema
	version uint64
	changed chan struct{}
}

func NewLifecycle(deps LifecycleDependencies) *Lifecycle {
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Poller == nil && deps.Getter != nil {
		deps.Poller = NewStatusPoller(deps.Getter, DefaultPollInterval, deps.Observer, deps.Logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifecycle{
		submitter: deps.Submitter,
		confirmer: deps.Confirmer,
		getter:    deps.Getter,
		schemas:   deps.Schemas,
		poller:    deps.Poller,
		publisher: deps.Publisher,
		observer:  deps.Observer,
		logger:    deps.Logger,
		ctx:       ctx,
		cancel:    cancel,
		phase:     PhaseIdle,
		changed:   make(chan struct{}),
	}
}

// LoadSchema fetches the field layout used to seed review forms.
// A form that is already open keeps its layout.
func (l *Lifecycle) LoadSchema(ctx context.Context) error {
	if l.schemas == nil {
		return nil
	}
	schema, err := l.schemas.FieldSchema(ctx)
	if err != nil {
		return fmt.Errorf("load field schema: %w", err)
	}
	l.SetSchema(schema)
	return nil
}

func (l *Lifecycle) SetSchema(schema domain.Schema) {
	l.mu.Lock()
	l.schema = schema
	l.mu.Unlock()
}

// Submit uploads a new document and starts polling it.
func (l *Lifecycle) Submit(
	ctx context.Context,
	docType domain.DocumentType,
	primary domain.ImageFile,
	secondary *domain.ImageFile,
) (*domain.Document, error) {
	l.mu.Lock()
	if l.busy {
		l.mu.Unlock()
		return nil, fmt.Errorf("submit document: %w", domain.ErrBusy)
	}
	if l.phase != PhaseIdle {
		phase := l.phase
		l.mu.Unlock()
		return nil, fmt.Errorf("submit document in phase %s: %w", phase, domain.ErrInvalidTransition)
	}
	l.busy = true
	l.err = nil
	epoch := l.epoch
	l.notifyLocked()
	l.mu.Unlock()

	doc, err := l.submitter.Submit(ctx, docType, primary, secondary)

	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		l.logger.Info("stale_upload_discarded", "document_type", docType)
		return nil, fmt.Errorf("submit document: %w", domain.ErrSuperseded)
	}
	l.busy = false
	if err != nil {
		l.err = err
		l.notifyLocked()
		l.mu.Unlock()
		return nil, err
	}
	if doc.DocumentType == "" {
		doc.DocumentType = docType
	}
	l.doc = doc.Clone()
	l.setPhaseLocked(PhaseAwaitingProcessing)
	gen := l.beginPollLocked()
	l.notifyLocked()
	l.mu.Unlock()

	l.publish(ctx, domain.EventUploaded, doc)
	l.startPoll(gen, doc.ID)
	return doc.Clone(), nil
}

// Track attaches an idle lifecycle to an existing document, polling it if it is still in progress.
func (l *Lifecycle) Track(ctx context.Context, documentID string) (*domain.Document, error) {
	if l.getter == nil {
		return nil, fmt.Errorf("track document: no document getter configured")
	}
	l.mu.Lock()
	if l.busy {
		l.mu.Unlock()
		return nil, fmt.Errorf("track document: %w", domain.ErrBusy)
	}
	if l.phase != PhaseIdle {
		phase := l.phase
		l.mu.Unlock()
		return nil, fmt.Errorf("track document in phase %s: %w", phase, domain.ErrInvalidTransition)
	}
	l.busy = true
	epoch := l.epoch
	l.mu.Unlock()

	doc, err := l.getter.GetDocument(ctx, documentID)

	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		return nil, fmt.Errorf("track document: %w", domain.ErrSuperseded)
	}
	l.busy = false
	if err != nil {
		l.err = err
		l.notifyLocked()
		l.mu.Unlock()
		return nil, fmt.Errorf("track document: %w", err)
	}

	l.doc = doc.Clone()
	l.setPhaseLocked(PhaseAwaitingProcessing)
	var gen uint64
	startPolling := !doc.Status.IsTerminal()
	if startPolling {
		gen = l.beginPollLocked()
	} else {
		l.applyDocumentLocked(doc)
	}
	l.notifyLocked()
	l.mu.Unlock()

	if startPolling {
		l.startPoll(gen, doc.ID)
	}
	return doc.Clone(), nil
}

// RetryPolling restarts polling after a failed status request.
func (l *Lifecycle) RetryPolling() error {
	l.mu.Lock()
	if l.phase != PhaseAwaitingProcessing || l.doc == nil {
		phase := l.phase
		l.mu.Unlock()
		return fmt.Errorf("retry polling in phase %s: %w", phase, domain.ErrInvalidTransition)
	}
	if l.polling {
		l.mu.Unlock()
		return fmt.Errorf("retry polling: %w", domain.ErrBusy)
	}
	l.err = nil
	id := l.doc.ID
	gen := l.beginPollLocked()
	l.notifyLocked()
	l.mu.Unlock()

	l.startPoll(gen, id)
	return nil
}

// EditField changes one value of the open review form.
func (l *Lifecycle) EditField(key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != PhaseAwaitingReview || l.form == nil {
		return fmt.Errorf("edit field in phase %s: %w", l.phase, domain.ErrInvalidTransition)
	}
	if l.busy {
		return fmt.Errorf("edit field: %w", domain.ErrBusy)
	}
	if err := l.form.Set(key, value); err != nil {
		return err
	}
	l.notifyLocked()
	return nil
}

// Confirm submits the review form. On failure the form stays open with its values.
func (l *Lifecycle) Confirm(ctx context.Context) (*domain.Document, error) {
	l.mu.Lock()
	if l.busy {
		l.mu.Unlock()
		return nil, fmt.Errorf("confirm document: %w", domain.ErrBusy)
	}
	if l.phase != PhaseAwaitingReview || l.form == nil {
		phase := l.phase
		l.mu.Unlock()
		return nil, fmt.Errorf("confirm document in phase %s: %w", phase, domain.ErrInvalidTransition)
	}
	l.busy = true
	l.err = nil
	id := l.doc.ID
	docType := l.doc.DocumentType
	values := l.form.Values()
	epoch := l.epoch
	l.notifyLocked()
	l.mu.Unlock()

	doc, err := l.confirmer.Confirm(ctx, id, values)

	l.mu.Lock()
	if l.epoch != epoch {
		l.mu.Unlock()
		return nil, fmt.Errorf("confirm document: %w", domain.ErrSuperseded)
	}
	l.busy = false
	if err != nil {
		l.err = err
		l.notifyLocked()
		l.mu.Unlock()
		return nil, err
	}
	if doc.DocumentType == "" {
		doc.DocumentType = docType
	}
	l.doc = doc.Clone()
	l.form = nil
	l.setPhaseLocked(PhaseConfirmed)
	l.notifyLocked()
	l.mu.Unlock()

	l.publish(ctx, domain.EventConfirmed, doc)
	return doc.Clone(), nil
}

// Reset returns to idle from any phase. The active poll is cancelled and any
// in-flight upload or confirm result is discarded when it arrives.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	h := l.poll
	prev := l.doc
	l.poll = nil
	l.polling = false
	l.pollGen++
	l.epoch++
	l.doc = nil
	l.form = nil
	l.err = nil
	l.busy = false
	l.setPhaseLocked(PhaseIdle)
	l.notifyLocked()
	l.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
	if prev != nil {
		l.publish(l.ctx, domain.EventReset, prev)
	}
}

// Close stops polling for good. The lifecycle must not be used afterwards.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	h := l.poll
	l.poll = nil
	l.polling = false
	l.pollGen++
	l.notifyLocked()
	l.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
	l.cancel()
}

func (l *Lifecycle) Snapshot() LifecycleSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Wait blocks until ready reports true for the current state or ctx is done.
func (l *Lifecycle) Wait(ctx context.Context, ready func(LifecycleSnapshot) bool) (LifecycleSnapshot, error) {
	for {
		l.mu.Lock()
		snap := l.snapshotLocked()
		changed := l.changed
		l.mu.Unlock()

		if ready(snap) {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-changed:
		}
	}
}

// WaitFor blocks until the lifecycle reaches one of phases, or a poll error is recorded.
func (l *Lifecycle) WaitFor(ctx context.Context, phases ...Phase) (LifecycleSnapshot, error) {
	return l.Wait(ctx, func(s LifecycleSnapshot) bool {
		if slices.Contains(phases, s.Phase) {
			return true
		}
		return s.Phase == PhaseAwaitingProcessing && !s.Polling && s.Err != nil
	})
}

func (l *Lifecycle) snapshotLocked() LifecycleSnapshot {
	return LifecycleSnapshot{
		Phase:    l.phase,
		Document: l.doc.Clone(),
		Form:     l.form.Clone(),
		Err:      l.err,
		Busy:     l.busy,
		Polling:  l.polling,
		Version:  l.version,
	}
}

func (l *Lifecycle) beginPollLocked() uint64 {
	l.pollGen++
	l.polling = true
	return l.pollGen
}

func (l *Lifecycle) startPoll(gen uint64, documentID string) {
	if l.poller == nil {
		return
	}
	h := l.poller.Start(l.ctx, documentID, l.pollSink(gen))

	l.mu.Lock()
	if l.pollGen != gen {
		l.mu.Unlock()
		h.Cancel()
		return
	}
	l.poll = h
	l.mu.Unlock()
}

func (l *Lifecycle) pollSink(gen uint64) PollFunc {
	return func(ctx context.Context, _ *PollHandle, update PollUpdate) {
		l.mu.Lock()
		if gen != l.pollGen || l.doc == nil || l.doc.ID != update.DocumentID {
			l.mu.Unlock()
			l.logger.Debug("stale_poll_update_discarded", "document_id", update.DocumentID, "kind", update.Kind.String())
			return
		}

		var event domain.EventKind
		switch update.Kind {
		case PollProgress:
			if l.phase == PhaseAwaitingProcessing && l.doc.Status != update.Status && l.doc.Status.CanAdvanceTo(update.Status) {
				l.doc.Status = update.Status
				l.notifyLocked()
			}
		case PollReplaced:
			if !l.polling {
				break
			}
			l.polling = false
			l.poll = nil
			l.err = update.Err
			l.notifyLocked()
		case PollError:
			l.polling = false
			l.poll = nil
			l.err = update.Err
			l.notifyLocked()
		case PollTerminal:
			l.polling = false
			l.poll = nil
			event = l.applyDocumentLocked(update.Document)
			l.notifyLocked()
		}
		doc := l.doc.Clone()
		l.mu.Unlock()

		if event != "" {
			l.publish(ctx, event, doc)
		}
	}
}

// applyDocumentLocked merges a full server document. Regressions along the
// status order are ignored, and an open review form is never reseeded.
func (l *Lifecycle) applyDocumentLocked(doc *domain.Document) domain.EventKind {
	if doc == nil || l.phase != PhaseAwaitingProcessing || !l.doc.Status.CanAdvanceTo(doc.Status) {
		return ""
	}
	next := doc.Clone()
	if next.DocumentType == "" {
		next.DocumentType = l.doc.DocumentType
	}
	l.doc = next
	l.err = nil

	switch next.Status {
	case domain.StatusCompleted:
		if l.form == nil {
			l.form = NewReviewForm(next.ID, next.DocumentType, next.ExtractedData, l.schema)
		}
		l.setPhaseLocked(PhaseAwaitingReview)
		return domain.EventCompleted
	case domain.StatusFailed:
		l.err = &domain.ExtractionError{DocumentID: next.ID, Messages: slices.Clone(next.ErrorMessages)}
		l.setPhaseLocked(PhaseFailed)
		return domain.EventFailed
	case domain.StatusConfirmed:
		l.setPhaseLocked(PhaseConfirmed)
		return domain.EventConfirmed
	default:
		return ""
	}
}

func (l *Lifecycle) setPhaseLocked(next Phase) {
	if l.phase == next {
		return
	}
	prev := l.phase
	l.phase = next
	l.observer.ObserveTransition(string(prev), string(next))
	l.logger.Info("lifecycle_transition", "from", prev, "to", next)
}

func (l *Lifecycle) notifyLocked() {
	l.version++
	close(l.changed)
	l.changed = make(chan struct{})
}

func (l *Lifecycle) publish(ctx context.Context, kind domain.EventKind, doc *domain.Document) {
	if l.publisher == nil || doc == nil {
		return
	}
	event := domain.LifecycleEvent{
		Kind:         kind,
		DocumentID:   doc.ID,
		DocumentType: doc.DocumentType,
		Status:       doc.Status,
		OccurredAt:   time.Now().UTC(),
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.logger.Warn("lifecycle_event_publish_failed", "event", kind, "document_id", doc.ID, "error", err)
	}
}
