package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/ports"
)

const DefaultPollInterval = 3 * time.Second

type PollUpdateKind int

const (
	// PollProgress carries a status-only update; the document keeps processing.
	PollProgress PollUpdateKind = iota
	// PollTerminal carries the full document; polling has stopped.
	PollTerminal
	// PollError carries the request error; polling has stopped.
	PollError
	// PollReplaced reports that a newer poll for the same document took over.
	PollReplaced
)

func (k PollUpdateKind) String() string {
	switch k {
	case PollProgress:
		return "progress"
	case PollTerminal:
		return "terminal"
	case PollError:
		return "error"
	case PollReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

type PollUpdate struct {
	Kind       PollUpdateKind
	DocumentID string
	Status     domain.Status
	Document   *domain.Document
	Err        error
}

// PollFunc receives poll updates. It runs on the poll goroutine and must not
// cancel its own handle; polling stops on its own after a terminal or error update.
type PollFunc func(ctx context.Context, handle *PollHandle, update PollUpdate)

type nopObserver struct{}

func (nopObserver) ObservePollTick(domain.Status)    {}
func (nopObserver) ObserveTransition(string, string) {}

// StatusPoller runs at most one periodic status check per document.
type StatusPoller struct {
	getter   ports.DocumentGetter
	interval time.Duration
	observer ports.LifecycleObserver
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]*PollHandle
}

func NewStatusPoller(
	getter ports.DocumentGetter,
	interval time.Duration,
	observer ports.LifecycleObserver,
	logger *slog.Logger,
) *StatusPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusPoller{
		getter:   getter,
		interval: interval,
		observer: observer,
		logger:   logger,
		active:   make(map[string]*PollHandle),
	}
}

func (p *StatusPoller) Interval() time.Duration {
	return p.interval
}

// Start begins polling documentID. Any poll already running for the same
// document is stopped and its receiver gets a PollReplaced update before the
// new one sends its first request.
func (p *StatusPoller) Start(ctx context.Context, documentID string, onUpdate PollFunc) *PollHandle {
	pollCtx, cancel := context.WithCancel(ctx)
	h := &PollHandle{
		poller:     p,
		documentID: documentID,
		onUpdate:   onUpdate,
		ctx:        pollCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	p.mu.Lock()
	prev := p.active[documentID]
	p.active[documentID] = h
	p.mu.Unlock()

	if prev != nil {
		p.logger.Debug("poll_replaced", "document_id", documentID)
		prev.supersede()
	}

	go h.run()
	return h
}

// Active reports whether a poll is currently registered for documentID.
func (p *StatusPoller) Active(documentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[documentID]
	return ok
}

// StopAll cancels every running poll.
func (p *StatusPoller) StopAll() {
	p.mu.Lock()
	handles := make([]*PollHandle, 0, len(p.active))
	for _, h := range p.active {
		handles = append(handles, h)
	}
	p.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
}

func (p *StatusPoller) release(h *PollHandle) {
	p.mu.Lock()
	if p.active[h.documentID] == h {
		delete(p.active, h.documentID)
	}
	p.mu.Unlock()
}

// PollHandle controls one running poll.
type PollHandle struct {
	poller     *StatusPoller
	documentID string
	onUpdate   PollFunc
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	once       sync.Once

	// mu is held for the whole of each delivery.
	mu        sync.Mutex
	cancelled bool
}

func (h *PollHandle) DocumentID() string {
	return h.documentID
}

// Done is closed once the poll goroutine has exited.
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Cancel stops the poll. It is idempotent, and once it returns no further
// update is delivered, including responses already in flight.
func (h *PollHandle) Cancel() {
	h.once.Do(func() {
		h.cancel()
		h.mu.Lock()
		h.cancelled = true
		h.mu.Unlock()
		h.poller.release(h)
	})
}

// supersede stops the poll like Cancel, then tells the receiver it was replaced.
func (h *PollHandle) supersede() {
	h.once.Do(func() {
		h.cancel()
		h.mu.Lock()
		h.cancelled = true
		h.onUpdate(h.ctx, h, PollUpdate{
			Kind:       PollReplaced,
			DocumentID: h.documentID,
			Err:        fmt.Errorf("poll document %s: %w", h.documentID, domain.ErrSuperseded),
		})
		h.mu.Unlock()
		h.poller.release(h)
	})
}

func (h *PollHandle) run() {
	defer close(h.done)
	defer h.poller.release(h)
	defer h.cancel()

	p := h.poller
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
		}

		doc, err := p.getter.GetDocument(h.ctx, h.documentID)
		if err != nil {
			if h.ctx.Err() != nil {
				return
			}
			p.logger.Warn("poll_request_failed", "document_id", h.documentID, "error", err)
			h.deliver(PollUpdate{Kind: PollError, Err: err})
			return
		}
		p.observer.ObservePollTick(doc.Status)

		switch {
		case doc.Status.IsTerminal():
			p.logger.Info("poll_finished", "document_id", h.documentID, "status", doc.Status)
			h.deliver(PollUpdate{Kind: PollTerminal, Status: doc.Status, Document: doc})
			return
		case doc.Status == domain.StatusProcessing:
			h.deliver(PollUpdate{Kind: PollProgress, Status: doc.Status})
		}
	}
}

func (h *PollHandle) deliver(update PollUpdate) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled || h.ctx.Err() != nil {
		h.poller.logger.Debug("poll_update_discarded", "document_id", h.documentID, "kind", update.Kind.String())
		return false
	}
	update.DocumentID = h.documentID
	h.onUpdate(h.ctx, h, update)
	return true
}
