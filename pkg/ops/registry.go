package ops

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sdejongh/filenorris/pkg/config"
	"github.com/sdejongh/filenorris/pkg/logging"
	"github.com/sdejongh/filenorris/pkg/models"
	"github.com/sdejongh/filenorris/pkg/storage"
)

// EventType classifies registry lifecycle events
type EventType string

const (
	// EventSubmitted fires when an operation is registered
	EventSubmitted EventType = "submitted"
	// EventCompleted fires when an operation terminates successfully
	EventCompleted EventType = "completed"
	// EventFailed fires when an operation terminates with a hard failure
	EventFailed EventType = "failed"
	// EventCancelled fires when an operation is stopped by the user
	EventCancelled EventType = "cancelled"
)

// Event is one entry of the aggregate notification stream
type Event struct {
	ID   models.OperationID
	Type EventType

	// Error carries the failure text for EventFailed
	Error string
}

// PendingOperation is a snapshot reference to an in-flight operation
type PendingOperation struct {
	ID         models.OperationID
	Operation  models.Operation
	Controller *Controller
}

// CompletedOperation records a successfully terminated operation until
// the issuer dismisses it
type CompletedOperation struct {
	ID        models.OperationID
	Operation models.Operation
	Summary   string
	Selection models.OperationSelection

	// Cancelled marks operations the user stopped; they terminate into
	// the complete collection but must not drive error dialogs
	Cancelled bool

	// TrashedPaths are the original paths a Delete moved to the trash,
	// recorded for undo reconciliation
	TrashedPaths []string

	FinishedAt time.Time
}

// FailedOperation records a hard-failed operation and its error text
type FailedOperation struct {
	ID         models.OperationID
	Operation  models.Operation
	Error      string
	FinishedAt time.Time
}

// ProgressSnapshot aggregates progress across the progress-worthy
// pending operations, driving a single combined indicator
type ProgressSnapshot struct {
	// Running counts progress-worthy operations still pending
	Running int

	// Finished counts progress-worthy operations terminated but not yet
	// dismissed
	Finished int

	// MeanProgress averages the pending operations' progress; 1 when
	// nothing is running
	MeanProgress float64
}

// Options configures a Registry. Zero-value fields select defaults: a
// local backend, the platform trash store, the exec launcher, a logger
// built from the config's logging section, and the default engine
// config. A logger built by New is closed by Close; a caller-supplied
// Logger is not.
type Options struct {
	Backend  storage.Backend
	Trash    storage.Trash
	Launcher Launcher
	Logger   logging.Logger
	Config   *config.Config
}

type pendingEntry struct {
	id        models.OperationID
	op        models.Operation
	ctrl      *Controller
	conflicts *conflictResolver
	done      chan struct{}
}

// Registry is the engine's public surface: it tracks every in-flight,
// completed, and failed operation by a monotonic identifier. An id
// appears in exactly one of the three collections at any time and
// transitions pending to complete or failed exactly once. The registry
// is created with the application and torn down at shutdown with a
// best-effort cancel-all.
type Registry struct {
	executor *Executor
	trash    storage.Trash
	logger   logging.Logger

	// ownsLogger marks a logger New built from the configuration, as
	// opposed to one the caller supplied and keeps responsibility for
	ownsLogger bool

	sem *semaphore.Weighted

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	nextID   models.OperationID
	pending  map[models.OperationID]*pendingEntry
	complete map[models.OperationID]*CompletedOperation
	failed   map[models.OperationID]*FailedOperation
	subs     map[int]chan Event
	nextSub  int
	closed   bool
}

// New creates a registry over the given collaborators
func New(opts Options) (*Registry, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	ownsLogger := false
	if logger == nil {
		l, err := logging.FromConfig(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to configure logging: %w", err)
		}
		logger = l
		ownsLogger = true
	}

	backend := opts.Backend
	if backend == nil {
		backend = storage.NewLocalWithLimits(cfg.Engine.CopyBufferSize, cfg.Engine.CopyRateLimit)
	}

	trash := opts.Trash
	if trash == nil {
		localTrash, err := storage.NewLocalTrash(cfg.Trash.Directory)
		if err != nil {
			return nil, fmt.Errorf("failed to open trash store: %w", err)
		}
		trash = localTrash
	}

	executor := NewExecutor(backend, trash, opts.Launcher, logger)
	executor.keepBothLimit = cfg.Engine.KeepBothLimit

	var sem *semaphore.Weighted
	if cfg.Engine.MaxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(cfg.Engine.MaxConcurrent))
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &Registry{
		executor:   executor,
		trash:      trash,
		logger:     logger,
		ownsLogger: ownsLogger,
		sem:        sem,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		pending:    make(map[models.OperationID]*pendingEntry),
		complete:   make(map[models.OperationID]*CompletedOperation),
		failed:     make(map[models.OperationID]*FailedOperation),
		subs:       make(map[int]chan Event),
	}, nil
}

// Submit registers op, allocates the next id, spawns its executor task
// and returns immediately
func (r *Registry) Submit(op models.Operation) (models.OperationID, error) {
	if err := op.Validate(); err != nil {
		return 0, err
	}

	op = op.Clone()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, fmt.Errorf("registry is shut down")
	}
	r.nextID++
	entry := &pendingEntry{
		id:        r.nextID,
		op:        op,
		ctrl:      NewController(),
		conflicts: newConflictResolver(),
		done:      make(chan struct{}),
	}
	r.pending[entry.id] = entry
	r.mu.Unlock()

	r.logger.Info(r.baseCtx, "operation submitted", logging.Fields{
		"id":   int64(entry.id),
		"kind": string(op.Kind),
	})

	r.wg.Add(1)
	go r.run(entry)

	r.emit(Event{ID: entry.id, Type: EventSubmitted})
	return entry.id, nil
}

func (r *Registry) run(entry *pendingEntry) {
	defer r.wg.Done()

	if r.sem != nil {
		// Queued operations unblock on their own cancellation
		if err := r.sem.Acquire(entry.ctrl.ctx, 1); err != nil {
			r.finish(entry, nil, ErrCancelled)
			return
		}
		defer r.sem.Release(1)
	}

	res, err := r.executor.Run(r.baseCtx, entry.op, entry.ctrl, entry.conflicts)
	r.finish(entry, res, err)
}

// finish moves an id out of pending exactly once. Finishing an id twice,
// or one that was never pending, is a programmer error.
func (r *Registry) finish(entry *pendingEntry, res *Result, err error) {
	now := time.Now()

	r.mu.Lock()
	if _, ok := r.pending[entry.id]; !ok {
		r.mu.Unlock()
		panic(fmt.Sprintf("ops: operation %d finished twice", entry.id))
	}
	delete(r.pending, entry.id)

	var event Event
	switch {
	case errors.Is(err, ErrCancelled):
		r.complete[entry.id] = &CompletedOperation{
			ID:         entry.id,
			Operation:  entry.op,
			Summary:    "Cancelled",
			Cancelled:  true,
			FinishedAt: now,
		}
		event = Event{ID: entry.id, Type: EventCancelled}
	case err != nil:
		r.failed[entry.id] = &FailedOperation{
			ID:         entry.id,
			Operation:  entry.op,
			Error:      err.Error(),
			FinishedAt: now,
		}
		event = Event{ID: entry.id, Type: EventFailed, Error: err.Error()}
	default:
		r.complete[entry.id] = &CompletedOperation{
			ID:           entry.id,
			Operation:    entry.op,
			Summary:      res.Summary,
			Selection:    res.Selection,
			TrashedPaths: trashedOriginals(res.Trashed),
			FinishedAt:   now,
		}
		event = Event{ID: entry.id, Type: EventCompleted}
	}
	close(entry.done)
	r.mu.Unlock()

	switch event.Type {
	case EventFailed:
		r.logger.Error(r.baseCtx, "operation failed", err, logging.Fields{"id": int64(entry.id)})
	case EventCancelled:
		r.logger.Info(r.baseCtx, "operation cancelled", logging.Fields{"id": int64(entry.id)})
	default:
		r.logger.Info(r.baseCtx, "operation completed", logging.Fields{"id": int64(entry.id)})
	}

	r.emit(event)
}

// Pending returns snapshots of the in-flight operations, ordered by id
func (r *Registry) Pending() []PendingOperation {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PendingOperation, 0, len(r.pending))
	for _, entry := range r.pending {
		out = append(out, PendingOperation{ID: entry.id, Operation: entry.op, Controller: entry.ctrl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Completed returns the terminated-successfully collection, ordered by id
func (r *Registry) Completed() []CompletedOperation {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CompletedOperation, 0, len(r.complete))
	for _, c := range r.complete {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Failed returns the hard-failure collection, ordered by id
func (r *Registry) Failed() []FailedOperation {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]FailedOperation, 0, len(r.failed))
	for _, f := range r.failed {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Pause asks the pending operation to suspend; reports whether the id
// was pending
func (r *Registry) Pause(id models.OperationID) bool {
	if entry, ok := r.entry(id); ok {
		entry.ctrl.Pause()
		return true
	}
	return false
}

// Unpause resumes the pending operation
func (r *Registry) Unpause(id models.OperationID) bool {
	if entry, ok := r.entry(id); ok {
		entry.ctrl.Unpause()
		return true
	}
	return false
}

// Cancel stops the pending operation at its next checkpoint
func (r *Registry) Cancel(id models.OperationID) bool {
	if entry, ok := r.entry(id); ok {
		entry.ctrl.Cancel()
		return true
	}
	return false
}

// PauseAll fans a pause out to every pending operation
func (r *Registry) PauseAll() {
	for _, entry := range r.entries() {
		entry.ctrl.Pause()
	}
}

// CancelAll fans a cancel out to every pending operation
func (r *Registry) CancelAll() {
	for _, entry := range r.entries() {
		entry.ctrl.Cancel()
	}
}

// Progress returns the pending operation's progress and state text
func (r *Registry) Progress(id models.OperationID) (float64, string, bool) {
	if entry, ok := r.entry(id); ok {
		return entry.ctrl.Progress(), entry.ctrl.State(), true
	}
	return 0, "", false
}

// Conflicts returns the delivery channel for the pending operation's
// conflict requests
func (r *Registry) Conflicts(id models.OperationID) (<-chan models.ConflictRequest, bool) {
	if entry, ok := r.entry(id); ok {
		return entry.conflicts.Requests(), true
	}
	return nil, false
}

// Resolve answers the operation's outstanding conflict request
func (r *Registry) Resolve(id models.OperationID, resp models.ConflictResponse) bool {
	if entry, ok := r.entry(id); ok {
		entry.conflicts.Respond(resp)
		return true
	}
	return false
}

// Wait blocks until the operation terminates. Returns immediately for
// ids already terminated or never issued.
func (r *Registry) Wait(id models.OperationID) {
	if entry, ok := r.entry(id); ok {
		<-entry.done
	}
}

// Dismiss evicts a terminated operation from the complete or failed
// collection; reports whether the id was found
func (r *Registry) Dismiss(id models.OperationID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.complete[id]; ok {
		delete(r.complete, id)
		return true
	}
	if _, ok := r.failed[id]; ok {
		delete(r.failed, id)
		return true
	}
	return false
}

// Snapshot aggregates progress across the progress-worthy operations
func (r *Registry) Snapshot() ProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var snap ProgressSnapshot
	var sum float64
	for _, entry := range r.pending {
		if !entry.op.ProgressWorthy() {
			continue
		}
		snap.Running++
		sum += entry.ctrl.Progress()
	}
	for _, c := range r.complete {
		if c.Operation.ProgressWorthy() {
			snap.Finished++
		}
	}
	for _, f := range r.failed {
		if f.Operation.ProgressWorthy() {
			snap.Finished++
		}
	}

	if snap.Running > 0 {
		snap.MeanProgress = sum / float64(snap.Running)
	} else {
		snap.MeanProgress = 1
	}
	return snap
}

// Subscribe returns a channel of lifecycle events and a function to
// unsubscribe. Slow subscribers lose events rather than stall the engine.
func (r *Registry) Subscribe() (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan Event, 64)
	r.subs[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
}

// Close cancels every pending operation, waits for the tasks to wind
// down and closes the event streams
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.CancelAll()
	r.wg.Wait()
	r.baseCancel()

	r.mu.Lock()
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	r.mu.Unlock()

	if r.ownsLogger {
		return r.logger.Close()
	}
	return nil
}

func (r *Registry) entry(id models.OperationID) (*pendingEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.pending[id]
	return entry, ok
}

func (r *Registry) entries() []*pendingEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*pendingEntry, 0, len(r.pending))
	for _, entry := range r.pending {
		out = append(out, entry)
	}
	return out
}

func (r *Registry) emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func trashedOriginals(entries []models.TrashEntry) []string {
	if len(entries) == 0 {
		return nil
	}
	paths := make([]string, len(entries))
	for i, entry := range entries {
		paths[i] = entry.OriginalPath
	}
	return paths
}
