package jobs

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/models"
)

// DefaultGraceDelay is how long a completed job stays visible in the queue view.
const DefaultGraceDelay = 5 * time.Second

// ChangeKind names what caused a change notification.
type ChangeKind string

const (
	ChangeEvent    ChangeKind = "event"
	ChangeSnapshot ChangeKind = "snapshot"
	ChangeExpired  ChangeKind = "expired"
	ChangeReset    ChangeKind = "reset"
)

// Change is delivered to observers after every mutation. Jobs is a copy shared
// by all observers and must not be modified.
// Revisions increase monotonically; observers may see them out of order when
// an expiry fires concurrently with an event and should keep the highest.
type Change struct {
	Revision uint64
	Kind     ChangeKind
	Jobs     *models.JobSet
}

// Recorder receives tracker counters. internal/metrics implements it.
type Recorder interface {
	EventApplied(created bool)
	EventDropped(reason string)
	JobExpired()
	JobsReset()
	ActiveJobs(n int)
}

type nopRecorder struct{}

func (nopRecorder) EventApplied(bool)   {}
func (nopRecorder) EventDropped(string) {}
func (nopRecorder) JobExpired()         {}
func (nopRecorder) JobsReset()          {}
func (nopRecorder) ActiveJobs(int)      {}

type expiryKey struct {
	parent string
	id     string
}

type expiry struct {
	timer Timer
	gen   uint64
}

type observer struct {
	id int
	fn func(Change)
}

// Tracker owns one Active Job Set. Every mutation runs to completion under its
// lock; observers are called after the lock is released.
type Tracker struct {
	logger   arbor.ILogger
	clock    Clock
	grace    time.Duration
	recorder Recorder

	mu         sync.Mutex
	jobs       *models.JobSet
	expiries   map[expiryKey]*expiry
	generation uint64
	revision   uint64

	obsMu     sync.RWMutex
	observers []observer
	nextObsID int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the runtime clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(t *Tracker) { t.recorder = r }
}

// NewTracker creates a tracker that removes completed jobs after grace.
func NewTracker(logger arbor.ILogger, grace time.Duration, opts ...Option) *Tracker {
	if grace <= 0 {
		grace = DefaultGraceDelay
	}
	t := &Tracker{
		logger:   logger,
		clock:    RealClock,
		grace:    grace,
		recorder: nopRecorder{},
		jobs:     models.NewJobSet(),
		expiries: make(map[expiryKey]*expiry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GraceDelay returns the configured removal delay.
func (t *Tracker) GraceDelay() time.Duration {
	return t.grace
}

// Subscribe registers fn for change notifications and returns a func that removes it.
func (t *Tracker) Subscribe(fn func(Change)) func() {
	t.obsMu.Lock()
	id := t.nextObsID
	t.nextObsID++
	t.observers = append(t.observers, observer{id: id, fn: fn})
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		for i, o := range t.observers {
			if o.id == id {
				t.observers = append(t.observers[:i], t.observers[i+1:]...)
				return
			}
		}
	}
}

// Apply merges a single progress event.
func (t *Tracker) Apply(ev models.JobEvent) Outcome {
	t.mu.Lock()
	out := ApplyEvent(t.jobs, ev)
	if !out.Applied() {
		t.mu.Unlock()
		t.recordDrop(out)
		return out
	}
	t.refreshExpiryLocked(out)
	change := t.changeLocked(ChangeEvent)
	t.mu.Unlock()

	t.recorder.EventApplied(out.Created)
	t.notify(change)
	return out
}

// ApplySnapshot merges a list of events in order with a single notification.
func (t *Tracker) ApplySnapshot(events []models.JobEvent) []Outcome {
	t.mu.Lock()
	outcomes := make([]Outcome, 0, len(events))
	for _, ev := range events {
		out := ApplyEvent(t.jobs, ev)
		if out.Applied() {
			t.refreshExpiryLocked(out)
		}
		outcomes = append(outcomes, out)
	}
	change := t.changeLocked(ChangeSnapshot)
	t.mu.Unlock()

	for _, out := range outcomes {
		if out.Applied() {
			t.recorder.EventApplied(out.Created)
		} else {
			t.recordDrop(out)
		}
	}
	t.logger.Debug().
		Int("events", len(events)).
		Int("active_jobs", change.Jobs.Len()).
		Msg("Applied active job snapshot")

	t.notify(change)
	return outcomes
}

// Reset clears the set and cancels every pending removal.
func (t *Tracker) Reset() {
	t.mu.Lock()
	for key, e := range t.expiries {
		e.timer.Stop()
		delete(t.expiries, key)
	}
	t.jobs.Clear()
	change := t.changeLocked(ChangeReset)
	t.mu.Unlock()

	t.recorder.JobsReset()
	t.logger.Debug().Msg("Active jobs reset")
	t.notify(change)
}

// Snapshot returns a deep copy of the current set.
func (t *Tracker) Snapshot() *models.JobSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobs.Clone()
}

// Revision returns the revision of the latest change.
func (t *Tracker) Revision() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revision
}

// PendingExpiries returns the number of armed removal timers.
func (t *Tracker) PendingExpiries() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.expiries)
}

// refreshExpiryLocked cancels the node's pending removal and re-arms it when the
// latest event completed the job.
func (t *Tracker) refreshExpiryLocked(out Outcome) {
	key := expiryKey{parent: out.Parent, id: out.ID}
	if e, ok := t.expiries[key]; ok {
		e.timer.Stop()
		delete(t.expiries, key)
	}
	if !out.Complete() {
		return
	}

	t.generation++
	gen := t.generation
	timer := t.clock.AfterFunc(t.grace, func() { t.expire(key, gen) })
	t.expiries[key] = &expiry{timer: timer, gen: gen}
}

func (t *Tracker) expire(key expiryKey, gen uint64) {
	t.mu.Lock()
	e, ok := t.expiries[key]
	if !ok || e.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.expiries, key)

	if !Remove(t.jobs, key.parent, key.id) {
		t.mu.Unlock()
		return
	}
	if key.parent == "" {
		for k, sub := range t.expiries {
			if k.parent == key.id {
				sub.timer.Stop()
				delete(t.expiries, k)
			}
		}
	}
	change := t.changeLocked(ChangeExpired)
	t.mu.Unlock()

	t.recorder.JobExpired()
	t.logger.Debug().
		Str("job_id", key.id).
		Str("parent", key.parent).
		Msg("Completed job removed")
	t.notify(change)
}

func (t *Tracker) changeLocked(kind ChangeKind) Change {
	t.revision++
	return Change{Revision: t.revision, Kind: kind, Jobs: t.jobs.Clone()}
}

func (t *Tracker) recordDrop(out Outcome) {
	t.recorder.EventDropped(string(out.Dropped))
	t.logger.Debug().
		Str("job_id", out.ID).
		Str("parent", out.Parent).
		Str("reason", string(out.Dropped)).
		Msg("Progress event dropped")
}

func (t *Tracker) notify(change Change) {
	t.recorder.ActiveJobs(change.Jobs.Len())

	t.obsMu.RLock()
	observers := make([]observer, len(t.observers))
	copy(observers, t.observers)
	t.obsMu.RUnlock()

	for _, o := range observers {
		o.fn(change)
	}
}
