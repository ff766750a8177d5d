package jobs

import (
	"context"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/interfaces"
	"github.com/ternarybob/prinde/internal/models"
)

// DetailState is the rendered state of one job detail view.
// TaskDetails is nil until the job has been seen; its SubJobs hold the children.
type DetailState struct {
	JobID       string              `json:"job_id"`
	TaskDetails *models.JobViewNode `json:"task_details"`
}

// DetailView follows a single job and its direct children. Finished entries are
// kept so the page can show the final state.
type DetailView struct {
	jobID string

	mu      sync.Mutex
	details *models.JobViewNode
	subJobs *models.JobSet
}

// NewDetailView creates an empty view for jobID.
func NewDetailView(jobID string) *DetailView {
	return &DetailView{jobID: jobID, subJobs: models.NewJobSet()}
}

// JobID returns the followed job.
func (v *DetailView) JobID() string {
	return v.jobID
}

// Process applies a progress event. Events for unrelated jobs are ignored.
func (v *DetailView) Process(ev models.JobEvent) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.processLocked(ev)
}

// Hydrate replaces the view with a job_details payload: the job itself plus its
// embedded sub-jobs. A nil payload means the engine does not know the job.
func (v *DetailView) Hydrate(details *models.JobEvent) bool {
	if details == nil {
		return false
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.subJobs = models.NewJobSet()
	applied := v.processLocked(*details)
	for _, sub := range details.SubJobs {
		if v.processLocked(sub) {
			applied = true
		}
	}
	return applied
}

// Clear forgets everything the view has seen.
func (v *DetailView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.details = nil
	v.subJobs = models.NewJobSet()
}

// State returns a copy of the view.
func (v *DetailView) State() DetailState {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := DetailState{JobID: v.jobID}
	if v.details != nil {
		state.TaskDetails = v.details.Clone()
		state.TaskDetails.SubJobs = v.subJobs.Clone()
	}
	return state
}

func (v *DetailView) processLocked(ev models.JobEvent) bool {
	switch {
	case ev.Job.ID == "":
		return false
	case ev.Job.ID == v.jobID:
		v.details = detailNode(ev)
	case ev.Job.Parent == v.jobID:
		v.subJobs.Put(ev.Job.ID, detailNode(ev))
	default:
		return false
	}
	return true
}

func detailNode(ev models.JobEvent) *models.JobViewNode {
	node := models.NewJobViewNode(ev)
	node.PercCompleted = Completion(ev)
	if status, known := models.LookupStatus(ev.Job.Status); known {
		node.Status = status
		node.CanBeModified = false
	} else {
		node.Status = models.ResolveStatus(models.StatusInactive)
		node.CanBeModified = true
	}
	return node
}

// DetailRegistry owns the open detail views keyed by job id.
type DetailRegistry struct {
	logger  arbor.ILogger
	emitter interfaces.Emitter

	mu    sync.RWMutex
	views map[string]*DetailView

	obsMu     sync.RWMutex
	observers map[int]func(DetailState)
	nextObsID int
}

// NewDetailRegistry creates a registry that requests details through emitter.
func NewDetailRegistry(logger arbor.ILogger, emitter interfaces.Emitter) *DetailRegistry {
	return &DetailRegistry{
		logger:    logger,
		emitter:   emitter,
		views:     make(map[string]*DetailView),
		observers: make(map[int]func(DetailState)),
	}
}

// Open returns the view for jobID, creating it and requesting its details on
// first use. A failed request is logged; the view fills in once the link is back.
func (r *DetailRegistry) Open(ctx context.Context, jobID string) (*DetailView, bool) {
	r.mu.Lock()
	view, ok := r.views[jobID]
	if !ok {
		view = NewDetailView(jobID)
		r.views[jobID] = view
	}
	r.mu.Unlock()

	if !ok {
		r.request(ctx, jobID)
	}
	return view, !ok
}

// Get returns an open view.
func (r *DetailRegistry) Get(jobID string) (*DetailView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view, ok := r.views[jobID]
	return view, ok
}

// Close drops the view for jobID.
func (r *DetailRegistry) Close(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[jobID]; !ok {
		return false
	}
	delete(r.views, jobID)
	return true
}

// JobIDs returns the open views, sorted.
func (r *DetailRegistry) JobIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.views))
	for id := range r.views {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Subscribe registers fn for view updates and returns a func that removes it.
func (r *DetailRegistry) Subscribe(fn func(DetailState)) func() {
	r.obsMu.Lock()
	id := r.nextObsID
	r.nextObsID++
	r.observers[id] = fn
	r.obsMu.Unlock()

	return func() {
		r.obsMu.Lock()
		delete(r.observers, id)
		r.obsMu.Unlock()
	}
}

// HandleEvent routes a progress event to the views it concerns.
func (r *DetailRegistry) HandleEvent(ev models.JobEvent) {
	for _, id := range []string{ev.Job.ID, ev.Job.Parent} {
		if id == "" {
			continue
		}
		if view, ok := r.Get(id); ok && view.Process(ev) {
			r.notify(view.State())
		}
	}
}

// HandleDetails hydrates the view a job_details payload belongs to.
func (r *DetailRegistry) HandleDetails(details *models.JobEvent) {
	if details == nil {
		r.logger.Debug().Msg("Job details not found")
		return
	}
	view, ok := r.Get(details.Job.ID)
	if !ok {
		return
	}
	if view.Hydrate(details) {
		r.notify(view.State())
	}
}

// HandleConnected clears every open view and requests it again.
func (r *DetailRegistry) HandleConnected(ctx context.Context) {
	for _, id := range r.JobIDs() {
		view, ok := r.Get(id)
		if !ok {
			continue
		}
		view.Clear()
		r.notify(view.State())
		r.request(ctx, id)
	}
}

func (r *DetailRegistry) request(ctx context.Context, jobID string) {
	if r.emitter == nil {
		return
	}
	if err := r.emitter.Emit(ctx, interfaces.EventGetJobDetails, jobID); err != nil {
		r.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to request job details")
	}
}

func (r *DetailRegistry) notify(state DetailState) {
	r.obsMu.RLock()
	fns := make([]func(DetailState), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.obsMu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}
