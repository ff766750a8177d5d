// Package jobs merges streamed job progress events into the nested view state
// shown by the job queue and job detail views.
package jobs

import (
	"math"

	"github.com/ternarybob/prinde/internal/models"
)

// DropReason explains why an event changed nothing.
type DropReason string

const (
	DropNone       DropReason = ""
	DropMissingID  DropReason = "missing_id"
	DropOrphan     DropReason = "orphan"
	DropNotTracked DropReason = "not_tracked"
)

// Outcome describes the effect of applying one event.
type Outcome struct {
	ID      string
	Parent  string
	Created bool
	Dropped DropReason
	// Completion is the percentage computed for the event; meaningful only when not dropped.
	Completion float64
}

// Applied reports whether the event mutated the set.
func (o Outcome) Applied() bool {
	return o.Dropped == DropNone
}

// Complete reports whether the event took its job to 100% or more.
func (o Outcome) Complete() bool {
	return o.Applied() && o.Completion >= 100
}

// Completion returns max((current-start)/max(end,1)*100, 0).
func Completion(ev models.JobEvent) float64 {
	denom := math.Max(ev.EndValue, 1)
	return math.Max((ev.CurrentValue-ev.StartValue)/denom*100, 0)
}

// ApplyEvent merges ev into set. Top-level jobs are keyed in set; sub-jobs in their
// parent's SubJobs. A sub-job whose parent is not tracked is dropped.
func ApplyEvent(set *models.JobSet, ev models.JobEvent) Outcome {
	out := Outcome{ID: ev.Job.ID, Parent: ev.Job.Parent}
	if ev.Job.ID == "" {
		out.Dropped = DropMissingID
		return out
	}

	target := set
	if !ev.Job.IsTopLevel() {
		parent, ok := set.Get(ev.Job.Parent)
		if !ok {
			out.Dropped = DropOrphan
			return out
		}
		target = parent.SubJobs
	}

	node, ok := target.Get(ev.Job.ID)
	if !ok {
		node = models.NewJobViewNode(ev)
		target.Put(ev.Job.ID, node)
		out.Created = true
	}

	out.Completion = Completion(ev)
	node.Job = ev.Job
	node.CurrentValue = ev.CurrentValue
	node.EndValue = ev.EndValue
	node.PercCompleted = out.Completion
	node.Status = models.ResolveStatus(ev.Job.Status)
	return out
}

// ApplySnapshot applies events in list order.
func ApplySnapshot(set *models.JobSet, events []models.JobEvent) []Outcome {
	outcomes := make([]Outcome, 0, len(events))
	for _, ev := range events {
		outcomes = append(outcomes, ApplyEvent(set, ev))
	}
	return outcomes
}

// Remove deletes id from the map that holds it: the top level when parent is
// empty, otherwise the parent's sub-jobs. Missing entries are a no-op.
func Remove(set *models.JobSet, parent, id string) bool {
	if parent == "" {
		return set.Delete(id)
	}
	p, ok := set.Get(parent)
	if !ok {
		return false
	}
	return p.SubJobs.Delete(id)
}
