package models

import (
	"encoding/json"
	"iter"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// JobViewNode is the display state of one tracked job.
type JobViewNode struct {
	Job           JobRef           `json:"job"`
	StartValue    float64          `json:"start_value"`
	CurrentValue  float64          `json:"current_value"`
	EndValue      float64          `json:"end_value"`
	StartTime     string           `json:"start_time,omitempty"`
	PercCompleted float64          `json:"perc_completed"`
	Status        StatusDescriptor `json:"status"`
	CanBeModified bool             `json:"can_be_modified"`
	SubJobs       *JobSet          `json:"sub_jobs"`
}

// NewJobViewNode creates a node from the event that first introduced the job.
func NewJobViewNode(ev JobEvent) *JobViewNode {
	return &JobViewNode{
		Job:          ev.Job,
		StartValue:   ev.StartValue,
		CurrentValue: ev.CurrentValue,
		EndValue:     ev.EndValue,
		StartTime:    ev.StartTime,
		SubJobs:      NewJobSet(),
	}
}

// Clone returns a deep copy of the node including its sub-jobs.
func (n *JobViewNode) Clone() *JobViewNode {
	if n == nil {
		return nil
	}
	c := *n
	c.SubJobs = n.SubJobs.Clone()
	return &c
}

// JobSet is an insertion-ordered map from job id to node.
type JobSet struct {
	nodes *orderedmap.OrderedMap[string, *JobViewNode]
}

// NewJobSet returns an empty set.
func NewJobSet() *JobSet {
	return &JobSet{nodes: orderedmap.New[string, *JobViewNode]()}
}

// Get returns the node for id.
func (s *JobSet) Get(id string) (*JobViewNode, bool) {
	if s == nil {
		return nil, false
	}
	return s.nodes.Get(id)
}

// Put inserts or replaces the node for id. A replaced key keeps its position.
func (s *JobSet) Put(id string, node *JobViewNode) {
	s.nodes.Set(id, node)
}

// Delete removes id and reports whether it was present.
func (s *JobSet) Delete(id string) bool {
	_, present := s.nodes.Delete(id)
	return present
}

// Len returns the number of nodes.
func (s *JobSet) Len() int {
	if s == nil {
		return 0
	}
	return s.nodes.Len()
}

// Clear removes every node.
func (s *JobSet) Clear() {
	s.nodes = orderedmap.New[string, *JobViewNode]()
}

// All iterates the nodes in insertion order.
func (s *JobSet) All() iter.Seq2[string, *JobViewNode] {
	return func(yield func(string, *JobViewNode) bool) {
		if s == nil {
			return
		}
		for pair := s.nodes.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Keys returns the ids in insertion order.
func (s *JobSet) Keys() []string {
	keys := make([]string, 0, s.Len())
	for id := range s.All() {
		keys = append(keys, id)
	}
	return keys
}

// Clone returns a deep copy.
func (s *JobSet) Clone() *JobSet {
	c := NewJobSet()
	for id, node := range s.All() {
		c.Put(id, node.Clone())
	}
	return c
}

// MarshalJSON renders the set as a JSON object in insertion order.
func (s *JobSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.nodes)
}
