package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Progress event types emitted by the engine.
const (
	EventTypeStarted = 1
	EventTypeUpdated = 2
	EventTypeEnded   = 4
)

// JobRef identifies a job inside a progress event.
// Parent is empty for top-level jobs.
type JobRef struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Parent string `json:"parent"`
	Status int    `json:"status"`
}

// MarshalJSON renders an empty parent as null, matching the engine's wire form.
func (r JobRef) MarshalJSON() ([]byte, error) {
	out := struct {
		ID     string  `json:"id"`
		Name   string  `json:"name,omitempty"`
		Parent *string `json:"parent"`
		Status int     `json:"status"`
	}{ID: r.ID, Name: r.Name, Status: r.Status}
	if r.Parent != "" {
		p := r.Parent
		out.Parent = &p
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts string or numeric ids and a null or missing parent.
func (r *JobRef) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("job reference: %w", err)
	}
	r.ID = looseString(fields["id"])
	r.Name = looseString(fields["name"])
	r.Parent = looseString(fields["parent"])
	r.Status = int(looseNumber(fields["status"]))
	return nil
}

// IsTopLevel reports whether the job has no parent.
func (r JobRef) IsTopLevel() bool {
	return r.Parent == ""
}

// JobEvent is one progress message from the push channel.
type JobEvent struct {
	Job          JobRef  `json:"job"`
	StartValue   float64 `json:"start_value"`
	CurrentValue float64 `json:"current_value"`
	EndValue     float64 `json:"end_value"`
	StartTime    string  `json:"start_time,omitempty"`
	EventType    int     `json:"event_type,omitempty"`

	// SubJobs is only populated on job_details payloads.
	SubJobs []JobEvent `json:"sub_jobs,omitempty"`
}

// UnmarshalJSON decodes leniently: numeric fields of the wrong type read as 0
// and unknown fields are ignored. Only a non-object payload is an error.
func (e *JobEvent) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("job event: %w", err)
	}

	*e = JobEvent{}
	if raw, ok := fields["job"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &e.Job); err != nil {
			e.Job = JobRef{}
		}
	}
	e.StartValue = looseNumber(fields["start_value"])
	e.CurrentValue = looseNumber(fields["current_value"])
	e.EndValue = looseNumber(fields["end_value"])
	e.StartTime = looseString(fields["start_time"])
	e.EventType = int(looseNumber(fields["event_type"]))

	if raw, ok := fields["sub_jobs"]; ok && !isNull(raw) {
		var subs []json.RawMessage
		if err := json.Unmarshal(raw, &subs); err == nil {
			for _, s := range subs {
				var sub JobEvent
				if err := json.Unmarshal(s, &sub); err != nil {
					continue
				}
				e.SubJobs = append(e.SubJobs, sub)
			}
		}
	}
	return nil
}

// DecodeJobEvents decodes a list payload, skipping elements that are not objects.
func DecodeJobEvents(data []byte) ([]JobEvent, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("job event list: %w", err)
	}
	events := make([]JobEvent, 0, len(raw))
	for _, r := range raw {
		var ev JobEvent
		if err := json.Unmarshal(r, &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func looseString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return ""
}

func looseNumber(raw json.RawMessage) float64 {
	if isNull(raw) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return 0
}
