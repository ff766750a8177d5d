package models

import "encoding/json"

// TasksPayload is the job queue listing pushed on "tasks". Both lists are
// passed through to the views untouched.
type TasksPayload struct {
	JobQueue      json.RawMessage `json:"job_queue"`
	FinishedTasks json.RawMessage `json:"finished_tasks"`
}
