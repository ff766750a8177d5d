package models

// Job status codes reported by the engine.
const (
	StatusRunning  = 1
	StatusWaiting  = 2
	StatusFinished = 3
	StatusError    = 4
	StatusInactive = 5
)

// StatusDescriptor is the display form of a job status.
type StatusDescriptor struct {
	CSS  string `json:"css"`
	Text string `json:"text"`
}

var statusDescriptors = map[int]StatusDescriptor{
	StatusRunning:  {CSS: "label-info", Text: "Running"},
	StatusWaiting:  {CSS: "label-warning", Text: "Waiting"},
	StatusFinished: {CSS: "label-success", Text: "Finished"},
	StatusError:    {CSS: "label-danger", Text: "Error"},
	StatusInactive: {CSS: "label-default", Text: "Inactive"},
}

// UnknownStatus is shown where a view wants to distinguish an unmapped code.
var UnknownStatus = StatusDescriptor{CSS: "label-default", Text: "Unknown"}

// LookupStatus returns the descriptor for code and whether the code is known.
func LookupStatus(code int) (StatusDescriptor, bool) {
	d, ok := statusDescriptors[code]
	return d, ok
}

// ResolveStatus maps a status code to its descriptor, falling back to Inactive.
func ResolveStatus(code int) StatusDescriptor {
	if d, ok := statusDescriptors[code]; ok {
		return d
	}
	return statusDescriptors[StatusInactive]
}
