package models

// Log levels shown by the log viewer, lowest first.
const (
	LogLevelDebug = 0
	LogLevelInfo  = 1
	LogLevelWarn  = 2
	LogLevelError = 3
)

// LogLine is one classified line of the engine's system log.
type LogLine struct {
	Seq      uint64 `json:"seq"`
	Text     string `json:"text"`
	Level    string `json:"level"`
	LevelInt int    `json:"level_int"`
}
