package logs

import (
	"strings"
	"sync"

	"github.com/ternarybob/prinde/internal/models"
)

// DefaultMaxEntries matches the number of lines the engine keeps.
const DefaultMaxEntries = 300

// Buffer keeps the most recent classified log lines.
type Buffer struct {
	mu      sync.RWMutex
	max     int
	entries []models.LogLine
	seq     uint64
}

// NewBuffer creates a buffer holding at most max lines.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Buffer{max: max}
}

// Append classifies and stores lines, dropping the oldest past the limit.
// Blank lines are skipped. The stored lines are returned.
func (b *Buffer) Append(lines []string) []models.LogLine {
	b.mu.Lock()
	defer b.mu.Unlock()

	added := make([]models.LogLine, 0, len(lines))
	for _, raw := range lines {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		level, levelInt := Classify(text)
		b.seq++
		added = append(added, models.LogLine{Seq: b.seq, Text: text, Level: level, LevelInt: levelInt})
	}

	b.entries = append(b.entries, added...)
	if over := len(b.entries) - b.max; over > 0 {
		b.entries = append([]models.LogLine(nil), b.entries[over:]...)
	}
	return added
}

// Clear drops every line. Sequence numbers keep increasing.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = nil
}

// Entries returns the stored lines at or above minLevel, oldest first.
func (b *Buffer) Entries(minLevel int) []models.LogLine {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Filter(b.entries, minLevel)
}

// Len returns the number of stored lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Filter returns the lines with LevelInt >= minLevel.
func Filter(lines []models.LogLine, minLevel int) []models.LogLine {
	out := make([]models.LogLine, 0, len(lines))
	for _, l := range lines {
		if l.LevelInt >= minLevel {
			out = append(out, l)
		}
	}
	return out
}
