package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/airbot/internal/gesture"
)

// LogCapacity is how many entries an ActionLog keeps.
const LogCapacity = 10

// LogEntry records one accepted dispatch.
type LogEntry struct {
	Time    time.Time       `json:"time"`
	Gesture gesture.Gesture `json:"gesture"`
	Action  Action          `json:"action"`
	Err     string          `json:"error,omitempty"`
}

// String formats the entry as "HH:MM:SS: <gesture name>".
func (e LogEntry) String() string {
	return fmt.Sprintf("%s: %s", e.Time.Format("15:04:05"), e.Gesture)
}

// ActionLog is a fixed-capacity ring of recent dispatches. When full, the
// oldest entry is overwritten.
type ActionLog struct {
	mu      sync.RWMutex
	entries []LogEntry
	start   int
	size    int
}

// NewActionLog creates a log holding at most capacity entries.
// A non-positive capacity falls back to LogCapacity.
func NewActionLog(capacity int) *ActionLog {
	if capacity <= 0 {
		capacity = LogCapacity
	}
	return &ActionLog{entries: make([]LogEntry, capacity)}
}

// Append adds an entry, evicting the oldest one if the log is full.
func (l *ActionLog) Append(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	capacity := len(l.entries)
	if l.size < capacity {
		l.entries[(l.start+l.size)%capacity] = e
		l.size++
		return
	}
	l.entries[l.start] = e
	l.start = (l.start + 1) % capacity
}

// Entries returns a copy of the log, oldest first.
func (l *ActionLog) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]LogEntry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.entries[(l.start+i)%len(l.entries)]
	}
	return out
}

// Lines returns the formatted entries, oldest first.
func (l *ActionLog) Lines() []string {
	entries := l.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}

// Len returns the number of stored entries.
func (l *ActionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Clear removes all entries.
func (l *ActionLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.start = 0
	l.size = 0
}
