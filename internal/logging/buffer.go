package logging

import (
	"sync"
	"time"
)

// LogEntry is one record as kept for replay and streamed to /api/logs.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Matches reports whether the entry is at least minLevel and, when module
// is set, belongs to it. An empty or unknown minLevel admits every level.
func (e LogEntry) Matches(minLevel, module string) bool {
	if module != "" && e.Module != module {
		return false
	}
	floor, ok := levelRank[minLevel]
	return !ok || levelRank[e.Level] >= floor
}

// RingBuffer keeps the most recent log entries. Sequence numbers are
// assigned on write and are contiguous, so the oldest retained entry is
// always seq-len+1.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int // slot the next write lands in
	len     int
	seq     uint64
}

// NewRingBuffer creates a buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write stores entry, evicting the oldest when full, and returns the
// sequence number it was given.
func (rb *RingBuffer) Write(entry LogEntry) uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.seq++
	entry.Seq = rb.seq
	rb.entries[rb.next] = entry
	rb.next = (rb.next + 1) % len(rb.entries)
	if rb.len < len(rb.entries) {
		rb.len++
	}
	return rb.seq
}

// ReadAll returns every retained entry, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	return rb.Since(0)
}

// Since returns the retained entries with a sequence number above seq,
// oldest first.
func (rb *RingBuffer) Since(seq uint64) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if seq >= rb.seq {
		return nil
	}
	n := min(int(rb.seq-seq), rb.len)
	out := make([]LogEntry, n)
	start := (rb.next - n + len(rb.entries)) % len(rb.entries)
	for i := range n {
		out[i] = rb.entries[(start+i)%len(rb.entries)]
	}
	return out
}

// Len returns the number of retained entries.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.len
}
