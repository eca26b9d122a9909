package audit

import "sync"

var _ Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor keeps entries in memory, mostly for tests and one-shot
// CLI runs.
type InMemoryAuditor struct {
	mu      sync.Mutex
	entries []Entry
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return &InMemoryAuditor{
		entries: make([]Entry, 0),
	}
}

func (i *InMemoryAuditor) Log(entry Entry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries = append(i.entries, entry)
	return nil
}

// Recent returns up to limit of the most recent entries, oldest first.
func (i *InMemoryAuditor) Recent(limit int) []Entry {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit > len(i.entries) {
		limit = len(i.entries)
	}
	start := len(i.entries) - limit
	entries := make([]Entry, limit)
	copy(entries, i.entries[start:])

	return entries
}

func (i *InMemoryAuditor) Close() error {
	return nil // nothing to close :)
}
