package audit

import (
	"sync"

	types "github.com/northcampus/gradebook-backend/internal/domain"
)

// DefaultRingCapacity bounds the in-memory entry buffer kept for local
// observability and read fallback.
const DefaultRingCapacity = 100

// ring is a fixed-capacity buffer of the most recent audit entries, oldest
// evicted first. It is the fallback read source when the durable store is
// unreachable and the first write target of every Record call.
type ring struct {
	mu      sync.Mutex
	entries []*types.AuditLogEntry
	next    int
	full    bool
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &ring{entries: make([]*types.AuditLogEntry, capacity)}
}

func (r *ring) Append(e *types.AuditLogEntry) {
	if e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = e
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.full = true
	}
}

// Snapshot returns the buffered entries newest first.
func (r *ring) Snapshot() []*types.AuditLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.entries)
	}
	out := make([]*types.AuditLogEntry, 0, size)
	for i := 1; i <= size; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += len(r.entries)
		}
		out = append(out, r.entries[idx])
	}
	return out
}

func (r *ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.entries)
	}
	return r.next
}
