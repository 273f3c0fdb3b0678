package history

import "github.com/specialistvlad/apiflow/internal/workflow"

// ring is a fixed-capacity stack of snapshots. Pushing onto a full ring
// evicts the oldest entry.
type ring struct {
	buf   []workflow.Snapshot
	start int
	n     int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]workflow.Snapshot, capacity)}
}

func (r *ring) len() int { return r.n }

func (r *ring) push(s workflow.Snapshot) (evicted bool) {
	if r.n == len(r.buf) {
		r.buf[r.start] = workflow.Snapshot{}
		r.start = (r.start + 1) % len(r.buf)
		r.n--
		evicted = true
	}
	r.buf[(r.start+r.n)%len(r.buf)] = s
	r.n++
	return evicted
}

func (r *ring) pop() (workflow.Snapshot, bool) {
	if r.n == 0 {
		return workflow.Snapshot{}, false
	}
	i := (r.start + r.n - 1) % len(r.buf)
	s := r.buf[i]
	r.buf[i] = workflow.Snapshot{}
	r.n--
	return s, true
}

func (r *ring) clear() {
	clear(r.buf)
	r.start, r.n = 0, 0
}
