package slots

import (
	"container/list"

	"swarmd/pkg/types"
)

// request is one caller's pending desire for a slot. It lives only as long
// as the wait; it is removed once granted, cancelled or reset.
type request struct {
	workerID string
	profile  *types.Profile
	seq      uint64
	elem     *list.Element
	aborted  bool
}

// waitQueue keeps pending requests ordered by (priority desc, arrival asc).
// The head entry is never displaced: new arrivals are inserted behind it
// regardless of priority, so a request that reached rank 1 stays there.
// Not safe for concurrent use; the manager's mutex guards it.
type waitQueue struct {
	l   *list.List
	seq uint64
}

func newWaitQueue() *waitQueue {
	return &waitQueue{l: list.New()}
}

func (q *waitQueue) len() int { return q.l.Len() }

func (q *waitQueue) enqueue(workerID string, p *types.Profile) *request {
	q.seq++
	req := &request{workerID: workerID, profile: p, seq: q.seq}

	// Scan from the second entry: the current head is pinned.
	var at *list.Element
	if front := q.l.Front(); front != nil {
		for e := front.Next(); e != nil; e = e.Next() {
			if e.Value.(*request).profile.Priority < p.Priority {
				at = e
				break
			}
		}
	}
	if at != nil {
		req.elem = q.l.InsertBefore(req, at)
	} else {
		req.elem = q.l.PushBack(req)
	}
	return req
}

// rank returns the 1-based position of req, or 0 if it is no longer queued.
func (q *waitQueue) rank(req *request) int {
	n := 0
	for e := q.l.Front(); e != nil; e = e.Next() {
		n++
		if e.Value.(*request) == req {
			return n
		}
	}
	return 0
}

func (q *waitQueue) head() *request {
	e := q.l.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*request)
}

func (q *waitQueue) remove(req *request) {
	if req.elem == nil {
		return
	}
	q.l.Remove(req.elem)
	req.elem = nil
}

// drain aborts and removes every pending request, returning them so the
// caller can reset their profiles' positions.
func (q *waitQueue) drain() []*request {
	out := make([]*request, 0, q.l.Len())
	for e := q.l.Front(); e != nil; e = e.Next() {
		req := e.Value.(*request)
		req.aborted = true
		req.elem = nil
		out = append(out, req)
	}
	q.l.Init()
	return out
}
