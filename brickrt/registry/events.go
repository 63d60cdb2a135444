package registry

type ChangeKind uint8

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeCleared
	ChangeUpdated
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeCleared:
		return "cleared"
	case ChangeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Change describes one committed mutation. Brick is empty for ChangeCleared,
// Count is only set for ChangeCleared.
type Change struct {
	Kind    ChangeKind
	Brick   Brick
	Version uint64
	Count   int
}

// Subscribe registers fn to run after every committed change. Observers run
// outside the registry lock, in subscription order, and see changes in
// strictly increasing Version order. One goroutine at a time delivers: when
// mutations race, the one already delivering also delivers the others'
// changes, so a mutating call may return before its own change reached the
// observers. Observers may call back into the registry.
func (r *Registry) Subscribe(fn func(Change)) (cancel func()) {
	r.obsMu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.obsOrder = append(r.obsOrder, id)
	r.obsMu.Unlock()

	return func() {
		r.obsMu.Lock()
		defer r.obsMu.Unlock()
		if _, ok := r.observers[id]; !ok {
			return
		}
		delete(r.observers, id)
		for i, oid := range r.obsOrder {
			if oid == id {
				r.obsOrder = append(r.obsOrder[:i], r.obsOrder[i+1:]...)
				break
			}
		}
	}
}

// enqueue must be called with r.mu held.
func (r *Registry) enqueue(c Change) {
	r.pending = append(r.pending, c)
}

func (r *Registry) dequeue() (Change, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		return Change{}, false
	}
	c := r.pending[0]
	r.pending[0] = Change{}
	r.pending = r.pending[1:]
	return c, true
}

func (r *Registry) hasPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending) > 0
}

// flush drains pending changes to the observers. If another goroutine (or an
// observer further up this stack) is already draining, it picks ours up.
func (r *Registry) flush() {
	for {
		if !r.deliverMu.TryLock() {
			return
		}
		for {
			c, ok := r.dequeue()
			if !ok {
				break
			}
			r.notify(c)
		}
		r.deliverMu.Unlock()
		// a change queued while we were unlocking would otherwise wait
		if !r.hasPending() {
			return
		}
	}
}

func (r *Registry) notify(c Change) {
	r.obsMu.Lock()
	fns := make([]func(Change), 0, len(r.obsOrder))
	for _, id := range r.obsOrder {
		fns = append(fns, r.observers[id])
	}
	r.obsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
