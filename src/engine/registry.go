package engine

type handle int32

type orderState uint8

const (
	stateResting orderState = iota
	stateCancelled
	stateFilled
)

func (s orderState) String() string {
	switch s {
	case stateResting:
		return "resting"
	case stateCancelled:
		return "cancelled"
	case stateFilled:
		return "filled"
	}
	return "unknown"
}

type registryEntry struct {
	h     handle
	state orderState
}

// registry owns every order ever accepted by the book. Records live in an
// arena and are addressed by handle; price levels hold handles only. An id
// maps to exactly one entry for the lifetime of the book.
type registry struct {
	arena   []Order
	entries map[int64]registryEntry
	resting int
}

func newRegistry() *registry {
	return &registry{
		entries: make(map[int64]registryEntry),
	}
}

func (r *registry) lookup(id int64) (registryEntry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

func (r *registry) order(h handle) *Order {
	return &r.arena[h]
}

// admit stores a new order record and registers it in the given state.
func (r *registry) admit(o Order, state orderState) handle {
	h := handle(len(r.arena))
	r.arena = append(r.arena, o)
	r.entries[o.ID] = registryEntry{h: h, state: state}
	if state == stateResting {
		r.resting++
	}
	return h
}

// archive moves a resting order into a terminal state.
func (r *registry) archive(id int64, state orderState) {
	e := r.entries[id]
	if e.state == stateResting && state != stateResting {
		r.resting--
	}
	e.state = state
	r.entries[id] = e
}

func (r *registry) restingCount() int {
	return r.resting
}
