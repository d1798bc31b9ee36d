package behavior

// NodeID is the stable identity of a node within a compiled Tree: its
// position in a pre-order walk of the tree, with the root at 0.
type NodeID int

// Slot is the per-node scratch state, persisted across ticks for as long as
// the node remains active (Running). Leaves may store progress markers using
// SetData. The engine clears the slot whenever the node leaves Running, or is
// reset by an ancestor.
type Slot struct {
	data    any
	order   []int
	results []Status
	active  bool
	index   int
	count   int
	ticks   int
	last    Status
}

// Data returns the value stored with SetData during the current activation,
// or nil.
func (s *Slot) Data() any { return s.data }

// SetData stores a value that persists until the node's activation ends.
func (s *Slot) SetData(v any) { s.data = v }

// Ticks returns the number of ticks of the current activation, including the
// one in progress. It is 1 on the first tick of an activation.
func (s *Slot) Ticks() int { return s.ticks }

// Active returns true if the node was Running at the end of its last tick.
func (s *Slot) Active() bool { return s.active }

// reset zeroes the slot, retaining allocated buffers.
func (s *Slot) reset() {
	order, results := s.order[:0], s.results[:0]
	*s = Slot{order: order, results: results}
}

// State is the scratch state block for one instance of a Tree, with one Slot
// per node. Create using Tree.NewState. A State must only be used with the
// Tree that created it, and must not be ticked concurrently.
type State struct {
	slots   []Slot
	path    []NodeID
	tick    uint64
	latched Status
}

// Len returns the number of slots, equal to the node count of the tree.
func (s *State) Len() int { return len(s.slots) }

// Ticks returns the number of calls to Tree.Tick made with this state since
// it was created or last cleared.
func (s *State) Ticks() uint64 { return s.tick }

// Active returns true if the node is currently Running.
func (s *State) Active(id NodeID) bool {
	if id < 0 || int(id) >= len(s.slots) {
		return false
	}
	return s.slots[id].active
}

// Path returns a copy of the activation path of the most recent tick: the
// IDs of every node ticked, in the order they were ticked.
func (s *State) Path() []NodeID {
	if len(s.path) == 0 {
		return nil
	}
	return append([]NodeID(nil), s.path...)
}

// Latched returns the terminal status held by a tree using HoldOnTerminal,
// or zero if none is held.
func (s *State) Latched() Status { return s.latched }

// Clear returns the state to that of a freshly created one, without invoking
// any Aborter or Hooks. See also Tree.Reset.
func (s *State) Clear() {
	for i := range s.slots {
		s.slots[i].reset()
	}
	s.path = s.path[:0]
	s.tick = 0
	s.latched = 0
}

// clearSlots zeroes every slot, retaining the tick counter and path.
func (s *State) clearSlots() {
	for i := range s.slots {
		s.slots[i].reset()
	}
}

// resized returns buf with length n and every element zeroed.
func resized[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}
