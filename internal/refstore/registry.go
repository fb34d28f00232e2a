package refstore

// Registry keeps an ordered set of branch names with O(1) removal.
// The dense slice and the name→position index are mutated together so
// neither can drift from the other.
type Registry struct {
	names []string
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends name to the sequence. Registering a name twice is a
// caller bug; the second call is a no-op.
func (r *Registry) Register(name string) {
	if _, ok := r.index[name]; ok {
		return
	}
	r.index[name] = len(r.names)
	r.names = append(r.names, name)
}

// Deregister removes name by swapping it with the last entry and shrinking
// by one. Returns false if the name is not present.
func (r *Registry) Deregister(name string) bool {
	pos, ok := r.index[name]
	if !ok {
		return false
	}
	last := len(r.names) - 1
	if pos != last {
		moved := r.names[last]
		r.names[pos] = moved
		r.index[moved] = pos
	}
	r.names = r.names[:last]
	delete(r.index, name)
	return true
}

// Has reports membership.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Count returns the current number of registered names.
func (r *Registry) Count() int { return len(r.names) }

// List returns the sub-range [start, min(start+limit, count)). A start at or
// past the end yields an empty slice, not an error.
func (r *Registry) List(start, limit int) []string {
	if start < 0 || limit < 0 || start >= len(r.names) {
		return []string{}
	}
	end := start + limit
	if end > len(r.names) {
		end = len(r.names)
	}
	out := make([]string, end-start)
	copy(out, r.names[start:end])
	return out
}
