package graphstate

// collection is an insertion-ordered set of entities keyed by ID. It is not
// synchronized; the Store guards every collection with its own mutex.
type collection[T any] struct {
	idOf  func(T) string
	items []T
	index map[string]int
}

func newCollection[T any](idOf func(T) string) *collection[T] {
	return &collection[T]{idOf: idOf, index: make(map[string]int)}
}

// put appends v, or replaces the entry with the same ID in place.
func (c *collection[T]) put(v T) {
	id := c.idOf(v)
	if i, ok := c.index[id]; ok {
		c.items[i] = v
		return
	}
	c.index[id] = len(c.items)
	c.items = append(c.items, v)
}

// swap puts v and returns the function that undoes it: the previous entry
// comes back in place, or v is removed when there was none.
func (c *collection[T]) swap(v T) func() {
	id := c.idOf(v)
	prev, existed := c.get(id)
	c.put(v)
	return func() {
		if existed {
			c.replace(id, prev)
			return
		}
		c.remove(id)
	}
}

func (c *collection[T]) get(id string) (T, bool) {
	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

func (c *collection[T]) has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// replace overwrites the entry at id, keeping its position.
func (c *collection[T]) replace(id string, v T) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items[i] = v
	return true
}

func (c *collection[T]) remove(id string) (T, bool) {
	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	removed := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.idOf(c.items[j])] = j
	}
	return removed, true
}

func (c *collection[T]) all() []T {
	return append([]T{}, c.items...)
}

// byIDs returns the entries whose ID is in ids, in collection order.
func (c *collection[T]) byIDs(ids map[string]struct{}) []T {
	out := []T{}
	for _, v := range c.items {
		if _, ok := ids[c.idOf(v)]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (c *collection[T]) clear() []T {
	removed := c.items
	c.items = nil
	c.index = make(map[string]int)
	return removed
}

func (c *collection[T]) len() int {
	return len(c.items)
}
