package core

import "sort"

// directory is the in-memory key directory (spec.md §3): a key-ordered
// mapping from live key to the extent holding its latest value. Ordering
// follows the embedder-supplied comparison and is the contract for
// keys/values/items.
type directory[K comparable] struct {
	entries map[K]dirEntry
	order   []K
	cmp     func(a, b K) int
}

func newDirectory[K comparable](cmp func(a, b K) int) *directory[K] {
	return &directory[K]{
		entries: make(map[K]dirEntry),
		cmp:     cmp,
	}
}

func (d *directory[K]) get(key K) (dirEntry, bool) {
	e, ok := d.entries[key]
	return e, ok
}

func (d *directory[K]) len() int {
	return len(d.order)
}

// set inserts or overwrites the entry for key, keeping d.order sorted.
func (d *directory[K]) set(key K, e dirEntry) {
	if _, exists := d.entries[key]; !exists {
		i := sort.Search(len(d.order), func(i int) bool {
			return d.cmp(d.order[i], key) >= 0
		})
		d.order = append(d.order, key)
		copy(d.order[i+1:], d.order[i:])
		d.order[i] = key
	}
	d.entries[key] = e
}

// remove deletes the entry for key, if present, and reports whether it was
// present along with the removed entry.
func (d *directory[K]) remove(key K) (dirEntry, bool) {
	e, ok := d.entries[key]
	if !ok {
		return dirEntry{}, false
	}

	delete(d.entries, key)

	i := sort.Search(len(d.order), func(i int) bool {
		return d.cmp(d.order[i], key) >= 0
	})
	if i < len(d.order) && d.order[i] == key {
		d.order = append(d.order[:i], d.order[i+1:]...)
	}

	return e, true
}

// keys returns live keys in the directory's total order.
func (d *directory[K]) keys() []K {
	out := make([]K, len(d.order))
	copy(out, d.order)
	return out
}
