package core

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// OrphanSegments reports the ids of segments the engine still holds open
// that are referenced by no live directory entry and are neither segment 1
// (the permanent first segment) nor the active segment. These are forensic, not functional: prune's general branch only
// rewrites segments a live key actually points into (spec.md §4.5), so a
// segment can sit on disk fully dead between prunes. This is a read-only
// tool for operators deciding whether a prune is worth running, not
// something the engine consults itself.
func (e *Engine[K, V]) OrphanSegments() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	referenced := mapset.NewSet[int](1, e.activeID)
	for _, k := range e.dir.keys() {
		entry, _ := e.dir.get(k)
		referenced.Add(entry.segmentID)
	}

	present := mapset.NewSet[int]()
	for id := range e.segments {
		present.Add(id)
	}

	orphans := present.Difference(referenced).ToSlice()
	sort.Ints(orphans)
	return orphans
}
