package core

import "sort"

// freeList is the free-slot index (spec.md §3/§4.3): a mapping from extent
// length to an ordered collection of extents of exactly that length,
// bucketed by record byte-length, each bucket a stack so the
// most-recently-freed extent within a length class is reused first.
type freeList struct {
	buckets map[int64][]extent
	lengths []int64 // sorted ascending, exactly the non-empty bucket keys
}

func newFreeList() *freeList {
	return &freeList{buckets: make(map[int64][]extent)}
}

// push records ext as available for reuse by any record of exactly ext's
// length.
func (f *freeList) push(ext extent) {
	length := ext.length()
	if _, exists := f.buckets[length]; !exists {
		i := sort.Search(len(f.lengths), func(i int) bool { return f.lengths[i] >= length })
		f.lengths = append(f.lengths, 0)
		copy(f.lengths[i+1:], f.lengths[i:])
		f.lengths[i] = length
	}
	f.buckets[length] = append(f.buckets[length], ext)
}

// take selects the smallest bucket whose length is >= need, and within it
// the most recently pushed extent (first-fit by length, most-recently-freed
// first within a length class — spec.md §4.3's put policy). The residual
// tail, if any, is deliberately not reinserted (spec.md §9, "Free-slot
// residuals").
func (f *freeList) take(need int64) (extent, bool) {
	i := sort.Search(len(f.lengths), func(i int) bool { return f.lengths[i] >= need })
	if i == len(f.lengths) {
		return extent{}, false
	}

	length := f.lengths[i]
	bucket := f.buckets[length]
	ext := bucket[len(bucket)-1]
	bucket = bucket[:len(bucket)-1]

	if len(bucket) == 0 {
		delete(f.buckets, length)
		f.lengths = append(f.lengths[:i], f.lengths[i+1:]...)
	} else {
		f.buckets[length] = bucket
	}

	return ext, true
}

// clear empties the free-slot index, used by prune (spec.md §4.5).
func (f *freeList) clear() {
	f.buckets = make(map[int64][]extent)
	f.lengths = nil
}
