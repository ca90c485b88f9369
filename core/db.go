package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Engine is a handle to one open key-value store. It is single-writer,
// single-threaded per the embedder's contract (spec.md §5) but guards its
// own state with a RWMutex the way the teacher's DB does, so a misbehaving
// embedder fails loudly under the race detector rather than corrupting
// memory silently.
type Engine[K comparable, V any] struct {
	prefix string
	codec  Codec[K, V]

	mu       sync.RWMutex
	segments map[int]*segment
	activeID int

	dir       *directory[K]
	free      *freeList
	deleteLog map[K]dirEntry
	dirty     bool

	fsyncOnWrite bool
	filePerm     os.FileMode
	log          *zap.SugaredLogger
}

// Open creates or opens a store at the given path prefix. It never scans
// existing segment files — spec.md's non-goals explicitly exclude crash-safe
// recovery by replaying the log at open time, so a fresh handle only ever
// sees what it writes itself during this process's lifetime.
func Open[K comparable, V any](prefix string, codec Codec[K, V], opts ...Option[K, V]) (*Engine[K, V], error) {
	if dir := filepath.Dir(prefix); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: mkdir %q: %v", ErrIO, dir, err)
		}
	}

	e := &Engine[K, V]{
		prefix:    prefix,
		codec:     codec,
		segments:  make(map[int]*segment),
		dir:       newDirectory[K](codec.Compare),
		free:      newFreeList(),
		deleteLog: make(map[K]dirEntry),
		filePerm:  0o644,
		log:       zap.NewNop().Sugar(),
	}

	for _, opt := range opts {
		opt(e)
	}

	seg, err := createSegment(prefix, 1, e.filePerm)
	if err != nil {
		return nil, err
	}
	e.segments[1] = seg
	e.activeID = 1

	return e, nil
}

// Get satisfies a point lookup with a single positioned read (spec.md
// §4.3).
func (e *Engine[K, V]) Get(key K) (V, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.getLocked(key)
}

func (e *Engine[K, V]) getLocked(key K) (V, error) {
	var zero V

	entry, ok := e.dir.get(key)
	if !ok {
		return zero, fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}

	seg, ok := e.segments[entry.segmentID]
	if !ok {
		return zero, fmt.Errorf("%w: directory entry for %v references missing segment %d",
			ErrInvariant, key, entry.segmentID)
	}

	valueBytes, err := readValue(seg.file, entry.valueOffset, entry.valueLength)
	if err != nil {
		return zero, err
	}

	val, err := e.codec.DecodeValue(valueBytes)
	if err != nil {
		return zero, fmt.Errorf("%w: decode value for key %v: %v", ErrDecode, key, err)
	}

	return val, nil
}

// Put stores value under key, reusing a freed extent when one fits
// (spec.md §4.3's first-fit-by-length, most-recently-freed-first policy)
// and otherwise appending to the active segment's tail.
func (e *Engine[K, V]) Put(key K, value V) (V, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero V

	// Overwrite is delete-then-insert, so the prior extent becomes free
	// before we look for a slot for the new record.
	if _, ok := e.dir.get(key); ok {
		e.deleteLocked(key)
	}

	keyBytes, err := e.codec.EncodeKey(key)
	if err != nil {
		return zero, fmt.Errorf("%w: encode key: %v", ErrEncode, err)
	}
	valueBytes, err := e.codec.EncodeValue(value)
	if err != nil {
		return zero, fmt.Errorf("%w: encode value: %v", ErrEncode, err)
	}

	need := int64(hdrLen + len(keyBytes) + len(valueBytes))

	var (
		segID  int
		valOff int64
		newExt extent
	)

	if hole, ok := e.free.take(need); ok {
		seg := e.segments[hole.segmentID]
		segID = hole.segmentID
		valOff, newExt, err = seg.writeAt(hole.start, keyBytes, valueBytes)
	} else {
		active := e.segments[e.activeID]
		segID = e.activeID
		valOff, newExt, err = active.append(keyBytes, valueBytes)
	}
	if err != nil {
		return zero, err
	}

	e.dir.set(key, dirEntry{
		segmentID:   segID,
		valueLength: len(valueBytes),
		valueOffset: valOff,
		ext:         newExt,
	})
	e.dirty = true

	if e.fsyncOnWrite {
		if err := e.segments[segID].file.Sync(); err != nil {
			return zero, fmt.Errorf("%w: fsync segment %d: %v", ErrIO, segID, err)
		}
	}

	return value, nil
}

// Delete removes key's directory entry, if any, frees its extent for
// reuse, and records it in the delete-log. Deleting a non-existent key is a
// successful no-op (spec.md §4.3).
func (e *Engine[K, V]) Delete(key K) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleteLocked(key)
	return nil
}

func (e *Engine[K, V]) deleteLocked(key K) {
	entry, ok := e.dir.remove(key)
	if !ok {
		return
	}
	e.free.push(entry.ext)
	e.deleteLog[key] = entry
	e.dirty = true
}

// Sync flushes any buffered writes to the OS and, if the handle is dirty,
// rolls the active segment (spec.md §4.4). It is a cheap no-op on a clean
// handle.
func (e *Engine[K, V]) Sync() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncLocked()
}

func (e *Engine[K, V]) syncLocked() error {
	if !e.dirty {
		return nil
	}

	for id, seg := range e.segments {
		if err := seg.file.Sync(); err != nil {
			return fmt.Errorf("%w: fsync segment %d: %v", ErrIO, id, err)
		}
	}

	newID := e.activeID + 1
	newSeg, err := createFreshSegment(e.prefix, newID, e.filePerm)
	if err != nil {
		return err
	}
	e.segments[newID] = newSeg
	e.activeID = newID
	e.dirty = false

	return nil
}

// Close performs a best-effort final Sync (the Drop-equivalent of spec.md
// §9 — errors are swallowed because there is no caller left to receive
// them) and closes every open segment file.
func (e *Engine[K, V]) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.syncLocked(); err != nil {
		e.log.Warnw("sync on close failed, continuing", "error", err)
	}

	var firstErr error
	for id, seg := range e.segments {
		if err := seg.close(); err != nil {
			e.log.Warnw("close segment failed", "segment", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Keys enumerates live keys in the directory's total order (spec.md §3's
// "Iteration order is the total order of keys under the embedder-supplied
// comparison").
func (e *Engine[K, V]) Keys() []K {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dir.keys()
}

// Values enumerates one value per live key, in key order.
func (e *Engine[K, V]) Values() ([]V, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := e.dir.keys()
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		v, err := e.getLocked(k)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Item is one (key, value) pair as returned by Items.
type Item[K any, V any] struct {
	Key   K
	Value V
}

// Items enumerates (key, value) pairs in key order; for all i,
// Items()[i] == (Keys()[i], Get(Keys()[i])) (spec.md §8).
func (e *Engine[K, V]) Items() ([]Item[K, V], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := e.dir.keys()
	out := make([]Item[K, V], 0, len(keys))
	for _, k := range keys {
		v, err := e.getLocked(k)
		if err != nil {
			return nil, err
		}
		out = append(out, Item[K, V]{Key: k, Value: v})
	}
	return out, nil
}

// Verify re-reads key's record from disk and recomputes its checksum,
// bypassing the hot Get path entirely (spec.md §4.2). It is a diagnostic
// for tests and tools, not used by Get.
func (e *Engine[K, V]) Verify(key K) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, ok := e.dir.get(key)
	if !ok {
		return fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}

	seg, ok := e.segments[entry.segmentID]
	if !ok {
		return fmt.Errorf("%w: directory entry for %v references missing segment %d",
			ErrInvariant, key, entry.segmentID)
	}

	if _, _, err := readRecordAt(seg.file, entry.ext); err != nil {
		return fmt.Errorf("%w: verify %v: %v", ErrInvariant, key, err)
	}
	return nil
}
