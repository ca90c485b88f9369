package core

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// Prune reclaims space by rewriting only live records into fresh segment
// files and atomically swapping them into place (spec.md §4.5). It is a
// no-op on a clean handle.
func (e *Engine[K, V]) Prune() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.dirty {
		return nil
	}

	if e.dir.len() == 0 {
		return e.pruneEmptyLocked()
	}

	images, newDir, err := e.buildPrunedImagesLocked()
	if err != nil {
		return err
	}

	if err := e.commitPrunedImagesLocked(images); err != nil {
		return err
	}

	e.dir = newDir
	e.deleteLog = make(map[K]dirEntry)
	e.free.clear()
	e.dirty = false

	return nil
}

// pruneEmptyLocked handles the case where no key is live: every segment
// file with id in [2, activeID] is removed; segment 1 is the engine's
// permanent first segment and is never deleted. If activeID itself falls
// in that range, its backing path is unlinked but the already-open file
// descriptor keeps working — Put continues to append through it until the
// next sync rolls to a new id, the same way an unlinked-but-open file
// behaves on any POSIX filesystem.
func (e *Engine[K, V]) pruneEmptyLocked() error {
	for id := 2; id <= e.activeID; id++ {
		if err := os.Remove(segmentPath(e.prefix, id)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: prune: remove segment %d: %v", ErrIO, id, err)
		}
		if id != e.activeID {
			if seg, ok := e.segments[id]; ok {
				_ = seg.close()
				delete(e.segments, id)
			}
		}
	}

	e.deleteLog = make(map[K]dirEntry)
	e.free.clear()
	e.dirty = false
	return nil
}

// buildPrunedImagesLocked builds, per referenced segment, a complete
// in-memory image holding only the currently live records, and the fresh
// directory pointing at their new offsets within that image. It reads
// through e.segments and e.codec but never mutates e.dir or e.free, so a
// failure here leaves the engine's live state untouched (spec.md §4.5/§7).
func (e *Engine[K, V]) buildPrunedImagesLocked() (map[int][]byte, *directory[K], error) {
	images := make(map[int][]byte)
	newDir := newDirectory[K](e.codec.Compare)

	for _, k := range e.dir.keys() {
		entry, _ := e.dir.get(k)

		seg, ok := e.segments[entry.segmentID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: prune: live entry for key references missing segment %d",
				ErrInvariant, entry.segmentID)
		}

		valueBytes, err := readValue(seg.file, entry.valueOffset, entry.valueLength)
		if err != nil {
			return nil, nil, err
		}
		value, err := e.codec.DecodeValue(valueBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: prune: decode value for key %v: %v", ErrDecode, k, err)
		}

		keyBytes, err := e.codec.EncodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: prune: encode key %v: %v", ErrEncode, k, err)
		}
		newValueBytes, err := e.codec.EncodeValue(value)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: prune: encode value for key %v: %v", ErrEncode, k, err)
		}

		image := images[entry.segmentID]
		offset := int64(len(image))

		recordImage, valOffInImage := writeRecord(keyBytes, newValueBytes)
		images[entry.segmentID] = append(image, recordImage...)

		newDir.set(k, dirEntry{
			segmentID:   entry.segmentID,
			valueLength: len(newValueBytes),
			valueOffset: offset + int64(valOffInImage),
			ext:         extent{segmentID: entry.segmentID, start: offset, end: offset + int64(len(recordImage))},
		})
	}

	return images, newDir, nil
}

// commitPrunedImagesLocked writes each built image over its segment's file
// using atomic.WriteFile (temp-file + fsync + rename, so a crash mid-write
// never leaves a half-written segment) and reopens a fresh handle for it.
// Each segment swaps independently: if one write fails partway through the
// loop, segments already swapped stay swapped and the in-memory directory
// is never replaced, matching spec.md §4.5's "swaps atomically per
// segment, or the engine's in-memory state is unchanged".
func (e *Engine[K, V]) commitPrunedImagesLocked(images map[int][]byte) error {
	for sid, image := range images {
		path := segmentPath(e.prefix, sid)
		if err := atomic.WriteFile(path, bytes.NewReader(image)); err != nil {
			return fmt.Errorf("%w: prune: rewrite segment %d: %v", ErrIO, sid, err)
		}

		if old, ok := e.segments[sid]; ok {
			_ = old.file.Close()
		}

		newSeg, err := createSegment(e.prefix, sid, e.filePerm)
		if err != nil {
			return fmt.Errorf("%w: prune: reopen segment %d after rewrite: %v", ErrIO, sid, err)
		}
		e.segments[sid] = newSeg
	}
	return nil
}
