package core

import (
	"fmt"
	"os"
)

// segment is one on-disk append-only file at `{prefix}.{id}.db`. The engine
// keeps every segment it has created open — not only the active one —
// until Close, or until a prune of an empty directory removes it, because a freed extent reused by Put may live
// in a now-closed segment (spec.md §9, "Active-segment contention with the
// free-slot index"); segment "closedness" only bears on whether its tail
// still grows, never on whether the engine can still write into it.
type segment struct {
	id   int
	file *os.File
	size int64 // tail length; grows only on append, never on hole reuse
}

func segmentPath(prefix string, id int) string {
	return fmt.Sprintf("%s.%d.db", prefix, id)
}

func tempSegmentPath(prefix string, id int) string {
	return fmt.Sprintf("%s.%d.temp.db", prefix, id)
}

// createSegment creates (or reuses, without truncating) the segment file
// for id and reports its current size as the initial tail offset.
func createSegment(prefix string, id int, perm os.FileMode) (*segment, error) {
	path := segmentPath(prefix, id)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, perm)
	if err != nil {
		return nil, fmt.Errorf("%w: open segment %d: %v", ErrIO, id, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat segment %d: %v", ErrIO, id, err)
	}

	return &segment{id: id, file: f, size: info.Size()}, nil
}

// createFreshSegment always creates (or truncates) an empty segment file —
// used for the active segment on a sync roll (spec.md §4.4).
func createFreshSegment(prefix string, id int, perm os.FileMode) (*segment, error) {
	path := segmentPath(prefix, id)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return nil, fmt.Errorf("%w: create segment %d: %v", ErrIO, id, err)
	}
	return &segment{id: id, file: f, size: 0}, nil
}

// append writes a record for (keyBytes, valueBytes) at the segment's
// current tail and advances it. It never rewinds file_position — the one
// invariant spec.md §9 calls out by name.
func (s *segment) append(keyBytes, valueBytes []byte) (valueOffset int64, ext extent, err error) {
	valueOffset, ext, err = writeRecordAt(s.file, s.id, s.size, keyBytes, valueBytes)
	if err != nil {
		return 0, extent{}, err
	}
	s.size = ext.end
	return valueOffset, ext, nil
}

// writeAt writes a record for (keyBytes, valueBytes) into a previously
// freed hole starting at offset. The tail size is untouched.
func (s *segment) writeAt(offset int64, keyBytes, valueBytes []byte) (valueOffset int64, ext extent, err error) {
	return writeRecordAt(s.file, s.id, offset, keyBytes, valueBytes)
}

func (s *segment) close() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("%w: close segment %d: %v", ErrIO, s.id, err)
	}
	return nil
}
