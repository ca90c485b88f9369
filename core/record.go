package core

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Record layout (spec.md §3):
//
//	[4-byte checksum][4-byte keyLen][4-byte valLen][key bytes][value bytes]
//
// The 4-byte length prefixes are little-endian uint32s — a single
// serialization discipline fixed at build time (spec.md §3/§9, see
// DESIGN.md's Open Question resolution) rather than something the codec
// chooses per call.
const (
	csLen  = 4
	lenLen = 4
	hdrLen = csLen + lenLen + lenLen
)

// writeRecord builds one complete record image for (keyBytes, valueBytes)
// and returns it along with the byte offset, within that image, at which
// valueBytes begins — the caller adds its own base offset to get the
// absolute value_offset described in spec.md §3.
func writeRecord(keyBytes, valueBytes []byte) (image []byte, valueOffsetInImage int) {
	total := hdrLen + len(keyBytes) + len(valueBytes)
	buf := make([]byte, total)

	binary.LittleEndian.PutUint32(buf[csLen:], uint32(len(keyBytes)))
	binary.LittleEndian.PutUint32(buf[csLen+lenLen:], uint32(len(valueBytes)))
	copy(buf[hdrLen:], keyBytes)
	copy(buf[hdrLen+len(keyBytes):], valueBytes)

	checksum := cksum(buf[csLen:])
	binary.LittleEndian.PutUint32(buf, checksum)

	return buf, hdrLen + len(keyBytes)
}

// writeRecordAt emits a record for (keyBytes, valueBytes) at the given
// absolute file offset and returns the value_offset and extent describing
// where it landed (spec.md §4.2's write_record).
func writeRecordAt(w io.WriterAt, segmentID int, offset int64, keyBytes, valueBytes []byte) (int64, extent, error) {
	image, valOff := writeRecord(keyBytes, valueBytes)

	if _, err := w.WriteAt(image, offset); err != nil {
		return 0, extent{}, fmt.Errorf("%w: write record at segment %d offset %d: %v", ErrIO, segmentID, offset, err)
	}

	valueOffset := offset + int64(valOff)
	ext := extent{segmentID: segmentID, start: offset, end: offset + int64(len(image))}
	return valueOffset, ext, nil
}

// readValue reads exactly valueLength bytes at valueOffset, bypassing the
// record header entirely (spec.md §4.2's read_value).
func readValue(r io.ReaderAt, valueOffset int64, valueLength int) ([]byte, error) {
	buf := make([]byte, valueLength)
	if _, err := r.ReadAt(buf, valueOffset); err != nil {
		return nil, fmt.Errorf("%w: read value at offset %d: %v", ErrIO, valueOffset, err)
	}
	return buf, nil
}

// readHeader reads and parses the fixed-width header at offset.
func readHeader(r io.ReaderAt, offset int64) (checksum uint32, keyLen, valLen int, err error) {
	var hdr [hdrLen]byte
	if _, err := r.ReadAt(hdr[:], offset); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: read header at offset %d: %v", ErrIO, offset, err)
	}
	checksum = binary.LittleEndian.Uint32(hdr[:csLen])
	keyLen = int(binary.LittleEndian.Uint32(hdr[csLen:]))
	valLen = int(binary.LittleEndian.Uint32(hdr[csLen+lenLen:]))
	return checksum, keyLen, valLen, nil
}

// readRecordAt reads and decodes the complete record at ext, recomputing
// and verifying its checksum. Used by Verify, never on the hot Get path
// (spec.md §4.2).
func readRecordAt(r io.ReaderAt, ext extent) (keyBytes, valueBytes []byte, err error) {
	total := ext.length()
	buf := make([]byte, total)
	if _, err := r.ReadAt(buf, ext.start); err != nil {
		return nil, nil, fmt.Errorf("%w: read record at %s: %v", ErrIO, ext, err)
	}

	checksum := binary.LittleEndian.Uint32(buf[:csLen])
	keyLen := int(binary.LittleEndian.Uint32(buf[csLen:]))
	valLen := int(binary.LittleEndian.Uint32(buf[csLen+lenLen:]))

	if int64(hdrLen+keyLen+valLen) != total {
		return nil, nil, fmt.Errorf("%w: record at %s: length mismatch (hdr says %d, extent is %d)",
			ErrDecode, ext, hdrLen+keyLen+valLen, total)
	}

	if computed := cksum(buf[csLen:]); computed != checksum {
		return nil, nil, fmt.Errorf("%w: record at %s: %w (expected %x, got %x)",
			ErrDecode, ext, ErrChecksumMismatch, checksum, computed)
	}

	keyBytes = buf[hdrLen : hdrLen+keyLen]
	valueBytes = buf[hdrLen+keyLen:]
	return keyBytes, valueBytes, nil
}
