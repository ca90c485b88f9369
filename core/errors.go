package core

import "errors"

// The four error kinds the engine returns, plus ErrKeyNotFound for a lookup
// of a key with no live entry. Every operation wraps one of these with
// fmt.Errorf("...: %w", ...) so callers can errors.Is against the kind
// while still getting a useful message.
var (
	// ErrIO covers filesystem operations — open, seek, read, write, rename,
	// remove — that failed or returned short.
	ErrIO = errors.New("io error")

	// ErrEncode covers a codec rejecting a value before anything was written.
	ErrEncode = errors.New("encode error")

	// ErrDecode covers bytes read back that failed to decode: checksum
	// mismatch, truncated record, or codec rejection.
	ErrDecode = errors.New("decode error")

	// ErrInvariant covers an internal consistency check failing, e.g. a
	// directory entry pointing at an extent with a bad checksum. Reserved
	// for debug tooling and tests; get/put/delete never return it in normal
	// operation.
	ErrInvariant = errors.New("invariant violation")

	// ErrKeyNotFound is returned by Get when the key has no live entry.
	ErrKeyNotFound = errors.New("key not found")
)

// ErrChecksumMismatch is wrapped under ErrDecode when a record's stored
// checksum doesn't match the recomputed one.
var ErrChecksumMismatch = errors.New("checksum mismatch")
