package core

import (
	"github.com/zeebo/xxh3"
)

// Fingerprint hashes the observable mapping {k -> value} over all live
// keys in directory order into a single xxh3 digest. It has no role in the
// storage engine itself (the on-disk checksum is CRC-32/CKSUM per record,
// see crc.go) — it exists so tests and the REPL can cheaply assert
// "the mapping is unchanged" across a sync/prune boundary without
// diffing every key by hand (spec.md §8's round-trip properties).
func (e *Engine[K, V]) Fingerprint() (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	h := xxh3.New()
	for _, k := range e.dir.keys() {
		v, err := e.getLocked(k)
		if err != nil {
			return 0, err
		}

		kb, err := e.codec.EncodeKey(k)
		if err != nil {
			return 0, err
		}
		vb, err := e.codec.EncodeValue(v)
		if err != nil {
			return 0, err
		}

		_, _ = h.Write(kb)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(vb)
		_, _ = h.Write([]byte{0})
	}

	return h.Sum64(), nil
}
