package codec

import "bytes"

// Bytes is a core.Codec[string, []byte] for consumers who want an opaque
// byte-slice value under a string key — the shape a REPL or CLI tool binds
// to. Keys still need to be comparable, so K stays string rather than
// []byte; embedders who need raw-byte keys can write their own tiny Codec
// the same way.
type Bytes struct{}

func (Bytes) EncodeKey(key string) ([]byte, error) { return []byte(key), nil }

func (Bytes) DecodeKey(b []byte) (string, error) { return string(b), nil }

func (Bytes) EncodeValue(value []byte) ([]byte, error) {
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (Bytes) DecodeValue(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (Bytes) Compare(a, b string) int { return bytes.Compare([]byte(a), []byte(b)) }
