// Package codec provides reference Codec implementations for the common
// key/value shapes: strings and raw bytes.
package codec

import "strings"

// String is a core.Codec[string, string] that encodes both key and value
// as their raw UTF-8 bytes and orders keys with strings.Compare.
type String struct{}

func (String) EncodeKey(key string) ([]byte, error) { return []byte(key), nil }

func (String) DecodeKey(b []byte) (string, error) { return string(b), nil }

func (String) EncodeValue(value string) ([]byte, error) { return []byte(value), nil }

func (String) DecodeValue(b []byte) (string, error) { return string(b), nil }

func (String) Compare(a, b string) int { return strings.Compare(a, b) }
