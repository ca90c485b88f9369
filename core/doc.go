// Package core implements an embeddable, single-writer, persistent
// key-value store in the Bitcask family. Mutations append to the tail of
// the active segment file; an in-memory directory maps each live key to
// the exact byte range holding its latest value.
package core
