package core

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/bitkv-go/bitkv/codec"
)

// FuzzApply drives a fresh handle through a short, fuzzer-chosen sequence
// of Put/Delete/Sync/Prune operations and requires only that it completes
// without an internal invariant violation (spec.md §9's fuzz contract). It
// is seeded with the Crash-2 regression scenario; Crash-1 is covered by
// TestCrash1Regression instead, since it replays a fixed six-op sequence
// across three distinct keys that a single (key, value, script) triple
// can't parametrize.
func FuzzApply(f *testing.F) {
	f.Add("\x00", uint64(16969173279757565696), uint8(0b101))
	f.Add("k", uint64(1), uint8(0b111))
	f.Add("", uint64(0), uint8(0))

	f.Fuzz(func(t *testing.T, key string, value uint64, script uint8) {
		prefix := filepath.Join(t.TempDir(), "store")
		e, err := Open[string, string](prefix, codec.String{})
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer e.Close()

		v := fmt.Sprintf("%d", value)

		ops := []Op[string, string]{
			OpPut[string, string]{Key: key, Value: v},
		}
		if script&0b001 != 0 {
			ops = append(ops, OpSync[string, string]{})
		}
		if script&0b010 != 0 {
			ops = append(ops, OpDelete[string, string]{Key: key})
		}
		if script&0b100 != 0 {
			ops = append(ops, OpPrune[string, string]{})
		}

		if err := Apply(e, ops); err != nil {
			t.Fatalf("apply: %v", err)
		}
	})
}
