package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitkv-go/bitkv/codec"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine[string, string] {
	t.Helper()
	prefix := filepath.Join(t.TempDir(), "store")
	e, err := Open[string, string](prefix, codec.String{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestPutGet(t *testing.T) {
	e := openTestEngine(t)

	if _, err := e.Put("a", "1"); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := e.Get("a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "1" {
		t.Fatalf("get: want %q, got %q", "1", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	e := openTestEngine(t)

	_, err := e.Get("missing")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("want ErrKeyNotFound, got %v", err)
	}
}

func TestOverwriteLeavesOnlyLatest(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, call2(e.Put("k", "v1")))
	// v2's record is longer than v1's, so the freed v1 extent cannot hold it
	// and stays in the free-slot index (an equal-length v2 would reuse it).
	require.NoError(t, call2(e.Put("k", "v2-longer")))

	got, err := e.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v2-longer", got)

	if len(e.free.lengths) == 0 {
		t.Fatalf("want the v1 extent reflected in the free-slot index after overwrite")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, call2(e.Put("k", "v")))
	require.NoError(t, e.Delete("k"))
	require.NoError(t, e.Delete("k")) // second delete of an already-gone key is a no-op

	_, err := e.Get("k")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("want ErrKeyNotFound after delete, got %v", err)
	}
}

func TestKeysValuesItemsOrdered(t *testing.T) {
	e := openTestEngine(t)
	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, call2(e.Put(k, k+k)))
	}

	wantKeys := []string{"a", "b", "c"}
	if diff := cmp.Diff(wantKeys, e.Keys()); diff != "" {
		t.Fatalf("Keys() mismatch (-want +got):\n%s", diff)
	}

	values, err := e.Values()
	require.NoError(t, err)
	wantValues := []string{"aa", "bb", "cc"}
	if diff := cmp.Diff(wantValues, values); diff != "" {
		t.Fatalf("Values() mismatch (-want +got):\n%s", diff)
	}

	items, err := e.Items()
	require.NoError(t, err)
	for i, it := range items {
		if it.Key != wantKeys[i] || it.Value != wantValues[i] {
			t.Fatalf("Items()[%d] = (%q, %q), want (%q, %q)", i, it.Key, it.Value, wantKeys[i], wantValues[i])
		}
	}
}

func TestSyncOnCleanHandleIsNoop(t *testing.T) {
	e := openTestEngine(t)
	before := e.activeID
	require.NoError(t, e.Sync()) // never dirty, must not roll
	require.Equal(t, before, e.activeID)
}

func TestSyncRollsActiveSegmentWhenDirty(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, call2(e.Put("k", "v")))
	require.NoError(t, e.Sync())
	require.Equal(t, 2, e.activeID)
	require.False(t, e.dirty)

	got, err := e.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

// TestCrash1Regression replays spec.md's scenario 1: delete(""), delete(""),
// put("\x00", 10344644575756526533), put("\x01", 72339073326448897),
// put("\x01", 72057594037928193), put("", 0), sync(). The two leading
// deletes of an absent key must be harmless no-ops, and the second put for
// "\x01" must be the one that wins.
func TestCrash1Regression(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Delete(""))
	require.NoError(t, e.Delete(""))
	require.NoError(t, call2(e.Put("\x00", "10344644575756526533")))
	require.NoError(t, call2(e.Put("\x01", "72339073326448897")))
	require.NoError(t, call2(e.Put("\x01", "72057594037928193")))
	require.NoError(t, call2(e.Put("", "0")))
	require.NoError(t, e.Sync())

	got, err := e.Get("")
	require.NoError(t, err)
	require.Equal(t, "0", got)

	got, err = e.Get("\x00")
	require.NoError(t, err)
	require.Equal(t, "10344644575756526533", got)

	got, err = e.Get("\x01")
	require.NoError(t, err)
	require.Equal(t, "72057594037928193", got)
}

// TestCrash2Regression replays spec.md's scenario 2: put("\x00", <value>),
// sync(), prune(). The sync leaves the handle clean, so the prune is a
// no-op: only {prefix}.1.db (the record's segment) and {prefix}.2.db (the
// post-sync active, empty) should survive.
func TestCrash2Regression(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "store")
	e, err := Open[string, string](prefix, codec.String{})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, call2(e.Put("\x00", "16969173279757565696")))
	require.NoError(t, e.Sync())
	require.NoError(t, e.Prune())

	got, err := e.Get("\x00")
	require.NoError(t, err)
	require.Equal(t, "16969173279757565696", got)

	entries, err := os.ReadDir(filepath.Dir(prefix))
	require.NoError(t, err)

	var names []string
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	base := filepath.Base(prefix)
	want := []string{base + ".1.db", base + ".2.db"}

	gotSet := map[string]bool{}
	for _, n := range names {
		gotSet[n] = true
	}
	for _, w := range want {
		if !gotSet[w] {
			t.Fatalf("expected survivor %q missing from %v", w, names)
		}
	}
	if len(names) != len(want) {
		t.Fatalf("want exactly %v to survive, got %v", want, names)
	}
}

// TestFillAndCompact replays spec.md's scenario 3: put seven keys, delete
// all of them, prune(). The directory must end up empty and every segment
// with id >= 2 removed.
func TestFillAndCompact(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "store")
	e, err := Open[string, string](prefix, codec.String{})
	require.NoError(t, err)
	defer e.Close()

	keys := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, k := range keys {
		require.NoError(t, call2(e.Put(k, string(rune('1'+i)))))
	}
	for _, k := range keys {
		require.NoError(t, e.Delete(k))
	}
	require.NoError(t, e.Prune())

	if got := e.Keys(); len(got) != 0 {
		t.Fatalf("want empty Keys() after fill-and-compact, got %v", got)
	}
	values, err := e.Values()
	require.NoError(t, err)
	if len(values) != 0 {
		t.Fatalf("want empty Values() after fill-and-compact, got %v", values)
	}

	entries, err := os.ReadDir(filepath.Dir(prefix))
	require.NoError(t, err)
	base := filepath.Base(prefix)
	for _, ent := range entries {
		if ent.Name() != base+".1.db" {
			t.Fatalf("segment %q with id >= 2 survived fill-and-compact", ent.Name())
		}
	}
}

func TestHoleReuseDoesNotMoveTail(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, call2(e.Put("k", "same-length-value")))
	require.NoError(t, e.Delete("k"))

	active := e.segments[e.activeID]
	before := active.size

	require.NoError(t, call2(e.Put("j", "same-length-value")))

	after := e.segments[e.activeID].size
	require.Equal(t, before, after, "reusing a same-length hole must not advance the tail")
}

func TestPruneRoundTripPreservesMapping(t *testing.T) {
	e := openTestEngine(t)
	for i := 0; i < 26; i++ {
		k := string(rune('a' + i))
		require.NoError(t, call2(e.Put(k, k)))
	}
	// overwrite a few keys with longer values so the freed extents cannot be
	// reused and the free-slot index is non-empty going into prune.
	require.NoError(t, call2(e.Put("a", "AA")))
	require.NoError(t, call2(e.Put("m", "MM")))

	before, err := e.Fingerprint()
	require.NoError(t, err)

	require.NoError(t, e.Prune())

	after, err := e.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

// call2 adapts a (value, error) pair to a plain error for require.NoError
// call sites above.
func call2[V any](_ V, err error) error { return err }
