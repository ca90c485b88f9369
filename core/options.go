package core

import (
	"os"

	"go.uber.org/zap"
)

// Option configures an Engine at Open time, following the teacher's
// functional-options pattern (the teacher's WithFsync/WithMergeEnabled).
type Option[K any, V any] func(*Engine[K, V])

// WithLogger sets the logger used for best-effort diagnostics (a failed
// Sync or a failed segment close during Close). Defaults to a no-op logger so library consumers never
// get stdout spam they didn't ask for.
func WithLogger[K any, V any](log *zap.SugaredLogger) Option[K, V] {
	return func(e *Engine[K, V]) { e.log = log }
}

// WithFsyncOnWrite makes every Put fsync the segment it wrote to before
// returning, trading throughput for per-write durability — the teacher's
// WithFsync knob. Delete writes nothing to disk and so never fsyncs.
func WithFsyncOnWrite[K any, V any](b bool) Option[K, V] {
	return func(e *Engine[K, V]) { e.fsyncOnWrite = b }
}

// WithDirPerm sets the permission bits used when creating segment files.
func WithDirPerm[K any, V any](perm os.FileMode) Option[K, V] {
	return func(e *Engine[K, V]) { e.filePerm = perm }
}
