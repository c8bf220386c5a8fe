// Package pipeline runs the unpack and pack engines: worker pools over
// internal/codec, driven by an internal/model Model and internal/volume
// ports, reporting progress through internal/progress.
package pipeline

import "runtime"

// UnpackOptions configures a single unpack run.
type UnpackOptions struct {
	// Workers is the size of the decompression worker pool. Zero means
	// runtime.GOMAXPROCS(0).
	Workers int
	// KeepRaw demotes an UnsupportedCodec failure to a warning and
	// routes the chunk's raw compressed bytes to a sidecar file instead
	// of aborting the operation.
	KeepRaw bool
}

func (o UnpackOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// PackOptions configures a single pack run.
type PackOptions struct {
	// Workers is the size of the compression worker pool. Zero means
	// runtime.GOMAXPROCS(0).
	Workers int
	// SplitBytes is the maximum size of any one physical volume before
	// the writer rolls over to the next. Zero means no splitting.
	SplitBytes int64
}

func (o PackOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// reorderBufferSlots is the default bound on the pack writer's reorder
// map, expressed as a multiple of the worker count. Compress workers
// acquire a slot before dispatch and the writer releases it once the
// payload actually leaves the map, so this caps how many finished-but-
// unflushed payloads can accumulate behind a slow chunk.
const reorderBufferSlots = 2
