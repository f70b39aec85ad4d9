// Package bufpool pools the copy buffers used on the object streaming paths.
//
// Every upload and download moves bytes through a scratch buffer. Allocating
// one per request is cheap individually but adds up under concurrent
// transfers, so buffers are recycled through sync.Pool in two size classes:
// a chunk buffer for bounded upload copies and a larger stream buffer for
// whole-object downloads. Requests larger than the stream class are allocated
// directly and never pooled, so a single oversized ask cannot pin memory.
//
// Usage:
//
//	buf := bufpool.Get(bufpool.ChunkSize)
//	defer bufpool.Put(buf)
package bufpool

import "sync"

const (
	// ChunkSize is the upload copy granularity. The size limit check runs
	// once per chunk, so this also bounds limit overshoot before abort.
	ChunkSize = 32 << 10

	// StreamSize is the download copy granularity.
	StreamSize = 256 << 10
)

// Pool recycles byte slices in two size classes.
type Pool struct {
	chunk  sync.Pool
	stream sync.Pool
}

// NewPool creates an empty pool. Buffers are allocated lazily on first Get.
func NewPool() *Pool {
	p := &Pool{}
	p.chunk.New = func() any {
		b := make([]byte, ChunkSize)
		return &b
	}
	p.stream.New = func() any {
		b := make([]byte, StreamSize)
		return &b
	}
	return p
}

// Get returns a buffer of at least size bytes, sliced to exactly size.
// Oversized requests fall back to a direct allocation.
func (p *Pool) Get(size int) []byte {
	switch {
	case size <= ChunkSize:
		return (*(p.chunk.Get().(*[]byte)))[:size]
	case size <= StreamSize:
		return (*(p.stream.Get().(*[]byte)))[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns a buffer to its size class. Buffers that did not come from the
// pool, or whose capacity matches no class, are dropped for the GC.
func (p *Pool) Put(buf []byte) {
	b := buf[:cap(buf)]
	switch cap(b) {
	case ChunkSize:
		p.chunk.Put(&b)
	case StreamSize:
		p.stream.Put(&b)
	}
}

// defaultPool serves the package-level Get and Put.
var defaultPool = NewPool()

// Get returns a buffer of at least size bytes from the default pool.
func Get(size int) []byte {
	return defaultPool.Get(size)
}

// Put returns a buffer to the default pool.
func Put(buf []byte) {
	defaultPool.Put(buf)
}
