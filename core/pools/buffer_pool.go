package pools

import (
	"sync"
	"sync/atomic"
)

// Buffer tiers used when serializing responses
const (
	SmallBufferSize  = 2 * 1024  // status line, headers and short bodies
	MediumBufferSize = 8 * 1024  // typical JSON/HTML bodies
	LargeBufferSize  = 32 * 1024 // largest buffer kept for reuse
)

// BufferPool hands out byte slices from three size tiers.
type BufferPool struct {
	tiers [3]sync.Pool

	gets   atomic.Uint64
	misses atomic.Uint64
}

var tierSizes = [3]int{SmallBufferSize, MediumBufferSize, LargeBufferSize}

// NewBufferPool creates a new buffer pool
func NewBufferPool() *BufferPool {
	bp := &BufferPool{}
	for i := range bp.tiers {
		size := tierSizes[i]
		bp.tiers[i].New = func() any {
			buf := make([]byte, 0, size)
			return &buf
		}
	}
	return bp
}

// Get returns an empty buffer with capacity for at least estimatedSize
// bytes when that fits a tier. Oversized requests get a fresh slice.
func (bp *BufferPool) Get(estimatedSize int) *[]byte {
	bp.gets.Add(1)
	for i, size := range tierSizes {
		if estimatedSize <= size {
			return bp.tiers[i].Get().(*[]byte)
		}
	}
	bp.misses.Add(1)
	buf := make([]byte, 0, estimatedSize)
	return &buf
}

// Put returns a buffer to the tier matching its capacity. Buffers that grew
// beyond the largest tier are left to the GC.
func (bp *BufferPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	*buf = (*buf)[:0]
	c := cap(*buf)
	for i := len(tierSizes) - 1; i >= 0; i-- {
		if c >= tierSizes[i] {
			if c <= LargeBufferSize {
				bp.tiers[i].Put(buf)
			}
			return
		}
	}
}

// Stats returns buffer pool statistics
func (bp *BufferPool) Stats() BufferStats {
	gets := bp.gets.Load()
	misses := bp.misses.Load()
	hitRate := 0.0
	if gets > 0 {
		hitRate = float64(gets-misses) / float64(gets)
	}
	return BufferStats{TotalGets: gets, Oversized: misses, HitRate: hitRate}
}

// BufferStats contains buffer pool statistics
type BufferStats struct {
	TotalGets uint64
	Oversized uint64
	HitRate   float64
}

var globalBufferPool = NewBufferPool()

// AcquireBuffer gets a buffer from the global pool
func AcquireBuffer(estimatedSize int) *[]byte {
	return globalBufferPool.Get(estimatedSize)
}

// ReleaseBuffer returns a buffer to the global pool
func ReleaseBuffer(buf *[]byte) {
	globalBufferPool.Put(buf)
}
