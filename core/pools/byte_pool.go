package pools

import "sync"

// BytePool is a multi-tiered byte slice pool. The cache tier server
// reads request bodies into pooled buffers so decode does not allocate
// per request.
type BytePool struct {
	pools []*sync.Pool
	sizes []int
}

// Size classes sized for encoded cache entries.
var defaultSizes = []int{
	512,   // small entries
	4096,  // typical JSON responses
	32768, // large payloads
}

// NewBytePool creates a byte pool with the standard size classes.
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom size classes,
// which must be sorted ascending.
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}
	for i, size := range sizes {
		sz := size
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}
	return bp
}

// Get returns a byte slice of exactly the requested length. Slices
// larger than the biggest class are allocated directly.
func (bp *BytePool) Get(size int) []byte {
	for i, class := range bp.sizes {
		if size <= class {
			buf := *(bp.pools[i].Get().(*[]byte))
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns a slice to its pool. Slices that did not come from the
// pool are left to the GC.
func (bp *BytePool) Put(buf []byte) {
	capacity := cap(buf)
	for i, class := range bp.sizes {
		if capacity == class {
			buf = buf[:capacity]
			bp.pools[i].Put(&buf)
			return
		}
	}
}
