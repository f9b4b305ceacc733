package sam

import "sync"

var recordPool = sync.Pool{New: func() interface{} { return &Record{} }}

// GetFromFreePool allocates an empty Record, reusing one from the pool
// when available.
func GetFromFreePool() *Record {
	rec := recordPool.Get().(*Record)
	*rec = Record{Scratch: rec.Scratch[:0]}
	return rec
}

// PutInFreePool returns r to the pool. The caller must guarantee there are
// no outstanding references to r; its fields will be overwritten in the
// future.
func PutInFreePool(r *Record) {
	if r == nil {
		panic("sam: PutInFreePool(nil)")
	}
	recordPool.Put(r)
}

// ResizeScratch makes *buf exactly n bytes long, growing it with some
// slack to avoid frequent reallocation on repeated small extensions.
func ResizeScratch(buf *[]byte, n int) {
	if cap(*buf) < n {
		size := (n/16 + 1) * 16
		nb := make([]byte, n, size)
		copy(nb, *buf)
		*buf = nb
	} else {
		*buf = (*buf)[:n]
	}
}
