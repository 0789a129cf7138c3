package util

import (
	"bytes"
	"sync"
)

var bytesBuffer = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// GetBytesBuffer returns an empty buffer from the pool.
func GetBytesBuffer() *bytes.Buffer {
	p, ok := bytesBuffer.Get().(*bytes.Buffer)
	if !ok {
		return new(bytes.Buffer)
	}
	p.Reset()
	return p
}

// PutBytesBuffer hands the buffer back to the pool. The caller must not use
// it afterwards.
func PutBytesBuffer(p *bytes.Buffer) {
	if p == nil {
		return
	}
	bytesBuffer.Put(p)
}
