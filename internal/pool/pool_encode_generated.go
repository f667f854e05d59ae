// This file was automatically generated by genny.
// Any changes will be lost if this file is regenerated.
// see https://github.com/cheekybits/genny

package pool

import "sync"

// EncodeBuffer is a reused outbound packet buffer, handed to the encoder
// to fill with a sealed, ready-to-send datagram: Send never allocates
// in the steady-state path, since buffers come from a reuse pool.
type EncodeBuffer []byte

// EncodePool is the free list of EncodeBuffers.
type EncodePool struct {
	mu   sync.Mutex
	free []EncodeBuffer
	size int
}

// NewEncodePool builds a pool of buffers of the given size.
func NewEncodePool(size int) *EncodePool {
	return &EncodePool{size: size}
}

// Get returns a reused buffer if one is free, otherwise allocates one.
func (p *EncodePool) Get() EncodeBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		return buf
	}
	return make(EncodeBuffer, p.size)
}

// Put returns buf to the pool.
func (p *EncodePool) Put(buf EncodeBuffer) {
	if len(buf) != p.size {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, buf)
}
