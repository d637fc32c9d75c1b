// Package cedarv describes the decoder buffer allocator the display path
// reads plane addresses from, and provides a pool allocator over a
// physically contiguous region.
package cedarv

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNoMemory is returned when the pool has no free range large enough
	ErrNoMemory = errors.New("cedarv: out of memory")
	// ErrForeignBuffer is returned when freeing a buffer owned by another pool
	ErrForeignBuffer = errors.New("cedarv: buffer not owned by pool")
)

// Buffer is one physically contiguous allocation.
type Buffer struct {
	phys uint32
	data []byte
	// span is the aligned length reserved in the pool
	span int
	pool *Pool
}

// Size returns the requested allocation size in bytes.
func (b *Buffer) Size() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Allocator resolves buffers to the addresses the display engine needs.
type Allocator interface {
	// PhysicalAddress returns the bus address of b, or 0 for an invalid buffer.
	PhysicalAddress(b *Buffer) uint32
	// IsValid reports whether b is a live allocation.
	IsValid(b *Buffer) bool
	// Bytes returns the CPU view of b for readback.
	Bytes(b *Buffer) []byte
}

type span struct {
	off, size int
}

// Pool hands out aligned ranges of one contiguous region whose first byte
// sits at physical address base.
type Pool struct {
	mu    sync.Mutex
	base  uint32
	mem   []byte
	free  []span
	align int
}

// NewPool manages mem as the region starting at physical address base.
// Allocations are aligned to align bytes (rounded to a power of two, at least 1).
func NewPool(base uint32, mem []byte, align int) *Pool {
	if align < 1 {
		align = 1
	}
	for align&(align-1) != 0 {
		align++
	}
	return &Pool{
		base:  base,
		mem:   mem,
		free:  []span{{0, len(mem)}},
		align: align,
	}
}

// Alloc reserves size bytes using first fit.
func (p *Pool) Alloc(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cedarv: invalid size %d", size)
	}
	reserve := (size + p.align - 1) &^ (p.align - 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, s := range p.free {
		if s.size < reserve {
			continue
		}
		b := &Buffer{
			phys: p.base + uint32(s.off),
			data: p.mem[s.off : s.off+size : s.off+size],
			span: reserve,
			pool: p,
		}
		if s.size == reserve {
			p.free = append(p.free[:i], p.free[i+1:]...)
		} else {
			p.free[i] = span{s.off + reserve, s.size - reserve}
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %d bytes", ErrNoMemory, reserve)
}

// Free returns b to the pool and invalidates it.
func (p *Pool) Free(b *Buffer) error {
	if b == nil || b.pool != p {
		return ErrForeignBuffer
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.free = append(p.free, span{int(b.phys - p.base), b.span})
	sort.Slice(p.free, func(i, j int) bool { return p.free[i].off < p.free[j].off })

	// Coalesce neighbours
	merged := p.free[:1]
	for _, s := range p.free[1:] {
		last := &merged[len(merged)-1]
		if last.off+last.size == s.off {
			last.size += s.size
			continue
		}
		merged = append(merged, s)
	}
	p.free = merged

	b.pool = nil
	b.data = nil
	b.phys = 0
	b.span = 0
	return nil
}

func (p *Pool) PhysicalAddress(b *Buffer) uint32 {
	if !p.IsValid(b) {
		return 0
	}
	return b.phys
}

func (p *Pool) IsValid(b *Buffer) bool {
	return b != nil && b.pool == p && b.data != nil
}

func (p *Pool) Bytes(b *Buffer) []byte {
	if !p.IsValid(b) {
		return nil
	}
	return b.data
}

// Available returns the number of free bytes.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, s := range p.free {
		n += s.size
	}
	return n
}
