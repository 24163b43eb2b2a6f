package gpu

import (
	"math"
	"sync/atomic"
)

// KernelEnv is the resource view of one software dispatch.
type KernelEnv struct {
	Groups  [3]int
	Threads [3]int

	ints     map[string]int32
	floats   map[string]float32
	buffers  map[string]*softBuffer
	textures map[string]*softTexture
}

// Invocation is one work item of a software dispatch.
type Invocation struct {
	ID  [3]int // global invocation id
	Env *KernelEnv
}

// Int returns an integer uniform, 0 if unset.
func (e *KernelEnv) Int(name string) int { return int(e.ints[name]) }

// Float returns a float uniform, 0 if unset.
func (e *KernelEnv) Float(name string) float32 { return e.floats[name] }

// Len returns the element capacity of a bound buffer, 0 if unbound.
func (e *KernelEnv) Len(name string) int {
	b := e.buffers[name]
	if b == nil {
		return 0
	}
	return b.count
}

// Count returns the hidden counter of a bound append buffer.
func (e *KernelEnv) Count(name string) int {
	b := e.buffers[name]
	if b == nil {
		return 0
	}
	return int(b.counter.Load())
}

// Element returns the bytes of element i of a bound buffer, or nil when out of range.
// Writes through the slice land in device memory.
func (e *KernelEnv) Element(name string, i int) []byte {
	b := e.buffers[name]
	if b == nil || i < 0 || i >= b.count {
		return nil
	}
	return b.data[i*b.stride : (i+1)*b.stride]
}

// Append increments the hidden counter and stores rec in the claimed slot.
// A nil rec activates the slot with whatever it already holds.
// Appending to a full buffer is dropped and counted as an overflow.
func (e *KernelEnv) Append(name string, rec []byte) (int, bool) {
	b := e.buffers[name]
	if b == nil {
		return -1, false
	}
	for {
		c := b.counter.Load()
		if int(c) >= b.count {
			b.overflows.Add(1)
			return -1, false
		}
		if b.counter.CompareAndSwap(c, c+1) {
			if rec != nil {
				copy(b.data[int(c)*b.stride:], rec[:b.stride])
			}
			return int(c), true
		}
	}
}

// Consume decrements the hidden counter and returns the element that was on top.
// Consuming from an empty buffer is dropped and counted as an underflow.
func (e *KernelEnv) Consume(name string) ([]byte, bool) {
	b := e.buffers[name]
	if b == nil {
		return nil, false
	}
	for {
		c := b.counter.Load()
		if c == 0 {
			b.underflows.Add(1)
			return nil, false
		}
		if b.counter.CompareAndSwap(c, c-1) {
			i := int(c - 1)
			return b.data[i*b.stride : (i+1)*b.stride], true
		}
	}
}

// TextureView is a texel accessor for a bound texture.
type TextureView struct {
	tex *softTexture
}

// Texture returns a view of a bound texture. The zero view ignores writes.
func (e *KernelEnv) Texture(name string) TextureView {
	return TextureView{tex: e.textures[name]}
}

// Size returns the texture dimensions.
func (v TextureView) Size() (int, int) {
	if v.tex == nil {
		return 0, 0
	}
	return v.tex.width, v.tex.height
}

// Get returns the texel at (x, y); out-of-range reads return zero.
func (v TextureView) Get(x, y int) [4]float32 {
	var c [4]float32
	if v.tex == nil || x < 0 || y < 0 || x >= v.tex.width || y >= v.tex.height {
		return c
	}
	base := (y*v.tex.width + x) * 4
	for i := range c {
		c[i] = math.Float32frombits(atomic.LoadUint32(&v.tex.pix[base+i]))
	}
	return c
}

// Set writes the texel at (x, y). Out-of-range writes are discarded and counted.
func (v TextureView) Set(x, y int, c [4]float32) {
	if v.tex == nil {
		return
	}
	if x < 0 || y < 0 || x >= v.tex.width || y >= v.tex.height {
		v.tex.outOfBounds.Add(1)
		return
	}
	base := (y*v.tex.width + x) * 4
	for i, ch := range c {
		atomic.StoreUint32(&v.tex.pix[base+i], math.Float32bits(ch))
	}
}
