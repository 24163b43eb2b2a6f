package gpu

import (
	"encoding/binary"
	"fmt"
)

// Buffer is a device buffer handle.
type Buffer struct {
	dev      Device
	id       uint32
	kind     BufferKind
	count    int
	stride   int
	released bool
}

// NewBuffer allocates count elements of stride bytes.
func NewBuffer(dev Device, kind BufferKind, count, stride int) (*Buffer, error) {
	if count <= 0 || stride <= 0 {
		return nil, fmt.Errorf("gpu: invalid %s buffer %d x %d", kind, count, stride)
	}
	id, err := dev.CreateBuffer(kind, count, stride)
	if err != nil {
		return nil, fmt.Errorf("creating %s buffer: %w", kind, err)
	}
	return &Buffer{dev: dev, id: id, kind: kind, count: count, stride: stride}, nil
}

// ID returns the device handle.
func (b *Buffer) ID() uint32 { return b.id }

// Kind returns the buffer kind.
func (b *Buffer) Kind() BufferKind { return b.kind }

// Count returns the element capacity.
func (b *Buffer) Count() int { return b.count }

// Stride returns the element size in bytes.
func (b *Buffer) Stride() int { return b.stride }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return b.count * b.stride }

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.released }

func (b *Buffer) check() error {
	if b == nil || b.released {
		return fmt.Errorf("buffer: %w", ErrReleased)
	}
	return nil
}

// SetData uploads a full buffer image.
func (b *Buffer) SetData(data []byte) error {
	if err := b.check(); err != nil {
		return err
	}
	if len(data) != b.Size() {
		return fmt.Errorf("%w: %d bytes into %d byte buffer", ErrSize, len(data), b.Size())
	}
	return b.dev.UploadBuffer(b.id, data)
}

// GetData reads the full buffer into dst. This is a sync point.
func (b *Buffer) GetData(dst []byte) error {
	if err := b.check(); err != nil {
		return err
	}
	if len(dst) != b.Size() {
		return fmt.Errorf("%w: %d byte destination for %d byte buffer", ErrSize, len(dst), b.Size())
	}
	return b.dev.ReadBuffer(b.id, dst)
}

// SetCounterValue overwrites the hidden counter of an append buffer.
func (b *Buffer) SetCounterValue(v uint32) error {
	if err := b.check(); err != nil {
		return err
	}
	if b.kind != BufferAppend {
		return fmt.Errorf("%w: %s buffer", ErrNoCounter, b.kind)
	}
	return b.dev.SetCounter(b.id, v)
}

// Release frees the device memory. Safe to call more than once.
func (b *Buffer) Release() {
	if b == nil || b.released {
		return
	}
	b.dev.DestroyBuffer(b.id)
	b.released = true
}

// Counter is a one-word raw buffer used as the readback target for hidden counters.
type Counter struct {
	buf *Buffer
}

// CreateCounter allocates a counter readback buffer.
func CreateCounter(dev Device) (*Counter, error) {
	buf, err := NewBuffer(dev, BufferRaw, 1, 4)
	if err != nil {
		return nil, err
	}
	return &Counter{buf: buf}, nil
}

// Release frees the counter buffer. Safe to call more than once.
func (c *Counter) Release() {
	if c == nil {
		return
	}
	c.buf.Release()
}

// Released reports whether the counter has been released.
func (c *Counter) Released() bool {
	return c == nil || c.buf.Released()
}

// ReadCounter copies the hidden counter of src into c and reads it back.
// This blocks until the device has finished prior writes to src.
func ReadCounter(src *Buffer, c *Counter) (uint32, error) {
	if err := src.check(); err != nil {
		return 0, err
	}
	if c == nil {
		return 0, fmt.Errorf("counter: %w", ErrReleased)
	}
	if err := c.buf.check(); err != nil {
		return 0, fmt.Errorf("counter: %w", err)
	}
	if src.kind != BufferAppend {
		return 0, fmt.Errorf("%w: %s buffer", ErrNoCounter, src.kind)
	}

	var word [4]byte
	if err := c.buf.SetData(word[:]); err != nil {
		return 0, err
	}
	if err := src.dev.CopyCount(src.id, c.buf.id); err != nil {
		return 0, fmt.Errorf("copying counter: %w", err)
	}
	if err := c.buf.GetData(word[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(word[:]), nil
}

// Texture is a device RGBA image.
type Texture struct {
	dev      Device
	id       uint32
	width    int
	height   int
	released bool
}

// NewTexture allocates a width x height texture.
func NewTexture(dev Device, width, height int) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gpu: invalid texture size %dx%d", width, height)
	}
	id, err := dev.CreateTexture(width, height)
	if err != nil {
		return nil, fmt.Errorf("creating texture: %w", err)
	}
	return &Texture{dev: dev, id: id, width: width, height: height}, nil
}

// ID returns the device handle.
func (t *Texture) ID() uint32 { return t.id }

// Width returns the texture width.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height.
func (t *Texture) Height() int { return t.height }

// Released reports whether Release has been called.
func (t *Texture) Released() bool { return t == nil || t.released }

func (t *Texture) check() error {
	if t == nil || t.released {
		return fmt.Errorf("texture: %w", ErrReleased)
	}
	return nil
}

// Clear zeroes every texel.
func (t *Texture) Clear() error {
	if err := t.check(); err != nil {
		return err
	}
	return t.dev.ClearTexture(t.id)
}

// Write uploads width*height RGBA texels.
func (t *Texture) Write(rgba []float32) error {
	if err := t.check(); err != nil {
		return err
	}
	if len(rgba) != t.width*t.height*4 {
		return fmt.Errorf("%w: %d channels into %dx%d texture", ErrSize, len(rgba), t.width, t.height)
	}
	return t.dev.WriteTexture(t.id, rgba)
}

// Read downloads all texels. This is a sync point.
func (t *Texture) Read() ([]float32, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	rgba := make([]float32, t.width*t.height*4)
	if err := t.dev.ReadTexture(t.id, rgba); err != nil {
		return nil, err
	}
	return rgba, nil
}

// Release frees the texture. Safe to call more than once.
func (t *Texture) Release() {
	if t == nil || t.released {
		return
	}
	t.dev.DestroyTexture(t.id)
	t.released = true
}
