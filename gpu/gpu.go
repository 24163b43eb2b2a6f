// Package gpu wraps a compute command stream: buffers with hidden
// append/consume counters, textures, and a four-kernel program.
//
// Handles returned here are the only way to reach device memory. Every
// handle is released exactly once; use after release fails with ErrReleased.
// Readbacks (ReadCounter, Buffer.GetData, Texture.Read) are synchronization
// points: the device finishes all prior work touching the resource first.
package gpu

import (
	"errors"
	"fmt"
)

// Kernel is one of the four entry points of the organism program.
// The values are the slot indices the kernels are compiled into.
type Kernel int

const (
	KernelAppend Kernel = iota
	KernelConsume
	KernelUpdate
	KernelDraw

	// NumKernels is the number of kernel slots.
	NumKernels
)

// String returns the kernel entry point name.
func (k Kernel) String() string {
	switch k {
	case KernelAppend:
		return "append"
	case KernelConsume:
		return "consume"
	case KernelUpdate:
		return "update"
	case KernelDraw:
		return "draw"
	default:
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
}

// Valid reports whether k names a kernel slot.
func (k Kernel) Valid() bool {
	return k >= 0 && k < NumKernels
}

// Texture binding names.
const (
	TexDisplay = "DisplayTexture"
	TexPlayer  = "PlayerMap"
	TexTerrain = "TerrainMap"
)

// Scalar uniform names.
const (
	UniformWidth            = "width"
	UniformHeight           = "height"
	UniformDeltaTime        = "deltaTime"
	UniformTime             = "time"
	UniformLivingPopulation = "livingPopulation"
	UniformMaxPopulation    = "maxPopulation"
	UniformBatchSize        = "batchSize"
)

// Buffer binding names. All three alias the one organism buffer.
const (
	BufOrganismsAppend  = "organismsAppend"
	BufOrganismsConsume = "organismsConsume"
	BufOrganismsRead    = "organismsRead"
)

// BufferKind selects the buffer type at creation.
type BufferKind int

const (
	// BufferStructured is a plain array of fixed-stride elements.
	BufferStructured BufferKind = iota
	// BufferAppend is a structured buffer with a hidden element counter.
	BufferAppend
	// BufferRaw is an untyped buffer of 32-bit words.
	BufferRaw
)

func (k BufferKind) String() string {
	switch k {
	case BufferStructured:
		return "structured"
	case BufferAppend:
		return "append"
	case BufferRaw:
		return "raw"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(k))
	}
}

var (
	// ErrReleased is returned for any use of a released handle.
	ErrReleased = errors.New("gpu: resource used after release")
	// ErrNoCounter is returned when reading the counter of a non-append buffer.
	ErrNoCounter = errors.New("gpu: buffer has no hidden counter")
	// ErrSize is returned when a transfer does not match the buffer or texture size.
	ErrSize = errors.New("gpu: transfer size mismatch")
	// ErrUnknownHandle is returned by a device for a handle it never issued.
	ErrUnknownHandle = errors.New("gpu: unknown handle")
)

// Stats counts device work since creation.
type Stats struct {
	Dispatches [NumKernels]int
	Syncs      int // readbacks that waited for the device
	Uploads    int
}

// Device is the command stream a Program, Buffer, or Texture talks to.
// Handles are opaque uint32 ids issued by the device. Commands execute in
// submission order.
type Device interface {
	Name() string

	CreateBuffer(kind BufferKind, count, stride int) (uint32, error)
	UploadBuffer(id uint32, data []byte) error
	ReadBuffer(id uint32, dst []byte) error
	SetCounter(id uint32, value uint32) error
	// CopyCount copies the hidden counter of src into the first word of dst.
	CopyCount(src, dst uint32) error
	DestroyBuffer(id uint32)

	// Textures are RGBA with float channels in [0,1].
	CreateTexture(width, height int) (uint32, error)
	ClearTexture(id uint32) error
	WriteTexture(id uint32, rgba []float32) error
	ReadTexture(id uint32, rgba []float32) error
	DestroyTexture(id uint32)

	BindBuffer(prog uint32, k Kernel, name string, buf uint32) error
	BindTexture(prog uint32, k Kernel, name string, tex uint32) error
	SetInt(prog uint32, name string, v int32) error
	SetFloat(prog uint32, name string, v float32) error
	Dispatch(prog uint32, k Kernel, x, y, z int) error
	DestroyProgram(prog uint32)

	Stats() Stats
}
