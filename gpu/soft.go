package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
)

// parallelThreshold is the minimum group count to split a dispatch across workers.
// Below this, a single goroutine is faster.
const parallelThreshold = 8

// SoftKernel runs one invocation of a kernel on the software device.
// Invocations of one dispatch may run concurrently.
type SoftKernel func(inv Invocation)

// SoftDevice executes kernels on the CPU. It is deterministic for
// deterministic kernels and is the device used by tests and headless runs.
// Dispatch runs to completion before returning, so every readback is
// trivially synchronized.
type SoftDevice struct {
	workers int

	nextID   uint32
	buffers  map[uint32]*softBuffer
	textures map[uint32]*softTexture
	programs map[uint32]*softProgram

	stats Stats
	log   []DispatchRecord
}

// DispatchRecord is one submitted dispatch, kept for inspection.
type DispatchRecord struct {
	Kernel Kernel
	Groups [3]int
}

type softBuffer struct {
	kind    BufferKind
	stride  int
	count   int
	data    []byte
	counter atomic.Uint32

	overflows  atomic.Int64 // appends past capacity
	underflows atomic.Int64 // consumes from empty
}

type softTexture struct {
	width, height int
	pix           []uint32 // float32 bits, RGBA
	outOfBounds   atomic.Int64
}

type softProgram struct {
	kernels  [NumKernels]SoftKernel
	threads  [NumKernels][3]int
	buffers  [NumKernels]map[string]uint32
	textures [NumKernels]map[string]uint32
	ints     map[string]int32
	floats   map[string]float32
}

// NewSoftDevice creates a software device. workers <= 0 uses GOMAXPROCS.
func NewSoftDevice(workers int) *SoftDevice {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &SoftDevice{
		workers:  workers,
		buffers:  make(map[uint32]*softBuffer),
		textures: make(map[uint32]*softTexture),
		programs: make(map[uint32]*softProgram),
	}
}

// Name implements Device.
func (d *SoftDevice) Name() string { return "software" }

func (d *SoftDevice) newID() uint32 {
	d.nextID++
	return d.nextID
}

// LoadProgram registers Go kernels as a program.
func (d *SoftDevice) LoadProgram(kernels [NumKernels]SoftKernel, info ProgramInfo) (*Program, error) {
	sp := &softProgram{
		kernels: kernels,
		threads: info.Threads,
		ints:    make(map[string]int32),
		floats:  make(map[string]float32),
	}
	for k := range kernels {
		if kernels[k] == nil {
			return nil, fmt.Errorf("soft program: kernel %s missing", Kernel(k))
		}
		for i, n := range info.Threads[k] {
			if n <= 0 {
				return nil, fmt.Errorf("soft program: kernel %s thread dim %d is %d", Kernel(k), i, n)
			}
		}
		sp.buffers[k] = make(map[string]uint32)
		sp.textures[k] = make(map[string]uint32)
	}
	id := d.newID()
	d.programs[id] = sp
	return NewProgram(d, id, info), nil
}

// CreateBuffer implements Device.
func (d *SoftDevice) CreateBuffer(kind BufferKind, count, stride int) (uint32, error) {
	id := d.newID()
	d.buffers[id] = &softBuffer{
		kind:   kind,
		stride: stride,
		count:  count,
		data:   make([]byte, count*stride),
	}
	return id, nil
}

func (d *SoftDevice) buffer(id uint32) (*softBuffer, error) {
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnknownHandle, id)
	}
	return b, nil
}

// UploadBuffer implements Device.
func (d *SoftDevice) UploadBuffer(id uint32, data []byte) error {
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if len(data) != len(b.data) {
		return fmt.Errorf("%w: upload %d into %d", ErrSize, len(data), len(b.data))
	}
	copy(b.data, data)
	d.stats.Uploads++
	return nil
}

// ReadBuffer implements Device.
func (d *SoftDevice) ReadBuffer(id uint32, dst []byte) error {
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if len(dst) != len(b.data) {
		return fmt.Errorf("%w: read %d from %d", ErrSize, len(dst), len(b.data))
	}
	copy(dst, b.data)
	d.stats.Syncs++
	return nil
}

// SetCounter implements Device.
func (d *SoftDevice) SetCounter(id uint32, value uint32) error {
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if b.kind != BufferAppend {
		return fmt.Errorf("%w: %s buffer", ErrNoCounter, b.kind)
	}
	b.counter.Store(value)
	return nil
}

// CopyCount implements Device.
func (d *SoftDevice) CopyCount(src, dst uint32) error {
	s, err := d.buffer(src)
	if err != nil {
		return err
	}
	t, err := d.buffer(dst)
	if err != nil {
		return err
	}
	if s.kind != BufferAppend {
		return fmt.Errorf("%w: %s buffer", ErrNoCounter, s.kind)
	}
	if len(t.data) < 4 {
		return fmt.Errorf("%w: counter target %d bytes", ErrSize, len(t.data))
	}
	binary.LittleEndian.PutUint32(t.data, s.counter.Load())
	return nil
}

// DestroyBuffer implements Device.
func (d *SoftDevice) DestroyBuffer(id uint32) {
	delete(d.buffers, id)
}

// CreateTexture implements Device.
func (d *SoftDevice) CreateTexture(width, height int) (uint32, error) {
	id := d.newID()
	d.textures[id] = &softTexture{
		width:  width,
		height: height,
		pix:    make([]uint32, width*height*4),
	}
	return id, nil
}

func (d *SoftDevice) texture(id uint32) (*softTexture, error) {
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", ErrUnknownHandle, id)
	}
	return t, nil
}

// ClearTexture implements Device.
func (d *SoftDevice) ClearTexture(id uint32) error {
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	clear(t.pix)
	return nil
}

// WriteTexture implements Device.
func (d *SoftDevice) WriteTexture(id uint32, rgba []float32) error {
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	if len(rgba) != len(t.pix) {
		return fmt.Errorf("%w: write %d into %d", ErrSize, len(rgba), len(t.pix))
	}
	for i, v := range rgba {
		t.pix[i] = math.Float32bits(v)
	}
	d.stats.Uploads++
	return nil
}

// ReadTexture implements Device.
func (d *SoftDevice) ReadTexture(id uint32, rgba []float32) error {
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	if len(rgba) != len(t.pix) {
		return fmt.Errorf("%w: read %d from %d", ErrSize, len(rgba), len(t.pix))
	}
	for i, v := range t.pix {
		rgba[i] = math.Float32frombits(v)
	}
	d.stats.Syncs++
	return nil
}

// DestroyTexture implements Device.
func (d *SoftDevice) DestroyTexture(id uint32) {
	delete(d.textures, id)
}

func (d *SoftDevice) program(id uint32) (*softProgram, error) {
	p, ok := d.programs[id]
	if !ok {
		return nil, fmt.Errorf("%w: program %d", ErrUnknownHandle, id)
	}
	return p, nil
}

// BindBuffer implements Device.
func (d *SoftDevice) BindBuffer(prog uint32, k Kernel, name string, buf uint32) error {
	p, err := d.program(prog)
	if err != nil {
		return err
	}
	if _, err := d.buffer(buf); err != nil {
		return err
	}
	p.buffers[k][name] = buf
	return nil
}

// BindTexture implements Device.
func (d *SoftDevice) BindTexture(prog uint32, k Kernel, name string, tex uint32) error {
	p, err := d.program(prog)
	if err != nil {
		return err
	}
	if _, err := d.texture(tex); err != nil {
		return err
	}
	p.textures[k][name] = tex
	return nil
}

// SetInt implements Device.
func (d *SoftDevice) SetInt(prog uint32, name string, v int32) error {
	p, err := d.program(prog)
	if err != nil {
		return err
	}
	p.ints[name] = v
	return nil
}

// SetFloat implements Device.
func (d *SoftDevice) SetFloat(prog uint32, name string, v float32) error {
	p, err := d.program(prog)
	if err != nil {
		return err
	}
	p.floats[name] = v
	return nil
}

// Dispatch implements Device. It runs every invocation of the grid before returning.
func (d *SoftDevice) Dispatch(prog uint32, k Kernel, x, y, z int) error {
	p, err := d.program(prog)
	if err != nil {
		return err
	}

	env := &KernelEnv{
		Groups:   [3]int{x, y, z},
		Threads:  p.threads[k],
		ints:     p.ints,
		floats:   p.floats,
		buffers:  make(map[string]*softBuffer, len(p.buffers[k])),
		textures: make(map[string]*softTexture, len(p.textures[k])),
	}
	for name, id := range p.buffers[k] {
		b, err := d.buffer(id)
		if err != nil {
			return fmt.Errorf("dispatch %s: %s: %w", k, name, err)
		}
		env.buffers[name] = b
	}
	for name, id := range p.textures[k] {
		t, err := d.texture(id)
		if err != nil {
			return fmt.Errorf("dispatch %s: %s: %w", k, name, err)
		}
		env.textures[name] = t
	}

	d.run(p.kernels[k], env)
	d.stats.Dispatches[k]++
	d.log = append(d.log, DispatchRecord{Kernel: k, Groups: env.Groups})
	return nil
}

// run executes all groups of a dispatch, splitting flat group indices
// across workers when the grid is large enough.
func (d *SoftDevice) run(kernel SoftKernel, env *KernelEnv) {
	total := env.Groups[0] * env.Groups[1] * env.Groups[2]

	workers := d.workers
	if total < parallelThreshold || workers < 2 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	chunk := (total + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, total)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for g := start; g < end; g++ {
				runGroup(kernel, env, g)
			}
		}(start, end)
	}
	wg.Wait()
}

func runGroup(kernel SoftKernel, env *KernelEnv, flat int) {
	gx := flat % env.Groups[0]
	gy := (flat / env.Groups[0]) % env.Groups[1]
	gz := flat / (env.Groups[0] * env.Groups[1])
	t := env.Threads
	for lz := 0; lz < t[2]; lz++ {
		for ly := 0; ly < t[1]; ly++ {
			for lx := 0; lx < t[0]; lx++ {
				kernel(Invocation{
					ID:  [3]int{gx*t[0] + lx, gy*t[1] + ly, gz*t[2] + lz},
					Env: env,
				})
			}
		}
	}
}

// DestroyProgram implements Device.
func (d *SoftDevice) DestroyProgram(prog uint32) {
	delete(d.programs, prog)
}

// Stats implements Device.
func (d *SoftDevice) Stats() Stats { return d.stats }

// Dispatches returns every dispatch submitted so far, in order.
func (d *SoftDevice) Dispatches() []DispatchRecord {
	return append([]DispatchRecord(nil), d.log...)
}

// Live returns the number of buffers and textures not yet destroyed.
func (d *SoftDevice) Live() (buffers, textures int) {
	return len(d.buffers), len(d.textures)
}

// Faults sums counter overflows, underflows, and out-of-bounds texel writes
// across live resources. A correct host never causes any.
func (d *SoftDevice) Faults() (overflows, underflows, outOfBounds int64) {
	for _, b := range d.buffers {
		overflows += b.overflows.Load()
		underflows += b.underflows.Load()
	}
	for _, t := range d.textures {
		outOfBounds += t.outOfBounds.Load()
	}
	return overflows, underflows, outOfBounds
}
