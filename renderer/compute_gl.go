// Package renderer runs the population kernels on OpenGL compute shaders
// through raylib's rlgl layer and presents the display texture.
//
// Compute requires raylib built for OpenGL 4.3 (-tags opengl43).
package renderer

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"math"
	"os"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/herd/gpu"
)

// appendHeaderSize is the byte offset of the first element in an append
// buffer. The kernels declare `uint count` followed by padding to 16 bytes.
const appendHeaderSize = 16

// Fixed binding points shared with the shaders/*.comp sources.
var (
	ssboBinding = map[string]uint32{
		gpu.BufOrganismsAppend:  0,
		gpu.BufOrganismsConsume: 0,
		gpu.BufOrganismsRead:    0,
	}
	imageUnit = map[string]uint32{
		gpu.TexDisplay: 0,
		gpu.TexPlayer:  1,
		gpu.TexTerrain: 2,
	}
)

type glBuffer struct {
	ssbo   uint32
	kind   gpu.BufferKind
	offset uint32 // element data offset within the SSBO
	size   uint32 // element data size
}

type glProgram struct {
	kernels  [gpu.NumKernels]uint32 // linked compute programs
	buffers  [gpu.NumKernels]map[string]uint32
	textures [gpu.NumKernels]map[string]uint32
	locs     [gpu.NumKernels]map[string]int32
}

// GLDevice implements gpu.Device on the current raylib OpenGL context.
// A window (hidden is fine) must be open before any call.
type GLDevice struct {
	nextID   uint32
	buffers  map[uint32]*glBuffer
	textures map[uint32]rl.Texture2D
	programs map[uint32]*glProgram
	stats    gpu.Stats
}

// NewGLDevice creates a device on the current GL context.
func NewGLDevice() *GLDevice {
	return &GLDevice{
		buffers:  make(map[uint32]*glBuffer),
		textures: make(map[uint32]rl.Texture2D),
		programs: make(map[uint32]*glProgram),
	}
}

// Name implements gpu.Device.
func (d *GLDevice) Name() string { return "opengl" }

func (d *GLDevice) newID() uint32 {
	d.nextID++
	return d.nextID
}

// LoadProgram compiles the four kernel sources, in slot order, into a program.
func (d *GLDevice) LoadProgram(paths [gpu.NumKernels]string, info gpu.ProgramInfo) (*gpu.Program, error) {
	gp := &glProgram{}
	for k, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			d.unload(gp)
			return nil, fmt.Errorf("reading %s kernel: %w", gpu.Kernel(k), err)
		}
		shader := rl.CompileShader(string(src), rl.ComputeShader)
		if shader == 0 {
			d.unload(gp)
			return nil, fmt.Errorf("compiling %s kernel %s", gpu.Kernel(k), path)
		}
		prog := rl.LoadComputeShaderProgram(shader)
		if prog == 0 {
			d.unload(gp)
			return nil, fmt.Errorf("linking %s kernel %s", gpu.Kernel(k), path)
		}
		gp.kernels[k] = prog
		gp.buffers[k] = make(map[string]uint32)
		gp.textures[k] = make(map[string]uint32)
		gp.locs[k] = make(map[string]int32)
	}

	id := d.newID()
	d.programs[id] = gp
	return gpu.NewProgram(d, id, info), nil
}

func (d *GLDevice) unload(gp *glProgram) {
	for k := range gp.kernels {
		if gp.kernels[k] != 0 {
			rl.UnloadShaderProgram(gp.kernels[k])
		}
	}
}

// CreateBuffer implements gpu.Device.
func (d *GLDevice) CreateBuffer(kind gpu.BufferKind, count, stride int) (uint32, error) {
	b := &glBuffer{kind: kind, size: uint32(count * stride)}
	if kind == gpu.BufferAppend {
		b.offset = appendHeaderSize
	}
	total := b.offset + b.size
	zero := make([]byte, total)
	b.ssbo = rl.LoadShaderBuffer(total, unsafe.Pointer(&zero[0]), rl.DynamicCopy)
	if b.ssbo == 0 {
		return 0, fmt.Errorf("creating %s buffer of %d bytes", kind, total)
	}
	id := d.newID()
	d.buffers[id] = b
	return id, nil
}

func (d *GLDevice) buffer(id uint32) (*glBuffer, error) {
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpu.ErrUnknownHandle, id)
	}
	return b, nil
}

// UploadBuffer implements gpu.Device.
func (d *GLDevice) UploadBuffer(id uint32, data []byte) error {
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if uint32(len(data)) != b.size {
		return fmt.Errorf("%w: upload %d into %d", gpu.ErrSize, len(data), b.size)
	}
	rl.UpdateShaderBuffer(b.ssbo, unsafe.Pointer(&data[0]), b.size, b.offset)
	d.stats.Uploads++
	return nil
}

// ReadBuffer implements gpu.Device.
func (d *GLDevice) ReadBuffer(id uint32, dst []byte) error {
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if uint32(len(dst)) != b.size {
		return fmt.Errorf("%w: read %d from %d", gpu.ErrSize, len(dst), b.size)
	}
	rl.ReadShaderBuffer(b.ssbo, unsafe.Pointer(&dst[0]), b.size, b.offset)
	d.stats.Syncs++
	return nil
}

// SetCounter implements gpu.Device.
func (d *GLDevice) SetCounter(id uint32, value uint32) error {
	b, err := d.buffer(id)
	if err != nil {
		return err
	}
	if b.kind != gpu.BufferAppend {
		return fmt.Errorf("%w: %s buffer", gpu.ErrNoCounter, b.kind)
	}
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], value)
	rl.UpdateShaderBuffer(b.ssbo, unsafe.Pointer(&word[0]), 4, 0)
	return nil
}

// CopyCount implements gpu.Device.
func (d *GLDevice) CopyCount(src, dst uint32) error {
	s, err := d.buffer(src)
	if err != nil {
		return err
	}
	t, err := d.buffer(dst)
	if err != nil {
		return err
	}
	if s.kind != gpu.BufferAppend {
		return fmt.Errorf("%w: %s buffer", gpu.ErrNoCounter, s.kind)
	}
	if t.size < 4 {
		return fmt.Errorf("%w: counter target %d bytes", gpu.ErrSize, t.size)
	}
	rl.CopyShaderBuffer(t.ssbo, s.ssbo, t.offset, 0, 4)
	return nil
}

// DestroyBuffer implements gpu.Device.
func (d *GLDevice) DestroyBuffer(id uint32) {
	if b, ok := d.buffers[id]; ok {
		rl.UnloadShaderBuffer(b.ssbo)
		delete(d.buffers, id)
	}
}

// CreateTexture implements gpu.Device. Textures are RGBA8, so channel
// values are quantized to 1/255.
func (d *GLDevice) CreateTexture(width, height int) (uint32, error) {
	img := rl.GenImageColor(width, height, rl.Blank)
	defer rl.UnloadImage(img)
	tex := rl.LoadTextureFromImage(img)
	if tex.ID == 0 {
		return 0, fmt.Errorf("creating %dx%d texture", width, height)
	}
	id := d.newID()
	d.textures[id] = tex
	return id, nil
}

func (d *GLDevice) texture(id uint32) (rl.Texture2D, error) {
	t, ok := d.textures[id]
	if !ok {
		return rl.Texture2D{}, fmt.Errorf("%w: texture %d", gpu.ErrUnknownHandle, id)
	}
	return t, nil
}

// ClearTexture implements gpu.Device.
func (d *GLDevice) ClearTexture(id uint32) error {
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	rl.UpdateTexture(t, make([]color.RGBA, int(t.Width)*int(t.Height)))
	return nil
}

// WriteTexture implements gpu.Device.
func (d *GLDevice) WriteTexture(id uint32, rgba []float32) error {
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	n := int(t.Width) * int(t.Height)
	if len(rgba) != 4*n {
		return fmt.Errorf("%w: write %d into %d", gpu.ErrSize, len(rgba), 4*n)
	}
	pix := make([]color.RGBA, n)
	for i := range pix {
		pix[i] = color.RGBA{
			R: unorm8(rgba[4*i+0]),
			G: unorm8(rgba[4*i+1]),
			B: unorm8(rgba[4*i+2]),
			A: unorm8(rgba[4*i+3]),
		}
	}
	rl.UpdateTexture(t, pix)
	d.stats.Uploads++
	return nil
}

// ReadTexture implements gpu.Device.
func (d *GLDevice) ReadTexture(id uint32, rgba []float32) error {
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	n := int(t.Width) * int(t.Height)
	if len(rgba) != 4*n {
		return fmt.Errorf("%w: read %d from %d", gpu.ErrSize, len(rgba), 4*n)
	}
	img := rl.LoadImageFromTexture(t)
	defer rl.UnloadImage(img)
	colors := rl.LoadImageColors(img)
	defer rl.UnloadImageColors(colors)

	for i, c := range colors[:n] {
		rgba[4*i+0] = float32(c.R) / 255
		rgba[4*i+1] = float32(c.G) / 255
		rgba[4*i+2] = float32(c.B) / 255
		rgba[4*i+3] = float32(c.A) / 255
	}
	d.stats.Syncs++
	return nil
}

// DestroyTexture implements gpu.Device.
func (d *GLDevice) DestroyTexture(id uint32) {
	if t, ok := d.textures[id]; ok {
		rl.UnloadTexture(t)
		delete(d.textures, id)
	}
}

func (d *GLDevice) program(id uint32) (*glProgram, error) {
	p, ok := d.programs[id]
	if !ok {
		return nil, fmt.Errorf("%w: program %d", gpu.ErrUnknownHandle, id)
	}
	return p, nil
}

// BindBuffer implements gpu.Device.
func (d *GLDevice) BindBuffer(prog uint32, k gpu.Kernel, name string, buf uint32) error {
	p, err := d.program(prog)
	if err != nil {
		return err
	}
	if _, ok := ssboBinding[name]; !ok {
		return fmt.Errorf("no buffer binding named %q", name)
	}
	if _, err := d.buffer(buf); err != nil {
		return err
	}
	p.buffers[k][name] = buf
	return nil
}

// BindTexture implements gpu.Device.
func (d *GLDevice) BindTexture(prog uint32, k gpu.Kernel, name string, tex uint32) error {
	p, err := d.program(prog)
	if err != nil {
		return err
	}
	if _, ok := imageUnit[name]; !ok {
		return fmt.Errorf("no image binding named %q", name)
	}
	if _, err := d.texture(tex); err != nil {
		return err
	}
	p.textures[k][name] = tex
	return nil
}

// setUniform writes one scalar to every kernel that declares name.
// Kernels that do not use it are skipped.
func (d *GLDevice) setUniform(prog uint32, name string, bits float32, typ rl.ShaderUniformDataType) error {
	p, err := d.program(prog)
	if err != nil {
		return err
	}
	for k, id := range p.kernels {
		loc, ok := p.locs[k][name]
		if !ok {
			loc = rl.GetLocationUniform(id, name)
			p.locs[k][name] = loc
		}
		if loc < 0 {
			continue
		}
		rl.EnableShader(id)
		rl.SetUniform(loc, []float32{bits}, int32(typ))
	}
	rl.DisableShader()
	return nil
}

// SetInt implements gpu.Device.
func (d *GLDevice) SetInt(prog uint32, name string, v int32) error {
	return d.setUniform(prog, name, math.Float32frombits(uint32(v)), rl.ShaderUniformInt)
}

// SetFloat implements gpu.Device.
func (d *GLDevice) SetFloat(prog uint32, name string, v float32) error {
	return d.setUniform(prog, name, v, rl.ShaderUniformFloat)
}

// Dispatch implements gpu.Device. Ordering against earlier dispatches and
// readbacks follows GL submission order.
func (d *GLDevice) Dispatch(prog uint32, k gpu.Kernel, x, y, z int) error {
	p, err := d.program(prog)
	if err != nil {
		return err
	}

	rl.EnableShader(p.kernels[k])
	for name, id := range p.buffers[k] {
		b, err := d.buffer(id)
		if err != nil {
			rl.DisableShader()
			return fmt.Errorf("dispatch %s: %s: %w", k, name, err)
		}
		rl.BindShaderBuffer(b.ssbo, ssboBinding[name])
	}
	for name, id := range p.textures[k] {
		t, err := d.texture(id)
		if err != nil {
			rl.DisableShader()
			return fmt.Errorf("dispatch %s: %s: %w", k, name, err)
		}
		rl.BindImageTexture(t.ID, imageUnit[name], int32(rl.UncompressedR8g8b8a8), false)
	}
	rl.ComputeShaderDispatch(uint32(x), uint32(y), uint32(z))
	rl.DisableShader()

	d.stats.Dispatches[k]++
	return nil
}

// DestroyProgram implements gpu.Device.
func (d *GLDevice) DestroyProgram(prog uint32) {
	if p, ok := d.programs[prog]; ok {
		d.unload(p)
		delete(d.programs, prog)
	}
}

// Stats implements gpu.Device.
func (d *GLDevice) Stats() gpu.Stats { return d.stats }

// unorm8 converts a [0,1] channel to 8 bits.
func unorm8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

var _ gpu.Device = (*GLDevice)(nil)

// Texture2D returns the raylib texture behind t, if t lives on d.
func (d *GLDevice) Texture2D(t *gpu.Texture) (rl.Texture2D, bool) {
	if t == nil || t.Released() {
		return rl.Texture2D{}, false
	}
	tex, ok := d.textures[t.ID()]
	return tex, ok
}
