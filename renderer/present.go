package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/herd/gpu"
)

// Presenter blits the display texture to the window.
// Textures on a GLDevice are drawn directly; textures on any other device
// are read back and staged in a raylib texture first.
type Presenter struct {
	gl      *GLDevice // nil when the simulation runs on another device
	staging rl.Texture2D
	pixels  []color.RGBA
}

// NewPresenter creates a presenter for textures on dev.
func NewPresenter(dev gpu.Device) *Presenter {
	p := &Presenter{}
	if gl, ok := dev.(*GLDevice); ok {
		p.gl = gl
	}
	return p
}

// Present draws the region view of tex stretched over dst. The region is in
// texels and wraps at the texture edges. Texel row 0 is the top of the domain
// on every device. Call between BeginDrawing and EndDrawing.
func (p *Presenter) Present(tex *gpu.Texture, view, dst rl.Rectangle) error {
	src, err := p.source(tex)
	if err != nil {
		return err
	}
	rl.SetTextureWrap(src, rl.WrapRepeat)
	rl.DrawTexturePro(src, view, dst, rl.Vector2{}, 0, rl.White)
	return nil
}

func (p *Presenter) source(tex *gpu.Texture) (rl.Texture2D, error) {
	if p.gl != nil {
		if t, ok := p.gl.Texture2D(tex); ok {
			return t, nil
		}
	}

	n := tex.Width() * tex.Height()
	if p.staging.ID == 0 || int(p.staging.Width) != tex.Width() || int(p.staging.Height) != tex.Height() {
		p.Unload()
		img := rl.GenImageColor(tex.Width(), tex.Height(), rl.Blank)
		p.staging = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		p.pixels = make([]color.RGBA, n)
	}

	texels, err := tex.Read()
	if err != nil {
		return rl.Texture2D{}, err
	}
	for i := range p.pixels {
		p.pixels[i] = color.RGBA{
			R: unorm8(texels[4*i+0]),
			G: unorm8(texels[4*i+1]),
			B: unorm8(texels[4*i+2]),
			A: unorm8(texels[4*i+3]),
		}
	}
	rl.UpdateTexture(p.staging, p.pixels)
	return p.staging, nil
}

// Unload releases the staging texture.
func (p *Presenter) Unload() {
	if p.staging.ID != 0 {
		rl.UnloadTexture(p.staging)
		p.staging = rl.Texture2D{}
	}
}
