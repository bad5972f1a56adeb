// Package pixfmt describes the on-wire/on-panel pixel format negotiated
// with the RFB server and provides a packed-pixel image.Image over the
// memory-mapped panel buffer, generalizing the fixed-layout packed images
// used elsewhere in this codebase family (RGB565, 4-bit alpha) to an
// arbitrary bits-per-pixel and per-channel bit offset/length.
package pixfmt

import (
	"fmt"
	"image"
	"image/color"
)

// Channel is a (bit offset, bit length) pair within a pixel.
type Channel struct {
	Shift, Bits uint
}

// Format is a pixel format descriptor: bits-per-pixel and the red, green,
// and blue channel layouts within it. The channels must not partially
// overlap (identical spans, as in Gray8, are allowed) and must together
// fit inside BPP.
type Format struct {
	BPP         uint
	Red, Green, Blue Channel
}

// Validate checks the invariant that channels fit inside BPP and do not
// partially overlap. Red/Green/Blue sharing one identical span (as in a
// grayscale format, where each channel reads the same intensity bits) is
// allowed; only a partial overlap between distinct spans is rejected.
func (f Format) Validate() error {
	spans := [3]Channel{f.Red, f.Green, f.Blue}
	var used uint64
	seen := make(map[Channel]bool, 3)
	for _, c := range spans {
		if c.Bits == 0 {
			continue
		}
		if c.Shift+c.Bits > f.BPP {
			return fmt.Errorf("pixfmt: channel exceeds bpp %d", f.BPP)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		mask := uint64(1<<c.Bits-1) << c.Shift
		if used&mask != 0 {
			return fmt.Errorf("pixfmt: overlapping channels")
		}
		used |= mask
	}
	return nil
}

// max returns the maximum raw value representable by an n-bit channel.
func max(n uint) uint32 {
	if n == 0 {
		return 0
	}
	return 1<<n - 1
}

// scaleUp widens a channel's raw value to a full 16-bit intensity.
func scaleUp(v uint32, bits uint) uint16 {
	if bits == 0 {
		return 0
	}
	m := max(bits)
	return uint16(v * 0xffff / m)
}

// scaleDown narrows a full 16-bit intensity down to a channel's bit width.
func scaleDown(v uint16, bits uint) uint32 {
	if bits == 0 {
		return 0
	}
	m := max(bits)
	return uint32(v) * m / 0xffff
}

// Image is an image.RGBA64Image backed by a packed-pixel byte buffer laid
// out according to a Format, e.g. the memory-mapped panel framebuffer. It
// plays the same role for an arbitrary format that image/rgb565.Image
// plays for the fixed RGB565 layout: a zero-copy view over an existing
// buffer. Nothing in this repository hands an Image to the RFB library.
type Image struct {
	Format Format
	Pix    []byte
	Stride int // bytes per row
	Rect   image.Rectangle
}

// NewImage wraps an existing packed-pixel buffer (typically an mmap'd
// panel framebuffer) as an Image. The caller owns buf's lifetime.
func NewImage(f Format, buf []byte, stride int, r image.Rectangle) *Image {
	return &Image{Format: f, Pix: buf, Stride: stride, Rect: r}
}

func (p *Image) ColorModel() color.Model { return color.RGBA64Model }

func (p *Image) Bounds() image.Rectangle { return p.Rect }

func (p *Image) PixOffset(x, y int) int {
	off := image.Pt(x, y).Sub(p.Rect.Min)
	return off.Y*p.Stride + off.X*int(p.Format.BPP)/8
}

func (p *Image) At(x, y int) color.Color {
	return p.RGBA64At(x, y)
}

func (p *Image) RGBA64At(x, y int) color.RGBA64 {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return color.RGBA64{}
	}
	raw := p.rawAt(x, y)
	f := p.Format
	r := scaleUp((raw>>f.Red.Shift)&max(f.Red.Bits), f.Red.Bits)
	g := scaleUp((raw>>f.Green.Shift)&max(f.Green.Bits), f.Green.Bits)
	b := scaleUp((raw>>f.Blue.Shift)&max(f.Blue.Bits), f.Blue.Bits)
	return color.RGBA64{R: r, G: g, B: b, A: 0xffff}
}

func (p *Image) Set(x, y int, c color.Color) {
	r, g, b, a := c.RGBA()
	p.SetRGBA64(x, y, color.RGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: uint16(a)})
}

func (p *Image) SetRGBA64(x, y int, c color.RGBA64) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	f := p.Format
	raw := scaleDown(c.R, f.Red.Bits)<<f.Red.Shift |
		scaleDown(c.G, f.Green.Bits)<<f.Green.Shift |
		scaleDown(c.B, f.Blue.Bits)<<f.Blue.Shift
	p.putRaw(x, y, raw)
}

func (p *Image) rawAt(x, y int) uint32 {
	off := p.PixOffset(x, y)
	switch p.Format.BPP {
	case 8:
		return uint32(p.Pix[off])
	case 16:
		return uint32(p.Pix[off]) | uint32(p.Pix[off+1])<<8
	case 32:
		return uint32(p.Pix[off]) | uint32(p.Pix[off+1])<<8 |
			uint32(p.Pix[off+2])<<16 | uint32(p.Pix[off+3])<<24
	default:
		panic(fmt.Sprintf("pixfmt: unsupported bpp %d", p.Format.BPP))
	}
}

func (p *Image) putRaw(x, y int, raw uint32) {
	off := p.PixOffset(x, y)
	switch p.Format.BPP {
	case 8:
		p.Pix[off] = byte(raw)
	case 16:
		p.Pix[off] = byte(raw)
		p.Pix[off+1] = byte(raw >> 8)
	case 32:
		p.Pix[off] = byte(raw)
		p.Pix[off+1] = byte(raw >> 8)
		p.Pix[off+2] = byte(raw >> 16)
		p.Pix[off+3] = byte(raw >> 24)
	default:
		panic(fmt.Sprintf("pixfmt: unsupported bpp %d", p.Format.BPP))
	}
}

// RGB565 is the 16-bit packed color format used by one hardware variant's
// panel memory.
var RGB565 = Format{
	BPP:   16,
	Red:   Channel{Shift: 11, Bits: 5},
	Green: Channel{Shift: 5, Bits: 6},
	Blue:  Channel{Shift: 0, Bits: 5},
}

// Gray8 is the 8-bit grayscale format used by the e-ink panel's native
// memory layout on the other hardware variant; red, green, and blue all
// read the same 8-bit channel.
var Gray8 = Format{
	BPP:   8,
	Red:   Channel{Shift: 0, Bits: 8},
	Green: Channel{Shift: 0, Bits: 8},
	Blue:  Channel{Shift: 0, Bits: 8},
}
