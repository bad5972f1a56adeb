package pixfmt

import (
	"image"
	"image/color"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		f       Format
		wantErr bool
	}{
		{"rgb565", RGB565, false},
		{"gray8 shared channel", Gray8, false},
		{"channel exceeds bpp", Format{BPP: 8, Red: Channel{Shift: 4, Bits: 8}}, true},
		{"partial overlap", Format{BPP: 16, Red: Channel{Shift: 0, Bits: 8}, Green: Channel{Shift: 4, Bits: 8}}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.f.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestImageRGB565RoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	img := NewImage(RGB565, buf, 2, image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA64{R: 0xffff, G: 0, B: 0, A: 0xffff})
	got := img.At(0, 0).(color.RGBA64)
	if got.R != 0xffff || got.G != 0 || got.B != 0 {
		t.Fatalf("got %+v, want pure red", got)
	}
}

func TestImageGray8RoundTrip(t *testing.T) {
	buf := make([]byte, 2)
	img := NewImage(Gray8, buf, 1, image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA64{R: 0x8080, G: 0x8080, B: 0x8080, A: 0xffff})
	got := img.At(0, 0).(color.RGBA64)
	if got.R != got.G || got.G != got.B {
		t.Fatalf("expected gray pixel with equal channels, got %+v", got)
	}
}
