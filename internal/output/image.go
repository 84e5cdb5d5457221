package output

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/san-kum/astrosim/internal/particle"
)

// Image is a square grid of accumulated density values. Row 0 is the most
// negative y.
type Image struct {
	size   int
	values []float32
}

func NewImage(pixels int) *Image {
	return &Image{size: pixels, values: make([]float32, pixels*pixels)}
}

func (img *Image) Size() int { return img.size }

func (img *Image) At(x, y int) float32 { return img.values[y*img.size+x] }

// Pixel maps a world position in [-scale, scale]² to pixel coordinates.
// Screen coordinates are offset by half a pixel and truncated toward zero.
// ok is false when the position falls outside the image.
func (img *Image) Pixel(x, y, scale float64) (px, py int, ok bool) {
	n := float64(img.size)
	sx := math.Trunc((x/(2*scale)+0.5)*n + 0.5)
	sy := math.Trunc((y/(2*scale)+0.5)*n + 0.5)
	if !(sx >= 0 && sx < n && sy >= 0 && sy < n) {
		return 0, 0, false
	}
	return int(sx), int(sy), true
}

// Accumulate adds weight to the pixel under every particle.
func (img *Image) Accumulate(ps []particle.Particle, scale float64, weight float32) {
	for i := range ps {
		x, y, ok := img.Pixel(ps[i].Pos.X, ps[i].Pos.Y, scale)
		if !ok {
			continue
		}
		img.values[y*img.size+x] += weight
	}
}

func (img *Image) Clear() {
	for i := range img.values {
		img.values[i] = 0
	}
}

// Decay multiplies every pixel by f, fading older contributions.
func (img *Image) Decay(f float32) {
	for i := range img.values {
		img.values[i] *= f
	}
}

func (img *Image) Max() float32 {
	var m float32
	for _, v := range img.values {
		if v > m {
			m = v
		}
	}
	return m
}

// Render maps density d to grey level sqrt(d/max)*255. An empty image
// renders black.
func (img *Image) Render() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, img.size, img.size))
	peak := img.Max()
	if peak == 0 {
		return out
	}
	for y := 0; y < img.size; y++ {
		for x := 0; x < img.size; x++ {
			d := img.values[y*img.size+x]
			v := math.Sqrt(float64(d/peak)) * 255
			out.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return out
}

func (img *Image) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img.Render()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
