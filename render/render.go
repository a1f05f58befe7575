// Package render turns depth maps and network frames into 8-bit images and
// composites them side by side.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/stevecastle/depthviz/depthmap"
	"github.com/stevecastle/depthviz/tensor"
)

// ErrHeightMismatch is returned by Concat when the tiles differ in height.
var ErrHeightMismatch = errors.New("render: images differ in height")

// Planar is a channel-last RGB image with float samples in [0,1].
type Planar struct {
	Width  int
	Height int
	Pix    []float64 // len = Width*Height*3, order [y][x][c]
}

// NewPlanar allocates a black width x height image.
func NewPlanar(width, height int) *Planar {
	return &Planar{Width: width, Height: height, Pix: make([]float64, width*height*3)}
}

// At returns channel c of the pixel at (x, y).
func (p *Planar) At(x, y, c int) float64 {
	return p.Pix[(y*p.Width+x)*3+c]
}

// FromDepth repeats a normalized depth map into three identical channels.
func FromDepth(dm *depthmap.DepthMap) *Planar {
	p := NewPlanar(dm.Width, dm.Height)
	for i, v := range dm.Data {
		v = depthmap.Clamp01(v)
		p.Pix[i*3] = v
		p.Pix[i*3+1] = v
		p.Pix[i*3+2] = v
	}
	return p
}

// FromFrame un-normalizes a [3,H,W] network input with mean and std and
// returns it channel-last, clamped to [0,1].
func FromFrame(chw *tensor.Tensor, mean, std [3]float32) (*Planar, error) {
	hwc, err := tensor.Denormalize(chw, mean, std)
	if err != nil {
		return nil, fmt.Errorf("denormalize frame: %w", err)
	}
	p := NewPlanar(hwc.Shape[1], hwc.Shape[0])
	for i, v := range hwc.Data {
		p.Pix[i] = depthmap.Clamp01(float64(v))
	}
	return p, nil
}

// Image converts to 8 bits per channel. Samples are scaled by 255 and
// truncated.
func (p *Planar) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			i := (y*p.Width + x) * 3
			img.SetNRGBA(x, y, color.NRGBA{
				R: to8(p.Pix[i]),
				G: to8(p.Pix[i+1]),
				B: to8(p.Pix[i+2]),
				A: 255,
			})
		}
	}
	return img
}

func to8(v float64) uint8 {
	return uint8(depthmap.Clamp01(v) * 255)
}

// Concat places images left to right. All images must share the same height.
func Concat(images ...image.Image) (*image.NRGBA, error) {
	if len(images) == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil
	}
	height := images[0].Bounds().Dy()
	width := 0
	for i, img := range images {
		b := img.Bounds()
		if b.Dy() != height {
			return nil, fmt.Errorf("%w: tile %d is %d px high, want %d", ErrHeightMismatch, i, b.Dy(), height)
		}
		width += b.Dx()
	}

	dst := imaging.New(width, height, color.NRGBA{A: 255})
	x := 0
	for _, img := range images {
		dst = imaging.Paste(dst, img, image.Pt(x, 0))
		x += img.Bounds().Dx()
	}
	return dst, nil
}
