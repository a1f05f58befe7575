package tensor

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/nfnt/resize"
)

// Per-channel RGB statistics the depth networks were trained with.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// ImageOptions controls how a decoded frame becomes a network input.
type ImageOptions struct {
	// Target size. Zero keeps the source size.
	Width  int
	Height int

	Mean [3]float32
	Std  [3]float32

	// Interpolation filter name: "bilinear" (default), "bicubic", "nearest" or "lanczos".
	Interpolation string
}

// DefaultImageOptions returns ImageNet normalization at native resolution.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{
		Mean:          ImageNetMean,
		Std:           ImageNetStd,
		Interpolation: "bilinear",
	}
}

// FromImage converts img into a normalized [1,3,H,W] tensor:
// value = (pixel/255 - mean) / std.
func FromImage(img image.Image, opts ImageOptions) *Tensor {
	src := img
	b := img.Bounds()
	if opts.Width > 0 && opts.Height > 0 && (opts.Width != b.Dx() || opts.Height != b.Dy()) {
		src = resize.Resize(uint(opts.Width), uint(opts.Height), img, chooseInterpolation(opts.Interpolation))
	}
	b = src.Bounds()
	w, h := b.Dx(), b.Dy()
	std := safeStd(opts.Std)

	t := New(1, 3, h, w)
	plane := w * h
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(src.At(x, y)).(color.RGBA)
			px := [3]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
			for ch := 0; ch < 3; ch++ {
				t.Data[ch*plane+idx] = (px[ch] - opts.Mean[ch]) / std[ch]
			}
			idx++
		}
	}
	return t
}

// Denormalize reverses FromImage on a [3,H,W] tensor and returns the pixels in
// channel-last [H,W,3] order, unclamped.
func Denormalize(chw *Tensor, mean, std [3]float32) (*Tensor, error) {
	if len(chw.Shape) != 3 || chw.Shape[0] != 3 {
		return nil, fmt.Errorf("%w: want [3,H,W], got %v", ErrShape, chw.Shape)
	}
	h, w := chw.Shape[1], chw.Shape[2]
	plane := h * w
	out := New(h, w, 3)
	for i := 0; i < plane; i++ {
		for ch := 0; ch < 3; ch++ {
			out.Data[i*3+ch] = chw.Data[ch*plane+i]*std[ch] + mean[ch]
		}
	}
	return out, nil
}

func safeStd(std [3]float32) [3]float32 {
	for i := range std {
		if std[i] == 0 {
			std[i] = 1
		}
	}
	return std
}

func chooseInterpolation(name string) resize.InterpolationFunction {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bicubic":
		return resize.Bicubic
	case "nearest":
		return resize.NearestNeighbor
	case "lanczos":
		return resize.Lanczos3
	default:
		return resize.Bilinear
	}
}
