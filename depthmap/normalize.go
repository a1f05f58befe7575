package depthmap

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// Epsilon guards every normalization denominator.
	Epsilon = 1e-6
	// RawScale is the depth (in model units) rendered as full white by Raw.
	RawScale = 10.0
)

// Variant is a named depth normalization.
type Variant struct {
	Name string
	Fn   func(*DepthMap) *DepthMap
}

// Variants lists the normalizations in composite order.
var Variants = []Variant{
	{Name: "output", Fn: Output},
	{Name: "raw", Fn: Raw},
	{Name: "median", Fn: Median},
	{Name: "disp", Fn: Disp},
	{Name: "normed", Fn: Normed},
}

// Clamp01 limits v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func scaleBy(dm *DepthMap, denom float64) *DepthMap {
	return dm.Map(func(v float64) float64 { return Clamp01(v / denom) })
}

// Output divides by the maximum depth.
func Output(dm *DepthMap) *DepthMap {
	if len(dm.Data) == 0 {
		return dm.Clone()
	}
	return scaleBy(dm, floats.Max(dm.Data)+Epsilon)
}

// Raw divides by RawScale without looking at the data.
func Raw(dm *DepthMap) *DepthMap {
	return scaleBy(dm, RawScale)
}

// Median divides by twice the median depth, so the median lands at mid-grey.
func Median(dm *DepthMap) *DepthMap {
	if len(dm.Data) == 0 {
		return dm.Clone()
	}
	return scaleBy(dm, 2*median(dm.Data)+Epsilon)
}

// Disp renders disparity (1/depth) scaled by its maximum. Pixels without a
// positive finite depth have no disparity and render as 0.
func Disp(dm *DepthMap) *DepthMap {
	inv := dm.Map(func(v float64) float64 {
		if v <= 0 || math.IsNaN(v) {
			return 0
		}
		r := 1 / v
		if math.IsInf(r, 0) {
			return 0
		}
		return r
	})
	if len(inv.Data) == 0 {
		return inv
	}
	return scaleBy(inv, floats.Max(inv.Data)+Epsilon)
}

// Normed stretches [min, max] onto [0, 1].
func Normed(dm *DepthMap) *DepthMap {
	if len(dm.Data) == 0 {
		return dm.Clone()
	}
	lo := floats.Min(dm.Data)
	denom := floats.Max(dm.Data) - lo + Epsilon
	return dm.Map(func(v float64) float64 { return Clamp01((v - lo) / denom) })
}
