package sim

import (
	"fmt"
	"math"
)

// Vec is a 2D vector.
type Vec struct {
	X, Y float64
}

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }

func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// Norm returns v scaled to unit length, or the zero vector.
func (v Vec) Norm() Vec {
	l := v.Len()
	if l == 0 {
		return Vec{}
	}
	return v.Scale(1 / l)
}

// Dist returns the distance between v and o.
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

// Clamp limits both components to [0, size].
func (v Vec) Clamp(size float64) Vec {
	return Vec{min(max(v.X, 0), size), min(max(v.Y, 0), size)}
}

// Heading returns the unit vector at angle radians.
func Heading(angle float64) Vec {
	return Vec{math.Cos(angle), math.Sin(angle)}
}

func (v Vec) String() string { return fmt.Sprintf("(%.1f, %.1f)", v.X, v.Y) }
