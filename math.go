package routemap

import (
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 1 / deg2rad
	// posε quantizes latitude/longitude to suppress the degeneracies the
	// planar sweep in normalize.go is otherwise exposed to (spec.md §3).
	posε = 1e-7
)

// norm returns the Euclidean norm of a 2-vector or 3-vector.
func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// unit returns the unit vector of a, or the zero vector if a is (numerically) nil.
func unit(a []float64) (b []float64) {
	n := norm(a)
	b = make([]float64, len(a))
	if floats.EqualWithinAbs(n, 0, 1e-12) {
		return
	}
	for i, val := range a {
		b[i] = val / n
	}
	return
}

// sign returns +1 for non-negative values and -1 otherwise, matching the
// convention used throughout the propagator for heading comparisons.
func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// dot performs the inner product via mat64/BLAS.
func dot(a, b []float64) float64 {
	return mat64.Dot(mat64.NewVector(len(a), a), mat64.NewVector(len(b), b))
}

// rotate2 rotates the 2-vector (x, y) by angle (radians, counterclockwise)
// using the teacher's R3 axis rotation, restricted to the xy-plane: it is
// how apparentWind turns the true wind into the boat's heading frame
// without hand-rolling sin/cos algebra at the call site.
func rotate2(v [2]float64, angle float64) [2]float64 {
	rotated := mxv2(r3(angle), v[:])
	return [2]float64{rotated[0], rotated[1]}
}

// r3 returns the rotation matrix about the 3rd (vertical) axis, exactly as
// rotation.go's R3 does for the orbital frame; here it rotates bearing
// vectors in the local tangent plane instead of orbital position vectors.
func r3(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(2, 2, []float64{c, -s, s, c})
}

// mxv2 multiplies a 2x2 matrix with a 2-vector.
func mxv2(m *mat64.Dense, v []float64) []float64 {
	vVec := mat64.NewVector(2, v)
	var rVec mat64.Vector
	rVec.MulVec(m, vVec)
	return []float64{rVec.At(0, 0), rVec.At(1, 0)}
}

// deg2rad180 converts degrees to radians and wraps the result into (-π, π],
// the representation headings and bearings are carried in internally.
func deg2rad180(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return a * deg2rad
}

// rad2deg180 converts radians to degrees, wrapped into (-180, 180].
func rad2deg180(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a * rad2deg
}

// normalizeDeg360 wraps a degree value into [0, 360), the convention used
// for longitudes throughout the polygon/skip-list machinery once
// positive_longitudes is in effect (spec.md §4.H).
func normalizeDeg360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// quantize rounds v to the polygon epsilon used to suppress floating point
// degeneracy in repeated splice/merge operations (spec.md §3, Position).
func quantize(v float64) float64 {
	return math.Round(v/posε) * posε
}
