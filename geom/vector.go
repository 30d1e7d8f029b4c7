// Package geom provides the small 3D vector and bounding-box types
// shared across the reconstruction pipeline. It mirrors the vector API
// shape of github.com/go-gl/mathgl (method-chaining Add/Sub/Scale/Dot)
// but is generic over the Real kind, since mathgl's Vec3 is fixed to a
// single precision per package.
package geom

import (
	"math"

	"github.com/gekko3d/surfrecon/numeric"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Vector3 is a 3D point or displacement over the Real kind R.
type Vector3[R numeric.Real] struct {
	X, Y, Z R
}

func V3[R numeric.Real](x, y, z R) Vector3[R] { return Vector3[R]{x, y, z} }

func (v Vector3[R]) Add(o Vector3[R]) Vector3[R] {
	return Vector3[R]{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector3[R]) Sub(o Vector3[R]) Vector3[R] {
	return Vector3[R]{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vector3[R]) Scale(s R) Vector3[R] {
	return Vector3[R]{v.X * s, v.Y * s, v.Z * s}
}

func (v Vector3[R]) Dot(o Vector3[R]) R {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vector3[R]) LenSqr() R {
	return v.Dot(v)
}

func (v Vector3[R]) Len() R {
	return R(math.Sqrt(float64(v.LenSqr())))
}

// Axis returns the component along the given axis index (0=X, 1=Y, 2=Z).
func (v Vector3[R]) Axis(axis int) R {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Min/Max are componentwise, used when folding an AABB from points.
func Min[R numeric.Real](a, b Vector3[R]) Vector3[R] {
	return Vector3[R]{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)}
}

func Max[R numeric.Real](a, b Vector3[R]) Vector3[R] {
	return Vector3[R]{max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)}
}

// ToMgl32 converts to a github.com/go-gl/mathgl Vec3, for renderers or
// other downstream consumers that work in single precision.
func (v Vector3[R]) ToMgl32() mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// ToMgl64 converts to a github.com/go-gl/mathgl Vec3d.
func (v Vector3[R]) ToMgl64() mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

// FromMgl32 builds a Vector3 from a github.com/go-gl/mathgl Vec3.
func FromMgl32[R numeric.Real](v mgl32.Vec3) Vector3[R] {
	return Vector3[R]{R(v.X()), R(v.Y()), R(v.Z())}
}

// FromMgl64 builds a Vector3 from a github.com/go-gl/mathgl Vec3d.
func FromMgl64[R numeric.Real](v mgl64.Vec3) Vector3[R] {
	return Vector3[R]{R(v.X()), R(v.Y()), R(v.Z())}
}

// TryConvert converts a Vector3 from one Real instantiation to another,
// failing if any component doesn't survive the conversion.
func TryConvert[To, From numeric.Real](v Vector3[From]) (Vector3[To], error) {
	x, err := numeric.ConvertReal[To](v.X)
	if err != nil {
		return Vector3[To]{}, err
	}
	y, err := numeric.ConvertReal[To](v.Y)
	if err != nil {
		return Vector3[To]{}, err
	}
	z, err := numeric.ConvertReal[To](v.Z)
	if err != nil {
		return Vector3[To]{}, err
	}
	return Vector3[To]{x, y, z}, nil
}
