package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// result in radians
func QuatToEuler(q mgl32.Quat) (e mgl32.Vec3) {
	sinr_cosp := float64(2 * (q.W*q.X() + q.Y()*q.Z()))
	cosr_cosp := float64(1 - 2*(q.X()*q.X()+q.Y()*q.Y()))

	e[0] = float32(math.Atan2(sinr_cosp, cosr_cosp))

	sinp := float64(2 * (q.W*q.Y() - q.Z()*q.X()))
	if math.Abs(sinp) >= 1 {
		e[1] = math.Pi / 2
		if sinp < 0 {
			e[1] *= -1
		}
	} else {
		e[1] = float32(math.Asin(sinp))
	}

	siny_cosp := float64(2 * (q.W*q.Z() + q.X()*q.Y()))
	cosy_cosp := float64(1 - 2*(q.Y()*q.Y()+q.Z()*q.Z()))
	e[2] = float32(math.Atan2(siny_cosp, cosy_cosp))

	return e
}

// DecomposeTransform splits an affine matrix without shear into translation,
// rotation and scale.
func DecomposeTransform(m mgl32.Mat4) (pos mgl32.Vec3, rot mgl32.Quat, scale mgl32.Vec3) {
	pos = m.Col(3).Vec3()
	scale = mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}

	var r mgl32.Mat3
	for i := 0; i < 3; i++ {
		col := m.Col(i).Vec3()
		if scale[i] != 0 {
			col = col.Mul(1 / scale[i])
		}
		r.SetCol(i, col)
	}
	rot = mgl32.Mat4ToQuat(r.Mat4()).Normalize()
	return
}

func RoundVec3(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(math.Round(float64(v[0]))),
		float32(math.Round(float64(v[1]))),
		float32(math.Round(float64(v[2]))),
	}
}
