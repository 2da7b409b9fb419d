package vec

import "math"

// Quat представляет ориентацию в виде кватерниона
type Quat struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// QuatIdentity единичный кватернион (без поворота)
var QuatIdentity = Quat{W: 1}

// QuatFromAxisAngle строит кватернион поворота на angle радиан вокруг оси axis
func QuatFromAxisAngle(axis Vec3Float, angle float64) Quat {
	l := axis.Length()
	if l == 0 {
		return QuatIdentity
	}
	s := math.Sin(angle/2) / l
	return Quat{X: axis.X * s, Y: axis.Y * s, Z: axis.Z * s, W: math.Cos(angle / 2)}
}

// Mul возвращает произведение q*r (сначала поворот r, затем q)
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// IsZero сообщает, что кватернион не задан (все компоненты нулевые)
func (q Quat) IsZero() bool {
	return q.X == 0 && q.Y == 0 && q.Z == 0 && q.W == 0
}

// Normalized возвращает нормализованный кватернион; нулевой превращается в единичный
func (q Quat) Normalized() Quat {
	l := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l == 0 {
		return QuatIdentity
	}
	return Quat{X: q.X / l, Y: q.Y / l, Z: q.Z / l, W: q.W / l}
}
