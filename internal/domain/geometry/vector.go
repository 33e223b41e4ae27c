// Package geometry computes coordinates for molecules: 2D depiction layout
// with wedge assignment, and 3D conformers by distance geometry.
package geometry

import (
	"math"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
)

type vec = molecule.Coord

func norm(v vec) float64 { return math.Sqrt(v.Dot(v)) }

func dist(a, b vec) float64 { return norm(a.Sub(b)) }

func unit(v vec) vec {
	n := norm(v)
	if n < 1e-12 {
		return vec{}
	}
	return v.Scale(1 / n)
}

// signedVolume returns det(p1-p0, p2-p0, p3-p0). Looking from p0, the other
// three points run clockwise when it is positive.
func signedVolume(p0, p1, p2, p3 vec) float64 {
	a, b, c := p1.Sub(p0), p2.Sub(p0), p3.Sub(p0)
	return a.Dot(b.Cross(c))
}

// cisByTorsion reports whether x and y lie on the same side of the b-e axis.
func cisByTorsion(x, b, e, y vec) bool {
	b1, b2, b3 := b.Sub(x), e.Sub(b), y.Sub(e)
	n1, n2 := b1.Cross(b2), b2.Cross(b3)
	return n1.Dot(n2) > 0
}

func coordsAt(coords []float64, i int) vec {
	return vec{X: coords[3*i], Y: coords[3*i+1], Z: coords[3*i+2]}
}

func addAt(grad []float64, i int, v vec) {
	grad[3*i] += v.X
	grad[3*i+1] += v.Y
	grad[3*i+2] += v.Z
}

//Personal.AI order the ending
