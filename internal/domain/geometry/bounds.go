package geometry

import (
	"math"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

const (
	boundUnset   = 1000.0
	bond12Tol    = 0.01
	angle13Tol   = 0.04
	torsion14Tol = 0.05
	allene15Tol  = 0.15
	vdwScale     = 0.7
	// separation of atoms in different fragments
	fragmentLower = 3.0
	fragmentUpper = 12.0
)

var vdwRadius = map[string]float64{
	"H": 1.2, "C": 1.7, "N": 1.55, "O": 1.52, "F": 1.47, "P": 1.8,
	"S": 1.8, "Cl": 1.75, "Br": 1.85, "I": 1.98, "Si": 2.1, "B": 1.92,
}

func vdw(symbol string) float64 {
	if r, ok := vdwRadius[symbol]; ok {
		return r
	}
	return 1.8
}

// boundsMatrix holds lower and upper interatomic distance limits.
type boundsMatrix struct {
	n     int
	lower []float64
	upper []float64
}

func newBoundsMatrix(n int) *boundsMatrix {
	b := &boundsMatrix{n: n, lower: make([]float64, n*n), upper: make([]float64, n*n)}
	for i := range b.upper {
		b.upper[i] = boundUnset
	}
	for i := 0; i < n; i++ {
		b.upper[i*n+i] = 0
	}
	return b
}

func (b *boundsMatrix) l(i, j int) float64 { return b.lower[i*b.n+j] }
func (b *boundsMatrix) u(i, j int) float64 { return b.upper[i*b.n+j] }

func (b *boundsMatrix) set(i, j int, lo, hi float64) {
	b.lower[i*b.n+j], b.lower[j*b.n+i] = lo, lo
	b.upper[i*b.n+j], b.upper[j*b.n+i] = hi, hi
}

// widen merges [lo, hi] into the current range of i-j, used when several
// paths relate the same pair.
func (b *boundsMatrix) widen(i, j int, lo, hi float64, fresh bool) {
	if fresh {
		b.set(i, j, lo, hi)
		return
	}
	b.set(i, j, math.Min(b.l(i, j), lo), math.Max(b.u(i, j), hi))
}

// smooth applies the triangle inequality to all triples. It fails when a
// lower limit ends above its upper limit.
func (b *boundsMatrix) smooth() error {
	n := b.n
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if i == k {
				continue
			}
			uik, lik := b.u(i, k), b.l(i, k)
			for j := i + 1; j < n; j++ {
				if j == k {
					continue
				}
				ukj, lkj := b.u(k, j), b.l(k, j)
				u := b.u(i, j)
				if s := uik + ukj; s < u {
					u = s
				}
				l := b.l(i, j)
				if d := lik - ukj; d > l {
					l = d
				}
				if d := lkj - uik; d > l {
					l = d
				}
				if l > u+1e-6 {
					return errors.Newf(errors.ErrCodeEmbeddingFailed,
						"inconsistent distance bounds between atoms %d and %d", i+1, j+1)
				}
				b.set(i, j, l, u)
			}
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Ideal geometry
// ─────────────────────────────────────────────────────────────────────────────

func bondLength(m *molecule.Molecule, bi int) float64 {
	b := m.Bond(bi)
	r := molecule.CovalentRadius(m.Atom(b.Begin).Symbol) + molecule.CovalentRadius(m.Atom(b.End).Symbol)
	switch b.Order {
	case molecule.BondDouble:
		return r * 0.87
	case molecule.BondTriple:
		return r * 0.78
	case molecule.BondAromatic:
		return r * 0.92
	}
	return r
}

func isTrigonal(m *molecule.Molecule, i int) bool {
	return m.HasMultipleBond(i) && !isLinear(m, i)
}

// idealAngle returns the a-c-b angle at centre c in radians.
func idealAngle(m *molecule.Molecule, c, a, b int) float64 {
	if isLinear(m, c) {
		return math.Pi
	}
	if size := sharedRingSize(m, c, a, b); size > 0 && size <= 5 {
		return math.Pi * float64(size-2) / float64(size)
	}
	if isTrigonal(m, c) {
		return 2 * math.Pi / 3
	}
	return 109.47 * math.Pi / 180
}

// sharedRingSize returns the size of the smallest ring containing the bonds
// c-a and c-b, or 0.
func sharedRingSize(m *molecule.Molecule, c, a, b int) int {
	best := 0
	for _, ring := range m.Rings() {
		if !ringHasEdge(ring, c, a) || !ringHasEdge(ring, c, b) {
			continue
		}
		if best == 0 || len(ring) < best {
			best = len(ring)
		}
	}
	return best
}

func ringHasEdge(ring []int, a, b int) bool {
	for k := range ring {
		x, y := ring[k], ring[(k+1)%len(ring)]
		if (x == a && y == b) || (x == b && y == a) {
			return true
		}
	}
	return false
}

func lawOfCosines(a, b, theta float64) float64 {
	return math.Sqrt(a*a + b*b - 2*a*b*math.Cos(theta))
}

// torsionDistance returns the x..y distance of x-b-e-y for bond lengths r1,
// r2, r3, angles t1 at b and t2 at e, and torsion phi (0 is cis).
func torsionDistance(r1, r2, r3, t1, t2, phi float64) float64 {
	dx := r2 - r3*math.Cos(t2) - r1*math.Cos(t1)
	dy := r3*math.Sin(t2)*math.Cos(phi) - r1*math.Sin(t1)
	dz := r3 * math.Sin(t2) * math.Sin(phi)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// ─────────────────────────────────────────────────────────────────────────────
// Bounds construction
// ─────────────────────────────────────────────────────────────────────────────

// buildBounds derives distance bounds from the topology of m, which must
// carry explicit hydrogens: 1-2 from bond lengths, 1-3 from ideal angles,
// 1-4 from the cis and trans extremes (fixed across stereo double bonds),
// 1-5 across allenes from the perpendicular arrangement, and van der Waals
// lower limits for everything else.
func buildBounds(m *molecule.Molecule) *boundsMatrix {
	n := m.NumAtoms()
	b := newBoundsMatrix(n)
	dm := m.DistanceMatrix()

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			switch dm[i][j] {
			case -1:
				b.set(i, j, fragmentLower, fragmentUpper)
			case 1:
				d := bondLength(m, m.BondBetween(i, j))
				b.set(i, j, d-bond12Tol, d+bond12Tol)
			case 2:
				fresh := true
				for _, c := range m.Neighbors(i) {
					if m.BondBetween(c, j) < 0 {
						continue
					}
					r1 := bondLength(m, m.BondBetween(i, c))
					r2 := bondLength(m, m.BondBetween(c, j))
					d := lawOfCosines(r1, r2, idealAngle(m, c, i, j))
					b.widen(i, j, d-angle13Tol, d+angle13Tol, fresh)
					fresh = false
				}
			case 3:
				set14(m, b, i, j)
			default:
				lo := vdwScale * (vdw(m.Atom(i).Symbol) + vdw(m.Atom(j).Symbol))
				b.set(i, j, lo, boundUnset)
			}
		}
	}
	setAllene15(m, b)
	return b
}

func set14(m *molecule.Molecule, bm *boundsMatrix, i, j int) {
	fresh := true
	for _, a := range m.Neighbors(i) {
		for _, c := range m.Neighbors(j) {
			bi := m.BondBetween(a, c)
			if bi < 0 || a == j || c == i {
				continue
			}
			r1 := bondLength(m, m.BondBetween(i, a))
			r2 := bondLength(m, bi)
			r3 := bondLength(m, m.BondBetween(c, j))
			t1 := idealAngle(m, a, i, c)
			t2 := idealAngle(m, c, a, j)
			cis := torsionDistance(r1, r2, r3, t1, t2, 0)
			trans := torsionDistance(r1, r2, r3, t1, t2, math.Pi)
			lo, hi := math.Min(cis, trans), math.Max(cis, trans)

			bond := m.Bond(bi)
			switch {
			case bond.Order == molecule.BondDouble && bond.Stereo != molecule.StereoNone:
				d := trans
				if pairIsCis(m, bi, a, i, j) {
					d = cis
				}
				lo, hi = d-torsion14Tol, d+torsion14Tol
			case m.IsRingBond(bi) && m.BondRingSize(bi) <= 7:
				ring := smallestRingWithEdge(m, a, c)
				inI, inJ := indexOf(ring, i) >= 0, indexOf(ring, j) >= 0
				switch {
				case bond.Order == molecule.BondAromatic || (isTrigonal(m, a) && isTrigonal(m, c)):
					d := trans
					if inI == inJ {
						d = cis
					}
					lo, hi = d-torsion14Tol, d+torsion14Tol
				case inI && inJ:
					// saturated small rings pucker
					lo, hi = cis-torsion14Tol, math.Min(trans, cis+0.8)
				}
			}
			bm.widen(i, j, lo, hi, fresh)
			fresh = false
		}
	}
}

// pairIsCis reports whether substituent i (on atom a) and j are cis about the
// stereo double bond bi.
func pairIsCis(m *molecule.Molecule, bi, a, i, j int) bool {
	b := m.Bond(bi)
	si, sj := i, j
	if b.Begin != a {
		si, sj = j, i
	}
	cis := b.Stereo == molecule.StereoCis
	if si != b.StereoAtoms[0] {
		cis = !cis
	}
	if sj != b.StereoAtoms[1] {
		cis = !cis
	}
	return cis
}

func smallestRingWithEdge(m *molecule.Molecule, a, b int) []int {
	var best []int
	for _, ring := range m.Rings() {
		if ringHasEdge(ring, a, b) && (best == nil || len(ring) < len(best)) {
			best = ring
		}
	}
	return best
}

// setAllene15 fixes the distance between substituents on opposite ends of
// every allene to the perpendicular arrangement.
func setAllene15(m *molecule.Molecule, b *boundsMatrix) {
	for _, mt := range m.AlleneMatches() {
		t0, c, t2 := mt[0], mt[1], mt[2]
		l0 := bondLength(m, m.BondBetween(t0, c))
		l2 := bondLength(m, m.BondBetween(c, t2))
		axis := l0 + l2
		for _, a := range m.Neighbors(t0) {
			if a == c {
				continue
			}
			ra := bondLength(m, m.BondBetween(a, t0))
			for _, z := range m.Neighbors(t2) {
				if z == c {
					continue
				}
				rz := bondLength(m, m.BondBetween(z, t2))
				along := axis + 0.5*ra + 0.5*rz
				off := math.Sqrt(3) / 2
				d := math.Sqrt(along*along + (off*ra)*(off*ra) + (off*rz)*(off*rz))
				b.set(a, z, d-allene15Tol, d+allene15Tol)
			}
		}
	}
}

//Personal.AI order the ending
