package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// fragmentGap separates disconnected fragments, in bond lengths.
const fragmentGap = 1.5

// Compute2DCoords lays m out in the plane with unit bond length. Chains
// zigzag, rings are regular polygons, allene and alkyne centres are linear
// and every double bond with a cis/trans assignment is drawn with that
// geometry. Z is always 0.
func Compute2DCoords(m *molecule.Molecule) ([]molecule.Coord, error) {
	coords := make([]molecule.Coord, m.NumAtoms())
	if m.NumAtoms() == 0 {
		return coords, nil
	}
	dm := m.DistanceMatrix()
	ringOf := smallestSharedRing(m)

	offset := 0.0
	for _, frag := range m.Fragments() {
		pts, err := layoutFragment(m, frag, dm, ringOf)
		if err != nil {
			return nil, err
		}
		for k, a := range frag {
			coords[a] = pts[k]
		}
		fixDoubleBondGeometry(m, coords, frag)
		orient(coords, frag)

		minX, maxX := math.Inf(1), math.Inf(-1)
		for _, a := range frag {
			minX = math.Min(minX, coords[a].X)
			maxX = math.Max(maxX, coords[a].X)
		}
		for _, a := range frag {
			coords[a].X += offset - minX
		}
		offset += maxX - minX + fragmentGap
	}
	return coords, nil
}

// ringPair identifies the smallest ring shared by two atoms.
type ringPair struct {
	size int
	ring []int
}

func smallestSharedRing(m *molecule.Molecule) map[[2]int]ringPair {
	out := map[[2]int]ringPair{}
	for _, ring := range m.Rings() {
		for i := 0; i < len(ring); i++ {
			for j := i + 1; j < len(ring); j++ {
				key := pairKey(ring[i], ring[j])
				if rp, ok := out[key]; !ok || len(ring) < rp.size {
					out[key] = ringPair{size: len(ring), ring: ring}
				}
			}
		}
	}
	return out
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// targetDistance2D is the ideal depiction distance between two atoms k bonds
// apart.
func targetDistance2D(m *molecule.Molecule, a, b, k int, ringOf map[[2]int]ringPair) float64 {
	if rp, ok := ringOf[pairKey(a, b)]; ok {
		pa, pb := indexOf(rp.ring, a), indexOf(rp.ring, b)
		step := absInt(pa - pb)
		if rp.size-step < step {
			step = rp.size - step
		}
		return math.Sin(math.Pi*float64(step)/float64(rp.size)) / math.Sin(math.Pi/float64(rp.size))
	}
	if k == 2 && linearBetween(m, a, b) {
		return 2
	}
	h := math.Sqrt(3) / 2 * float64(k)
	if k%2 == 0 {
		return h
	}
	return math.Sqrt(h*h + 0.25)
}

// linearBetween reports whether a and b share an sp neighbour.
func linearBetween(m *molecule.Molecule, a, b int) bool {
	for _, c := range m.Neighbors(a) {
		if m.BondBetween(c, b) >= 0 && isLinear(m, c) {
			return true
		}
	}
	return false
}

// isLinear reports whether atom i is an sp centre: two double bonds or one
// triple bond.
func isLinear(m *molecule.Molecule, i int) bool {
	doubles := 0
	for _, bi := range m.Atom(i).Bonds {
		switch m.Bond(bi).Order {
		case molecule.BondTriple:
			return true
		case molecule.BondDouble:
			doubles++
		}
	}
	return doubles >= 2
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// layoutFragment places one connected fragment by classical scaling of the
// target distances followed by stress minimisation.
func layoutFragment(m *molecule.Molecule, frag []int, dm [][]int, ringOf map[[2]int]ringPair) ([]molecule.Coord, error) {
	n := len(frag)
	pts := make([]molecule.Coord, n)
	switch n {
	case 1:
		return pts, nil
	case 2:
		pts[1] = molecule.Coord{X: 1}
		return pts, nil
	}

	target := make([][]float64, n)
	for i := range target {
		target[i] = make([]float64, n)
		for j := range target[i] {
			if i != j {
				target[i][j] = targetDistance2D(m, frag[i], frag[j], dm[frag[i]][frag[j]], ringOf)
			}
		}
	}

	x0, err := classicalScaling(target, 2)
	if err != nil {
		return nil, err
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 { return stress2D(x, target, nil) },
		Grad: func(grad, x []float64) { stress2D(x, target, grad) },
	}
	res, err := optimize.Minimize(problem, x0, &optimize.Settings{
		MajorIterations:   500,
		GradientThreshold: 1e-6,
	}, &optimize.LBFGS{})
	x := x0
	if res != nil && len(res.X) == len(x0) && !math.IsNaN(res.F) {
		x = res.X
	} else if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLayoutFailed, "2D stress minimisation failed")
	}
	for i := range pts {
		pts[i] = molecule.Coord{X: x[2*i], Y: x[2*i+1]}
	}
	return pts, nil
}

// stress2D evaluates sum w_ij (|p_i - p_j| - d_ij)^2 with w = d^-2 and fills
// grad when it is non-nil.
func stress2D(x []float64, target [][]float64, grad []float64) float64 {
	n := len(target)
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}
	var s float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := target[i][j]
			if d <= 0 {
				continue
			}
			dx, dy := x[2*i]-x[2*j], x[2*i+1]-x[2*j+1]
			r := math.Hypot(dx, dy)
			w := 1 / (d * d)
			diff := r - d
			s += w * diff * diff
			if grad != nil && r > 1e-12 {
				g := 2 * w * diff / r
				grad[2*i] += g * dx
				grad[2*i+1] += g * dy
				grad[2*j] -= g * dx
				grad[2*j+1] -= g * dy
			}
		}
	}
	return s
}

// classicalScaling embeds a distance matrix in dim dimensions from the top
// eigenvectors of the double-centred squared distances. The result is laid
// out row by row.
func classicalScaling(d [][]float64, dim int) ([]float64, error) {
	n := len(d)
	sq := make([]float64, n*n)
	rowMean := make([]float64, n)
	var total float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := d[i][j] * d[i][j]
			sq[i*n+j] = v
			rowMean[i] += v / float64(n)
		}
		total += rowMean[i] / float64(n)
	}
	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			b.SetSym(i, j, -0.5*(sq[i*n+j]-rowMean[i]-rowMean[j]+total))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(b, true) {
		return nil, errors.New(errors.ErrCodeLayoutFailed, "eigen decomposition did not converge")
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	x := make([]float64, n*dim)
	for k := 0; k < dim; k++ {
		col := n - 1 - k
		lambda := values[col]
		if lambda < 1e-9 {
			// degenerate direction: spread the points slightly so the
			// optimiser can leave the line
			for i := 0; i < n; i++ {
				x[i*dim+k] = 0.1 * math.Sin(float64(i*(k+1))+0.5)
			}
			continue
		}
		s := math.Sqrt(lambda)
		for i := 0; i < n; i++ {
			x[i*dim+k] = s * vecs.At(i, col)
		}
	}
	return x, nil
}

// fixDoubleBondGeometry reflects one side of every acyclic stereo double bond
// whose drawn geometry disagrees with its assignment.
func fixDoubleBondGeometry(m *molecule.Molecule, coords []molecule.Coord, frag []int) {
	in := map[int]bool{}
	for _, a := range frag {
		in[a] = true
	}
	for _, bi := range m.StereoBonds() {
		b := m.Bond(bi)
		if !in[b.Begin] || m.IsRingBond(bi) {
			continue
		}
		x, y := b.StereoAtoms[0], b.StereoAtoms[1]
		if x < 0 || y < 0 {
			continue
		}
		p, q := coords[b.Begin], coords[b.End]
		sx := sideOfLine(p, q, coords[x])
		sy := sideOfLine(p, q, coords[y])
		cis := sx*sy > 0
		if cis == (b.Stereo == molecule.StereoCis) {
			continue
		}
		for _, a := range m.SideOf(b.End, b.Begin) {
			if a == b.End {
				continue
			}
			coords[a] = reflect2D(p, q, coords[a])
		}
	}
}

func sideOfLine(p, q, r molecule.Coord) float64 {
	return (q.X-p.X)*(r.Y-p.Y) - (q.Y-p.Y)*(r.X-p.X)
}

func reflect2D(p, q, r molecule.Coord) molecule.Coord {
	dx, dy := q.X-p.X, q.Y-p.Y
	l2 := dx*dx + dy*dy
	if l2 < 1e-12 {
		return r
	}
	t := ((r.X-p.X)*dx + (r.Y-p.Y)*dy) / l2
	fx, fy := p.X+t*dx, p.Y+t*dy
	return molecule.Coord{X: 2*fx - r.X, Y: 2*fy - r.Y}
}

// orient centres a fragment and rotates its principal axis onto X.
func orient(coords []molecule.Coord, frag []int) {
	if len(frag) < 2 {
		return
	}
	var cx, cy float64
	for _, a := range frag {
		cx += coords[a].X
		cy += coords[a].Y
	}
	cx /= float64(len(frag))
	cy /= float64(len(frag))
	var sxx, sxy, syy float64
	for _, a := range frag {
		dx, dy := coords[a].X-cx, coords[a].Y-cy
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	cov := mat.NewSymDense(2, []float64{sxx, sxy, sxy, syy})
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return
	}
	var v mat.Dense
	eig.VectorsTo(&v)
	ux, uy := v.At(0, 1), v.At(1, 1)
	for _, a := range frag {
		dx, dy := coords[a].X-cx, coords[a].Y-cy
		coords[a] = molecule.Coord{X: dx*ux + dy*uy, Y: -dx*uy + dy*ux}
	}
}

// BoundingBox returns the minimum and maximum corners of coords.
func BoundingBox(coords []molecule.Coord) (molecule.Coord, molecule.Coord) {
	if len(coords) == 0 {
		return molecule.Coord{}, molecule.Coord{}
	}
	lo, hi := coords[0], coords[0]
	for _, c := range coords[1:] {
		lo.X, lo.Y, lo.Z = math.Min(lo.X, c.X), math.Min(lo.Y, c.Y), math.Min(lo.Z, c.Z)
		hi.X, hi.Y, hi.Z = math.Max(hi.X, c.X), math.Max(hi.Y, c.Y), math.Max(hi.Z, c.Z)
	}
	return lo, hi
}

// MeanBondLength returns the average drawn bond length, or 0 without bonds.
func MeanBondLength(m *molecule.Molecule, coords []molecule.Coord) float64 {
	if m.NumBonds() == 0 {
		return 0
	}
	var s float64
	for i := 0; i < m.NumBonds(); i++ {
		b := m.Bond(i)
		s += dist(coords[b.Begin], coords[b.End])
	}
	return s / float64(m.NumBonds())
}

//Personal.AI order the ending
