package geometry

import (
	"math"
	"sort"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
)

// Wedge is a stereo bond of a 2D depiction. It is drawn from its narrow end
// at Atom, the stereocentre, towards the other atom of Bond.
type Wedge struct {
	Bond int
	Atom int
	// Kind is molecule.MolBondStereoWedge (towards the viewer) or
	// molecule.MolBondStereoHash (away from the viewer).
	Kind int
}

// AssignWedges picks one wedged or hashed bond per tetrahedral stereocentre
// of m so that the depiction at coords expresses its tag. Acyclic bonds to
// non-stereo terminal atoms are preferred and a bond is never wedged twice.
func AssignWedges(m *molecule.Molecule, coords []molecule.Coord) []Wedge {
	used := map[int]bool{}
	chiral := map[int]bool{}
	for _, c := range m.ChiralAtoms() {
		chiral[c] = true
	}

	var out []Wedge
	for _, c := range m.ChiralAtoms() {
		ref := m.ReferenceOrder(c)
		if len(ref) != 4 || m.HasMultipleBond(c) {
			continue
		}
		for _, bi := range wedgeCandidates(m, c, chiral, used) {
			w := m.Bond(bi).Other(c)
			v := depictionVolume(m, coords, c, ref, w)
			if math.Abs(v) < 1e-6 {
				continue
			}
			kind := molecule.MolBondStereoWedge
			if (v > 0) != (m.Atom(c).Chiral == molecule.ChiralCW) {
				kind = molecule.MolBondStereoHash
			}
			used[bi] = true
			out = append(out, Wedge{Bond: bi, Atom: c, Kind: kind})
			break
		}
	}
	return out
}

func wedgeCandidates(m *molecule.Molecule, c int, chiral, used map[int]bool) []int {
	var cands []int
	for _, bi := range m.Atom(c).Bonds {
		if !used[bi] && m.Bond(bi).Order == molecule.BondSingle {
			cands = append(cands, bi)
		}
	}
	score := func(bi int) int {
		o := m.Bond(bi).Other(c)
		s := 0
		if m.IsRingBond(bi) {
			s += 4
		}
		if chiral[o] {
			s += 2
		}
		if m.Degree(o) > 1 {
			s++
		}
		return s
	}
	sort.SliceStable(cands, func(i, j int) bool { return score(cands[i]) < score(cands[j]) })
	return cands
}

// depictionVolume lifts the neighbours of c out of the plane with the wedged
// neighbour w towards the viewer and an implicit hydrogen behind, and returns
// the signed volume of the reference order.
func depictionVolume(m *molecule.Molecule, coords []molecule.Coord, c int, ref []int, w int) float64 {
	centre := coords[c]
	var sum molecule.Coord
	for _, n := range ref {
		if n != molecule.ImplicitH {
			sum = sum.Add(unit(coords[n].Sub(centre)))
		}
	}
	pts := make([]molecule.Coord, len(ref))
	for k, n := range ref {
		switch {
		case n == molecule.ImplicitH:
			d := unit(sum.Scale(-1))
			pts[k] = molecule.Coord{X: centre.X + 0.5*d.X, Y: centre.Y + 0.5*d.Y, Z: -1}
		case n == w:
			pts[k] = molecule.Coord{X: coords[n].X, Y: coords[n].Y, Z: 1}
		default:
			pts[k] = molecule.Coord{X: coords[n].X, Y: coords[n].Y}
		}
	}
	return signedVolume(pts[0], pts[1], pts[2], pts[3])
}

// WedgeMaps converts wedges to the per-bond stereo codes and begin atoms used
// by molecule.WriteMolBlock.
func WedgeMaps(ws []Wedge) (stereo map[int]int, begin map[int]int) {
	stereo = make(map[int]int, len(ws))
	begin = make(map[int]int, len(ws))
	for _, w := range ws {
		stereo[w.Bond] = w.Kind
		begin[w.Bond] = w.Atom
	}
	return stereo, begin
}

// TetrahedralSignFromDepiction returns +1 when the wedges at c depict a
// clockwise arrangement of its reference order, -1 for counterclockwise and 0
// when c has no wedge.
func TetrahedralSignFromDepiction(m *molecule.Molecule, coords []molecule.Coord, ws []Wedge, c int) int {
	ref := m.ReferenceOrder(c)
	if len(ref) != 4 {
		return 0
	}
	for _, w := range ws {
		if w.Atom != c {
			continue
		}
		v := depictionVolume(m, coords, c, ref, m.Bond(w.Bond).Other(c))
		if w.Kind == molecule.MolBondStereoHash {
			v = -v
		}
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		}
	}
	return 0
}

//Personal.AI order the ending
