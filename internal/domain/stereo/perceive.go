// Package stereo implements the stereochemistry of the IsomerScope pipeline:
// stereo element perception, the allene placeholder patch, stereoisomer
// enumeration, mirror-pair completion and CIP descriptors.
package stereo

import (
	"strconv"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
)

// minStereoRingBond is the smallest ring size in which a double bond can be
// trans.
const minStereoRingBond = 8

// TetrahedralCenters returns the atoms that can carry a tetrahedral
// configuration, in ascending order. An atom qualifies when it is an sp3
// carbon or silicon (or a quaternary N+/P+) with four different substituents.
// Ring atoms whose only equal pair is the two ring branches also qualify when
// another such atom shares the ring, which covers cis/trans ring isomers such
// as 1,4-dimethylcyclohexane.
func TetrahedralCenters(m *molecule.Molecule) []int {
	classes := m.SymmetryClasses()
	var centers []int
	ringCand := map[int]bool{}
	for i := range m.Atoms {
		if !tetrahedralShape(m, i) {
			continue
		}
		keys := substituentKeys(m, i, -1, classes)
		switch duplicatePairs(keys) {
		case 0:
			centers = append(centers, i)
		case 1:
			if ringBranchesEqual(m, i, keys, classes) {
				ringCand[i] = true
			}
		}
	}
	if len(ringCand) == 0 {
		return centers
	}

	isCenter := map[int]bool{}
	for _, c := range centers {
		isCenter[c] = true
	}
	for _, ring := range m.Rings() {
		var inRing []int
		partner := false
		for _, a := range ring {
			if ringCand[a] {
				inRing = append(inRing, a)
			} else if isCenter[a] {
				partner = true
			}
		}
		if len(inRing) >= 2 || (len(inRing) == 1 && partner) {
			for _, a := range inRing {
				isCenter[a] = true
			}
		}
	}
	var out []int
	for i := range m.Atoms {
		if isCenter[i] {
			out = append(out, i)
		}
	}
	return out
}

func tetrahedralShape(m *molecule.Molecule, i int) bool {
	a := m.Atom(i)
	if a.Aromatic || a.HCount > 1 || m.HasMultipleBond(i) || m.TotalDegree(i) != 4 {
		return false
	}
	switch a.Symbol {
	case "C", "Si":
		return true
	case "N", "P":
		return a.Charge == 1
	}
	return false
}

// substituentKeys returns one key per substituent of atom i, implicit
// hydrogens included, skipping the neighbour skip. Equal keys mean
// constitutionally equivalent substituents.
func substituentKeys(m *molecule.Molecule, i, skip int, classes []int) []string {
	var keys []string
	for k := 0; k < m.Atom(i).HCount; k++ {
		keys = append(keys, "h")
	}
	for _, n := range m.Neighbors(i) {
		if n == skip {
			continue
		}
		na := m.Atom(n)
		if na.Symbol == "H" && na.Isotope == 0 && m.Degree(n) == 1 {
			keys = append(keys, "h")
			continue
		}
		keys = append(keys, strconv.Itoa(classes[n]))
	}
	return keys
}

func duplicatePairs(keys []string) int {
	count := map[string]int{}
	for _, k := range keys {
		count[k]++
	}
	pairs := 0
	for _, c := range count {
		switch {
		case c == 2:
			pairs++
		case c > 2:
			pairs += 2
		}
	}
	return pairs
}

// ringStereoCentre reports whether i is tetrahedral with two
// constitutionally equal ring branches, as C1 and C4 of
// 1,4-dimethylcyclohexane. Such centres are stereogenic only relative to
// each other.
func ringStereoCentre(m *molecule.Molecule, i int, classes []int) bool {
	if !tetrahedralShape(m, i) {
		return false
	}
	keys := substituentKeys(m, i, -1, classes)
	return duplicatePairs(keys) == 1 && ringBranchesEqual(m, i, keys, classes)
}

// ringBranchesEqual reports whether the one equal pair of substituents of i
// is made of its two ring neighbours.
func ringBranchesEqual(m *molecule.Molecule, i int, keys []string, classes []int) bool {
	if !m.IsRingAtom(i) {
		return false
	}
	var ringNbrs []int
	for _, bi := range m.Atom(i).Bonds {
		if m.IsRingBond(bi) {
			ringNbrs = append(ringNbrs, m.Bond(bi).Other(i))
		}
	}
	if len(ringNbrs) != 2 {
		return false
	}
	if classes[ringNbrs[0]] != classes[ringNbrs[1]] {
		return false
	}
	dup := strconv.Itoa(classes[ringNbrs[0]])
	n := 0
	for _, k := range keys {
		if k == dup {
			n++
		}
	}
	return n == 2
}

// StereoDoubleBonds returns the double bonds that can be cis or trans, in
// ascending order. Both ends must be C or N with one or two different
// substituents, at least one of them a heavy atom. Cumulated bonds, aromatic
// bonds and bonds in rings smaller than eight are excluded.
func StereoDoubleBonds(m *molecule.Molecule) []int {
	classes := m.SymmetryClasses()
	var out []int
	for bi := range m.Bonds {
		b := m.Bond(bi)
		if b.Order != molecule.BondDouble {
			continue
		}
		if rs := m.BondRingSize(bi); rs > 0 && rs < minStereoRingBond {
			continue
		}
		if stereoSide(m, b.Begin, b.End, bi, classes) && stereoSide(m, b.End, b.Begin, bi, classes) {
			out = append(out, bi)
		}
	}
	return out
}

func stereoSide(m *molecule.Molecule, end, other, dbl int, classes []int) bool {
	a := m.Atom(end)
	if a.Aromatic || (a.Symbol != "C" && a.Symbol != "N") {
		return false
	}
	for _, bi := range a.Bonds {
		if bi != dbl && m.Bond(bi).Order != molecule.BondSingle {
			return false
		}
	}
	keys := substituentKeys(m, end, other, classes)
	if len(keys) == 0 || len(keys) > 2 {
		return false
	}
	if len(keys) == 2 && keys[0] == keys[1] {
		return false
	}
	return firstHeavyNeighbor(m, end, other) >= 0
}

// firstHeavyNeighbor returns the lowest-index neighbour of end other than
// skip, or -1.
func firstHeavyNeighbor(m *molecule.Molecule, end, skip int) int {
	best := -1
	for _, n := range m.Neighbors(end) {
		if n == skip {
			continue
		}
		if best < 0 || n < best {
			best = n
		}
	}
	return best
}

//Personal.AI order the ending
