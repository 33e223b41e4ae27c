package molecule

import (
	"math"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

// AssignImplicitHydrogens derives HCount for every atom written without
// brackets. Bracket atoms keep their written count.
func AssignImplicitHydrogens(m *Molecule) error {
	for i := range m.Atoms {
		a := &m.Atoms[i]
		if a.Bracket {
			continue
		}
		el, ok := LookupElement(a.Symbol)
		if !ok || len(el.Valences) == 0 {
			a.HCount = 0
			continue
		}

		if a.Aromatic {
			sum := 0
			for _, bi := range a.Bonds {
				if m.Bonds[bi].Order == BondAromatic {
					sum++
				} else {
					sum += int(m.Bonds[bi].Order)
				}
			}
			v := pickValence(el.Valences, sum)
			a.HCount = v - sum - 1
			if a.HCount < 0 {
				a.HCount = 0
			}
			continue
		}

		sum := int(math.Round(m.ValenceSum(i)))
		if sum > el.Valences[len(el.Valences)-1] {
			return errors.Newf(errors.ErrCodeValenceViolation,
				"explicit valence %d for atom #%d %s exceeds the maximum of %d",
				sum, i, a.Symbol, el.Valences[len(el.Valences)-1])
		}
		a.HCount = pickValence(el.Valences, sum) - sum
	}
	return nil
}

// pickValence returns the smallest allowed valence that can hold sum bonds,
// or the largest one.
func pickValence(valences []int, sum int) int {
	for _, v := range valences {
		if v >= sum {
			return v
		}
	}
	return valences[len(valences)-1]
}

// AddHs returns a copy of m with every implicit hydrogen made explicit. New
// hydrogens are appended after the heavy atoms and placed first in their
// parent's reference order, so chirality tags keep their meaning.
func AddHs(m *Molecule) *Molecule {
	out := m.Clone()
	heavy := len(out.Atoms)
	for i := 0; i < heavy; i++ {
		n := out.Atoms[i].HCount
		if n == 0 {
			continue
		}
		var front []int
		for k := 0; k < n; k++ {
			h := len(out.Atoms)
			out.Atoms = append(out.Atoms, Atom{Index: h, Symbol: "H", Bracket: true})
			bi := len(out.Bonds)
			out.Bonds = append(out.Bonds, Bond{Index: bi, Begin: i, End: h, Order: BondSingle})
			out.Atoms[h].Bonds = []int{bi}
			front = append(front, bi)
		}
		out.Atoms[i].Bonds = append(front, out.Atoms[i].Bonds...)
		out.Atoms[i].HCount = 0
	}
	out.rings = nil
	return out
}

// HeavyAtomCount returns the number of non-hydrogen atoms.
func (m *Molecule) HeavyAtomCount() int {
	n := 0
	for i := range m.Atoms {
		if m.Atoms[i].Symbol != "H" {
			n++
		}
	}
	return n
}

// PerceiveAromaticity marks six-membered rings of C/N atoms in which every
// atom carries one double bond inside the ring system as aromatic. Rings
// already written aromatic are left alone.
func PerceiveAromaticity(m *Molecule) {
	ri := m.ringInfo()
	inRing := make([]bool, len(m.Atoms))
	for _, r := range ri.rings {
		for _, a := range r {
			inRing[a] = true
		}
	}

	changed := true
	for changed {
		changed = false
		for _, ring := range ri.rings {
			if len(ring) != 6 || !m.kekuleAromaticRing(ring, inRing) {
				continue
			}
			for k, a := range ring {
				if !m.Atoms[a].Aromatic {
					m.Atoms[a].Aromatic = true
					changed = true
				}
				b := m.BondBetween(a, ring[(k+1)%len(ring)])
				if b >= 0 && m.Bonds[b].Order != BondAromatic {
					m.Bonds[b].Order = BondAromatic
					m.Bonds[b].Stereo = StereoNone
					changed = true
				}
			}
		}
	}

	// double bonds between two aromatic atoms of a fused system
	for bi := range m.Bonds {
		b := &m.Bonds[bi]
		if b.Order == BondDouble && m.Atoms[b.Begin].Aromatic && m.Atoms[b.End].Aromatic && ri.bondRing[bi] > 0 {
			b.Order = BondAromatic
			b.Stereo = StereoNone
		}
	}
}

func (m *Molecule) kekuleAromaticRing(ring []int, inRing []bool) bool {
	allAromatic := true
	for _, a := range ring {
		at := &m.Atoms[a]
		if at.Symbol != "C" && at.Symbol != "N" {
			return false
		}
		if !at.Aromatic {
			allAromatic = false
		}
		if at.Aromatic {
			continue
		}
		doubles := 0
		for _, bi := range at.Bonds {
			b := &m.Bonds[bi]
			switch b.Order {
			case BondDouble:
				if !inRing[b.Other(a)] {
					return false
				}
				doubles++
			case BondTriple:
				return false
			}
		}
		if doubles != 1 {
			return false
		}
	}
	return !allAromatic
}

//Personal.AI order the ending
