package molecule

import (
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// Kekulize returns a copy of m in which every aromatic bond is assigned
// single or double order. Aromatic atom flags are cleared on the copy.
func Kekulize(m *Molecule) (*Molecule, error) {
	out := m.Clone()
	hasAromatic := false
	for _, b := range out.Bonds {
		if b.Order == BondAromatic {
			hasAromatic = true
			break
		}
	}
	if !hasAromatic {
		return out, nil
	}

	needs := make([]bool, len(out.Atoms))
	for i := range out.Atoms {
		needs[i] = out.needsPi(i)
	}
	matched := make([]int, len(out.Atoms))
	for i := range matched {
		matched[i] = -1
	}

	var order []int
	for i := range out.Atoms {
		if needs[i] {
			order = append(order, i)
		}
	}

	budget := 200000
	var solve func(k int) bool
	solve = func(k int) bool {
		for k < len(order) && matched[order[k]] >= 0 {
			k++
		}
		if k == len(order) {
			return true
		}
		budget--
		if budget < 0 {
			return false
		}
		a := order[k]
		for _, bi := range out.Atoms[a].Bonds {
			b := &out.Bonds[bi]
			if b.Order != BondAromatic {
				continue
			}
			o := b.Other(a)
			if !needs[o] || matched[o] >= 0 {
				continue
			}
			matched[a], matched[o] = bi, bi
			if solve(k + 1) {
				return true
			}
			matched[a], matched[o] = -1, -1
		}
		return false
	}
	if !solve(0) {
		return nil, errors.New(errors.ErrCodeMoleculeConversionFailed, "can't kekulize aromatic system")
	}

	for bi := range out.Bonds {
		b := &out.Bonds[bi]
		if b.Order != BondAromatic {
			continue
		}
		if matched[b.Begin] == bi {
			b.Order = BondDouble
		} else {
			b.Order = BondSingle
		}
	}
	for i := range out.Atoms {
		out.Atoms[i].Aromatic = false
	}
	return out, nil
}

// needsPi reports whether aromatic atom i must receive a double bond in the
// Kekulé form.
func (m *Molecule) needsPi(i int) bool {
	a := &m.Atoms[i]
	if !a.Aromatic {
		return false
	}
	aromaticBonds := 0
	for _, bi := range a.Bonds {
		switch m.Bonds[bi].Order {
		case BondAromatic:
			aromaticBonds++
		case BondDouble, BondTriple:
			return false
		}
	}
	if aromaticBonds == 0 {
		return false
	}
	connections := len(a.Bonds) + a.HCount
	switch a.Symbol {
	case "C", "Si":
		return a.Charge == 0
	case "N", "P", "As":
		if a.Charge == 0 {
			return connections == 2
		}
		if a.Charge == 1 {
			return connections == 3
		}
		return false
	case "B":
		return a.Charge == -1
	case "O", "S", "Se", "Te":
		return a.Charge == 1 && connections == 2
	}
	return false
}

//Personal.AI order the ending
