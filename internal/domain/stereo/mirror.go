package stereo

import (
	"github.com/turtacn/IsomerScope/internal/domain/molecule"
)

// Axial labels assigned by position.
const (
	LabelRa = "Ra"
	LabelSa = "Sa"
)

// Mirror returns a copy of m with every specified chirality tag inverted.
// Double-bond configurations are kept.
func Mirror(m *molecule.Molecule) *molecule.Molecule {
	c := m.Clone()
	for i := range c.Atoms {
		c.Atoms[i].Chiral = c.Atoms[i].Chiral.Invert()
	}
	return c
}

// CompleteMirrorPair appends the mirror image of the single variant when
// enumeration produced exactly one and original contains an allene. In every
// other case variants is returned unchanged.
func CompleteMirrorPair(variants []*molecule.Molecule, original *molecule.Molecule) []*molecule.Molecule {
	if len(variants) != 1 || original == nil || !HasAllene(original) {
		return variants
	}
	return []*molecule.Molecule{variants[0], Mirror(variants[0])}
}

// AxialLabel returns the positional axial label of the i-th variant: "Ra" for
// the first and "Sa" for all others. It is not derived from priorities.
func AxialLabel(i int) string {
	if i == 0 {
		return LabelRa
	}
	return LabelSa
}

//Personal.AI order the ending
