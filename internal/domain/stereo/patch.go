package stereo

import (
	"github.com/turtacn/IsomerScope/internal/domain/molecule"
)

// PlaceholderTag is written on allene terminal carbons by PatchAllenes. It is
// a marker that makes the terminals count as stereo units, not a computed
// configuration.
const PlaceholderTag = molecule.ChiralCW

// PatchAllenes finds every non-overlapping C=C=C unit of m and sets the
// chirality tag of both terminal carbons (match positions 0 and 2) to
// PlaceholderTag. It returns the matches and leaves m untouched when there
// are none.
func PatchAllenes(m *molecule.Molecule) []molecule.Match {
	matches := m.AlleneMatches()
	for _, mt := range matches {
		m.Atom(mt[0]).Chiral = PlaceholderTag
		m.Atom(mt[2]).Chiral = PlaceholderTag
	}
	return matches
}

// HasAllene reports whether m contains at least one C=C=C unit.
func HasAllene(m *molecule.Molecule) bool {
	return m.HasSubstructMatch(molecule.AllenePattern)
}

// AlleneTerminals returns the terminal atoms of matches in match order.
func AlleneTerminals(matches []molecule.Match) []int {
	out := make([]int, 0, 2*len(matches))
	for _, mt := range matches {
		out = append(out, mt[0], mt[2])
	}
	return out
}

//Personal.AI order the ending
