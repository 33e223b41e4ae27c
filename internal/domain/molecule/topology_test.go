package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRings(t *testing.T) {
	tests := []struct {
		name   string
		smiles string
		sizes  []int
	}{
		{"chain", "CCCC", nil},
		{"cyclohexane", "C1CCCCC1", []int{6}},
		{"naphthalene", "c1ccc2ccccc2c1", []int{6, 6}},
		{"spiro", "C1CCC2(C1)CCC2", []int{4, 5}},
		{"phenyl allene", phenylAllene, []int{6}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := MustParseSMILES(tt.smiles)
			var sizes []int
			for _, r := range m.Rings() {
				sizes = append(sizes, len(r))
			}
			assert.Equal(t, tt.sizes, sizes)
		})
	}
}

func TestRingMembership(t *testing.T) {
	m := MustParseSMILES("CC1CCCCC1")
	assert.False(t, m.IsRingAtom(0))
	assert.True(t, m.IsRingAtom(1))
	assert.Equal(t, 0, m.BondRingSize(m.BondBetween(0, 1)))
	assert.Equal(t, 6, m.BondRingSize(m.BondBetween(1, 2)))
	assert.Equal(t, 6, m.AtomRingSize(4))
	assert.True(t, m.IsRingBond(m.BondBetween(1, 6)))
}

func TestRingsCycleOrder(t *testing.T) {
	m := MustParseSMILES("C1CCCCC1")
	ring := m.Rings()[0]
	require.Len(t, ring, 6)
	for k := range ring {
		assert.GreaterOrEqual(t, m.BondBetween(ring[k], ring[(k+1)%6]), 0)
	}
}

func TestFragments(t *testing.T) {
	m := MustParseSMILES("CC.O.[Na+]")
	assert.Equal(t, [][]int{{0, 1}, {2}, {3}}, m.Fragments())

	ring := MustParseSMILES("CCO.c1ccccc1")
	frags := ring.Fragments()
	require.Len(t, frags, 2)
	assert.Equal(t, []int{0, 1, 2}, frags[0])
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8}, frags[1])

	assert.Empty(t, (&Molecule{}).Fragments())
}

func TestDistanceMatrix(t *testing.T) {
	m := MustParseSMILES("CCCC.O")
	d := m.DistanceMatrix()
	assert.Equal(t, 0, d[0][0])
	assert.Equal(t, 3, d[0][3])
	assert.Equal(t, 2, d[3][1])
	assert.Equal(t, -1, d[0][4])

	ring := MustParseSMILES("C1CCCCC1").DistanceMatrix()
	assert.Equal(t, 3, ring[0][3])
	assert.Equal(t, 1, ring[0][5])
}

func TestSideOf(t *testing.T) {
	m := MustParseSMILES("CC(C)=C(O)N")
	side := m.SideOf(3, 1)
	assert.ElementsMatch(t, []int{3, 4, 5}, side)
}

func TestGraph(t *testing.T) {
	m := MustParseSMILES("CCO")
	g, err := m.Graph()
	require.NoError(t, err)
	order, err := g.Order()
	require.NoError(t, err)
	size, err := g.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, order)
	assert.Equal(t, 2, size)
}

func TestSubstructMatches_Allene(t *testing.T) {
	m := MustParseSMILES(phenylAllene)
	matches := m.AlleneMatches()
	require.Len(t, matches, 1)
	assert.Equal(t, Match{1, 2, 3}, matches[0])
}

func TestSubstructMatches_Options(t *testing.T) {
	m := MustParseSMILES("C=C=C=C")

	all := m.SubstructMatches(AllenePattern, MatchOptions{})
	assert.Len(t, all, 4)

	unique := m.SubstructMatches(AllenePattern, MatchOptions{Uniquify: true})
	assert.Equal(t, []Match{{0, 1, 2}, {1, 2, 3}}, unique)

	disjoint := m.SubstructMatches(AllenePattern, MatchOptions{Uniquify: true, NonOverlapping: true})
	assert.Equal(t, []Match{{0, 1, 2}}, disjoint)

	first := m.SubstructMatches(AllenePattern, MatchOptions{MaxMatches: 1})
	assert.Len(t, first, 1)
}

func TestSubstructMatches_NoMatch(t *testing.T) {
	for _, s := range []string{"CC=CC", "c1ccccc1", "C#CC", "CC(C)=O"} {
		assert.False(t, MustParseSMILES(s).HasSubstructMatch(AllenePattern), s)
	}
	assert.True(t, MustParseSMILES("C=C=C").HasSubstructMatch(AllenePattern))
}

func TestSubstructMatches_AromaticDistinct(t *testing.T) {
	m := MustParseSMILES("Cc1ccccc1")
	pattern := MustParseSMILES("cC")
	matches := m.SubstructMatches(pattern, MatchOptions{Uniquify: true})
	assert.Equal(t, []Match{{1, 0}}, matches)
}

func TestSymmetryClasses(t *testing.T) {
	m := MustParseSMILES("CC(C)O")
	c := m.SymmetryClasses()
	assert.Equal(t, c[0], c[2])
	assert.NotEqual(t, c[0], c[1])
	assert.NotEqual(t, c[1], c[3])

	chiral := MustParseSMILES("CC(O)CC")
	cc := chiral.SymmetryClasses()
	nbrs := chiral.Neighbors(1)
	seen := map[int]bool{}
	for _, n := range nbrs {
		seen[cc[n]] = true
	}
	assert.Len(t, seen, 3)
}

func TestAutomorphisms(t *testing.T) {
	tests := []struct {
		smiles string
		want   int
	}{
		{"CC(C)O", 2},
		{"CCO", 1},
		{"CC(C)(C)O", 6},
		{"c1ccccc1", 12},
		{"OC(C(O)C(=O)O)C(=O)O", 2},
	}
	for _, tt := range tests {
		m := MustParseSMILES(tt.smiles)
		autos := m.Automorphisms()
		assert.Len(t, autos, tt.want, tt.smiles)
		for i, v := range autos[0] {
			assert.Equal(t, i, v)
		}
	}
}

//Personal.AI order the ending
