// Package molecule provides the molecular graph used by the IsomerScope
// pipeline: atoms with chirality tags, bonds with order and double-bond
// stereo, SMILES reading and writing, hydrogen handling, ring topology,
// substructure matching and graph symmetry.
package molecule

import (
	"fmt"
	"sort"
)

// ─────────────────────────────────────────────────────────────────────────────
// Value types
// ─────────────────────────────────────────────────────────────────────────────

// ChiralTag is the tetrahedral parity of an atom relative to its reference
// neighbour order (see Molecule.ReferenceOrder).
type ChiralTag int

const (
	ChiralUnspecified ChiralTag = iota
	// ChiralCW corresponds to SMILES "@@": looking from the first reference
	// neighbour, the remaining three appear clockwise.
	ChiralCW
	// ChiralCCW corresponds to SMILES "@".
	ChiralCCW
)

// Invert swaps CW and CCW. Unspecified stays unspecified.
func (t ChiralTag) Invert() ChiralTag {
	switch t {
	case ChiralCW:
		return ChiralCCW
	case ChiralCCW:
		return ChiralCW
	default:
		return t
	}
}

// Sign returns +1 for CW, -1 for CCW and 0 otherwise.
func (t ChiralTag) Sign() int {
	switch t {
	case ChiralCW:
		return 1
	case ChiralCCW:
		return -1
	default:
		return 0
	}
}

func (t ChiralTag) String() string {
	switch t {
	case ChiralCW:
		return "CHI_TETRAHEDRAL_CW"
	case ChiralCCW:
		return "CHI_TETRAHEDRAL_CCW"
	default:
		return "CHI_UNSPECIFIED"
	}
}

// BondOrder is the multiplicity of a bond. Aromatic bonds have their own
// order until the molecule is kekulized.
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// Valence returns the contribution of the bond to atom valence, with
// aromatic bonds counted as 1.5.
func (o BondOrder) Valence() float64 {
	if o == BondAromatic {
		return 1.5
	}
	return float64(o)
}

// BondDir is a SMILES directional mark on a single bond, relative to the
// bond's Begin -> End direction.
type BondDir int

const (
	DirNone BondDir = iota
	DirUp           // '/'
	DirDown         // '\'
)

// BondStereo is the configuration of a stereogenic double bond, expressed
// relative to the bond's StereoAtoms pair.
type BondStereo int

const (
	StereoNone BondStereo = iota
	StereoCis
	StereoTrans
)

// Flip swaps cis and trans.
func (s BondStereo) Flip() BondStereo {
	switch s {
	case StereoCis:
		return StereoTrans
	case StereoTrans:
		return StereoCis
	default:
		return s
	}
}

func (s BondStereo) String() string {
	switch s {
	case StereoCis:
		return "STEREOCIS"
	case StereoTrans:
		return "STEREOTRANS"
	default:
		return "STEREONONE"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph
// ─────────────────────────────────────────────────────────────────────────────

// Atom is a vertex of the molecular graph. Index is stable for the lifetime of
// the Molecule it belongs to.
type Atom struct {
	Index    int
	Symbol   string
	Charge   int
	Isotope  int
	Aromatic bool
	Chiral   ChiralTag
	// HCount is the number of hydrogens carried implicitly by the atom. For
	// bracket atoms it is the written count, otherwise it is derived from the
	// default valence.
	HCount int
	// Bracket marks atoms written as [..] whose H count is fixed.
	Bracket bool
	MapNum  int
	// Bonds lists incident bond indices in reference order.
	Bonds []int
}

// AtomicNumber returns the element number, 0 for unknown symbols.
func (a *Atom) AtomicNumber() int {
	if e, ok := LookupElement(a.Symbol); ok {
		return e.Number
	}
	return 0
}

// Bond is an edge of the molecular graph.
type Bond struct {
	Index int
	Begin int
	End   int
	Order BondOrder
	Dir   BondDir
	// Stereo and StereoAtoms describe a double bond: StereoAtoms[0] is a
	// neighbour of Begin and StereoAtoms[1] a neighbour of End.
	Stereo      BondStereo
	StereoAtoms [2]int
	// RingClosure marks bonds written with a ring-closure digit.
	RingClosure bool
}

// Other returns the atom at the far end of the bond from atom.
func (b *Bond) Other(atom int) int {
	if b.Begin == atom {
		return b.End
	}
	return b.Begin
}

// Contains reports whether atom is one of the bond's ends.
func (b *Bond) Contains(atom int) bool {
	return b.Begin == atom || b.End == atom
}

// Molecule is an undirected molecular graph.
type Molecule struct {
	Name  string
	Atoms []Atom
	Bonds []Bond

	rings *ringInfo
}

// New returns an empty molecule.
func New() *Molecule {
	return &Molecule{}
}

// NumAtoms returns the number of atoms.
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// NumBonds returns the number of bonds.
func (m *Molecule) NumBonds() int { return len(m.Bonds) }

// Atom returns the atom at index i.
func (m *Molecule) Atom(i int) *Atom { return &m.Atoms[i] }

// Bond returns the bond at index i.
func (m *Molecule) Bond(i int) *Bond { return &m.Bonds[i] }

// AddAtom appends an atom and returns its index.
func (m *Molecule) AddAtom(a Atom) int {
	a.Index = len(m.Atoms)
	a.Bonds = nil
	m.Atoms = append(m.Atoms, a)
	m.rings = nil
	return a.Index
}

// AddBond connects begin and end and returns the bond index. The bond is
// appended to both atoms' reference order.
func (m *Molecule) AddBond(begin, end int, order BondOrder) (int, error) {
	if begin < 0 || begin >= len(m.Atoms) || end < 0 || end >= len(m.Atoms) {
		return -1, fmt.Errorf("molecule: bond %d-%d out of range", begin, end)
	}
	if begin == end {
		return -1, fmt.Errorf("molecule: self bond on atom %d", begin)
	}
	if m.BondBetween(begin, end) >= 0 {
		return -1, fmt.Errorf("molecule: duplicate bond %d-%d", begin, end)
	}
	idx := len(m.Bonds)
	m.Bonds = append(m.Bonds, Bond{Index: idx, Begin: begin, End: end, Order: order})
	m.Atoms[begin].Bonds = append(m.Atoms[begin].Bonds, idx)
	m.Atoms[end].Bonds = append(m.Atoms[end].Bonds, idx)
	m.rings = nil
	return idx, nil
}

// BondBetween returns the index of the bond joining a and b, or -1.
func (m *Molecule) BondBetween(a, b int) int {
	if a < 0 || a >= len(m.Atoms) {
		return -1
	}
	for _, bi := range m.Atoms[a].Bonds {
		if bi >= 0 && m.Bonds[bi].Other(a) == b {
			return bi
		}
	}
	return -1
}

// Neighbors returns the neighbour atom indices of atom i in reference order.
func (m *Molecule) Neighbors(i int) []int {
	out := make([]int, 0, len(m.Atoms[i].Bonds))
	for _, bi := range m.Atoms[i].Bonds {
		out = append(out, m.Bonds[bi].Other(i))
	}
	return out
}

// Degree returns the number of explicit neighbours.
func (m *Molecule) Degree(i int) int { return len(m.Atoms[i].Bonds) }

// TotalDegree returns explicit neighbours plus implicit hydrogens.
func (m *Molecule) TotalDegree(i int) int { return len(m.Atoms[i].Bonds) + m.Atoms[i].HCount }

// ImplicitH is the placeholder used for an implicit hydrogen in reference
// orders.
const ImplicitH = -1

// ReferenceOrder returns the neighbour order a chirality tag refers to: the
// implicit hydrogen first (when the atom carries exactly one), then the
// explicit neighbours in bond order.
func (m *Molecule) ReferenceOrder(i int) []int {
	nbrs := m.Neighbors(i)
	if m.Atoms[i].HCount == 1 {
		return append([]int{ImplicitH}, nbrs...)
	}
	return nbrs
}

// ValenceSum returns the sum of bond valences around atom i, aromatic bonds
// counted as 1.5.
func (m *Molecule) ValenceSum(i int) float64 {
	var s float64
	for _, bi := range m.Atoms[i].Bonds {
		s += m.Bonds[bi].Order.Valence()
	}
	return s
}

// HasMultipleBond reports whether atom i has a double, triple or aromatic
// bond.
func (m *Molecule) HasMultipleBond(i int) bool {
	for _, bi := range m.Atoms[i].Bonds {
		if m.Bonds[bi].Order != BondSingle {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Ring information is shared because the
// connectivity of a clone is identical.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{
		Name:  m.Name,
		Atoms: make([]Atom, len(m.Atoms)),
		Bonds: make([]Bond, len(m.Bonds)),
		rings: m.rings,
	}
	copy(c.Atoms, m.Atoms)
	for i := range c.Atoms {
		c.Atoms[i].Bonds = append([]int(nil), m.Atoms[i].Bonds...)
	}
	copy(c.Bonds, m.Bonds)
	return c
}

// ChiralAtoms returns the indices of atoms with a specified chirality tag.
func (m *Molecule) ChiralAtoms() []int {
	var out []int
	for i := range m.Atoms {
		if m.Atoms[i].Chiral != ChiralUnspecified {
			out = append(out, i)
		}
	}
	return out
}

// StereoBonds returns the indices of double bonds with a cis/trans assignment.
func (m *Molecule) StereoBonds() []int {
	var out []int
	for i := range m.Bonds {
		if m.Bonds[i].Stereo != StereoNone {
			out = append(out, i)
		}
	}
	return out
}

// ChiralTags returns a snapshot of every atom's tag, indexed by atom.
func (m *Molecule) ChiralTags() []ChiralTag {
	out := make([]ChiralTag, len(m.Atoms))
	for i := range m.Atoms {
		out[i] = m.Atoms[i].Chiral
	}
	return out
}

// Formula returns the Hill-order molecular formula, counting implicit
// hydrogens.
func (m *Molecule) Formula() string {
	counts := map[string]int{}
	for i := range m.Atoms {
		a := &m.Atoms[i]
		counts[a.Symbol]++
		if a.HCount > 0 {
			counts["H"] += a.HCount
		}
	}
	var syms []string
	for s := range counts {
		if s != "C" && s != "H" {
			syms = append(syms, s)
		}
	}
	sort.Strings(syms)
	if counts["C"] > 0 {
		head := []string{"C"}
		if counts["H"] > 0 {
			head = append(head, "H")
		}
		syms = append(head, syms...)
	} else if counts["H"] > 0 {
		syms = append(syms, "H")
		sort.Strings(syms)
	}
	out := ""
	for _, s := range syms {
		out += s
		if counts[s] > 1 {
			out += fmt.Sprintf("%d", counts[s])
		}
	}
	return out
}

// permutationParity returns 0 for an even and 1 for an odd permutation taking
// from to to. Both slices must hold the same distinct values.
func permutationParity(from, to []int) int {
	pos := make(map[int]int, len(to))
	for i, v := range to {
		pos[v] = i
	}
	perm := make([]int, len(from))
	for i, v := range from {
		perm[i] = pos[v]
	}
	parity := 0
	seen := make([]bool, len(perm))
	for i := range perm {
		if seen[i] {
			continue
		}
		cycle := 0
		for j := i; !seen[j]; j = perm[j] {
			seen[j] = true
			cycle++
		}
		parity += cycle - 1
	}
	return parity % 2
}

// PermutationParity is exported for the stereo package.
func PermutationParity(from, to []int) int { return permutationParity(from, to) }

//Personal.AI order the ending
