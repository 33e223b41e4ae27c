package stereo

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
)

// Descriptor is a CIP label on an atom (R/S) or a double bond (E/Z).
type Descriptor struct {
	Atom  int    `json:"atom"`
	Bond  int    `json:"bond"`
	Label string `json:"label"`
}

// Position returns the 1-based atom number the descriptor is written with:
// the atom, or the lower atom of the bond. Atom numbers follow the input
// SMILES and match the serials of the mol block, not IUPAC chain locants.
func (d Descriptor) Position(m *molecule.Molecule) int {
	if d.Atom >= 0 {
		return d.Atom + 1
	}
	b := m.Bond(d.Bond)
	return min(b.Begin, b.End) + 1
}

// maxSphereNodes bounds the hierarchical digraph explored per comparison.
const maxSphereNodes = 20000

// cipNode is a vertex of the hierarchical digraph rooted at a stereo unit.
type cipNode struct {
	atom   int // molecule.ImplicitH for implicit hydrogens
	z      int
	mass   int
	from   int
	dup    bool
	parent *cipNode
}

func (n *cipNode) key(byMass bool) int {
	if byMass {
		return n.z*1000 + n.mass
	}
	return n.z * 1000
}

func (n *cipNode) hasAncestor(atom int) bool {
	for p := n; p != nil; p = p.parent {
		if p.atom == atom {
			return true
		}
	}
	return false
}

type cipGraph struct {
	m *molecule.Molecule
}

func newCIPGraph(m *molecule.Molecule) *cipGraph {
	src := m
	if k, err := molecule.Kekulize(m); err == nil {
		src = k
	}
	return &cipGraph{m: src}
}

func (g *cipGraph) node(atom, from int, parent *cipNode, dup bool) *cipNode {
	a := g.m.Atom(atom)
	mass := a.Isotope
	if mass == 0 {
		if el, ok := molecule.LookupElement(a.Symbol); ok {
			mass = int(math.Round(el.Mass))
		}
	}
	return &cipNode{atom: atom, z: a.AtomicNumber(), mass: mass, from: from, dup: dup, parent: parent}
}

func hydrogenNode(parent *cipNode) *cipNode {
	return &cipNode{atom: molecule.ImplicitH, z: 1, mass: 1, from: parent.atom, parent: parent}
}

// children expands n one sphere outward. Multiple bonds add duplicate atoms
// and ring closures end in a duplicate of the revisited atom.
func (g *cipGraph) children(n *cipNode) []*cipNode {
	if n.dup || n.atom < 0 {
		return nil
	}
	a := g.m.Atom(n.atom)
	var out []*cipNode
	for _, bi := range a.Bonds {
		b := g.m.Bond(bi)
		o := b.Other(n.atom)
		extra := 0
		switch b.Order {
		case molecule.BondDouble:
			extra = 1
		case molecule.BondTriple:
			extra = 2
		}
		if o != n.from {
			out = append(out, g.node(o, n.atom, n, n.hasAncestor(o)))
		}
		for k := 0; k < extra; k++ {
			out = append(out, g.node(o, n.atom, n, true))
		}
	}
	for k := 0; k < a.HCount; k++ {
		out = append(out, hydrogenNode(n))
	}
	return out
}

// compare ranks two branches by exploring them sphere by sphere. Atomic
// numbers decide first; mass numbers only break a complete tie.
func (g *cipGraph) compare(a, b *cipNode) int {
	if c := g.compareBy(a, b, false); c != 0 {
		return c
	}
	return g.compareBy(a, b, true)
}

func (g *cipGraph) compareBy(a, b *cipNode, byMass bool) int {
	sa := [][]*cipNode{{a}}
	sb := [][]*cipNode{{b}}
	for depth := 0; depth <= g.m.NumAtoms()+1; depth++ {
		if c := compareSpheres(sa, sb, byMass); c != 0 {
			return c
		}
		sa = g.nextSphere(sa, byMass)
		sb = g.nextSphere(sb, byMass)
		if len(sa) == 0 && len(sb) == 0 {
			return 0
		}
		if sphereSize(sa) > maxSphereNodes || sphereSize(sb) > maxSphereNodes {
			return 0
		}
	}
	return 0
}

func sphereSize(s [][]*cipNode) int {
	n := 0
	for _, grp := range s {
		n += len(grp)
	}
	return n
}

// nextSphere returns the children of every node in s, grouped by parent in
// parent rank order and sorted by decreasing key inside a group.
func (g *cipGraph) nextSphere(s [][]*cipNode, byMass bool) [][]*cipNode {
	var out [][]*cipNode
	for _, grp := range s {
		for _, n := range grp {
			ch := g.children(n)
			if len(ch) == 0 {
				continue
			}
			sort.SliceStable(ch, func(i, j int) bool { return ch[i].key(byMass) > ch[j].key(byMass) })
			out = append(out, ch)
		}
	}
	return out
}

func compareSpheres(a, b [][]*cipNode, byMass bool) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var ga, gb []*cipNode
		if i < len(a) {
			ga = a[i]
		}
		if i < len(b) {
			gb = b[i]
		}
		for j := 0; j < len(ga) || j < len(gb); j++ {
			ka, kb := 0, 0
			if j < len(ga) {
				ka = ga[j].key(byMass)
			}
			if j < len(gb) {
				kb = gb[j].key(byMass)
			}
			if ka != kb {
				if ka > kb {
					return 1
				}
				return -1
			}
		}
	}
	return 0
}

// ranked sorts branches by decreasing priority and reports whether all of
// them are distinct.
func (g *cipGraph) ranked(branches []*cipNode) ([]*cipNode, bool) {
	out := append([]*cipNode(nil), branches...)
	sort.SliceStable(out, func(i, j int) bool { return g.compare(out[i], out[j]) > 0 })
	for i := 1; i < len(out); i++ {
		if g.compare(out[i-1], out[i]) == 0 {
			return out, false
		}
	}
	return out, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Descriptors
// ─────────────────────────────────────────────────────────────────────────────

// AssignCIP returns R/S descriptors for tagged tetrahedral atoms with four
// ranked substituents and E/Z descriptors for double bonds with a cis/trans
// assignment, ordered by atom number. Ring centres with two equal ring
// branches get no descriptor: ranking them needs the like/unlike rules,
// which are not implemented.
func AssignCIP(m *molecule.Molecule) []Descriptor {
	g := newCIPGraph(m)
	var classes []int
	var out []Descriptor
	for _, i := range m.ChiralAtoms() {
		if m.IsRingAtom(i) {
			if classes == nil {
				classes = m.SymmetryClasses()
			}
			if ringStereoCentre(m, i, classes) {
				continue
			}
		}
		if label := g.tetrahedral(m, i); label != "" {
			out = append(out, Descriptor{Atom: i, Bond: -1, Label: label})
		}
	}
	for _, bi := range m.StereoBonds() {
		if label := g.doubleBond(m, bi); label != "" {
			out = append(out, Descriptor{Atom: -1, Bond: bi, Label: label})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position(m) < out[j].Position(m) })
	return out
}

func (g *cipGraph) tetrahedral(m *molecule.Molecule, i int) string {
	ref := m.ReferenceOrder(i)
	if len(ref) != 4 || m.HasMultipleBond(i) {
		return ""
	}
	root := g.node(i, -1, nil, false)
	ranked, ok := g.ranked(g.children(root))
	if !ok || len(ranked) != 4 {
		return ""
	}
	// lowest priority first, then the rest by decreasing priority
	target := []int{ranked[3].atom, ranked[0].atom, ranked[1].atom, ranked[2].atom}
	tag := m.Atom(i).Chiral
	if molecule.PermutationParity(ref, target) == 1 {
		tag = tag.Invert()
	}
	if tag == molecule.ChiralCCW {
		return "R"
	}
	return "S"
}

func (g *cipGraph) doubleBond(m *molecule.Molecule, bi int) string {
	b := m.Bond(bi)
	if b.Order != molecule.BondDouble {
		return ""
	}
	hiX, ok := g.highestSubstituent(b.Begin, b.End)
	if !ok {
		return ""
	}
	hiY, ok := g.highestSubstituent(b.End, b.Begin)
	if !ok {
		return ""
	}
	s := b.Stereo
	if hiX != b.StereoAtoms[0] {
		s = s.Flip()
	}
	if hiY != b.StereoAtoms[1] {
		s = s.Flip()
	}
	if s == molecule.StereoCis {
		return "Z"
	}
	return "E"
}

// highestSubstituent returns the top-ranked substituent of end, looking away
// from other.
func (g *cipGraph) highestSubstituent(end, other int) (int, bool) {
	otherNode := g.node(other, -1, nil, false)
	endNode := g.node(end, other, otherNode, false)
	var subs []*cipNode
	for _, c := range g.children(endNode) {
		if c.atom == other {
			continue
		}
		subs = append(subs, c)
	}
	switch len(subs) {
	case 1:
		return subs[0].atom, subs[0].atom >= 0
	case 2:
		ranked, ok := g.ranked(subs)
		if !ok {
			return 0, false
		}
		return ranked[0].atom, ranked[0].atom >= 0
	}
	return 0, false
}

// CIPLabel formats the descriptors of m as a list such as "2R,3S" or "2E",
// each prefixed with its atom number. It is empty when m has no assignable
// stereo unit.
func CIPLabel(m *molecule.Molecule) string {
	ds := AssignCIP(m)
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		parts = append(parts, strconv.Itoa(d.Position(m))+d.Label)
	}
	return strings.Join(parts, ",")
}

//Personal.AI order the ending
