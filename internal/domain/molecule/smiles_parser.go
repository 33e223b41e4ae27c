package molecule

import (
	"strconv"
	"strings"

	"github.com/turtacn/IsomerScope/pkg/errors"
)

// organicSubset lists the atoms that may be written without brackets.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
}

// aromaticSymbols maps lowercase aromatic symbols to their element.
var aromaticSymbols = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
	"se": "Se", "as": "As", "te": "Te",
}

type pendingBond struct {
	set   bool
	order BondOrder
	dir   BondDir
}

type ringOpen struct {
	atom int
	slot int
	bond pendingBond
}

type smilesParser struct {
	src   string
	pos   int
	mol   *Molecule
	prev  int
	bond  pendingBond
	stack []int
	rings map[int]ringOpen
	// hasPrev records atoms that were bonded to an earlier atom when read.
	hasPrev map[int]bool
}

// ParseSMILES parses a SMILES string into a Molecule. Implicit hydrogens are
// assigned, directional bond marks are converted to double-bond stereo and
// Kekulé six-membered rings are perceived as aromatic.
func ParseSMILES(s string) (*Molecule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New(errors.CodeMoleculeInvalidSMILES, "empty SMILES")
	}
	// Only the first whitespace-separated token is structure; the rest is a
	// title.
	if i := strings.IndexAny(s, " \t"); i > 0 {
		s = s[:i]
	}

	p := &smilesParser{
		src:     s,
		mol:     New(),
		prev:    -1,
		rings:   map[int]ringOpen{},
		hasPrev: map[int]bool{},
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	m := p.mol

	if err := AssignImplicitHydrogens(m); err != nil {
		return nil, err
	}
	p.fixChirality()
	perceiveBondStereoFromDirs(m)
	PerceiveAromaticity(m)
	return m, nil
}

// MustParseSMILES is ParseSMILES that panics. Fixtures and package-level
// patterns only.
func MustParseSMILES(s string) *Molecule {
	m, err := ParseSMILES(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (p *smilesParser) fail(format string, args ...interface{}) error {
	return errors.Newf(errors.CodeMoleculeInvalidSMILES, format, args...).
		WithDetail("position " + strconv.Itoa(p.pos) + " in " + p.src)
}

func (p *smilesParser) parse() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if p.prev < 0 {
				return p.fail("branch opened before any atom")
			}
			p.stack = append(p.stack, p.prev)
			p.pos++
		case c == ')':
			if len(p.stack) == 0 {
				return p.fail("unbalanced ')'")
			}
			if p.bond.set {
				return p.fail("bond symbol before ')'")
			}
			p.prev = p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.pos++
		case c == '.':
			if p.bond.set {
				return p.fail("bond symbol before '.'")
			}
			p.prev = -1
			p.pos++
		case c == '-' || c == '=' || c == '#' || c == '$' || c == ':' || c == '/' || c == '\\':
			if p.bond.set {
				return p.fail("two consecutive bond symbols")
			}
			p.bond = bondFromSymbol(c)
			p.pos++
		case c >= '0' && c <= '9' || c == '%':
			if err := p.ringClosure(); err != nil {
				return err
			}
		case c == '[':
			if err := p.bracketAtom(); err != nil {
				return err
			}
		default:
			if err := p.organicAtom(); err != nil {
				return err
			}
		}
	}
	if len(p.stack) != 0 {
		return p.fail("unclosed branch")
	}
	if len(p.rings) != 0 {
		for d := range p.rings {
			return p.fail("unclosed ring %d", d)
		}
	}
	if p.bond.set {
		return p.fail("dangling bond symbol")
	}
	return nil
}

func bondFromSymbol(c byte) pendingBond {
	switch c {
	case '=':
		return pendingBond{set: true, order: BondDouble}
	case '#':
		return pendingBond{set: true, order: BondTriple}
	case '$':
		return pendingBond{set: true, order: BondTriple}
	case ':':
		return pendingBond{set: true, order: BondAromatic}
	case '/':
		return pendingBond{set: true, order: BondSingle, dir: DirUp}
	case '\\':
		return pendingBond{set: true, order: BondSingle, dir: DirDown}
	default:
		return pendingBond{set: true, order: BondSingle}
	}
}

func (p *smilesParser) organicAtom() error {
	rest := p.src[p.pos:]
	sym := ""
	aromatic := false
	switch {
	case strings.HasPrefix(rest, "Cl"):
		sym = "Cl"
	case strings.HasPrefix(rest, "Br"):
		sym = "Br"
	default:
		one := rest[:1]
		if organicSubset[one] {
			sym = one
		} else if el, ok := aromaticSymbols[one]; ok {
			sym = el
			aromatic = true
		}
	}
	if sym == "" {
		return p.fail("unexpected character %q", rest[:1])
	}
	if aromatic {
		p.pos++
	} else {
		p.pos += len(sym)
	}
	return p.addAtom(Atom{Symbol: sym, Aromatic: aromatic})
}

func (p *smilesParser) bracketAtom() error {
	end := strings.IndexByte(p.src[p.pos:], ']')
	if end < 0 {
		return p.fail("unclosed '['")
	}
	body := p.src[p.pos+1 : p.pos+end]
	p.pos += end + 1

	a := Atom{Bracket: true}
	i := 0

	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		a.Isotope = a.Isotope*10 + int(body[i]-'0')
		i++
	}

	if i >= len(body) {
		return p.fail("missing element in bracket atom")
	}
	// element: aromatic two-letter, aromatic one-letter, two-letter, one-letter
	switch {
	case i+2 <= len(body) && aromaticSymbols[body[i:i+2]] != "":
		a.Symbol = aromaticSymbols[body[i:i+2]]
		a.Aromatic = true
		i += 2
	case aromaticSymbols[body[i:i+1]] != "":
		a.Symbol = aromaticSymbols[body[i:i+1]]
		a.Aromatic = true
		i++
	case body[i] >= 'A' && body[i] <= 'Z':
		if i+2 <= len(body) && body[i+1] >= 'a' && body[i+1] <= 'z' {
			if _, ok := LookupElement(body[i : i+2]); ok {
				a.Symbol = body[i : i+2]
				i += 2
				break
			}
		}
		a.Symbol = body[i : i+1]
		i++
	default:
		return p.fail("invalid element in [%s]", body)
	}
	if _, ok := LookupElement(a.Symbol); !ok {
		return p.fail("unknown element %q", a.Symbol)
	}

	if i < len(body) && body[i] == '@' {
		i++
		a.Chiral = ChiralCCW
		switch {
		case i < len(body) && body[i] == '@':
			a.Chiral = ChiralCW
			i++
		case strings.HasPrefix(body[i:], "TH1"):
			i += 3
		case strings.HasPrefix(body[i:], "TH2"):
			a.Chiral = ChiralCW
			i += 3
		case i+1 < len(body) && body[i] >= 'A' && body[i] <= 'Z' && body[i+1] >= 'A' && body[i+1] <= 'Z':
			// allene, square-planar and higher classes are read but not kept
			a.Chiral = ChiralUnspecified
			i += 2
			for i < len(body) && body[i] >= '0' && body[i] <= '9' {
				i++
			}
		}
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(body) && body[i] >= '0' && body[i] <= '9' {
			a.HCount = int(body[i] - '0')
			i++
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		ch := body[i]
		i++
		n := 1
		if i < len(body) && body[i] >= '0' && body[i] <= '9' {
			n = 0
			for i < len(body) && body[i] >= '0' && body[i] <= '9' {
				n = n*10 + int(body[i]-'0')
				i++
			}
		} else {
			for i < len(body) && body[i] == ch {
				n++
				i++
			}
		}
		a.Charge = sign * n
	}

	if i < len(body) && body[i] == ':' {
		i++
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			a.MapNum = a.MapNum*10 + int(body[i]-'0')
			i++
		}
	}

	if i != len(body) {
		return p.fail("unexpected %q in bracket atom", body[i:])
	}
	return p.addAtom(a)
}

func (p *smilesParser) addAtom(a Atom) error {
	idx := p.mol.AddAtom(a)
	if p.prev >= 0 {
		order := p.bond.order
		if !p.bond.set {
			order = p.defaultOrder(p.prev, idx)
		}
		bi, err := p.mol.AddBond(p.prev, idx, order)
		if err != nil {
			return p.fail("%v", err)
		}
		p.mol.Bonds[bi].Dir = p.bond.dir
		p.hasPrev[idx] = true
	} else if p.bond.set {
		return p.fail("bond symbol without a preceding atom")
	}
	p.bond = pendingBond{}
	p.prev = idx
	return nil
}

func (p *smilesParser) defaultOrder(a, b int) BondOrder {
	if p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
		return BondAromatic
	}
	return BondSingle
}

func (p *smilesParser) ringClosure() error {
	if p.prev < 0 {
		return p.fail("ring closure before any atom")
	}
	var digit int
	if p.src[p.pos] == '%' {
		if p.pos+2 >= len(p.src) || p.src[p.pos+1] < '0' || p.src[p.pos+1] > '9' ||
			p.src[p.pos+2] < '0' || p.src[p.pos+2] > '9' {
			return p.fail("malformed %%nn ring closure")
		}
		digit = int(p.src[p.pos+1]-'0')*10 + int(p.src[p.pos+2]-'0')
		p.pos += 3
	} else {
		digit = int(p.src[p.pos] - '0')
		p.pos++
	}

	cur := p.prev
	open, ok := p.rings[digit]
	if !ok {
		atom := &p.mol.Atoms[cur]
		atom.Bonds = append(atom.Bonds, -1)
		p.rings[digit] = ringOpen{atom: cur, slot: len(atom.Bonds) - 1, bond: p.bond}
		p.bond = pendingBond{}
		return nil
	}
	delete(p.rings, digit)

	if open.atom == cur {
		return p.fail("ring closure %d on the same atom", digit)
	}
	if p.mol.BondBetween(open.atom, cur) >= 0 {
		return p.fail("ring closure %d duplicates an existing bond", digit)
	}

	order := BondSingle
	switch {
	case open.bond.set && p.bond.set && open.bond.order != p.bond.order:
		return p.fail("conflicting ring closure bond orders for %d", digit)
	case open.bond.set:
		order = open.bond.order
	case p.bond.set:
		order = p.bond.order
	default:
		order = p.defaultOrder(open.atom, cur)
	}
	dir := open.bond.dir
	if dir == DirNone && p.bond.dir != DirNone {
		// written from the closing atom; store it relative to the opener
		dir = DirUp
		if p.bond.dir == DirUp {
			dir = DirDown
		}
	}

	bi := len(p.mol.Bonds)
	p.mol.Bonds = append(p.mol.Bonds, Bond{
		Index:       bi,
		Begin:       open.atom,
		End:         cur,
		Order:       order,
		Dir:         dir,
		RingClosure: true,
	})
	p.mol.Atoms[open.atom].Bonds[open.slot] = bi
	p.mol.Atoms[cur].Bonds = append(p.mol.Atoms[cur].Bonds, bi)
	p.mol.rings = nil
	p.bond = pendingBond{}
	return nil
}

// fixChirality rewrites tags from SMILES neighbour order into reference
// order. SMILES places a bracket hydrogen right after the preceding atom; the
// reference order places it first, one transposition away.
func (p *smilesParser) fixChirality() {
	for i := range p.mol.Atoms {
		a := &p.mol.Atoms[i]
		if a.Chiral == ChiralUnspecified {
			continue
		}
		if a.HCount == 1 && p.hasPrev[i] {
			a.Chiral = a.Chiral.Invert()
		}
	}
}

// perceiveBondStereoFromDirs turns '/' and '\' marks around double bonds into
// StereoCis/StereoTrans and clears the marks.
func perceiveBondStereoFromDirs(m *Molecule) {
	for bi := range m.Bonds {
		b := &m.Bonds[bi]
		if b.Order != BondDouble {
			continue
		}
		x, upX, okX := directedSubstituent(m, b.Begin, bi)
		y, upY, okY := directedSubstituent(m, b.End, bi)
		if !okX || !okY {
			continue
		}
		b.StereoAtoms = [2]int{x, y}
		if upX == upY {
			b.Stereo = StereoCis
		} else {
			b.Stereo = StereoTrans
		}
	}
	for bi := range m.Bonds {
		m.Bonds[bi].Dir = DirNone
	}
}

// directedSubstituent finds a marked single bond on center (other than the
// double bond skip) and reports whether its substituent points up.
func directedSubstituent(m *Molecule, center, skip int) (int, bool, bool) {
	for _, bi := range m.Atoms[center].Bonds {
		if bi == skip {
			continue
		}
		b := &m.Bonds[bi]
		if b.Dir == DirNone {
			continue
		}
		sub := b.Other(center)
		return sub, SubstituentUp(b.Dir, sub == b.Begin), true
	}
	return -1, false, false
}

// SubstituentUp reports whether a substituent lies "up" relative to its
// double-bond atom, given the mark on the connecting bond and whether the
// substituent is that bond's Begin atom.
func SubstituentUp(dir BondDir, subIsBegin bool) bool {
	return (dir == DirUp) != subIsBegin
}

//Personal.AI order the ending
