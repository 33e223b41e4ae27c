package molecule

import (
	"strconv"
	"strings"
)

type smilesWriter struct {
	m *Molecule

	visited    []bool
	parentBond []int
	children   [][]int
	ringBonds  [][]int // ring-closure bonds per atom, reference order
	isRing     []bool
	begin      []int // written begin atom per tree bond
	dirs       []BondDir

	digitOf  map[int]int
	freeDigs []bool

	sb strings.Builder
}

// WriteSMILES serialises m as SMILES. Tetrahedral tags and double-bond
// stereo are written so that ParseSMILES restores them. The output follows
// atom order and is not canonical.
func WriteSMILES(m *Molecule) string {
	n := len(m.Atoms)
	w := &smilesWriter{
		m:          m,
		visited:    make([]bool, n),
		parentBond: make([]int, n),
		children:   make([][]int, n),
		ringBonds:  make([][]int, n),
		isRing:     make([]bool, len(m.Bonds)),
		begin:      make([]int, len(m.Bonds)),
		dirs:       make([]BondDir, len(m.Bonds)),
		digitOf:    map[int]int{},
		freeDigs:   make([]bool, 100),
	}
	for i := range w.parentBond {
		w.parentBond[i] = -1
	}
	for i := range w.begin {
		w.begin[i] = -1
	}

	var roots []int
	for s := 0; s < n; s++ {
		if !w.visited[s] {
			roots = append(roots, s)
			w.plan(s, -1)
		}
	}
	for bi := range m.Bonds {
		if w.begin[bi] < 0 {
			w.isRing[bi] = true
		}
	}
	for i := 0; i < n; i++ {
		for _, bi := range m.Atoms[i].Bonds {
			if w.isRing[bi] {
				w.ringBonds[i] = append(w.ringBonds[i], bi)
			}
		}
	}
	w.assignDirections()

	for k, r := range roots {
		if k > 0 {
			w.sb.WriteByte('.')
		}
		w.emit(r)
	}
	return w.sb.String()
}

// plan builds the DFS tree. Bonds that were read as ring closures stay ring
// closures, so a parsed molecule is written back in its input order.
func (w *smilesWriter) plan(v, parentBond int) {
	w.visited[v] = true
	w.parentBond[v] = parentBond
	for _, bi := range w.m.Atoms[v].Bonds {
		if bi == parentBond || w.isRing[bi] || w.m.Bonds[bi].RingClosure {
			continue
		}
		o := w.m.Bonds[bi].Other(v)
		if w.visited[o] {
			w.isRing[bi] = true
			continue
		}
		w.begin[bi] = v
		w.children[v] = append(w.children[v], bi)
		w.plan(o, bi)
	}
}

func (w *smilesWriter) emit(v int) {
	m := w.m

	// written neighbour order, used to express the chirality tag
	var written []int
	if pb := w.parentBond[v]; pb >= 0 {
		written = append(written, m.Bonds[pb].Other(v))
	}
	if m.Atoms[v].HCount == 1 {
		written = append(written, ImplicitH)
	}

	var ringPart strings.Builder
	for _, bi := range w.ringBonds[v] {
		b := &m.Bonds[bi]
		o := b.Other(v)
		written = append(written, o)
		if d, open := w.digitOf[bi]; open {
			delete(w.digitOf, bi)
			w.freeDigs[d] = false
			ringPart.WriteString(ringDigit(d))
			continue
		}
		d := w.allocDigit()
		w.digitOf[bi] = d
		ringPart.WriteString(w.bondSymbol(bi))
		ringPart.WriteString(ringDigit(d))
	}
	for _, bi := range w.children[v] {
		written = append(written, m.Bonds[bi].Other(v))
	}

	tag := m.Atoms[v].Chiral
	if tag != ChiralUnspecified {
		ref := m.ReferenceOrder(v)
		if len(ref) == len(written) && permutationParity(ref, written) == 1 {
			tag = tag.Invert()
		}
	}

	w.sb.WriteString(w.atomToken(v, tag))
	w.sb.WriteString(ringPart.String())

	for k, bi := range w.children[v] {
		child := m.Bonds[bi].Other(v)
		last := k == len(w.children[v])-1
		if !last {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.bondSymbol(bi))
		w.emit(child)
		if !last {
			w.sb.WriteByte(')')
		}
	}
}

func ringDigit(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

func (w *smilesWriter) allocDigit() int {
	for d := 1; d < len(w.freeDigs); d++ {
		if !w.freeDigs[d] {
			w.freeDigs[d] = true
			return d
		}
	}
	return 99
}

func (w *smilesWriter) bondSymbol(bi int) string {
	b := &w.m.Bonds[bi]
	switch b.Order {
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondAromatic:
		if w.m.Atoms[b.Begin].Aromatic && w.m.Atoms[b.End].Aromatic {
			return ""
		}
		return ":"
	}
	switch w.dirs[bi] {
	case DirUp:
		return "/"
	case DirDown:
		return "\\"
	}
	if w.m.Atoms[b.Begin].Aromatic && w.m.Atoms[b.End].Aromatic {
		return "-"
	}
	return ""
}

func (w *smilesWriter) atomToken(v int, tag ChiralTag) string {
	a := &w.m.Atoms[v]
	sym := a.Symbol
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	if !w.needsBracket(v, tag) {
		return sym
	}
	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(sym)
	switch tag {
	case ChiralCCW:
		sb.WriteString("@")
	case ChiralCW:
		sb.WriteString("@@")
	}
	if a.HCount > 0 {
		sb.WriteByte('H')
		if a.HCount > 1 {
			sb.WriteString(strconv.Itoa(a.HCount))
		}
	}
	switch {
	case a.Charge == 1:
		sb.WriteByte('+')
	case a.Charge == -1:
		sb.WriteByte('-')
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString(strconv.Itoa(a.Charge))
	}
	if a.MapNum > 0 {
		sb.WriteString(":" + strconv.Itoa(a.MapNum))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (w *smilesWriter) needsBracket(v int, tag ChiralTag) bool {
	a := &w.m.Atoms[v]
	if !organicSubset[a.Symbol] || a.Charge != 0 || a.Isotope != 0 || a.MapNum != 0 || tag != ChiralUnspecified {
		return true
	}
	// the organic form must imply exactly the hydrogens the atom carries
	el, _ := LookupElement(a.Symbol)
	implied := 0
	if a.Aromatic {
		sum := 0
		for _, bi := range a.Bonds {
			if w.m.Bonds[bi].Order == BondAromatic {
				sum++
			} else {
				sum += int(w.m.Bonds[bi].Order)
			}
		}
		implied = pickValence(el.Valences, sum) - sum - 1
		if implied < 0 {
			implied = 0
		}
	} else {
		sum := 0
		for _, bi := range a.Bonds {
			sum += int(w.m.Bonds[bi].Order)
		}
		if sum > el.Valences[len(el.Valences)-1] {
			return true
		}
		implied = pickValence(el.Valences, sum) - sum
	}
	return implied != a.HCount
}

// assignDirections places '/' and '\' marks on single bonds next to every
// stereo double bond, reusing marks shared by conjugated double bonds.
func (w *smilesWriter) assignDirections() {
	m := w.m
	for bi := range m.Bonds {
		b := &m.Bonds[bi]
		if b.Order != BondDouble || b.Stereo == StereoNone {
			continue
		}
		x, y := b.StereoAtoms[0], b.StereoAtoms[1]
		if m.BondBetween(b.Begin, x) < 0 || m.BondBetween(b.End, y) < 0 {
			continue
		}
		upX, ok := w.sideUp(b.Begin, bi, x, false, false)
		if !ok {
			continue
		}
		wantY := upX
		if b.Stereo == StereoTrans {
			wantY = !upX
		}
		w.sideUp(b.End, bi, y, wantY, true)
	}
}

// sideUp resolves the up/down state of ref around center. An existing mark
// on one of center's substituent bonds decides it; otherwise want is used and
// a mark is written. When force is set an existing mark that disagrees with
// want makes the side unencodable.
func (w *smilesWriter) sideUp(center, dbl, ref int, want, force bool) (bool, bool) {
	m := w.m
	var cands []int
	for _, bi := range m.Atoms[center].Bonds {
		if bi == dbl || w.isRing[bi] || m.Bonds[bi].Order != BondSingle {
			continue
		}
		cands = append(cands, bi)
	}
	if len(cands) == 0 {
		return false, false
	}
	for _, bi := range cands {
		if w.dirs[bi] == DirNone {
			continue
		}
		sub := m.Bonds[bi].Other(center)
		up := SubstituentUp(w.dirs[bi], w.begin[bi] == sub)
		if sub != ref {
			up = !up
		}
		if force && up != want {
			return false, false
		}
		return up, true
	}
	for _, bi := range cands {
		sub := m.Bonds[bi].Other(center)
		up := want
		if sub != ref {
			up = !want
		}
		subIsBegin := w.begin[bi] == sub
		if up != subIsBegin {
			w.dirs[bi] = DirUp
		} else {
			w.dirs[bi] = DirDown
		}
		return want, true
	}
	return false, false
}

//Personal.AI order the ending
