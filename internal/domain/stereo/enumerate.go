package stereo

import (
	"context"
	"sort"
	"strings"

	"github.com/turtacn/IsomerScope/internal/domain/molecule"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// maxFlippers bounds the number of stereo units explored exhaustively.
const maxFlippers = 24

// Embedder checks whether a stereoisomer can be realised in 3D.
type Embedder interface {
	Embeddable(ctx context.Context, m *molecule.Molecule) bool
}

// Options controls Enumerate.
type Options struct {
	// OnlyUnassigned keeps tags that are already set and only explores the
	// unassigned units.
	OnlyUnassigned bool
	// Unique drops variants that are the same stereoisomer up to graph
	// symmetry.
	Unique bool
	// TryEmbedding drops variants the Embedder cannot realise.
	TryEmbedding bool
	// MaxIsomers stops the enumeration once reached. Zero means 1024.
	MaxIsomers int
	Embedder   Embedder
}

// DefaultOptions returns OnlyUnassigned, Unique and TryEmbedding with a cap of
// 1024 variants.
func DefaultOptions() Options {
	return Options{OnlyUnassigned: true, Unique: true, TryEmbedding: true, MaxIsomers: 1024}
}

// units are the stereo elements perceived on a molecule.
type units struct {
	atoms []int
	bonds []int
}

func perceive(m *molecule.Molecule) units {
	return units{atoms: TetrahedralCenters(m), bonds: StereoDoubleBonds(m)}
}

// flipper is one stereo unit that enumeration sets: an atom or a bond.
type flipper struct {
	atom int
	bond int
}

func (f flipper) set(m *molecule.Molecule, on bool) {
	if f.atom >= 0 {
		if on {
			m.Atom(f.atom).Chiral = molecule.ChiralCW
		} else {
			m.Atom(f.atom).Chiral = molecule.ChiralCCW
		}
		return
	}
	b := m.Bond(f.bond)
	b.StereoAtoms = [2]int{firstHeavyNeighbor(m, b.Begin, b.End), firstHeavyNeighbor(m, b.End, b.Begin)}
	if on {
		b.Stereo = molecule.StereoCis
	} else {
		b.Stereo = molecule.StereoTrans
	}
}

// CountStereoUnits returns how many atoms and double bonds Enumerate would
// explore for m under opts.
func CountStereoUnits(m *molecule.Molecule, opts Options) int {
	return len(flippers(m, perceive(m), opts))
}

func flippers(m *molecule.Molecule, u units, opts Options) []flipper {
	var out []flipper
	for _, a := range u.atoms {
		if opts.OnlyUnassigned && m.Atom(a).Chiral != molecule.ChiralUnspecified {
			continue
		}
		out = append(out, flipper{atom: a, bond: -1})
	}
	for _, bi := range u.bonds {
		if opts.OnlyUnassigned && m.Bond(bi).Stereo != molecule.StereoNone {
			continue
		}
		out = append(out, flipper{atom: -1, bond: bi})
	}
	return out
}

// Enumerate returns the stereoisomers of m. Atoms are explored before bonds
// and variant k sets unit j to CW (or cis) when bit j of k is set, so the
// order is deterministic. Tags on atoms that are not perceived as
// tetrahedral centres, such as patched allene terminals, are carried over
// unchanged. An empty result is reported as ErrCodeStereoNoIsomers.
func Enumerate(ctx context.Context, m *molecule.Molecule, opts Options) ([]*molecule.Molecule, error) {
	if m == nil || m.NumAtoms() == 0 {
		return nil, errors.New(errors.ErrCodeStereoEnumerationFailed, "empty molecule")
	}
	limit := opts.MaxIsomers
	if limit <= 0 {
		limit = 1024
	}
	u := perceive(m)
	flip := flippers(m, u, opts)
	if len(flip) > maxFlippers {
		return nil, errors.Newf(errors.ErrCodeStereoTooManyIsomers,
			"%d stereo units exceed the enumeration bound of %d", len(flip), maxFlippers)
	}

	var autos [][]int
	if opts.Unique {
		autos = m.Automorphisms()
	}
	seen := map[string]bool{}
	var out []*molecule.Molecule

	total := 1 << len(flip)
	for k := 0; k < total && len(out) < limit; k++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStereoEnumerationFailed, "enumeration cancelled")
		}
		v := m.Clone()
		for j, f := range flip {
			f.set(v, k&(1<<j) != 0)
		}
		if opts.Unique {
			key := u.canonicalKey(v, autos)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		if opts.TryEmbedding && opts.Embedder != nil && !opts.Embedder.Embeddable(ctx, v) {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeStereoNoIsomers, "no stereoisomer could be generated")
	}
	return out, nil
}

// canonicalKey encodes the configuration of every perceived unit relative to
// index-ordered neighbours and returns the smallest encoding over the graph
// automorphisms. Two variants share a key exactly when some symmetry of the
// graph maps one onto the other.
func (u units) canonicalKey(v *molecule.Molecule, autos [][]int) string {
	if len(autos) == 0 {
		autos = [][]int{identity(v.NumAtoms())}
	}
	best := ""
	for k, p := range autos {
		key := u.imageKey(v, p)
		if k == 0 || key < best {
			best = key
		}
	}
	return best
}

func identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// imageKey encodes the variant obtained by relabelling v with p.
func (u units) imageKey(v *molecule.Molecule, p []int) string {
	inv := make([]int, len(p))
	for i, x := range p {
		inv[x] = i
	}
	mapAtom := func(a int) int {
		if a == molecule.ImplicitH {
			return a
		}
		return inv[a]
	}

	var sb strings.Builder
	for _, c := range u.atoms {
		a := inv[c]
		tag := v.Atom(a).Chiral
		if tag == molecule.ChiralUnspecified {
			sb.WriteByte('0')
			continue
		}
		// neighbours of c in index order, H first, pulled back onto a
		seq := sortedNeighbors(v, c)
		for i := range seq {
			seq[i] = mapAtom(seq[i])
		}
		ref := v.ReferenceOrder(a)
		if len(ref) == len(seq) && molecule.PermutationParity(ref, seq) == 1 {
			tag = tag.Invert()
		}
		if tag == molecule.ChiralCW {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('-')
		}
	}
	sb.WriteByte('|')
	for _, bc := range u.bonds {
		img := v.Bond(bc)
		c1, c2 := img.Begin, img.End
		r1 := firstHeavyNeighbor(v, c1, c2)
		r2 := firstHeavyNeighbor(v, c2, c1)
		a1, a2 := inv[c1], inv[c2]
		ba := v.BondBetween(a1, a2)
		if ba < 0 {
			sb.WriteByte('?')
			continue
		}
		b := v.Bond(ba)
		s := b.Stereo
		if s == molecule.StereoNone {
			sb.WriteByte('0')
			continue
		}
		q1, q2 := inv[r1], inv[r2]
		if b.Begin != a1 {
			q1, q2 = q2, q1
		}
		if q1 != b.StereoAtoms[0] {
			s = s.Flip()
		}
		if q2 != b.StereoAtoms[1] {
			s = s.Flip()
		}
		if s == molecule.StereoCis {
			sb.WriteByte('c')
		} else {
			sb.WriteByte('t')
		}
	}
	return sb.String()
}

// sortedNeighbors returns the reference-style neighbour list of atom c with
// explicit neighbours in ascending index order.
func sortedNeighbors(m *molecule.Molecule, c int) []int {
	nbrs := m.Neighbors(c)
	sort.Ints(nbrs)
	if m.Atom(c).HCount == 1 {
		return append([]int{molecule.ImplicitH}, nbrs...)
	}
	return nbrs
}

//Personal.AI order the ending
