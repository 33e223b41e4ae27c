package molecule

import (
	"fmt"
	"sort"
	"strings"
)

// MaxAutomorphisms bounds the automorphism search.
const MaxAutomorphisms = 2048

// SymmetryClasses partitions atoms into constitutionally equivalent classes by
// iterative refinement of atom invariants over neighbour classes. Two atoms in
// the same class are interchangeable in the graph; stereo tags are ignored.
func (m *Molecule) SymmetryClasses() []int {
	n := len(m.Atoms)
	keys := make([]string, n)
	for i := range m.Atoms {
		a := &m.Atoms[i]
		ring := 0
		if m.IsRingAtom(i) {
			ring = 1
		}
		keys[i] = fmt.Sprintf("%03d|%d|%d|%t|%d|%d|%d",
			a.AtomicNumber(), a.Isotope, a.Charge, a.Aromatic, len(a.Bonds), a.HCount, ring)
	}
	ranks := ranksFromKeys(keys)
	classes := countDistinct(ranks)

	for iter := 0; iter < n+1; iter++ {
		for i := range m.Atoms {
			var parts []string
			for _, bi := range m.Atoms[i].Bonds {
				b := &m.Bonds[bi]
				parts = append(parts, fmt.Sprintf("%06d:%d", ranks[b.Other(i)], b.Order))
			}
			sort.Strings(parts)
			keys[i] = fmt.Sprintf("%06d|%s", ranks[i], strings.Join(parts, ","))
		}
		next := ranksFromKeys(keys)
		nc := countDistinct(next)
		ranks = next
		if nc == classes {
			break
		}
		classes = nc
	}
	return ranks
}

func ranksFromKeys(keys []string) []int {
	uniq := append([]string(nil), keys...)
	sort.Strings(uniq)
	pos := map[string]int{}
	r := 0
	for i, k := range uniq {
		if i > 0 && k == uniq[i-1] {
			continue
		}
		pos[k] = r
		r++
	}
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = pos[k]
	}
	return out
}

func countDistinct(v []int) int {
	seen := map[int]bool{}
	for _, x := range v {
		seen[x] = true
	}
	return len(seen)
}

// Automorphisms returns permutations p of the atom indices that preserve
// element, charge, H count and bonds (p[i] is the image of atom i). The
// identity is always first. The search stops after MaxAutomorphisms.
func (m *Molecule) Automorphisms() [][]int {
	n := len(m.Atoms)
	classes := m.SymmetryClasses()

	order := m.traversalOrder()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = -1
	}
	used := make([]bool, n)

	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}
	out := [][]int{identity}

	var search func(k int)
	search = func(k int) {
		if len(out) >= MaxAutomorphisms {
			return
		}
		if k == n {
			for i := range perm {
				if perm[i] != i {
					out = append(out, append([]int(nil), perm...))
					return
				}
			}
			return
		}
		a := order[k]
		cands := m.automorphismCandidates(a, perm)
		for _, c := range cands {
			if used[c] || classes[c] != classes[a] {
				continue
			}
			if !m.edgesPreserved(a, c, perm) {
				continue
			}
			perm[a] = c
			used[c] = true
			search(k + 1)
			perm[a] = -1
			used[c] = false
			if len(out) >= MaxAutomorphisms {
				return
			}
		}
	}
	search(0)
	return out
}

func (m *Molecule) automorphismCandidates(a int, perm []int) []int {
	for _, nb := range m.Neighbors(a) {
		if perm[nb] >= 0 {
			return m.Neighbors(perm[nb])
		}
	}
	all := make([]int, len(m.Atoms))
	for i := range all {
		all[i] = i
	}
	return all
}

func (m *Molecule) edgesPreserved(a, c int, perm []int) bool {
	for _, bi := range m.Atoms[a].Bonds {
		b := &m.Bonds[bi]
		nb := b.Other(a)
		if perm[nb] < 0 {
			continue
		}
		hb := m.BondBetween(c, perm[nb])
		if hb < 0 || m.Bonds[hb].Order != b.Order {
			return false
		}
	}
	return true
}

// traversalOrder lists atoms fragment by fragment in breadth-first order so
// that every atom after a fragment's first has a visited neighbour.
func (m *Molecule) traversalOrder() []int {
	visited := make([]bool, len(m.Atoms))
	var order []int
	for s := range m.Atoms {
		if visited[s] {
			continue
		}
		visited[s] = true
		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			order = append(order, v)
			for _, w := range m.Neighbors(v) {
				if !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
	}
	return order
}

//Personal.AI order the ending
