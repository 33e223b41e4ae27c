package molecule

import (
	"sort"
)

// Match maps each pattern atom, in pattern order, to a host atom index.
type Match []int

// MatchOptions tunes SubstructMatches.
type MatchOptions struct {
	// Uniquify drops matches covering the same atom set as an earlier one.
	Uniquify bool
	// NonOverlapping keeps a match only when it shares no atom with a match
	// kept before it.
	NonOverlapping bool
	// MaxMatches stops the search once reached. Zero means unlimited.
	MaxMatches int
}

// AllenePattern is the C=C=C query used to locate axial stereo units. Match
// positions 0 and 2 are the terminal carbons, position 1 the central one.
var AllenePattern = MustParseSMILES("C=C=C")

// SubstructMatches returns the matches of pattern in m. Pattern atoms match
// on element and aromaticity, pattern bonds on order. Matches are reported in
// order of their first host atom.
func (m *Molecule) SubstructMatches(pattern *Molecule, opts MatchOptions) []Match {
	if pattern == nil || len(pattern.Atoms) == 0 || len(pattern.Atoms) > len(m.Atoms) {
		return nil
	}
	n := len(pattern.Atoms)
	mapping := make([]int, n)
	used := make([]bool, len(m.Atoms))
	var out []Match
	seen := map[string]bool{}
	taken := make([]bool, len(m.Atoms))
	done := false

	var extend func(k int)
	extend = func(k int) {
		if done {
			return
		}
		if k == n {
			match := append(Match(nil), mapping...)
			if opts.Uniquify || opts.NonOverlapping {
				key := match.key()
				if seen[key] {
					return
				}
				seen[key] = true
			}
			if opts.NonOverlapping {
				for _, a := range match {
					if taken[a] {
						return
					}
				}
				for _, a := range match {
					taken[a] = true
				}
			}
			out = append(out, match)
			if opts.MaxMatches > 0 && len(out) >= opts.MaxMatches {
				done = true
			}
			return
		}
		for _, cand := range m.candidates(pattern, mapping, k) {
			if used[cand] || !atomsMatch(&pattern.Atoms[k], &m.Atoms[cand]) {
				continue
			}
			if !m.bondsMatch(pattern, mapping, k, cand) {
				continue
			}
			used[cand] = true
			mapping[k] = cand
			extend(k + 1)
			used[cand] = false
			if done {
				return
			}
		}
	}
	extend(0)
	return out
}

// HasSubstructMatch reports whether pattern occurs in m at least once.
func (m *Molecule) HasSubstructMatch(pattern *Molecule) bool {
	return len(m.SubstructMatches(pattern, MatchOptions{MaxMatches: 1})) > 0
}

// candidates returns the host atoms worth trying for pattern atom k: the
// neighbours of an already mapped pattern neighbour, or every atom.
func (m *Molecule) candidates(pattern *Molecule, mapping []int, k int) []int {
	for _, pn := range pattern.Neighbors(k) {
		if pn < k {
			return m.Neighbors(mapping[pn])
		}
	}
	all := make([]int, len(m.Atoms))
	for i := range all {
		all[i] = i
	}
	return all
}

func (m *Molecule) bondsMatch(pattern *Molecule, mapping []int, k, cand int) bool {
	for _, pbi := range pattern.Atoms[k].Bonds {
		pb := &pattern.Bonds[pbi]
		pn := pb.Other(k)
		if pn >= k {
			continue
		}
		hbi := m.BondBetween(mapping[pn], cand)
		if hbi < 0 || m.Bonds[hbi].Order != pb.Order {
			return false
		}
	}
	return true
}

func atomsMatch(p, h *Atom) bool {
	return p.Symbol == h.Symbol && p.Aromatic == h.Aromatic
}

func (mt Match) key() string {
	s := append([]int(nil), mt...)
	sort.Ints(s)
	return ringKey(s)
}

// AlleneMatches returns the non-overlapping C=C=C matches of m.
func (m *Molecule) AlleneMatches() []Match {
	return m.SubstructMatches(AllenePattern, MatchOptions{Uniquify: true, NonOverlapping: true})
}

//Personal.AI order the ending
