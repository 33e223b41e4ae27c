package molecule

import (
	"sort"

	"github.com/dominikbraun/graph"
)

// ringInfo caches ring membership. It depends on connectivity only.
type ringInfo struct {
	// bondRing holds the size of the smallest ring through each bond, 0 for
	// chain bonds.
	bondRing []int
	// atomRing holds the size of the smallest ring through each atom.
	atomRing []int
	// rings are the distinct smallest rings in cycle order.
	rings [][]int
}

// Graph returns the molecule's connectivity as an undirected
// dominikbraun/graph keyed by atom index.
func (m *Molecule) Graph() (graph.Graph[int, int], error) {
	g := graph.New(graph.IntHash)
	for i := range m.Atoms {
		if err := g.AddVertex(i); err != nil {
			return nil, err
		}
	}
	for _, b := range m.Bonds {
		if err := g.AddEdge(b.Begin, b.End); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (m *Molecule) ringInfo() *ringInfo {
	if m.rings != nil {
		return m.rings
	}
	ri := &ringInfo{
		bondRing: make([]int, len(m.Bonds)),
		atomRing: make([]int, len(m.Atoms)),
	}
	g, err := m.Graph()
	if err != nil {
		m.rings = ri
		return ri
	}

	seen := map[string]bool{}
	for bi, b := range m.Bonds {
		if err := g.RemoveEdge(b.Begin, b.End); err != nil {
			continue
		}
		path, err := graph.ShortestPath(g, b.Begin, b.End)
		_ = g.AddEdge(b.Begin, b.End)
		if err != nil {
			// graph.ErrTargetNotReachable: chain bond
			continue
		}
		size := len(path)
		ri.bondRing[bi] = size
		for _, a := range path {
			if ri.atomRing[a] == 0 || size < ri.atomRing[a] {
				ri.atomRing[a] = size
			}
		}
		key := ringKey(path)
		if !seen[key] {
			seen[key] = true
			ri.rings = append(ri.rings, path)
		}
	}
	sort.Slice(ri.rings, func(i, j int) bool {
		if len(ri.rings[i]) != len(ri.rings[j]) {
			return len(ri.rings[i]) < len(ri.rings[j])
		}
		return ringKey(ri.rings[i]) < ringKey(ri.rings[j])
	})
	m.rings = ri
	return ri
}

func ringKey(ring []int) string {
	s := append([]int(nil), ring...)
	sort.Ints(s)
	key := make([]byte, 0, len(s)*4)
	for _, v := range s {
		key = append(key, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return string(key)
}

// Rings returns the distinct smallest rings, each in cycle order.
func (m *Molecule) Rings() [][]int {
	ri := m.ringInfo()
	out := make([][]int, len(ri.rings))
	for i, r := range ri.rings {
		out[i] = append([]int(nil), r...)
	}
	return out
}

// BondRingSize returns the size of the smallest ring containing bond bi, or 0.
func (m *Molecule) BondRingSize(bi int) int { return m.ringInfo().bondRing[bi] }

// AtomRingSize returns the size of the smallest ring containing atom i, or 0.
func (m *Molecule) AtomRingSize(i int) int { return m.ringInfo().atomRing[i] }

// IsRingBond reports whether bond bi is part of any ring.
func (m *Molecule) IsRingBond(bi int) bool { return m.ringInfo().bondRing[bi] > 0 }

// IsRingAtom reports whether atom i is part of any ring.
func (m *Molecule) IsRingAtom(i int) bool { return m.ringInfo().atomRing[i] > 0 }

// Fragments returns the connected components, each sorted, ordered by their
// lowest atom index.
func (m *Molecule) Fragments() [][]int {
	g, err := m.Graph()
	if err != nil {
		return nil
	}
	visited := make([]bool, len(m.Atoms))
	var out [][]int
	for start := range m.Atoms {
		if visited[start] {
			continue
		}
		var frag []int
		err := graph.BFS(g, start, func(v int) bool {
			visited[v] = true
			frag = append(frag, v)
			return false
		})
		if err != nil {
			return nil
		}
		sort.Ints(frag)
		out = append(out, frag)
	}
	return out
}

// DistanceMatrix returns all-pairs topological distances in bonds. Atoms in
// different fragments are at distance -1.
func (m *Molecule) DistanceMatrix() [][]int {
	n := len(m.Atoms)
	d := make([][]int, n)
	g, err := m.Graph()
	if err != nil {
		return d
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return d
	}
	for s := 0; s < n; s++ {
		row := make([]int, n)
		for i := range row {
			row[i] = -1
		}
		row[s] = 0
		queue := []int{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for w := range adj[v] {
				if row[w] < 0 {
					row[w] = row[v] + 1
					queue = append(queue, w)
				}
			}
		}
		d[s] = row
	}
	return d
}

// SideOf returns the atoms reachable from start without crossing the bond
// between start and across. It is used to reflect one half of a molecule
// about a chain double bond.
func (m *Molecule) SideOf(start, across int) []int {
	visited := map[int]bool{start: true, across: true}
	out := []int{start}
	queue := []int{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range m.Neighbors(v) {
			if visited[w] {
				continue
			}
			visited[w] = true
			out = append(out, w)
			queue = append(queue, w)
		}
	}
	return out
}

//Personal.AI order the ending
