package layout

import (
	"sort"

	"github.com/tjfontaine/dagview/internal/core/domain"
)

const (
	defaultNodeSep = 80
	defaultRankSep = 80
	defaultSweeps  = 4
)

// Layered is a hierarchical layout for DAGs in the spirit of dagre: nodes
// are ranked by longest path from the sources, ordered within each rank to
// reduce crossings, and ranks are stacked top to bottom.
type Layered struct {
	// NodeSep is the horizontal distance between nodes of one rank.
	NodeSep float64
	// RankSep is the vertical distance between ranks.
	RankSep float64
	// Sweeps is the number of barycenter ordering passes.
	Sweeps int
}

// Place implements Algorithm.
func (l Layered) Place(snap domain.Snapshot) Positions {
	nodeSep, rankSep, sweeps := l.NodeSep, l.RankSep, l.Sweeps
	if nodeSep <= 0 {
		nodeSep = defaultNodeSep
	}
	if rankSep <= 0 {
		rankSep = defaultRankSep
	}
	if sweeps <= 0 {
		sweeps = defaultSweeps
	}

	ids := make([]string, 0, len(snap.Nodes))
	index := make(map[string]int, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if _, dup := index[n.ID]; dup {
			continue
		}
		index[n.ID] = len(ids)
		ids = append(ids, n.ID)
	}

	children := make([][]int, len(ids))
	parents := make([][]int, len(ids))
	indeg := make([]int, len(ids))
	for _, e := range snap.Edges {
		s, ok := index[e.Source]
		if !ok {
			continue
		}
		t, ok := index[e.Target]
		if !ok || s == t {
			continue
		}
		children[s] = append(children[s], t)
		parents[t] = append(parents[t], s)
		indeg[t]++
	}

	layers := rankLayers(children, indeg)
	order := orderLayers(layers, parents, children, sweeps)

	pos := make(Positions, len(ids))
	for r, layer := range order {
		width := float64(len(layer)-1) * nodeSep
		for i, n := range layer {
			pos[ids[n]] = Point{
				X: float64(i)*nodeSep - width/2,
				Y: float64(r) * rankSep,
			}
		}
	}
	return pos
}

// rankLayers assigns every node the length of the longest path reaching it
// from a source. Nodes stuck on a cycle go after the last rank.
func rankLayers(children [][]int, indeg []int) [][]int {
	n := len(children)
	remaining := append([]int(nil), indeg...)
	rank := make([]int, n)
	placed := make([]bool, n)

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if remaining[i] == 0 {
			queue = append(queue, i)
		}
	}

	maxRank := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		placed[u] = true
		if rank[u] > maxRank {
			maxRank = rank[u]
		}
		for _, v := range children[u] {
			if rank[u]+1 > rank[v] {
				rank[v] = rank[u] + 1
			}
			remaining[v]--
			if remaining[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	layers := make([][]int, maxRank+1)
	var cyclic []int
	for i := 0; i < n; i++ {
		if !placed[i] {
			cyclic = append(cyclic, i)
			continue
		}
		layers[rank[i]] = append(layers[rank[i]], i)
	}
	if len(cyclic) > 0 {
		layers = append(layers, cyclic)
	}
	if n == 0 {
		return nil
	}
	return layers
}

// orderLayers runs alternating down/up barycenter sweeps.
func orderLayers(layers [][]int, parents, children [][]int, sweeps int) [][]int {
	position := make(map[int]float64)
	for _, layer := range layers {
		for i, n := range layer {
			position[n] = float64(i)
		}
	}

	reorder := func(layer []int, neighbours [][]int) {
		bary := make(map[int]float64, len(layer))
		for _, n := range layer {
			if len(neighbours[n]) == 0 {
				bary[n] = position[n]
				continue
			}
			sum := 0.0
			for _, m := range neighbours[n] {
				sum += position[m]
			}
			bary[n] = sum / float64(len(neighbours[n]))
		}
		sort.SliceStable(layer, func(i, j int) bool {
			return bary[layer[i]] < bary[layer[j]]
		})
		for i, n := range layer {
			position[n] = float64(i)
		}
	}

	for s := 0; s < sweeps; s++ {
		for r := 1; r < len(layers); r++ {
			reorder(layers[r], parents)
		}
		for r := len(layers) - 2; r >= 0; r-- {
			reorder(layers[r], children)
		}
	}
	return layers
}
