package layout

import (
	"errors"
	"testing"

	"github.com/tjfontaine/dagview/internal/core/domain"
)

func chain(ids ...string) domain.Snapshot {
	var snap domain.Snapshot
	for i, id := range ids {
		snap.Nodes = append(snap.Nodes, domain.GraphNode{ID: id, Label: id})
		if i > 0 {
			snap.Edges = append(snap.Edges, domain.GraphEdge{Source: ids[i-1], Target: id})
		}
	}
	return snap
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("dagre", Layered{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register("grid", Grid{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("duplicate", func(t *testing.T) {
		if err := reg.Register("dagre", Layered{}); err == nil {
			t.Error("Register() duplicate error = nil")
		}
	})

	t.Run("empty name", func(t *testing.T) {
		if err := reg.Register("", Grid{}); err == nil {
			t.Error("Register() empty name error = nil")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := reg.Lookup("cose")
		if !errors.Is(err, domain.ErrUnknownLayout) {
			t.Errorf("Lookup() error = %v, want ErrUnknownLayout", err)
		}
	})

	t.Run("names sorted", func(t *testing.T) {
		names := reg.Names()
		if len(names) != 2 || names[0] != "dagre" || names[1] != "grid" {
			t.Errorf("Names() = %v", names)
		}
	})
}

func TestLayered_ChildrenBelowParents(t *testing.T) {
	snap := domain.Snapshot{
		Nodes: []domain.GraphNode{
			domain.RootNode(),
			{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"},
		},
		Edges: []domain.GraphEdge{
			{Source: "1", Target: "2"},
			{Source: "1", Target: "3"},
			{Source: "3", Target: "4"},
			{Source: "2", Target: "4"},
		},
	}

	pos := Layered{}.Place(snap)

	if len(pos) != len(snap.Nodes) {
		t.Fatalf("positions = %d, want %d", len(pos), len(snap.Nodes))
	}
	for _, e := range snap.Edges {
		if pos[e.Source].Y >= pos[e.Target].Y {
			t.Errorf("edge %s->%s: source y=%v not above target y=%v",
				e.Source, e.Target, pos[e.Source].Y, pos[e.Target].Y)
		}
	}

	// 4 is reached by the longer path 1->3->4 as well, so it sits on rank 2.
	if pos["4"].Y != 2*defaultRankSep {
		t.Errorf("node 4 y = %v, want %v", pos["4"].Y, 2*defaultRankSep)
	}
}

func TestLayered_RanksCentered(t *testing.T) {
	snap := domain.Snapshot{
		Nodes: []domain.GraphNode{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}

	pos := Layered{NodeSep: 10}.Place(snap)

	if pos["a"].X != -10 || pos["b"].X != 0 || pos["c"].X != 10 {
		t.Errorf("x positions = %v %v %v, want -10 0 10", pos["a"].X, pos["b"].X, pos["c"].X)
	}
}

func TestLayered_ToleratesDanglingEdgesAndCycles(t *testing.T) {
	snap := chain("a", "b", "c")
	snap.Edges = append(snap.Edges,
		domain.GraphEdge{Source: "missing", Target: "a"},
		domain.GraphEdge{Source: "c", Target: "b"},
	)

	pos := Layered{}.Place(snap)

	if len(pos) != 3 {
		t.Fatalf("positions = %d, want 3", len(pos))
	}
	if pos["a"].Y != 0 {
		t.Errorf("source a y = %v, want 0", pos["a"].Y)
	}
}

func TestLayered_Empty(t *testing.T) {
	if pos := (Layered{}).Place(domain.Snapshot{}); len(pos) != 0 {
		t.Errorf("positions = %v, want none", pos)
	}
}

func TestGrid(t *testing.T) {
	snap := chain("a", "b", "c", "d", "e")

	pos := Grid{Spacing: 10}.Place(snap)

	want := map[string]Point{
		"a": {0, 0}, "b": {10, 0}, "c": {20, 0},
		"d": {0, 10}, "e": {10, 10},
	}
	for id, p := range want {
		if pos[id] != p {
			t.Errorf("pos[%s] = %v, want %v", id, pos[id], p)
		}
	}

	lo, hi := pos.Bounds()
	if lo != (Point{0, 0}) || hi != (Point{20, 10}) {
		t.Errorf("Bounds() = %v %v", lo, hi)
	}
}
