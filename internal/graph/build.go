package graph

import (
	"github.com/tjfontaine/dagview/internal/core/domain"
)

// Build assembles a snapshot from the full current row set: the synthetic
// root followed by one node per row, and one edge per row with a parent,
// all in input order. Rows are not deduplicated; event ids must be unique
// in the source data.
func Build(rows []domain.EventRow) domain.Snapshot {
	snap := domain.Snapshot{
		Nodes: make([]domain.GraphNode, 0, len(rows)+1),
		Edges: make([]domain.GraphEdge, 0, len(rows)),
	}
	snap.Nodes = append(snap.Nodes, domain.RootNode())

	for _, row := range rows {
		node, edge := Project(row)
		snap.Nodes = append(snap.Nodes, node)
		if edge != nil {
			snap.Edges = append(snap.Edges, *edge)
		}
	}

	return snap
}
