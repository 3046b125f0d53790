package domain

// RootID is the identifier and label of the synthetic root node. It can
// never collide with an event node because event ids are decimal integers.
const RootID = "ROOT"

// GraphNode is a node descriptor handed to a rendering engine.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// GraphEdge is a directed edge from a parent event to its child.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Snapshot is the complete graph derived from one row set. It is a value:
// rebuilt in full on every refresh and never patched.
type Snapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// RootNode returns the synthetic root node.
func RootNode() GraphNode {
	return GraphNode{ID: RootID, Label: RootID}
}

// Equivalent reports whether s and other hold the same nodes and edges,
// ignoring order. Duplicates are counted.
func (s Snapshot) Equivalent(other Snapshot) bool {
	if len(s.Nodes) != len(other.Nodes) || len(s.Edges) != len(other.Edges) {
		return false
	}

	nodes := make(map[GraphNode]int, len(s.Nodes))
	for _, n := range s.Nodes {
		nodes[n]++
	}
	for _, n := range other.Nodes {
		if nodes[n] == 0 {
			return false
		}
		nodes[n]--
	}

	edges := make(map[GraphEdge]int, len(s.Edges))
	for _, e := range s.Edges {
		edges[e]++
	}
	for _, e := range other.Edges {
		if edges[e] == 0 {
			return false
		}
		edges[e]--
	}

	return true
}

// Node looks up a node by id.
func (s Snapshot) Node(id string) (GraphNode, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}
