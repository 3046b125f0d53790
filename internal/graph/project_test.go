package graph

import (
	"testing"

	"github.com/tjfontaine/dagview/internal/core/domain"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name     string
		row      domain.EventRow
		wantNode domain.GraphNode
		wantEdge *domain.GraphEdge
	}{
		{
			name:     "item suffix and payload",
			row:      domain.EventRow{EventID: 123, ItemID: "9876543210", Type: domain.EventCreate, Value: "x"},
			wantNode: domain.GraphNode{ID: "123", Label: "3210: [create, x]"},
		},
		{
			name:     "missing item id",
			row:      domain.EventRow{EventID: 123, Type: domain.EventCreate, Value: "x"},
			wantNode: domain.GraphNode{ID: "123", Label: ": [create, x]"},
		},
		{
			name:     "short item id unchanged",
			row:      domain.EventRow{EventID: 7, ItemID: "ab", Type: domain.EventUpdate, Value: int64(3)},
			wantNode: domain.GraphNode{ID: "7", Label: "ab: [update, 3]"},
		},
		{
			name:     "no parent means no edge",
			row:      domain.EventRow{EventID: 5, ParentID: domain.Root(), Type: domain.EventCreate, Value: "y"},
			wantNode: domain.GraphNode{ID: "5", Label: ": [create, y]"},
		},
		{
			name:     "parent edge",
			row:      domain.EventRow{EventID: 6, ParentID: domain.Parent(5), ItemID: "item-0042", Type: domain.EventDelete, Value: nil},
			wantNode: domain.GraphNode{ID: "6", Label: "0042: [delete, null]"},
			wantEdge: &domain.GraphEdge{Source: "5", Target: "6"},
		},
		{
			name:     "zero parent is still a parent",
			row:      domain.EventRow{EventID: 1, ParentID: domain.Parent(0), Type: domain.EventCreate, Value: "z"},
			wantNode: domain.GraphNode{ID: "1", Label: ": [create, z]"},
			wantEdge: &domain.GraphEdge{Source: "0", Target: "1"},
		},
		{
			name:     "ids beyond 2^53 keep every digit",
			row:      domain.EventRow{EventID: 1<<53 + 1, ParentID: domain.Parent(1<<62 + 7), Type: domain.EventCreate, Value: "big"},
			wantNode: domain.GraphNode{ID: "9007199254740993", Label: ": [create, big]"},
			wantEdge: &domain.GraphEdge{Source: "4611686018427387911", Target: "9007199254740993"},
		},
		{
			name:     "multibyte item id",
			row:      domain.EventRow{EventID: 2, ItemID: "ノードのアイテム", Type: "toggle", Value: true},
			wantNode: domain.GraphNode{ID: "2", Label: "アイテム: [toggle, true]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, edge := Project(tt.row)
			if node != tt.wantNode {
				t.Errorf("node = %+v, want %+v", node, tt.wantNode)
			}
			switch {
			case tt.wantEdge == nil && edge != nil:
				t.Errorf("edge = %+v, want none", *edge)
			case tt.wantEdge != nil && edge == nil:
				t.Errorf("edge = nil, want %+v", *tt.wantEdge)
			case tt.wantEdge != nil && *edge != *tt.wantEdge:
				t.Errorf("edge = %+v, want %+v", *edge, *tt.wantEdge)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"text", "text"},
		{[]byte("raw"), "raw"},
		{int64(-12), "-12"},
		{1.5, "1.5"},
		{false, "false"},
		{42, "42"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
