// Package graph derives graph snapshots from event log rows.
package graph

import (
	"fmt"
	"strconv"

	"github.com/tjfontaine/dagview/internal/core/domain"
)

// itemSuffixLen is how many trailing characters of an item id are shown.
const itemSuffixLen = 4

// Project maps one row to its node and, when the row has a parent, the
// edge from that parent. It never fails: missing optional fields degrade
// to empty text.
func Project(row domain.EventRow) (domain.GraphNode, *domain.GraphEdge) {
	id := FormatID(row.EventID)
	node := domain.GraphNode{
		ID:    id,
		Label: Label(row),
	}

	if !row.ParentID.Valid {
		return node, nil
	}
	return node, &domain.GraphEdge{
		Source: FormatID(row.ParentID.ID),
		Target: id,
	}
}

// Label renders "<itemSuffix>: [<type>, <value>]".
func Label(row domain.EventRow) string {
	return fmt.Sprintf("%s: [%s, %s]", itemSuffix(row.ItemID), row.Type, FormatValue(row.Value))
}

// FormatID renders an event id in decimal, exact over the whole int64 range.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// FormatValue renders an opaque payload for display.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func itemSuffix(itemID string) string {
	r := []rune(itemID)
	if len(r) <= itemSuffixLen {
		return itemID
	}
	return string(r[len(r)-itemSuffixLen:])
}
