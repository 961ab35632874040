package planning

import (
	"fmt"
	"sort"
)

// PieceMetadata is the static description of a piece type.
type PieceMetadata struct {
	Type          PieceType   `json:"type"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Icon          string      `json:"icon"`
	Order         int         `json:"order"`
	Prerequisites []PieceType `json:"prerequisites"`
}

var pieceMetadata = map[PieceType]PieceMetadata{
	PiecePurpose: {
		Type:          PiecePurpose,
		Title:         "Purpose & Vision",
		Description:   "Define why your product exists and what problem it solves",
		Icon:          "🎯",
		Order:         1,
		Prerequisites: nil,
	},
	PieceCustomers: {
		Type:          PieceCustomers,
		Title:         "Target Customers",
		Description:   "Identify who will use and benefit from your product",
		Icon:          "👥",
		Order:         2,
		Prerequisites: []PieceType{PiecePurpose},
	},
	PieceBoundaries: {
		Type:          PieceBoundaries,
		Title:         "Scope & Boundaries",
		Description:   "Clarify what your product will and will not do",
		Icon:          "🔲",
		Order:         3,
		Prerequisites: []PieceType{PiecePurpose, PieceCustomers},
	},
	PieceFeatures: {
		Type:          PieceFeatures,
		Title:         "Core Features",
		Description:   "Define the key capabilities your product needs",
		Icon:          "⚡",
		Order:         4,
		Prerequisites: []PieceType{PiecePurpose, PieceCustomers, PieceBoundaries},
	},
	PieceMVP: {
		Type:          PieceMVP,
		Title:         "MVP Definition",
		Description:   "Determine the minimum viable version to launch",
		Icon:          "🚀",
		Order:         5,
		Prerequisites: []PieceType{PiecePurpose, PieceCustomers, PieceBoundaries, PieceFeatures},
	},
}

// orderedTypes is filled once at init and never mutated.
var orderedTypes []PieceType

func init() {
	if err := validateMetadata(pieceMetadata); err != nil {
		panic(fmt.Sprintf("planning: invalid piece metadata: %v", err))
	}
	orderedTypes = make([]PieceType, 0, len(pieceMetadata))
	for t := range pieceMetadata {
		orderedTypes = append(orderedTypes, t)
	}
	sort.Slice(orderedTypes, func(i, j int) bool {
		return pieceMetadata[orderedTypes[i]].Order < pieceMetadata[orderedTypes[j]].Order
	})
}

// AllPieceTypes returns every piece type in display order.
func AllPieceTypes() []PieceType {
	out := make([]PieceType, len(orderedTypes))
	copy(out, orderedTypes)
	return out
}

// Metadata returns a copy of the metadata for t.
func Metadata(t PieceType) (PieceMetadata, bool) {
	m, ok := pieceMetadata[t]
	if !ok {
		return PieceMetadata{}, false
	}
	return m.clone(), true
}

// AllMetadata returns copies of every entry in display order.
func AllMetadata() []PieceMetadata {
	out := make([]PieceMetadata, 0, len(orderedTypes))
	for _, t := range orderedTypes {
		out = append(out, pieceMetadata[t].clone())
	}
	return out
}

// Prerequisites returns a copy of t's prerequisite list.
func Prerequisites(t PieceType) []PieceType {
	m, ok := pieceMetadata[t]
	if !ok {
		return nil
	}
	return m.clone().Prerequisites
}

func (m PieceMetadata) clone() PieceMetadata {
	out := m
	if m.Prerequisites != nil {
		out.Prerequisites = append([]PieceType(nil), m.Prerequisites...)
	} else {
		out.Prerequisites = []PieceType{}
	}
	return out
}

// validateMetadata checks that the prerequisite relation is a DAG whose only
// topological order matches the declared display order, and that the final
// piece requires every other piece.
func validateMetadata(md map[PieceType]PieceMetadata) error {
	if len(md) == 0 {
		return fmt.Errorf("empty metadata")
	}
	byOrder := make(map[int]PieceType, len(md))
	for t, m := range md {
		if m.Type != t {
			return fmt.Errorf("%s: type field mismatch %q", t, m.Type)
		}
		if other, dup := byOrder[m.Order]; dup {
			return fmt.Errorf("%s and %s share order %d", t, other, m.Order)
		}
		byOrder[m.Order] = t
		seen := map[PieceType]bool{}
		for _, p := range m.Prerequisites {
			pm, ok := md[p]
			if !ok {
				return fmt.Errorf("%s: unknown prerequisite %q", t, p)
			}
			if seen[p] {
				return fmt.Errorf("%s: duplicate prerequisite %q", t, p)
			}
			seen[p] = true
			// Every edge points to a strictly earlier piece, so no cycle exists.
			if pm.Order >= m.Order {
				return fmt.Errorf("%s: prerequisite %s does not precede it", t, p)
			}
		}
	}

	// The order is the unique topological order iff each consecutive pair is
	// joined by an edge.
	orders := make([]int, 0, len(byOrder))
	for o := range byOrder {
		orders = append(orders, o)
	}
	sort.Ints(orders)
	for i := 1; i < len(orders); i++ {
		prev, cur := byOrder[orders[i-1]], byOrder[orders[i]]
		if !containsType(md[cur].Prerequisites, prev) {
			return fmt.Errorf("%s does not depend on %s; display order is ambiguous", cur, prev)
		}
	}

	last := md[byOrder[orders[len(orders)-1]]]
	if len(last.Prerequisites) != len(md)-1 {
		return fmt.Errorf("%s must require every other piece", last.Type)
	}
	return nil
}

func containsType(list []PieceType, t PieceType) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}
