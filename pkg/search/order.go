package search

import "strings"

// OrderClause is the global result ordering. Compare implements the same
// ordering in Go; the two must stay in sync.
//
// search_type and object_id only break ties between rows that share priority,
// rank and sort key, which keeps pages stable across requests.
const OrderClause = "priority ASC, rank DESC NULLS LAST, sort_key ASC, search_type ASC, object_id ASC"

// Compare orders rows by priority ascending, rank descending with missing
// ranks last, sort key ascending, then type and object id.
func Compare(a, b Row) int {
	if a.Priority != b.Priority {
		if a.Priority < b.Priority {
			return -1
		}
		return 1
	}

	switch {
	case a.Rank == nil && b.Rank != nil:
		return 1
	case a.Rank != nil && b.Rank == nil:
		return -1
	case a.Rank != nil && b.Rank != nil && *a.Rank != *b.Rank:
		if *a.Rank > *b.Rank {
			return -1
		}
		return 1
	}

	if a.SortKey != b.SortKey {
		if a.SortKey < b.SortKey {
			return -1
		}
		return 1
	}

	if c := strings.Compare(a.SearchType, b.SearchType); c != 0 {
		return c
	}
	return strings.Compare(a.ObjectID, b.ObjectID)
}

// Less reports whether a sorts before b.
func Less(a, b Row) bool {
	return Compare(a, b) < 0
}
