package utils

import "sort"

// SortByPriority orders items stably: those whose key appears in priority come first, in
// priority order; the rest keep their relative input order after them.
func SortByPriority[T any](items []T, key func(T) string, priority []string) {
	rank := make(map[string]int, len(priority))
	for i, p := range priority {
		rank[p] = i
	}
	pos := func(item T) int {
		if r, ok := rank[key(item)]; ok {
			return r
		}
		return len(priority)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return pos(items[i]) < pos(items[j])
	})
}
