package planning

import (
	"sort"
	"strings"
)

// SortAssignments orders by window start, then id, so repeated queries are
// deterministic and diffable.
func SortAssignments(as []Assignment) {
	sort.SliceStable(as, func(i, j int) bool {
		if !as[i].Window.Start.Equal(as[j].Window.Start) {
			return as[i].Window.Start.Before(as[j].Window.Start)
		}
		return as[i].ID < as[j].ID
	})
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsKind(list []ResourceKind, k ResourceKind) bool {
	for _, v := range list {
		if v == k {
			return true
		}
	}
	return false
}

func containsSite(list []SiteID, id SiteID) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func matchesSearch(a Assignment, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.Title), needle) ||
		strings.Contains(strings.ToLower(a.Notes), needle)
}
