package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/rlxui/internal/model"
)

// SortField represents a field to sort groups by.
type SortField string

const (
	SortByName     SortField = "name"
	SortByModified SortField = "modified"
	SortByAlerts   SortField = "alerts"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField // Field to sort by
	Order SortOrder // Sort order (asc/desc)
}

// DefaultSortOptions returns default sort options (most recently active first).
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByModified,
		Order: SortDesc,
	}
}

// SortGroups sorts groups in place based on the provided options.
// Ties keep the server's order.
func SortGroups(groups []model.Group, opts SortOptions) {
	if len(groups) == 0 {
		return
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]

		var less, equal bool
		switch opts.Field {
		case SortByName:
			an, bn := strings.ToLower(a.ID), strings.ToLower(b.ID)
			less, equal = an < bn, an == bn
		case SortByAlerts:
			less, equal = !a.HasRecentAlerts && b.HasRecentAlerts, a.HasRecentAlerts == b.HasRecentAlerts
		default:
			less, equal = a.LastModified.Before(b.LastModified), a.LastModified.Equal(b.LastModified)
		}

		if equal {
			return false
		}
		if opts.Order == SortDesc {
			return !less
		}
		return less
	})
}

// ParseSortField parses a sort field string. An empty string selects the
// default field.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "id", "n":
		return SortByName, nil
	case "alerts", "alert", "a":
		return SortByAlerts, nil
	case "modified", "mod", "m", "":
		return SortByModified, nil
	default:
		return SortByModified, fmt.Errorf("invalid sort field: %q", s)
	}
}

// ParseSortOrder parses a sort order string. An empty string selects
// descending order.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc, nil
	case "desc", "descending", "d", "":
		return SortDesc, nil
	default:
		return SortDesc, fmt.Errorf("invalid sort order: %q", s)
	}
}
