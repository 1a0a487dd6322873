package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/rlxui/internal/model"
)

// Affective history window limits accepted by the service.
const (
	MinHistoryHours     = 1
	MaxHistoryHours     = 168
	DefaultHistoryHours = 24
)

// GroupFilter specifies criteria for filtering the group list.
type GroupFilter struct {
	Since      time.Duration // Only groups modified within this window (0=all)
	AlertsOnly bool          // Only groups flagged with recent alerts
	Limit      int           // Maximum results (0=unlimited)
}

// FilterGroups returns the groups matching the filter, preserving order.
func FilterGroups(groups []model.Group, f GroupFilter, now time.Time) []model.Group {
	result := make([]model.Group, 0, len(groups))

	for _, g := range groups {
		if f.Since > 0 && g.LastModified.Before(now.Add(-f.Since)) {
			continue
		}
		if f.AlertsOnly && !g.HasRecentAlerts {
			continue
		}
		result = append(result, g)
	}

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}

	return result
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	// Special case: 0 means no filter (all time)
	if s == "0" || s == "" {
		return 0, nil
	}

	// Handle day suffix (7d -> 168h)
	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Handle week suffix (1w -> 168h)
	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	// Standard Go duration parsing
	return time.ParseDuration(s)
}

// HistoryHours converts a window to whole hours for the affective history
// endpoint. Zero selects the default; values outside the accepted range are
// rejected rather than clamped.
func HistoryHours(d time.Duration) (int, error) {
	if d == 0 {
		return DefaultHistoryHours, nil
	}
	hours := int(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	if hours < MinHistoryHours || hours > MaxHistoryHours {
		return 0, fmt.Errorf("history window must be between %dh and %dh, got %s",
			MinHistoryHours, MaxHistoryHours, d)
	}
	return hours, nil
}
