package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// groupIDPattern is the identifier rule enforced by the service.
var groupIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrInvalidGroupID is returned for identifiers outside [A-Za-z0-9_-]+.
var ErrInvalidGroupID = errors.New("invalid group id: use only letters, digits, '-' and '_'")

// ValidateGroupID checks a group identifier before it is sent anywhere.
func ValidateGroupID(id string) error {
	if !groupIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidGroupID, id)
	}
	return nil
}

// Group is a named conversation the log and metrics are scoped to.
type Group struct {
	ID              string    `json:"group_id" yaml:"group_id"`
	LastModified    time.Time `json:"last_modified" yaml:"last_modified"`
	HasRecentAlerts bool      `json:"has_recent_alerts" yaml:"has_recent_alerts"`
}

// UnmarshalJSON accepts the service's ISO-8601 timestamps, naive or zoned.
func (g *Group) UnmarshalJSON(data []byte) error {
	var w struct {
		ID              string `json:"group_id"`
		LastModified    string `json:"last_modified"`
		HasRecentAlerts bool   `json:"has_recent_alerts"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	g.ID = w.ID
	g.HasRecentAlerts = w.HasRecentAlerts
	g.LastModified = time.Time{}
	if w.LastModified != "" {
		ts, err := ParseTimestamp(w.LastModified)
		if err != nil {
			return fmt.Errorf("group %s: %w", w.ID, err)
		}
		g.LastModified = ts
	}
	return nil
}
