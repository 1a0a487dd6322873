package core

import (
	"strings"

	"github.com/jmylchreest/rlxui/internal/model"
)

// LookupRecord finds a record by its key.
// Returns nil if not found.
func LookupRecord(records []Record, key string) *Record {
	for i := range records {
		if records[i].Key == key {
			return &records[i]
		}
	}
	return nil
}

// IndexOf returns the position of the record with the given key, or -1.
func IndexOf(records []Record, key string) int {
	for i := range records {
		if records[i].Key == key {
			return i
		}
	}
	return -1
}

// LookupGroup finds a group by id, or by 1-based index when input is numeric.
// Returns nil if not found.
func LookupGroup(groups []model.Group, input string) *model.Group {
	for i := range groups {
		if groups[i].ID == input {
			return &groups[i]
		}
	}

	idx := 0
	for _, r := range input {
		if r < '0' || r > '9' {
			return nil
		}
		idx = idx*10 + int(r-'0')
		if idx > len(groups) {
			return nil
		}
	}
	if idx < 1 || idx > len(groups) {
		return nil
	}
	return &groups[idx-1]
}

// SearchRecords finds records whose title, body or section items contain
// term. Case-insensitive substring match; order is preserved.
func SearchRecords(records []Record, term string) []Record {
	if term == "" {
		return records
	}

	term = strings.ToLower(term)
	var result []Record

	for _, r := range records {
		if recordContains(r, term) {
			result = append(result, r)
		}
	}

	return result
}

func recordContains(r Record, term string) bool {
	if strings.Contains(strings.ToLower(r.Title), term) ||
		strings.Contains(strings.ToLower(r.Body), term) {
		return true
	}
	for _, s := range r.Sections {
		for _, item := range s.Items {
			if strings.Contains(strings.ToLower(item), term) {
				return true
			}
		}
	}
	return false
}
