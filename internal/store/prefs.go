package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SchemaVersion is the current preferences schema version.
const SchemaVersion = 1

// DefaultLanguage is used until the user picks one.
const DefaultLanguage = "en"

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// Errors returned by preference operations.
var (
	ErrInvalidTheme    = errors.New("invalid theme")
	ErrInvalidLanguage = errors.New("invalid language")
	ErrEmptyGroupID    = errors.New("group id cannot be empty")
)

// ParseTheme parses a theme name.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeSystem, ThemeLight, ThemeDark:
		return t, nil
	case "":
		return ThemeSystem, nil
	default:
		return "", fmt.Errorf("%w: %q (want system, light or dark)", ErrInvalidTheme, s)
	}
}

// Prefs is the persistent preference store. Absence of a last-seen entry
// means the group was never opened.
type Prefs interface {
	LastSeen(groupID string) (time.Time, bool)
	SetLastSeen(groupID string, t time.Time) error
	ForgetGroup(groupID string) error
	RenameGroup(oldID, newID string) error

	Language() string
	SetLanguage(lang string) error
	Theme() Theme
	SetTheme(t Theme) error
}

// ChangeType indicates what changed in the preferences.
type ChangeType int

const (
	// ChangeLastSeen indicates a group's last-seen mark was written.
	ChangeLastSeen ChangeType = iota
	// ChangeGroupRenamed indicates a mark moved to a new group id.
	ChangeGroupRenamed
	// ChangeGroupForgotten indicates a mark was removed.
	ChangeGroupForgotten
	// ChangeLanguage indicates the language preference changed.
	ChangeLanguage
	// ChangeTheme indicates the theme preference changed.
	ChangeTheme
	// ChangeReloaded indicates the preferences were reloaded from disk.
	ChangeReloaded
)

// ChangeEvent signals preference changes.
type ChangeEvent struct {
	Type    ChangeType
	GroupID string
}

// PrefsData is the on-disk representation of the preferences.
type PrefsData struct {
	LastSeen      map[string]time.Time `json:"last_seen"`
	Language      string               `json:"language,omitempty"`
	Theme         Theme                `json:"theme,omitempty"`
	SchemaVersion int                  `json:"schema_version"`
}

// DefaultPrefsData returns empty preferences.
func DefaultPrefsData() PrefsData {
	return PrefsData{
		LastSeen:      make(map[string]time.Time),
		Language:      DefaultLanguage,
		Theme:         ThemeSystem,
		SchemaVersion: SchemaVersion,
	}
}

func (d PrefsData) clone() PrefsData {
	c := d
	c.LastSeen = maps.Clone(d.LastSeen)
	if c.LastSeen == nil {
		c.LastSeen = make(map[string]time.Time)
	}
	return c
}

func (d PrefsData) equal(o PrefsData) bool {
	if d.Language != o.Language || d.Theme != o.Theme || len(d.LastSeen) != len(o.LastSeen) {
		return false
	}
	for k, v := range d.LastSeen {
		ov, ok := o.LastSeen[k]
		if !ok || !ov.Equal(v) {
			return false
		}
	}
	return true
}

// normalize fills defaults for fields missing from older or partial files.
func (d *PrefsData) normalize() {
	if d.LastSeen == nil {
		d.LastSeen = make(map[string]time.Time)
	}
	if d.Language == "" {
		d.Language = DefaultLanguage
	}
	if _, err := ParseTheme(string(d.Theme)); err != nil || d.Theme == "" {
		d.Theme = ThemeSystem
	}
	if d.SchemaVersion == 0 {
		d.SchemaVersion = SchemaVersion
	}
}

// prefsState holds the in-memory preferences shared by both implementations.
// Every mutation is applied to a copy, handed to save, and only committed
// once save succeeds.
type prefsState struct {
	mu          sync.RWMutex
	data        PrefsData
	save        func(PrefsData) error
	subscribers []chan ChangeEvent
}

func newPrefsState(data PrefsData, save func(PrefsData) error) *prefsState {
	data.normalize()
	return &prefsState{data: data, save: save}
}

func (s *prefsState) update(event ChangeEvent, fn func(*PrefsData)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.clone()
	fn(&next)

	if s.save != nil {
		if err := s.save(next); err != nil {
			return err
		}
	}
	s.data = next
	s.notifyChange(event)
	return nil
}

// LastSeen returns the stored mark for a group.
func (s *prefsState) LastSeen(groupID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.data.LastSeen[groupID]
	return t, ok
}

// SetLastSeen stores the mark for a group.
func (s *prefsState) SetLastSeen(groupID string, t time.Time) error {
	if groupID == "" {
		return ErrEmptyGroupID
	}
	return s.update(ChangeEvent{Type: ChangeLastSeen, GroupID: groupID}, func(d *PrefsData) {
		d.LastSeen[groupID] = t.UTC()
	})
}

// ForgetGroup removes a group's mark. Forgetting an unknown group is a no-op.
func (s *prefsState) ForgetGroup(groupID string) error {
	if _, ok := s.LastSeen(groupID); !ok {
		return nil
	}
	return s.update(ChangeEvent{Type: ChangeGroupForgotten, GroupID: groupID}, func(d *PrefsData) {
		delete(d.LastSeen, groupID)
	})
}

// RenameGroup moves a group's mark to its new id. Any mark already stored
// under newID is replaced.
func (s *prefsState) RenameGroup(oldID, newID string) error {
	if newID == "" {
		return ErrEmptyGroupID
	}
	if oldID == newID {
		return nil
	}
	if _, ok := s.LastSeen(oldID); !ok {
		return nil
	}
	return s.update(ChangeEvent{Type: ChangeGroupRenamed, GroupID: newID}, func(d *PrefsData) {
		d.LastSeen[newID] = d.LastSeen[oldID]
		delete(d.LastSeen, oldID)
	})
}

// Language returns the language preference.
func (s *prefsState) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Language
}

// SetLanguage stores the language preference (a BCP 47 style tag such as
// "en" or "es-MX").
func (s *prefsState) SetLanguage(lang string) error {
	lang = strings.TrimSpace(lang)
	if lang == "" || strings.ContainsAny(lang, " \t\n/") {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
	}
	return s.update(ChangeEvent{Type: ChangeLanguage}, func(d *PrefsData) {
		d.Language = lang
	})
}

// Theme returns the theme preference.
func (s *prefsState) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Theme
}

// SetTheme stores the theme preference.
func (s *prefsState) SetTheme(t Theme) error {
	t, err := ParseTheme(string(t))
	if err != nil {
		return err
	}
	return s.update(ChangeEvent{Type: ChangeTheme}, func(d *PrefsData) {
		d.Theme = t
	})
}

// Snapshot returns a copy of the current preferences.
func (s *prefsState) Snapshot() PrefsData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

// Subscribe returns a channel that receives change events.
func (s *prefsState) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *prefsState) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// notifyChange sends a change event to all subscribers (non-blocking).
// Callers must hold mu.
func (s *prefsState) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

// MemoryPrefs keeps preferences in memory only.
type MemoryPrefs struct {
	*prefsState
}

// NewMemoryPrefs creates an empty in-memory preference store.
func NewMemoryPrefs() *MemoryPrefs {
	return &MemoryPrefs{prefsState: newPrefsState(DefaultPrefsData(), nil)}
}

// FilePrefs persists preferences to a JSON file. Writes are atomic.
type FilePrefs struct {
	*prefsState
	path   string
	fileMu sync.Mutex
}

// OpenFilePrefs loads preferences from path. A missing file yields defaults;
// a corrupt file is logged and replaced by defaults on the next write.
func OpenFilePrefs(path string) (*FilePrefs, error) {
	p := &FilePrefs{path: path}

	data, err := p.read()
	if err != nil {
		return nil, err
	}
	p.prefsState = newPrefsState(data, p.write)
	return p, nil
}

// OpenDefaultFilePrefs opens the preferences file at the XDG data path.
func OpenDefaultFilePrefs() (*FilePrefs, error) {
	path, err := PrefsPath()
	if err != nil {
		return nil, err
	}
	return OpenFilePrefs(path)
}

// Path returns the preferences file path.
func (p *FilePrefs) Path() string {
	return p.path
}

// Reload re-reads the file and notifies subscribers when its content
// differs from memory.
func (p *FilePrefs) Reload() error {
	data, err := p.read()
	if err != nil {
		return err
	}
	data.normalize()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data.equal(data) {
		return nil
	}
	p.data = data
	p.notifyChange(ChangeEvent{Type: ChangeReloaded})
	return nil
}

func (p *FilePrefs) read() (PrefsData, error) {
	p.fileMu.Lock()
	defer p.fileMu.Unlock()

	raw, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPrefsData(), nil
		}
		return PrefsData{}, fmt.Errorf("failed to read preferences %s: %w", p.path, err)
	}

	var data PrefsData
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Warn("preferences file is corrupt, using defaults", "path", p.path, "error", err)
		return DefaultPrefsData(), nil
	}
	data.normalize()
	return data, nil
}

func (p *FilePrefs) write(data PrefsData) error {
	p.fileMu.Lock()
	defer p.fileMu.Unlock()

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data.SchemaVersion = SchemaVersion
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

var (
	_ Prefs = (*MemoryPrefs)(nil)
	_ Prefs = (*FilePrefs)(nil)
)
