package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/rlxui/internal/core"
)

// Duration is a config duration. In TOML it is written as a string: a Go
// duration ("7s", "1h30m"), a day or week count ("2d", "1w"), or a bare
// integer number of milliseconds ("7000").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))

	var dur time.Duration
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		dur = time.Duration(ms) * time.Millisecond
	} else if dur, err = core.ParseDuration(s); err != nil {
		return fmt.Errorf("invalid duration %q: want e.g. \"7s\", \"1m\", \"2d\" or milliseconds", s)
	}

	if dur < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Milliseconds returns the duration in whole milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
