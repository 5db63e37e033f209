package bootconfig

import (
	"fmt"
	"strings"
)

// Setting is a value object representing one desired boot configuration line.
// The key is the text before "=", or the whole line for flagless directives.
type Setting struct {
	line string
	key  string
}

// NewSetting creates a Setting from its exact literal line.
func NewSetting(line string) (Setting, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Setting{}, fmt.Errorf("setting line cannot be empty")
	}
	if strings.ContainsAny(trimmed, "\r\n") {
		return Setting{}, fmt.Errorf("setting must be a single line: %q", line)
	}
	if strings.HasPrefix(trimmed, "#") {
		return Setting{}, fmt.Errorf("setting cannot be a comment: %q", line)
	}
	key := trimmed
	if i := strings.Index(trimmed, "="); i >= 0 {
		// The key includes the "=" boundary so that keys which are textual
		// prefixes of one another cannot over-match.
		key = trimmed[:i+1]
	}
	return Setting{line: trimmed, key: key}, nil
}

// MustSetting is NewSetting for the fixed declared lists; it panics on
// malformed input and is only meant for package-level literals.
func MustSetting(line string) Setting {
	s, err := NewSetting(line)
	if err != nil {
		panic(err)
	}
	return s
}

// Line returns the exact literal line the reconciler writes.
func (s Setting) Line() string {
	return s.line
}

// Key returns the matching key, including the trailing "=" for key=value
// settings.
func (s Setting) Key() string {
	return s.key
}

// Matches reports whether a configuration file line is managed by this
// setting. Matching is on raw text: a prefix match against the key for
// key=value settings, an exact match for bare directives.
func (s Setting) Matches(line string) bool {
	candidate := strings.TrimSpace(line)
	if strings.HasSuffix(s.key, "=") {
		return strings.HasPrefix(candidate, s.key)
	}
	return candidate == s.key
}

// String implements the Stringer interface.
func (s Setting) String() string {
	return s.line
}

// Settings is an ordered desired-state list, unique by key.
type Settings struct {
	ordered []Setting
}

// NewSettings builds a Settings list, rejecting duplicate keys so that each
// desired setting appears exactly once in the reconciled file.
func NewSettings(lines ...string) (Settings, error) {
	var list Settings
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		s, err := NewSetting(line)
		if err != nil {
			return Settings{}, err
		}
		if seen[s.Key()] {
			return Settings{}, fmt.Errorf("duplicate setting key: %s", s.Key())
		}
		seen[s.Key()] = true
		list.ordered = append(list.ordered, s)
	}
	return list, nil
}

// All returns the settings in declared order.
func (l Settings) All() []Setting {
	out := make([]Setting, len(l.ordered))
	copy(out, l.ordered)
	return out
}

// Len returns the number of settings.
func (l Settings) Len() int {
	return len(l.ordered)
}

// Manages reports whether any setting in the list manages the given line.
func (l Settings) Manages(line string) bool {
	for _, s := range l.ordered {
		if s.Matches(line) {
			return true
		}
	}
	return false
}

// DefaultSettings is the fixed target state for a compute node: audio,
// camera, and display detection off, onboard wireless off, GPU memory at the
// minimum. Bluetooth is handled by the module blacklist rather than a second
// dtoverlay entry, keeping the list unique by key.
func DefaultSettings() Settings {
	list, err := NewSettings(
		"dtparam=audio=off",
		"camera_auto_detect=0",
		"display_auto_detect=0",
		"dtoverlay=disable-wifi",
		"gpu_mem=16",
	)
	if err != nil {
		panic(err)
	}
	return list
}
