// Package hostinfo answers the questions the precondition step asks about
// the host: privileges, OS identity, and board model. Every path is
// injected so tests run against fixture files.
package hostinfo

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotRoot reports that the process lacks the privileges every mutation
// in this tool requires.
var ErrNotRoot = errors.New("must run as root")

// OSRelease is the subset of /etc/os-release this tool cares about.
type OSRelease struct {
	ID       string // e.g. "raspbian", "debian"
	IDLike   string
	Codename string // VERSION_CODENAME, used for the apt repository entry
	Pretty   string
}

// Probe reads host facts from injected paths.
type Probe struct {
	osReleasePath   string
	deviceTreePath  string
	effectiveUserID func() int
}

// NewProbe creates a Probe over the given paths. euid is usually
// os.Geteuid; it is injectable for tests.
func NewProbe(osReleasePath, deviceTreePath string, euid func() int) *Probe {
	if euid == nil {
		euid = os.Geteuid
	}
	return &Probe{
		osReleasePath:   osReleasePath,
		deviceTreePath:  deviceTreePath,
		effectiveUserID: euid,
	}
}

// RequireRoot returns ErrNotRoot unless the effective user is root.
func (p *Probe) RequireRoot() error {
	if p.effectiveUserID() != 0 {
		return ErrNotRoot
	}
	return nil
}

// OSRelease parses the os-release file.
func (p *Probe) OSRelease() (OSRelease, error) {
	data, err := os.ReadFile(p.osReleasePath)
	if err != nil {
		return OSRelease{}, fmt.Errorf("read %s: %w", p.osReleasePath, err)
	}
	return ParseOSRelease(string(data)), nil
}

// Supported reports whether the OS is one this tool provisions. Raspberry
// Pi OS identifies as raspbian on 32-bit images and debian on 64-bit ones.
func (r OSRelease) Supported() bool {
	switch r.ID {
	case "raspbian", "debian":
		return true
	}
	return strings.Contains(r.IDLike, "debian")
}

// Model returns the device-tree board model, or "" when the file is absent
// (not running on a Pi, or a test host).
func (p *Probe) Model() string {
	data, err := os.ReadFile(p.deviceTreePath)
	if err != nil {
		return ""
	}
	// The device-tree model string is NUL-terminated.
	return strings.TrimRight(string(data), "\x00\n")
}

// ParseOSRelease parses os-release content: KEY=value lines, values
// optionally double-quoted, comments and blank lines ignored.
func ParseOSRelease(content string) OSRelease {
	var r OSRelease
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"`)
		switch key {
		case "ID":
			r.ID = value
		case "ID_LIKE":
			r.IDLike = value
		case "VERSION_CODENAME":
			r.Codename = value
		case "PRETTY_NAME":
			r.Pretty = value
		}
	}
	return r
}
