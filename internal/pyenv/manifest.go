package pyenv

import (
	"fmt"
	"regexp"
	"strings"
)

// Requirement is one line of the dependency manifest. Pinned requirements
// carry Name and Version; editable or VCS lines keep only Raw.
type Requirement struct {
	Name    string
	Version string
	Raw     string
}

// Pinned reports whether the requirement is an exact name==version pin.
func (r Requirement) Pinned() bool { return r.Name != "" }

var pinRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)==(\S+)$`)

// ParseManifest parses pip freeze output or a requirements file. Blank
// lines and comments are dropped. Editable installs ("-e ...") and direct
// URL references are preserved verbatim; anything else that is not a
// name==version pin is an error.
func ParseManifest(data []byte) ([]Requirement, error) {
	var reqs []Requirement
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "-e ") || strings.Contains(line, "://") {
			reqs = append(reqs, Requirement{Raw: line})
			continue
		}
		m := pinRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("manifest line %d: not a name==version pin: %q", i+1, line)
		}
		reqs = append(reqs, Requirement{Name: m[1], Version: m[2], Raw: line})
	}
	return reqs, nil
}

// FormatManifest renders requirements back to file content, one per line.
func FormatManifest(reqs []Requirement) []byte {
	var b strings.Builder
	for _, r := range reqs {
		b.WriteString(r.Raw)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
