// Package filetype defines the kinds of uploaded file ThreatSleuth distinguishes
// between when deciding how deeply to inspect a file.
package filetype

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Type is the broad category of a file, derived from its name.
//
// It implements encoding.TextUnmarshaler and encoding.TextMarshaler so it can
// be used with flag.TextVar.
type Type string

const (
	Opaque     Type = "opaque"
	Executable Type = "executable"
	Library    Type = "library"
	RawBinary  Type = "binary"
	Archive    Type = "archive"
	Text       Type = "text"
)

// ErrUnsupported is returned by Parse when the name does not correspond to a
// defined Type constant.
var ErrUnsupported = errors.New("file type unsupported")

// Types lists every defined Type.
var Types = []Type{Opaque, Executable, Library, RawBinary, Archive, Text}

var extensions = map[string]Type{
	".exe":   Executable,
	".dll":   Library,
	".so":    Library,
	".dylib": Library,
	".bin":   RawBinary,
	".zip":   Archive,
	".jar":   Archive,
	".tar":   Archive,
	".tgz":   Archive,
	".7z":    Archive,
	".rar":   Archive,
	".txt":   Text,
}

// FromPath classifies a file by the extension of its name. Matching is case
// insensitive and unknown extensions are Opaque.
func FromPath(path string) Type {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".tar.gz") {
		return Archive
	}
	if t, ok := extensions[filepath.Ext(name)]; ok {
		return t
	}
	return Opaque
}

// Parse returns the Type named by s.
func Parse(s string) (Type, error) {
	t := Type(strings.ToLower(s))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, s)
}

// IsExecutable reports whether files of this type may carry an import table.
func (t Type) IsExecutable() bool {
	return t == Executable || t == Library || t == RawBinary
}

// UnmarshalText implements the encoding.TextUnmarshaler interface. Empty text
// decodes to the zero Type, which is what MarshalText writes for it.
func (t *Type) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = ""
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// String implements the fmt.Stringer interface.
func (t Type) String() string {
	return string(t)
}
