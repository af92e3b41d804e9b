package utils

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SafeFilename reduces a client supplied file name to a plain base name that
// is safe to create inside a scratch directory. Path separators are treated as
// whitespace, whitespace runs become a single underscore and any remaining
// character outside [A-Za-z0-9_.-] is dropped. Leading and trailing dots and
// underscores are trimmed, so the result never names a parent directory.
//
// The result may be empty, in which case the name must be rejected.
func SafeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Extension returns the lower-cased text after the last '.' in name, or the
// empty string if name has no '.'.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}
