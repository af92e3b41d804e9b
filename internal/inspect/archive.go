package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v4"
)

// ErrNotArchive is returned when a file is not in an archive format that can
// be listed.
var ErrNotArchive = errors.New("not a listable archive")

// suspiciousWeight is the score added for each entry with an extension in
// suspiciousExtensions, on top of the 1 every entry contributes.
const suspiciousWeight = 10

var suspiciousExtensions = map[string]bool{
	".exe": true,
	".dll": true,
	".bat": true,
	".cmd": true,
	".scr": true,
	".vbs": true,
	".js":  true,
}

// IsSuspiciousEntry reports whether an archive entry name ends in an extension
// associated with executable or script payloads. Leading dots of the base name
// do not start an extension, so ".exe" has none.
func IsSuspiciousEntry(name string) bool {
	base := strings.TrimLeft(path.Base(name), ".")
	return suspiciousExtensions[strings.ToLower(path.Ext(base))]
}

// ArchiveScore lists the entries of the archive at path and returns
//
//	entries + 10 * suspicious entries
//
// where directory entries count towards entries. Entry contents are never
// extracted. An archive that cannot be opened or listed returns 0 and an
// error.
func ArchiveScore(ctx context.Context, archivePath string) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	format, _, err := archiver.Identify(filepath.Base(archivePath), f)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNotArchive, err)
	}
	extractor, ok := format.(archiver.Extractor)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrNotArchive, format)
	}
	// Identify may have consumed the head of the file.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	entries, suspicious := 0, 0
	err = extractor.Extract(ctx, f, nil, func(ctx context.Context, entry archiver.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries++
		if !entry.IsDir() && IsSuspiciousEntry(entry.NameInArchive) {
			suspicious++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return entries + suspiciousWeight*suspicious, nil
}
