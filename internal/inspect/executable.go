package inspect

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrUnknownFormat is returned when a file does not start with the magic
	// bytes of a supported executable format.
	ErrUnknownFormat = errors.New("unrecognised executable format")

	// ErrMalformed is returned when an executable parser gave up on a file.
	ErrMalformed = errors.New("malformed executable")
)

type execFormat int

const (
	formatUnknown execFormat = iota
	formatPE
	formatELF
	formatMachO
	formatMachOFat
)

func (f execFormat) String() string {
	switch f {
	case formatPE:
		return "pe"
	case formatELF:
		return "elf"
	case formatMachO:
		return "macho"
	case formatMachOFat:
		return "macho-fat"
	default:
		return "unknown"
	}
}

var machoMagics = [][]byte{
	{0xfe, 0xed, 0xfa, 0xce},
	{0xfe, 0xed, 0xfa, 0xcf},
	{0xce, 0xfa, 0xed, 0xfe},
	{0xcf, 0xfa, 0xed, 0xfe},
}

func sniffFormat(path string) (execFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return formatUnknown, err
	}
	defer f.Close()

	magic := make([]byte, 4)
	n, err := io.ReadFull(f, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return formatUnknown, nil
		}
		return formatUnknown, err
	}
	magic = magic[:n]

	switch {
	case bytes.HasPrefix(magic, []byte("MZ")):
		return formatPE, nil
	case bytes.Equal(magic, []byte(elf.ELFMAG)):
		return formatELF, nil
	case bytes.Equal(magic, []byte{0xca, 0xfe, 0xba, 0xbe}):
		return formatMachOFat, nil
	}
	for _, m := range machoMagics {
		if bytes.Equal(magic, m) {
			return formatMachO, nil
		}
	}
	return formatUnknown, nil
}

// ImportCount returns the number of distinct imported function symbols in
// the executable at path, summed over the libraries it imports from.
//
// PE, ELF and Mach-O (including universal binaries, where the first
// architecture is used) are supported. Any other content, or content a parser
// rejects, returns 0 and an error.
func ImportCount(path string) (int, error) {
	format, err := sniffFormat(path)
	if err != nil {
		return 0, err
	}
	return guard(format, func() (int, error) {
		switch format {
		case formatPE:
			return peImports(path)
		case formatELF:
			return elfImports(path)
		case formatMachO:
			return machoImports(path)
		case formatMachOFat:
			return fatImports(path)
		default:
			return 0, ErrUnknownFormat
		}
	})
}

// guard converts a panic inside a parser into ErrMalformed.
func guard(format execFormat, fn func() (int, error)) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %s parser panicked: %v", ErrMalformed, format, r)
		}
	}()
	n, err = fn()
	if err != nil && !errors.Is(err, ErrUnknownFormat) {
		return 0, fmt.Errorf("%w: %s: %w", ErrMalformed, format, err)
	}
	return n, err
}

func peImports(path string) (int, error) {
	f, err := pe.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	// Symbols are reported as "function:library".
	syms, err := f.ImportedSymbols()
	if err != nil {
		return 0, err
	}
	return countDistinct(syms), nil
}

func elfImports(path string) (int, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	syms, err := f.DynamicSymbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		// Statically linked.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var names []string
	for _, s := range syms {
		if s.Name == "" || s.Section != elf.SHN_UNDEF || elf.ST_TYPE(s.Info) != elf.STT_FUNC {
			continue
		}
		names = append(names, s.Name+":"+s.Library)
	}
	return countDistinct(names), nil
}

func machoImports(path string) (int, error) {
	f, err := macho.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return machoFileImports(f)
}

func fatImports(path string) (int, error) {
	f, err := macho.OpenFat(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if len(f.Arches) == 0 {
		return 0, nil
	}
	return machoFileImports(f.Arches[0].File)
}

func machoFileImports(f *macho.File) (int, error) {
	syms, err := f.ImportedSymbols()
	if err != nil {
		return 0, err
	}
	return countDistinct(syms), nil
}

func countDistinct(items []string) int {
	seen := make(map[string]struct{}, len(items))
	for _, s := range items {
		seen[s] = struct{}{}
	}
	return len(seen)
}
