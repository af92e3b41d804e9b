// Package indicators counts well known suspicious API names in raw file
// content. The counts are reported with a verdict but never feed into it.
package indicators

import (
	"bytes"
	"io"
	"os"
)

// Names are the API names searched for.
var Names = []string{
	"CreateProcess",
	"WriteProcessMemory",
	"VirtualAlloc",
	"GetProcAddress",
	"LoadLibrary",
	"RegOpenKey",
	"InternetOpen",
	"HttpSendRequest",
}

const chunkSize = 32 * 1024

var patterns, overlap = compile(Names)

func compile(names []string) ([][]byte, int) {
	ps := make([][]byte, len(names))
	longest := 0
	for i, n := range names {
		ps[i] = []byte(n)
		longest = max(longest, len(n))
	}
	return ps, longest - 1
}

// Scan streams r and returns how often each name occurs. Names that do not
// occur are omitted. A match that spans two reads is counted once.
func Scan(r io.Reader) (map[string]int, error) {
	counts := make(map[string]int)
	chunk := make([]byte, chunkSize)
	window := make([]byte, 0, overlap+chunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			carried := len(window)
			window = append(window, chunk[:n]...)
			for i, p := range patterns {
				if c := countEndingAfter(window, p, carried); c > 0 {
					counts[Names[i]] += c
				}
			}
			if len(window) > overlap {
				window = append(window[:0], window[len(window)-overlap:]...)
			}
		}
		if err == io.EOF {
			return counts, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// countEndingAfter counts non-overlapping occurrences of p in b that end
// beyond offset. Occurrences ending at or before offset were seen in the
// previous read.
func countEndingAfter(b, p []byte, offset int) int {
	count, start := 0, 0
	for {
		i := bytes.Index(b[start:], p)
		if i < 0 {
			return count
		}
		end := start + i + len(p)
		if end > offset {
			count++
		}
		start = end
	}
}

// File scans the file at path.
func File(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Scan(f)
}
