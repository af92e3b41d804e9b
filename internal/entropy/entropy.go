// Package entropy measures the Shannon entropy of byte streams.
//
// The entropy of a stream is
//
//	E = - sum(b in 0..255) { p(b) * log2(p(b)) },
//
// where p(b) is the frequency of byte value b divided by the stream length.
// E is 0 for an empty stream or one made of a single repeated byte and reaches
// 8 when all 256 byte values occur equally often. Packed or encrypted content
// sits close to 8.
package entropy

import (
	"io"
	"math"
	"os"
)

// Max is the largest possible byte entropy, in bits.
const Max = 8.0

const chunkSize = 8 * 1024

// Histogram accumulates byte value frequencies. The zero value is empty and
// ready to use.
type Histogram struct {
	counts [256]uint64
	total  uint64
}

// Add counts every byte in p.
func (h *Histogram) Add(p []byte) {
	for _, b := range p {
		h.counts[b]++
	}
	h.total += uint64(len(p))
}

// Total returns the number of bytes counted so far.
func (h *Histogram) Total() uint64 {
	return h.total
}

// Entropy returns the Shannon entropy of the bytes counted so far.
func (h *Histogram) Entropy() float64 {
	if h.total == 0 {
		return 0
	}
	n := float64(h.total)
	e := 0.0
	for _, c := range h.counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		e -= p * math.Log2(p)
	}
	return math.Max(0, math.Min(e, Max))
}

// Calculate streams r to EOF in fixed size chunks and returns its entropy.
//
// If reading fails the returned entropy is 0, never a partial value, and the
// error is returned alongside it for reporting.
func Calculate(r io.Reader) (float64, error) {
	var h Histogram
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		h.Add(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	return h.Entropy(), nil
}

// File returns the entropy of the file at path. As with Calculate, any
// failure yields 0 together with the error.
func File(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Calculate(f)
}
