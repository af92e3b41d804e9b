package indicators_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/indicators"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]int
	}{
		{
			name:  "none",
			input: "plain text with nothing interesting",
			want:  map[string]int{},
		},
		{
			name:  "several",
			input: "\x00kernel32\x00VirtualAlloc\x00LoadLibraryA\x00GetProcAddress\x00VirtualAllocEx\x00",
			want:  map[string]int{"VirtualAlloc": 2, "LoadLibrary": 1, "GetProcAddress": 1},
		},
		{
			name:  "case sensitive",
			input: "createprocess CREATEPROCESS CreateProcessW",
			want:  map[string]int{"CreateProcess": 1},
		},
		{
			name:  "adjacent",
			input: "RegOpenKeyRegOpenKeyRegOpenKey",
			want:  map[string]int{"RegOpenKey": 3},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := indicators.Scan(strings.NewReader(test.input))
			if err != nil {
				t.Fatalf("Scan() = %v", err)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("Scan() = %v; want %v", got, test.want)
			}

			// Reading a byte at a time splits every match across reads.
			got, err = indicators.Scan(iotest.OneByteReader(strings.NewReader(test.input)))
			if err != nil {
				t.Fatalf("Scan(one byte) = %v", err)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("Scan(one byte) = %v; want %v", got, test.want)
			}
		})
	}
}

func TestScan_LargeInput(t *testing.T) {
	var b bytes.Buffer
	for i := 0; i < 5000; i++ {
		b.WriteString("padding padding padding ")
		b.WriteString("InternetOpen")
	}
	got, err := indicators.Scan(&b)
	if err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	if got["InternetOpen"] != 5000 {
		t.Errorf("Scan() InternetOpen = %d; want 5000", got["InternetOpen"])
	}
}

func TestScan_ReadError(t *testing.T) {
	errBoom := errors.New("boom")
	r := io.MultiReader(strings.NewReader("HttpSendRequest"), iotest.ErrReader(errBoom))
	if _, err := indicators.Scan(r); !errors.Is(err, errBoom) {
		t.Errorf("Scan() = %v; want %v", err, errBoom)
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bin")
	if err := os.WriteFile(path, []byte("WriteProcessMemory\x00CreateProcessA"), 0o644); err != nil {
		t.Fatalf("WriteFile() = %v", err)
	}
	got, err := indicators.File(path)
	if err != nil {
		t.Fatalf("File() = %v", err)
	}
	want := map[string]int{"WriteProcessMemory": 1, "CreateProcess": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("File() = %v; want %v", got, want)
	}

	if _, err := indicators.File(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("File(missing) returned no error")
	}
}
