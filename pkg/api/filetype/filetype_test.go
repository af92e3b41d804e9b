package filetype_test

import (
	"errors"
	"testing"

	"github.com/Yash-Janiyani/ThreatSleuth/pkg/api/filetype"
)

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want filetype.Type
	}{
		{path: "sample.exe", want: filetype.Executable},
		{path: "/tmp/upload/SAMPLE.EXE", want: filetype.Executable},
		{path: "kernel32.dll", want: filetype.Library},
		{path: "libc.so", want: filetype.Library},
		{path: "firmware.bin", want: filetype.RawBinary},
		{path: "bundle.zip", want: filetype.Archive},
		{path: "release.tar.gz", want: filetype.Archive},
		{path: "notes.txt", want: filetype.Text},
		{path: "image.png", want: filetype.Opaque},
		{path: "README", want: filetype.Opaque},
		{path: "archive.zip.txt", want: filetype.Text},
	}
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			if got := filetype.FromPath(test.path); got != test.want {
				t.Errorf("FromPath(%q) = %v; want %v", test.path, got, test.want)
			}
		})
	}
}

func TestIsExecutable(t *testing.T) {
	for _, ft := range filetype.Types {
		want := ft == filetype.Executable || ft == filetype.Library || ft == filetype.RawBinary
		if got := ft.IsExecutable(); got != want {
			t.Errorf("%v.IsExecutable() = %v; want %v", ft, got, want)
		}
	}
}

func TestUnmarshalText(t *testing.T) {
	var ft filetype.Type
	if err := ft.UnmarshalText([]byte("Archive")); err != nil {
		t.Fatalf("UnmarshalText() = %v; want no error", err)
	}
	if ft != filetype.Archive {
		t.Errorf("UnmarshalText() set %v; want %v", ft, filetype.Archive)
	}

	if err := ft.UnmarshalText(nil); err != nil || ft != "" {
		t.Errorf("UnmarshalText(empty) = %v, set %q; want no error and the zero Type", err, ft)
	}

	err := ft.UnmarshalText([]byte("spreadsheet"))
	if !errors.Is(err, filetype.ErrUnsupported) {
		t.Errorf("UnmarshalText() = %v; want %v", err, filetype.ErrUnsupported)
	}
}
