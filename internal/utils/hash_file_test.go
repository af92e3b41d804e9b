package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Yash-Janiyani/ThreatSleuth/internal/utils"
)

func TestSHA256File(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
	}{
		{
			name:     "empty file",
			contents: "",
			want:     "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "single line",
			contents: "Hello, World!",
			want:     "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f",
		},
		{
			name:     "multi line",
			contents: "Hello,\nWorld!",
			want:     "d62b51d504f02642dab5003959af0c1557094c7d49dcc544aba37a0a5d8d1d0d",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := filepath.Join(t.TempDir(), "file.txt")
			if err := os.WriteFile(f, []byte(test.contents), 0o666); err != nil {
				t.Fatalf("Failed to prepare file: %v", err)
			}
			got, err := utils.SHA256File(f)
			if err != nil {
				t.Fatalf("SHA256File() = %v", err)
			}
			if got != test.want {
				t.Errorf("SHA256File() = %v; want %v", got, test.want)
			}
		})
	}
}

func TestSHA256File_MissingFile(t *testing.T) {
	got, err := utils.SHA256File(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Error("SHA256File() returned no error; want an error")
	}
	if got != "" {
		t.Errorf("SHA256File() = %v; want ''", got)
	}
}
