package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zhubert/parley/internal/config"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"lowercase y", "y\n", true},
		{"uppercase Y", "Y\n", true},
		{"lowercase yes", "yes\n", true},
		{"mixed case Yes", "Yes\n", true},
		{"lowercase n", "n\n", false},
		{"empty input", "\n", false},
		{"random text", "maybe\n", false},
		{"y with spaces", "  y  \n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := confirm(strings.NewReader(tt.input), io.Discard, "Test?")
			if result != tt.expected {
				t.Errorf("confirm(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestConfirm_ErrorReader(t *testing.T) {
	if confirm(&errorReader{}, io.Discard, "Test?") {
		t.Error("confirm(error) = true, want false")
	}
}

// errorReader is a reader that always returns an error
type errorReader struct{}

func (e *errorReader) Read(p []byte) (n int, err error) {
	return 0, io.ErrUnexpectedEOF
}

func TestRunClean_Data(t *testing.T) {
	origData, origSkip := cleanData, skipConfirm
	defer func() { cleanData, skipConfirm = origData, origSkip }()

	dir := t.TempDir()
	cfg, err := config.LoadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(filepath.Join(dataDir, "blobs"), 0755); err != nil {
		t.Fatal(err)
	}

	cleanData = true
	skipConfirm = false

	var out bytes.Buffer
	if err := runCleanWithReader(cfg, strings.NewReader("n\n"), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Aborted.") {
		t.Errorf("output = %q", out.String())
	}
	if _, err := os.Stat(dataDir); err != nil {
		t.Fatal("aborted clean must keep the data")
	}

	out.Reset()
	if err := runCleanWithReader(cfg, strings.NewReader("yes\n"), &out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dataDir); !os.IsNotExist(err) {
		t.Errorf("data dir should be removed, stat err = %v", err)
	}
	if !strings.Contains(out.String(), "Cleaned:") {
		t.Errorf("output = %q", out.String())
	}
}
