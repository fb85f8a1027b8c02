package main

import (
	"os"
	"path/filepath"
	"testing"
)

// parseSize treats "" as "flag not set" (0, no error) since every size flag
// in this CLI defaults to an empty string rather than "0".
func TestParseSizeEmptyStringIsUnset(t *testing.T) {
	got, err := parseSize("")
	if err != nil {
		t.Fatalf("parseSize(\"\") error: %v", err)
	}
	if got != 0 {
		t.Errorf("parseSize(\"\") = %d, want 0", got)
	}
}

func TestParseSizeValid(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1k", 1000},
		{"1K", 1000},
		{"1kb", 1000},
		{"1KB", 1000},
		{"1m", 1000000},
		{"1g", 1000000000},
		{"1234", 1234},
		{"0", 0},
		{"1KiB", 1024},
		{"1MiB", 1048576},
		{"1GiB", 1073741824},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSize(tt.input)
			if err != nil {
				t.Fatalf("parseSize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSizeInvalid(t *testing.T) {
	tests := []string{"invalid", "abc", "1.5.5"}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := parseSize(input); err == nil {
				t.Errorf("parseSize(%q) should return error", input)
			}
		})
	}
}

func TestParseDeleteModeValid(t *testing.T) {
	tests := map[string]int{"dry-run": 0, "trash": 1, "permanent": 2}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, err := parseDeleteMode(in)
			if err != nil {
				t.Fatalf("parseDeleteMode(%q) error: %v", in, err)
			}
			if int(got) != want {
				t.Errorf("parseDeleteMode(%q) = %d, want %d", in, got, want)
			}
		})
	}
}

func TestParseDeleteModeInvalid(t *testing.T) {
	if _, err := parseDeleteMode("nuke"); err == nil {
		t.Error("parseDeleteMode(\"nuke\") should return error")
	}
}

func TestCollectDeletePathsArgsOnly(t *testing.T) {
	paths, err := collectDeletePaths([]string{"/a", "/b"}, "")
	if err != nil {
		t.Fatalf("collectDeletePaths() error: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/a" || paths[1] != "/b" {
		t.Errorf("collectDeletePaths() = %v, want [/a /b]", paths)
	}
}

func TestCollectDeletePathsMergesFromFile(t *testing.T) {
	dir := t.TempDir()
	listFile := filepath.Join(dir, "list.txt")
	content := "/c/one.jpg\n# comment\n\n/c/two.jpg\n"
	if err := os.WriteFile(listFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write list file: %v", err)
	}

	paths, err := collectDeletePaths([]string{"/a"}, listFile)
	if err != nil {
		t.Fatalf("collectDeletePaths() error: %v", err)
	}
	want := []string{"/a", "/c/one.jpg", "/c/two.jpg"}
	if len(paths) != len(want) {
		t.Fatalf("collectDeletePaths() = %v, want %v", paths, want)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("collectDeletePaths()[%d] = %q, want %q", i, paths[i], p)
		}
	}
}

func TestCollectDeletePathsMissingFromFile(t *testing.T) {
	if _, err := collectDeletePaths(nil, filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("collectDeletePaths() with missing --from file should return error")
	}
}
