package sanitize

import (
	"testing"

	"mediagrab/pkg/errors"
)

func TestFolder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain title", "My Album", "My Album"},
		{"illegal characters stripped", `Album: <Test> "quoted" | a?b*c`, "Album Test quoted abc"},
		{"path separators stripped", `nested/folder\name`, "nestedfoldername"},
		{"whitespace collapsed", "too   many\t spaces", "too many spaces"},
		{"surrounding whitespace trimmed", "  padded  ", "padded"},
		{"control characters stripped", "bad\x00name\x1f", "badname"},
		{"empty input", "", ""},
		{"only illegal characters", `<>:"/\|?*`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Folder(tt.input); got != tt.expected {
				t.Errorf("Folder(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFolderIdempotent(t *testing.T) {
	inputs := []string{
		"My Album",
		`Album: <Test>  with  spaces`,
		"  padded / nested  ",
		"",
	}
	for _, input := range inputs {
		once := Folder(input)
		twice := Folder(once)
		if once != twice {
			t.Errorf("Folder not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestFilenameAndExt(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantFilename string
		wantExt      string
	}{
		{"simple file", "photo.jpg", "photo.jpg", ".jpg"},
		{"extension lowercased", "photo.JPG", "photo.jpg", ".jpg"},
		{"full path reduced to base", "/files/videos/clip.mp4", "clip.mp4", ".mp4"},
		{"compound extension keeps last", "archive.tar.gz", "archive.tar.gz", ".gz"},
		{"illegal stem characters stripped", "my:photo?.png", "myphoto.png", ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename, ext, err := FilenameAndExt(tt.input)
			if err != nil {
				t.Fatalf("FilenameAndExt(%q) returned error: %v", tt.input, err)
			}
			if filename != tt.wantFilename {
				t.Errorf("filename = %q, want %q", filename, tt.wantFilename)
			}
			if ext != tt.wantExt {
				t.Errorf("ext = %q, want %q", ext, tt.wantExt)
			}
		})
	}
}

func TestFilenameAndExtNoExtension(t *testing.T) {
	inputs := []string{
		"noextension",
		"/a/album-id",
		".hiddenfile",
		"file.toolongext",
		"???.jpg", // stem sanitizes to nothing
		"",
	}
	for _, input := range inputs {
		_, _, err := FilenameAndExt(input)
		if !errors.IsNoExtension(err) {
			t.Errorf("FilenameAndExt(%q) error = %v, want no-extension failure", input, err)
		}
	}
}
