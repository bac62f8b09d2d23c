package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "videos")

	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestCreateDirectoryIfNotExists_FileInTheWay(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "videos")
	if err := os.WriteFile(filePath, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	err := CreateDirectoryIfNotExists(filePath)
	if err == nil {
		t.Fatal("Expected error when a file occupies the directory path")
	}
	if !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExpectedOutputPath(t *testing.T) {
	tests := []struct {
		name     string
		dir      string
		title    string
		ext      string
		expected string
	}{
		{"plain", "/data/videos", "Sample", "mp4", "/data/videos/Sample.mp4"},
		{"dotted ext", "/data/videos", "Sample", ".mp4", "/data/videos/Sample.mp4"},
		{"no ext", "/data/videos", "Sample", "", "/data/videos/Sample"},
		{"title with dots", "videos", "v1.2 release", "mp4", "videos/v1.2 release.mp4"},
		{"slash in title", "videos", "AC/DC Live", "mp4", "videos/AC\u29f8DC Live.mp4"},
		{"parent reference", "videos", "../../etc/passwd", "mp4", "videos/..\u29f8..\u29f8etc\u29f8passwd.mp4"},
		{"dot dot title", "videos", "..", "", "videos/_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpectedOutputPath(tt.dir, tt.title, tt.ext)
			if got != filepath.FromSlash(tt.expected) {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestOpenFileInManager_NonExistentFile(t *testing.T) {
	tempDir := t.TempDir()
	nonExistentFile := filepath.Join(tempDir, "nonexistent.txt")

	err := OpenFileInManager(nonExistentFile)
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}

	if !strings.Contains(err.Error(), "file does not exist:") {
		t.Errorf("Error message should contain 'file does not exist:', got: %v", err)
	}
}

func TestFindFileWithFallback_ExistingFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "Sample.mp4")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	foundPath, err := FindFileWithFallback(path)
	if err != nil {
		t.Fatalf("Failed to find existing file: %v", err)
	}

	if foundPath != path {
		t.Errorf("Expected path %s, got %s", path, foundPath)
	}
}

func TestFindFileWithFallback_SimilarFileName(t *testing.T) {
	tests := []struct {
		name     string
		wanted   string
		onDisk   string
		expected bool
	}{
		{"leading dash", "test_video.mp4", "-test_video.mp4", true},
		{"sanitized punctuation", "My Video: Part 1.mp4", "My_Video_Part_1.mp4", true},
		{"different extension", "test_video.mp4", "test_video.webm", false},
		{"partial download is skipped", "test_video.mp4", "test_video.mp4.part", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			onDisk := filepath.Join(tempDir, tt.onDisk)
			if err := os.WriteFile(onDisk, nil, 0644); err != nil {
				t.Fatalf("Failed to create file: %v", err)
			}

			foundPath, err := FindFileWithFallback(filepath.Join(tempDir, tt.wanted))
			if tt.expected {
				if err != nil {
					t.Fatalf("Failed to find similar file: %v", err)
				}
				if foundPath != onDisk {
					t.Errorf("Expected path %s, got %s", onDisk, foundPath)
				}
				return
			}
			if err == nil {
				t.Errorf("Expected no match, got %s", foundPath)
			}
		})
	}
}

func TestFindFileWithFallback_NoSimilarFile(t *testing.T) {
	tempDir := t.TempDir()

	// earlier downloads with unrelated titles
	for _, name := range []string{"a.mp4", "Old Cooking Video.mp4", "another_long-download.mp4"} {
		if err := os.WriteFile(filepath.Join(tempDir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}

	originalPath := filepath.Join(tempDir, "test_video.mp4")
	_, err := FindFileWithFallback(originalPath)
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}

	expectedError := "file not found: " + originalPath
	if err.Error() != expectedError {
		t.Errorf("Expected error message %s, got %v", expectedError, err)
	}
}

func TestFindFileWithFallback_InvalidPaths(t *testing.T) {
	tests := []string{"", "https://youtu.be/abc", "Sample.mp4"}

	for _, path := range tests {
		if _, err := FindFileWithFallback(path); err == nil {
			t.Errorf("Expected error for path %q", path)
		}
	}
}

func TestIsSimilarFileName(t *testing.T) {
	tests := []struct {
		name1, name2 string
		expected     bool
	}{
		{"test", "test", true},
		{"test", "-test", true},
		{"test", "test_", true},
		{"test", " test", true},
		{"test", "other", false},
		{"test_video", "test_video_long", true},
		{"test_video_long", "test_video", true},
		{"test_video_very_long_name", "test_video", false}, // too different
		{"Sample", "Sample 2", false},
		{"Old Cooking Video", "Cooking Video", false},
		{"Ünïcode Title", "Ünïcode_Title", true},
	}

	for _, tt := range tests {
		t.Run(tt.name1+"_"+tt.name2, func(t *testing.T) {
			result := isSimilarFileName(tt.name1, tt.name2)
			if result != tt.expected {
				t.Errorf("isSimilarFileName(%q, %q) = %v, expected %v",
					tt.name1, tt.name2, result, tt.expected)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Sample", "Sample"},
		{"AC/DC Live", "AC\u29f8DC Live"},
		{`back\slash`, "back\u29f9slash"},
		{"Q&A: why? <live> | \"quoted\" *", "Q&A\uff1a why\uff1f \uff1clive\uff1e \uff5c \uff02quoted\uff02 \uff0a"},
		{"line\nbreak\ttab", "line breaktab"},
		{"  padded  ", "padded"},
		{"", "_"},
		{".", "_"},
		{"..", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := SanitizeFileName(tt.title)
			if got != tt.expected {
				t.Errorf("SanitizeFileName(%q) = %q, expected %q", tt.title, got, tt.expected)
			}
			if strings.ContainsAny(got, `/\`) {
				t.Errorf("SanitizeFileName(%q) = %q contains a path separator", tt.title, got)
			}
		})
	}
}
