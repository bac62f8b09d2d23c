package platform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Command constants
const (
	OpenCommand     = "open"
	ExplorerCommand = "explorer"
	XDGOpenCommand  = "xdg-open"
)

// Command parameters
const (
	MacOSSelectFlag    = "-R"
	WindowsSelectParam = "/select,"
)

// File manager names
var (
	LinuxFileManagers = []string{"nautilus", "dolphin", "thunar", "nemo", "pcmanfm"}
)

// Name matching thresholds
const (
	MinFileNameLength = 10
	MaxNameDifference = 10
)

// File extensions to skip: partial downloads and engine scratch files
var (
	SkippedExtensions = []string{".part", ".ytdl", ".tmp", ".temp"}
)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", dirPath)
	}
	return nil
}

// ExpectedOutputPath returns where a video titled title is saved inside dir.
// The title is sanitized so the result never leaves dir.
func ExpectedOutputPath(dir, title, ext string) string {
	name := SanitizeFileName(title)
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	return filepath.Join(dir, name)
}

// fileNameReplacer maps characters that are unsafe in file names to the
// full-width lookalikes yt-dlp writes
var fileNameReplacer = strings.NewReplacer(
	"/", "\u29f8",
	"\\", "\u29f9",
	":", "\uff1a",
	"*", "\uff0a",
	"?", "\uff1f",
	"\"", "\uff02",
	"<", "\uff1c",
	">", "\uff1e",
	"|", "\uff5c",
	"\n", " ",
)

// SanitizeFileName turns a video title into a single path element
func SanitizeFileName(title string) string {
	name := strings.Map(func(r rune) rune {
		if (r < 0x20 && r != '\n') || r == 0x7f {
			return -1
		}
		return r
	}, title)
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// OpenFileInManager opens the file in the system file manager and highlights it
func OpenFileInManager(filePath string) error {
	foundPath, err := FindFileWithFallback(filePath)
	if err != nil {
		return fmt.Errorf("file does not exist: %v", err)
	}

	absPath, err := filepath.Abs(foundPath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	switch runtime.GOOS {
	case OSDarwin:
		return exec.Command(OpenCommand, MacOSSelectFlag, absPath).Run()
	case OSWindows:
		return exec.Command(ExplorerCommand, WindowsSelectParam, absPath).Run()
	case OSLinux:
		return openFileInManagerLinux(absPath)
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// openFileInManagerLinux opens directory containing file on Linux
// Note: File selection is not standardized on Linux, so we open the parent directory
func openFileInManagerLinux(filePath string) error {
	dir := filepath.Dir(filePath)

	if err := exec.Command(XDGOpenCommand, dir).Run(); err == nil {
		return nil
	}

	for _, fm := range LinuxFileManagers {
		if _, err := exec.LookPath(fm); err == nil {
			return exec.Command(fm, dir).Run()
		}
	}

	return fmt.Errorf("no suitable file manager found")
}

// FindFileWithFallback tries to find a file by its original path, and if not found,
// searches the same directory for a file whose name matches after the
// sanitizing engines apply to titles. Unrelated files are never returned.
func FindFileWithFallback(filePath string) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("file path is empty")
	}

	if strings.HasPrefix(filePath, "http") {
		return "", fmt.Errorf("file path appears to be a URL: %s", filePath)
	}

	if !strings.Contains(filePath, "/") && !strings.Contains(filePath, "\\") {
		return "", fmt.Errorf("file path does not contain path separators: %s", filePath)
	}

	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}

	dir := filepath.Dir(filePath)
	originalName := filepath.Base(filePath)
	originalExt := filepath.Ext(originalName)
	baseName := strings.TrimSuffix(originalName, originalExt)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		entryName := entry.Name()
		if isSkippedFile(entryName) {
			continue
		}
		entryExt := filepath.Ext(entryName)
		entryBase := strings.TrimSuffix(entryName, entryExt)

		if entryExt == originalExt && isSimilarFileName(entryBase, baseName) {
			candidates = append(candidates, filepath.Join(dir, entryName))
		}
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("file not found: %s", filePath)
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

// isSimilarFileName checks if two file names are similar enough to be considered the same file
func isSimilarFileName(name1, name2 string) bool {
	clean1 := strings.TrimSpace(name1)
	clean2 := strings.TrimSpace(name2)

	if clean1 == clean2 {
		return true
	}

	// Sanitizers replace spaces and punctuation with underscores
	if normalizeName(clean1) == normalizeName(clean2) {
		return true
	}

	// Truncated names keep a long enough prefix of the title
	short, long := clean1, clean2
	if len(short) > len(long) {
		short, long = long, short
	}
	return len(short) >= MinFileNameLength &&
		strings.HasPrefix(long, short) &&
		len(long)-len(short) <= MaxNameDifference
}

// normalizeName lowercases name and drops everything but letters and digits
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSkippedFile(filename string) bool {
	if strings.HasPrefix(filename, ".") {
		return true
	}
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}
