package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
)

// Engine names
const (
	EngineYTDLP  = "yt-dlp"
	EngineNative = "native"
)

// Environment keys
const (
	KeyOutputDir   = "YTGRAB_OUTPUT_DIR"
	KeyCookieFile  = "YTGRAB_COOKIES"
	KeyFormat      = "YTGRAB_FORMAT"
	KeyMergeFormat = "YTGRAB_MERGE_FORMAT"
	KeyUserAgent   = "YTGRAB_USER_AGENT"
	KeyReferer     = "YTGRAB_REFERER"
	KeyEngine      = "YTGRAB_ENGINE"
	KeyHistoryDB   = "YTGRAB_HISTORY_DB"
	KeyRetries     = "YTGRAB_RETRIES"
	KeyTimeout     = "YTGRAB_TIMEOUT"
)

// Default values
const (
	DefaultOutputDir        = "videos"
	DefaultFilenameTemplate = "%(title)s.%(ext)s"
	DefaultFormat           = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	DefaultMergeFormat      = "mp4"
	DefaultCookieFile       = "cookies.txt"
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	DefaultReferer          = "https://www.youtube.com/"
	DefaultEngine           = EngineYTDLP
	DefaultRetries          = 0
	DefaultRetryDelay       = 2 * time.Second
	DefaultTimeout          = time.Duration(0)

	MaxRetries = 5

	AppDirName      = "ytgrab"
	HistoryFileName = "history.db"
)

// Settings holds the configuration of a single invocation
type Settings struct {
	OutputDir        string
	FilenameTemplate string
	Format           string
	MergeFormat      string
	IgnoreErrors     bool
	CookieFile       string
	UserAgent        string
	Referer          string
	Engine           string
	Retries          int
	RetryDelay       time.Duration
	Timeout          time.Duration
	HistoryPath      string // empty disables history
	InstallTools     bool
	RevealOnComplete bool
	Verbose          bool
}

// DefaultSettings returns settings matching the classic script behavior
func DefaultSettings() *Settings {
	return &Settings{
		OutputDir:        DefaultOutputDir,
		FilenameTemplate: DefaultFilenameTemplate,
		Format:           DefaultFormat,
		MergeFormat:      DefaultMergeFormat,
		IgnoreErrors:     true,
		CookieFile:       DefaultCookieFile,
		UserAgent:        DefaultUserAgent,
		Referer:          DefaultReferer,
		Engine:           DefaultEngine,
		Retries:          DefaultRetries,
		RetryDelay:       DefaultRetryDelay,
		Timeout:          DefaultTimeout,
		HistoryPath:      DefaultHistoryPath(),
	}
}

// LoadSettings returns default settings overridden by the environment
func LoadSettings() *Settings {
	s := DefaultSettings()
	s.OutputDir = env.Str(KeyOutputDir, s.OutputDir)
	s.CookieFile = env.Str(KeyCookieFile, s.CookieFile)
	s.Format = env.Str(KeyFormat, s.Format)
	s.MergeFormat = env.Str(KeyMergeFormat, s.MergeFormat)
	s.UserAgent = env.Str(KeyUserAgent, s.UserAgent)
	s.Referer = env.Str(KeyReferer, s.Referer)
	s.Engine = env.Str(KeyEngine, s.Engine)
	s.HistoryPath = env.Str(KeyHistoryDB, s.HistoryPath)
	s.Retries = env.Int(KeyRetries, s.Retries)
	s.Timeout = env.Duration(KeyTimeout, s.Timeout)
	return s
}

// Validate fills empty values with defaults, clamps numeric values and
// rejects unknown engines
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.OutputDir) == "" {
		s.OutputDir = DefaultOutputDir
	}
	if s.FilenameTemplate == "" {
		s.FilenameTemplate = DefaultFilenameTemplate
	}
	if s.Format == "" {
		s.Format = DefaultFormat
	}
	s.MergeFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s.MergeFormat)), ".")
	if s.MergeFormat == "" {
		s.MergeFormat = DefaultMergeFormat
	}
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}
	if s.Referer == "" {
		s.Referer = DefaultReferer
	}
	if s.Retries < 0 {
		s.Retries = 0
	}
	if s.Retries > MaxRetries {
		s.Retries = MaxRetries
	}
	if s.RetryDelay < 0 {
		s.RetryDelay = 0
	}
	if s.Timeout < 0 {
		s.Timeout = 0
	}

	s.Engine = strings.ToLower(strings.TrimSpace(s.Engine))
	if s.Engine == "" {
		s.Engine = DefaultEngine
	}
	if engines := s.GetEngineOptions(); !slices.Contains(engines, s.Engine) {
		return fmt.Errorf("unknown engine %q (expected %s)", s.Engine, strings.Join(engines, " or "))
	}
	return nil
}

// Resolve turns the relative output directory and cookie file into absolute
// paths rooted at base
func (s *Settings) Resolve(base string) {
	if !filepath.IsAbs(s.OutputDir) {
		s.OutputDir = filepath.Join(base, s.OutputDir)
	}
	if s.CookieFile != "" && !filepath.IsAbs(s.CookieFile) {
		s.CookieFile = filepath.Join(base, s.CookieFile)
	}
}

// OutputTemplate returns the engine output template inside the output directory
func (s *Settings) OutputTemplate() string {
	return filepath.Join(s.OutputDir, s.FilenameTemplate)
}

// Headers returns the spoofed browser headers sent to the video host
func (s *Settings) Headers() map[string]string {
	return map[string]string{
		"User-Agent": s.UserAgent,
		"Referer":    s.Referer,
	}
}

// GetEngineOptions returns available engine names
func (s *Settings) GetEngineOptions() []string {
	return []string{EngineYTDLP, EngineNative}
}

// DefaultHistoryPath returns the per-user history database location
func DefaultHistoryPath() string {
	return filepath.Join(appDir(), HistoryFileName)
}

// appDir returns the per-user data root based on OS conventions
func appDir() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(appData, AppDirName)
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", AppDirName)
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, _ := os.UserHomeDir()
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, AppDirName)
	}
}
