package util

import (
	"os"
	"path/filepath"
	"strings"
)

// videoExtensions are the containers ffmpeg is asked to open by name
var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true,
	".avi": true, ".m4v": true, ".flv": true, ".ts": true,
}

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// IsRegularFile reports whether path names an existing regular file
func IsRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// TempFile creates a temporary file with a specific extension
func TempFile(dir, pattern, ext string) (*os.File, error) {
	if dir != "" {
		if err := EnsureDir(dir); err != nil {
			return nil, err
		}
	}
	return os.CreateTemp(dir, pattern+"*"+ext)
}

// CleanupFiles removes multiple files, ignoring errors
func CleanupFiles(paths ...string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}

// VideoExtension returns the lower-cased extension of name when it is a
// known video container, otherwise fallback.
func VideoExtension(name, fallback string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if videoExtensions[ext] {
		return ext
	}
	return fallback
}
