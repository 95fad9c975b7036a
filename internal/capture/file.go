package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxFileSize is the largest accepted capture file.
const MaxFileSize int64 = 50 * 1024 * 1024

// AcceptedExtensions lists the capture file extensions.
var AcceptedExtensions = []string{".scp", ".txt", ".csv"}

// ValidateFile checks a capture's name and size before parsing.
func ValidateFile(name string, size int64) error {
	return ValidateFileLimit(name, size, MaxFileSize)
}

// ValidateFileLimit is ValidateFile with a custom size limit.
func ValidateFileLimit(name string, size, limit int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	supported := false
	for _, accepted := range AcceptedExtensions {
		if ext == accepted {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w %q (expected %s)", ErrUnsupportedFileType, ext, strings.Join(AcceptedExtensions, ", "))
	}
	if limit > 0 && size > limit {
		return fmt.Errorf("%w: %s exceeds %s limit", ErrFileTooLarge,
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))
	}
	return nil
}

// ReadFile validates and reads a capture file from disk.
func ReadFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat capture: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if err := ValidateFile(info.Name(), info.Size()); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	return ReadLimited(f, MaxFileSize)
}

// ReadLimited reads r fully, failing with ErrFileTooLarge past limit bytes.
func ReadLimited(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read capture: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: more than %s", ErrFileTooLarge, humanize.IBytes(uint64(limit)))
	}
	return string(data), nil
}
