// Package export writes captures and their statistics to files.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV    Format = "csv"
	FormatYAML   Format = "yaml"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
	FormatPNG    Format = "png"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatYAML, FormatJSON, FormatSQLite, FormatPNG}

// ParseFormat accepts a format name case-insensitively; "yml" and "db" are aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "sqlite", "db":
		return FormatSQLite, nil
	case "png":
		return FormatPNG, nil
	}
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return "", fmt.Errorf("unknown export format %q (expected one of %s)", s, strings.Join(names, ", "))
}

// Stem is the part of a source file name before its first dot.
func Stem(source string) string {
	base := filepath.Base(source)
	stem, _, _ := strings.Cut(base, ".")
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "capture"
	}
	return stem
}

// FileName returns the default export file name for a source and format.
func FileName(source string, f Format) string {
	stem := Stem(source)
	switch f {
	case FormatCSV:
		return stem + "_data.csv"
	case FormatYAML:
		return stem + "_report.yaml"
	case FormatJSON:
		return stem + "_report.json"
	case FormatSQLite:
		return stem + ".db"
	case FormatPNG:
		return stem + "_snapshot.png"
	}
	return stem + "." + string(f)
}
