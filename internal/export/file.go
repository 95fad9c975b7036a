package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/scopeview/internal/model"
	"github.com/verte-zerg/scopeview/internal/session"
	"github.com/verte-zerg/scopeview/internal/store"
	"github.com/verte-zerg/scopeview/internal/viewport"
)

// Options controls where and how a capture is exported.
type Options struct {
	Format Format
	// Out is the target path. When empty the file is named after the
	// capture's source inside Dir.
	Out       string
	Dir       string
	Envelope  bool
	MaxPoints int
	// Window overrides the view window of PNG snapshots.
	Window *model.ViewWindow
}

// Path resolves the output path for a capture.
func (o Options) Path(source string) string {
	if o.Out != "" {
		return o.Out
	}
	return filepath.Join(o.Dir, FileName(source, o.Format))
}

// WriteFile exports c according to opts and returns the written path.
func WriteFile(ctx context.Context, logger *slog.Logger, c *session.Capture, opts Options) (string, error) {
	if c == nil {
		return "", session.ErrNoCapture
	}
	path := opts.Path(c.Dataset.SourceName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	start := time.Now()
	var err error
	if opts.Format == FormatSQLite {
		err = writeSQLite(ctx, path, c)
	} else {
		err = writeAtomic(path, func(w io.Writer) error {
			return Write(w, c, opts)
		})
	}
	if err != nil {
		return "", err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("capture exported", "id", c.ID, "format", string(opts.Format), "path", path, "elapsed", time.Since(start))
	return path, nil
}

// Write encodes c in a stream format. SQLite needs a file and is rejected.
func Write(w io.Writer, c *session.Capture, opts Options) error {
	switch opts.Format {
	case FormatCSV:
		return WriteCSV(w, c.Dataset)
	case FormatYAML, FormatJSON:
		return WriteReport(w, c.Report(), opts.Format)
	case FormatPNG:
		window := viewport.Recenter(c.Settings, nil, false)
		if opts.Window != nil {
			window = *opts.Window
		}
		return WritePNG(w, Snapshot{
			Dataset:    c.Dataset,
			Settings:   c.Settings,
			Statistics: c.Statistics,
			Window:     window,
			Envelope:   opts.Envelope,
			MaxPoints:  opts.MaxPoints,
		})
	}
	return fmt.Errorf("format %q cannot be streamed", opts.Format)
}

func writeSQLite(ctx context.Context, path string, c *session.Capture) error {
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open export db: %w", err)
	}
	saveErr := st.SaveCapture(ctx, store.Record{
		ID:         c.ID,
		ExportedAt: time.Now(),
		Dataset:    c.Dataset,
		Statistics: c.Statistics,
		Settings:   c.Settings,
	})
	if cerr := st.Close(); cerr != nil && saveErr == nil {
		return fmt.Errorf("failed to close export db: %w", cerr)
	}
	if saveErr != nil {
		return fmt.Errorf("failed to save capture: %w", saveErr)
	}
	return nil
}

func writeAtomic(path string, fn func(io.Writer) error) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp export: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := fn(writer); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
