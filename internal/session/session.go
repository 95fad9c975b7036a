// Package session owns the loaded capture and its state transitions.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/scopeview/internal/capture"
	"github.com/verte-zerg/scopeview/internal/model"
	"github.com/verte-zerg/scopeview/internal/scope"
	"github.com/verte-zerg/scopeview/internal/stats"
)

var (
	// ErrNoCapture is returned when an operation needs a loaded capture.
	ErrNoCapture = errors.New("no capture loaded")
	// ErrInvalidSettings is returned for settings that cannot be displayed.
	ErrInvalidSettings = errors.New("invalid scope settings")
)

// Capture is an immutable snapshot of one loaded file. Mutating operations on
// Session replace the snapshot instead of modifying it.
type Capture struct {
	ID             string
	Dataset        *model.Dataset
	Statistics     model.Statistics
	Settings       model.ScopeSettings
	HeaderSettings bool
	LoadedAt       time.Time
}

// Report bundles the capture's statistics and settings.
func (c *Capture) Report() stats.Report {
	return stats.Report{
		Source:     c.Dataset.SourceName,
		Statistics: c.Statistics,
		Settings:   c.Settings.Clone(),
	}
}

// Session holds at most one capture. It is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	current   *Capture
	sizeLimit int64
	now       func() time.Time
}

// New returns an empty session.
func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		logger:    logger,
		sizeLimit: capture.MaxFileSize,
		now:       time.Now,
	}
}

// SetSizeLimit overrides the maximum accepted capture size in bytes.
func (s *Session) SetSizeLimit(limit int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 {
		s.sizeLimit = limit
	}
}

// SizeLimit returns the maximum accepted capture size in bytes.
func (s *Session) SizeLimit() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sizeLimit
}

// Load validates and parses content and makes it the current capture. The
// previous capture is discarded first, so a failed load leaves the session
// empty.
func (s *Session) Load(name, content string) (*Capture, error) {
	s.Clear()
	if err := capture.ValidateFileLimit(name, int64(len(content)), s.SizeLimit()); err != nil {
		s.logger.Warn("capture rejected", "file", name, "err", err)
		return nil, err
	}
	start := s.now()
	res, err := capture.Parse(content, filepath.Base(name))
	if err != nil {
		s.logger.Warn("capture parse failed", "file", name, "err", err)
		return nil, err
	}

	c := &Capture{
		ID:         uuid.NewString(),
		Dataset:    &res.Dataset,
		Statistics: stats.Compute(&res.Dataset),
		LoadedAt:   s.now(),
	}
	if res.Settings != nil {
		c.Settings = *res.Settings
		c.HeaderSettings = true
	} else {
		c.Settings = scope.DefaultSettings(&res.Dataset)
	}

	s.mu.Lock()
	s.current = c
	s.mu.Unlock()

	s.logger.Info("capture loaded",
		"id", c.ID,
		"file", c.Dataset.SourceName,
		"samples", c.Dataset.Len(),
		"channels", len(c.Dataset.Channels),
		"header_settings", c.HeaderSettings,
		"elapsed", c.LoadedAt.Sub(start),
	)
	return c, nil
}

// LoadFile reads path from disk and loads it. A read failure also discards
// the previous capture.
func (s *Session) LoadFile(path string) (*Capture, error) {
	content, err := capture.ReadFile(path)
	if err != nil {
		s.Clear()
		s.logger.Warn("capture read failed", "path", path, "err", err)
		return nil, err
	}
	return s.Load(path, content)
}

// LoadReader loads an upload of the declared size from r.
func (s *Session) LoadReader(name string, size int64, r io.Reader) (*Capture, error) {
	s.Clear()
	limit := s.SizeLimit()
	if err := capture.ValidateFileLimit(name, size, limit); err != nil {
		s.logger.Warn("capture rejected", "file", name, "err", err)
		return nil, err
	}
	content, err := capture.ReadLimited(r, limit)
	if err != nil {
		return nil, err
	}
	return s.Load(name, content)
}

// Current returns the loaded capture.
func (s *Session) Current() (*Capture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// SetSettings replaces the scope settings of the current capture.
func (s *Session) SetSettings(settings model.ScopeSettings) (*Capture, error) {
	if !scope.Validate(settings) {
		return nil, ErrInvalidSettings
	}
	return s.replace(func(c *Capture) error {
		for _, ch := range settings.Channels {
			if _, ok := c.Dataset.ChannelIndex(ch.Name); !ok {
				return fmt.Errorf("%w: unknown channel %q", ErrInvalidSettings, ch.Name)
			}
		}
		c.Settings = settings.Clone()
		return nil
	})
}

// UpdateSettings applies fn to the current settings, e.g. a scope control step.
func (s *Session) UpdateSettings(fn func(model.ScopeSettings) model.ScopeSettings) (*Capture, error) {
	return s.replace(func(c *Capture) error {
		next := fn(c.Settings)
		if !scope.Validate(next) {
			return ErrInvalidSettings
		}
		c.Settings = next
		return nil
	})
}

// ResetScope replaces the settings with ones derived from the data.
func (s *Session) ResetScope() (*Capture, error) {
	return s.replace(func(c *Capture) error {
		c.Settings = scope.DefaultSettings(c.Dataset)
		c.HeaderSettings = false
		return nil
	})
}

// Clear discards the current capture.
func (s *Session) Clear() {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()
	if prev != nil {
		s.logger.Info("capture cleared", "id", prev.ID)
	}
}

func (s *Session) replace(fn func(*Capture) error) (*Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoCapture
	}
	next := *s.current
	next.Settings = s.current.Settings.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	s.current = &next
	s.logger.Debug("scope settings updated", "id", next.ID, "time_per_div", next.Settings.TimePerDiv)
	return &next, nil
}
