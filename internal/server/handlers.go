package server

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/scopeview/internal/export"
	"github.com/verte-zerg/scopeview/internal/model"
	"github.com/verte-zerg/scopeview/internal/scope"
	"github.com/verte-zerg/scopeview/internal/session"
	"github.com/verte-zerg/scopeview/internal/viewport"
)

// Handler serves API requests against one session.
type Handler struct {
	session *session.Session
	logger  *slog.Logger
	opts    Options
}

// CaptureResponse describes the loaded capture.
type CaptureResponse struct {
	ID             string              `json:"id"`
	Source         string              `json:"source"`
	LoadedAt       time.Time           `json:"loadedAt"`
	HeaderSettings bool                `json:"headerSettings"`
	Channels       []string            `json:"channels"`
	Statistics     model.Statistics    `json:"statistics"`
	Settings       model.ScopeSettings `json:"settings"`
	View           model.ViewWindow    `json:"view"`
}

// ViewResponse is a view window with its grid ticks.
type ViewResponse struct {
	model.ViewWindow
	XTicks []float64 `json:"xTicks"`
	YTicks []float64 `json:"yTicks"`
}

// SamplesResponse holds downsampled rows; Names labels the row values.
type SamplesResponse struct {
	Names []string    `json:"names"`
	Rows  []model.Row `json:"rows"`
}

// StepRequest applies one scope control step.
type StepRequest struct {
	Control   string `json:"control" binding:"required"`
	Channel   string `json:"channel"`
	Direction int    `json:"direction"`
}

// ZoomRequest zooms a domain around a cursor fraction.
type ZoomRequest struct {
	Domain   model.Domain `json:"domain"`
	Fraction float64      `json:"fraction"`
	Factor   float64      `json:"factor" binding:"required"`
}

// PanRequest shifts a domain by a fraction of its span.
type PanRequest struct {
	Domain        model.Domain `json:"domain"`
	DeltaFraction float64      `json:"deltaFraction"`
}

func newCaptureResponse(c *session.Capture) CaptureResponse {
	return CaptureResponse{
		ID:             c.ID,
		Source:         c.Dataset.SourceName,
		LoadedAt:       c.LoadedAt.UTC(),
		HeaderSettings: c.HeaderSettings,
		Channels:       c.Dataset.ChannelNames(),
		Statistics:     c.Statistics,
		Settings:       c.Settings,
		View:           viewport.Recenter(c.Settings, nil, false),
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// Upload loads a multipart "file" field as the current capture.
func (h *Handler) Upload(c *gin.Context) {
	limit := h.session.SizeLimit()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			abortWithError(c, "upload too large", err)
			return
		}
		abortWithError(c, "invalid upload", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		abortWithError(c, "invalid upload", err)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			h.logger.Warn("failed to close upload", "file", fh.Filename, "err", cerr)
		}
	}()

	loaded, err := h.session.LoadReader(fh.Filename, fh.Size, f)
	if err != nil {
		abortWithError(c, "capture rejected", err)
		return
	}
	c.JSON(http.StatusCreated, newCaptureResponse(loaded))
}

func (h *Handler) current(c *gin.Context) (*session.Capture, bool) {
	cur, ok := h.session.Current()
	if !ok {
		abortWithError(c, "no capture", session.ErrNoCapture)
		return nil, false
	}
	return cur, true
}

// Current returns the loaded capture.
func (h *Handler) Current(c *gin.Context) {
	cur, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newCaptureResponse(cur))
}

// Clear discards the loaded capture.
func (h *Handler) Clear(c *gin.Context) {
	h.session.Clear()
	c.Status(http.StatusNoContent)
}

// Statistics returns the capture statistics.
func (h *Handler) Statistics(c *gin.Context) {
	cur, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cur.Statistics)
}

// Settings returns the scope settings.
func (h *Handler) Settings(c *gin.Context) {
	cur, ok := h.current(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cur.Settings)
}

// UpdateSettings replaces the scope settings.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req model.ScopeSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, "invalid request", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	updated, err := h.session.SetSettings(req)
	if err != nil {
		abortWithError(c, "settings rejected", err)
		return
	}
	c.JSON(http.StatusOK, newCaptureResponse(updated))
}

// ResetSettings derives settings from the data.
func (h *Handler) ResetSettings(c *gin.Context) {
	updated, err := h.session.ResetScope()
	if err != nil {
		abortWithError(c, "reset failed", err)
		return
	}
	c.JSON(http.StatusOK, newCaptureResponse(updated))
}

// StepSettings applies one instrument control step.
func (h *Handler) StepSettings(c *gin.Context) {
	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, "invalid request", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	step, err := stepFunc(req)
	if err != nil {
		abortWithError(c, "invalid request", err)
		return
	}
	updated, err := h.session.UpdateSettings(step)
	if err != nil {
		abortWithError(c, "step failed", err)
		return
	}
	c.JSON(http.StatusOK, newCaptureResponse(updated))
}

func stepFunc(req StepRequest) (func(model.ScopeSettings) model.ScopeSettings, error) {
	needsChannel := func() error {
		if req.Channel == "" {
			return fmt.Errorf("%w: control %q needs a channel", errBadRequest, req.Control)
		}
		return nil
	}
	switch strings.ToLower(req.Control) {
	case "timebase":
		return func(s model.ScopeSettings) model.ScopeSettings { return scope.StepTimebase(s, req.Direction) }, nil
	case "xposition":
		return func(s model.ScopeSettings) model.ScopeSettings { return scope.StepXPosition(s, req.Direction) }, nil
	case "volts":
		if err := needsChannel(); err != nil {
			return nil, err
		}
		return func(s model.ScopeSettings) model.ScopeSettings {
			return scope.StepVoltsPerDiv(s, req.Channel, req.Direction)
		}, nil
	case "yposition":
		if err := needsChannel(); err != nil {
			return nil, err
		}
		return func(s model.ScopeSettings) model.ScopeSettings {
			return scope.StepYPosition(s, req.Channel, req.Direction)
		}, nil
	case "toggle":
		if err := needsChannel(); err != nil {
			return nil, err
		}
		return func(s model.ScopeSettings) model.ScopeSettings { return scope.ToggleChannel(s, req.Channel) }, nil
	}
	return nil, fmt.Errorf("%w: unknown control %q", errBadRequest, req.Control)
}

// View returns the view window derived from the settings. With
// separate=true and a channel, the y domain is that channel's own.
func (h *Handler) View(c *gin.Context) {
	cur, ok := h.current(c)
	if !ok {
		return
	}
	separate, err := queryBool(c, "separate", false)
	if err != nil {
		abortWithError(c, "invalid query", err)
		return
	}
	var visible []string
	if name := c.Query("channel"); name != "" {
		visible = []string{name}
	}
	w := viewport.Recenter(cur.Settings, visible, separate)
	xs, ys := viewport.WindowTicks(w)
	c.JSON(http.StatusOK, ViewResponse{ViewWindow: w, XTicks: xs, YTicks: ys})
}

// Samples returns downsampled rows for a time window, by default the
// current view.
func (h *Handler) Samples(c *gin.Context) {
	cur, ok := h.current(c)
	if !ok {
		return
	}
	view := viewport.Recenter(cur.Settings, nil, false)
	xmin, err := queryFloat(c, "xmin", view.X.Min)
	if err != nil {
		abortWithError(c, "invalid query", err)
		return
	}
	xmax, err := queryFloat(c, "xmax", view.X.Max)
	if err != nil {
		abortWithError(c, "invalid query", err)
		return
	}
	maxPoints, err := queryInt(c, "maxPoints", h.opts.MaxPoints)
	if err != nil {
		abortWithError(c, "invalid query", err)
		return
	}
	envelope, err := queryBool(c, "envelope", h.opts.Envelope)
	if err != nil {
		abortWithError(c, "invalid query", err)
		return
	}
	var names []string
	if raw := c.Query("channels"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			names = append(names, strings.TrimSpace(name))
		}
	}

	visible := viewport.VisibleIndices(cur.Dataset, cur.Settings, names)
	domain := model.Domain{Min: xmin, Max: xmax}
	resp := SamplesResponse{Names: make([]string, len(visible))}
	for i, idx := range visible {
		resp.Names[i] = cur.Dataset.Channels[idx].Name
	}
	if envelope {
		resp.Rows = viewport.DownsampleEnvelope(cur.Dataset, domain, visible, maxPoints)
	} else {
		resp.Rows = viewport.Downsample(cur.Dataset, domain, visible, maxPoints)
	}
	if resp.Rows == nil {
		resp.Rows = []model.Row{}
	}
	c.JSON(http.StatusOK, resp)
}

// Export streams the capture in the requested format as an attachment.
func (h *Handler) Export(c *gin.Context) {
	cur, ok := h.current(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		abortWithError(c, "invalid export format", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	name := export.FileName(cur.Dataset.SourceName, format)

	if format == export.FormatSQLite {
		dir, err := os.MkdirTemp("", "scopeview-export-*")
		if err != nil {
			abortWithError(c, "export failed", err)
			return
		}
		defer func() {
			_ = os.RemoveAll(dir)
		}()
		path, err := export.WriteFile(c.Request.Context(), h.logger, cur, export.Options{Format: format, Out: filepath.Join(dir, name)})
		if err != nil {
			abortWithError(c, "export failed", err)
			return
		}
		c.FileAttachment(path, name)
		return
	}

	var buf bytes.Buffer
	opts := export.Options{Format: format, Envelope: h.opts.Envelope, MaxPoints: h.opts.MaxPoints}
	if err := export.Write(&buf, cur, opts); err != nil {
		abortWithError(c, "export failed", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType(format), buf.Bytes())
}

func contentType(f export.Format) string {
	switch f {
	case export.FormatCSV:
		return "text/csv; charset=utf-8"
	case export.FormatYAML:
		return "application/yaml"
	case export.FormatJSON:
		return "application/json"
	case export.FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Zoom applies a wheel zoom to a domain.
func (h *Handler) Zoom(c *gin.Context) {
	var req ZoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, "invalid request", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	c.JSON(http.StatusOK, viewport.Zoom(req.Domain, req.Fraction, req.Factor))
}

// Pan shifts a domain by a drag displacement.
func (h *Handler) Pan(c *gin.Context) {
	var req PanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, "invalid request", fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	c.JSON(http.StatusOK, viewport.Pan(req.Domain, req.DeltaFraction))
}

func queryFloat(c *gin.Context, name string, def float64) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number", errBadRequest, name)
	}
	return v, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return v, nil
}

func queryBool(c *gin.Context, name string, def bool) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errBadRequest, name)
	}
	return v, nil
}
