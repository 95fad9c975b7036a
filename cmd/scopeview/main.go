// Package main provides the CLI entrypoint for scopeview.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/scopeview/internal/config"
	"github.com/verte-zerg/scopeview/internal/export"
	"github.com/verte-zerg/scopeview/internal/generator"
	"github.com/verte-zerg/scopeview/internal/model"
	"github.com/verte-zerg/scopeview/internal/scope"
	"github.com/verte-zerg/scopeview/internal/server"
	"github.com/verte-zerg/scopeview/internal/session"
	"github.com/verte-zerg/scopeview/internal/stats"
	"github.com/verte-zerg/scopeview/internal/viewer"
	"github.com/verte-zerg/scopeview/internal/viewport"
)

const defaultSortKey = "index"

var (
	verbose bool

	viewSeparate  bool
	viewEnvelope  bool
	viewMaxPoints int
	viewColor     bool

	statsSort   string
	statsWidth  int
	statsHeight int
	statsNoPlot bool

	exportFormat string
	exportOut    string
	exportDir    string

	serveAddr        string
	serveMaxUploadMB int

	genOut       string
	genSamples   int
	genRate      float64
	genWaves     []string
	genFrequency float64
	genAmplitude float64
	genNoise     float64
	genSeed      int64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scopeview [file]",
		Short:         "Oscilloscope capture viewer",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runViewerCmd,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	addViewFlags(rootCmd)
	rootCmd.Flags().StringVar(&exportFormat, "export-format", config.DefaultExportFmt, "format written by the export key")
	rootCmd.Flags().StringVar(&exportDir, "export-dir", config.DefaultExportDir(), "directory written by the export key")

	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newGenerateCmd())

	return rootCmd
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&viewSeparate, "separate", false, "one plot per channel")
	cmd.Flags().BoolVar(&viewEnvelope, "envelope", false, "min/max envelope instead of decimation")
	cmd.Flags().IntVar(&viewMaxPoints, "max-points", config.DefaultMaxPoints, "rows rendered per view window")
	cmd.Flags().BoolVar(&viewColor, "color", true, "colored traces")
}

func newLogger(w io.Writer) *slog.Logger {
	var level slog.LevelVar
	if verbose {
		level.Set(slog.LevelDebug)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level}))
}

func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Lookup("separate") != nil {
		applyBoolConfig(cmd, "separate", &viewSeparate, fileCfg.View.Separate)
		applyBoolConfig(cmd, "envelope", &viewEnvelope, fileCfg.View.Envelope)
		applyIntConfig(cmd, "max-points", &viewMaxPoints, fileCfg.View.MaxPoints)
		applyBoolConfig(cmd, "color", &viewColor, fileCfg.View.Color)
	}
	return fileCfg, nil
}

func validateViewFlags() error {
	if viewMaxPoints <= 0 {
		return fmt.Errorf("--max-points must be > 0")
	}
	return nil
}

func runViewerCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "export-format", &exportFormat, fileCfg.Export.Format)
	applyStringConfig(cmd, "export-dir", &exportDir, fileCfg.Export.Dir)
	if err := validateViewFlags(); err != nil {
		return err
	}
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return fmt.Errorf("invalid --export-format: %w", err)
	}

	// The alternate screen owns the terminal; only --verbose lets logs through.
	logOut := io.Discard
	if verbose {
		logOut = os.Stderr
	}
	logger := newLogger(logOut)
	sess := session.New(logger)

	opts := viewer.Options{
		Separate:     viewSeparate,
		Envelope:     viewEnvelope,
		Color:        viewColor && os.Getenv("NO_COLOR") == "",
		MaxPoints:    viewMaxPoints,
		ExportFormat: format,
		ExportDir:    exportDir,
	}
	if len(args) == 1 {
		opts.Path = args[0]
	}
	m := viewer.New(sess, logger, opts)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run viewer: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Print capture statistics and a waveform",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatsCmd,
	}
	addViewFlags(cmd)
	cmd.Flags().StringVar(&statsSort, "sort", defaultSortKey, "channel order: "+strings.Join(stats.SortKeys, ", "))
	cmd.Flags().IntVar(&statsWidth, "width", 0, "plot width in columns (default: terminal width)")
	cmd.Flags().IntVar(&statsHeight, "height", 0, "plot height in rows")
	cmd.Flags().BoolVar(&statsNoPlot, "no-plot", false, "skip the waveform")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	if err := validateViewFlags(); err != nil {
		return err
	}
	sess := session.New(newLogger(os.Stderr))
	c, err := sess.LoadFile(args[0])
	if err != nil {
		return err
	}

	report := c.Report()
	sorted, err := stats.SortChannels(report.Statistics.Channels, statsSort)
	if err != nil {
		return fmt.Errorf("invalid --sort: %w", err)
	}
	report.Statistics.Channels = sorted

	out := cmd.OutOrStdout()
	if err := stats.RenderReport(out, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if statsNoPlot {
		return nil
	}
	for _, wf := range waveformsFor(c, viewSeparate) {
		if _, err := fmt.Fprintln(out, ""); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := writeWaveform(out, wf); err != nil {
			return fmt.Errorf("failed to render waveform: %w", err)
		}
	}
	return nil
}

// waveformsFor builds the plots of the initial view window: one overlay, or
// one plot per enabled channel in separate mode.
func waveformsFor(c *session.Capture, separate bool) []stats.Waveform {
	visible := viewport.VisibleIndices(c.Dataset, c.Settings, nil)
	if len(visible) == 0 {
		return nil
	}
	build := func(indices []int, window model.ViewWindow) stats.Waveform {
		names := make([]string, len(indices))
		for i, idx := range indices {
			names[i] = c.Dataset.Channels[idx].Name
		}
		var rows []model.Row
		if viewEnvelope {
			rows = viewport.DownsampleEnvelope(c.Dataset, window.X, indices, viewMaxPoints)
		} else {
			rows = viewport.Downsample(c.Dataset, window.X, indices, viewMaxPoints)
		}
		return stats.Waveform{
			Names:  names,
			Rows:   rows,
			Window: window,
			Width:  statsWidth,
			Height: statsHeight,
		}
	}
	if !separate {
		return []stats.Waveform{build(visible, viewport.Recenter(c.Settings, nil, false))}
	}
	out := make([]stats.Waveform, 0, len(visible))
	for _, idx := range visible {
		name := c.Dataset.Channels[idx].Name
		out = append(out, build([]int{idx}, viewport.Recenter(c.Settings, []string{name}, true)))
	}
	return out
}

func writeWaveform(w io.Writer, wf stats.Waveform) error {
	if viewColor {
		return stats.PlotWaveform(w, wf)
	}
	return stats.WriteWaveform(w, wf, false)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a capture as csv, yaml, json, sqlite or png",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	addViewFlags(cmd)
	cmd.Flags().StringVarP(&exportFormat, "format", "f", config.DefaultExportFmt, "export format")
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default: <dir>/<name>)")
	cmd.Flags().StringVar(&exportDir, "dir", config.DefaultExportDir(), "output directory")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "format", &exportFormat, fileCfg.Export.Format)
	applyStringConfig(cmd, "dir", &exportDir, fileCfg.Export.Dir)
	if err := validateViewFlags(); err != nil {
		return err
	}
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return fmt.Errorf("invalid --format: %w", err)
	}

	logger := newLogger(os.Stderr)
	sess := session.New(logger)
	c, err := sess.LoadFile(args[0])
	if err != nil {
		return err
	}
	path, err := export.WriteFile(cmd.Context(), logger, c, export.Options{
		Format:    format,
		Out:       exportOut,
		Dir:       exportDir,
		Envelope:  viewEnvelope,
		MaxPoints: viewMaxPoints,
	})
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic capture file",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}
	cmd.Flags().StringVarP(&genOut, "out", "o", "synthetic.scp", "output path")
	cmd.Flags().IntVar(&genSamples, "samples", 2000, "samples per channel")
	cmd.Flags().Float64Var(&genRate, "rate", 1e6, "sample rate in Hz")
	cmd.Flags().StringSliceVar(&genWaves, "wave", []string{"sine"}, "waveform per channel (sine, square, triangle, sawtooth, noise)")
	cmd.Flags().Float64Var(&genFrequency, "freq", 1e3, "signal frequency in Hz")
	cmd.Flags().Float64Var(&genAmplitude, "amplitude", 1, "peak amplitude in volts")
	cmd.Flags().Float64Var(&genNoise, "noise", 0, "uniform noise amplitude in volts")
	cmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (0 uses the clock)")
	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	cfg := generator.Config{Samples: genSamples, SampleRate: genRate}
	for i, name := range genWaves {
		wave, err := generator.ParseWaveform(name)
		if err != nil {
			return fmt.Errorf("invalid --wave: %w", err)
		}
		cfg.Signals = append(cfg.Signals, generator.Signal{
			Wave:      wave,
			Frequency: genFrequency,
			Amplitude: genAmplitude,
			Phase:     float64(i) * math.Pi / 2,
			Noise:     genNoise,
		})
	}

	gen := generator.New()
	if genSeed != 0 {
		gen = generator.NewWithSeed(genSeed)
	}
	ds, err := gen.Dataset(cfg, filepath.Base(genOut))
	if err != nil {
		return fmt.Errorf("failed to generate capture: %w", err)
	}
	if err := writeCaptureFile(genOut, ds); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), genOut); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func writeCaptureFile(path string, ds *model.Dataset) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "capture-*")
	if err != nil {
		return fmt.Errorf("failed to create temp capture: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if err := generator.WriteCapture(tmpFile, ds, scope.DefaultSettings(ds)); err != nil {
		return fmt.Errorf("failed to write capture: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close capture: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write capture: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the capture API over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	addViewFlags(cmd)
	cmd.Flags().StringVar(&serveAddr, "addr", config.DefaultServeAddr, "listen address")
	cmd.Flags().IntVar(&serveMaxUploadMB, "max-upload-mb", config.DefaultMaxUploadMB, "largest accepted capture in MiB")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Serve.Addr)
	applyIntConfig(cmd, "max-upload-mb", &serveMaxUploadMB, fileCfg.Serve.MaxUploadMB)
	if err := validateViewFlags(); err != nil {
		return err
	}
	if serveMaxUploadMB <= 0 {
		return fmt.Errorf("--max-upload-mb must be > 0")
	}

	logger := newLogger(os.Stderr)
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	sess := session.New(logger)
	sess.SetSizeLimit(int64(serveMaxUploadMB) << 20)
	router := server.NewRouter(sess, logger, server.Options{
		MaxPoints: viewMaxPoints,
		Envelope:  viewEnvelope,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx, serveAddr, router, logger)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := config.EnsureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}
