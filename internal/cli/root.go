package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytget/ytgrab/internal/config"
	"github.com/ytget/ytgrab/internal/download"
	"github.com/ytget/ytgrab/internal/engine"
	"github.com/ytget/ytgrab/internal/history"
	"github.com/ytget/ytgrab/internal/model"
	"github.com/ytget/ytgrab/internal/platform"
	"github.com/ytget/ytgrab/internal/progress"
	"github.com/ytget/ytgrab/internal/remux"
)

// Console messages
const (
	PromptMessage       = "🔗 Enter YouTube URL: "
	InvalidInputMessage = "❌ Invalid input."
	SuccessPrefix       = "✅ Successfully downloaded: "
	SavedToPrefix       = "💾 Saved to: "
	DownloadFailed      = "🚨 Download failed"
	ErrorPrefix         = "🚨 Error: "
	ClipboardPrefix     = "📋 URL from clipboard: "
)

// rootFlags are the download command flags
type rootFlags struct {
	output      string
	cookies     string
	format      string
	mergeFormat string
	engine      string
	quality     string
	proxy       string
	retries     int
	timeout     time.Duration
	clipboard   bool
	reveal      bool
	install     bool
	noHistory   bool
	verbose     bool
}

// NewRootCmd builds the ytgrab command tree
func NewRootCmd(app *App) *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "ytgrab [url]",
		Short: "Download a YouTube video as MP4",
		Long: `ytgrab downloads a single YouTube video into the output directory.
The URL is taken from the argument, the clipboard (--clipboard) or
prompted for on standard input.`,
		Version:      app.Version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, app, f, args)
		},
	}

	cmd.SetIn(app.In)
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	cmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output directory (default \"videos\")")
	cmd.Flags().StringVar(&f.cookies, "cookies", "", "Netscape cookie file (default \"cookies.txt\")")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Format selection passed to the engine")
	cmd.Flags().StringVar(&f.mergeFormat, "merge-format", "", "Container of the saved file (default \"mp4\")")
	cmd.Flags().StringVarP(&f.engine, "engine", "e", "", "Download engine: "+strings.Join(config.DefaultSettings().GetEngineOptions(), " or "))
	cmd.Flags().StringVar(&f.quality, "quality", "", "Quality selector for the native engine, e.g. best or height<=720")
	cmd.Flags().StringVar(&f.proxy, "proxy", "", "Proxy URL for the native engine")
	cmd.Flags().IntVar(&f.retries, "retries", 0, "Retry a failed download up to N times (max 5)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Abort the download after this duration (0 = no limit)")
	cmd.Flags().BoolVar(&f.clipboard, "clipboard", false, "Read URL from clipboard")
	cmd.Flags().BoolVar(&f.reveal, "reveal", false, "Reveal the saved file in the file manager")
	cmd.Flags().BoolVar(&f.install, "install", false, "Download yt-dlp and ffmpeg if they are missing")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Do not record this download in the history")
	cmd.SetVersionTemplate("ytgrab v{{.Version}}\n")

	cmd.AddCommand(newHistoryCmd(app))
	return cmd
}

// loadSettings merges defaults, environment and explicitly set flags
func loadSettings(cmd *cobra.Command, app *App, f *rootFlags) (*config.Settings, error) {
	s := config.LoadSettings()
	flags := cmd.Flags()

	if flags.Changed("output") {
		s.OutputDir = f.output
	}
	if flags.Changed("cookies") {
		s.CookieFile = f.cookies
	}
	if flags.Changed("format") {
		s.Format = f.format
	}
	if flags.Changed("merge-format") {
		s.MergeFormat = f.mergeFormat
	}
	if flags.Changed("engine") {
		s.Engine = f.engine
	}
	if flags.Changed("retries") {
		s.Retries = f.retries
	}
	if flags.Changed("timeout") {
		s.Timeout = f.timeout
	}
	if flags.Changed("no-history") && f.noHistory {
		s.HistoryPath = ""
	}
	s.RevealOnComplete = f.reveal
	s.InstallTools = f.install
	if flags.Changed("verbose") {
		s.Verbose = f.verbose
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	cwd, err := app.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	s.Resolve(cwd)
	return s, nil
}

// runDownload is the root command: one URL, one download
func runDownload(cmd *cobra.Command, app *App, f *rootFlags, args []string) error {
	settings, err := loadSettings(cmd, app, f)
	if err != nil {
		fmt.Fprintln(app.Out, ErrorPrefix+err.Error())
		return nil
	}
	logger := app.newLogger(settings.Verbose)
	slog.SetDefault(logger)

	input, err := readInput(app, f, args)
	if err != nil {
		fmt.Fprintln(app.Out, ErrorPrefix+err.Error())
		return nil
	}
	if strings.TrimSpace(input) == "" {
		fmt.Fprintln(app.Out, InvalidInputMessage)
		return nil
	}

	eng, err := app.NewEngine(settings.Engine, engine.Config{
		Install: settings.InstallTools,
		Quality: f.quality,
		Proxy:   f.proxy,
	})
	if err != nil {
		fmt.Fprintln(app.Out, ErrorPrefix+err.Error())
		return nil
	}
	logger.Debug("engine selected", slog.String("engine", eng.Name()), slog.String("output", settings.OutputDir))

	renderer := progress.NewRenderer(app.Out, progress.WithTerminal(app.Terminal))
	opts := []download.Option{
		download.WithProgress(renderer.Handle),
		download.WithLogger(logger),
	}

	remuxer := remux.NewService(remux.WithLogger(logger))
	remuxer.SetProgressCallback(renderer.HandleRemux)
	if remuxer.Available() {
		opts = append(opts, download.WithRemuxer(remuxer))
	}

	if settings.HistoryPath != "" {
		store, err := history.Open(settings.HistoryPath)
		if err != nil {
			logger.Warn("history disabled", slog.Any("error", err))
		} else {
			defer store.Close()
			opts = append(opts, download.WithHistory(store))
		}
	}

	svc := download.NewService(eng, settings, opts...)
	task, err := svc.Download(cmd.Context(), input)
	renderer.Done()
	report(app.Out, task, err)

	if err == nil && settings.RevealOnComplete {
		if err := platform.OpenFileInManager(task.OutputPath); err != nil {
			logger.Warn("failed to reveal file", slog.String("path", task.OutputPath), slog.Any("error", err))
		}
	}
	return nil
}

// readInput returns the URL from the argument, the clipboard or the prompt
func readInput(app *App, f *rootFlags, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	if f.clipboard {
		u, err := app.ReadClipboard()
		if err != nil {
			return "", err
		}
		fmt.Fprintln(app.Out, ClipboardPrefix+u)
		return u, nil
	}

	fmt.Fprint(app.Out, PromptMessage)
	return readLine(app.In)
}

// readLine reads one line; a missing trailing newline is accepted
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// report prints the outcome of a download
func report(w io.Writer, task *model.DownloadTask, err error) {
	switch {
	case err == nil:
		fmt.Fprintln(w, SuccessPrefix+task.GetDisplayTitle())
		fmt.Fprintln(w, SavedToPrefix+task.OutputPath)
	case errors.Is(err, download.ErrEmptyInput):
		fmt.Fprintln(w, InvalidInputMessage)
	case errors.Is(err, download.ErrNoResult):
		fmt.Fprintln(w, DownloadFailed)
	default:
		fmt.Fprintln(w, ErrorPrefix+err.Error())
	}
}
