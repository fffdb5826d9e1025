package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-songsterr-download/internal/api"
	"go-songsterr-download/internal/config"
	"go-songsterr-download/internal/models"
	"go-songsterr-download/internal/paths"
	"go-songsterr-download/internal/pipeline"
)

// rootOptions holds the raw flag values. Only flags the user actually set are
// forwarded to config.Initialize.
type rootOptions struct {
	cfgFile         string
	logLevel        string
	logFormat       string
	logAPI          bool
	apiTimeout      int
	downloadTimeout int

	outputDir   string
	file        string
	interactive bool
	maxResults  int
	onError     string
	onCollision string
}

// app carries the streams and state shared by all subcommands of one invocation.
type app struct {
	opts   rootOptions
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	stdinIsTerminal bool

	// populated by loadGlobalConfig
	cfg       models.Config
	transport http.RoundTripper
}

// Execute runs the CLI against the process streams and exits non-zero on error.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, stdinIsTerminal())
	stop()
	os.Exit(code)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer, terminal bool) int {
	a := &app{in: in, out: out, errOut: errOut, stdinIsTerminal: terminal}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	a.closeTransport()
	if err != nil {
		color.New(color.FgRed).Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "songsterr-downloader [url...]",
		Short: "Download Guitar Pro files from Songsterr",
		Long: `Songsterr Downloader resolves Songsterr tab URLs or free-text searches to a
song revision and saves that revision's Guitar Pro file locally.

In batch mode (the default) every reference must be a tab URL and the latest
revision of each song is downloaded. With --interactive, search terms are
accepted and you choose the song and revision from a list.`,
		Example: `  songsterr-downloader https://www.songsterr.com/a/wsa/amebix-arise-tab-s68806
  songsterr-downloader -f urls.txt -o tabs
  cat urls.txt | songsterr-downloader --on-error continue
  songsterr-downloader -i amebix arise`,
		Args:              cobra.ArbitraryArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.loadGlobalConfig, // Load config before any command runs
		RunE:              a.runDownload,
	}
	rootCmd.SetIn(a.in)
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(a.errOut)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.opts.cfgFile, "config", "", "Configuration file path (default is ./config.toml or ~/.config/songsterr-downloader/config.toml)")
	pf.StringVar(&a.opts.logLevel, "log-level", config.DefaultLogLevel, "Logging level (trace, debug, info, warn, error)")
	pf.StringVar(&a.opts.logFormat, "log-format", config.DefaultLogFormat, "Logging format (text, json)")
	pf.BoolVar(&a.opts.logAPI, "log-api", false, "Log API requests/responses to api.log (overrides config)")
	pf.IntVar(&a.opts.apiTimeout, "api-timeout", config.DefaultAPITimeoutSec, "Timeout for API lookups in seconds")
	pf.IntVar(&a.opts.downloadTimeout, "download-timeout", config.DefaultDownloadTimeoutSec, "Timeout waiting for a file download to start, in seconds")

	f := rootCmd.Flags()
	f.StringVarP(&a.opts.outputDir, "out", "o", config.DefaultOutputDir, "Directory to save files into")
	f.StringVarP(&a.opts.file, "file", "f", "", "Read references from a file, one per line ('-' for stdin)")
	f.BoolVarP(&a.opts.interactive, "interactive", "i", false, "Search and choose songs and revisions interactively")
	f.IntVar(&a.opts.maxResults, "max-results", config.DefaultMaxResults, "Maximum number of search results to list")
	f.StringVar(&a.opts.onError, "on-error", pipeline.OnErrorAbort, "What to do when a song fails: abort or continue")
	f.StringVar(&a.opts.onCollision, "on-collision", paths.CollisionSuffix, "When the target file exists: suffix, overwrite or skip")

	rootCmd.AddCommand(newDebugCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// loadGlobalConfig sets up logging, then loads the configuration and the
// shared HTTP transport.
func (a *app) loadGlobalConfig(cmd *cobra.Command, args []string) error {
	if err := initLogging(a.errOut, a.opts.logLevel, a.opts.logFormat); err != nil {
		return err
	}

	cfg, transport, err := config.Initialize(a.cliFlags(cmd))
	if err != nil {
		return err
	}
	// Config file values may change the level or format set from flags.
	if err := initLogging(a.errOut, cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	a.cfg = cfg
	a.transport = transport
	return nil
}

// cliFlags converts the flags the user set into config overrides.
func (a *app) cliFlags(cmd *cobra.Command) config.CliFlags {
	return config.CliFlags{
		ConfigFilePath:     changed(cmd, "config", &a.opts.cfgFile),
		LogLevel:           changed(cmd, "log-level", &a.opts.logLevel),
		LogFormat:          changed(cmd, "log-format", &a.opts.logFormat),
		LogApiRequests:     changed(cmd, "log-api", &a.opts.logAPI),
		APITimeoutSec:      changed(cmd, "api-timeout", &a.opts.apiTimeout),
		DownloadTimeoutSec: changed(cmd, "download-timeout", &a.opts.downloadTimeout),
		OutputDir:          changed(cmd, "out", &a.opts.outputDir),
		Interactive:        changed(cmd, "interactive", &a.opts.interactive),
		MaxResults:         changed(cmd, "max-results", &a.opts.maxResults),
		OnError:            changed(cmd, "on-error", &a.opts.onError),
		OnCollision:        changed(cmd, "on-collision", &a.opts.onCollision),
	}
}

// changed returns v when the named flag exists on cmd and was set, nil otherwise.
func changed[T any](cmd *cobra.Command, name string, v *T) *T {
	flag := cmd.Flags().Lookup(name)
	if flag == nil || !flag.Changed {
		return nil
	}
	return v
}

func (a *app) closeTransport() {
	if lt, ok := a.transport.(*api.LoggingTransport); ok {
		if err := lt.Close(); err != nil {
			log.WithError(err).Warn("Failed to close API log file")
		}
	}
}

// initLogging configures the global logrus logger.
func initLogging(w io.Writer, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetOutput(w)
	log.SetLevel(lvl)

	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", format)
	}
	return nil
}
