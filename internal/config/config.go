package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-songsterr-download/internal/api"
	"go-songsterr-download/internal/helpers"
	"go-songsterr-download/internal/models"
	"go-songsterr-download/internal/paths"
	"go-songsterr-download/internal/pipeline"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultOutputDir      = "output"
	DefaultLogApiRequests = false
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultConfigName     = "config" // config.toml
	DefaultConfigDir      = "songsterr-downloader"
	DefaultAPILogFile     = "api.log"
	EnvPrefix             = "SONGSTERR"

	DefaultAPIBaseURL    = api.DefaultBaseURL
	DefaultAPITimeoutSec = 15
	DefaultMaxResults    = 20

	DefaultDownloadTimeoutSec  = 30
	DefaultDownloadOnError     = pipeline.OnErrorAbort
	DefaultDownloadOnCollision = paths.CollisionSuffix
)

var ErrInvalidConfig = errors.New("invalid configuration")

// setViperDefaults configures Viper with the application's default values.
// Every key must have a default so AutomaticEnv can see it during Unmarshal.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("outputdir", DefaultOutputDir)
	v.SetDefault("loglevel", DefaultLogLevel)
	v.SetDefault("logformat", DefaultLogFormat)
	v.SetDefault("logapirequests", DefaultLogApiRequests)

	v.SetDefault("api.baseurl", DefaultAPIBaseURL)
	v.SetDefault("api.timeoutsec", DefaultAPITimeoutSec)
	v.SetDefault("api.maxresults", DefaultMaxResults)

	v.SetDefault("download.onerror", DefaultDownloadOnError)
	v.SetDefault("download.oncollision", DefaultDownloadOnCollision)
	v.SetDefault("download.timeoutsec", DefaultDownloadTimeoutSec)
	v.SetDefault("download.interactive", false)
}

// CliFlags holds pointers to values received from command-line flags.
// Nil fields indicate the flag was not provided by the user.
type CliFlags struct {
	// Global/Persistent Flags
	ConfigFilePath     *string // --config
	LogLevel           *string // --log-level
	LogFormat          *string // --log-format
	LogApiRequests     *bool   // --log-api
	APITimeoutSec      *int    // --api-timeout
	DownloadTimeoutSec *int    // --download-timeout

	// Root command flags
	OutputDir   *string // -o
	Interactive *bool   // -i
	MaxResults  *int    // --max-results
	OnError     *string // --on-error
	OnCollision *string // --on-collision
}

// Initialize loads configuration based on defaults, config file, environment and flags.
// Precedence: Flags > Environment > Config File > Defaults.
func Initialize(flags CliFlags) (models.Config, http.RoundTripper, error) {
	var finalCfg models.Config

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)

	if flags.ConfigFilePath != nil && *flags.ConfigFilePath != "" {
		log.Debugf("[Initialize] Using config file path from CLI flag: %s", *flags.ConfigFilePath)
		v.SetConfigFile(*flags.ConfigFilePath)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, DefaultConfigDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			log.Debug("[Initialize] No config file found. Using defaults, environment and CLI flags only.")
		case flags.ConfigFilePath != nil && *flags.ConfigFilePath != "":
			// An explicitly requested file that cannot be read is fatal.
			return models.Config{}, nil, fmt.Errorf("reading config file %s: %w", *flags.ConfigFilePath, err)
		default:
			log.Warnf("[Initialize] Error reading config file: %v. Using defaults and CLI flags only.", err)
		}
	} else {
		log.Debugf("[Initialize] Read config file: %s", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&finalCfg); err != nil {
		return models.Config{}, nil, fmt.Errorf("failed to unmarshal config from viper: %w", err)
	}

	applyFlags(&finalCfg, flags)
	log.Debugf("[Initialize] Effective config: %+v", finalCfg)

	if err := Validate(finalCfg); err != nil {
		return models.Config{}, nil, err
	}

	transport, err := newTransport(finalCfg)
	if err != nil {
		return models.Config{}, nil, err
	}
	return finalCfg, transport, nil
}

func applyFlags(cfg *models.Config, flags CliFlags) {
	if flags.LogLevel != nil {
		cfg.LogLevel = *flags.LogLevel
	}
	if flags.LogFormat != nil {
		cfg.LogFormat = *flags.LogFormat
	}
	if flags.LogApiRequests != nil {
		cfg.LogApiRequests = *flags.LogApiRequests
	}
	if flags.APITimeoutSec != nil {
		cfg.API.TimeoutSec = *flags.APITimeoutSec
	}
	if flags.DownloadTimeoutSec != nil {
		cfg.Download.TimeoutSec = *flags.DownloadTimeoutSec
	}
	if flags.OutputDir != nil {
		cfg.OutputDir = *flags.OutputDir
	}
	if flags.Interactive != nil {
		cfg.Download.Interactive = *flags.Interactive
	}
	if flags.MaxResults != nil {
		cfg.API.MaxResults = *flags.MaxResults
	}
	if flags.OnError != nil {
		cfg.Download.OnError = *flags.OnError
	}
	if flags.OnCollision != nil {
		cfg.Download.OnCollision = *flags.OnCollision
	}
}

// Validate checks the merged configuration.
func Validate(cfg models.Config) error {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return fmt.Errorf("%w: output directory cannot be empty", ErrInvalidConfig)
	}
	if cfg.API.TimeoutSec <= 0 {
		return fmt.Errorf("%w: api timeout must be positive, got %d", ErrInvalidConfig, cfg.API.TimeoutSec)
	}
	if cfg.Download.TimeoutSec <= 0 {
		return fmt.Errorf("%w: download timeout must be positive, got %d", ErrInvalidConfig, cfg.Download.TimeoutSec)
	}
	if cfg.API.MaxResults <= 0 {
		return fmt.Errorf("%w: max results must be positive, got %d", ErrInvalidConfig, cfg.API.MaxResults)
	}
	if !pipeline.ValidErrorPolicy(cfg.Download.OnError) {
		return fmt.Errorf("%w: on-error must be %q or %q, got %q", ErrInvalidConfig, pipeline.OnErrorAbort, pipeline.OnErrorContinue, cfg.Download.OnError)
	}
	if !paths.ValidCollisionPolicy(cfg.Download.OnCollision) {
		return fmt.Errorf("%w: on-collision must be one of suffix, overwrite, skip; got %q", ErrInvalidConfig, cfg.Download.OnCollision)
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("%w: log format must be text or json, got %q", ErrInvalidConfig, cfg.LogFormat)
	}
	return nil
}

// newTransport builds the shared round tripper. The download timeout bounds
// the wait for response headers; API calls add a whole-request timeout on top.
func newTransport(cfg models.Config) (http.RoundTripper, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = time.Duration(cfg.Download.TimeoutSec) * time.Second

	if !cfg.LogApiRequests {
		return base, nil
	}

	// The log lives next to the downloads, so the output directory is
	// created here rather than waiting for the first song.
	logFilePath := DefaultAPILogFile
	if helpers.CheckAndMakeDir(cfg.OutputDir) {
		logFilePath = filepath.Join(cfg.OutputDir, DefaultAPILogFile)
	} else {
		log.Warnf("Output directory '%s' unusable, saving %s to current directory.", cfg.OutputDir, DefaultAPILogFile)
	}
	log.Infof("API logging to file: %s", logFilePath)

	loggingTransport, err := api.NewLoggingTransport(base, logFilePath)
	if err != nil {
		log.WithError(err).Error("Failed to initialize API logging transport, logging disabled.")
		return base, nil
	}
	return loggingTransport, nil
}

// APIClient returns the HTTP client for metadata lookups.
func APIClient(cfg models.Config, transport http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.API.TimeoutSec) * time.Second,
	}
}

// DownloadClient returns the HTTP client for asset streaming. It has no
// whole-request deadline so large files are not cut off mid-body.
func DownloadClient(transport http.RoundTripper) *http.Client {
	return &http.Client{Transport: transport}
}
