package downloader

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go-songsterr-download/internal/api"
	"go-songsterr-download/internal/helpers"
	"go-songsterr-download/internal/models"
	"go-songsterr-download/internal/paths"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
)

// ChunkSize is the fixed read/write unit used while streaming an asset.
const ChunkSize = 8192

// DefaultDownloadTimeout bounds waiting for the asset response headers.
const DefaultDownloadTimeout = 30 * time.Second

// PersistError reports a filesystem failure while saving an asset.
type PersistError struct {
	Op   string // "create", "write", "close", "check"
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// DetailGetter is the slice of the API client the downloader needs.
type DetailGetter interface {
	GetRevisionDetail(ctx context.Context, revisionID int) (models.RevisionDetail, error)
}

// Result describes one saved (or skipped) file.
type Result struct {
	RevisionID int
	Source     string
	Path       string
	Bytes      uint64
	BLAKE3     string // hex digest of the written bytes, empty when skipped
	Skipped    bool   // the file already existed and the collision policy is skip
}

// Downloader resolves a revision's asset and streams it to disk.
type Downloader struct {
	api       DetailGetter
	client    *http.Client
	status    io.Writer
	collision string
}

// NewDownloader creates a new Downloader. A nil client gets a transport with
// DefaultDownloadTimeout as response-header timeout; the body itself may take
// longer to stream. Status lines and the progress bar go to status.
func NewDownloader(detailGetter DetailGetter, client *http.Client, status io.Writer, collision string) *Downloader {
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = DefaultDownloadTimeout
		client = &http.Client{Transport: transport}
	}
	if status == nil {
		status = io.Discard
	}
	if collision == "" {
		collision = paths.CollisionSuffix
	}
	return &Downloader{
		api:       detailGetter,
		client:    client,
		status:    status,
		collision: collision,
	}
}

// Fetch looks up revisionID, derives "{artist} - {title}{ext}" and streams the
// asset into outDir. Network failures come back as *api.FetchError, filesystem
// failures as *PersistError. There is no temp file: bytes written before a
// failure stay on disk.
func (d *Downloader) Fetch(ctx context.Context, revisionID int, outDir string) (Result, error) {
	detail, err := d.api.GetRevisionDetail(ctx, revisionID)
	if err != nil {
		return Result{}, err
	}

	filename := paths.BuildFilename(detail.Artist, detail.Title, detail.Source)
	targetPath, exists, err := paths.Resolve(outDir, filename, d.collision)
	if err != nil {
		return Result{}, &PersistError{Op: "check", Path: outDir, Err: err}
	}
	result := Result{RevisionID: revisionID, Source: detail.Source, Path: targetPath}
	if exists {
		log.Infof("File %s already exists, skipping download of revision %d", targetPath, revisionID)
		fmt.Fprintf(d.status, "Already exists: %s\n", targetPath)
		result.Skipped = true
		return result, nil
	}

	fmt.Fprintf(d.status, "Downloading: %s\n", detail.Source)
	written, digest, err := d.stream(ctx, detail.Source, targetPath)
	result.Bytes = written
	if err != nil {
		return result, err
	}
	result.BLAKE3 = digest

	log.WithFields(log.Fields{
		"revision": revisionID,
		"size":     helpers.BytesToSize(written),
		"blake3":   digest,
	}).Debug("Asset saved")
	fmt.Fprintf(d.status, "Saved as: %s\n", targetPath)
	return result, nil
}

// stream copies the asset body to targetPath in ChunkSize pieces.
func (d *Downloader) stream(ctx context.Context, sourceURL, targetPath string) (uint64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return 0, "", &api.FetchError{Op: "download", URL: sourceURL, Err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", &api.FetchError{Op: "download", URL: sourceURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, "", &api.FetchError{Op: "download", URL: sourceURL, StatusCode: resp.StatusCode, Err: api.StatusError(resp.StatusCode)}
	}

	// #nosec G304
	out, err := os.Create(targetPath)
	if err != nil {
		return 0, "", &PersistError{Op: "create", Path: targetPath, Err: err}
	}

	file := &helpers.CounterWriter{Writer: out}
	hasher := blake3.New()
	bar := progressbar.NewOptions64(
		resp.ContentLength,
		progressbar.OptionSetWriter(d.status),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	buf := make([]byte, ChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				_ = out.Close()
				return file.Total, "", &PersistError{Op: "write", Path: targetPath, Err: writeErr}
			}
			_, _ = hasher.Write(buf[:n])
			_ = bar.Add(n)
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			_ = out.Close()
			return file.Total, "", &api.FetchError{Op: "download", URL: sourceURL, Err: readErr}
		}
	}
	_ = bar.Finish()

	if err := out.Close(); err != nil {
		return file.Total, "", &PersistError{Op: "close", Path: targetPath, Err: err}
	}
	return file.Total, hex.EncodeToString(hasher.Sum(nil)), nil
}
