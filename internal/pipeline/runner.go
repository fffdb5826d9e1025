package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go-songsterr-download/internal/downloader"
	"go-songsterr-download/internal/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Error policies for per-song failures.
const (
	OnErrorAbort    = "abort"
	OnErrorContinue = "continue"
)

// ValidErrorPolicy reports whether policy is a known error policy.
func ValidErrorPolicy(policy string) bool {
	return policy == OnErrorAbort || policy == OnErrorContinue
}

type (
	// SongResolver maps references to song ids.
	SongResolver interface {
		Resolve(ctx context.Context, refs []string, interactive bool, maxResults int) ([]int, error)
	}

	// RevisionLister lists the revisions of a song.
	RevisionLister interface {
		ListRevisions(ctx context.Context, songID int) ([]models.Revision, error)
	}

	// RevisionSelector picks one revision.
	RevisionSelector interface {
		Select(revisions []models.Revision, interactive bool) (int, error)
	}

	// Fetcher downloads one revision into a directory.
	Fetcher interface {
		Fetch(ctx context.Context, revisionID int, outDir string) (downloader.Result, error)
	}
)

// SongFailure records why one song of a batch did not download.
type SongFailure struct {
	SongID int
	Err    error
}

// Report summarizes a run.
type Report struct {
	Downloaded []downloader.Result
	Failed     []SongFailure
}

// BatchError is returned in continue mode when at least one song failed.
type BatchError struct {
	Total    int
	Failures []SongFailure
}

func (e *BatchError) Error() string {
	msgs := lo.Map(e.Failures, func(f SongFailure, _ int) string {
		return fmt.Sprintf("song %d: %v", f.SongID, f.Err)
	})
	return fmt.Sprintf("%d of %d songs failed: %s", len(e.Failures), e.Total, strings.Join(msgs, "; "))
}

// Unwrap exposes every underlying failure to errors.Is/As.
func (e *BatchError) Unwrap() []error {
	return lo.Map(e.Failures, func(f SongFailure, _ int) error { return f.Err })
}

// Runner drives resolve, select and fetch for one invocation.
type Runner struct {
	Resolver SongResolver
	Lister   RevisionLister
	Selector RevisionSelector
	Fetcher  Fetcher

	// Out receives the user-facing progress lines.
	Out         io.Writer
	OutDir      string
	Interactive bool
	MaxResults  int
	OnError     string
}

// NewRunner wires a Runner from configuration.
func NewRunner(cfg models.Config, resolver SongResolver, lister RevisionLister, selector RevisionSelector, fetcher Fetcher, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		Resolver:    resolver,
		Lister:      lister,
		Selector:    selector,
		Fetcher:     fetcher,
		Out:         out,
		OutDir:      cfg.OutputDir,
		Interactive: cfg.Download.Interactive,
		MaxResults:  cfg.API.MaxResults,
		OnError:     cfg.Download.OnError,
	}
}

// Run resolves refs once and then processes each song in order. Resolution
// errors are always fatal. Per-song errors stop the run under OnErrorAbort and
// are collected into a *BatchError under OnErrorContinue.
func (r *Runner) Run(ctx context.Context, refs []string) (Report, error) {
	var report Report

	songIDs, err := r.Resolver.Resolve(ctx, refs, r.Interactive, r.MaxResults)
	if err != nil {
		return report, err
	}
	log.Debugf("Resolved %d song(s): %v", len(songIDs), songIDs)

	for _, songID := range songIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := r.processSong(ctx, songID)
		if err != nil {
			if r.OnError != OnErrorContinue {
				return report, err
			}
			log.WithError(err).Warnf("Song %d failed, continuing", songID)
			report.Failed = append(report.Failed, SongFailure{SongID: songID, Err: err})
			continue
		}
		report.Downloaded = append(report.Downloaded, result)
	}

	if len(report.Failed) > 0 {
		return report, &BatchError{Total: len(songIDs), Failures: report.Failed}
	}
	return report, nil
}

func (r *Runner) processSong(ctx context.Context, songID int) (downloader.Result, error) {
	fmt.Fprintf(r.Out, "Song ID: %d\n", songID)

	revisions, err := r.Lister.ListRevisions(ctx, songID)
	if err != nil {
		return downloader.Result{}, err
	}

	revisionID, err := r.Selector.Select(revisions, r.Interactive)
	if err != nil {
		return downloader.Result{}, err
	}
	if r.Interactive {
		fmt.Fprintf(r.Out, "Selected revision ID: %d\n", revisionID)
	} else {
		fmt.Fprintf(r.Out, "Latest revision ID: %d\n", revisionID)
	}

	result, err := r.Fetcher.Fetch(ctx, revisionID, r.OutDir)
	if err != nil {
		return result, fmt.Errorf("revision %d: %w", revisionID, err)
	}
	return result, nil
}
