package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-songsterr-download/internal/api"
	"go-songsterr-download/internal/config"
	"go-songsterr-download/internal/downloader"
	"go-songsterr-download/internal/helpers"
	"go-songsterr-download/internal/pipeline"
	"go-songsterr-download/internal/prompt"
	"go-songsterr-download/internal/reference"
	"go-songsterr-download/internal/resolver"
	"go-songsterr-download/internal/selector"
)

var errOutputDir = errors.New("cannot create output directory")

// runDownload is the root command: collect references, then resolve, select
// and fetch each song.
func (a *app) runDownload(cmd *cobra.Command, args []string) error {
	cfg := a.cfg

	collector := reference.Collector{
		Args:            args,
		File:            a.opts.file,
		Stdin:           a.in,
		StdinIsTerminal: a.stdinIsTerminal,
		Interactive:     cfg.Download.Interactive,
	}
	refs, err := collector.Collect()
	if err != nil {
		return err
	}

	if !helpers.CheckAndMakeDir(cfg.OutputDir) {
		return fmt.Errorf("%w: %s", errOutputDir, cfg.OutputDir)
	}

	client := api.NewClient(config.APIClient(cfg, a.transport), cfg)
	prompter := prompt.New(a.in, a.out)
	fetcher := downloader.NewDownloader(client, config.DownloadClient(a.transport), a.out, cfg.Download.OnCollision)
	runner := pipeline.NewRunner(cfg, resolver.New(client, prompter), client, selector.New(prompter), fetcher, a.out)

	log.Debugf("Starting run with %d reference(s), interactive=%t, on-error=%s", len(refs), cfg.Download.Interactive, cfg.Download.OnError)
	report, err := runner.Run(cmd.Context(), refs)
	a.printSummary(report)
	return err
}

// printSummary reports totals once a batch had more than one song.
func (a *app) printSummary(report pipeline.Report) {
	if len(report.Downloaded)+len(report.Failed) < 2 {
		return
	}

	var saved, skipped uint64
	var bytes uint64
	for _, res := range report.Downloaded {
		if res.Skipped {
			skipped++
			continue
		}
		saved++
		bytes += res.Bytes
	}

	green := color.New(color.FgGreen)
	green.Fprintf(a.out, "Saved %d file(s), %s", saved, helpers.BytesToSize(bytes))
	if skipped > 0 {
		fmt.Fprintf(a.out, ", skipped %d existing", skipped)
	}
	fmt.Fprintln(a.out)
	for _, failure := range report.Failed {
		color.New(color.FgYellow).Fprintf(a.out, "Failed song %d: %v\n", failure.SongID, failure.Err)
	}
}
