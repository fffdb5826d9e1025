package resolver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go-songsterr-download/internal/models"
	"go-songsterr-download/internal/prompt"
	"go-songsterr-download/internal/reference"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var (
	ErrMixedOrMissingReference = errors.New("every reference must be a tab URL with a song ID in batch mode")
	ErrNoInput                 = errors.New("no URLs or search selection provided")
	ErrEmptySearch             = errors.New("search text cannot be empty")
)

// DefaultMaxResults caps a search when the caller passes a non-positive limit.
const DefaultMaxResults = 20

const (
	searchPrompt = "Search text: "
	songPrompt   = "Choose a song number: "
)

// Searcher is the slice of the API client the resolver needs.
type Searcher interface {
	SearchSongs(ctx context.Context, query string, maxResults int) ([]models.Song, error)
}

// Resolver turns normalized references into song ids.
type Resolver struct {
	searcher Searcher
	prompter *prompt.Prompter
}

// New creates a Resolver. prompter may be nil when only batch mode is used.
func New(searcher Searcher, prompter *prompt.Prompter) *Resolver {
	return &Resolver{searcher: searcher, prompter: prompter}
}

// Resolve maps references to song ids.
//
// Batch mode requires every reference to be a tab URL and returns one id per
// reference. Interactive mode does the same when every reference is a URL;
// otherwise all references are joined into a single search query (or the user
// is asked for one when there are none) and the user picks exactly one song.
func (r *Resolver) Resolve(ctx context.Context, refs []string, interactive bool, maxResults int) ([]int, error) {
	if !interactive {
		if len(refs) == 0 {
			return nil, ErrNoInput
		}
		ids, err := extractAll(refs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMixedOrMissingReference, err)
		}
		return ids, nil
	}

	if len(refs) > 0 && lo.EveryBy(refs, reference.IsURL) {
		return extractAll(refs)
	}

	if r.prompter == nil {
		return nil, fmt.Errorf("interactive search needs a prompter")
	}

	var query string
	if len(refs) > 0 {
		query = strings.TrimSpace(strings.Join(refs, " "))
	} else {
		answer, err := r.prompter.Ask(searchPrompt)
		if err != nil {
			return nil, err
		}
		query = answer
	}
	if query == "" {
		return nil, ErrEmptySearch
	}

	id, err := r.chooseSong(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	return []int{id}, nil
}

func extractAll(refs []string) ([]int, error) {
	ids := make([]int, 0, len(refs))
	for _, ref := range refs {
		if !reference.IsURL(ref) {
			return nil, fmt.Errorf("%q is not a URL", ref)
		}
		id, err := reference.Extract(ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// chooseSong searches and lets the user pick; a single hit is taken as is.
func (r *Resolver) chooseSong(ctx context.Context, query string, maxResults int) (int, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	log.Debugf("Searching for %q (max %d results)", query, maxResults)
	songs, err := r.searcher.SearchSongs(ctx, query, maxResults)
	if err != nil {
		return 0, err
	}

	if len(songs) == 1 {
		log.Debugf("Single search result, selecting song %d", songs[0].SongID)
		return songs[0].SongID, nil
	}

	rows := lo.Map(songs, func(s models.Song, _ int) []string {
		return []string{strconv.Itoa(s.SongID), orUnknown(s.Artist), orUnknown(s.Title)}
	})
	r.prompter.Table("Search results:", []string{"ID", "Artist", "Title"}, rows)

	idx, _, err := r.prompter.Choose(songPrompt, len(songs), false)
	if err != nil {
		return 0, err
	}
	return songs[idx].SongID, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
