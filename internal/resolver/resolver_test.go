package resolver

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go-songsterr-download/internal/api"
	"go-songsterr-download/internal/models"
	"go-songsterr-download/internal/prompt"
	"go-songsterr-download/internal/reference"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	songs   []models.Song
	err     error
	queries []string
	sizes   []int
}

func (f *fakeSearcher) SearchSongs(ctx context.Context, query string, maxResults int) ([]models.Song, error) {
	f.queries = append(f.queries, query)
	f.sizes = append(f.sizes, maxResults)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.songs) == 0 {
		return nil, api.ErrNoResults
	}
	return f.songs, nil
}

const (
	urlA = "https://www.songsterr.com/a/wsa/pissgrave-rusted-wind-tab-s505453"
	urlB = "https://www.songsterr.com/a/wsa/amebix-chain-reaction-tab-s68807"
)

func newResolver(s Searcher, input string) (*Resolver, *bytes.Buffer) {
	var out bytes.Buffer
	return New(s, prompt.New(strings.NewReader(input), &out)), &out
}

func TestResolve_BatchURLs(t *testing.T) {
	search := &fakeSearcher{}
	r, out := newResolver(search, "")

	ids, err := r.Resolve(context.Background(), []string{urlA, urlB}, false, 20)
	require.NoError(t, err)
	assert.Equal(t, []int{505453, 68807}, ids)
	assert.Empty(t, search.queries)
	assert.Empty(t, out.String())
}

func TestResolve_BatchMixedFails(t *testing.T) {
	r, _ := newResolver(&fakeSearcher{}, "")

	_, err := r.Resolve(context.Background(), []string{"https://www.songsterr.com/a/wsa/x-tab-s123", "some text"}, false, 20)
	assert.True(t, errors.Is(err, ErrMixedOrMissingReference))
}

func TestResolve_BatchURLWithoutIDFails(t *testing.T) {
	r, _ := newResolver(&fakeSearcher{}, "")

	_, err := r.Resolve(context.Background(), []string{urlA, "https://www.songsterr.com/a/wsa/no-id"}, false, 20)
	assert.True(t, errors.Is(err, ErrMixedOrMissingReference))
	assert.True(t, errors.Is(err, reference.ErrMalformedReference))
}

func TestResolve_BatchEmptyFails(t *testing.T) {
	r, _ := newResolver(&fakeSearcher{}, "")

	_, err := r.Resolve(context.Background(), nil, false, 20)
	assert.True(t, errors.Is(err, ErrNoInput))
}

func TestResolve_InteractiveAllURLs(t *testing.T) {
	search := &fakeSearcher{}
	r, _ := newResolver(search, "")

	ids, err := r.Resolve(context.Background(), []string{urlB}, true, 20)
	require.NoError(t, err)
	assert.Equal(t, []int{68807}, ids)
	assert.Empty(t, search.queries)
}

func TestResolve_InteractiveBadURL(t *testing.T) {
	r, _ := newResolver(&fakeSearcher{}, "")

	_, err := r.Resolve(context.Background(), []string{"https://www.songsterr.com/a/wsa/no-id"}, true, 20)
	assert.True(t, errors.Is(err, reference.ErrMalformedReference))
}

func TestResolve_InteractiveSearchJoinsReferences(t *testing.T) {
	search := &fakeSearcher{songs: []models.Song{
		{SongID: 11, Artist: "Viagra Boys", Title: "Sports"},
		{SongID: 12, Artist: "Viagra Boys", Title: "Sports (Live)"},
	}}
	r, out := newResolver(search, "9\nfoo\n2\n")

	ids, err := r.Resolve(context.Background(), []string{"viagra", "boys", urlA}, true, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{12}, ids)
	assert.Equal(t, []string{"viagra boys " + urlA}, search.queries)
	assert.Equal(t, []int{5}, search.sizes)

	text := out.String()
	assert.Contains(t, text, "Search results:")
	assert.Contains(t, text, "Sports (Live)")
	assert.Equal(t, 3, strings.Count(text, songPrompt))
}

func TestResolve_InteractiveSingleResultAutoSelects(t *testing.T) {
	search := &fakeSearcher{songs: []models.Song{{SongID: 77, Artist: "A", Title: "T"}}}
	r, out := newResolver(search, "")

	ids, err := r.Resolve(context.Background(), []string{"a", "t"}, true, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{77}, ids)
	assert.NotContains(t, out.String(), songPrompt)
	assert.Equal(t, []int{DefaultMaxResults}, search.sizes)
}

func TestResolve_InteractivePromptsForSearchText(t *testing.T) {
	search := &fakeSearcher{songs: []models.Song{{SongID: 5}}}
	r, out := newResolver(search, "  amebix  \n")

	ids, err := r.Resolve(context.Background(), nil, true, 20)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, ids)
	assert.Equal(t, []string{"amebix"}, search.queries)
	assert.Contains(t, out.String(), searchPrompt)
}

func TestResolve_InteractiveBlankSearchText(t *testing.T) {
	search := &fakeSearcher{}
	r, _ := newResolver(search, "   \n")

	_, err := r.Resolve(context.Background(), nil, true, 20)
	assert.True(t, errors.Is(err, ErrEmptySearch))
	assert.Empty(t, search.queries)
}

func TestResolve_InteractiveNoResults(t *testing.T) {
	r, _ := newResolver(&fakeSearcher{}, "")

	_, err := r.Resolve(context.Background(), []string{"nothing", "matches"}, true, 20)
	assert.True(t, errors.Is(err, api.ErrNoResults))
}

func TestResolve_InteractiveSearchError(t *testing.T) {
	boom := &api.FetchError{Op: "search", URL: "http://x", Err: errors.New("boom")}
	r, _ := newResolver(&fakeSearcher{err: boom}, "")

	_, err := r.Resolve(context.Background(), []string{"x"}, true, 20)
	var fetchErr *api.FetchError
	assert.True(t, errors.As(err, &fetchErr))
}
