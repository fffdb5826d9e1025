// Package reference turns raw user input into an ordered, de-duplicated list of
// song references and extracts song identifiers from tab URLs.
package reference

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// ErrMalformedReference is returned when a reference carries no "-s<digits>" song id.
var ErrMalformedReference = errors.New("could not extract song ID from reference")

// CommentPrefix marks a line in a reference file that is ignored.
const CommentPrefix = "#"

// StdinPath is the --file value that means "read standard input".
const StdinPath = "-"

var songIDRegex = regexp.MustCompile(`-s(\d+)`)

// Extract returns the numeric song id embedded in a tab URL, e.g.
// https://www.songsterr.com/a/wsa/amebix-chain-reaction-tab-s68807 -> 68807.
// The first "-s<digits>" token wins.
func Extract(ref string) (int, error) {
	m := songIDRegex.FindStringSubmatch(ref)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	return id, nil
}

// IsURL reports whether ref is URL-shaped. Anything else is search text.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// clean NFC-folds and trims a reference and reports whether anything is left.
func clean(ref string) (string, bool) {
	ref = strings.TrimSpace(norm.NFC.String(ref))
	return ref, ref != ""
}

// Normalize trims every reference, drops blanks, and removes duplicates keeping
// the first occurrence. "#" only marks comments inside reference files, so a
// positional "#9" stays a search term. Applying it twice changes nothing.
func Normalize(refs []string) []string {
	kept := lo.FilterMap(refs, func(ref string, _ int) (string, bool) {
		return clean(ref)
	})
	return lo.Uniq(kept)
}

// ParseLines reads one reference per line, skipping blanks and comments.
func ParseLines(r io.Reader) ([]string, error) {
	var refs []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line, ok := clean(scanner.Text())
		if !ok || strings.HasPrefix(line, CommentPrefix) {
			continue
		}
		refs = append(refs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading references: %w", err)
	}
	return refs, nil
}

// LoadFile reads references from path, or from stdin when path is "-".
func LoadFile(path string, stdin io.Reader) ([]string, error) {
	if path == StdinPath {
		log.Debug("Reading references from standard input")
		return ParseLines(stdin)
	}

	// #nosec G304
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reference file %s: %w", path, err)
	}
	defer f.Close()

	refs, err := ParseLines(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("Loaded %d references from %s", len(refs), path)
	return refs, nil
}

// Collector merges the three reference sources into one normalized list.
type Collector struct {
	Args            []string  // positional arguments
	File            string    // --file value; "-" means Stdin
	Stdin           io.Reader // standard input stream
	StdinIsTerminal bool      // true when Stdin is an interactive terminal
	Interactive     bool      // --interactive
}

// Collect returns positional args followed by the file (or stdin) contents,
// normalized. Stdin is read implicitly only when nothing else was given, it is
// piped, and the run is not interactive. An empty result is not an error.
func (c Collector) Collect() ([]string, error) {
	refs := append([]string{}, c.Args...)

	switch {
	case c.File != "":
		fromFile, err := LoadFile(c.File, c.Stdin)
		if err != nil {
			return nil, err
		}
		refs = append(refs, fromFile...)
	case len(refs) == 0 && !c.StdinIsTerminal && !c.Interactive && c.Stdin != nil:
		log.Debug("No references given and stdin is piped, reading it implicitly")
		fromStdin, err := ParseLines(c.Stdin)
		if err != nil {
			return nil, err
		}
		refs = append(refs, fromStdin...)
	}

	normalized := Normalize(refs)
	log.Debugf("Collected %d references (%d after normalization)", len(refs), len(normalized))
	return normalized, nil
}
