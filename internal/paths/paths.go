package paths

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtension is used when the source URL path has no extension.
const DefaultExtension = ".gp"

const (
	UnknownArtist = "Unknown Artist"
	UnknownTitle  = "Unknown Title"
)

// Collision policies for a target filename that already exists.
const (
	CollisionSuffix    = "suffix"
	CollisionOverwrite = "overwrite"
	CollisionSkip      = "skip"
)

// maxSuffix bounds the " (n)" search so a pathological directory cannot spin forever.
const maxSuffix = 10000

var forbidden = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// Sanitize replaces each of \ / : * ? " < > | with an underscore and leaves
// every other character alone.
func Sanitize(s string) string {
	return forbidden.Replace(s)
}

// Extension returns the extension of the last element of the source URL's
// path, or DefaultExtension when there is none. Leading dots of that element
// never start an extension (".gp5" has none), while a trailing dot is one
// ("file." gives ".").
func Extension(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return DefaultExtension
	}
	base := u.Path[strings.LastIndex(u.Path, "/")+1:]
	base = strings.TrimLeft(base, ".")
	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return DefaultExtension
	}
	return base[dot:]
}

// BuildFilename returns "{artist} - {title}{ext}" with both parts sanitized.
func BuildFilename(artist, title, sourceURL string) string {
	if artist == "" {
		artist = UnknownArtist
	}
	if title == "" {
		title = UnknownTitle
	}
	return fmt.Sprintf("%s - %s%s", Sanitize(artist), Sanitize(title), Extension(sourceURL))
}

// ValidCollisionPolicy reports whether policy is one of the known values.
func ValidCollisionPolicy(policy string) bool {
	switch policy {
	case CollisionSuffix, CollisionOverwrite, CollisionSkip:
		return true
	}
	return false
}

// Resolve picks the final path for filename inside dir under the given
// collision policy. exists is true only for CollisionSkip when the file is
// already there, meaning nothing should be written.
func Resolve(dir, filename, policy string) (finalPath string, exists bool, err error) {
	target := filepath.Join(dir, filename)

	switch policy {
	case CollisionOverwrite:
		return target, false, nil
	case CollisionSkip:
		taken, err := isTaken(target)
		if err != nil {
			return "", false, err
		}
		return target, taken, nil
	case CollisionSuffix, "":
		taken, err := isTaken(target)
		if err != nil {
			return "", false, err
		}
		if !taken {
			return target, false, nil
		}
		ext := filepath.Ext(filename)
		base := strings.TrimSuffix(filename, ext)
		for n := 2; n <= maxSuffix; n++ {
			candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
			taken, err := isTaken(candidate)
			if err != nil {
				return "", false, err
			}
			if !taken {
				return candidate, false, nil
			}
		}
		return "", false, fmt.Errorf("no free filename for %s after %d attempts", target, maxSuffix)
	default:
		return "", false, fmt.Errorf("unknown collision policy %q", policy)
	}
}

func isTaken(p string) (bool, error) {
	_, err := os.Lstat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", p, err)
}
