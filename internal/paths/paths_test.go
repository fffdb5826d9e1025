package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "every forbidden character",
			input:    `\/:*?"<>|`,
			expected: "_________",
		},
		{
			name:     "slash in artist",
			input:    "AC/DC",
			expected: "AC_DC",
		},
		{
			name:     "dots and spaces untouched",
			input:    "T.N.T.",
			expected: "T.N.T.",
		},
		{
			name:     "unicode untouched",
			input:    "Sigur Rós: Hoppípolla?",
			expected: "Sigur Rós_ Hoppípolla_",
		},
		{
			name:     "other punctuation untouched",
			input:    "It's (Live) [2001] & more!",
			expected: "It's (Live) [2001] & more!",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			if got != tt.expected {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			if again := Sanitize(got); again != got {
				t.Errorf("Sanitize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		source   string
		expected string
	}{
		{"https://gp.songsterr.com/x/file.gp5", ".gp5"},
		{"https://gp.songsterr.com/x/file.gp5?sig=abc.def", ".gp5"},
		{"https://gp.songsterr.com/x/file.gpx#frag.txt", ".gpx"},
		{"https://gp.songsterr.com/x/file", DefaultExtension},
		{"https://gp.songsterr.com/x.dir/file", DefaultExtension},
		{"https://gp.songsterr.com/", DefaultExtension},
		{"::not a url", DefaultExtension},
		{"https://gp.songsterr.com/files/.gp5", DefaultExtension},
		{"https://gp.songsterr.com/files/..gp5", DefaultExtension},
		{"https://gp.songsterr.com/a/file.", "."},
		{"https://gp.songsterr.com/a/file.tar.gp5", ".gp5"},
	}

	for _, tt := range tests {
		if got := Extension(tt.source); got != tt.expected {
			t.Errorf("Extension(%q) = %q, want %q", tt.source, got, tt.expected)
		}
	}
}

func TestBuildFilename(t *testing.T) {
	tests := []struct {
		name     string
		artist   string
		title    string
		source   string
		expected string
	}{
		{
			name:     "slash artist keeps title dots",
			artist:   "AC/DC",
			title:    "T.N.T.",
			source:   "https://cdn.test/some/path/file.gp5",
			expected: "AC_DC - T.N.T..gp5",
		},
		{
			name:     "default extension",
			artist:   "Amebix",
			title:    "Chain Reaction",
			source:   "https://cdn.test/export",
			expected: "Amebix - Chain Reaction.gp",
		},
		{
			name:     "missing names",
			artist:   "",
			title:    "",
			source:   "https://cdn.test/a.gp",
			expected: "Unknown Artist - Unknown Title.gp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFilename(tt.artist, tt.title, tt.source)
			if got != tt.expected {
				t.Errorf("BuildFilename() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResolve_NoCollision(t *testing.T) {
	dir := t.TempDir()
	for _, policy := range []string{CollisionSuffix, CollisionOverwrite, CollisionSkip} {
		got, exists, err := Resolve(dir, "A - B.gp5", policy)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", policy, err)
		}
		if exists {
			t.Errorf("%s: expected exists=false", policy)
		}
		if got != filepath.Join(dir, "A - B.gp5") {
			t.Errorf("%s: got %s", policy, got)
		}
	}
}

func TestResolve_Collision(t *testing.T) {
	dir := t.TempDir()
	name := "A - B.gp5"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "A - B (2).gp5"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	got, exists, err := Resolve(dir, name, CollisionSuffix)
	if err != nil || exists {
		t.Fatalf("suffix: err=%v exists=%v", err, exists)
	}
	if want := filepath.Join(dir, "A - B (3).gp5"); got != want {
		t.Errorf("suffix: got %s, want %s", got, want)
	}

	got, exists, err = Resolve(dir, name, CollisionOverwrite)
	if err != nil || exists || got != filepath.Join(dir, name) {
		t.Errorf("overwrite: got %s exists=%v err=%v", got, exists, err)
	}

	got, exists, err = Resolve(dir, name, CollisionSkip)
	if err != nil || !exists || got != filepath.Join(dir, name) {
		t.Errorf("skip: got %s exists=%v err=%v", got, exists, err)
	}
}

func TestResolve_UnknownPolicy(t *testing.T) {
	if _, _, err := Resolve(t.TempDir(), "x.gp", "rename"); err == nil {
		t.Error("Expected error for unknown policy")
	}
	if ValidCollisionPolicy("rename") {
		t.Error("ValidCollisionPolicy accepted unknown policy")
	}
	if !ValidCollisionPolicy(CollisionSkip) {
		t.Error("ValidCollisionPolicy rejected skip")
	}
}
