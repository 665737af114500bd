package platform

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/data/photo.JPG", "jpg"},
		{"/data/archive.tar.gz", "gz"},
		{"/data/README", NoExtension},
		{"/data/.bashrc", NoExtension},
		{"/data/trailing.", NoExtension},
		{"notes.md", "md"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Extension(tt.path); got != tt.want {
				t.Errorf("Extension(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestSplitFile(t *testing.T) {
	path := filepath.Join("data", "music", "song.Mp3")
	name, dir, ext := SplitFile(path)

	if name != "song.Mp3" {
		t.Errorf("name = %q, want song.Mp3", name)
	}
	if dir != filepath.Join("data", "music") {
		t.Errorf("dir = %q, want %q", dir, filepath.Join("data", "music"))
	}
	if ext != "mp3" {
		t.Errorf("ext = %q, want mp3", ext)
	}
}

func TestContains(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "data", "a")

	tests := []struct {
		name   string
		target string
		want   bool
	}{
		{"Same", root, true},
		{"Child", filepath.Join(root, "sub"), true},
		{"Sibling", filepath.Join(string(filepath.Separator), "data", "ab"), false},
		{"Parent", filepath.Join(string(filepath.Separator), "data"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(root, tt.target); got != tt.want {
				t.Errorf("Contains(%q, %q) = %v, want %v", root, tt.target, got, tt.want)
			}
		})
	}
}

func TestAbsRoot(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if _, err := AbsRoot(""); err == nil {
			t.Error("AbsRoot(\"\") should fail")
		}
	})

	t.Run("Relative", func(t *testing.T) {
		got, err := AbsRoot(filepath.Join("a", "..", "b"))
		if err != nil {
			t.Fatalf("AbsRoot() error = %v", err)
		}
		if !filepath.IsAbs(got) {
			t.Errorf("AbsRoot() = %q, want absolute path", got)
		}
		if filepath.Base(got) != "b" {
			t.Errorf("AbsRoot() = %q, want cleaned path ending in b", got)
		}
	})
}

func TestRealRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}

	base := t.TempDir()
	dir := filepath.Join(base, "real")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(base, "link")
	if err := os.Symlink(dir, link); err != nil {
		t.Fatal(err)
	}

	viaReal, err := RealRoot(dir)
	if err != nil {
		t.Fatalf("RealRoot(real) error = %v", err)
	}
	viaLink, err := RealRoot(link)
	if err != nil {
		t.Fatalf("RealRoot(link) error = %v", err)
	}
	if viaReal != viaLink {
		t.Errorf("RealRoot(link) = %q, want %q", viaLink, viaReal)
	}

	if _, err := RealRoot(filepath.Join(base, "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("RealRoot(missing) error = %v, want not-exist", err)
	}
}

func TestCollapseRoots(t *testing.T) {
	sep := string(filepath.Separator)
	a := filepath.Join(sep, "data", "a")
	sub := filepath.Join(a, "sub")
	b := filepath.Join(sep, "data", "b")

	tests := []struct {
		name  string
		roots []string
		want  []string
	}{
		{"Distinct", []string{a, b}, []string{a, b}},
		{"Repeated", []string{a, b, a}, []string{a, b}},
		{"NestedAfter", []string{a, sub}, []string{a}},
		{"NestedBefore", []string{sub, b, a}, []string{b, a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseRoots(tt.roots); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CollapseRoots(%v) = %v, want %v", tt.roots, got, tt.want)
			}
		})
	}
}
