package mirror

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<p>home</p>")
	writeFile(t, root, "a.css", "body {}")
	writeFile(t, root, "sub/index.html", "<p>sub</p>")
	writeFile(t, root, "img/deep/logo.png", "not really a png")

	var got []string
	err := Walk(root, func(rel string) error {
		got = append(got, rel)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a.css", "img/deep/logo.png", "index.html", "sub/index.html"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	err := Walk(filepath.Join(t.TempDir(), "nope"), func(string) error { return nil })
	if err == nil {
		t.Fatal("got nil, want error")
	}
}

func TestWalkCallbackError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.css", "body {}")

	wantErr := errors.New("stop")
	err := Walk(root, func(string) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
