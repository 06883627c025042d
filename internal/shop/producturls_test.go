package shop

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProductURLsFile(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ProductURLs.txt")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing product URL file: %v", err)
	}
	return path
}

func TestLoadProductURLsFileSkipsCommentsBlanksAndInvalid(t *testing.T) {
	path := writeProductURLsFile(t,
		"# a comment",
		"",
		"https://shop.example.com/p/1",
		"not-a-url",
		"  https://shop.example.com/p/2  ",
	)

	urls, err := LoadProductURLsFile(path, nil)
	if err != nil {
		t.Fatalf("LoadProductURLsFile: %v", err)
	}
	want := []string{"https://shop.example.com/p/1", "https://shop.example.com/p/2"}
	if len(urls) != len(want) {
		t.Fatalf("got %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestLoadProductURLsFileDeduplicates(t *testing.T) {
	path := writeProductURLsFile(t,
		"https://shop.example.com/p/1",
		"https://shop.example.com/p/1",
	)

	urls, err := LoadProductURLsFile(path, nil)
	if err != nil {
		t.Fatalf("LoadProductURLsFile: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("expected duplicates removed, got %v", urls)
	}
}

func TestLoadProductURLsFileMissingFileErrors(t *testing.T) {
	if _, err := LoadProductURLsFile(filepath.Join(t.TempDir(), "nope.txt"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadProductURLsFileEmptyFileYieldsEmptySet(t *testing.T) {
	path := writeProductURLsFile(t)
	urls, err := LoadProductURLsFile(path, nil)
	if err != nil {
		t.Fatalf("LoadProductURLsFile: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("expected no URLs, got %v", urls)
	}
}

func TestSaveThenLoadProductURLsFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ProductURLs.txt")
	in := []string{"https://a.example.com/p/1", "https://b.example.com/p/2"}

	if err := SaveProductURLsFile(path, in); err != nil {
		t.Fatalf("SaveProductURLsFile: %v", err)
	}
	out, err := LoadProductURLsFile(path, nil)
	if err != nil {
		t.Fatalf("LoadProductURLsFile: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %v, want %v", out, in)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %q, want %q", i, out[i], in[i])
		}
	}
}
