// cmd/shopwatch/main_test.go
package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func TestCLIVersion(t *testing.T) {
	version = "test-version"
	buildTime = "2026-01-01"
	gitCommit = "abc123"

	output := captureOutput(func() {
		printVersion()
	})

	if !strings.Contains(output, "test-version") {
		t.Errorf("version output should contain version, got: %s", output)
	}
	if !strings.Contains(output, "2026-01-01") {
		t.Errorf("version output should contain build time, got: %s", output)
	}
	if !strings.Contains(output, "abc123") {
		t.Errorf("version output should contain git commit, got: %s", output)
	}
}

func TestCLIHelp(t *testing.T) {
	output := captureOutput(func() {
		printUsage()
	})

	commands := []string{"run", "version", "help"}
	for _, cmd := range commands {
		if !strings.Contains(output, cmd) {
			t.Errorf("help output should contain command %q, got: %s", cmd, output)
		}
	}
}

func TestParseGlobalFlagsDefaultsAndOverrides(t *testing.T) {
	rest := parseGlobalFlags(nil)
	if len(rest) != 0 {
		t.Errorf("expected no remaining args, got %v", rest)
	}
	if bootstrapPath != "shopwatch.yaml" {
		t.Errorf("bootstrapPath default = %q, want shopwatch.yaml", bootstrapPath)
	}
	if productURLsPath != "ProductURLs.txt" {
		t.Errorf("productURLsPath default = %q, want ProductURLs.txt", productURLsPath)
	}

	rest = parseGlobalFlags([]string{"-bootstrap", "custom.yaml", "-product-urls", "urls.txt", "run"})
	if bootstrapPath != "custom.yaml" {
		t.Errorf("bootstrapPath = %q, want custom.yaml", bootstrapPath)
	}
	if productURLsPath != "urls.txt" {
		t.Errorf("productURLsPath = %q, want urls.txt", productURLsPath)
	}
	if len(rest) != 1 || rest[0] != "run" {
		t.Errorf("remaining args = %v, want [run]", rest)
	}
}

// captureOutput captures stdout during function execution
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	f()
	w.Close()
	os.Stdout = old
	out := <-outC

	return out
}
