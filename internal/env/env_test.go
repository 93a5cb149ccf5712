package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadOverlayMissingFile(t *testing.T) {
	vars, err := LoadOverlay(filepath.Join(t.TempDir(), ".env"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(vars) != 0 {
		t.Fatalf("expected empty overlay, got %v", vars)
	}
}

func TestLoadOverlayParsing(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	content := strings.Join([]string{
		"# comment",
		"",
		"PORT=8080",
		"NAME=\"my app\"",
		"TOKEN='abc=def'",
		"export SHELL_STYLE=1",
		"MALFORMED LINE WITHOUT EQUALS",
		"=novalue",
		"SPACED = padded ",
	}, "\n")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	vars, err := LoadOverlay(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]string{
		"PORT":        "8080",
		"NAME":        "my app",
		"TOKEN":       "abc=def",
		"SHELL_STYLE": "1",
		"SPACED":      "padded",
	}
	if len(vars) != len(want) {
		t.Fatalf("got %v want %v", vars, want)
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s: got %q want %q", k, vars[k], v)
		}
	}
}

func TestMergeOverlayWins(t *testing.T) {
	t.Setenv("DEPLOYR_TEST_BASE", "from-os")
	t.Setenv("DEPLOYR_TEST_KEEP", "kept")
	e := New()
	out := e.Merge(Var{"DEPLOYR_TEST_BASE": "from-overlay", "EXTRA": "1"})
	got := make(map[string]string, len(out))
	for _, kv := range out {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			got[kv[:i]] = kv[i+1:]
		}
	}
	if got["DEPLOYR_TEST_BASE"] != "from-overlay" {
		t.Errorf("overlay should win, got %q", got["DEPLOYR_TEST_BASE"])
	}
	if got["DEPLOYR_TEST_KEEP"] != "kept" {
		t.Errorf("base vars must be inherited, got %q", got["DEPLOYR_TEST_KEEP"])
	}
	if got["EXTRA"] != "1" {
		t.Errorf("overlay-only vars must appear, got %q", got["EXTRA"])
	}
}
