package headers

import (
	"testing"

	"github.com/cnxlang/cnxc/internal/cache"
)

func TestHasCppEvidenceDetectsKeywordsAndExtensions(t *testing.T) {
	cases := []struct {
		path    string
		content string
		want    bool
	}{
		{"board.h", "extern int x;", false},
		{"board.h", "template<typename T> T max(T a, T b);", true},
		{"board.h", "namespace drivers { int init(); }", true},
		{"board.hpp", "extern int x;", true},
		{"board.h", "enum Mode : uint8_t { Idle, Run };", true},
	}
	for _, c := range cases {
		if got := HasCppEvidence(c.path, []byte(c.content)); got != c.want {
			t.Errorf("HasCppEvidence(%q, %q) = %v, want %v", c.path, c.content, got, c.want)
		}
	}
}

func TestIsGeneratedSentinelOnlyScansLeadingWindow(t *testing.T) {
	gen := []byte("// Generated by cnxc — do not edit\nextern int x;\n")
	if !IsGeneratedSentinel(gen) {
		t.Fatal("expected sentinel to be detected near the top of the file")
	}
	notGen := []byte("extern int x; // mentions Generated by cnxc only deep in a huge comment block\n")
	padded := append(make([]byte, 0, sentinelScanWindow+64), []byte("extern int x;\n")...)
	for len(padded) < sentinelScanWindow+10 {
		padded = append(padded, '/', '/', ' ', 'x', '\n')
	}
	padded = append(padded, notGen...)
	if IsGeneratedSentinel(padded) {
		t.Fatal("expected sentinel beyond the scan window to be ignored")
	}
}

func TestCollectParsesFunctionPrototypeAndStruct(t *testing.T) {
	hc, err := cache.NewHeaderCache("")
	if err != nil {
		t.Fatalf("NewHeaderCache: %v", err)
	}
	c, err := NewCollector(hc)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	src := []byte(`
struct Point {
	int x;
	int y;
};

int distance(struct Point a, struct Point b);
`)
	syms, isCpp, diags := c.Collect("geom.h", src)
	if isCpp {
		t.Fatal("expected plain-C evidence, no C++ markers present")
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.All())
	}
	names := map[string]bool{}
	for _, s := range syms {
		names[s.Name] = true
		if !s.IsExported {
			t.Errorf("expected %s to be exported", s.Name)
		}
		if s.File != "geom.h" {
			t.Errorf("expected file geom.h, got %s", s.File)
		}
	}
	if !names["Point"] || !names["distance"] {
		t.Fatalf("expected Point and distance symbols, got %+v", names)
	}
}

func TestCollectCachesByContentHash(t *testing.T) {
	dir := t.TempDir()
	hc, err := cache.NewHeaderCache(dir)
	if err != nil {
		t.Fatalf("NewHeaderCache: %v", err)
	}
	c, err := NewCollector(hc)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	src := []byte(`int add(int a, int b);`)
	first, _, _ := c.Collect("math.h", src)
	second, _, _ := c.Collect("math.h", src)
	if len(first) != len(second) {
		t.Fatalf("expected cached collect to return the same symbol count, got %d vs %d", len(first), len(second))
	}
}

func TestCollectSkipsPreviouslyGeneratedHeader(t *testing.T) {
	hc, _ := cache.NewHeaderCache("")
	c, err := NewCollector(hc)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	src := []byte("// Generated by cnxc\nint add(int a, int b);\n")
	syms, _, diags := c.Collect("out.h", src)
	if len(syms) != 0 {
		t.Fatalf("expected no symbols from a previously generated header, got %+v", syms)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.All())
	}
}
