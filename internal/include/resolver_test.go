package include

import (
	"testing"

	"github.com/cnxlang/cnxc/internal/fsabs"
)

func TestExtractQuotedAndAngleIncludes(t *testing.T) {
	src := []byte(`#include "a.cnx"
#include <stdint.h>
u8 x <- 1;
`)
	dirs := Extract(src)
	if len(dirs) != 2 {
		t.Fatalf("expected 2 directives, got %d: %+v", len(dirs), dirs)
	}
	if dirs[0].Name != "a.cnx" || !dirs[0].IsLocal {
		t.Fatalf("expected local a.cnx first, got %+v", dirs[0])
	}
	if dirs[1].Name != "stdint.h" || dirs[1].IsLocal {
		t.Fatalf("expected system stdint.h second, got %+v", dirs[1])
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]FileKind{
		"a.cnx":   KindCNext,
		"a.cnext": KindCNext,
		"a.h":     KindCHeader,
		"a.hpp":   KindCppHeader,
		"a.hxx":   KindCppHeader,
		"a.txt":   KindUnknown,
	}
	for path, want := range cases {
		if got := Classify(path); got != want {
			t.Errorf("Classify(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestResolveLocalPrefersSourceDir(t *testing.T) {
	fsys := fsabs.NewMemory("", nil)
	_ = fsys.WriteFile("/proj/src/util.h", []byte("x"))
	_ = fsys.WriteFile("/proj/include/util.h", []byte("y"))

	path, ok := Resolve(fsys, Directive{Name: "util.h", IsLocal: true}, "/proj/src", []string{"/proj/include"})
	if !ok {
		t.Fatal("expected resolve to succeed")
	}
	if path != "/proj/src/util.h" {
		t.Fatalf("expected source-dir to win, got %q", path)
	}
}

func TestResolveSystemIgnoresSourceDir(t *testing.T) {
	fsys := fsabs.NewMemory("", nil)
	_ = fsys.WriteFile("/proj/src/stdint.h", []byte("wrong"))
	_ = fsys.WriteFile("/proj/include/stdint.h", []byte("right"))

	path, ok := Resolve(fsys, Directive{Name: "stdint.h", IsLocal: false}, "/proj/src", []string{"/proj/include"})
	if !ok {
		t.Fatal("expected resolve to succeed")
	}
	if path != "/proj/include/stdint.h" {
		t.Fatalf("expected include-dir match for system include, got %q", path)
	}
}

func TestResolveTransitiveBreaksCycles(t *testing.T) {
	fsys := fsabs.NewMemory("", nil)
	_ = fsys.WriteFile("/proj/a.cnx", []byte(`#include "b.cnx"`))
	_ = fsys.WriteFile("/proj/b.cnx", []byte(`#include "a.cnx"`))

	result, err := ResolveTransitive(fsys, []string{"/proj/a.cnx"}, nil)
	if err != nil {
		t.Fatalf("ResolveTransitive: %v", err)
	}
	if len(result.CNextFiles) != 2 {
		t.Fatalf("expected both files visited exactly once, got %v", result.CNextFiles)
	}
}

func TestResolveTransitiveCollectsHeadersAndDirectives(t *testing.T) {
	fsys := fsabs.NewMemory("", nil)
	_ = fsys.WriteFile("/proj/a.cnx", []byte(`#include "board.h"
#include <stdint.h>
`))
	_ = fsys.WriteFile("/proj/board.h", []byte("extern int x;"))
	_ = fsys.WriteFile("/proj/include/stdint.h", []byte("typedef int uint32_t;"))

	result, err := ResolveTransitive(fsys, []string{"/proj/a.cnx"}, []string{"/proj/include"})
	if err != nil {
		t.Fatalf("ResolveTransitive: %v", err)
	}
	if len(result.Headers) != 2 {
		t.Fatalf("expected 2 headers, got %v", result.Headers)
	}
	if result.HeaderDirective["/proj/board.h"] != `#include "board.h"` {
		t.Fatalf("expected quoted directive preserved for board.h, got %q", result.HeaderDirective["/proj/board.h"])
	}
}

func TestResolveTransitiveWarnsOnUnresolvedLocalInclude(t *testing.T) {
	fsys := fsabs.NewMemory("", nil)
	_ = fsys.WriteFile("/proj/a.cnx", []byte(`#include "missing.cnx"`))

	result, err := ResolveTransitive(fsys, []string{"/proj/a.cnx"}, nil)
	if err != nil {
		t.Fatalf("ResolveTransitive: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Include != "missing.cnx" {
		t.Fatalf("expected one warning for missing.cnx, got %+v", result.Warnings)
	}
}
