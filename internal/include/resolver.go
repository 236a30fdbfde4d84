// Package include implements C2: extracting #include directives from
// source text, resolving them against search paths, classifying the
// result, and walking the transitive include graph of a set of root
// files. Grounded on the indexer's heuristic include scanner, generalized
// from quoted-only single-line scanning to the full extract/resolve/
// classify/resolve-transitive contract spec §4.1 names.
package include

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cnxlang/cnxc/internal/debug"
	"github.com/cnxlang/cnxc/internal/fsabs"
)

// FileKind classifies a discovered file by extension (spec §4.1 classify).
type FileKind int

const (
	KindUnknown FileKind = iota
	KindCNext
	KindCHeader
	KindCppHeader
)

func (k FileKind) String() string {
	switch k {
	case KindCNext:
		return "c-next"
	case KindCHeader:
		return "c-header"
	case KindCppHeader:
		return "cpp-header"
	default:
		return "unknown"
	}
}

// Directive is one #include occurrence: the referenced name and whether
// it was quoted ("x.h", local) or angle-bracketed (<x.h>, system).
type Directive struct {
	Name    string
	IsLocal bool
	Line    int
}

// Extract scans text for #include directives, preserving source order.
// Only lines whose first non-space character is '#' are considered;
// directives inside comments are not special-cased since the grammar
// reserves '#' as a directive marker, not a comment character.
func Extract(text []byte) []Directive {
	var out []Directive
	scanner := bufio.NewScanner(bytes.NewReader(text))
	line := 0
	for scanner.Scan() {
		line++
		trimmed := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(trimmed, "#include") {
			continue
		}
		rest := strings.TrimSpace(trimmed[len("#include"):])
		if len(rest) < 2 {
			continue
		}
		switch rest[0] {
		case '"':
			if end := strings.IndexByte(rest[1:], '"'); end >= 0 {
				out = append(out, Directive{Name: rest[1 : end+1], IsLocal: true, Line: line})
			}
		case '<':
			if end := strings.IndexByte(rest, '>'); end > 0 {
				out = append(out, Directive{Name: rest[1:end], IsLocal: false, Line: line})
			}
		}
	}
	return out
}

// Resolve finds the absolute path for a directive's name, searching
// source-dir first (for local includes only) then each includeDir in
// order. It returns ok=false when no candidate exists on disk.
func Resolve(fsys fsabs.FileSystem, dir Directive, sourceDir string, includeDirs []string) (string, bool) {
	var searchDirs []string
	if dir.IsLocal {
		searchDirs = append(searchDirs, sourceDir)
	}
	searchDirs = append(searchDirs, includeDirs...)

	for _, base := range searchDirs {
		candidate := filepath.Clean(filepath.Join(base, dir.Name))
		if fsys.Exists(candidate) {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return candidate, true
			}
			return abs, true
		}
	}
	return "", false
}

// Classify tags an absolute path by extension.
func Classify(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cnx", ".cnext":
		return KindCNext
	case ".h":
		return KindCHeader
	case ".hpp", ".hxx", ".hh":
		return KindCppHeader
	default:
		return KindUnknown
	}
}

// Warning is a non-fatal include-resolution issue (spec §4.1: "unresolved
// local include is a warning; unresolved system include is ignored").
type Warning struct {
	FromFile string
	Include  string
	Line     int
}

// DiscoveryResult is the output of resolve-transitive: c-next files in
// discovery order, the unique set of foreign headers reached, and the
// include-directive text that should be preserved when re-emitting a
// generated header that needs one of those headers.
type DiscoveryResult struct {
	CNextFiles    []string
	Headers       []string
	HeaderDirective map[string]string
	Warnings      []Warning
}

// ResolveTransitive walks the include graph starting at roots, returning
// every reachable c-next file (in discovery order) and the unique set of
// foreign headers. Cycles are broken with a visited set keyed on the
// canonical absolute path, consistent with spec §9 "never break a cycle
// mid-parse" by never re-descending into an already-visited node at all.
func ResolveTransitive(fsys fsabs.FileSystem, roots []string, includeDirs []string) (*DiscoveryResult, error) {
	result := &DiscoveryResult{HeaderDirective: map[string]string{}}
	visited := map[string]bool{}

	var visit func(path string) error
	visit = func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if visited[abs] {
			return nil
		}
		visited[abs] = true

		content, err := fsys.ReadFile(abs)
		if err != nil {
			return err
		}

		kind := Classify(abs)
		if kind == KindCNext {
			result.CNextFiles = append(result.CNextFiles, abs)
		} else {
			result.Headers = append(result.Headers, abs)
		}

		for _, d := range Extract(content) {
			resolvedPath, ok := Resolve(fsys, d, filepath.Dir(abs), includeDirs)
			if !ok {
				if d.IsLocal {
					debug.LogInclude("unresolved local include %q from %s:%d", d.Name, abs, d.Line)
					result.Warnings = append(result.Warnings, Warning{FromFile: abs, Include: d.Name, Line: d.Line})
				}
				// System includes that don't resolve are silently ignored
				// per spec §4.1; the downstream C/C++ compiler owns that error.
				continue
			}
			if _, already := result.HeaderDirective[resolvedPath]; !already && Classify(resolvedPath) != KindCNext {
				quote := "\""
				if !d.IsLocal {
					quote = "<"
				}
				result.HeaderDirective[resolvedPath] = formatDirective(d.Name, quote)
			}
			if err := visit(resolvedPath); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range roots {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func formatDirective(name, openQuote string) string {
	if openQuote == "<" {
		return "#include <" + name + ">"
	}
	return "#include \"" + name + "\""
}

// MatchIncludeDirs expands glob patterns (e.g. "vendor/**/include") in a
// configured includeDirs list against the filesystem, so configuration
// can name a tree of SDK include directories without enumerating each one.
func MatchIncludeDirs(patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			out = append(out, pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}
