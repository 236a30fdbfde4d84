// Package headers implements C3: turning a foreign C/C++ header into the
// same Symbol shape internal/symbols produces for C-Next source, so C5 can
// merge both into one table. Grounded on the teacher's tree-sitter setup
// (internal/parser/parser_language_setup.go's setupCpp) and its
// query-match walking idiom (internal/parser/parser.go's
// extractBasicSymbolsStringRef), generalized from code-search symbol
// extraction to the narrower declaration shapes a transpiled header needs:
// function prototypes, struct/class layouts, enums, and top-level externs.
package headers

import (
	"encoding/json"
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"

	"github.com/cnxlang/cnxc/internal/cache"
	"github.com/cnxlang/cnxc/internal/debug"
	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/include"
	"github.com/cnxlang/cnxc/internal/symbols"
)

// sentinel is the marker emitted atop every header this translator
// generates (see internal/codegen's header writer); a header carrying it
// in its first 200 bytes is our own past output and is skipped rather than
// re-parsed, per spec §4.2.
const sentinel = "Generated by cnxc"

const sentinelScanWindow = 200

// cppEvidence matches constructs that only exist in C++, used to decide
// which tree-sitter grammar dialect to request and which generation mode
// (C vs C++) a header's content implies, per spec §4.2's evidence list.
var cppEvidence = regexp.MustCompile(`\btemplate\b|\bnamespace\b|\bclass\b|\btypename\b|\benum\s+class\b|\benum\s+\w+\s*:\s*\w+`)

// HasCppEvidence reports whether content or its extension indicates C++.
func HasCppEvidence(path string, content []byte) bool {
	ext := strings.ToLower(path)
	if strings.HasSuffix(ext, ".hpp") || strings.HasSuffix(ext, ".hxx") || strings.HasSuffix(ext, ".hh") {
		return true
	}
	return cppEvidence.Match(content)
}

// IsGeneratedSentinel reports whether content was itself produced by this
// translator, scanning only the first 200 bytes per spec §4.2.
func IsGeneratedSentinel(content []byte) bool {
	window := content
	if len(window) > sentinelScanWindow {
		window = window[:sentinelScanWindow]
	}
	return strings.Contains(string(window), sentinel)
}

// Collector parses foreign headers with tree-sitter-cpp (the only grammar
// the pack ships; C is a syntactic subset for the declaration shapes this
// collector cares about) and restores/populates cache entries by content
// hash.
type Collector struct {
	parser *tree_sitter.Parser
	query  *tree_sitter.Query
	names  []string
	cache  *cache.HeaderCache
}

const queryStr = `
(function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
(declaration declarator: (function_declarator declarator: (identifier) @function.name)) @function.proto
(struct_specifier name: (type_identifier) @struct.name body: (field_declaration_list) @struct.body) @struct
(class_specifier name: (type_identifier) @struct.name body: (field_declaration_list) @struct.body) @struct
(enum_specifier name: (type_identifier) @enum.name body: (enumerator_list) @enum.body) @enum
(declaration declarator: (identifier) @var.name) @var
`

// NewCollector builds a Collector over tree-sitter-cpp, matching the
// teacher's setupCpp wiring: NewParser -> Language -> SetLanguage, then a
// single compiled Query reused across every header this run touches.
func NewCollector(hc *cache.HeaderCache) (*Collector, error) {
	parser := tree_sitter.NewParser()
	language := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	if err := parser.SetLanguage(language); err != nil {
		return nil, err
	}
	query, queryErr := tree_sitter.NewQuery(language, queryStr)
	if queryErr != nil {
		return nil, queryErr
	}
	return &Collector{parser: parser, query: query, names: query.CaptureNames(), cache: hc}, nil
}

// cachedPayload is what gets persisted under a header's content hash.
type cachedPayload struct {
	Symbols []*symbols.Symbol `json:"symbols"`
}

// Collect parses one header's content into symbols, consulting and
// populating the cache by content hash. It always re-runs HasCppEvidence
// regardless of a cache hit (spec §4.2: evidence detection is not itself
// cacheable, since it determines whether the *run* promotes to C++ mode).
func (c *Collector) Collect(path string, content []byte) ([]*symbols.Symbol, bool, *diag.Diagnostics) {
	diags := &diag.Diagnostics{}
	isCpp := HasCppEvidence(path, content)

	if IsGeneratedSentinel(content) {
		debug.LogHeaders("skipping previously generated header %s", path)
		return nil, isCpp, diags
	}

	hash := cache.ContentHash(content)
	if c.cache != nil {
		if snap, ok := c.cache.Get(hash); ok {
			var payload cachedPayload
			if err := json.Unmarshal(snap.Payload, &payload); err == nil {
				debug.LogCache("hit for %s (%s)", path, hash)
				return payload.Symbols, isCpp, diags
			}
		}
	}

	syms, err := c.parse(path, content)
	if err != nil {
		diags.Warn(diag.CodeParseFailure, path, 0, 0, "header parse failed: %v", err)
		// Partial symbols (possibly none) are returned rather than
		// aborting the run, per spec §4.2.
	}

	if c.cache != nil {
		if payload, err := json.Marshal(cachedPayload{Symbols: syms}); err == nil {
			_ = c.cache.Put(path, hash, payload)
		}
	}
	return syms, isCpp, diags
}

func (c *Collector) parse(path string, content []byte) ([]*symbols.Symbol, error) {
	tree := c.parser.Parse(content, nil)
	if tree == nil {
		return nil, errParseFailed{path: path}
	}
	defer tree.Close()

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	var out []*symbols.Symbol
	matches := cursor.Matches(c.query, tree.RootNode(), content)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		sym := c.symbolFromMatch(path, content, match)
		if sym != nil {
			out = append(out, sym)
		}
	}
	return out, nil
}

type errParseFailed struct{ path string }

func (e errParseFailed) Error() string { return "tree-sitter returned no tree for " + e.path }

// symbolFromMatch turns one query match into a Symbol, keyed off which
// capture fired (spec §4.2: file=header path, isExported=true always,
// declared type kept verbatim from the header's own spelling).
func (c *Collector) symbolFromMatch(path string, content []byte, match *tree_sitter.QueryMatch) *symbols.Symbol {
	captured := map[string]string{}
	var primaryCapture string
	for _, cap := range match.Captures {
		name := c.names[cap.Index]
		text := string(cap.Node.Utf8Text(content))
		captured[name] = text
		if !strings.Contains(name, ".") {
			primaryCapture = name
		}
	}

	switch primaryCapture {
	case "function":
		return &symbols.Symbol{
			Name: captured["function.name"], File: path, Kind: symbols.KindFunction,
			IsExported: true, DeclaredType: "",
		}
	case "function.proto":
		return &symbols.Symbol{
			Name: captured["function.name"], File: path, Kind: symbols.KindFunction,
			IsExported: true,
		}
	case "struct":
		return &symbols.Symbol{
			Name: captured["struct.name"], File: path, Kind: symbols.KindStruct,
			IsExported: true, Fields: fieldsFromBody(captured["struct.body"]),
		}
	case "enum":
		return &symbols.Symbol{
			Name: captured["enum.name"], File: path, Kind: symbols.KindEnum,
			IsExported: true, EnumMembers: membersFromBody(captured["enum.body"]),
		}
	case "var":
		return &symbols.Symbol{
			Name: captured["var.name"], File: path, Kind: symbols.KindVariable,
			IsExported: true,
		}
	default:
		return nil
	}
}

// fieldsFromBody makes a best-effort split of a `{ ... }` field list's raw
// text into Field entries; C7 only needs names/types for cross-referencing
// a header struct a C-Next file extends, not full C type-grammar fidelity.
func fieldsFromBody(body string) []symbols.Field {
	body = strings.Trim(body, "{}")
	var out []symbols.Field
	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		parts := strings.Fields(stmt)
		if len(parts) < 2 {
			continue
		}
		name := strings.TrimPrefix(parts[len(parts)-1], "*")
		typ := strings.Join(parts[:len(parts)-1], " ")
		out = append(out, symbols.Field{Name: name, Type: typ})
	}
	return out
}

func membersFromBody(body string) []symbols.EnumMember {
	body = strings.Trim(body, "{}")
	var out []symbols.EnumMember
	next := int64(0)
	for _, item := range strings.Split(body, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name := item
		if eq := strings.IndexByte(item, '='); eq >= 0 {
			name = strings.TrimSpace(item[:eq])
		}
		out = append(out, symbols.EnumMember{Name: name, Value: next})
		next++
	}
	return out
}

// CollectTransitive processes every foreign header C2's discovery walk
// reached (result.Headers), in discovery order: an including header comes
// before the headers it includes. Nested headers are found by that walk,
// not resolved again here. When preprocess is non-nil, it runs over each
// header's raw content before parsing (spec §6 `preprocess` option,
// §1's "preprocess this text" interface); pass nil to skip the step
// entirely.
func CollectTransitive(c *Collector, result *include.DiscoveryResult, readFile func(string) ([]byte, error), preprocess func([]byte) []byte) (map[string][]*symbols.Symbol, bool, *diag.Diagnostics) {
	allDiags := &diag.Diagnostics{}
	out := map[string][]*symbols.Symbol{}
	anyCpp := false
	for _, h := range result.Headers {
		content, err := readFile(h)
		if err != nil {
			allDiags.Warn(diag.CodeDiscoveryNotFound, h, 0, 0, "could not read header: %v", err)
			continue
		}
		if preprocess != nil {
			content = preprocess(content)
		}
		syms, isCpp, diags := c.Collect(h, content)
		out[h] = syms
		anyCpp = anyCpp || isCpp
		allDiags.Merge(diags)
	}
	return out, anyCpp, allDiags
}
