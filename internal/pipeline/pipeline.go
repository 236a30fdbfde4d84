// Package pipeline implements the driver described in spec §4.6: it
// orders C1-C7 across a whole run, owns the cross-file modification
// accumulator and the C++-mode latch, and is the only component that
// writes generated output to disk. Grounded on the teacher's own
// multi-phase indexing run (internal/indexer's discover -> parse ->
// resolve -> persist sequence), adapted from "index a codebase" to
// "transpile a codebase": the phase shape survives, the phase bodies
// don't.
package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cnxlang/cnxc/internal/ast"
	"github.com/cnxlang/cnxc/internal/cache"
	"github.com/cnxlang/cnxc/internal/cnxparse"
	"github.com/cnxlang/cnxc/internal/codegen"
	"github.com/cnxlang/cnxc/internal/config"
	"github.com/cnxlang/cnxc/internal/debug"
	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/fsabs"
	"github.com/cnxlang/cnxc/internal/headers"
	"github.com/cnxlang/cnxc/internal/include"
	"github.com/cnxlang/cnxc/internal/modanalysis"
	"github.com/cnxlang/cnxc/internal/symbols"
)

// Options configures one transpile run, mirroring cnext.config.json's
// `options` object (spec §6) plus the root file set a single invocation
// always needs.
type Options struct {
	Roots        []string
	IncludeDirs  []string
	OutDir       string
	HeaderOutDir string
	BasePath     string
	CppRequired  bool
	ParseOnly    bool
	NoCache      bool
	DebugMode    bool
	Target       string
	Preprocess   bool
	ProjectRoot  string // cache placement root; detected from BasePath when empty
}

// FileResult is one C-Next file's generation outcome.
type FileResult struct {
	Source     string
	BodyPath   string
	HeaderPath string
	Diags      []diag.Diagnostic
}

// Result is the whole run's outcome (spec §4.7.1's "contribution record",
// gathered across every file rather than per-file).
type Result struct {
	Files   []FileResult
	CppMode bool
	Diags   *diag.Diagnostics
}

// sourceFile bundles the per-file state that survives from discovery
// through generation: the parsed tree, its comment table, and the path it
// was read from. The driver keeps one of these per C-Next input rather
// than re-parsing when C6/C7 run.
type sourceFile struct {
	path     string
	root     *ast.Node
	comments cnxparse.CommentTable
}

// Run executes the full pipeline against fsys: discovery, header and
// C-Next symbol collection, conflict/dimension resolution, then per-file
// modification analysis and code generation, in the order spec §4.6
// prescribes.
func Run(fsys fsabs.FileSystem, opts Options) (*Result, error) {
	if opts.DebugMode {
		debug.Enable()
	}
	result := &Result{Diags: &diag.Diagnostics{}}

	hc, err := openCache(opts)
	if err != nil {
		return nil, fmt.Errorf("opening header cache: %w", err)
	}

	mods := modanalysis.NewAnalyzer()

	includeDirs, err := include.MatchIncludeDirs(opts.IncludeDirs)
	if err != nil {
		return nil, fmt.Errorf("expanding include dirs: %w", err)
	}
	discovery, err := include.ResolveTransitive(fsys, opts.Roots, includeDirs)
	if err != nil {
		return nil, fmt.Errorf("discovering sources: %w", err)
	}
	for _, w := range discovery.Warnings {
		result.Diags.Warn(diag.CodeIncludeUnresolved, w.FromFile, w.Line, 0, "unresolved include %q", w.Include)
	}
	if len(discovery.CNextFiles) == 0 {
		result.Diags.Warn(diag.CodeDiscoveryNotFound, "", 0, 0, "no C-Next sources found")
		debug.LogPipeline("no sources discovered from %v", opts.Roots)
		return result, nil
	}

	if err := fsys.MkdirAll(opts.OutDir); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	headerOutDir := opts.HeaderOutDir
	if headerOutDir == "" {
		headerOutDir = opts.OutDir
	}
	if err := fsys.MkdirAll(headerOutDir); err != nil {
		return nil, fmt.Errorf("creating header output dir: %w", err)
	}

	table := symbols.NewTable()
	cppMode := opts.CppRequired

	collector, err := headers.NewCollector(hc)
	if err != nil {
		return nil, fmt.Errorf("building header collector: %w", err)
	}
	var preprocess func([]byte) []byte
	if opts.Preprocess {
		preprocess = func(content []byte) []byte { return headers.Preprocess(content, nil) }
	}
	headerSyms, headersCpp, headerDiags := headers.CollectTransitive(collector, discovery, fsys.ReadFile, preprocess)
	result.Diags.Merge(headerDiags)
	cppMode = cppMode || headersCpp
	for path, syms := range headerSyms {
		table.AddSymbols(path, syms)
	}

	sorted := sortCNextInputs(discovery.CNextFiles)
	files := make(map[string]*sourceFile, len(sorted))
	for _, path := range sorted {
		content, err := fsys.ReadFile(path)
		if err != nil {
			result.Diags.Error(diag.CodeDiscoveryNotFound, path, 0, 0, "could not read source: %v", err)
			continue
		}
		root, comments, perr := cnxparse.Parse(content)
		if perr != nil {
			result.Diags.Error(diag.CodeParseFailure, path, 0, 0, "%v", perr)
			continue
		}
		files[path] = &sourceFile{path: path, root: root, comments: comments}
		table.AddSymbols(path, symbols.Collect(path, root))
		debug.LogSymbols("collected %s", path)
	}

	for _, err := range table.ResolveExternalArrayDimensions() {
		result.Diags.Error(diag.CodeSymbolConflict, "", 0, 0, "%v", err)
	}
	for _, c := range table.GetConflicts() {
		if c.Severity == diag.SeverityError {
			result.Diags.Error(diag.CodeSymbolConflict, strings.Join(c.Files, ", "), 0, 0, "%s", c.Message)
		} else {
			result.Diags.Warn(diag.CodeSymbolConflict, strings.Join(c.Files, ", "), 0, 0, "%s", c.Message)
		}
	}

	if opts.ParseOnly {
		result.CppMode = cppMode
		return result, nil
	}

	target := codegen.Target(opts.Target)
	if target == "" {
		target = codegen.TargetGeneric
	}

	for _, path := range sorted {
		sf, ok := files[path]
		if !ok {
			continue
		}
		registerFunctions(mods, sf.root)
		mods.Propagate()

		mode := codegen.ModeC
		if cppMode {
			mode = codegen.ModeCpp
		}
		ctx := codegen.NewContext(path, mode, target, table, mods)
		genResult := codegen.Generate(ctx, sf.root, sf.comments, headerNameFor(path, cppMode))
		result.Diags.Merge(genResult.Diags)

		fr := FileResult{Source: path, Diags: genResult.Diags.All()}
		fr.BodyPath = filepath.Join(opts.OutDir, bodyNameFor(path, cppMode))
		if err := fsys.WriteFile(fr.BodyPath, []byte(genResult.Body)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", fr.BodyPath, err)
		}
		fr.HeaderPath = filepath.Join(headerOutDir, headerNameFor(path, cppMode))
		if err := fsys.WriteFile(fr.HeaderPath, []byte(genResult.Header)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", fr.HeaderPath, err)
		}
		result.Files = append(result.Files, fr)
		debug.LogPipeline("generated %s -> %s, %s", path, fr.BodyPath, fr.HeaderPath)
	}

	result.CppMode = cppMode
	return result, nil
}

func openCache(opts Options) (*cache.HeaderCache, error) {
	if opts.NoCache {
		return cache.NewHeaderCache("")
	}
	root := opts.ProjectRoot
	if root == "" {
		if found, ok := config.FindProjectRoot(opts.BasePath); ok {
			root = found
		}
	}
	dir := ""
	if root != "" {
		dir = filepath.Join(root, ".cnx")
	}
	return cache.NewHeaderCache(dir)
}

// sortCNextInputs implements spec §4.6 step 4's heuristic: a file reached
// only through another file's #include is appended to the discovery list
// after its includer, so reversing discovery order puts included-by-
// others files ahead of the files that include them.
func sortCNextInputs(discovered []string) []string {
	out := make([]string, len(discovered))
	for i, p := range discovered {
		out[len(discovered)-1-i] = p
	}
	return out
}

// registerFunctions feeds every top-level and scope-member function in
// root into C6, keyed by the same name C4/C5 use (qualified `Scope::
// member` for scope functions, bare name otherwise) so C7's later lookups
// by symbol name agree with what this recorded.
func registerFunctions(mods *modanalysis.Analyzer, root *ast.Node) {
	for _, decl := range root.Children {
		switch decl.Kind {
		case ast.KindFunctionDecl:
			registerOne(mods, decl.Attr("name"), decl)
		case ast.KindScopeDecl:
			scopeName := decl.Attr("name")
			for _, member := range decl.Children {
				if member.Kind == ast.KindFunctionDecl {
					registerOne(mods, scopeName+"::"+member.Attr("name"), member)
				}
			}
		}
	}
}

func registerOne(mods *modanalysis.Analyzer, name string, decl *ast.Node) {
	var names []string
	for _, p := range decl.ChildrenOfKind(ast.KindParam) {
		names = append(names, p.Attr("name"))
	}
	body := decl.Children[len(decl.Children)-1]
	mods.CollectFunction(name, names, body)
}

func bodyNameFor(sourcePath string, cppMode bool) string {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if cppMode {
		return base + ".cpp"
	}
	return base + ".c"
}

func headerNameFor(sourcePath string, cppMode bool) string {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	if cppMode {
		return base + ".hpp"
	}
	return base + ".h"
}
