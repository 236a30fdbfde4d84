package symbols

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cnxlang/cnxc/internal/diag"
)

// Table is C5: the unified symbol store every header and c-next file feeds
// into. Grounded on the teacher's symbol-linker model of per-file symbol
// sets merged into one cross-file index, generalized to this language's
// kind set and conflict rules (spec §4.4).
type Table struct {
	byFile map[string][]*Symbol
	byName map[string][]*Symbol
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	return &Table{byFile: map[string][]*Symbol{}, byName: map[string][]*Symbol{}}
}

// AddSymbols merges the symbols collected from one file into the table.
// Conflict detection happens lazily in GetConflicts, not here, so that
// AddSymbols order (header collection then c-next collection) never
// affects which symbols are visible.
func (t *Table) AddSymbols(file string, syms []*Symbol) {
	t.byFile[file] = append(t.byFile[file], syms...)
	for _, s := range syms {
		t.byName[s.Name] = append(t.byName[s.Name], s)
	}
}

// GetSymbolsByFile returns every symbol declared in file, in collection
// order.
func (t *Table) GetSymbolsByFile(file string) []*Symbol {
	return t.byFile[file]
}

// GetStructFields returns the field list of the struct named name; scope
// symbols are not searched. Per spec §3 this is the single source of truth for
// field types once C5 has collected it; C7 never re-derives field types
// from a parse tree.
func (t *Table) GetStructFields(name string) ([]Field, bool) {
	for _, s := range t.byName[name] {
		if s.Kind == KindStruct && len(s.Fields) > 0 {
			return s.Fields, true
		}
	}
	for _, s := range t.byName[name] {
		if s.Kind == KindStruct {
			return s.Fields, true
		}
	}
	return nil, false
}

// CheckNeedsStructKeyword reports whether C emission for the named type
// must spell out `struct Name` (true, C mode, since C-Next structs lower
// to plain C structs with no typedef) versus a bare identifier being valid
// (C++ mode, where the struct name is itself a type).
func (t *Table) CheckNeedsStructKeyword(name string) bool {
	for _, s := range t.byName[name] {
		if s.Kind == KindStruct {
			return true
		}
	}
	return false
}

// Conflict describes one name collision the table found across files.
type Conflict struct {
	Name     string
	Severity diag.Severity
	Message  string
	Files    []string
}

// GetConflicts scans the table for symbols sharing a name across distinct
// files and reports them per spec §4.4's conflict policy: identical name
// is a hard error unless every symbol sharing it is a function declaration
// with an identical signature (a legal forward-declare + define split, or
// a header re-included from two include paths that both resolved to the
// same canonical file are already collapsed before reaching here).
func (t *Table) GetConflicts() []Conflict {
	var conflicts []Conflict
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		group := t.byName[name]
		if len(group) < 2 {
			continue
		}
		distinctFiles := map[string]bool{}
		for _, s := range group {
			distinctFiles[s.File] = true
		}
		if len(distinctFiles) < 2 {
			continue
		}
		if allIdenticalFunctionSignatures(group) {
			continue
		}
		files := make([]string, 0, len(distinctFiles))
		for f := range distinctFiles {
			files = append(files, f)
		}
		sort.Strings(files)
		conflicts = append(conflicts, Conflict{
			Name:     name,
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("%q is declared in %d files with incompatible declarations", name, len(files)),
			Files:    files,
		})
	}
	return conflicts
}

func allIdenticalFunctionSignatures(group []*Symbol) bool {
	for _, s := range group {
		if s.Kind != KindFunction {
			return false
		}
	}
	first := signatureOf(group[0])
	for _, s := range group[1:] {
		if signatureOf(s) != first {
			return false
		}
	}
	return true
}

func signatureOf(s *Symbol) string {
	sig := s.DeclaredType
	for _, p := range s.Params {
		sig += "," + p.BaseType
		if p.IsArray {
			sig += "[]"
		}
	}
	return sig
}

// ResolveExternalArrayDimensions substitutes symbolic array dimensions
// (array declarations sized by a named const rather than a literal) with
// the referenced const's resolved integer value, per spec §4.3's rule that
// a `const T NAME <- literal` may later be used as another array's bound
// even across files. Dimensions that stay unresolved (no matching const,
// or the const's initial value isn't an integer literal) are reported as
// errors rather than silently left symbolic, since C7 cannot emit a sized
// array declaration without a concrete bound.
func (t *Table) ResolveExternalArrayDimensions() []error {
	var errs []error
	for _, syms := range t.byFile {
		for _, s := range syms {
			resolveFieldDims(t, s.Fields, s.Name, &errs)
		}
	}
	return errs
}

func resolveFieldDims(t *Table, fields []Field, owner string, errs *[]error) {
	for i := range fields {
		f := &fields[i]
		if !f.IsArray || f.Dim == "" {
			continue
		}
		if _, err := strconv.ParseInt(f.Dim, 0, 64); err == nil {
			continue // already a literal
		}
		val, ok := t.lookupConstValue(f.Dim)
		if !ok {
			*errs = append(*errs, fmt.Errorf("%s.%s: array dimension %q does not name a known const", owner, f.Name, f.Dim))
			continue
		}
		if _, err := strconv.ParseInt(val, 0, 64); err != nil {
			*errs = append(*errs, fmt.Errorf("%s.%s: array dimension %q names a const whose value %q is not an integer literal", owner, f.Name, f.Dim, val))
			continue
		}
		f.Dim = val
	}
}

func (t *Table) lookupConstValue(name string) (string, bool) {
	for _, s := range t.byName[name] {
		if s.IsConst && s.InitialValue != "" {
			return s.InitialValue, true
		}
	}
	return "", false
}
