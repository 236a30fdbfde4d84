package codegen

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/symbols"
)

// ResolveIdent implements spec §4.7.2's priority chain for a bare
// identifier seen while generating code for a function body: parameters
// and locals shadow scope members, which shadow globals. locals/params are
// supplied by the walker since C7 doesn't re-derive a full local symbol
// table; scope membership and globals come from the shared Table.
func ResolveIdent(ctx *Context, localNames map[string]bool, name string) string {
	if localNames[name] {
		return name
	}
	if ctx.CurrentScope != "" {
		if isScopeMember(ctx, ctx.CurrentScope, name) {
			return mangleScopeMember(ctx.CurrentScope, name)
		}
	}
	return name // global, emitted verbatim
}

func isScopeMember(ctx *Context, scope, name string) bool {
	for _, s := range ctx.Table.GetSymbolsByFile(ctx.File) {
		if s.Kind == symbols.KindScope && s.Name == scope {
			for _, m := range s.ScopeMembers {
				if m.Name == name {
					return true
				}
			}
		}
	}
	return false
}

// ResolveMemberAccess renders `a.b` style access per spec §4.7.2:
//   - `S.m` outside S becomes `S_m` when S names a scope
//   - `this.m` inside a scope's own methods becomes `Scope_m`
//   - `global.m` forces the top-level `m`, bypassing any shadowing scope member
//   - otherwise it's a genuine struct-field access, left as `a.b`
func ResolveMemberAccess(ctx *Context, base, member string) string {
	switch base {
	case "this":
		return mangleScopeMember(ctx.CurrentScope, member)
	case "global":
		return member
	}
	if isScopeName(ctx, base) {
		return mangleScopeMember(base, member)
	}
	return base + "." + member
}

func isScopeName(ctx *Context, name string) bool {
	for _, s := range ctx.Table.GetSymbolsByFile(ctx.File) {
		if s.Kind == symbols.KindScope && s.Name == name {
			return true
		}
	}
	return false
}

// ResolveEnumAccess renders `E.V` per mode: `E_V` in C, `E::V` in C++.
func ResolveEnumAccess(ctx *Context, enumName, member string) string {
	if ctx.Mode == ModeCpp {
		return enumName + "::" + member
	}
	return enumName + "_" + member
}

// ResolveBareEnumMember resolves a bare enum member name using
// expectedType context (spec §4.7.2: "bare enum member needs expected-type
// context else diagnostic with a did-you-mean hint"). expectedType is the
// enum type name the surrounding context (e.g. a switch subject, an
// assignment's declared type) implies; if empty, or the member doesn't
// exist on that enum, a diagnostic is raised with a string-similarity
// suggestion (see didYouMean) drawn from every enum member name visible in
// the file.
func ResolveBareEnumMember(ctx *Context, expectedType, member string, line, col int) (string, bool) {
	if expectedType != "" {
		if enumHasMember(ctx, expectedType, member) {
			return ResolveEnumAccess(ctx, expectedType, member), true
		}
	}
	ctx.Diags.Error(diag.CodeUnresolvedName, ctx.File, line, col,
		"bare enum member %q has no expected-type context", member)
	if hint := didYouMean(ctx, member); hint != "" {
		ctx.Diags.WithHint("did you mean " + hint + "?")
	}
	return member, false
}

func enumHasMember(ctx *Context, enumName, member string) bool {
	for _, s := range ctx.Table.GetSymbolsByFile(ctx.File) {
		if s.Kind == symbols.KindEnum && s.Name == enumName {
			for _, m := range s.EnumMembers {
				if m.Name == member {
					return true
				}
			}
		}
	}
	return false
}

// didYouMean picks the closest enum-member candidate by Jaro-Winkler
// similarity, grounded on go-edlib's StringsSimilarity API (the same call
// the teacher's fuzzy matcher uses, repurposed from corpus-wide identifier
// search to a short enum-member candidate list).
func didYouMean(ctx *Context, member string) string {
	var candidates []string
	for _, s := range ctx.Table.GetSymbolsByFile(ctx.File) {
		if s.Kind != symbols.KindEnum {
			continue
		}
		for _, m := range s.EnumMembers {
			candidates = append(candidates, s.Name+"."+m.Name)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		si, _ := edlib.StringsSimilarity(member, lastSegment(candidates[i]), edlib.JaroWinkler)
		sj, _ := edlib.StringsSimilarity(member, lastSegment(candidates[j]), edlib.JaroWinkler)
		return si > sj
	})
	best := candidates[0]
	similarity, err := edlib.StringsSimilarity(member, lastSegment(best), edlib.JaroWinkler)
	if err != nil || similarity < 0.6 {
		return ""
	}
	return best
}

func lastSegment(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}
