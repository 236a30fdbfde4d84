package symbols

import (
	"strconv"

	"github.com/cnxlang/cnxc/internal/ast"
)

// Collect walks one file's parse tree (C4) and returns the symbols it
// declares. file is the canonical path used as Symbol.File and as the key
// for C6's per-function fact lookups later. Per spec §4.3, a scope's
// members are flattened into `Scope::member` symbols here rather than kept
// nested, since every later pass (C6, C7) reasons about flat names.
func Collect(file string, root *ast.Node) []*Symbol {
	var out []*Symbol
	for _, decl := range root.Children {
		out = append(out, collectTopDecl(file, decl)...)
	}
	return out
}

func collectTopDecl(file string, n *ast.Node) []*Symbol {
	switch n.Kind {
	case ast.KindScopeDecl:
		return collectScope(file, n)
	case ast.KindEnumDecl:
		return []*Symbol{collectEnum(file, n)}
	case ast.KindBitmapDecl:
		return []*Symbol{collectBitmap(file, n)}
	case ast.KindStructDecl:
		return []*Symbol{collectStruct(file, n)}
	case ast.KindRegisterDecl:
		return []*Symbol{collectRegister(file, n)}
	case ast.KindConstDecl:
		return []*Symbol{collectConst(file, n)}
	case ast.KindVarDecl:
		return []*Symbol{collectVar(file, n)}
	case ast.KindFunctionDecl:
		return []*Symbol{collectFunction(file, n)}
	default:
		return nil
	}
}

// collectScope flattens a scope's members into `Scope::member` symbols and
// also emits one KindScope symbol recording membership/visibility, so C7
// can tell whether `Scope` itself names anything when it sees a bare
// reference to it (e.g. in a `scope.member` access outside the scope body).
func collectScope(file string, n *ast.Node) []*Symbol {
	scopeName := n.Attr("name")
	scopeSym := &Symbol{Name: scopeName, File: file, Kind: KindScope, Pos: n.Pos, IsExported: true}
	out := []*Symbol{scopeSym}

	for _, member := range n.Children {
		isPublic := member.AttrBool("isExported")
		memberName := member.Attr("name")
		scopeSym.ScopeMembers = append(scopeSym.ScopeMembers, ScopeMember{Name: memberName, IsPublic: isPublic})

		qualified := scopeName + "::" + memberName
		switch member.Kind {
		case ast.KindFunctionDecl:
			sym := buildFunctionSymbol(file, member)
			sym.Name = qualified
			sym.IsExported = isPublic
			out = append(out, sym)
		case ast.KindConstDecl:
			sym := buildConstSymbol(file, member)
			sym.Name = qualified
			sym.IsExported = isPublic
			out = append(out, sym)
		case ast.KindVarDecl:
			sym := buildVarSymbol(file, member)
			sym.Name = qualified
			sym.IsExported = isPublic
			out = append(out, sym)
		}
	}
	return out
}

func collectEnum(file string, n *ast.Node) *Symbol {
	sym := &Symbol{Name: n.Attr("name"), File: file, Kind: KindEnum, Pos: n.Pos, IsExported: n.AttrBool("isExported")}

	next := int64(0)
	var maxVal int64
	for _, m := range n.ChildrenOfKind(ast.KindEnumMember) {
		val := next
		if initExpr := firstChild(m); initExpr != nil {
			if lit, ok := parseIntLiteral(initExpr); ok {
				val = lit
			}
		}
		sym.EnumMembers = append(sym.EnumMembers, EnumMember{Name: m.Attr("name"), Value: val})
		if val > maxVal {
			maxVal = val
		}
		next = val + 1
	}
	sym.EnumWidth = backingWidthFor(maxVal)
	return sym
}

// backingWidthFor picks the smallest unsigned integer type whose range
// covers max, promoting all the way to u64 rather than erroring when an
// enum's values exceed u32 (spec §4.3).
func backingWidthFor(max int64) string {
	switch {
	case max <= 0xFF:
		return "u8"
	case max <= 0xFFFF:
		return "u16"
	case max <= 0xFFFFFFFF:
		return "u32"
	default:
		return "u64"
	}
}

func collectBitmap(file string, n *ast.Node) *Symbol {
	width, _ := strconv.Atoi(n.Attr("width"))
	sym := &Symbol{Name: n.Attr("name"), File: file, Kind: KindBitmap, Pos: n.Pos, IsExported: n.AttrBool("isExported"), BitmapWidth: width}

	offset := 0
	for _, f := range n.ChildrenOfKind(ast.KindBitmapField) {
		fw, _ := strconv.Atoi(f.Attr("width"))
		if fw <= 0 {
			fw = 1
		}
		sym.BitmapFields = append(sym.BitmapFields, BitmapField{Name: f.Attr("name"), Offset: offset, Width: fw})
		offset += fw
	}
	return sym
}

func collectStruct(file string, n *ast.Node) *Symbol {
	sym := &Symbol{Name: n.Attr("name"), File: file, Kind: KindStruct, Pos: n.Pos, IsExported: n.AttrBool("isExported")}
	for _, f := range n.ChildrenOfKind(ast.KindStructField) {
		field := Field{Name: f.Attr("name"), Type: typeRefText(f)}
		if f.AttrBool("isArray") {
			field.IsArray = true
			if dim := dimChild(f); dim != nil {
				field.Dim = exprDimText(dim)
			}
		}
		sym.Fields = append(sym.Fields, field)
	}
	return sym
}

func collectRegister(file string, n *ast.Node) *Symbol {
	return &Symbol{
		Name: n.Attr("name"), File: file, Kind: KindRegister, Pos: n.Pos,
		IsExported: n.AttrBool("isExported"), DeclaredType: typeRefText(n),
	}
}

func collectConst(file string, n *ast.Node) *Symbol { return buildConstSymbol(file, n) }
func buildConstSymbol(file string, n *ast.Node) *Symbol {
	sym := &Symbol{
		Name: n.Attr("name"), File: file, Kind: KindVariable, Pos: n.Pos,
		IsExported: n.AttrBool("isExported"), DeclaredType: typeRefText(n),
		IsConst: true, InitialValue: n.Attr("initialValue"),
	}
	if n.AttrBool("isArray") {
		sym.Fields = []Field{{Name: n.Attr("name"), Type: sym.DeclaredType, IsArray: true, Dim: arrayDimForVarDecl(n)}}
	}
	return sym
}

func collectVar(file string, n *ast.Node) *Symbol { return buildVarSymbol(file, n) }
func buildVarSymbol(file string, n *ast.Node) *Symbol {
	sym := &Symbol{
		Name: n.Attr("name"), File: file, Kind: KindVariable, Pos: n.Pos,
		IsExported: n.AttrBool("isExported"), DeclaredType: typeRefText(n),
	}
	if n.AttrBool("isArray") {
		sym.Fields = []Field{{Name: n.Attr("name"), Type: sym.DeclaredType, IsArray: true, Dim: arrayDimForVarDecl(n)}}
	}
	return sym
}

func collectFunction(file string, n *ast.Node) *Symbol { return buildFunctionSymbol(file, n) }
func buildFunctionSymbol(file string, n *ast.Node) *Symbol {
	sym := &Symbol{
		Name: n.Attr("name"), File: file, Kind: KindFunction, Pos: n.Pos,
		IsExported: n.AttrBool("isExported"), DeclaredType: typeRefText(n),
	}
	for _, p := range n.ChildrenOfKind(ast.KindParam) {
		sym.Params = append(sym.Params, Param{
			Name: p.Attr("name"), BaseType: typeRefText(p),
			IsConst: p.AttrBool("isConst"), IsArray: p.AttrBool("isArray"),
		})
	}
	return sym
}

func typeRefText(n *ast.Node) string {
	if t := n.FirstOfKind(ast.KindTypeRef); t != nil {
		return t.Text
	}
	return ""
}

// dimChild returns the array-size expression child of a struct field decl
// (no initializer ever follows it there), which always follows the
// type-ref child when present.
func dimChild(n *ast.Node) *ast.Node {
	for i, c := range n.Children {
		if c.Kind == ast.KindTypeRef {
			if i+1 < len(n.Children) {
				return n.Children[i+1]
			}
		}
	}
	return nil
}

func firstChild(n *ast.Node) *ast.Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// arrayDimForVarDecl returns the explicit array-size text for a var/const
// decl. Children layout is [typeRef, (dimExpr)?, (initExpr)?]; dimExpr is
// only present when `hasExplicitDim` was recorded by the parser. An
// inferred size (`NAME[]`) returns "" for C7 to compute from the
// initializer's element count (spec §8 property 3).
func arrayDimForVarDecl(n *ast.Node) string {
	if !n.AttrBool("hasExplicitDim") || len(n.Children) < 2 {
		return ""
	}
	return exprDimText(n.Children[1])
}

func exprDimText(n *ast.Node) string {
	switch n.Kind {
	case ast.KindIntLiteral:
		return n.Text
	case ast.KindIdent:
		return n.Text // symbolic; resolved later by Table.ResolveExternalArrayDimensions
	default:
		return n.Text
	}
}

func parseIntLiteral(n *ast.Node) (int64, bool) {
	if n.Kind != ast.KindIntLiteral {
		return 0, false
	}
	v, err := strconv.ParseInt(n.Text, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
