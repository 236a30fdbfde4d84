package codegen

import (
	"fmt"
	"strings"

	"github.com/cnxlang/cnxc/internal/ast"
	"github.com/cnxlang/cnxc/internal/cnxparse"
	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/symbols"
)

// Result is one file's generation output: the translation-unit body text,
// its companion header text, and every diagnostic raised while producing
// either.
type Result struct {
	Body   string
	Header string
	Diags  *diag.Diagnostics
}

// Generate is C7's entry point: it walks root's top-level declarations and
// produces the body/header pair ctx.Mode and ctx.Target call for. A
// recovered diag.InvariantViolation downgrades to a single CodeInternal
// diagnostic rather than aborting the whole run (internal/diag/panic.go's
// documented contract), since one file's coding defect should never stop
// every other file in the batch from generating.
func Generate(ctx *Context, root *ast.Node, comments cnxparse.CommentTable, headerPath string) (result Result) {
	result.Diags = ctx.Diags
	defer func() {
		if r := recover(); r != nil {
			iv, ok := r.(diag.InvariantViolation)
			if !ok {
				panic(r)
			}
			ctx.Diags.Error(diag.CodeInternal, ctx.File, 0, 0, "%s", iv.Error())
		}
	}()

	var decls strings.Builder
	for _, decl := range root.Children {
		generateTopDecl(ctx, &decls, decl)
	}

	// RenderHeader is called before the prelude is assembled: it can latch
	// further include-needs of its own (e.g. a re-exported struct field
	// type), and spec §3's need set is latched over the whole file, body
	// and header together.
	header := RenderHeader(ctx, headerPath)

	var body strings.Builder
	writeBodyPrelude(&body, ctx, headerPath)
	body.WriteString(decls.String())

	result.Body = body.String()
	result.Header = header
	return result
}

// writeBodyPrelude prepends exactly the includes ctx.Needs ended up
// latched with (spec §8 property 4), plus the file's own companion header,
// which every generated body needs unconditionally.
func writeBodyPrelude(body *strings.Builder, ctx *Context, headerPath string) {
	needs := ctx.Needs
	if needs.Stdint {
		if ctx.Mode == ModeC {
			body.WriteString("#include <stdint.h>\n")
		} else {
			body.WriteString("#include <cstdint>\n")
		}
	}
	if needs.Stdbool && ctx.Mode == ModeC {
		body.WriteString("#include <stdbool.h>\n")
	}
	if needs.Limits {
		if ctx.Mode == ModeC {
			body.WriteString("#include <limits.h>\n")
		} else {
			body.WriteString("#include <climits>\n")
		}
	}
	if needs.String {
		if ctx.Mode == ModeC {
			body.WriteString("#include <string.h>\n")
		} else {
			body.WriteString("#include <cstring>\n")
		}
	}
	if needs.Cmsis {
		body.WriteString("#include \"cmsis_gcc.h\"\n")
	}
	if needs.IrqWrappers {
		body.WriteString("#include \"cnx_irq.h\"\n")
	}
	fmt.Fprintf(body, "#include %q\n\n", includeNameFor(headerPath))
}

func includeNameFor(headerPath string) string {
	if i := strings.LastIndexAny(headerPath, "/\\"); i >= 0 {
		return headerPath[i+1:]
	}
	return headerPath
}

func generateTopDecl(ctx *Context, body *strings.Builder, n *ast.Node) {
	switch n.Kind {
	case ast.KindFunctionDecl:
		generateFunction(ctx, body, n, "")
	case ast.KindScopeDecl:
		generateScope(ctx, body, n)
	case ast.KindVarDecl:
		generateTopVar(ctx, body, n)
	case ast.KindConstDecl:
		generateTopConst(ctx, body, n)
	case ast.KindRegisterDecl:
		generateRegister(ctx, body, n)
	case ast.KindStructDecl, ast.KindEnumDecl, ast.KindBitmapDecl:
		// Declared fully in the header; the body has nothing further to emit.
	default:
		diag.PanicInvariant("codegen", "unexpected top-level node kind %s", n.Kind)
	}
}

func generateScope(ctx *Context, body *strings.Builder, n *ast.Node) {
	prevScope := ctx.CurrentScope
	ctx.CurrentScope = n.Attr("name")
	defer func() { ctx.CurrentScope = prevScope }()

	for _, member := range n.Children {
		switch member.Kind {
		case ast.KindFunctionDecl:
			qualified := ctx.CurrentScope + "::" + member.Attr("name")
			generateFunction(ctx, body, member, qualified)
		case ast.KindVarDecl:
			generateScopeVar(ctx, body, member)
		case ast.KindConstDecl:
			generateScopeConst(ctx, body, member)
		}
	}
}

func generateFunction(ctx *Context, body *strings.Builder, n *ast.Node, qualifiedName string) {
	name := n.Attr("name")
	lookupName := name
	if qualifiedName != "" {
		lookupName = qualifiedName
	}
	prevFunc := ctx.CurrentFunc
	ctx.CurrentFunc = lookupName
	defer func() { ctx.CurrentFunc = prevFunc }()

	retTypeRef := n.Children[0]
	retType := "void"
	if retTypeRef.Text != "" {
		retType = CType(ctx, retTypeRef.Text)
	}

	params := n.ChildrenOfKind(ast.KindParam)
	e := newEmitter(ctx)
	e.returnType = retTypeRef.Text
	paramTexts := make([]string, 0, len(params))
	for _, p := range params {
		pname := p.Attr("name")
		if p.AttrBool("isArray") {
			e.declareArrayLocal(pname, typeRefTextOf(p))
		} else {
			e.declareLocal(pname, typeRefTextOf(p))
		}
		modified := ctx.Mods.IsModified(lookupName, pname)
		sym := paramSymbol(p)
		paramTexts = append(paramTexts, RenderParam(ctx, sym, modified, pname))
	}
	if len(paramTexts) == 0 {
		paramTexts = append(paramTexts, "void")
	}

	emittedName := name
	if qualifiedName != "" {
		emittedName = mangleScopeMember(ctx.CurrentScope, name)
	}

	if comment := n.Attr("leadingComments"); comment != "" {
		fmt.Fprintf(body, "// %s\n", strings.ReplaceAll(comment, "\n", "\n// "))
	}
	fmt.Fprintf(body, "%s %s(%s)\n", retType, emittedName, strings.Join(paramTexts, ", "))

	w := &blockWriter{}
	block := n.Children[len(n.Children)-1]
	e.emitBlock(w, block)
	body.WriteString(w.String())
	body.WriteString("\n")
}

func typeRefTextOf(paramNode *ast.Node) string {
	if t := paramNode.FirstOfKind(ast.KindTypeRef); t != nil {
		return t.Text
	}
	return ""
}

func paramSymbol(p *ast.Node) symbols.Param {
	return symbols.Param{
		Name:     p.Attr("name"),
		BaseType: typeRefTextOf(p),
		IsConst:  p.AttrBool("isConst"),
		IsArray:  p.AttrBool("isArray"),
	}
}

func generateTopVar(ctx *Context, body *strings.Builder, n *ast.Node) {
	e := newEmitter(ctx)
	name := n.Attr("name")
	declaredType := typeRefTextOf(n)
	cType := CType(ctx, declaredType)
	if n.AttrBool("isArray") {
		dim := arrayDimText(ctx, n)
		if n.AttrBool("hasInit") {
			fmt.Fprintf(body, "%s %s[%s] = %s;\n", cType, name, dim, e.emitExpr(lastChild(n)))
		} else {
			fmt.Fprintf(body, "%s %s[%s];\n", cType, name, dim)
		}
		return
	}
	if n.AttrBool("hasInit") {
		fmt.Fprintf(body, "%s %s = %s;\n", cType, name, e.emitExpr(lastChild(n)))
	} else {
		fmt.Fprintf(body, "%s %s;\n", cType, name)
	}
}

func generateTopConst(ctx *Context, body *strings.Builder, n *ast.Node) {
	e := newEmitter(ctx)
	name := n.Attr("name")
	declaredType := typeRefTextOf(n)
	cType := CType(ctx, declaredType)
	if n.AttrBool("isArray") {
		dim := arrayDimText(ctx, n)
		fmt.Fprintf(body, "const %s %s[%s] = %s;\n", cType, name, dim, e.emitExpr(lastChild(n)))
		return
	}
	fmt.Fprintf(body, "const %s %s = %s;\n", cType, name, e.emitExpr(lastChild(n)))
}

func generateScopeVar(ctx *Context, body *strings.Builder, n *ast.Node) {
	e := newEmitter(ctx)
	name := mangleScopeMember(ctx.CurrentScope, n.Attr("name"))
	cType := CType(ctx, typeRefTextOf(n))
	if n.AttrBool("hasInit") {
		fmt.Fprintf(body, "%s %s = %s;\n", cType, name, e.emitExpr(lastChild(n)))
	} else {
		fmt.Fprintf(body, "%s %s;\n", cType, name)
	}
}

func generateScopeConst(ctx *Context, body *strings.Builder, n *ast.Node) {
	e := newEmitter(ctx)
	name := mangleScopeMember(ctx.CurrentScope, n.Attr("name"))
	cType := CType(ctx, typeRefTextOf(n))
	fmt.Fprintf(body, "const %s %s = %s;\n", cType, name, e.emitExpr(lastChild(n)))
}

func generateRegister(ctx *Context, body *strings.Builder, n *ast.Node) {
	e := newEmitter(ctx)
	name := n.Attr("name")
	cType := CType(ctx, typeRefTextOf(n))
	fmt.Fprintf(body, "#define %s (*(volatile %s *)(%s))\n", name, cType, e.emitExpr(lastChild(n)))
}

func arrayDimText(ctx *Context, n *ast.Node) string {
	e := newEmitter(ctx)
	if n.AttrBool("hasExplicitDim") && len(n.Children) > 1 {
		return e.emitExpr(n.Children[1])
	}
	return ""
}

func lastChild(n *ast.Node) *ast.Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}
