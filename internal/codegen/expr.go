package codegen

import (
	"fmt"
	"strings"

	"github.com/cnxlang/cnxc/internal/ast"
	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/symbols"
)

// emitter carries the per-function state a single file's statement/
// expression walk needs beyond what Context holds: the declared types of
// locals and parameters (for bit-index-vs-array-index disambiguation, spec
// §9's parser-defers-to-symbol-table design decision) and the set of names
// currently in scope (for ResolveIdent's shadowing chain).
type emitter struct {
	ctx         *Context
	localTypes  map[string]string
	localNames  map[string]bool
	localArrays map[string]bool
	returnType  string // the enclosing function's declared return type, for `return EnumMember;`
}

func newEmitter(ctx *Context) *emitter {
	return &emitter{ctx: ctx, localTypes: map[string]string{}, localNames: map[string]bool{}, localArrays: map[string]bool{}}
}

func (e *emitter) declareLocal(name, declaredType string) {
	e.localNames[name] = true
	e.localTypes[name] = declaredType
}

// declareArrayLocal marks name (a parameter or local) as array-typed, so
// emitIndexExpr/emitAssignStmt can tell `arr[i]` (array element access)
// apart from `scalar[k]` (single-bit access) without needing the symbol
// table to carry parameter/local array-ness (it only records it for
// struct fields and top-level var/const declarations).
func (e *emitter) declareArrayLocal(name, declaredType string) {
	e.declareLocal(name, declaredType)
	e.localArrays[name] = true
}

// isArrayLocal reports whether name is known to be array-typed, checking
// the current function's own params/locals first and falling back to the
// table's struct/global field records (spec §3's single source of truth
// for everything C4 already collected field shapes for).
func (e *emitter) isArrayLocal(name string) bool {
	if e.localArrays[name] {
		return true
	}
	for _, s := range e.ctx.Table.GetSymbolsByFile(e.ctx.File) {
		if s.Name == name {
			for _, f := range s.Fields {
				if f.Name == name {
					return f.IsArray
				}
			}
		}
	}
	return false
}

func (e *emitter) emitExpr(n *ast.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case ast.KindIntLiteral, ast.KindFloatLiteral:
		return n.Text
	case ast.KindStringLiteral:
		return fmt.Sprintf("%q", n.Text)
	case ast.KindBoolLiteral:
		return n.Text
	case ast.KindIdent:
		if n.Text == "this" || n.Text == "global" {
			return n.Text
		}
		return ResolveIdent(e.ctx, e.localNames, n.Text)
	case ast.KindMemberExpr:
		return e.emitMemberExpr(n)
	case ast.KindScopeAccessExpr:
		return e.emitScopeAccessExpr(n)
	case ast.KindBinaryExpr:
		if n.Text == "<<" || n.Text == ">>" {
			e.checkShift(n)
		}
		return "(" + e.emitExpr(n.Children[0]) + " " + n.Text + " " + e.emitExpr(n.Children[1]) + ")"
	case ast.KindUnaryExpr:
		return "(" + n.Text + e.emitExpr(n.Children[0]) + ")"
	case ast.KindAddrOfExpr:
		return "(&" + e.emitExpr(n.Children[0]) + ")"
	case ast.KindSizeofExpr:
		e.checkSizeofSideEffect(n)
		return "sizeof(" + e.emitExpr(n.Children[0]) + ")"
	case ast.KindCastExpr:
		return e.emitCastExpr(n)
	case ast.KindTernaryExpr:
		e.checkTernary(n)
		return "(" + e.emitExpr(n.Children[0]) + " ? " + e.emitExpr(n.Children[1]) + " : " + e.emitExpr(n.Children[2]) + ")"
	case ast.KindCallExpr:
		return e.emitCallExpr(n)
	case ast.KindIndexExpr:
		return e.emitIndexExpr(n)
	case ast.KindBitRangeExpr:
		return e.emitBitRangeRead(n)
	case ast.KindArrayLiteral:
		parts := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			parts = append(parts, e.emitExpr(c))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return n.Text
	}
}

// emitExprExpecting is emitExpr with one refinement: a bare identifier
// that names a member of expectedType's enum is resolved through
// ResolveBareEnumMember instead of being treated as a plain variable
// reference. Call sites that carry useful type context (a declared var's
// initializer, an assignment's RHS, a return value) route through this
// instead of the untyped emitExpr.
func (e *emitter) emitExprExpecting(n *ast.Node, expectedType string) string {
	if n.Kind == ast.KindIdent && expectedType != "" && !e.localNames[n.Text] {
		if enumHasMember(e.ctx, expectedType, n.Text) {
			resolved, _ := ResolveBareEnumMember(e.ctx, expectedType, n.Text, n.Pos.Line, n.Pos.Column)
			return resolved
		}
	}
	return e.emitExpr(n)
}

func (e *emitter) emitMemberExpr(n *ast.Node) string {
	base := n.Children[0]
	if base.Kind == ast.KindIdent {
		if base.Text == "this" {
			return mangleScopeMember(e.ctx.CurrentScope, n.Text)
		}
		if base.Text == "global" {
			return n.Text
		}
		if isScopeName(e.ctx, base.Text) {
			return mangleScopeMember(base.Text, n.Text)
		}
		if enumHasMember(e.ctx, base.Text, n.Text) {
			return ResolveEnumAccess(e.ctx, base.Text, n.Text)
		}
		if field, ok := bitmapFieldOf(e.ctx, e.localTypes[base.Text], n.Text); ok {
			return emitBitmapFieldRead(e.emitExpr(base), field)
		}
	}
	return e.emitExpr(base) + "." + n.Text
}

// bitmapFieldOf looks up fieldName on the bitmap type named bitmapType,
// scoped to the current file like isScopeName/enumHasMember: only the
// symbols C5 holds under ctx.File are searched, so a bitmap declared in
// another file, #included or not, is not found here.
func bitmapFieldOf(ctx *Context, bitmapType, fieldName string) (symbols.BitmapField, bool) {
	if bitmapType == "" {
		return symbols.BitmapField{}, false
	}
	for _, s := range ctx.Table.GetSymbolsByFile(ctx.File) {
		if s.Kind != symbols.KindBitmap || s.Name != bitmapType {
			continue
		}
		for _, f := range s.BitmapFields {
			if f.Name == fieldName {
				return f, true
			}
		}
	}
	return symbols.BitmapField{}, false
}

// emitBitmapFieldRead renders a masked extraction of one named bitmap
// field, the same shape emitBitRangeRead uses for a literal `base[lo,
// width]` read, just driven by a field looked up by name instead of by an
// explicit offset/width pair in the source.
func emitBitmapFieldRead(base string, field symbols.BitmapField) string {
	mask := bitmaskFor(field.Width)
	return fmt.Sprintf("((%s >> %d) & %s)", base, field.Offset, mask)
}

func bitmaskFor(width int) string {
	return fmt.Sprintf("0x%Xu", (uint64(1)<<uint(width))-1)
}

func (e *emitter) emitScopeAccessExpr(n *ast.Node) string {
	base := n.Children[0]
	if e.ctx.Mode == ModeCpp {
		return e.emitExpr(base) + "::" + n.Text
	}
	return e.emitExpr(base) + "_" + n.Text
}

func (e *emitter) emitCallExpr(n *ast.Node) string {
	calleeText := e.emitExpr(n.Children[0])
	calleeName := ""
	if n.Children[0].Kind == ast.KindIdent {
		calleeName = n.Children[0].Text
	}
	facts := e.ctx.Mods.FactsFor(calleeName)
	if facts == nil && e.ctx.CurrentScope != "" {
		// A bare call inside a scope's own method may name another member
		// of the same scope, which C6/C5 both key by its qualified form.
		facts = e.ctx.Mods.FactsFor(e.ctx.CurrentScope + "::" + calleeName)
	}
	args := make([]string, 0, len(n.Children)-1)
	for i, arg := range n.Children[1:] {
		argText := e.emitExpr(arg)
		if facts != nil && i < len(facts.Params) {
			paramName := facts.Params[i]
			if facts.Modified[paramName] && arg.Kind == ast.KindIdent {
				argText = RenderArg(e.ctx, true, argText)
			}
		}
		args = append(args, argText)
	}
	return calleeText + "(" + strings.Join(args, ", ") + ")"
}

// emitIndexExpr disambiguates `x[k]` between array indexing and a
// single-bit read, per spec §9's decision to defer this to the type a
// symbol actually has rather than the parser.
func (e *emitter) emitIndexExpr(n *ast.Node) string {
	base := n.Children[0]
	idx := e.emitExpr(n.Children[1])
	if base.Kind == ast.KindIdent && !e.isArrayLocal(base.Text) {
		return "((" + e.emitExpr(base) + " >> " + idx + ") & 1)"
	}
	return e.emitExpr(base) + "[" + idx + "]"
}

// emitCastExpr renders a `(T)x` cast, applying spec §4.7.4's saturating
// clamp when T is an integer type and x is statically known to be a float:
// `(T)x` becomes `x > TYPE_MAX(T) ? TYPE_MAX(T) : x < TYPE_MIN(T) ? TYPE_MIN(T) : (T)x`.
func (e *emitter) emitCastExpr(n *ast.Node) string {
	operand := n.Children[0]
	operandText := e.emitExpr(operand)
	if _, isInt := typeWidths[n.Text]; isInt && e.operandIsFloat(operand) {
		return FloatToIntClamp(e.ctx, n.Text, operandText)
	}
	return "(" + CType(e.ctx, n.Text) + ")(" + operandText + ")"
}

// operandIsFloat reports whether n is statically known to produce a float
// value: a float literal, or an identifier declared f32/f64. Anything else
// (arithmetic, calls, member access) isn't inferred, matching this
// generator's existing literal/identifier-only type-checking scope.
func (e *emitter) operandIsFloat(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindFloatLiteral:
		return true
	case ast.KindIdent:
		return floatTypes[e.localTypes[n.Text]]
	default:
		return false
	}
}

// checkShift raises CodeOversizeShift (E0503) for `lhs << N` / `lhs >> N`
// when lhs is a known-width local/param and N is a literal, mirroring
// CheckNarrowing's "only check what's statically knowable" stance: a
// non-identifier operand or a non-literal shift amount is left unchecked
// rather than guessed at.
func (e *emitter) checkShift(n *ast.Node) {
	lhs, rhs := n.Children[0], n.Children[1]
	if lhs.Kind != ast.KindIdent || rhs.Kind != ast.KindIntLiteral {
		return
	}
	operandType, ok := e.localTypes[lhs.Text]
	if !ok {
		return
	}
	CheckShiftBounds(e.ctx, operandType, rhs.Text, n.Pos.Line, n.Pos.Column)
}

func (e *emitter) emitBitRangeRead(n *ast.Node) string {
	base := e.emitExpr(n.Children[0])
	lo := e.emitExpr(n.Children[1])
	width := e.emitExpr(n.Children[2])
	return "((" + base + " >> " + lo + ") & ((1u << " + width + ") - 1))"
}

// isBooleanExpr is a conservative, non-exhaustive check used only to catch
// clearly-numeric conditions (spec §4.7.4's CodeNonBooleanCondition); it
// never flags a bare identifier or call, since that needs full type
// inference this generator doesn't attempt, and a false positive would be
// worse than a missed one.
func isBooleanExpr(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindBoolLiteral:
		return true
	case ast.KindUnaryExpr:
		return n.Text == "!"
	case ast.KindBinaryExpr:
		switch n.Text {
		case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
			return true
		}
		return false
	case ast.KindTernaryExpr:
		return isBooleanExpr(n.Children[1]) && isBooleanExpr(n.Children[2])
	default:
		return true // unknown shape: don't flag, avoid false positives
	}
}

func isObviouslyNonBoolean(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindIntLiteral, ast.KindFloatLiteral:
		return true
	case ast.KindBinaryExpr:
		switch n.Text {
		case "+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>":
			return true
		}
	}
	return false
}

func (e *emitter) checkCondition(n *ast.Node) {
	if isObviouslyNonBoolean(n) || !isBooleanExpr(n) {
		e.ctx.Diags.Error(diag.CodeNonBooleanCondition, e.ctx.File, n.Pos.Line, n.Pos.Column,
			"condition is not boolean-valued")
	}
}

// checkTernary enforces spec §4.7.4: a ternary's condition must be boolean
// and ternaries must not nest (a then/else branch that is itself a ternary).
func (e *emitter) checkTernary(n *ast.Node) {
	e.checkCondition(n.Children[0])
	if n.Children[1].Kind == ast.KindTernaryExpr || n.Children[2].Kind == ast.KindTernaryExpr {
		e.ctx.Diags.Error(diag.CodeNestedTernary, e.ctx.File, n.Pos.Line, n.Pos.Column,
			"nested ternary expressions are not allowed")
	}
}

// checkSizeofSideEffect enforces spec §4.7.4's rule that sizeof's operand
// must be side-effect free: no call or assignment may appear inside it,
// since C-Next's sizeof always lowers to a compile-time constant and a
// side effect inside one would silently never run.
func (e *emitter) checkSizeofSideEffect(n *ast.Node) {
	hasSideEffect := false
	ast.Walk(n.Children[0], func(c *ast.Node) bool {
		if c.Kind == ast.KindCallExpr {
			hasSideEffect = true
			return false
		}
		return true
	})
	if hasSideEffect {
		e.ctx.Diags.Error(diag.CodeSizeofSideEffect, e.ctx.File, n.Pos.Line, n.Pos.Column,
			"sizeof operand must not contain a function call")
	}
}

// lvalueRoot walks down through member/index/bit-range access to the base
// identifier, mirroring modanalysis.rootIdent so C6 and C7 always agree on
// what a compound lvalue ultimately writes through.
func lvalueRoot(n *ast.Node) *ast.Node {
	for n != nil {
		switch n.Kind {
		case ast.KindIdent:
			return n
		case ast.KindMemberExpr, ast.KindIndexExpr, ast.KindBitRangeExpr, ast.KindScopeAccessExpr:
			if len(n.Children) == 0 {
				return nil
			}
			n = n.Children[0]
		default:
			return nil
		}
	}
	return nil
}
