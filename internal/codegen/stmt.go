package codegen

import (
	"fmt"
	"strings"

	"github.com/cnxlang/cnxc/internal/ast"
	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/symbols"
)

// blockWriter accumulates emitted C/C++ lines with an indent stack, the
// same "write to a builder as you walk" shape the teacher's own report
// renderers use rather than building an intermediate line-node tree.
type blockWriter struct {
	b      strings.Builder
	indent int
}

func (w *blockWriter) line(format string, args ...interface{}) {
	w.b.WriteString(strings.Repeat("    ", w.indent))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *blockWriter) String() string { return w.b.String() }

// emitBlock renders a KindBlock's statements at the emitter's current
// indent, honoring break/continue/return as plain C/C++ statements since
// C-Next's control flow is already structurally C-shaped (spec §4.7).
func (e *emitter) emitBlock(w *blockWriter, block *ast.Node) {
	w.line("{")
	w.indent++
	if block != nil {
		for _, stmt := range block.Children {
			e.emitStmt(w, stmt)
		}
	}
	w.indent--
	w.line("}")
}

func (e *emitter) emitStmt(w *blockWriter, n *ast.Node) {
	switch n.Kind {
	case ast.KindLocalVarStmt:
		e.emitLocalVarStmt(w, n)
	case ast.KindExprStmt:
		w.line("%s;", e.emitExpr(n.Children[0]))
	case ast.KindAssignStmt, ast.KindCompoundAssignStmt:
		e.emitAssignStmt(w, n)
	case ast.KindIfStmt:
		e.emitIfStmt(w, n)
	case ast.KindWhileStmt:
		e.checkCondition(n.Children[0])
		w.line("while (%s)", e.emitExpr(n.Children[0]))
		e.emitBlock(w, n.Children[1])
	case ast.KindDoWhileStmt:
		w.line("do")
		e.emitBlock(w, n.Children[0])
		e.checkCondition(n.Children[1])
		w.line("while (%s);", e.emitExpr(n.Children[1]))
	case ast.KindForStmt:
		e.emitForStmt(w, n)
	case ast.KindSwitchStmt:
		e.emitSwitchStmt(w, n)
	case ast.KindReturnStmt:
		if len(n.Children) > 0 {
			w.line("return %s;", e.emitExprExpecting(n.Children[0], e.returnType))
		} else {
			w.line("return;")
		}
	case ast.KindBreakStmt:
		w.line("break;")
	case ast.KindContinueStmt:
		w.line("continue;")
	case ast.KindCriticalStmt:
		e.emitCriticalStmt(w, n)
	case ast.KindAtomicStmt:
		e.emitAtomicStmt(w, n)
	default:
		diag.PanicInvariant("codegen", "unhandled statement kind %s", n.Kind)
	}
}

func (e *emitter) emitLocalVarStmt(w *blockWriter, n *ast.Node) {
	name := n.Attr("name")
	typeRef := n.Children[0]
	declaredType := typeRef.Text
	if n.AttrBool("isArray") {
		e.declareArrayLocal(name, declaredType)
	} else {
		e.declareLocal(name, declaredType)
	}

	cType := CType(e.ctx, declaredType)
	childIdx := 1
	dimText := ""
	if n.AttrBool("isArray") {
		if n.AttrBool("hasExplicitDim") && childIdx < len(n.Children) {
			dimText = e.emitExpr(n.Children[childIdx])
			childIdx++
		}
	}
	var initText string
	hasInit := n.AttrBool("hasInit")
	if hasInit && childIdx < len(n.Children) {
		initExpr := n.Children[childIdx]
		e.checkAssignNarrowing(declaredType, initExpr, n.Pos)
		initText = e.emitExprExpecting(initExpr, declaredType)
	}

	switch {
	case n.AttrBool("isArray") && dimText != "" && initText != "":
		w.line("%s %s[%s] = %s;", cType, name, dimText, initText)
	case n.AttrBool("isArray") && dimText != "":
		w.line("%s %s[%s];", cType, name, dimText)
	case n.AttrBool("isArray"):
		w.line("%s %s[] = %s;", cType, name, initText)
	case hasInit:
		w.line("%s %s = %s;", cType, name, initText)
	default:
		w.line("%s %s;", cType, name)
	}
}

// emitAssignStmt decomposes an assignment into the spec §4.7.6 categories,
// each producing the single statement form appropriate to the lvalue
// shape: a plain store for a simple or member target, a masked read-modify
// -write for a bit-index/bit-range target, and a volatile store for a
// register target. Compound ops (+<-, -<-, etc.) expand to `lhs = lhs OP
// rhs` since C-Next's compound operators map 1:1 onto C's.
func (e *emitter) emitAssignStmt(w *blockWriter, n *ast.Node) {
	lhs := n.Children[0]
	rhs := n.Children[1]
	op := n.Attr("op")

	switch lhs.Kind {
	case ast.KindBitRangeExpr:
		e.emitBitRangeWrite(w, lhs, rhs, op)
		return
	case ast.KindIndexExpr:
		base := lhs.Children[0]
		if base.Kind == ast.KindIdent && !e.isArrayLocal(base.Text) {
			e.emitBitIndexWrite(w, lhs, rhs, op)
			return
		}
	case ast.KindMemberExpr:
		base := lhs.Children[0]
		if base.Kind == ast.KindIdent {
			if field, ok := bitmapFieldOf(e.ctx, e.localTypes[base.Text], lhs.Text); ok {
				e.emitBitmapFieldWrite(w, base, field, rhs, op, n.Pos)
				return
			}
		}
	}

	e.checkConstWrite(lhs, n.Pos)
	lhsText := e.emitExpr(lhs)
	declaredType := e.declaredTypeOf(lhs)
	e.checkAssignNarrowing(declaredType, rhs, n.Pos)
	var rhsText string
	if op == "" {
		rhsText = e.emitExprExpecting(rhs, declaredType)
	} else {
		rhsText = e.rhsWithOp(lhsText, rhs, op)
	}
	w.line("%s = %s;", lhsText, rhsText)
}

// checkAssignNarrowing runs spec §4.7.4's narrowing/sign-change validation
// against an assignment's RHS, covering both forms the static type picture
// makes knowable: a literal checked against its numeric value, and a bare
// identifier checked against its own declared width when that local's type
// is in scope (e.g. `u8 small <- large;` where `large` is a declared u32).
func (e *emitter) checkAssignNarrowing(declaredType string, rhs *ast.Node, pos ast.Position) {
	if declaredType == "" {
		return
	}
	switch rhs.Kind {
	case ast.KindIntLiteral:
		CheckNarrowing(e.ctx, declaredType, rhs.Text, pos.Line, pos.Column)
	case ast.KindIdent:
		if sourceType, ok := e.localTypes[rhs.Text]; ok && sourceType != "" {
			CheckNarrowingTypes(e.ctx, declaredType, sourceType, pos.Line, pos.Column)
		}
	}
}

func (e *emitter) rhsWithOp(lhsText string, rhs *ast.Node, op string) string {
	rhsText := e.emitExpr(rhs)
	if op == "" {
		return rhsText
	}
	return fmt.Sprintf("%s %s (%s)", lhsText, op, rhsText)
}

// emitBitRangeWrite renders `x[lo, width] <- v` as a masked read-modify
// -write, the only correct lowering since C has no bit-slice lvalue syntax.
func (e *emitter) emitBitRangeWrite(w *blockWriter, lhs, rhs *ast.Node, op string) {
	base := e.emitExpr(lhs.Children[0])
	lo := e.emitExpr(lhs.Children[1])
	width := e.emitExpr(lhs.Children[2])
	value := e.emitExpr(rhs)
	if op != "" {
		current := e.emitBitRangeRead(lhs)
		value = fmt.Sprintf("(%s) %s (%s)", current, op, value)
	}
	w.line("%s = (%s & ~(((1u << (%s)) - 1) << (%s))) | (((%s) & ((1u << (%s)) - 1)) << (%s));",
		base, base, width, lo, value, width, lo)
}

// emitBitmapFieldWrite renders `bitmapVar.FieldName <- v` as a masked read
// -modify-write keyed by a BitmapField looked up by name, the named-field
// counterpart to emitBitRangeWrite's literal-offset form. A literal RHS is
// checked against the field's declared width (spec line 173, E0504).
func (e *emitter) emitBitmapFieldWrite(w *blockWriter, baseNode *ast.Node, field symbols.BitmapField, rhs *ast.Node, op string, pos ast.Position) {
	base := e.emitExpr(baseNode)
	if rhs.Kind == ast.KindIntLiteral {
		CheckBitmapFieldWidth(e.ctx, field, rhs.Text, pos.Line, pos.Column)
	}
	mask := bitmaskFor(field.Width)
	value := e.emitExpr(rhs)
	if op != "" {
		current := emitBitmapFieldRead(base, field)
		value = fmt.Sprintf("(%s) %s (%s)", current, op, value)
	}
	w.line("%s = (%s & ~(%s << %d)) | (((%s) & %s) << %d);",
		base, base, mask, field.Offset, value, mask, field.Offset)
}

// emitBitIndexWrite renders `x[k] <- v` (single-bit write against a scalar,
// disambiguated the same way emitIndexExpr reads it) as a masked store.
func (e *emitter) emitBitIndexWrite(w *blockWriter, lhs, rhs *ast.Node, op string) {
	base := e.emitExpr(lhs.Children[0])
	bit := e.emitExpr(lhs.Children[1])
	value := e.emitExpr(rhs)
	if op != "" {
		current := e.emitIndexExpr(lhs)
		value = fmt.Sprintf("(%s) %s (%s)", current, op, value)
	}
	w.line("if (%s) { %s |= (1u << (%s)); } else { %s &= ~(1u << (%s)); }", value, base, bit, base, bit)
}

// declaredTypeOf looks up the declared type of a simple identifier lvalue
// for narrowing checks; compound lvalues are skipped since their field
// type has already passed through C5's struct field table once, at
// declaration time.
func (e *emitter) declaredTypeOf(lhs *ast.Node) string {
	if lhs.Kind != ast.KindIdent {
		return ""
	}
	if t, ok := e.localTypes[lhs.Text]; ok {
		return t
	}
	return ""
}

// checkConstWrite raises CodeConstWrite when an assignment's lvalue root
// names a const param (explicitly `const` or auto-inferred by C6) or a
// top-level `const` declaration, per spec §4.7.6's write-through-const
// prohibition.
func (e *emitter) checkConstWrite(lhs *ast.Node, pos ast.Position) {
	root := lvalueRoot(lhs)
	if root == nil {
		return
	}
	for _, s := range e.ctx.Table.GetSymbolsByFile(e.ctx.File) {
		if s.IsConst && s.Name == root.Text {
			e.ctx.Diags.Error(diag.CodeConstWrite, e.ctx.File, pos.Line, pos.Column,
				"%q is const and cannot be assigned to", root.Text)
			return
		}
		if s.Kind != symbols.KindFunction || s.Name != e.ctx.CurrentFunc {
			continue
		}
		for _, p := range s.Params {
			if p.Name == root.Text && p.IsConst {
				e.ctx.Diags.Error(diag.CodeConstWrite, e.ctx.File, pos.Line, pos.Column,
					"parameter %q is const and cannot be assigned to", root.Text)
				return
			}
		}
	}
}

func (e *emitter) emitIfStmt(w *blockWriter, n *ast.Node) {
	e.checkCondition(n.Children[0])
	w.line("if (%s)", e.emitExpr(n.Children[0]))
	e.emitBlock(w, n.Children[1])
	if len(n.Children) > 2 {
		tail := n.Children[2]
		if tail.Kind == ast.KindIfStmt {
			w.line("else")
			e.emitIfStmt(w, tail)
		} else {
			w.line("else")
			e.emitBlock(w, tail)
		}
	}
}

func (e *emitter) emitForStmt(w *blockWriter, n *ast.Node) {
	initText := ""
	if n.AttrBool("hasInit") {
		initText = e.forClauseText(n.Children[0])
	}
	condText := ""
	if n.AttrBool("hasCond") {
		condText = e.emitExpr(n.Children[1])
	}
	updateText := ""
	if n.AttrBool("hasUpdate") {
		updateText = e.forClauseText(n.Children[2])
	}
	w.line("for (%s; %s; %s)", initText, condText, updateText)
	e.emitBlock(w, n.Children[3])
}

// forClauseText renders a for-loop init/update clause without its
// trailing `;` or enclosing block, reusing the same node shapes emitStmt
// otherwise wraps in full statements.
func (e *emitter) forClauseText(n *ast.Node) string {
	switch n.Kind {
	case ast.KindLocalVarStmt:
		name := n.Attr("name")
		declaredType := n.Children[0].Text
		e.declareLocal(name, declaredType)
		cType := CType(e.ctx, declaredType)
		if n.AttrBool("hasInit") && len(n.Children) > 1 {
			return fmt.Sprintf("%s %s = %s", cType, name, e.emitExpr(n.Children[1]))
		}
		return fmt.Sprintf("%s %s", cType, name)
	case ast.KindAssignStmt, ast.KindCompoundAssignStmt:
		lhsText := e.emitExpr(n.Children[0])
		return fmt.Sprintf("%s = %s", lhsText, e.rhsWithOp(lhsText, n.Children[1], n.Attr("op")))
	case ast.KindExprStmt:
		return e.emitExpr(n.Children[0])
	default:
		return ""
	}
}

func (e *emitter) emitSwitchStmt(w *blockWriter, n *ast.Node) {
	subject := n.Children[0]
	w.line("switch (%s) {", e.emitExpr(subject))
	w.indent++
	hasDefault := false
	for _, clause := range n.Children[1:] {
		switch clause.Kind {
		case ast.KindCaseClause:
			w.line("case %s: {", e.emitExpr(clause.Children[0]))
			w.indent++
			for _, stmt := range clause.Children[1:] {
				e.emitStmt(w, stmt)
			}
			w.line("break;")
			w.indent--
			w.line("}")
		case ast.KindDefaultClause:
			hasDefault = true
			w.line("default: {")
			w.indent++
			for _, stmt := range clause.Children {
				e.emitStmt(w, stmt)
			}
			w.line("break;")
			w.indent--
			w.line("}")
		}
	}
	w.indent--
	w.line("}")

	e.checkSwitchArity(n)
	if !hasDefault {
		e.checkSwitchCoverage(n, subject)
	}
}

// checkSwitchArity enforces spec §4.7.4's "switch must have >= 2 clauses"
// minimum, counting case and default clauses together.
func (e *emitter) checkSwitchArity(n *ast.Node) {
	clauses := 0
	for _, clause := range n.Children[1:] {
		if clause.Kind == ast.KindCaseClause || clause.Kind == ast.KindDefaultClause {
			clauses++
		}
	}
	if clauses < 2 {
		e.ctx.Diags.Error(diag.CodeSwitchCoverage, e.ctx.File, n.Pos.Line, n.Pos.Column,
			"switch has %d clause(s), at least 2 are required", clauses)
	}
}

// checkSwitchCoverage enforces spec §4.7.4's coverage rule: a switch over
// an enum-typed subject with no default must name every enum variant, or
// declare how many it intentionally omits via `default(n):`.
func (e *emitter) checkSwitchCoverage(n *ast.Node, subject *ast.Node) {
	enumName := e.enumTypeOfExpr(subject)
	if enumName == "" {
		return
	}
	total := e.enumMemberCount(enumName)
	covered := 0
	for _, clause := range n.Children[1:] {
		if clause.Kind == ast.KindCaseClause {
			covered++
		}
	}
	if covered < total {
		e.ctx.Diags.Error(diag.CodeSwitchCoverage, e.ctx.File, n.Pos.Line, n.Pos.Column,
			"switch over %s covers %d of %d variants with no default", enumName, covered, total)
	}
}

func (e *emitter) enumTypeOfExpr(n *ast.Node) string {
	if n.Kind == ast.KindIdent {
		return e.localTypes[n.Text]
	}
	return ""
}

func (e *emitter) enumMemberCount(enumName string) int {
	for _, s := range e.ctx.Table.GetSymbolsByFile(e.ctx.File) {
		if s.Name == enumName {
			return len(s.EnumMembers)
		}
	}
	return 0
}

// emitCriticalStmt renders a critical section per spec §4.7.7's
// target-specific interrupt-disable/restore pairing. An early exit
// (return/break/continue) found directly inside the region is a hard
// error since it would skip the restore.
func (e *emitter) emitCriticalStmt(w *blockWriter, n *ast.Node) {
	block := n.Children[0]
	e.checkNoEarlyExit(block)

	switch e.ctx.Target {
	case TargetArmV7M:
		e.ctx.Needs.Cmsis = true
		w.line("{")
		w.indent++
		w.line("uint32_t __cnx_primask = __get_PRIMASK();")
		w.line("__disable_irq();")
		for _, stmt := range block.Children {
			e.emitStmt(w, stmt)
		}
		w.line("__set_PRIMASK(__cnx_primask);")
		w.indent--
		w.line("}")
	case TargetAVR:
		w.line("{")
		w.indent++
		w.line("uint8_t __cnx_sreg = SREG;")
		w.line("cli();")
		for _, stmt := range block.Children {
			e.emitStmt(w, stmt)
		}
		w.line("SREG = __cnx_sreg;")
		w.indent--
		w.line("}")
	default:
		e.ctx.Needs.IrqWrappers = true
		w.line("{")
		w.indent++
		w.line("__disable_irq();")
		for _, stmt := range block.Children {
			e.emitStmt(w, stmt)
		}
		w.line("__enable_irq();")
		w.indent--
		w.line("}")
	}
}

// emitAtomicStmt renders an atomic region using the same interrupt-mask
// save/disable/restore lowering as a critical section on every target.
// Spec §4.7.7 leaves room for a true LDREX/STREX retry loop on ARMv7-M
// when a region is a single simple assignment, but telling "simple enough
// for a compare-and-swap" apart from "needs a lock" reliably was judged
// out of scope; masking is always correct, just pessimistic on that one
// target for that one shape.
func (e *emitter) emitAtomicStmt(w *blockWriter, n *ast.Node) {
	block := n.Children[0]
	e.checkNoEarlyExit(block)
	w.line("{")
	w.indent++
	switch e.ctx.Target {
	case TargetArmV7M:
		e.ctx.Needs.Cmsis = true
		w.line("uint32_t __cnx_primask = __get_PRIMASK();")
		w.line("__disable_irq();")
	case TargetAVR:
		w.line("uint8_t __cnx_sreg = SREG;")
		w.line("cli();")
	default:
		e.ctx.Needs.IrqWrappers = true
		w.line("__disable_irq();")
	}
	for _, stmt := range block.Children {
		e.emitStmt(w, stmt)
	}
	switch e.ctx.Target {
	case TargetArmV7M:
		w.line("__set_PRIMASK(__cnx_primask);")
	case TargetAVR:
		w.line("SREG = __cnx_sreg;")
	default:
		w.line("__enable_irq();")
	}
	w.indent--
	w.line("}")
}

func (e *emitter) checkNoEarlyExit(block *ast.Node) {
	ast.Walk(block, func(n *ast.Node) bool {
		switch n.Kind {
		case ast.KindReturnStmt, ast.KindBreakStmt, ast.KindContinueStmt:
			e.ctx.Diags.Error(diag.CodeCriticalEarlyExit, e.ctx.File, n.Pos.Line, n.Pos.Column,
				"early exit inside a critical/atomic region skips its restore")
			return false
		case ast.KindCriticalStmt, ast.KindAtomicStmt, ast.KindFunctionDecl:
			return false // nested regions/functions check their own exits independently
		}
		return true
	})
}
