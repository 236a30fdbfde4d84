package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/symbols"
)

// cTypeNames maps C-Next primitive types to their <stdint.h>/<stdbool.h>
// spellings; both C and C++ mode share this table since the fixed-width
// typedefs are valid in either dialect.
var cTypeNames = map[string]string{
	"u8": "uint8_t", "u16": "uint16_t", "u32": "uint32_t", "u64": "uint64_t",
	"i8": "int8_t", "i16": "int16_t", "i32": "int32_t", "i64": "int64_t",
	"f32": "float", "f64": "double", "bool": "bool", "void": "void",
}

// typeWidths gives the bit width of each integer primitive, used by the
// narrowing/shift/range validators.
var typeWidths = map[string]int{
	"u8": 8, "u16": 16, "u32": 32, "u64": 64,
	"i8": 8, "i16": 16, "i32": 32, "i64": 64,
}

var signedTypes = map[string]bool{"i8": true, "i16": true, "i32": true, "i64": true}

// floatTypes marks the C-Next primitives that lower to a C/C++ floating
// type, consulted by the cast emitter to decide whether a saturating clamp
// applies (spec §4.7.4: "float-to-integer casts").
var floatTypes = map[string]bool{"f32": true, "f64": true}

// CType resolves a C-Next type name (primitive or user-defined struct/enum)
// to the identifier C7 emits, consulting the symbol table for whether a
// struct needs the `struct` keyword in C mode (spec §4.7.9), and latching
// the stdint/stdbool include-needs a primitive spelling pulls in (spec §3).
func CType(ctx *Context, declaredType string) string {
	if prim, ok := cTypeNames[declaredType]; ok {
		if declaredType == "bool" {
			ctx.Needs.Stdbool = true
		} else if declaredType != "void" && !floatTypes[declaredType] {
			ctx.Needs.Stdint = true
		}
		return prim
	}
	if strings.Contains(declaredType, "::") {
		if ctx.Mode == ModeCpp {
			return declaredType
		}
		return strings.ReplaceAll(declaredType, "::", "_")
	}
	if ctx.Mode == ModeC && ctx.Table.CheckNeedsStructKeyword(declaredType) {
		return "struct " + declaredType
	}
	return declaredType
}

// Passing describes how one parameter crosses a function boundary, per
// the parameter-passing table in spec §4.7.3.
type Passing struct {
	TypeText   string
	ByPointer  bool // C mode: emit `T*`; caller passes `&arg`
	ByRef      bool // C++ mode: emit `T&`; caller passes `arg` directly
	IsConst    bool
}

// ResolvePassing decides how to pass param given whether C6 found it
// modified, per the table:
//   - primitive, modified            -> T* (C) / T& (C++)
//   - primitive, unmodified, <= ptr-width, not float -> by value
//   - struct, modified               -> pointer/reference
//   - struct, unmodified             -> const pointer/reference
//   - array                          -> pointer-decayed (always)
func ResolvePassing(ctx *Context, p symbols.Param, modified bool) Passing {
	base := CType(ctx, p.BaseType)
	_, isPrimitive := cTypeNames[p.BaseType]
	isFloat := p.BaseType == "f32" || p.BaseType == "f64"
	width := typeWidths[p.BaseType]

	if p.IsArray {
		return decoratePointer(base, !modified)
	}

	if isPrimitive && !isFloat && width > 0 && width <= 32 && !modified {
		return Passing{TypeText: base}
	}

	if !modified {
		return decoratePointer(base, true)
	}
	return decoratePointer(base, false)
}

func decoratePointer(base string, isConst bool) Passing {
	prefix := ""
	if isConst {
		prefix = "const "
	}
	return Passing{TypeText: prefix + base, ByPointer: true, ByRef: true, IsConst: isConst}
}

// RenderParam renders one parameter's declaration text for the given mode.
func RenderParam(ctx *Context, p symbols.Param, modified bool, name string) string {
	passing := ResolvePassing(ctx, p, modified)
	if !passing.ByPointer {
		return passing.TypeText + " " + name
	}
	if ctx.Mode == ModeCpp {
		return passing.TypeText + " &" + name
	}
	return passing.TypeText + " *" + name
}

// RenderArg renders how a bare-identifier argument should be spelled at a
// call site, taking `&arg` in C mode when the callee expects a pointer.
func RenderArg(ctx *Context, needsPointer bool, argText string) string {
	if !needsPointer || ctx.Mode == ModeCpp {
		return argText
	}
	return "&" + argText
}

// CheckNarrowing validates an integer literal assigned/initialized into a
// narrower declared type, raising CodeNarrowingAssign (E0381) per spec
// §4.7.5. Non-literal expressions are not checked here since that needs
// full expression-type inference this generator doesn't attempt.
func CheckNarrowing(ctx *Context, declaredType, literalText string, line, col int) {
	width, ok := typeWidths[declaredType]
	if !ok {
		return
	}
	val, err := strconv.ParseInt(literalText, 0, 64)
	if err != nil {
		return
	}
	max := int64(1)<<uint(width) - 1
	if signedTypes[declaredType] {
		max = int64(1)<<uint(width-1) - 1
		min := -(int64(1) << uint(width-1))
		if val < min || val > max {
			ctx.Diags.Error(diag.CodeNarrowingAssign, ctx.File, line, col,
				"literal %s does not fit in %s", literalText, declaredType)
		}
		return
	}
	if val < 0 {
		ctx.Diags.Error(diag.CodeSignChange, ctx.File, line, col,
			"negative literal %s assigned to unsigned type %s", literalText, declaredType)
		return
	}
	if val > max {
		ctx.Diags.Error(diag.CodeNarrowingAssign, ctx.File, line, col,
			"literal %s does not fit in %s", literalText, declaredType)
	}
}

// CheckNarrowingTypes validates an identifier-to-identifier assignment
// where both sides' declared types are statically known locals, covering
// the case CheckNarrowing's literal-only check misses (e.g. `u8 small <-
// large;` where `large` is a declared `u32`). Raises CodeSignChange when
// the source type is signed and the destination isn't (or vice versa),
// and CodeNarrowingAssign when the destination is simply too narrow to
// hold every value of the source type.
func CheckNarrowingTypes(ctx *Context, declaredType, sourceType string, line, col int) {
	dstWidth, ok := typeWidths[declaredType]
	if !ok {
		return
	}
	srcWidth, ok := typeWidths[sourceType]
	if !ok {
		return
	}
	if signedTypes[declaredType] != signedTypes[sourceType] {
		ctx.Diags.Error(diag.CodeSignChange, ctx.File, line, col,
			"assignment from %s to %s changes signedness", sourceType, declaredType)
		return
	}
	if dstWidth < srcWidth {
		ctx.Diags.Error(diag.CodeNarrowingAssign, ctx.File, line, col,
			"value of type %s does not fit in %s", sourceType, declaredType)
	}
}

// FloatToIntClamp renders the saturating clamp spec §4.7.4 names for a
// float-to-integer cast: `(T)x` becomes a clamp-then-cast ternary bounded
// by T's representable range, and latches the `limits` include need the
// TYPE_MAX/TYPE_MIN macros require.
func FloatToIntClamp(ctx *Context, declaredType, operandText string) string {
	cType := CType(ctx, declaredType)
	ctx.Needs.Limits = true
	maxMacro, minMacro := limitsMacros(declaredType, cType)
	return fmt.Sprintf("(%s > %s ? %s : %s < %s ? %s : (%s)%s)",
		operandText, maxMacro, maxMacro, operandText, minMacro, minMacro, cType, operandText)
}

// limitsMacros names the stdint.h-style INTn_MAX/MIN and UINTn_MAX macros
// bounding declaredType; cType is only used as a last-resort fallback for
// a primitive outside the fixed-width set.
func limitsMacros(declaredType, cType string) (maxMacro, minMacro string) {
	switch declaredType {
	case "i8":
		return "INT8_MAX", "INT8_MIN"
	case "i16":
		return "INT16_MAX", "INT16_MIN"
	case "i32":
		return "INT32_MAX", "INT32_MIN"
	case "i64":
		return "INT64_MAX", "INT64_MIN"
	case "u8":
		return "UINT8_MAX", "0"
	case "u16":
		return "UINT16_MAX", "0"
	case "u32":
		return "UINT32_MAX", "0"
	case "u64":
		return "UINT64_MAX", "0"
	}
	return strings.ToUpper(cType) + "_MAX", strings.ToUpper(cType) + "_MIN"
}

// CheckShiftBounds validates a shift amount against the operand's width,
// raising CodeOversizeShift (E0503).
func CheckShiftBounds(ctx *Context, operandType, amountText string, line, col int) {
	width, ok := typeWidths[operandType]
	if !ok {
		return
	}
	amt, err := strconv.ParseInt(amountText, 0, 64)
	if err != nil {
		return
	}
	if amt < 0 || int(amt) >= width {
		ctx.Diags.Error(diag.CodeOversizeShift, ctx.File, line, col,
			"shift amount %s is out of range for a %d-bit type", amountText, width)
	}
}

// CheckBitmapFieldWidth validates a value fits the declared width of a
// bitmap field before emitting a masked write.
func CheckBitmapFieldWidth(ctx *Context, field symbols.BitmapField, valueText string, line, col int) {
	val, err := strconv.ParseInt(valueText, 0, 64)
	if err != nil {
		return
	}
	max := int64(1)<<uint(field.Width) - 1
	if val < 0 || val > max {
		ctx.Diags.Error(diag.CodeOutOfRangeLiteral, ctx.File, line, col,
			"value %s does not fit bitmap field %s (%d bits)", valueText, field.Name, field.Width)
	}
}
