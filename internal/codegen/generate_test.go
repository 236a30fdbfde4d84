package codegen

import (
	"strings"
	"testing"

	"github.com/cnxlang/cnxc/internal/ast"
	"github.com/cnxlang/cnxc/internal/cnxparse"
	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/modanalysis"
	"github.com/cnxlang/cnxc/internal/symbols"
)

// buildRun parses src, collects its symbols into a table, runs
// modification analysis over every function it declares, and returns a
// ready-to-generate Context plus the parsed root — the same sequencing
// internal/pipeline's driver performs per file.
func buildRun(t *testing.T, src string, mode Mode, target Target) (*Context, cnxparse.CommentTable, *ast.Node) {
	t.Helper()
	root, comments, err := cnxparse.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table := symbols.NewTable()
	table.AddSymbols("test.cnx", symbols.Collect("test.cnx", root))

	mods := modanalysis.NewAnalyzer()
	for _, decl := range root.Children {
		if decl.Kind == ast.KindFunctionDecl {
			registerFunction(mods, decl.Attr("name"), decl)
		}
		if decl.Kind == ast.KindScopeDecl {
			scopeName := decl.Attr("name")
			for _, member := range decl.Children {
				if member.Kind == ast.KindFunctionDecl {
					registerFunction(mods, scopeName+"::"+member.Attr("name"), member)
				}
			}
		}
	}
	mods.Propagate()

	ctx := NewContext("test.cnx", mode, target, table, mods)
	return ctx, comments, root
}

// registerFunction feeds one function's parameter list and body into C6,
// keyed by the same name C4's symbol table uses (qualified `Scope::member`
// for scope functions, bare name otherwise) so C7's later lookups by
// symbol name agree with what C6 recorded.
func registerFunction(mods *modanalysis.Analyzer, name string, decl *ast.Node) {
	var names []string
	for _, p := range decl.ChildrenOfKind(ast.KindParam) {
		names = append(names, p.Attr("name"))
	}
	body := decl.Children[len(decl.Children)-1]
	mods.CollectFunction(name, names, body)
}

func TestGenerateByValuePrimitiveUnmodified(t *testing.T) {
	ctx, comments, root := buildRun(t, `
u32 double(u32 x) {
	return x * 2;
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if ctx.Diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Diags.Errors())
	}
	if !strings.Contains(result.Body, "uint32_t double(uint32_t x)") {
		t.Fatalf("expected by-value uint32_t parameter, got:\n%s", result.Body)
	}
}

func TestGenerateModifiedParamBecomesPointerInC(t *testing.T) {
	ctx, comments, root := buildRun(t, `
void reset(u32 counter) {
	counter <- 0;
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "uint32_t *counter") {
		t.Fatalf("expected pointer parameter for a modified primitive, got:\n%s", result.Body)
	}
}

func TestGenerateModifiedParamBecomesReferenceInCpp(t *testing.T) {
	ctx, comments, root := buildRun(t, `
void reset(u32 counter) {
	counter <- 0;
}
`, ModeCpp, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "uint32_t &counter") {
		t.Fatalf("expected reference parameter in C++ mode, got:\n%s", result.Body)
	}
}

func TestGenerateArrayParamAlwaysPointerDecayed(t *testing.T) {
	ctx, comments, root := buildRun(t, `
u32 sum(u32[] values) {
	return values[0];
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "const uint32_t *values") {
		t.Fatalf("expected const-pointer-decayed array param, got:\n%s", result.Body)
	}
}

func TestGenerateScopeMemberMangling(t *testing.T) {
	ctx, comments, root := buildRun(t, `
scope Counter {
	u32 value <- 0;

	public void increment() {
		this.value <- this.value + 1;
	}
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if ctx.Diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Diags.Errors())
	}
	if !strings.Contains(result.Body, "Counter_value") {
		t.Fatalf("expected mangled scope member access, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "Counter_increment") {
		t.Fatalf("expected mangled scope function name, got:\n%s", result.Body)
	}
}

func TestGenerateEnumAccessLowersToUnderscoreInC(t *testing.T) {
	ctx, comments, root := buildRun(t, `
enum Status {
	Idle,
	Running,
}

Status current <- Status.Idle;
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "Status_Idle") {
		t.Fatalf("expected Status_Idle in C mode, got:\n%s", result.Body)
	}
}

func TestGenerateEnumAccessLowersToScopeInCpp(t *testing.T) {
	ctx, comments, root := buildRun(t, `
enum Status {
	Idle,
	Running,
}

Status current <- Status.Idle;
`, ModeCpp, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "Status::Idle") {
		t.Fatalf("expected Status::Idle in C++ mode, got:\n%s", result.Body)
	}
}

func TestGenerateBitRangeWriteProducesMaskedStore(t *testing.T) {
	ctx, comments, root := buildRun(t, `
void setField(u32 reg) {
	reg[4, 8] <- 3;
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "& ~(((1u <<") {
		t.Fatalf("expected masked read-modify-write for bit-range assignment, got:\n%s", result.Body)
	}
}

func TestGenerateBitmapFieldAccessIsMaskedReadWrite(t *testing.T) {
	ctx, comments, root := buildRun(t, `
bitmap8 StatusFlags {
	enabled,
	mode[2],
	ready,
}

void update(StatusFlags flags) {
	flags.mode <- 2;
	bool on <- flags.enabled;
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if ctx.Diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Diags.Errors())
	}
	if !strings.Contains(result.Body, "& ~(0x3u <<") {
		t.Fatalf("expected masked read-modify-write for bitmap field assignment, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "& 0x1u)") {
		t.Fatalf("expected masked read for single-bit bitmap field, got:\n%s", result.Body)
	}
}

func TestGenerateBitmapFieldLiteralOutOfRangeIsError(t *testing.T) {
	ctx, comments, root := buildRun(t, `
bitmap8 StatusFlags {
	enabled,
	mode[2],
}

void update(StatusFlags flags) {
	flags.mode <- 7;
}
`, ModeC, TargetGeneric)

	Generate(ctx, root, comments, "test.h")
	if !ctx.Diags.HasErrors() {
		t.Fatal("expected an error for a bitmap field literal that doesn't fit its declared width")
	}
}

func TestGenerateCriticalSectionArmV7M(t *testing.T) {
	ctx, comments, root := buildRun(t, `
void guard() {
	critical {
		u32 x <- 1;
	}
}
`, ModeC, TargetArmV7M)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "__get_PRIMASK") || !strings.Contains(result.Body, "__set_PRIMASK") {
		t.Fatalf("expected PRIMASK save/restore for arm-v7m target, got:\n%s", result.Body)
	}
}

func TestGenerateCriticalSectionEarlyExitIsError(t *testing.T) {
	ctx, comments, root := buildRun(t, `
void guard() {
	critical {
		return;
	}
}
`, ModeC, TargetGeneric)

	Generate(ctx, root, comments, "test.h")
	if !ctx.Diags.HasErrors() {
		t.Fatal("expected an error for early exit inside a critical region")
	}
}

func TestGenerateSwitchMissingVariantIsError(t *testing.T) {
	ctx, comments, root := buildRun(t, `
enum Status {
	Idle,
	Running,
	Done,
}

void handle(Status s) {
	switch (s) {
	case Status.Idle:
		break;
	}
}
`, ModeC, TargetGeneric)

	Generate(ctx, root, comments, "test.h")
	if !ctx.Diags.HasErrors() {
		t.Fatal("expected a switch-coverage error for a partial enum switch with no default")
	}
}

func TestGenerateConstWriteIsError(t *testing.T) {
	ctx, comments, root := buildRun(t, `
const u32 LIMIT <- 10;

void tryWrite() {
	LIMIT <- 20;
}
`, ModeC, TargetGeneric)

	Generate(ctx, root, comments, "test.h")
	if !ctx.Diags.HasErrors() {
		t.Fatal("expected an error assigning to a const")
	}
}

func TestRenderHeaderEmitsGuardAndPrototype(t *testing.T) {
	ctx, _, _ := buildRun(t, `
public u32 double(u32 x) {
	return x * 2;
}
`, ModeC, TargetGeneric)
	header := RenderHeader(ctx, "test.h")
	if !strings.Contains(header, "#ifndef TEST_H_") {
		t.Fatalf("expected an include guard, got:\n%s", header)
	}
	if !strings.Contains(header, "uint32_t double(uint32_t x);") {
		t.Fatalf("expected function prototype, got:\n%s", header)
	}
}

func TestGenerateFloatToIntCastEmitsSaturatingClamp(t *testing.T) {
	ctx, comments, root := buildRun(t, `
u8 clamp(f32 x) {
	return (u8)x;
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if ctx.Diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Diags.Errors())
	}
	if !strings.Contains(result.Body, "x > UINT8_MAX ? UINT8_MAX : x < 0 ? 0 : (uint8_t)x") {
		t.Fatalf("expected a saturating clamp for the float-to-integer cast, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "#include <limits.h>") {
		t.Fatalf("expected the limits include need to be latched, got:\n%s", result.Body)
	}
}

func TestGenerateIntegerCastWithoutFloatOperandStaysBare(t *testing.T) {
	ctx, comments, root := buildRun(t, `
u8 truncate(u32 x) {
	return (u8)x;
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "(uint8_t)(x)") {
		t.Fatalf("expected a bare cast for a non-float operand, got:\n%s", result.Body)
	}
	if strings.Contains(result.Body, "<limits.h>") {
		t.Fatalf("did not expect a limits include for an int-to-int cast, got:\n%s", result.Body)
	}
}

func TestGenerateNarrowingIdentifierToIdentifierIsError(t *testing.T) {
	ctx, comments, root := buildRun(t, `void test() {
	u32 large <- 1000;
	u8 small <- large;
}
`, ModeC, TargetGeneric)

	Generate(ctx, root, comments, "test.h")
	errs := ctx.Diags.Errors()
	if len(errs) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d: %v", len(errs), errs)
	}
	if errs[0].Code != diag.CodeNarrowingAssign {
		t.Fatalf("expected %s, got %s", diag.CodeNarrowingAssign, errs[0].Code)
	}
	if errs[0].Line != 3 {
		t.Fatalf("expected error at line 3, got line %d", errs[0].Line)
	}
}

func TestGenerateSignChangeBetweenIdentifiersIsError(t *testing.T) {
	ctx, comments, root := buildRun(t, `
void test() {
	i32 signedVal <- 1;
	u32 unsignedVal <- signedVal;
}
`, ModeC, TargetGeneric)

	Generate(ctx, root, comments, "test.h")
	if !ctx.Diags.HasErrors() {
		t.Fatal("expected a sign-change error assigning a signed local into an unsigned one")
	}
}

func TestGenerateNoIncludesLatchedForEmptyFile(t *testing.T) {
	ctx, comments, root := buildRun(t, `
void noop() {
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	for _, unwanted := range []string{"<stdint.h>", "<stdbool.h>", "<limits.h>", "cmsis_gcc.h", "cnx_irq.h"} {
		if strings.Contains(result.Body, unwanted) {
			t.Fatalf("expected no %s include for a function with no typed state, got:\n%s", unwanted, result.Body)
		}
	}
}

func TestGenerateStdintIncludeLatchedWhenPrimitiveTypeUsed(t *testing.T) {
	ctx, comments, root := buildRun(t, `
u32 identity(u32 x) {
	return x;
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "#include <stdint.h>") {
		t.Fatalf("expected stdint.h to be latched for a u32 parameter, got:\n%s", result.Body)
	}
	if strings.Contains(result.Body, "<stdbool.h>") {
		t.Fatalf("did not expect stdbool.h when no bool is used, got:\n%s", result.Body)
	}
}

func TestGenerateCriticalSectionGenericFallbackLatchesIrqWrappers(t *testing.T) {
	ctx, comments, root := buildRun(t, `
void guard() {
	critical {
		u32 x <- 1;
	}
}
`, ModeC, TargetGeneric)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "cnx_irq.h") {
		t.Fatalf("expected the irq-wrappers include for the generic critical-section fallback, got:\n%s", result.Body)
	}
}

func TestGenerateCriticalSectionArmV7MLatchesCmsis(t *testing.T) {
	ctx, comments, root := buildRun(t, `
void guard() {
	critical {
		u32 x <- 1;
	}
}
`, ModeC, TargetArmV7M)

	result := Generate(ctx, root, comments, "test.h")
	if !strings.Contains(result.Body, "cmsis_gcc.h") {
		t.Fatalf("expected the cmsis include for the arm-v7m critical-section lowering, got:\n%s", result.Body)
	}
}

func TestGenerateSwitchTooFewClausesIsError(t *testing.T) {
	ctx, comments, root := buildRun(t, `
enum Status {
	Idle,
	Running,
}

void handle(Status s) {
	switch (s) {
	default:
		break;
	}
}
`, ModeC, TargetGeneric)

	Generate(ctx, root, comments, "test.h")
	if !ctx.Diags.HasErrors() {
		t.Fatal("expected an error for a switch with fewer than 2 clauses")
	}
}
