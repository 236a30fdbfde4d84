package diag

import "testing"

func TestDiagnosticError(t *testing.T) {
	d := Diagnostic{
		Code: CodeNarrowingAssign, Severity: SeverityError,
		File: "a.cnx", Line: 3, Column: 2,
		Message: "narrowing assignment from u32 to u8",
		Hint:    "use bit-indexing expr[0, 8] instead",
	}

	want := "a.cnx:3:2: E0381: narrowing assignment from u32 to u8 (use bit-indexing expr[0, 8] instead)"
	if got := d.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !d.IsError() {
		t.Error("expected IsError true for SeverityError")
	}
}

func TestDiagnosticsAccumulation(t *testing.T) {
	var ds Diagnostics
	ds.Error(CodeNarrowingAssign, "a.cnx", 3, 2, "narrowing assignment from %s to %s", "u32", "u8")
	ds.WithHint("use bit-indexing")
	ds.Warn(CodeIncludeUnresolved, "a.cnx", 1, 1, "unresolved include %q", "missing.cnx")

	if ds.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", ds.Len())
	}
	if !ds.HasErrors() {
		t.Fatal("expected HasErrors true")
	}
	if len(ds.Errors()) != 1 || len(ds.Warnings()) != 1 {
		t.Fatalf("expected 1 error and 1 warning, got %d/%d", len(ds.Errors()), len(ds.Warnings()))
	}
	if ds.All()[0].Hint != "use bit-indexing" {
		t.Fatalf("expected hint attached to first diagnostic, got %q", ds.All()[0].Hint)
	}
}

func TestDiagnosticsMerge(t *testing.T) {
	var a, b Diagnostics
	a.Error(CodeSymbolConflict, "a.cnx", 0, 0, "redefinition of f")
	b.Error(CodeSymbolConflict, "b.cnx", 0, 0, "redefinition of g")

	a.Merge(&b)
	if a.Len() != 2 {
		t.Fatalf("expected merged length 2, got %d", a.Len())
	}
}

func TestPanicInvariantRecovers(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		v, ok := r.(InvariantViolation)
		if !ok {
			t.Fatalf("expected InvariantViolation, got %T", r)
		}
		if v.Component != "codegen" {
			t.Fatalf("expected component codegen, got %s", v.Component)
		}
	}()
	PanicInvariant("codegen", "missing symbol info for %s", "foo")
}
