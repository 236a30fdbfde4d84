// Package codegen implements C7, the code generator: the largest component
// of the pipeline (spec §2 estimates ~48% of the codebase). It walks one
// C-Next file's parse tree and produces C or C++ source/header text plus
// diagnostics, consulting the cross-file symbol table (C5) and
// modification facts (C6) but never re-deriving anything they already
// settled (spec §3's single-source-of-truth rule).
//
// Grounded on spec §9's explicit design guidance against the teacher's own
// antipattern of package-level mutable singletons (several teacher
// subsystems use a shared global index): generation state lives entirely
// in a per-run Context value threaded through every call, so two
// transpile runs in the same process never share state (spec §8 property
// 6).
package codegen

import (
	"strings"

	"github.com/cnxlang/cnxc/internal/diag"
	"github.com/cnxlang/cnxc/internal/modanalysis"
	"github.com/cnxlang/cnxc/internal/symbols"
)

// Mode is the emission dialect for one file, decided by the driver's
// C++-mode latch (spec §3: "C++ mode never demotes once promoted").
type Mode int

const (
	ModeC Mode = iota
	ModeCpp
)

// Target names the MCU/ISA family critical-section emission targets.
// Unknown/unset resolves to the conservative generic fallback (spec
// §4.7.7's target-priority rule: CLI > #pragma target > conservative
// default).
type Target string

const (
	TargetGeneric Target = "generic"
	TargetArmV7M  Target = "arm-v7m"
	TargetAVR     Target = "avr"
)

// IncludeNeeds is spec §3's "small set of booleans" latched by generator
// effects during a run; generate.go and header.go consult the final state
// once the walk is done and prepend exactly the includes it names (spec §8
// property 4: "no spurious includes, no missing ones").
type IncludeNeeds struct {
	Stdint            bool
	Stdbool           bool
	String            bool
	Cmsis             bool
	Limits            bool
	Isr               bool
	FloatStaticAssert bool
	IrqWrappers       bool
}

// Context is the explicit, non-global state one file's generation reads
// from: the merged symbol table, the modification-analysis facts, and the
// file's own scope/mode/target. A fresh Context per file (sharing the
// same Table/Analyzer pointers across files in one run) is what keeps
// state "grow-only during a run" per spec §9 while still letting two runs
// never leak into each other.
type Context struct {
	File        string
	Mode        Mode
	Target      Target
	Table       *symbols.Table
	Mods        *modanalysis.Analyzer
	CurrentFunc string // set while walking a function body, for mod-analysis lookups
	CurrentScope string // set while walking a scope member, for S_member mangling
	Diags       *diag.Diagnostics
	Needs       IncludeNeeds
}

// NewContext builds a Context for generating one file.
func NewContext(file string, mode Mode, target Target, table *symbols.Table, mods *modanalysis.Analyzer) *Context {
	return &Context{File: file, Mode: mode, Target: target, Table: table, Mods: mods, Diags: &diag.Diagnostics{}}
}

// mangleScopeMember renders a scope member's emitted C/C++ identifier:
// `Scope_member` regardless of mode, since C-Next scopes always lower to a
// flat namespace-free identifier (spec §4.7.2) — C++ mode still benefits
// from the distinct top-level name to avoid clashing with a real C++
// `namespace`/`class` of the same name coming from a header.
func mangleScopeMember(scope, member string) string {
	return scope + "_" + member
}

// cIdentSafe trims surrounding whitespace from a preserved C++ namespace
// reference and leaves any `::` in place — namespaces are passed through
// verbatim in C++ mode (spec §4.7.2 "A::B::C preserved if C++ namespace").
func cIdentSafe(s string) string {
	return strings.TrimSpace(s)
}
