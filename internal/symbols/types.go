// Package symbols implements C4 (walking a C-Next parse tree into symbols)
// and C5 (the unified symbol table: storage, conflict detection, and
// external array-dimension resolution), per spec §3 and §4.3-§4.4.
package symbols

import "github.com/cnxlang/cnxc/internal/ast"

// Kind tags what a Symbol represents.
type Kind int

const (
	KindVariable Kind = iota
	KindFunction
	KindStruct
	KindEnum
	KindBitmap
	KindScope
	KindRegister
	KindTypeAlias
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindFunction:
		return "function"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindBitmap:
		return "bitmap"
	case KindScope:
		return "scope"
	case KindRegister:
		return "register"
	case KindTypeAlias:
		return "type-alias"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// Param is one function parameter. IsAutoConst is not written by C4 or C6
// and stays false; C7 reads auto-const status from modanalysis.Analyzer
// (IsModified/IsAutoConst) instead.
type Param struct {
	Name        string
	BaseType    string
	IsConst     bool
	IsArray     bool
	IsAutoConst bool
}

// Field is one struct member. Dim carries a literal integer or a symbolic
// constant name to be resolved by ResolveExternalArrayDimensions; it is
// empty for non-array fields.
type Field struct {
	Name    string
	Type    string
	IsArray bool
	Dim     string
}

// EnumMember pairs a declared name with its resolved 64-bit value.
type EnumMember struct {
	Name  string
	Value int64
}

// BitmapField names a contiguous bit range within a bitmap.
type BitmapField struct {
	Name   string
	Offset int
	Width  int
}

// ScopeMember records one member of a scope decl and its visibility.
type ScopeMember struct {
	Name     string
	IsPublic bool
}

// Symbol is the unit the table stores; see spec §3 "Symbol" for the field
// contract. Kind-specific payload fields are left zero-valued when unused.
type Symbol struct {
	Name         string
	File         string
	Kind         Kind
	DeclaredType string
	IsExported   bool
	IsConst      bool
	InitialValue string
	Pos          ast.Position

	Params       []Param       // function
	Fields       []Field       // struct
	EnumMembers  []EnumMember  // enum
	EnumWidth    string        // enum: u8/u16/u32/u64
	BitmapFields []BitmapField // bitmap
	BitmapWidth  int           // bitmap: bit count (8/16/32/64)
	ScopeMembers []ScopeMember // scope

	// Key identifies the symbol for conflict detection: name plus
	// defining file path (spec §3 "Symbol"), distinguishing two
	// same-named symbols declared in different files.
}

// Key returns the name+file identity spec §3 defines for a symbol.
func (s *Symbol) Key() string { return s.File + "#" + s.Name }
