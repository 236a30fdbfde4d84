package codegen

import (
	"fmt"
	"strings"

	"github.com/cnxlang/cnxc/internal/symbols"
	"github.com/cnxlang/cnxc/pkg/pathutil"
)

// RenderHeader emits the `.h`/`.hpp` companion for one file's exported
// declarations, per spec §4.7.9: an include-guarded translation of every
// exported struct/enum/bitmap/scope/function into a prototype or type
// declaration, so other files (including ones C7 never walks, like a hand-
// written caller) can `#include` it and link against the generated `.c`.
func RenderHeader(ctx *Context, headerPath string) string {
	var decls strings.Builder
	if ctx.Mode == ModeCpp {
		decls.WriteString("extern \"C\" {\n\n")
	}

	syms := ctx.Table.GetSymbolsByFile(ctx.File)
	for _, s := range syms {
		if !s.IsExported {
			continue
		}
		switch s.Kind {
		case symbols.KindEnum:
			renderEnumDecl(ctx, &decls, s)
		case symbols.KindBitmap:
			renderBitmapDecl(ctx, &decls, s)
		case symbols.KindStruct:
			renderStructDecl(ctx, &decls, s)
		case symbols.KindFunction:
			renderFunctionPrototype(ctx, &decls, s)
		case symbols.KindVariable:
			renderVarDecl(ctx, &decls, s)
		}
	}

	if ctx.Mode == ModeCpp {
		decls.WriteString("}\n\n")
	}

	var b strings.Builder
	guard := pathutil.IncludeGuardName(headerPath)
	b.WriteString("// Generated by cnxc\n")
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", guard, guard)
	writeHeaderPrelude(&b, ctx)
	b.WriteString(decls.String())
	fmt.Fprintf(&b, "#endif // %s\n", guard)
	return b.String()
}

// writeHeaderPrelude prepends exactly the includes ctx.Needs ended up
// latched with by the time the declarations above were rendered (spec §8
// property 4); a header with only struct decls and no stdint-backed field
// ends up with no stdint.h at all (enum and bitmap decls always latch it).
func writeHeaderPrelude(b *strings.Builder, ctx *Context) {
	needs := ctx.Needs
	if needs.Stdint {
		if ctx.Mode == ModeC {
			b.WriteString("#include <stdint.h>\n")
		} else {
			b.WriteString("#include <cstdint>\n")
		}
	}
	if needs.Stdbool && ctx.Mode == ModeC {
		b.WriteString("#include <stdbool.h>\n")
	}
	b.WriteString("\n")
}

func renderEnumDecl(ctx *Context, b *strings.Builder, s *symbols.Symbol) {
	ctx.Needs.Stdint = true
	backing := cTypeNames[s.EnumWidth]
	if ctx.Mode == ModeCpp {
		fmt.Fprintf(b, "enum class %s : %s {\n", s.Name, backing)
		for _, m := range s.EnumMembers {
			fmt.Fprintf(b, "    %s = %d,\n", m.Name, m.Value)
		}
		b.WriteString("};\n\n")
		return
	}
	fmt.Fprintf(b, "typedef %s %s;\n", backing, s.Name)
	for _, m := range s.EnumMembers {
		fmt.Fprintf(b, "#define %s_%s ((%s)%d)\n", s.Name, m.Name, s.Name, m.Value)
	}
	b.WriteString("\n")
}

func renderBitmapDecl(ctx *Context, b *strings.Builder, s *symbols.Symbol) {
	ctx.Needs.Stdint = true
	backing := widthToCType(s.BitmapWidth)
	fmt.Fprintf(b, "typedef %s %s;\n", backing, s.Name)
	for _, f := range s.BitmapFields {
		mask := (int64(1)<<uint(f.Width) - 1) << uint(f.Offset)
		fmt.Fprintf(b, "#define %s_%s_SHIFT %d\n", s.Name, f.Name, f.Offset)
		fmt.Fprintf(b, "#define %s_%s_MASK ((%s)0x%X)\n", s.Name, f.Name, s.Name, mask)
	}
	b.WriteString("\n")
}

func widthToCType(bits int) string {
	switch {
	case bits <= 8:
		return "uint8_t"
	case bits <= 16:
		return "uint16_t"
	case bits <= 32:
		return "uint32_t"
	default:
		return "uint64_t"
	}
}

func renderStructDecl(ctx *Context, b *strings.Builder, s *symbols.Symbol) {
	if ctx.Mode == ModeCpp {
		fmt.Fprintf(b, "struct %s {\n", s.Name)
	} else {
		fmt.Fprintf(b, "typedef struct %s {\n", s.Name)
	}
	for _, f := range s.Fields {
		fieldType := CType(ctx, f.Type)
		if f.IsArray {
			fmt.Fprintf(b, "    %s %s[%s];\n", fieldType, f.Name, f.Dim)
		} else {
			fmt.Fprintf(b, "    %s %s;\n", fieldType, f.Name)
		}
	}
	if ctx.Mode == ModeCpp {
		b.WriteString("};\n\n")
	} else {
		fmt.Fprintf(b, "} %s;\n\n", s.Name)
	}
}

func renderVarDecl(ctx *Context, b *strings.Builder, s *symbols.Symbol) {
	cType := CType(ctx, s.DeclaredType)
	if s.IsConst {
		fmt.Fprintf(b, "extern const %s %s;\n", cType, s.Name)
		return
	}
	fmt.Fprintf(b, "extern %s %s;\n", cType, s.Name)
}

func renderFunctionPrototype(ctx *Context, b *strings.Builder, s *symbols.Symbol) {
	retType := "void"
	if s.DeclaredType != "" {
		retType = CType(ctx, s.DeclaredType)
	}
	params := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		modified := ctx.Mods.IsModified(s.Name, p.Name)
		params = append(params, RenderParam(ctx, p, modified, p.Name))
	}
	if len(params) == 0 {
		params = append(params, "void")
	}
	fmt.Fprintf(b, "%s %s(%s);\n", retType, s.Name, strings.Join(params, ", "))
}
