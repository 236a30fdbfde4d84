package modanalysis

import (
	"testing"

	"github.com/cnxlang/cnxc/internal/ast"
	"github.com/cnxlang/cnxc/internal/cnxparse"
)

func paramNamesAndBody(t *testing.T, src string) ([]string, *ast.Node, string) {
	t.Helper()
	root, _, err := cnxparse.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := root.FirstOfKind(ast.KindFunctionDecl)
	if fn == nil {
		t.Fatal("expected a function decl")
	}
	var names []string
	for _, p := range fn.ChildrenOfKind(ast.KindParam) {
		names = append(names, p.Attr("name"))
	}
	body := fn.Children[len(fn.Children)-1]
	return names, body, fn.Attr("name")
}

func TestDirectAssignMarksParamModified(t *testing.T) {
	names, body, fname := paramNamesAndBody(t, `
void reset(u32 counter) {
	counter <- 0;
}
`)
	a := NewAnalyzer()
	a.CollectFunction(fname, names, body)
	a.Propagate()
	if !a.IsModified("reset", "counter") {
		t.Fatal("expected counter to be marked modified")
	}
}

func TestMemberAssignMarksRootParamModified(t *testing.T) {
	names, body, fname := paramNamesAndBody(t, `
void touch(Sample s) {
	s.count <- 1;
}
`)
	a := NewAnalyzer()
	a.CollectFunction(fname, names, body)
	a.Propagate()
	if !a.IsModified("touch", "s") {
		t.Fatal("expected s to be marked modified via member write")
	}
}

func TestUnmodifiedParamIsAutoConst(t *testing.T) {
	names, body, fname := paramNamesAndBody(t, `
u32 double(u32 x) {
	return x * 2;
}
`)
	a := NewAnalyzer()
	a.CollectFunction(fname, names, body)
	a.Propagate()
	if !a.IsAutoConst("double", "x") {
		t.Fatal("expected x to be auto-const since it is never written")
	}
}

func TestAddrOfMarksParamModified(t *testing.T) {
	names, body, fname := paramNamesAndBody(t, `
void escape(u32 v) {
	takesPointer(&v);
}
`)
	a := NewAnalyzer()
	a.CollectFunction(fname, names, body)
	a.Propagate()
	if !a.IsModified("escape", "v") {
		t.Fatal("expected v to be marked modified after its address escapes")
	}
}

func TestPropagatesModificationThroughCallGraph(t *testing.T) {
	calleeNames, calleeBody, calleeName := paramNamesAndBody(t, `
void mutate(u32 value) {
	value <- value + 1;
}
`)
	callerNames, callerBody, callerName := paramNamesAndBody(t, `
void forward(u32 input) {
	mutate(input);
}
`)
	a := NewAnalyzer()
	a.CollectFunction(calleeName, calleeNames, calleeBody)
	a.CollectFunction(callerName, callerNames, callerBody)
	a.Propagate()

	if !a.IsModified("mutate", "value") {
		t.Fatal("expected direct modification of mutate's value")
	}
	if !a.IsModified("forward", "input") {
		t.Fatal("expected forward's input to inherit modification transitively")
	}
}

func TestInjectFactSeedsCrossFileModification(t *testing.T) {
	names, body, fname := paramNamesAndBody(t, `
void forward(u32 input) {
	externalMutate(input);
}
`)
	a := NewAnalyzer()
	a.InjectFact("externalMutate", "input", true)
	a.CollectFunction("externalMutate", []string{"input"}, nil)
	a.CollectFunction(fname, names, body)
	a.Propagate()

	if !a.IsModified("forward", "input") {
		t.Fatal("expected forward's input modified via an externally injected fact")
	}
}
