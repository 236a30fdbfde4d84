package ast

import "testing"

func TestNodeAttrsAndChildren(t *testing.T) {
	fn := New(KindFunctionDecl, Position{Line: 1, Column: 1})
	fn.SetAttr("name", "inc")
	fn.SetAttr("isExported", "true")

	param := New(KindParam, Position{Line: 1, Column: 10})
	param.SetAttr("name", "x")
	fn.Add(param)

	if fn.Attr("name") != "inc" {
		t.Fatalf("expected name attr 'inc', got %q", fn.Attr("name"))
	}
	if !fn.AttrBool("isExported") {
		t.Fatal("expected isExported true")
	}
	if fn.AttrBool("missing") {
		t.Fatal("expected missing bool attr to default false")
	}

	params := fn.ChildrenOfKind(KindParam)
	if len(params) != 1 || params[0].Attr("name") != "x" {
		t.Fatalf("expected one param named x, got %+v", params)
	}
	if fn.FirstOfKind(KindParam) != params[0] {
		t.Fatal("FirstOfKind should return the same node as ChildrenOfKind[0]")
	}
}

func TestWalkVisitsPreOrder(t *testing.T) {
	root := New(KindFile, Position{})
	a := New(KindFunctionDecl, Position{})
	b := New(KindStructDecl, Position{})
	a.Add(New(KindParam, Position{}))
	root.Add(a)
	root.Add(b)

	var kinds []Kind
	Walk(root, func(n *Node) bool {
		kinds = append(kinds, n.Kind)
		return true
	})

	want := []Kind{KindFile, KindFunctionDecl, KindParam, KindStructDecl}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d nodes, got %d (%v)", len(want), len(kinds), kinds)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("index %d: expected %s, got %s", i, k, kinds[i])
		}
	}
}

func TestKindStringUnknown(t *testing.T) {
	var k Kind = 9999
	if k.String() != "unknown" {
		t.Fatalf("expected unknown for unmapped kind, got %q", k.String())
	}
}
