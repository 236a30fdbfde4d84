// Package modanalysis implements C6: per-function parameter modification
// analysis and the cross-file fixed-point propagation that turns a direct
// write inside one function into "this parameter must not be passed
// by-value" knowledge for every caller that forwards an argument into it.
// Grounded on the teacher's SideEffectPropagator
// (internal/core/side_effect_propagation.go): the same
// register-local-facts -> iterate-until-no-change -> cap-at-MaxIterations
// shape, adapted from side-effect categories to a boolean
// "this parameter is modified" fact per (function, parameter) pair.
package modanalysis

import (
	"github.com/cnxlang/cnxc/internal/ast"
	"github.com/cnxlang/cnxc/internal/debug"
)

// CallSite records that function caller passes its argument at argIndex
// (a bare identifier, so aliasing is possible) into callee's parameter
// calleeParam. Only bare-identifier arguments create an edge; anything
// else (a literal, a computed expression) can't propagate a modification
// back to one of the caller's own parameters.
type CallSite struct {
	Caller      string
	CallerArg   string
	CalleeFunc  string
	CalleeParam string
}

// Facts is the per-function modification record C6 produces.
type Facts struct {
	Params   []string        // declared parameter names, in order
	Modified map[string]bool // param name -> directly or transitively modified
}

// Analyzer accumulates per-function facts and the call graph across every
// file in a run, then propagates to a fixed point.
type Analyzer struct {
	facts     map[string]*Facts
	callGraph []CallSite
	maxIter   int
}

// NewAnalyzer returns an empty Analyzer. maxIter bounds fixed-point
// propagation the same way the teacher's SideEffectPropagationConfig
// bounds its own loop, guarding against a call-graph cycle that would
// otherwise spin forever without ever reaching "no change".
func NewAnalyzer() *Analyzer {
	return &Analyzer{facts: map[string]*Facts{}, maxIter: 100}
}

// InjectFact pre-seeds a (function, parameter) modification fact from a
// prior run or another file's analysis, per spec §4.5's "accept externally
// injected facts before collection" requirement for cross-file callers
// that were analyzed before the callee was visited.
func (a *Analyzer) InjectFact(function, param string, modified bool) {
	f := a.ensureFacts(function, nil)
	if modified {
		f.Modified[param] = true
	}
}

func (a *Analyzer) ensureFacts(function string, params []string) *Facts {
	f, ok := a.facts[function]
	if !ok {
		f = &Facts{Modified: map[string]bool{}}
		a.facts[function] = f
	}
	if params != nil {
		f.Params = params
	}
	return f
}

// CollectFunction walks one function's body, recording direct parameter
// modifications and call-graph edges. Direct modification triggers (spec
// §4.5): `p <- …`, `p.member <- …`, `p[…] <- …`, any compound assignment
// to one of those forms, and `&p` (address-of escapes the parameter to an
// unknown callee).
func (a *Analyzer) CollectFunction(name string, paramNames []string, body *ast.Node) {
	facts := a.ensureFacts(name, paramNames)
	params := map[string]bool{}
	for _, p := range paramNames {
		params[p] = true
	}

	ast.Walk(body, func(n *ast.Node) bool {
		switch n.Kind {
		case ast.KindAssignStmt, ast.KindCompoundAssignStmt:
			if len(n.Children) > 0 {
				if root := rootIdent(n.Children[0]); root != "" && params[root] {
					facts.Modified[root] = true
				}
			}
		case ast.KindAddrOfExpr:
			if len(n.Children) > 0 {
				if root := rootIdent(n.Children[0]); root != "" && params[root] {
					facts.Modified[root] = true
				}
			}
		case ast.KindCallExpr:
			a.recordCallSite(name, n)
		}
		return true
	})
}

// rootIdent returns the base identifier an lvalue expression targets,
// unwrapping member/index/bit-range access (p.member, p[i], p[lo,hi]) down
// to the parameter it ultimately writes through.
func rootIdent(n *ast.Node) string {
	for n != nil {
		switch n.Kind {
		case ast.KindIdent:
			return n.Text
		case ast.KindMemberExpr, ast.KindIndexExpr, ast.KindBitRangeExpr, ast.KindScopeAccessExpr:
			if len(n.Children) == 0 {
				return ""
			}
			n = n.Children[0]
		default:
			return ""
		}
	}
	return ""
}

// recordCallSite adds a CallSite edge for every bare-identifier argument,
// so propagation can later ask "does this callee modify the parameter this
// argument landed in" and mark the caller's own parameter modified too.
func (a *Analyzer) recordCallSite(caller string, call *ast.Node) {
	if len(call.Children) == 0 {
		return
	}
	callee := rootIdent(call.Children[0])
	if callee == "" {
		return
	}
	// calleeParam is left blank here and filled in during Propagate, since
	// the callee's parameter list may not be collected yet (a caller can
	// appear before its callee in discovery order).
	for _, arg := range call.Children[1:] {
		if arg.Kind != ast.KindIdent {
			continue
		}
		a.callGraph = append(a.callGraph, CallSite{Caller: caller, CallerArg: arg.Text, CalleeFunc: callee})
	}
}

// Propagate runs fixed-point propagation: for each call-site edge, if the
// callee's corresponding parameter (by position, resolved from the
// callee's declared Params) is modified, the caller's forwarded argument
// is marked modified too. Repeats until no edge changes anything or
// maxIter is reached.
func (a *Analyzer) Propagate() {
	a.resolveCalleeParams()

	for iter := 0; iter < a.maxIter; iter++ {
		changed := false
		for _, cs := range a.callGraph {
			if cs.CalleeParam == "" {
				continue
			}
			calleeFacts, ok := a.facts[cs.CalleeFunc]
			if !ok || !calleeFacts.Modified[cs.CalleeParam] {
				continue
			}
			callerFacts := a.ensureFacts(cs.Caller, nil)
			if !callerFacts.Modified[cs.CallerArg] {
				callerFacts.Modified[cs.CallerArg] = true
				changed = true
			}
		}
		if !changed {
			debug.LogModAnalysis("fixed point reached after %d iterations", iter+1)
			return
		}
	}
	debug.LogModAnalysis("propagation stopped at iteration cap %d", a.maxIter)
}

// resolveCalleeParams fills in CalleeParam for each call-graph edge now
// that every function's parameter list has been collected, matching each
// argument to the callee's parameter at the same position.
func (a *Analyzer) resolveCalleeParams() {
	argIndex := map[string]int{}
	for i := range a.callGraph {
		cs := &a.callGraph[i]
		key := cs.Caller + "->" + cs.CalleeFunc
		pos := argIndex[key]
		argIndex[key] = pos + 1

		calleeFacts, ok := a.facts[cs.CalleeFunc]
		if !ok || pos >= len(calleeFacts.Params) {
			continue
		}
		cs.CalleeParam = calleeFacts.Params[pos]
	}
}

// IsModified reports whether function's param was ever written through,
// directly or transitively.
func (a *Analyzer) IsModified(function, param string) bool {
	f, ok := a.facts[function]
	if !ok {
		return false
	}
	return f.Modified[param]
}

// IsAutoConst reports whether a pointer-eligible parameter qualifies for
// const inference: it was never modified (spec §4.5's isAutoConst rule).
func (a *Analyzer) IsAutoConst(function, param string) bool {
	return !a.IsModified(function, param)
}

// FactsFor exposes the full Facts record for a function, primarily so C7
// can enumerate which parameters ended up modified when emitting
// signatures.
func (a *Analyzer) FactsFor(function string) *Facts {
	return a.facts[function]
}
