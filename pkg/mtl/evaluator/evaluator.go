// Package evaluator walks parsed MTL templates and produces ordered lists
// of rendered strings.
//
// Every intermediate value is an ordered list of strings: a scalar field is
// a one-element list, a missing field is the empty list. Statement results
// compose with surrounding literals and sibling statements by ordered
// cross-product concatenation, so a multi-valued field multiplies the
// rendered output rather than flattening it.
package evaluator

import (
	"slices"
	"strconv"
	"strings"

	"github.com/metaplate/metaplate/pkg/mtl/ast"
	perrors "github.com/metaplate/metaplate/pkg/mtl/errors"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// Evaluator renders templates against one context. It is single-threaded
// and synchronous; the host renders distinct files with distinct contexts.
type Evaluator struct {
	reg *provider.Registry
	ctx *provider.Context
}

// New returns an evaluator bound to a registry and a per-render context.
func New(reg *provider.Registry, ctx *provider.Context) *Evaluator {
	return &Evaluator{reg: reg, ctx: ctx}
}

// Render evaluates a top-level template. A template that contributes
// nothing at all (empty source, or only variable bindings) renders to nil.
func (e *Evaluator) Render(t *ast.Template) ([]string, error) {
	results, contributed, err := e.evalNodes(t)
	if err != nil {
		return nil, err
	}
	if !contributed {
		return nil, nil
	}
	return results, nil
}

// EvalTemplate evaluates a sub-template clause. An empty clause renders to
// a single empty string, which is how a present-but-empty default behaves.
// This is also the EvalFunc handed to providers.
func (e *Evaluator) EvalTemplate(t *ast.Template) ([]string, error) {
	results, _, err := e.evalNodes(t)
	return results, err
}

func (e *Evaluator) evalNodes(t *ast.Template) ([]string, bool, error) {
	results := []string{""}
	contributed := false
	if t == nil {
		return results, false, nil
	}
	for _, n := range t.Nodes {
		switch n := n.(type) {
		case *ast.Literal:
			for i := range results {
				results[i] += n.Text
			}
			contributed = true
		case *ast.Statement:
			vals, err := e.evalStatement(n)
			if err != nil {
				return nil, false, err
			}
			// An empty statement result ({var:...}, a false conditional
			// with a bare '?') contributes no characters: it composes as
			// the identity rather than annihilating sibling output.
			if len(vals) == 0 {
				continue
			}
			contributed = true
			next := make([]string, 0, len(vals)*len(results))
			for _, v := range vals {
				for _, r := range results {
					next = append(next, r+v)
				}
			}
			results = next
		}
	}
	return results, contributed, nil
}

// evalStatement runs the fixed phase order: resolve, filters, find/replace,
// conditional, in-place join, combine, boolean substitution, default.
func (e *Evaluator) evalStatement(st *ast.Statement) ([]string, error) {
	vals, defaultConsumed, err := e.resolveField(st)
	if err != nil {
		return nil, err
	}

	for _, f := range st.Filters {
		vals, err = e.applyFilter(f, vals)
		if err != nil {
			return nil, err
		}
	}

	if len(st.FindReplace) > 0 {
		vals, err = e.applyFindReplace(st.FindReplace, vals)
		if err != nil {
			return nil, err
		}
	}

	if st.Cond != nil {
		match, err := e.evalConditional(st.Cond, vals)
		if err != nil {
			return nil, err
		}
		if match {
			vals = []string{"True"}
		} else {
			vals = nil
		}
	}

	if st.InPlace && len(vals) > 0 {
		delim, err := e.expandVariablesSingle(st.Delim, "delim")
		if err != nil {
			return nil, err
		}
		vals = []string{strings.Join(vals, delim)}
	}

	if st.Combine != nil {
		combined, err := e.EvalTemplate(st.Combine)
		if err != nil {
			return nil, err
		}
		// A combine target conventionally ends with ',' so its own null
		// default renders empty; empty contributions are dropped here so
		// they do not contaminate the list.
		for _, v := range combined {
			if v != "" {
				vals = append(vals, v)
			}
		}
	}

	if st.HasBool {
		if len(vals) > 0 {
			return e.EvalTemplate(st.True)
		}
		if st.HasDefault {
			return e.EvalTemplate(st.Default)
		}
		return nil, nil
	}

	if len(vals) == 0 && !defaultConsumed {
		if st.HasDefault {
			d, err := e.EvalTemplate(st.Default)
			if err != nil {
				return nil, err
			}
			if len(d) > 0 {
				return d, nil
			}
		}
		return []string{e.ctx.NoneStr}, nil
	}

	return vals, nil
}

// resolveField dispatches phase 1: variable references resolve from the
// context, everything else goes through the provider registry.
func (e *Evaluator) resolveField(st *ast.Statement) (vals []string, defaultConsumed bool, err error) {
	if name, isVar := strings.CutPrefix(st.Field, "%"); isVar {
		bound, ok := e.ctx.Variables[name]
		if !ok {
			return nil, false, perrors.NewUnboundVariable(name)
		}
		return slices.Clone(bound), false, nil
	}

	req := &provider.Request{
		Namespace:  st.Field,
		Subfield:   st.Subfield,
		Attributes: st.Attributes,
		File:       e.ctx.File,
		Ctx:        e.ctx,
		Eval:       e.EvalTemplate,
	}
	if st.HasDefault {
		req.Default = st.Default
	}
	resolved, err := e.reg.Resolve(req)
	if err != nil {
		return nil, false, err
	}
	return resolved, req.DefaultConsumed(), nil
}

func (e *Evaluator) applyFindReplace(pairs []ast.FindReplace, vals []string) ([]string, error) {
	out := make([]string, len(vals))
	for i, v := range vals {
		for _, pair := range pairs {
			find, err := e.expandVariablesSingle(pair.Find, "find")
			if err != nil {
				return nil, err
			}
			replace, err := e.expandVariablesSingle(pair.Replace, "replace")
			if err != nil {
				return nil, err
			}
			v = strings.ReplaceAll(v, find, replace)
		}
		out[i] = v
	}
	return out, nil
}

// evalConditional applies the comparison operator across the value list.
// For the string and numeric operators the result is the disjunction over
// elements: false only if the operator is false for every element. == and
// != instead compare the whole value list with the candidate list, both
// sorted.
func (e *Evaluator) evalConditional(c *ast.Conditional, vals []string) (bool, error) {
	candidates, err := e.EvalTemplate(c.Value)
	if err != nil {
		return false, err
	}

	var match bool
	switch c.Operator {
	case "contains", "matches", "startswith", "endswith":
		// '|' in the rendered value separates OR candidates.
		var split []string
		for _, cand := range candidates {
			split = append(split, strings.Split(cand, "|")...)
		}
		match = anyPair(vals, split, stringTest(c.Operator))
	case "==", "!=":
		sv := slices.Clone(vals)
		sc := slices.Clone(candidates)
		slices.Sort(sv)
		slices.Sort(sc)
		equal := slices.Equal(sv, sc)
		match = equal == (c.Operator == "==")
	default:
		match, err = numericTest(c.Operator, vals, candidates)
		if err != nil {
			return false, err
		}
	}

	if c.Negated {
		match = !match
	}
	return match, nil
}

func stringTest(op string) func(v, c string) bool {
	switch op {
	case "contains":
		return func(v, c string) bool { return strings.Contains(v, c) }
	case "matches":
		return func(v, c string) bool { return v == c }
	case "startswith":
		return func(v, c string) bool { return strings.HasPrefix(v, c) }
	default: // endswith
		return func(v, c string) bool { return strings.HasSuffix(v, c) }
	}
}

func anyPair(vals, candidates []string, test func(v, c string) bool) bool {
	for _, c := range candidates {
		for _, v := range vals {
			if test(v, c) {
				return true
			}
		}
	}
	return false
}

// numericTest handles <, <=, >, >=. Both sides must parse as numbers and
// the conditional may carry only a single candidate value.
func numericTest(op string, vals, candidates []string) (bool, error) {
	if len(candidates) != 1 {
		return false, perrors.NewCoercion("a single numeric value", strings.Join(candidates, "|"))
	}
	c, err := strconv.ParseFloat(candidates[0], 64)
	if err != nil {
		return false, perrors.NewCoercion("float", candidates[0])
	}
	for _, val := range vals {
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return false, perrors.NewCoercion("float", val)
		}
		var ok bool
		switch op {
		case "<":
			ok = v < c
		case "<=":
			ok = v <= c
		case ">":
			ok = v > c
		case ">=":
			ok = v >= c
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
