package evaluator

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/metaplate/metaplate/pkg/mtl/ast"
	perrors "github.com/metaplate/metaplate/pkg/mtl/errors"
)

// Filters that refuse to run without an argument.
var filterRequiresArg = map[string]bool{
	"split":    true,
	"chop":     true,
	"chomp":    true,
	"append":   true,
	"prepend":  true,
	"appends":  true,
	"prepends": true,
	"remove":   true,
	"slice":    true,
	"sslice":   true,
}

// applyFilter runs one filter over the value list. Filters are pure
// list → list functions; the argument, when present, is evaluated as MTL
// and must flatten to a single string.
func (e *Evaluator) applyFilter(f ast.Filter, values []string) ([]string, error) {
	var arg string
	if f.HasArg {
		rendered, err := e.EvalTemplate(f.Arg)
		if err != nil {
			return nil, err
		}
		if len(rendered) != 1 {
			return nil, perrors.NewBadFilterArg(f.Name, "argument must render to a single value")
		}
		arg, err = e.expandVariablesSingle(rendered[0], "filter argument")
		if err != nil {
			return nil, err
		}
	}
	if filterRequiresArg[f.Name] && arg == "" {
		return nil, perrors.NewBadFilterArg(f.Name, "an argument is required")
	}

	switch f.Name {
	case "lower":
		return mapEach(values, strings.ToLower), nil
	case "upper":
		return mapEach(values, strings.ToUpper), nil
	case "strip":
		return mapEach(values, strings.TrimSpace), nil
	case "capitalize":
		return mapEach(values, capitalize), nil
	case "titlecase":
		return mapEach(values, func(v string) string {
			return cases.Title(language.Und).String(v)
		}), nil
	case "braces":
		return mapEach(values, func(v string) string { return "{" + v + "}" }), nil
	case "parens":
		return mapEach(values, func(v string) string { return "(" + v + ")" }), nil
	case "brackets":
		return mapEach(values, func(v string) string { return "[" + v + "]" }), nil
	case "shell_quote":
		return mapEach(values, shellQuote), nil
	case "split":
		var out []string
		for _, v := range values {
			out = append(out, strings.Split(v, arg)...)
		}
		return out, nil
	case "autosplit":
		// Commas and semicolons become spaces, then split on whitespace
		// runs, dropping empty fragments.
		var out []string
		for _, v := range values {
			v = strings.ReplaceAll(v, ",", " ")
			v = strings.ReplaceAll(v, ";", " ")
			out = append(out, strings.Fields(v)...)
		}
		return out, nil
	case "chop":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, perrors.NewBadFilterArg("chop", "expected an integer, got "+strconv.Quote(arg))
		}
		if n == 0 {
			return values, nil
		}
		stop := -n
		return mapEach(values, func(v string) string {
			return stringSlice(v, nil, &stop, nil)
		}), nil
	case "chomp":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, perrors.NewBadFilterArg("chomp", "expected an integer, got "+strconv.Quote(arg))
		}
		if n == 0 {
			return values, nil
		}
		return mapEach(values, func(v string) string {
			return stringSlice(v, &n, nil, nil)
		}), nil
	case "sort":
		out := slices.Clone(values)
		slices.Sort(out)
		return out, nil
	case "rsort":
		out := slices.Clone(values)
		slices.Sort(out)
		slices.Reverse(out)
		return out, nil
	case "reverse":
		out := slices.Clone(values)
		slices.Reverse(out)
		return out, nil
	case "uniq":
		var out []string
		for _, v := range values {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
		return out, nil
	case "join":
		return []string{strings.Join(values, arg)}, nil
	case "append":
		return append(slices.Clone(values), arg), nil
	case "prepend":
		return append([]string{arg}, values...), nil
	case "appends":
		return mapEach(values, func(v string) string { return v + arg }), nil
	case "prepends":
		return mapEach(values, func(v string) string { return arg + v }), nil
	case "remove":
		var out []string
		for _, v := range values {
			if v != arg {
				out = append(out, v)
			}
		}
		return out, nil
	case "slice":
		r, err := parseSliceRange("slice", arg)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, i := range r.indices(len(values)) {
			out = append(out, values[i])
		}
		return out, nil
	case "sslice":
		r, err := parseSliceRange("sslice", arg)
		if err != nil {
			return nil, err
		}
		return mapEach(values, func(v string) string {
			return stringSlice(v, r.start, r.stop, r.step)
		}), nil
	}
	return nil, perrors.NewUnknownFilter(f.Name)
}

func mapEach(values []string, fn func(string) string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fn(v)
	}
	return out
}

// capitalize lower-cases the value then upper-cases only the first rune.
func capitalize(v string) string {
	v = strings.ToLower(v)
	for i, r := range v {
		return strings.ToUpper(string(r)) + v[i+len(string(r)):]
	}
	return v
}

// shellQuote quotes a value for POSIX shells: wrap in single quotes and
// escape embedded single quotes.
func shellQuote(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsFunc(v, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case r == '_', r == '-', r == '.', r == '/', r == ':', r == '=', r == '@', r == '+', r == ',':
			return false
		}
		return true
	}) {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'"'"'`) + "'"
}

// sliceRange is a start:stop:step range where any part may be omitted.
type sliceRange struct {
	start, stop, step *int
}

func parseSliceRange(filter, arg string) (sliceRange, error) {
	parts := strings.Split(arg, ":")
	if len(parts) > 3 {
		return sliceRange{}, perrors.NewBadFilterArg(filter, "invalid range "+strconv.Quote(arg))
	}
	var r sliceRange
	parse := func(s string) (*int, error) {
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, perrors.NewBadFilterArg(filter, "invalid range "+strconv.Quote(arg))
		}
		return &n, nil
	}
	var err error
	if len(parts) == 1 {
		// A single number is the start of an open-ended range.
		n := 0
		if parts[0] != "" {
			if n, err = strconv.Atoi(parts[0]); err != nil {
				return sliceRange{}, perrors.NewBadFilterArg(filter, "invalid range "+strconv.Quote(arg))
			}
		}
		r.start = &n
		return r, nil
	}
	if r.start, err = parse(parts[0]); err != nil {
		return sliceRange{}, err
	}
	if r.stop, err = parse(parts[1]); err != nil {
		return sliceRange{}, err
	}
	if len(parts) == 3 {
		if r.step, err = parse(parts[2]); err != nil {
			return sliceRange{}, err
		}
		if r.step != nil && *r.step == 0 {
			return sliceRange{}, perrors.NewBadFilterArg(filter, "step cannot be zero")
		}
	}
	return r, nil
}

// indices resolves the range against a sequence of length n, with negative
// offsets and negative steps behaving like extended slicing.
func (r sliceRange) indices(n int) []int {
	step := 1
	if r.step != nil {
		step = *r.step
	}

	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	resolve := func(p *int, def int) int {
		if p == nil {
			return def
		}
		v := *p
		if v < 0 {
			v += n
		}
		if step > 0 {
			return clamp(v, 0, n)
		}
		return clamp(v, -1, n-1)
	}

	var start, stop int
	if step > 0 {
		start = resolve(r.start, 0)
		stop = resolve(r.stop, n)
	} else {
		start = resolve(r.start, n-1)
		if r.stop == nil {
			stop = -1
		} else {
			stop = resolve(r.stop, -1)
		}
	}

	var out []int
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out
}

// stringSlice applies the range per rune, so multi-byte characters slice
// cleanly.
func stringSlice(v string, start, stop, step *int) string {
	runes := []rune(v)
	r := sliceRange{start: start, stop: stop, step: step}
	var sb strings.Builder
	for _, i := range r.indices(len(runes)) {
		sb.WriteRune(runes[i])
	}
	return sb.String()
}
