package evaluator

import (
	"strings"

	perrors "github.com/metaplate/metaplate/pkg/mtl/errors"
)

// expandVariables replaces %name references with their bound lists and %%
// escapes with a literal percent. A multi-valued variable multiplies the
// result the same way a multi-valued field does.
func (e *Evaluator) expandVariables(value string) ([]string, error) {
	if !strings.Contains(value, "%") {
		return []string{value}, nil
	}
	results := []string{""}
	appendAll := func(s string) {
		for i := range results {
			results[i] += s
		}
	}
	i := 0
	for i < len(value) {
		if value[i] != '%' {
			next := strings.IndexByte(value[i:], '%')
			if next < 0 {
				appendAll(value[i:])
				break
			}
			appendAll(value[i : i+next])
			i += next
			continue
		}
		if i+1 < len(value) && value[i+1] == '%' {
			appendAll("%")
			i += 2
			continue
		}
		j := i + 1
		for j < len(value) && isWordByte(value[j]) {
			j++
		}
		if j == i+1 {
			// A lone percent is literal.
			appendAll("%")
			i++
			continue
		}
		name := value[i+1 : j]
		bound, ok := e.ctx.Variables[name]
		if !ok {
			return nil, perrors.NewUnboundVariable(name)
		}
		next := make([]string, 0, len(results)*len(bound))
		for _, b := range bound {
			for _, r := range results {
				next = append(next, r+b)
			}
		}
		results = next
		i = j
	}
	return results, nil
}

// expandVariablesSingle expands variables in value and enforces that the
// expansion is a single string; what names the clause for the error.
func (e *Evaluator) expandVariablesSingle(value, what string) (string, error) {
	expanded, err := e.expandVariables(value)
	if err != nil {
		return "", err
	}
	if len(expanded) != 1 {
		return "", perrors.NewMultiValued(what)
	}
	return expanded[0], nil
}

func isWordByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_':
		return true
	}
	return false
}
