// Package parser turns MTL source strings into ast.Template trees.
//
// The parser is a hand-written recursive descent over the clause structure
// of a statement. Each modifier clause has a small set of terminators
// determined by its position; clause bodies are scanned brace-aware and then
// parsed recursively as MTL, so a terminator character inside a nested
// {...} pair never ends the outer clause.
package parser

import (
	"fmt"
	"strings"

	"github.com/metaplate/metaplate/pkg/mtl/ast"
	"github.com/metaplate/metaplate/pkg/mtl/errors"
	"github.com/metaplate/metaplate/pkg/mtl/lexer"
)

// Operators, longest match first so "<=" wins over "<".
var conditionalOps = []string{
	"contains", "matches", "startswith", "endswith",
	"<=", ">=", "==", "!=", "<", ">",
}

// Parse parses a complete MTL template string.
func Parse(input string) (*ast.Template, error) {
	p := &parser{s: lexer.New(input)}
	return p.parseTemplate()
}

// parseSub parses a clause body as MTL. base is the absolute offset of the
// body within the original template source, so error positions stay
// meaningful through the recursion.
func parseSub(body string, base int) (*ast.Template, error) {
	p := &parser{s: lexer.New(body), base: base}
	return p.parseTemplate()
}

type parser struct {
	s    *lexer.Scanner
	base int
}

func (p *parser) errf(off int, format string, args ...any) error {
	return errors.NewSyntaxError(p.base+off, fmt.Sprintf(format, args...))
}

func (p *parser) parseTemplate() (*ast.Template, error) {
	t := &ast.Template{}
	for !p.s.EOF() {
		off := p.s.Pos()
		if text := p.s.ScanText(); text != "" {
			t.Nodes = append(t.Nodes, &ast.Literal{Text: text, Offset: p.base + off})
		}
		if p.s.EOF() {
			break
		}
		open := p.s.Pos()
		p.s.Next() // consume '{'
		st, err := p.parseStatement(open)
		if err != nil {
			return nil, err
		}
		t.Nodes = append(t.Nodes, st)
	}
	return t, nil
}

func (p *parser) parseStatement(open int) (*ast.Statement, error) {
	st := &ast.Statement{Offset: p.base + open}

	// Optional delim+ prefix: everything before a '+' is the delimiter.
	mark := p.s.Pos()
	delim := p.s.ScanName("+{}")
	if p.s.Accept('+') {
		st.InPlace = true
		st.Delim = delim
	} else {
		p.s.Rewind(mark)
	}

	fieldOff := p.s.Pos()
	st.Field = p.s.ScanName(lexer.FieldStop)
	if st.Field == "" {
		return nil, p.errf(fieldOff, "missing field name")
	}

	if p.s.Accept(':') {
		st.Subfield = p.s.ScanName(lexer.SubfieldStop)
	}

	for p.s.Accept('.') {
		attrOff := p.s.Pos()
		attr := p.s.ScanName(lexer.AttrStop)
		if attr == "" {
			return nil, p.errf(attrOff, "empty attribute after '.'")
		}
		st.Attributes = append(st.Attributes, attr)
	}

	for p.s.Accept('|') {
		f, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		st.Filters = append(st.Filters, f)
	}

	if p.s.Accept('[') {
		pairs, err := p.parseFindReplace()
		if err != nil {
			return nil, err
		}
		st.FindReplace = pairs
	}

	// A single space marks the conditional clause; its clause scan consumes
	// the terminator that starts the next clause.
	var term byte
	var haveTerm bool
	if p.s.Accept(' ') {
		cond, t, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		st.Cond = cond
		term, haveTerm = t, true
	}

	for {
		if !haveTerm {
			term = p.s.Next()
		}
		haveTerm = false
		switch term {
		case '&':
			if st.Combine != nil {
				return nil, p.errf(p.s.Pos(), "multiple combine clauses in one statement")
			}
			bodyOff := p.s.Pos()
			body, t, ok := p.s.ScanClause("&?,}")
			if !ok {
				return nil, p.errf(open, "unterminated template statement")
			}
			if t == '&' {
				return nil, p.errf(p.s.Pos(), "multiple combine clauses in one statement")
			}
			sub, err := parseSub(body, p.base+bodyOff)
			if err != nil {
				return nil, err
			}
			st.Combine = sub
			term, haveTerm = t, true
		case '?':
			bodyOff := p.s.Pos()
			body, t, ok := p.s.ScanClause(",}")
			if !ok {
				return nil, p.errf(open, "unterminated template statement")
			}
			sub, err := parseSub(body, p.base+bodyOff)
			if err != nil {
				return nil, err
			}
			st.HasBool = true
			st.True = sub
			term, haveTerm = t, true
		case ',':
			bodyOff := p.s.Pos()
			body, t, ok := p.s.ScanClause("}")
			if !ok {
				return nil, p.errf(open, "unterminated template statement")
			}
			sub, err := parseSub(body, p.base+bodyOff)
			if err != nil {
				return nil, err
			}
			st.HasDefault = true
			st.Default = sub
			term, haveTerm = t, true
		case '}':
			return st, nil
		case 0:
			return nil, p.errf(open, "unterminated template statement")
		default:
			return nil, p.errf(p.s.Pos()-1, "unexpected character %q in template statement", term)
		}
	}
}

func (p *parser) parseFilter() (ast.Filter, error) {
	off := p.s.Pos()
	name := p.s.ScanName(lexer.AttrStop)
	if !isValidFilterName(name) {
		return ast.Filter{}, p.errf(off, "malformed filter name %q", name)
	}
	f := ast.Filter{Name: name, Offset: p.base + off}
	if p.s.Accept('(') {
		argOff := p.s.Pos()
		arg, ok := p.s.ScanParenArg()
		if !ok {
			return ast.Filter{}, p.errf(off, "unterminated filter argument for %s", name)
		}
		sub, err := parseSub(arg, p.base+argOff)
		if err != nil {
			return ast.Filter{}, err
		}
		f.Arg = sub
		f.HasArg = true
	}
	return f, nil
}

// isValidFilterName reports whether name is a plausible filter identifier.
// Whether the filter exists is an evaluation-time question.
func isValidFilterName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// parseFindReplace parses the bracket block after its opening '['. Both
// sides of each pair are literal text; '|' is reserved as the pair
// separator, so a literal pipe must be bound to a variable first.
func (p *parser) parseFindReplace() ([]ast.FindReplace, error) {
	var pairs []ast.FindReplace
	for {
		find, term, err := p.scanFindReplacePart(",|]")
		if err != nil {
			return nil, err
		}
		if term != ',' {
			return nil, p.errf(p.s.Pos(), "find/replace pair requires ','")
		}
		replace, term, err := p.scanFindReplacePart("|]")
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, ast.FindReplace{Find: find, Replace: replace})
		if term == ']' {
			return pairs, nil
		}
	}
}

func (p *parser) scanFindReplacePart(terms string) (string, byte, error) {
	start := p.s.Pos()
	part := p.s.ScanName(terms + "{}")
	b := p.s.Next()
	switch {
	case b == 0:
		return "", 0, p.errf(start, "unterminated find/replace block")
	case b == '{' || b == '}':
		return "", 0, p.errf(p.s.Pos()-1, "braces are not allowed inside find/replace")
	}
	return part, b, nil
}

func (p *parser) parseConditional() (*ast.Conditional, byte, error) {
	cond := &ast.Conditional{}
	if strings.HasPrefix(p.s.Rest(), "not ") {
		cond.Negated = true
		p.s.Advance(len("not "))
	}

	opOff := p.s.Pos()
	rest := p.s.Rest()
	for _, op := range conditionalOps {
		if strings.HasPrefix(rest, op+" ") {
			cond.Operator = op
			p.s.Advance(len(op) + 1)
			break
		}
	}
	if cond.Operator == "" {
		return nil, 0, p.errf(opOff, "expected conditional operator")
	}

	bodyOff := p.s.Pos()
	body, term, ok := p.s.ScanClause("&?,}")
	if !ok {
		return nil, 0, p.errf(opOff, "unterminated template statement")
	}
	if body == "" {
		return nil, 0, p.errf(bodyOff, "conditional clause requires a value")
	}
	sub, err := parseSub(body, p.base+bodyOff)
	if err != nil {
		return nil, 0, err
	}
	cond.Value = sub
	return cond, term, nil
}
