// Package ast defines the parsed representation of an MTL template.
package ast

import (
	"bytes"
	"strings"
)

// Node represents one element of a parsed template: a literal run of text or
// a {...} statement.
type Node interface {
	node()
	String() string
}

// Template is an ordered sequence of nodes. Sub-templates in modifier
// positions (filter arguments, conditional values, combine/true/default
// clauses) are themselves Templates, parsed recursively.
type Template struct {
	Nodes []Node
}

// Empty reports whether the template has no nodes at all, which is distinct
// from a template that renders to an empty string.
func (t *Template) Empty() bool {
	return t == nil || len(t.Nodes) == 0
}

func (t *Template) String() string {
	if t == nil {
		return ""
	}
	var out bytes.Buffer
	for _, n := range t.Nodes {
		out.WriteString(n.String())
	}
	return out.String()
}

// Literal is a run of raw text between statements.
type Literal struct {
	Text   string
	Offset int // byte offset into the template source
}

func (l *Literal) node()          {}
func (l *Literal) String() string { return l.Text }

// Filter is one segment of a statement's filter pipeline. The argument, when
// present, is parsed as MTL and evaluated at render time.
type Filter struct {
	Name   string
	Arg    *Template
	HasArg bool
	Offset int
}

func (f *Filter) String() string {
	var out bytes.Buffer
	out.WriteString("|")
	out.WriteString(f.Name)
	if f.HasArg {
		out.WriteString("(")
		out.WriteString(f.Arg.String())
		out.WriteString(")")
	}
	return out.String()
}

// FindReplace is one find,replace pair from a statement's bracket block.
// Both sides are literal text; %variable references are expanded at render
// time, not re-parsed as MTL.
type FindReplace struct {
	Find    string
	Replace string
}

// Conditional is a statement's comparison clause. The value is a template;
// for the string operators its rendered values are split on '|' into OR
// candidates at render time.
type Conditional struct {
	Negated  bool
	Operator string
	Value    *Template
}

// Statement is a single {...} expression with its modifier chain, in the
// fixed syntactic order the language defines.
type Statement struct {
	Offset int // byte offset of the opening brace

	InPlace bool   // '+' flag: join the value list in place
	Delim   string // join delimiter; only meaningful when InPlace is set

	Field      string   // namespace, or "%name" for a variable reference
	Subfield   string   // after ':', empty if absent
	Attributes []string // dot-chained accessors

	Filters     []Filter
	FindReplace []FindReplace
	Cond        *Conditional

	Combine *Template // '&' clause, nil if absent

	HasBool bool      // '?' clause present
	True    *Template // value when truthy; empty template renders ""

	HasDefault bool      // ',' clause present
	Default    *Template // value when the list is empty; empty template renders ""
}

func (s *Statement) node() {}

func (s *Statement) String() string {
	var out bytes.Buffer
	out.WriteString("{")
	if s.InPlace {
		out.WriteString(s.Delim)
		out.WriteString("+")
	}
	out.WriteString(s.Field)
	if s.Subfield != "" {
		out.WriteString(":")
		out.WriteString(s.Subfield)
	}
	for _, attr := range s.Attributes {
		out.WriteString(".")
		out.WriteString(attr)
	}
	for _, f := range s.Filters {
		out.WriteString(f.String())
	}
	if len(s.FindReplace) > 0 {
		out.WriteString("[")
		pairs := make([]string, 0, len(s.FindReplace))
		for _, fr := range s.FindReplace {
			pairs = append(pairs, fr.Find+","+fr.Replace)
		}
		out.WriteString(strings.Join(pairs, "|"))
		out.WriteString("]")
	}
	if s.Cond != nil {
		out.WriteString(" ")
		if s.Cond.Negated {
			out.WriteString("not ")
		}
		out.WriteString(s.Cond.Operator)
		out.WriteString(" ")
		out.WriteString(s.Cond.Value.String())
	}
	if s.Combine != nil {
		out.WriteString("&")
		out.WriteString(s.Combine.String())
	}
	if s.HasBool {
		out.WriteString("?")
		out.WriteString(s.True.String())
	}
	if s.HasDefault {
		out.WriteString(",")
		out.WriteString(s.Default.String())
	}
	out.WriteString("}")
	return out.String()
}
