// Package builtins holds the providers shipped with the MTL engine itself:
// punctuation fields, the string-formatting helpers (strip, format, var),
// filesystem stat fields, file date fields, and filepath attributes.
package builtins

import (
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// punctuationFields maps field names to the reserved characters they emit.
// Because these render after parsing, they cannot embed a separator inside
// the clause they appear in; variables are the escape mechanism for that.
var punctuationFields = map[string]string{
	"comma":        ",",
	"semicolon":    ";",
	"questionmark": "?",
	"pipe":         "|",
	"percent":      "%",
	"ampersand":    "&",
	"openbrace":    "{",
	"closebrace":   "}",
	"openparens":   "(",
	"closeparens":  ")",
	"openbracket":  "[",
	"closebracket": "]",
	"newline":      "\n",
	"lf":           "\n",
	"cr":           "\r",
	"crlf":         "\r\n",
}

// PunctuationProvider resolves the punctuation fields.
type PunctuationProvider struct{}

func (PunctuationProvider) Namespaces() []string {
	names := make([]string, 0, len(punctuationFields))
	for name := range punctuationFields {
		names = append(names, name)
	}
	return names
}

func (PunctuationProvider) Resolve(req *provider.Request) ([]string, bool, error) {
	value, ok := punctuationFields[req.Namespace]
	if !ok {
		return nil, false, nil
	}
	return []string{value}, true, nil
}

// Register adds all engine builtins to a registry.
func Register(reg *provider.Registry) {
	reg.Register(PunctuationProvider{})
	reg.Register(FormatProvider{})
	reg.Register(FileStatProvider{})
	reg.Register(DateProvider{})
	reg.Register(FilepathProvider{})
}
