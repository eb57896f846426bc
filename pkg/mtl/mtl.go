// Package mtl is the public surface of the Metadata Template Language
// engine: parse a template once, render it against any number of files.
//
//	t, err := mtl.Parse("{audio:artist} - {audio:title}")
//	values, err := mtl.Render(t, provider.NewFile("song.mp3"), mtl.DefaultRegistry())
//
// Rendering is single-threaded per file; the host may render distinct files
// in parallel because every render gets its own context and the registry is
// read-only after startup.
package mtl

import (
	"time"

	"github.com/metaplate/metaplate/pkg/metadata/audiometa"
	"github.com/metaplate/metaplate/pkg/metadata/docxmeta"
	"github.com/metaplate/metaplate/pkg/metadata/pdfmeta"
	"github.com/metaplate/metaplate/pkg/mtl/ast"
	"github.com/metaplate/metaplate/pkg/mtl/builtins"
	"github.com/metaplate/metaplate/pkg/mtl/evaluator"
	"github.com/metaplate/metaplate/pkg/mtl/parser"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// Parse parses an MTL template string into its AST. The parser is
// all-or-nothing: any malformed clause fails the whole template with a
// SyntaxError before any evaluation happens.
func Parse(template string) (*ast.Template, error) {
	return parser.Parse(template)
}

// RenderOption adjusts one render's context.
type RenderOption func(*provider.Context)

// WithNoneString sets the substitute for an empty field with no default
// clause (the default is "_").
func WithNoneString(s string) RenderOption {
	return func(c *provider.Context) { c.NoneStr = s }
}

// WithLocale sets the locale used for month and weekday names.
func WithLocale(locale string) RenderOption {
	return func(c *provider.Context) { c.Locale = locale }
}

// WithNowFunc overrides the clock, which tests use to freeze {today} and
// {now}.
func WithNowFunc(fn func() time.Time) RenderOption {
	return func(c *provider.Context) { c.NowFunc = fn }
}

// Render evaluates a parsed template against one file and returns the
// ordered list of rendered strings.
func Render(t *ast.Template, file provider.FileHandle, reg *provider.Registry, opts ...RenderOption) ([]string, error) {
	ctx := provider.NewContext(file)
	for _, opt := range opts {
		opt(ctx)
	}
	return evaluator.New(reg, ctx).Render(t)
}

// RenderAll evaluates a set of templates against one file sharing a single
// context, so per-file provider state (decoded PDF, DOCX, and audio
// metadata) is reused across the set; stat-based fields are read afresh on
// each evaluation. Each template is still its own top-level render:
// variable bindings reset between templates, while the sticky {today}
// timestamp holds for the whole set.
func RenderAll(templates []*ast.Template, file provider.FileHandle, reg *provider.Registry, opts ...RenderOption) ([][]string, error) {
	ctx := provider.NewContext(file)
	for _, opt := range opts {
		opt(ctx)
	}
	results := make([][]string, 0, len(templates))
	for _, t := range templates {
		ctx.Variables = make(map[string][]string)
		values, err := evaluator.New(reg, ctx).Render(t)
		if err != nil {
			return nil, err
		}
		results = append(results, values)
	}
	return results, nil
}

// RenderString parses and renders in one call.
func RenderString(template string, file provider.FileHandle, reg *provider.Registry, opts ...RenderOption) ([]string, error) {
	t, err := Parse(template)
	if err != nil {
		return nil, err
	}
	return Render(t, file, reg, opts...)
}

// DefaultRegistry returns a registry with every provider shipped in this
// repository: the engine builtins plus the audio, pdf, and docx metadata
// readers. Hosts add third-party providers on top.
func DefaultRegistry() *provider.Registry {
	reg := provider.NewRegistry()
	builtins.Register(reg)
	audiometa.Register(reg)
	pdfmeta.Register(reg)
	docxmeta.Register(reg)
	return reg
}
