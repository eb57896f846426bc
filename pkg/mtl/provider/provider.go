// Package provider defines the dispatch contract between the MTL engine and
// metadata providers, the namespace registry, and the per-render evaluation
// context.
//
// A provider resolves fields for one or more namespaces without the engine
// knowing its schema. Providers decline fields they do not handle, so
// several providers can share a namespace with override semantics.
package provider

import (
	"github.com/metaplate/metaplate/pkg/mtl/ast"
	perrors "github.com/metaplate/metaplate/pkg/mtl/errors"
)

// FileHandle identifies the input artifact a render is evaluated against.
// It is opaque to the engine; providers that need file content resolve it
// through Path.
type FileHandle interface {
	Path() string
}

// NewFile returns a FileHandle for a local filesystem path.
func NewFile(path string) FileHandle {
	return localFile{path: path}
}

type localFile struct {
	path string
}

func (f localFile) Path() string { return f.path }

// EvalFunc evaluates a sub-template in the current render context. Providers
// use it to consume their default sub-template as a payload (format strings,
// values to bind, templates to transform).
type EvalFunc func(*ast.Template) ([]string, error)

// Request carries everything a provider needs to resolve one field.
type Request struct {
	Namespace  string
	Subfield   string
	Attributes []string

	// Default is the statement's default sub-template, nil if absent. A
	// provider that consumes it as a payload must call ConsumeDefault so
	// the evaluator suppresses default substitution.
	Default *ast.Template

	File FileHandle
	Ctx  *Context
	Eval EvalFunc

	defaultConsumed bool
}

// ConsumeDefault marks the default sub-template as consumed by the provider.
func (r *Request) ConsumeDefault() { r.defaultConsumed = true }

// DefaultConsumed reports whether a provider consumed the default.
func (r *Request) DefaultConsumed() bool { return r.defaultConsumed }

// EvalDefault evaluates the default sub-template and marks it consumed.
// Returns an empty-string element when the default is absent or empty, which
// matches how an empty clause renders.
func (r *Request) EvalDefault() ([]string, error) {
	r.ConsumeDefault()
	if r.Default.Empty() {
		return []string{""}, nil
	}
	return r.Eval(r.Default)
}

// Provider is anything that can resolve fields for its namespaces.
type Provider interface {
	// Namespaces lists the namespace strings this provider registers for.
	Namespaces() []string

	// Resolve returns the ordered values for a field, or ok=false to
	// decline so the registry can try the next provider for the namespace.
	// An empty (non-nil or nil) value list with ok=true means the field
	// resolved to nothing, which triggers default substitution.
	Resolve(req *Request) (values []string, ok bool, err error)
}

// Registry maps namespaces to ordered provider lists. Registration happens
// at startup; the registry is read-only during rendering and safe for
// concurrent reads across files.
type Registry struct {
	providers map[string][]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string][]Provider)}
}

// Register adds a provider for every namespace it claims. Later
// registrations for a namespace are consulted after earlier ones.
func (r *Registry) Register(p Provider) {
	for _, ns := range p.Namespaces() {
		r.providers[ns] = append(r.providers[ns], p)
	}
}

// Resolve dispatches a field to the providers registered for its namespace,
// in registration order, until one claims it. All-decline or no providers
// registered is an UnknownField error. Provider failures that are not
// already TemplateErrors are wrapped as ProviderError.
func (r *Registry) Resolve(req *Request) ([]string, error) {
	for _, p := range r.providers[req.Namespace] {
		values, ok, err := p.Resolve(req)
		if err != nil {
			if terr, isTemplateError := err.(*perrors.TemplateError); isTemplateError {
				return nil, terr
			}
			return nil, perrors.NewProviderError(req.Namespace, err)
		}
		if ok {
			return values, nil
		}
	}
	return nil, perrors.NewUnknownField(req.Namespace, req.Subfield)
}
