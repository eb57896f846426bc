package provider

import (
	"strings"
	"time"
)

// Context is the per-render evaluation state. One context is created for
// each (file, template-set) invocation and discarded afterwards; contexts
// are never shared across files, so none of this needs locking.
type Context struct {
	File FileHandle

	// Variables holds name → rendered-list bindings created by {var:...}.
	// Bindings are visible to lexically later reads in the same render.
	Variables map[string][]string

	// NoneStr substitutes for an empty field with no default clause.
	NoneStr string

	// Locale selects month and weekday names for date attributes.
	Locale string

	// NowFunc supplies the current time; tests freeze it here.
	NowFunc func() time.Time

	stickyNow    time.Time
	stickyNowSet bool

	values map[string][]string
	state  map[string]any
}

// NewContext returns a fresh context for one render of file.
func NewContext(file FileHandle) *Context {
	return &Context{
		File:      file,
		Variables: make(map[string][]string),
		NoneStr:   "_",
		Locale:    "en_US",
		NowFunc:   time.Now,
	}
}

// Now returns a fresh timestamp on every call ({now} semantics).
func (c *Context) Now() time.Time {
	return c.NowFunc()
}

// StickyNow captures the timestamp on first use and returns the same value
// for the rest of the render ({today} semantics).
func (c *Context) StickyNow() time.Time {
	if !c.stickyNowSet {
		c.stickyNow = c.NowFunc()
		c.stickyNowSet = true
	}
	return c.stickyNow
}

// CachedValues returns a previously cached resolution for this render,
// keyed by (namespace, subfield, attribute-path).
func (c *Context) CachedValues(namespace, subfield string, attributes []string) ([]string, bool) {
	if c.values == nil {
		return nil, false
	}
	v, ok := c.values[valueKey(namespace, subfield, attributes)]
	return v, ok
}

// CacheValues stores a resolution for the rest of this render.
func (c *Context) CacheValues(namespace, subfield string, attributes []string, values []string) {
	if c.values == nil {
		c.values = make(map[string][]string)
	}
	c.values[valueKey(namespace, subfield, attributes)] = values
}

func valueKey(namespace, subfield string, attributes []string) string {
	return namespace + "\x00" + subfield + "\x00" + strings.Join(attributes, ".")
}

// State returns provider-owned per-file state stored under key. Providers
// with heavy per-file handles (parsed documents, open readers) keep them
// here so their lifetime ends with the context.
func (c *Context) State(key string) (any, bool) {
	v, ok := c.state[key]
	return v, ok
}

// SetState stores provider-owned per-file state under key.
func (c *Context) SetState(key string, value any) {
	if c.state == nil {
		c.state = make(map[string]any)
	}
	c.state[key] = value
}
