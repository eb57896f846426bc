package evaluator

import (
	"errors"
	"strings"
	"testing"

	perrors "github.com/metaplate/metaplate/pkg/mtl/errors"
)

func expectFilter(t *testing.T, template string, values []string, expected []string) {
	t.Helper()
	expectRender(t, template, map[string][]string{"stub:field": values}, expected)
}

func TestCaseFilters(t *testing.T) {
	expectFilter(t, "{stub:field|lower}", []string{"FOO Bar"}, []string{"foo bar"})
	expectFilter(t, "{stub:field|upper}", []string{"foo bar"}, []string{"FOO BAR"})
	expectFilter(t, "{stub:field|capitalize}", []string{"foo BAR"}, []string{"Foo bar"})
	expectFilter(t, "{stub:field|titlecase}", []string{"foo bar"}, []string{"Foo Bar"})
	expectFilter(t, "{stub:field|strip}", []string{"  x  "}, []string{"x"})
}

func TestWrapFilters(t *testing.T) {
	expectFilter(t, "{stub:field|braces}", []string{"x"}, []string{"{x}"})
	expectFilter(t, "{stub:field|parens}", []string{"x"}, []string{"(x)"})
	expectFilter(t, "{stub:field|brackets}", []string{"x"}, []string{"[x]"})
}

func TestSplitFilters(t *testing.T) {
	expectFilter(t, "{stub:field|split(;)}", []string{"a;b", "c"}, []string{"a", "b", "c"})
	expectFilter(t, "{stub:field|autosplit}",
		[]string{"foo, bar;baz  qux"}, []string{"foo", "bar", "baz", "qux"})
}

func TestChopChomp(t *testing.T) {
	expectFilter(t, "{stub:field|chop(2)}", []string{"abcdef"}, []string{"abcd"})
	expectFilter(t, "{stub:field|chomp(2)}", []string{"abcdef"}, []string{"cdef"})
	expectFilter(t, "{stub:field|chop(0)}", []string{"abc"}, []string{"abc"})
	// Chopping more than the length leaves nothing.
	expectFilter(t, "{stub:field|chop(9)}", []string{"abc"}, []string{""})

	_, err := testRender(t, "{stub:field|chop(x)}", map[string][]string{"stub:field": {"abc"}})
	var terr *perrors.TemplateError
	if !errors.As(err, &terr) || terr.Class != perrors.ClassFilter {
		t.Fatalf("expected bad filter arg error, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	expectFilter(t, "{stub:field|sort}", []string{"c", "a", "b"}, []string{"a", "b", "c"})
	expectFilter(t, "{stub:field|rsort}", []string{"a", "c", "b"}, []string{"c", "b", "a"})
	expectFilter(t, "{stub:field|reverse}", []string{"a", "b", "c"}, []string{"c", "b", "a"})
	// uniq preserves first-occurrence order.
	expectFilter(t, "{stub:field|uniq}", []string{"b", "a", "b", "a"}, []string{"b", "a"})
	expectFilter(t, "{stub:field|remove(b)}", []string{"a", "b", "c"}, []string{"a", "c"})
}

func TestJoinAppendPrepend(t *testing.T) {
	expectFilter(t, "{stub:field|join(-)}", []string{"a", "b"}, []string{"a-b"})
	expectFilter(t, "{stub:field|append(z)}", []string{"a"}, []string{"a", "z"})
	expectFilter(t, "{stub:field|prepend(z)}", []string{"a"}, []string{"z", "a"})
	expectFilter(t, "{stub:field|appends(!)}", []string{"a", "b"}, []string{"a!", "b!"})
	expectFilter(t, "{stub:field|prepends(-)}", []string{"a", "b"}, []string{"-a", "-b"})
}

func TestSliceFilter(t *testing.T) {
	values := []string{"a", "b", "c", "d", "e"}
	expectFilter(t, "{stub:field|slice(1:3)}", values, []string{"b", "c"})
	expectFilter(t, "{stub:field|slice(2)}", values, []string{"c", "d", "e"})
	expectFilter(t, "{stub:field|slice(:2)}", values, []string{"a", "b"})
	expectFilter(t, "{stub:field|slice(-2:)}", values, []string{"d", "e"})
	expectFilter(t, "{stub:field|slice(::2)}", values, []string{"a", "c", "e"})
	expectFilter(t, "{stub:field|slice(::-1)}", values, []string{"e", "d", "c", "b", "a"})
	expectFilter(t, "{stub:field|slice(3:1:-1)}", values, []string{"d", "c"})
}

func TestSsliceFilter(t *testing.T) {
	// sslice applies the same range semantics per element, on runes.
	expectFilter(t, "{stub:field|sslice(1:3)}", []string{"abcde"}, []string{"bc"})
	expectFilter(t, "{stub:field|sslice(::-1)}", []string{"abc"}, []string{"cba"})
	expectFilter(t, "{stub:field|sslice(:2)}", []string{"héllo"}, []string{"hé"})
}

func TestFilterRequiresArg(t *testing.T) {
	for _, template := range []string{
		"{stub:field|split}",
		"{stub:field|chop}",
		"{stub:field|slice}",
		"{stub:field|remove}",
	} {
		_, err := testRender(t, template, map[string][]string{"stub:field": {"abc"}})
		var terr *perrors.TemplateError
		if !errors.As(err, &terr) || terr.Class != perrors.ClassFilter {
			t.Errorf("%s: expected bad filter arg error, got %v", template, err)
		}
	}
}

func TestFilterArgIsTemplate(t *testing.T) {
	// Filter arguments are themselves MTL: a comma can be injected via its
	// punctuation field.
	expectFilter(t, "{stub:field|join({comma})}", []string{"a", "b"}, []string{"a,b"})
	// And via a bound variable.
	fields := map[string][]string{"stub:field": {"a", "b"}}
	expectRender(t, "{var:sep,;}{stub:field|join(%sep)}", fields, []string{"a;b"})
}

func TestShellQuote(t *testing.T) {
	expectFilter(t, "{stub:field|shell_quote}", []string{"plain"}, []string{"plain"})
	got, err := testRender(t, "{stub:field|shell_quote}",
		map[string][]string{"stub:field": {"it's here"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || !strings.Contains(got[0], `'`) {
		t.Errorf("expected quoted value, got %q", got)
	}
}
