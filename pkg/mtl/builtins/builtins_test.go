package builtins

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/metaplate/metaplate/pkg/mtl/ast"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// fakeEval stands in for the evaluator callback: it renders a default
// sub-template consisting only of literal nodes.
func fakeEval(t *ast.Template) ([]string, error) {
	return []string{t.String()}, nil
}

func literalTemplate(text string) *ast.Template {
	return &ast.Template{Nodes: []ast.Node{&ast.Literal{Text: text}}}
}

func newRequest(namespace, subfield string, attrs []string, file string) *provider.Request {
	handle := provider.NewFile(file)
	return &provider.Request{
		Namespace:  namespace,
		Subfield:   subfield,
		Attributes: attrs,
		File:       handle,
		Ctx:        provider.NewContext(handle),
		Eval:       fakeEval,
	}
}

func expectValues(t *testing.T, p provider.Provider, req *provider.Request, expected ...string) {
	t.Helper()
	values, ok, err := p.Resolve(req)
	if err != nil {
		t.Fatalf("%s:%s: unexpected error: %v", req.Namespace, req.Subfield, err)
	}
	if !ok {
		t.Fatalf("%s:%s: provider declined", req.Namespace, req.Subfield)
	}
	if len(values) != len(expected) {
		t.Fatalf("%s:%s: expected %q, got %q", req.Namespace, req.Subfield, expected, values)
	}
	for i := range values {
		if values[i] != expected[i] {
			t.Fatalf("%s:%s: expected %q, got %q", req.Namespace, req.Subfield, expected, values)
		}
	}
}

func TestPunctuation(t *testing.T) {
	p := PunctuationProvider{}
	expectValues(t, p, newRequest("comma", "", nil, "x"), ",")
	expectValues(t, p, newRequest("pipe", "", nil, "x"), "|")
	expectValues(t, p, newRequest("crlf", "", nil, "x"), "\r\n")

	if _, ok, _ := p.Resolve(newRequest("notpunct", "", nil, "x")); ok {
		t.Error("expected decline for unknown field")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		typ, format, value string
		expected           string
	}{
		{"int", "03d", "7", "007"},
		{"int", "5d", "42", "   42"},
		{"int", "<5d", "42", "42   "},
		{"int", "^6d", "42", "  42  "},
		{"int", "+d", "42", "+42"},
		{"int", "d", "-42", "-42"},
		{"int", "x", "255", "ff"},
		{"int", "#x", "255", "0xff"},
		{"int", "X", "255", "FF"},
		{"int", "b", "5", "101"},
		{"int", ",d", "1234567", "1,234,567"},
		{"int", "", "3.7", "3"}, // int(float(v)) truncates
		{"float", ".2f", "3.14159", "3.14"},
		{"float", "8.2f", "3.14159", "    3.14"},
		{"float", "08.2f", "3.14159", "00003.14"},
		{"float", ".0%", "0.25", "25%"},
		{"float", "e", "1234.5", "1.234500e+03"},
		{"str", ">6", "ab", "    ab"},
		{"str", "<6", "ab", "ab    "},
		{"str", "^6", "ab", "  ab  "},
		{"str", "*^6", "ab", "**ab**"},
		{"str", ".3", "abcdef", "abc"},
		{"str", "", "plain", "plain"},
	}
	for _, tt := range tests {
		got, err := formatValue(tt.typ, tt.format, tt.value)
		if err != nil {
			t.Errorf("formatValue(%q, %q, %q): unexpected error: %v", tt.typ, tt.format, tt.value, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("formatValue(%q, %q, %q): expected %q, got %q",
				tt.typ, tt.format, tt.value, tt.expected, got)
		}
	}
}

func TestFormatCoercion(t *testing.T) {
	if _, err := formatValue("int", "d", "notanumber"); err == nil {
		t.Error("expected coercion error for int")
	}
	if _, err := formatValue("float", ".2f", "x"); err == nil {
		t.Error("expected coercion error for float")
	}
}

func TestVarBinding(t *testing.T) {
	p := FormatProvider{}
	req := newRequest("var", "greeting", nil, "x")
	req.Default = literalTemplate("hello")

	values, ok, err := p.Resolve(req)
	if err != nil || !ok {
		t.Fatalf("unexpected resolve result: ok=%v err=%v", ok, err)
	}
	if len(values) != 0 {
		t.Errorf("var must emit no values, got %q", values)
	}
	if !req.DefaultConsumed() {
		t.Error("var must consume its default")
	}
	if bound := req.Ctx.Variables["greeting"]; len(bound) != 1 || bound[0] != "hello" {
		t.Errorf("expected binding [hello], got %q", bound)
	}
}

func TestVarWithoutValue(t *testing.T) {
	p := FormatProvider{}
	if _, _, err := p.Resolve(newRequest("var", "name", nil, "x")); err == nil {
		t.Error("expected error for var without a value")
	}
	req := newRequest("var", "", nil, "x")
	req.Default = literalTemplate("v")
	if _, _, err := p.Resolve(req); err == nil {
		t.Error("expected error for var without a name")
	}
}

func TestFileStatSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sized.txt")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectValues(t, FileStatProvider{}, newRequest("size", "", nil, path), "10")
}

func TestDateAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dated.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2020, 2, 4, 19, 7, 38, 0, time.Local)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	p := DateProvider{}
	expectValues(t, p, newRequest("modified", "", nil, path), "2020-02-04T19:07:38")
	expectValues(t, p, newRequest("modified", "", []string{"year"}, path), "2020")
	expectValues(t, p, newRequest("modified", "", []string{"yy"}, path), "20")
	expectValues(t, p, newRequest("modified", "", []string{"mm"}, path), "02")
	expectValues(t, p, newRequest("modified", "", []string{"dd"}, path), "04")
	expectValues(t, p, newRequest("modified", "", []string{"month"}, path), "February")
	expectValues(t, p, newRequest("modified", "", []string{"mon"}, path), "Feb")
	expectValues(t, p, newRequest("modified", "", []string{"dow"}, path), "Tuesday")
	expectValues(t, p, newRequest("modified", "", []string{"doy"}, path), "035")
	expectValues(t, p, newRequest("modified", "", []string{"hour"}, path), "19")
	expectValues(t, p, newRequest("modified", "", []string{"date"}, path), "2020-02-04")

	req := newRequest("modified", "", []string{"strftime"}, path)
	req.Default = literalTemplate("%Y-%m-%d-%H%M%S")
	expectValues(t, p, req, "2020-02-04-190738")
}

func TestDateLocale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dated.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2020, 2, 4, 19, 7, 38, 0, time.Local)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	req := newRequest("modified", "", []string{"month"}, path)
	req.Ctx.Locale = "fr_FR"
	expectValues(t, DateProvider{}, req, "février")
}

func TestStickyTodayFreshNow(t *testing.T) {
	clock := time.Date(2020, 2, 4, 12, 0, 0, 0, time.Local)
	tick := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	req := newRequest("today", "", []string{"sec"}, "x")
	req.Ctx.NowFunc = tick

	p := DateProvider{}
	first, _, err := p.Resolve(req)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := p.Resolve(req)
	if err != nil {
		t.Fatal(err)
	}
	if first[0] != second[0] {
		t.Errorf("{today} must be sticky within a render: %q vs %q", first, second)
	}

	nowReq := newRequest("now", "", []string{"sec"}, "x")
	nowReq.Ctx = req.Ctx
	third, _, err := p.Resolve(nowReq)
	if err != nil {
		t.Fatal(err)
	}
	if third[0] == first[0] {
		t.Errorf("{now} must be fresh on every evaluation, got %q twice", third)
	}
}

func TestFilepathAttributes(t *testing.T) {
	p := FilepathProvider{}
	path := "/music/albums/track01.mp3"
	expectValues(t, p, newRequest("filepath", "", nil, path), path)
	expectValues(t, p, newRequest("filepath", "", []string{"name"}, path), "track01.mp3")
	expectValues(t, p, newRequest("filepath", "", []string{"stem"}, path), "track01")
	expectValues(t, p, newRequest("filepath", "", []string{"suffix"}, path), ".mp3")
	expectValues(t, p, newRequest("filepath", "", []string{"parent"}, path), "/music/albums")
	expectValues(t, p, newRequest("filepath", "", []string{"parent", "name"}, path), "albums")

	if _, _, err := p.Resolve(newRequest("filepath", "", []string{"bogus"}, path)); err == nil {
		t.Error("expected error for unknown attribute")
	}
}
