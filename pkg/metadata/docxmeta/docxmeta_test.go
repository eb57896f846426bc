package docxmeta

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/metaplate/metaplate/pkg/mtl/ast"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

const coreXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
    xmlns:dc="http://purl.org/dc/elements/1.1/"
    xmlns:dcterms="http://purl.org/dc/terms/"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <dc:title>Quarterly Report</dc:title>
  <dc:subject>Finance</dc:subject>
  <dc:creator>Jordan Smith</dc:creator>
  <cp:keywords>money; spreadsheets</cp:keywords>
  <dc:description>Draft for review</dc:description>
  <cp:lastModifiedBy>Robin Lee</cp:lastModifiedBy>
  <cp:revision>4</cp:revision>
  <dcterms:created xsi:type="dcterms:W3CDTF">2020-02-04T19:07:38Z</dcterms:created>
  <dcterms:modified xsi:type="dcterms:W3CDTF">2021-06-15T08:30:00Z</dcterms:modified>
  <cp:category>Reports</cp:category>
  <cp:contentStatus>Draft</cp:contentStatus>
  <dc:language>en-US</dc:language>
</cp:coreProperties>`

func writeTestDOCX(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	entry, err := w.Create("docProps/core.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.Write([]byte(coreXML)); err != nil {
		t.Fatal(err)
	}
	doc, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Write([]byte(`<?xml version="1.0"?><document/>`)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func newRequest(t *testing.T, path, subfield string, attrs []string) *provider.Request {
	t.Helper()
	handle := provider.NewFile(path)
	return &provider.Request{
		Namespace:  "docx",
		Subfield:   subfield,
		Attributes: attrs,
		File:       handle,
		Ctx:        provider.NewContext(handle),
		Eval: func(tpl *ast.Template) ([]string, error) {
			return []string{tpl.String()}, nil
		},
	}
}

func expectValue(t *testing.T, path, subfield string, attrs []string, expected string) {
	t.Helper()
	values, ok, err := (Provider{}).Resolve(newRequest(t, path, subfield, attrs))
	if err != nil {
		t.Fatalf("docx:%s: unexpected error: %v", subfield, err)
	}
	if !ok {
		t.Fatalf("docx:%s: provider declined", subfield)
	}
	if len(values) != 1 || values[0] != expected {
		t.Fatalf("docx:%s: expected %q, got %q", subfield, expected, values)
	}
}

func TestResolveCoreProperties(t *testing.T) {
	path := writeTestDOCX(t)
	expectValue(t, path, "title", nil, "Quarterly Report")
	expectValue(t, path, "subject", nil, "Finance")
	expectValue(t, path, "author", nil, "Jordan Smith")
	expectValue(t, path, "keywords", nil, "money; spreadsheets")
	expectValue(t, path, "comments", nil, "Draft for review")
	expectValue(t, path, "last_modified_by", nil, "Robin Lee")
	expectValue(t, path, "revision", nil, "4")
	expectValue(t, path, "category", nil, "Reports")
	expectValue(t, path, "content_status", nil, "Draft")
	expectValue(t, path, "language", nil, "en-US")
}

func TestResolveDates(t *testing.T) {
	path := writeTestDOCX(t)
	expectValue(t, path, "created", nil, "2020-02-04T19:07:38")
	expectValue(t, path, "created", []string{"year"}, "2020")
	expectValue(t, path, "modified", []string{"mm"}, "06")
}

func TestMissingSubfieldResolvesEmpty(t *testing.T) {
	path := writeTestDOCX(t)
	values, ok, err := (Provider{}).Resolve(newRequest(t, path, "identifier", nil))
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if len(values) != 0 {
		t.Errorf("expected empty resolution, got %q", values)
	}
}

func TestUnknownSubfieldDeclines(t *testing.T) {
	path := writeTestDOCX(t)
	_, ok, err := (Provider{}).Resolve(newRequest(t, path, "pagecount", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected decline for unknown subfield")
	}
}

func TestPropsCachedPerContext(t *testing.T) {
	path := writeTestDOCX(t)
	req := newRequest(t, path, "title", nil)
	if _, _, err := (Provider{}).Resolve(req); err != nil {
		t.Fatal(err)
	}

	// Replace the file with garbage: the cached properties must still
	// serve the same context.
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	req2 := newRequest(t, path, "subject", nil)
	req2.Ctx = req.Ctx
	values, ok, err := (Provider{}).Resolve(req2)
	if err != nil || !ok {
		t.Fatalf("expected cached resolve, got ok=%v err=%v", ok, err)
	}
	if len(values) != 1 || values[0] != "Finance" {
		t.Errorf("expected cached Finance, got %q", values)
	}
}

func TestNotADocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.docx")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := (Provider{}).Resolve(newRequest(t, path, "title", nil)); err == nil {
		t.Error("expected error for a non-zip file")
	}
}
