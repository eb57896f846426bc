// Package docxmeta resolves the docx template namespace from a document's
// core properties (docProps/core.xml inside the ZIP container).
package docxmeta

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/metaplate/metaplate/pkg/mtl/builtins"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// MaxDOCXSize caps how many bytes of docProps/core.xml are decoded (50MB);
// the size of the DOCX file itself is not checked.
const MaxDOCXSize = 50 * 1024 * 1024

// coreProps mirrors docProps/core.xml. DOCX core properties mix the Dublin
// Core and OOXML cp namespaces; element local names are unique, which is
// all encoding/xml needs.
type coreProps struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	Keywords       string `xml:"keywords"`
	Description    string `xml:"description"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Revision       string `xml:"revision"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
	LastPrinted    string `xml:"lastPrinted"`
	Category       string `xml:"category"`
	ContentStatus  string `xml:"contentStatus"`
	Identifier     string `xml:"identifier"`
	Language       string `xml:"language"`
	Version        string `xml:"version"`
}

var dateSubfields = map[string]bool{
	"created":      true,
	"modified":     true,
	"last_printed": true,
}

// Provider resolves the docx namespace.
type Provider struct{}

// Register adds the provider to a registry.
func Register(reg *provider.Registry) {
	reg.Register(Provider{})
}

func (Provider) Namespaces() []string {
	return []string{"docx"}
}

func (Provider) Resolve(req *provider.Request) ([]string, bool, error) {
	props, err := loadProps(req)
	if err != nil {
		return nil, false, err
	}

	var value string
	switch req.Subfield {
	case "author":
		value = props.Creator
	case "category":
		value = props.Category
	case "comments":
		value = props.Description
	case "content_status":
		value = props.ContentStatus
	case "created":
		value = props.Created
	case "identifier":
		value = props.Identifier
	case "keywords":
		value = props.Keywords
	case "language":
		value = props.Language
	case "last_modified_by":
		value = props.LastModifiedBy
	case "last_printed":
		value = props.LastPrinted
	case "modified":
		value = props.Modified
	case "revision":
		value = props.Revision
	case "subject":
		value = props.Subject
	case "title":
		value = props.Title
	case "version":
		value = props.Version
	default:
		return nil, false, nil
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true, nil
	}

	if dateSubfields[req.Subfield] {
		t, err := parseDate(value)
		if err != nil {
			return nil, false, err
		}
		values, err := builtins.FormatDateAttributes(t, req)
		if err != nil {
			return nil, false, err
		}
		return values, true, nil
	}
	return []string{value}, true, nil
}

// loadProps reads docProps/core.xml once per file and caches the decoded
// properties in the render context.
func loadProps(req *provider.Request) (*coreProps, error) {
	stateKey := "docxmeta:" + req.File.Path()
	if cached, ok := req.Ctx.State(stateKey); ok {
		return cached.(*coreProps), nil
	}

	r, err := zip.OpenReader(req.File.Path())
	if err != nil {
		return nil, fmt.Errorf("cannot open DOCX file: %w", err)
	}
	defer r.Close()

	props := &coreProps{}
	found := false
	for _, f := range r.File {
		if f.Name != "docProps/core.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		// Limit reader to prevent zip bombs
		decoder := xml.NewDecoder(io.LimitReader(rc, MaxDOCXSize))
		err = decoder.Decode(props)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("error parsing core properties: %w", err)
		}
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("no core properties found in DOCX")
	}

	req.Ctx.SetState(stateKey, props)
	return props, nil
}

// parseDate reads the W3CDTF timestamps core.xml carries, falling back to
// fuzzy parsing for producers that write something looser.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse DOCX date %q: %w", s, err)
	}
	return t, nil
}
