// Package pdfmeta resolves the pdf template namespace from a document's
// Info dictionary.
package pdfmeta

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/ledongthuc/pdf"

	"github.com/metaplate/metaplate/pkg/mtl/builtins"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// MaxPDFSize is the maximum file size we'll attempt to process (50MB)
const MaxPDFSize = 50 * 1024 * 1024

// infoKeys maps template subfields to PDF Info dictionary keys.
var infoKeys = map[string]string{
	"author":   "Author",
	"creator":  "Creator",
	"producer": "Producer",
	"created":  "CreationDate",
	"modified": "ModDate",
	"subject":  "Subject",
	"title":    "Title",
	"keywords": "Keywords",
}

var dateSubfields = map[string]bool{
	"created":  true,
	"modified": true,
}

// Provider resolves the pdf namespace.
type Provider struct{}

// Register adds the provider to a registry.
func Register(reg *provider.Registry) {
	reg.Register(Provider{})
}

func (Provider) Namespaces() []string {
	return []string{"pdf"}
}

func (Provider) Resolve(req *provider.Request) ([]string, bool, error) {
	key, known := infoKeys[req.Subfield]
	if !known {
		return nil, false, nil
	}

	info, err := loadInfo(req)
	if err != nil {
		return nil, false, err
	}

	value := strings.TrimSpace(info[key])
	if value == "" {
		return nil, true, nil
	}

	if dateSubfields[req.Subfield] {
		t, err := ParseDate(value)
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

// loadInfo reads the Info dictionary once per file and caches it in the
// render context, so several pdf fields in one template set parse the
// document a single time.
func loadInfo(req *provider.Request) (map[string]string, error) {
	stateKey := "pdfmeta:" + req.File.Path()
	if cached, ok := req.Ctx.State(stateKey); ok {
		return cached.(map[string]string), nil
	}

	path := req.File.Path()
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat file: %w", err)
	}
	if stat.Size() > MaxPDFSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", stat.Size(), MaxPDFSize)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open PDF file: %w", err)
	}
	defer f.Close()

	info := make(map[string]string)
	dict := r.Trailer().Key("Info")
	if !dict.IsNull() {
		for _, key := range dict.Keys() {
			v := dict.Key(key)
			if v.Kind() == pdf.String {
				info[key] = v.Text()
			}
		}
	}

	req.Ctx.SetState(stateKey, info)
	return info, nil
}

// ParseDate decodes a PDF date string of the form D:YYYYMMDDHHmmSS with an
// optional timezone suffix. Producers that write something else entirely
// fall back to fuzzy parsing.
func ParseDate(s string) (time.Time, error) {
	raw := strings.TrimPrefix(s, "D:")

	digits := 0
	for digits < len(raw) && raw[digits] >= '0' && raw[digits] <= '9' {
		digits++
	}
	// Compact PDF form only: either the D: prefix was present or the whole
	// value is one digit run. Anything else goes to the fuzzy parser.
	if digits >= 4 && (strings.HasPrefix(s, "D:") || digits == len(raw)) {
		// Pad the optional components down to YYYYMMDDHHMMSS. The timezone
		// suffix is dropped: attributes render the wall-clock time as the
		// producer wrote it.
		padded := raw[:digits] + "01010000000000"[digits-4:]
		if t, err := time.Parse("20060102150405", padded[:14]); err == nil {
			return t, nil
		}
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse PDF date %q: %w", s, err)
	}
	return t, nil
}
