package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/metaplate/metaplate/pkg/mtl"
	"github.com/metaplate/metaplate/pkg/mtl/ast"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

// errRenderFailed makes the exit status nonzero after per-file errors were
// already reported to stderr.
var errRenderFailed = errors.New("one or more files failed")

// Named templates: "name:{template}" or "name={template}". The name must
// sit before any brace so a leading field like {audio:artist} is not
// mistaken for one.
var (
	colonName = regexp.MustCompile(`^([^:{}]+):\s*`)
	equalName = regexp.MustCompile(`^([^={}]+)=\s*`)
)

// fieldName returns the column header / JSON key for a template: an
// explicit "name:"/"name=" prefix if present, else the first field in the
// template, else the template text itself.
func fieldName(template string) string {
	if m := colonName.FindStringSubmatch(template); m != nil {
		return m[1]
	}
	if m := equalName.FindStringSubmatch(template); m != nil {
		return m[1]
	}
	if t, err := mtl.Parse(template); err == nil {
		for _, n := range t.Nodes {
			if st, ok := n.(*ast.Statement); ok {
				name := st.Field
				if st.Subfield != "" {
					name += ":" + st.Subfield
				}
				return name
			}
		}
	}
	return template
}

// stripFieldName removes an explicit name prefix from a template.
func stripFieldName(template string) string {
	if loc := colonName.FindStringIndex(template); loc != nil {
		return template[loc[1]:]
	}
	if loc := equalName.FindStringIndex(template); loc != nil {
		return template[loc[1]:]
	}
	return template
}

func renderOptions(opts options) []mtl.RenderOption {
	out := []mtl.RenderOption{mtl.WithNoneString(noneSentinel)}
	if opts.locale != "" {
		out = append(out, mtl.WithLocale(opts.locale))
	}
	return out
}

func substituteUndefined(values []string, undefined string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ReplaceAll(v, noneSentinel, undefined)
	}
	return out
}

func header(file string, usePath bool) string {
	if usePath {
		return file
	}
	return filepath.Base(file)
}

// printPlain renders each template for each file on one line, grep-style.
// Failed files are reported and skipped; the error propagates so the exit
// status reflects them.
func printPlain(stdout, stderr io.Writer, reg *provider.Registry, files []string, opts options) error {
	parsed, err := parseTemplates(opts.templates)
	if err != nil {
		return err
	}

	separator := " "
	if opts.nullSep {
		separator = "\x00"
	}

	var failed error
	for _, file := range files {
		results, err := mtl.RenderAll(parsed, provider.NewFile(file), reg, renderOptions(opts)...)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", file, err)
			failed = errRenderFailed
			continue
		}
		var rendered []string
		for _, values := range results {
			rendered = append(rendered, substituteUndefined(values, opts.undefined)...)
		}
		prefix := ""
		if !opts.noFilename {
			prefix = header(file, opts.path) + ": "
		}
		fmt.Fprintf(stdout, "%s%s\n", prefix, strings.Join(rendered, separator))
	}
	return failed
}

// printCSV renders one row per file, one column per template, multi-values
// joined with spaces.
func printCSV(stdout, stderr io.Writer, reg *provider.Registry, files []string, opts options) error {
	names := make([]string, 0, len(opts.templates))
	bodies := make([]string, 0, len(opts.templates))
	for _, t := range opts.templates {
		names = append(names, fieldName(t))
		bodies = append(bodies, stripFieldName(t))
	}
	if !opts.noFilename {
		names = append([]string{"filename"}, names...)
		if opts.path {
			bodies = append([]string{"{filepath}"}, bodies...)
		} else {
			bodies = append([]string{"{filepath.name}"}, bodies...)
		}
	}

	parsed, err := parseTemplates(bodies)
	if err != nil {
		return err
	}

	w := csv.NewWriter(stdout)
	if opts.delimiter != "" {
		w.Comma = []rune(opts.delimiter)[0]
	}
	if !opts.noHeader {
		if err := w.Write(names); err != nil {
			return err
		}
	}

	var failed error
	for _, file := range files {
		results, err := mtl.RenderAll(parsed, provider.NewFile(file), reg, renderOptions(opts)...)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", file, err)
			failed = errRenderFailed
			continue
		}
		row := make([]string, 0, len(results))
		for _, values := range results {
			joined := strings.Join(substituteUndefined(values, opts.undefined), " ")
			row = append(row, joined)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return failed
}

// printJSON renders one object per file keyed by template name. Undefined
// values are replaced by the --undefined string and empty values become
// null, so with the default empty --undefined they are null; a single-value
// template renders as a string, a multi-value one as an array.
func printJSON(stdout, stderr io.Writer, reg *provider.Registry, files []string, opts options) error {
	names := make([]string, 0, len(opts.templates))
	bodies := make([]string, 0, len(opts.templates))
	for _, t := range opts.templates {
		names = append(names, fieldName(t))
		bodies = append(bodies, stripFieldName(t))
	}
	parsed, err := parseTemplates(bodies)
	if err != nil {
		return err
	}

	var failed error
	var collected []map[string]any
	for _, file := range files {
		results, err := mtl.RenderAll(parsed, provider.NewFile(file), reg, renderOptions(opts)...)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", file, err)
			failed = errRenderFailed
			continue
		}
		data := make(map[string]any, len(results)+1)
		for i, values := range results {
			data[names[i]] = jsonValue(substituteUndefined(values, opts.undefined))
		}
		if !opts.noFilename {
			data["filename"] = header(file, opts.path)
		}
		if opts.array {
			collected = append(collected, data)
			continue
		}
		if err := writeJSON(stdout, data); err != nil {
			return err
		}
	}
	if opts.array {
		if err := writeJSON(stdout, collected); err != nil {
			return err
		}
	}
	return failed
}

// jsonValue flattens a rendered list: empty strings become null, a single
// element becomes a plain string.
func jsonValue(values []string) any {
	out := make([]any, len(values))
	for i, v := range values {
		if v == "" {
			out[i] = nil
		} else {
			out[i] = v
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(data)
}
