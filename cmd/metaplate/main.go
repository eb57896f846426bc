// Command metaplate prints file metadata rendered through MTL templates.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/metaplate/metaplate/pkg/mtl"
	"github.com/metaplate/metaplate/pkg/mtl/ast"
)

// Version information, set at build time via -ldflags
var Version = "dev"

// noneSentinel stands in for undefined values during rendering so the
// output layer can substitute the user's --undefined string (or null for
// JSON) after the fact.
const noneSentinel = "\x00undefined\x00"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ", ") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// options is the resolved command-line surface shared by the output modes.
type options struct {
	templates  []string
	noFilename bool
	noHeader   bool
	nullSep    bool
	undefined  string
	delimiter  string
	array      bool
	path       bool
	locale     string
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "repl" {
		return runREPL(args[1:], stdout, stderr)
	}

	flags := flag.NewFlagSet("metaplate", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var templates multiFlag
	flags.Var(&templates, "p", "Template to render (may be repeated)")
	flags.Var(&templates, "print", "Alias for -p")

	var (
		jsonMode    = flags.Bool("json", false, "Print metadata as JSON")
		csvMode     = flags.Bool("csv", false, "Print metadata as CSV")
		noFilename  = flags.Bool("no-filename", false, "Do not print filename headers")
		noHeader    = flags.Bool("no-header", false, "Do not print headers with CSV output")
		nullSep     = flags.Bool("0", false, "Use null character as field separator")
		undefined   = flags.String("undefined", "", "String to use for undefined values")
		delimiter   = flags.String("delimiter", "", "Field delimiter for CSV output (',' by default; '\\t' or 'tab' for tab)")
		array       = flags.Bool("array", false, "With --json, output a single JSON array")
		pathMode    = flags.Bool("path", false, "Print full file path instead of filename")
		configPath  = flags.String("config", "", "Path to config file")
		showVersion = flags.Bool("version", false, "Show version")
	)

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		printUsage(stderr)
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "metaplate %s\n", Version)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	files := flags.Args()
	if len(files) == 0 {
		printUsage(stderr)
		return errors.New("no files given")
	}
	if len(templates) == 0 {
		printUsage(stderr)
		return errors.New("no templates given: use -p TEMPLATE")
	}
	if *jsonMode && *csvMode {
		return errors.New("--json and --csv are mutually exclusive")
	}
	if *nullSep && (*jsonMode || *csvMode) {
		return errors.New("-0 applies only to plain output")
	}

	opts := options{
		templates:  cfg.resolveTemplates(templates),
		noFilename: *noFilename,
		noHeader:   *noHeader,
		nullSep:    *nullSep,
		undefined:  firstNonEmpty(*undefined, cfg.Undefined),
		delimiter:  normalizeDelimiter(*delimiter),
		array:      *array,
		path:       *pathMode,
		locale:     cfg.Locale,
	}

	reg := mtl.DefaultRegistry()
	switch {
	case *csvMode:
		return printCSV(stdout, stderr, reg, files, opts)
	case *jsonMode:
		return printJSON(stdout, stderr, reg, files, opts)
	default:
		return printPlain(stdout, stderr, reg, files, opts)
	}
}

// parseTemplates parses every template up front so syntax errors surface
// before any file is touched.
func parseTemplates(templates []string) ([]*ast.Template, error) {
	parsed := make([]*ast.Template, 0, len(templates))
	for _, t := range templates {
		p, err := mtl.Parse(t)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", t, err)
		}
		parsed = append(parsed, p)
	}
	return parsed, nil
}

func normalizeDelimiter(d string) string {
	// Passing a real tab on the command line is tricky, so accept the
	// spellings users actually type.
	if d == `\t` || strings.EqualFold(d, "tab") {
		return "\t"
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printUsage(w io.Writer) {
	io.WriteString(w, `usage: metaplate -p TEMPLATE [options] FILE...
       metaplate repl FILE

Render MTL metadata templates for each file.

Options:
  -p, --print TEMPLATE   template to render; may be repeated. A template
                         may be prefixed "name:{...}" or "name={...}" to
                         set its CSV column / JSON key, or name a template
                         from the config file.
  --csv                  CSV output (one row per file)
  --json                 JSON output (one object per file)
  --array                with --json, emit a single array
  --no-filename          omit the filename header/column/key
  --no-header            omit the CSV header row
  --path                 print the full path instead of the basename
  -0                     NUL-separate plain output fields
  --undefined STRING     string for undefined values (default empty; JSON
                         uses null)
  --delimiter D          CSV delimiter (',' by default; '\t' or 'tab')
  --config PATH          config file (default metaplate.yaml if present)
  --version              print version

Template examples:
  '{audio:artist} - {audio:title}'
  '{created.strftime,%Y-%m-%d} {filepath.name}'
  '{,+audio:genre|autosplit|uniq}'
`)
}
