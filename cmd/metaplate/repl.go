package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/metaplate/metaplate/pkg/mtl"
	"github.com/metaplate/metaplate/pkg/mtl/provider"
)

const replPrompt = ">> "

// Field names offered for tab completion; third-party providers are not
// discoverable here, but the builtins are what people type most.
var completionFields = []string{
	// Metadata namespaces
	"audio:", "pdf:", "docx:",
	// Dates
	"created", "modified", "accessed", "today", "now",
	// File information
	"filepath", "size", "uid", "gid", "user", "group",
	// Formatting helpers
	"strip", "format:", "var:",
	// Punctuation
	"comma", "semicolon", "questionmark", "pipe", "percent", "ampersand",
	"openbrace", "closebrace", "openparens", "closeparens",
	"openbracket", "closebracket", "newline", "lf", "cr", "crlf",
}

// runREPL starts an interactive template tester against one file.
func runREPL(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: metaplate repl FILE")
	}
	file := args[0]
	if _, err := os.Stat(file); err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	line.SetCompleter(func(input string) []string {
		brace := strings.LastIndexByte(input, '{')
		if brace < 0 {
			return nil
		}
		prefix := input[brace+1:]
		var out []string
		for _, field := range completionFields {
			if strings.HasPrefix(field, prefix) {
				out = append(out, input[:brace+1]+field)
			}
		}
		return out
	})

	historyPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyPath = filepath.Join(home, ".metaplate_history")
		if f, err := os.Open(historyPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Fprintf(stdout, "metaplate %s — rendering against %s\n", Version, file)
	fmt.Fprintln(stdout, `Type a template (e.g. {filepath.name}), "quit" to exit.`)

	reg := mtl.DefaultRegistry()
	for {
		input, err := line.Prompt(replPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				break
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			break
		}
		line.AppendHistory(input)

		values, err := mtl.RenderString(input, provider.NewFile(file), reg)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			continue
		}
		for _, v := range values {
			fmt.Fprintln(stdout, v)
		}
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
	return nil
}
