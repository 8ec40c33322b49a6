package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"knowledgebot/pkg/fragments"
	"knowledgebot/pkg/tokens"
)

const previewRunes = 50

// runSplit prints the environment variables needed to ship a knowledge file.
func (a *app) runSplit(args []string) int {
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var (
		file   = fs.String("file", "", "File to split (required)")
		size   = fs.Int("size", fragments.DefaultChunkSize, "Maximum characters per chunk")
		prefix = fs.String("prefix", a.cfg.Assistant.FragmentPrefix, "Variable name prefix for numbered chunks")
		single = fs.String("var", "", "Emit the whole file as this one variable instead of numbered chunks")
		format = fs.String("format", "text", "Output format: text, env, or json")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(a.stderr, "Error: -file is required")
		return 2
	}
	if *size <= 0 {
		fmt.Fprintln(a.stderr, "Error: -size must be positive")
		return 2
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(a.stderr, "Failed to read %s: %v\n", *file, err)
		return 1
	}
	content := string(data)
	if content == "" {
		fmt.Fprintf(a.stderr, "Error: %s is empty\n", *file)
		return 1
	}

	var chunks []fragments.Chunk
	if *single != "" {
		chunks = []fragments.Chunk{{Name: *single, Value: content}}
		if n := utf8.RuneCountInString(content); n > *size {
			fmt.Fprintf(a.stderr, "Warning: %s is %d characters, over the %d limit\n", *single, n, *size)
		}
	} else {
		chunks = fragments.Split(content, *size, fragments.Numbered(*prefix))
		if err := verifySplit(chunks, *prefix, content); err != nil {
			fmt.Fprintf(a.stderr, "Split verification failed: %v\n", err)
			return 1
		}
	}

	switch *format {
	case "text":
		a.printSplitReport(*file, content, chunks)
	case "env":
		for _, c := range chunks {
			fmt.Fprintf(a.stdout, "export %s=%s\n", c.Name, shellQuote(c.Value))
		}
	case "json":
		out := make(map[string]string, len(chunks))
		for _, c := range chunks {
			out[c.Name] = c.Value
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(a.stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(a.stderr, "Error: unknown format %q\n", *format)
		return 2
	}
	return 0
}

// verifySplit reassembles chunks the way the service will and compares.
func verifySplit(chunks []fragments.Chunk, prefix, want string) error {
	r := fragments.Resolver{Name: fragments.Numbered(prefix), Policy: fragments.FailOnGap}
	res, err := r.Resolve(fragments.ChunkLookup(chunks))
	if err != nil {
		return err //nolint:wrapcheck // Resolver errors name the slot
	}
	if res.Value != want {
		return fmt.Errorf("reassembled content differs from input")
	}
	return nil
}

func (a *app) printSplitReport(file, content string, chunks []fragments.Chunk) {
	fmt.Fprintf(a.stdout, "File: %s\n", file)
	fmt.Fprintf(a.stdout, "Total characters: %d (~%d tokens)\n", utf8.RuneCountInString(content), tokens.Estimate(content))
	fmt.Fprintf(a.stdout, "Will be split into %d chunks\n\n", len(chunks))

	for i, c := range chunks {
		fmt.Fprintf(a.stdout, "Chunk %d: %s, %d characters (~%d tokens)\n",
			i+1, c.Name, utf8.RuneCountInString(c.Value), tokens.Estimate(c.Value))
		fmt.Fprintf(a.stdout, "Preview: %s...\n\n", preview(c.Value))
	}

	fmt.Fprintln(a.stdout, "Environment variables needed:")
	for i, c := range chunks {
		fmt.Fprintf(a.stdout, "%d. %s\n", i+1, c.Name)
	}
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) > previewRunes {
		runes = runes[:previewRunes]
	}
	return strings.TrimSpace(strings.ReplaceAll(string(runes), "\n", " "))
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
