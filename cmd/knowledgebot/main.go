// Command knowledgebot answers questions about a knowledge document through the Anthropic API.
//
// Usage:
//
//	knowledgebot [-config FILE] [serve]
//	knowledgebot [-config FILE] ask [-rebuild] QUESTION
//	knowledgebot [-config FILE] split -file FILE [-size N] [-prefix P | -var NAME] [-format text|env|json]
//	knowledgebot [-config FILE] secrets set|list|delete [NAME]
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"knowledgebot/pkg/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses global flags and hands off to a subcommand. It returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("knowledgebot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "Path to YAML config file (default: ./knowledgebot.yaml if present)")
		showVersion = fs.Bool("version", false, "Show version information")
	)
	fs.Usage = func() { printUsage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	cmd, rest := "serve", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	a, err := newApp(*configPath, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	switch cmd {
	case "serve":
		return a.runServe(rest)
	case "ask":
		return a.runAsk(rest)
	case "split":
		return a.runSplit(rest)
	case "secrets":
		return a.runSecrets(rest)
	case "help":
		printUsage(stdout, fs)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", cmd)
		printUsage(stderr, fs)
		return 2
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: knowledgebot [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve     Run the HTTP service (default)")
	fmt.Fprintln(w, "  ask       Ask one question from the command line")
	fmt.Fprintln(w, "  split     Split a knowledge file into numbered environment variables")
	fmt.Fprintln(w, "  secrets   Manage the encrypted secrets file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
