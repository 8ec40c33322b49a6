package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"knowledgebot/pkg/assistant"
	"knowledgebot/pkg/llm/middleware/logging"
)

// runAsk builds the config (optionally from scratch) and asks one question.
func (a *app) runAsk(args []string) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	rebuild := fs.Bool("rebuild", false, "Delete the cached config first so it is rebuilt from the environment")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Fprintln(a.stderr, "Error: ask needs a question")
		return 2
	}

	if err := a.unlockSecrets(); err != nil {
		fmt.Fprintf(a.stderr, "Failed to unlock secrets: %v\n", err)
		return 1
	}

	provider := a.newProvider()
	var (
		cfg assistant.Config
		err error
	)
	if *rebuild {
		cfg, err = provider.Rebuild(true)
	} else {
		cfg, err = provider.Get()
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "Failed to build assistant config: %v\n", err)
		return 1
	}

	dispatcher := a.newDispatcher(logging.Middleware(nil))
	answer, err := dispatcher.Dispatch(context.Background(), question, cfg)
	if err != nil {
		fmt.Fprintf(a.stderr, "Query failed: %v\n", err)
		return 1
	}

	fmt.Fprintf(a.stdout, "Question: %s\n\nResponse: %s\n", question, answer)
	return 0
}
