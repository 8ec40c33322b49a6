package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"knowledgebot/pkg/config"
)

// runSecrets implements "secrets set NAME", "secrets list", and "secrets delete NAME".
func (a *app) runSecrets(args []string) int {
	path := a.cfg.Secrets.File
	if path == "" {
		fmt.Fprintln(a.stderr, "Error: no secrets file configured (secrets.file or KNOWLEDGEBOT_SECRETS_FILE)")
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(a.stderr, "Usage: knowledgebot secrets set|list|delete [NAME]")
		return 2
	}

	action, rest := args[0], args[1:]
	switch action {
	case "list":
	case "set", "delete":
		if len(rest) != 1 {
			fmt.Fprintf(a.stderr, "Usage: knowledgebot secrets %s NAME\n", action)
			return 2
		}
	default:
		fmt.Fprintf(a.stderr, "Error: unknown secrets action %q\n", action)
		return 2
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil
	password, err := a.password("Secrets password: ", !exists && action == "set")
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}

	secrets := map[string]string{}
	if exists {
		if secrets, err = config.DecryptSecretsFile(path, password); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		fmt.Fprintf(a.stderr, "Error: %v\n", statErr)
		return 1
	}

	switch action {
	case "list":
		names := make([]string, 0, len(secrets))
		for name := range secrets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(a.stdout, name)
		}
		return 0
	case "set":
		value, err := a.readHidden(fmt.Sprintf("Value for %s: ", rest[0]))
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		if value == "" {
			fmt.Fprintln(a.stderr, "Error: value must not be empty")
			return 1
		}
		secrets[rest[0]] = value
	case "delete":
		if _, ok := secrets[rest[0]]; !ok {
			fmt.Fprintf(a.stderr, "Error: %s is not in %s\n", rest[0], path)
			return 1
		}
		delete(secrets, rest[0])
	}

	if err := config.EncryptSecretsFile(path, password, secrets); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(a.stdout, "Saved %d secret(s) to %s\n", len(secrets), path)
	return 0
}
