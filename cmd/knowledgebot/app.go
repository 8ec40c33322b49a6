package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"knowledgebot/pkg/assistant"
	"knowledgebot/pkg/config"
	"knowledgebot/pkg/dispatch"
	"knowledgebot/pkg/fragments"
	"knowledgebot/pkg/llm"
	"knowledgebot/pkg/llm/anthropic"
	"knowledgebot/pkg/logx"
)

// app carries the loaded config and the process streams shared by subcommands.
type app struct {
	cfg    *config.Config
	stdin  io.Reader
	in     *bufio.Reader // Buffered stdin for non-terminal reads
	stdout io.Writer
	stderr io.Writer
	logger *logx.Logger
	lookup fragments.Lookup
}

func newApp(configPath string, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err //nolint:wrapcheck // ConfigError already names the key
	}
	return &app{
		cfg:    cfg,
		stdin:  stdin,
		in:     bufio.NewReader(stdin),
		stdout: stdout,
		stderr: stderr,
		logger: logx.NewLogger("main"),
		lookup: fragments.EnvLookup,
	}, nil
}

// newProvider wires cache, builder, and provider from the loaded config.
func (a *app) newProvider() *assistant.Provider {
	cache := assistant.NewCache(a.cfg.Assistant.CachePath)
	builder := assistant.NewBuilder(cache, a.lookup, assistant.OptionsFromConfig(a.cfg))
	return assistant.NewProvider(builder, a.cfg.Assistant.RetryInterval)
}

// newDispatcher wires the Anthropic client factory and middleware.
func (a *app) newDispatcher(middlewares ...llm.Middleware) *dispatch.Dispatcher {
	factory := anthropic.NewFactory(a.cfg.Upstream.BaseURL, a.cfg.Upstream.Timeout)
	return dispatch.New(factory, dispatch.Options{
		APIKeyVar:   a.cfg.Upstream.APIKeyVar,
		Subject:     a.cfg.Assistant.Subject,
		Middlewares: middlewares,
	})
}

// unlockSecrets decrypts the configured secrets file into memory. No file configured,
// or none on disk, is not an error.
func (a *app) unlockSecrets() error {
	path := a.cfg.Secrets.File
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		a.logger.Warn("Secrets file %s not found, using environment only", path)
		return nil
	}

	password, err := a.password("Secrets password: ", false)
	if err != nil {
		return err
	}
	n, err := config.LoadSecretsFile(path, password)
	if err != nil {
		return err //nolint:wrapcheck // ConfigError already names the file
	}
	a.logger.Info("Loaded %d secret(s) from %s", n, path)
	return nil
}

// password returns KNOWLEDGEBOT_SECRETS_PASSWORD or prompts on a terminal.
// With confirm, a terminal prompt asks twice.
func (a *app) password(prompt string, confirm bool) (string, error) {
	if p := os.Getenv(config.SecretsPasswordEnv); p != "" {
		return p, nil
	}
	if !a.interactive() {
		return "", config.NewMissingError(config.SecretsPasswordEnv)
	}

	first, err := a.readHidden(prompt)
	if err != nil {
		return "", err
	}
	if confirm {
		second, err := a.readHidden("Confirm password: ")
		if err != nil {
			return "", err
		}
		if first != second {
			return "", fmt.Errorf("passwords do not match")
		}
	}
	if first == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return first, nil
}

func (a *app) interactive() bool {
	f, ok := a.stdin.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readHidden reads one line without echo on a terminal, or a plain line otherwise.
func (a *app) readHidden(prompt string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.stderr, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		s := string(b)
		for i := range b {
			b[i] = 0
		}
		return s, nil
	}

	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
