package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"knowledgebot/pkg/config"
	"knowledgebot/pkg/llm"
	"knowledgebot/pkg/llm/middleware/logging"
	"knowledgebot/pkg/llm/middleware/metrics"
	"knowledgebot/pkg/logx"
	"knowledgebot/pkg/webui"
)

// runServe starts the HTTP service and blocks until SIGINT or SIGTERM.
func (a *app) runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var (
		host = fs.String("host", a.cfg.Server.Host, "Listen host")
		port = fs.Int("port", a.cfg.Server.Port, "Listen port")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	a.cfg.Server.Host, a.cfg.Server.Port = *host, *port
	if err := a.cfg.Validate(); err != nil {
		fmt.Fprintf(a.stderr, "Invalid config: %v\n", err)
		return 1
	}

	// Initialize the log file before any other logging so startup is captured.
	if dir := a.cfg.Logging.Dir; dir != "" {
		if err := logx.InitializeLogFile(dir, a.cfg.Logging.Keep, a.cfg.Logging.Tee); err != nil {
			fmt.Fprintf(a.stderr, "Failed to initialize log file: %v\n", err)
			return 1
		}
		defer func() {
			if err := logx.CloseLogFile(); err != nil {
				fmt.Fprintf(a.stderr, "Warning: failed to close log file: %v\n", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// serve logs its own failures.
	if err := a.serve(ctx); err != nil {
		return 1
	}
	return 0
}

// serve wires every component and runs the server until ctx is done.
func (a *app) serve(ctx context.Context) error {
	if err := a.unlockSecrets(); err != nil {
		return logx.Wrap(err, "failed to unlock secrets")
	}

	middlewares := []llm.Middleware{logging.Middleware(logx.NewLogger("llm"))}

	var reg *prometheus.Registry
	var recorder *metrics.PrometheusRecorder
	if a.cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(reg)
		middlewares = append(middlewares, metrics.Middleware(recorder, nil, nil))
	}

	provider := a.newProvider()
	if recorder != nil {
		provider.SetRecorder(recorder)
	}
	dispatcher := a.newDispatcher(middlewares...)

	// Build eagerly so /health is meaningful from the first request. A failure is
	// remembered by the provider; the service still starts.
	if _, err := provider.Get(); err != nil {
		a.logger.Error("Failed to initialize assistant config: %v", err)
	} else {
		a.logger.Info("Assistant config initialized successfully from %s", provider.Status().Source)
	}
	if !dispatcher.HasCredential() {
		a.logger.Warn("%s is not set; questions will fail until it is", a.cfg.Upstream.APIKeyVar)
	}

	if !config.HasSecret(a.cfg.Server.AdminTokenVar) {
		a.logger.Warn("%s is not set; /admin/reload is disabled", a.cfg.Server.AdminTokenVar)
	}

	server := webui.NewServer(provider, dispatcher, a.cfg.Assistant.Subject)
	server.SetAdminTokenVar(a.cfg.Server.AdminTokenVar)
	if recorder != nil {
		server.SetRecorder(recorder)
		server.SetMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	if err := server.StartServer(ctx, a.cfg.Addr()); err != nil {
		return logx.Wrap(err, "server failed")
	}
	return nil
}
