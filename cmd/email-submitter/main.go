// Package main is the entry point for the DSW email submission service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dsw-integrations/email-submitter/internal/api"
	"github.com/dsw-integrations/email-submitter/internal/build"
	"github.com/dsw-integrations/email-submitter/internal/config"
	"github.com/dsw-integrations/email-submitter/internal/notify"
	"github.com/dsw-integrations/email-submitter/internal/provider"
	"github.com/dsw-integrations/email-submitter/internal/provider/graph"
	"github.com/dsw-integrations/email-submitter/internal/provider/ses"
	"github.com/dsw-integrations/email-submitter/internal/provider/smtp"
	"github.com/dsw-integrations/email-submitter/internal/provider/stdout"
	apptls "github.com/dsw-integrations/email-submitter/internal/tls"
)

// shutdownTimeout is the maximum time to wait for in-flight requests during
// graceful shutdown.
const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (overrides SUBMISSION_CONFIG)")
	flag.Parse()

	// Default logging until the configured settings are known.
	setupLogger(config.Default().Logging)

	cfg := loadConfig(*configPath)
	setupLogger(cfg.Logging)

	rt, err := buildRuntime(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize delivery provider", "error", err)
		os.Exit(1)
	}

	server := api.NewServer(rt)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.HTTP.TLS.Enabled {
		tlsConfig, err := apptls.LoadOrGenerateTLS(cfg.HTTP.TLS.CertFile, cfg.HTTP.TLS.KeyFile, nil)
		if err != nil {
			slog.Error("failed to setup TLS", "error", err)
			os.Exit(1)
		}
		httpServer.TLSConfig = tlsConfig
	}

	slog.Info("starting email-submitter",
		"version", build.Current().Version,
		"listen", cfg.HTTP.Listen,
		"provider", rt.Dispatcher.ProviderName(),
		"security_enabled", cfg.Security.Enabled,
		"tokens", cfg.Security.TokenCount(),
		"tls_enabled", cfg.HTTP.TLS.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				reload(server, *configPath)
				continue
			}
			slog.Info("received signal, initiating shutdown", "signal", sig)
			cancel()
			return
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if httpServer.TLSConfig != nil {
			errCh <- httpServer.ListenAndServeTLS("", "")
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown did not complete cleanly", "error", err)
		}
	}

	slog.Info("email-submitter stopped")
}

// loadConfig resolves the configuration from the flag, the
// SUBMISSION_CONFIG environment variable, or the default path. A load
// failure is logged but not fatal; the service starts on built-in defaults
// (subsequent dispatches will then fail downstream with an empty host).
func loadConfig(path string) *config.Config {
	cfg, err := resolveConfig(path)
	if err != nil {
		slog.Warn("failed to load config, using built-in defaults", "error", err)
		return config.Default()
	}
	return cfg
}

func resolveConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// buildRuntime materializes one configuration epoch: the delivery provider
// and the dispatcher bound to the resolved mail settings.
func buildRuntime(ctx context.Context, cfg *config.Config) (*api.Runtime, error) {
	prov, err := selectProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &api.Runtime{
		Config:     cfg,
		Dispatcher: notify.NewDispatcher(cfg.Mail, prov),
	}, nil
}

// reload re-resolves the configuration and swaps in a fresh runtime.
// In-flight dispatches keep the epoch they started with; a failed reload
// keeps the current configuration.
func reload(server *api.Server, path string) {
	slog.Info("reloading configuration")
	cfg, err := resolveConfig(path)
	if err != nil {
		slog.Error("reload failed, keeping current configuration", "error", err)
		return
	}
	rt, err := buildRuntime(context.Background(), cfg)
	if err != nil {
		slog.Error("reload failed, keeping current configuration", "error", err)
		return
	}
	setupLogger(cfg.Logging)
	server.Swap(rt)
	slog.Info("configuration reloaded", "provider", rt.Dispatcher.ProviderName())
}

// selectProvider chooses the delivery backend named in the configuration.
// SMTP is the default; ses and msgraph require their credential sections.
func selectProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider.Name {
	case "smtp", "":
		return smtp.New(smtp.Config{
			Host:        cfg.Mail.Host,
			Port:        cfg.Mail.Port,
			Security:    cfg.Mail.Security,
			AuthEnabled: cfg.Mail.AuthEnabled,
			Username:    cfg.Mail.Username,
			Password:    cfg.Mail.Password,
		}), nil

	case "ses":
		if cfg.Provider.SES.Region == "" {
			return nil, fmt.Errorf("ses provider selected but provider.ses.region is required")
		}
		return ses.New(ctx, ses.Config{
			Region:          cfg.Provider.SES.Region,
			AccessKeyID:     cfg.Provider.SES.AccessKeyID,
			SecretAccessKey: cfg.Provider.SES.SecretAccessKey,
		})

	case "msgraph":
		g := cfg.Provider.Graph
		if g.TenantID == "" || g.ClientID == "" || g.ClientSecret == "" {
			return nil, fmt.Errorf("msgraph provider selected but provider.graph credentials are required")
		}
		return graph.New(graph.Config{
			TenantID:     g.TenantID,
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
		}), nil

	case "stdout":
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}
}

// setupLogger configures the global slog logger from the logging settings.
func setupLogger(logging config.LoggingConfig) {
	var level slog.Level
	switch logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
