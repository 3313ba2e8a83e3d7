// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Muggles200/InvoiceMarshal/internal/auth"
	"github.com/Muggles200/InvoiceMarshal/internal/auth/postgres"
	"github.com/Muggles200/InvoiceMarshal/internal/config"
	"github.com/Muggles200/InvoiceMarshal/internal/httpapi"
	"github.com/Muggles200/InvoiceMarshal/internal/logging"
	"github.com/Muggles200/InvoiceMarshal/internal/mail"
	"github.com/Muggles200/InvoiceMarshal/internal/observability"
	"github.com/Muggles200/InvoiceMarshal/internal/store"
)

const shutdownTimeout = 5 * time.Second

// newServeCmd creates the serve subcommand. Flag names mirror the config
// file keys so they bind onto the same configuration tree.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth service",
		Long: `Start the HTTP auth service: signup, login, email verification,
and the route gate, plus the observability listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}

	cmd.Flags().String("server.http_addr", "", "HTTP listen address")
	cmd.Flags().String("server.metrics_addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("server.log_format", "", "log format (json or text)")
	cmd.Flags().String("server.base_url", "", "external base URL for verification links")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.Setup("invoicemarshal", version, cfg.Server.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	slog.Info("starting auth service",
		"http_addr", cfg.Server.HTTPAddr,
		"metrics_addr", cfg.Server.MetricsAddr,
		"log_format", cfg.Server.LogFormat,
	)

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	slog.Info("database connected")

	deps, err := buildService(cfg, pool, logger)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Handler:  deps.handler,
		Sessions: deps.sessions,
		Gate:     deps.gate,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer *observability.Server
	if cfg.Server.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.Server.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		if _, err := obsServer.Start(); err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	httpErrCh := make(chan error, 1)
	go func() {
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			httpErrCh <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	cmd.Println("Auth service started")
	slog.Info("auth service ready", "http_addr", cfg.Server.HTTPAddr)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case serveErr := <-httpErrCh:
		slog.Error("http server error", "error", serveErr)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error shutting down http server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// loadConfig resolves configuration from the file, flags, and the
// DATABASE_URL environment variable.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Database.URL == "" {
		return nil, oops.Code("CONFIG_INVALID").
			Errorf("database.url or DATABASE_URL environment variable is required")
	}

	return cfg, nil
}

// serviceDeps bundles the wired components runServe hands to the router.
type serviceDeps struct {
	handler  *httpapi.Handler
	sessions *auth.SessionStore
	gate     *auth.Gate
}

// buildService wires repositories, policies, and the orchestrator onto the
// connection pool.
func buildService(cfg *config.Config, pool postgres.DB, logger *slog.Logger) (*serviceDeps, error) {
	accounts := postgres.NewAccountRepository(pool)
	attempts := postgres.NewAttemptRepository(pool)
	tokens := postgres.NewVerificationTokenRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	clock := auth.SystemClock{}

	ledger, err := auth.NewAttemptLedger(attempts, logger)
	if err != nil {
		return nil, err
	}

	signupThrottle, err := auth.NewThrottle(auth.AttemptSignup, ledger, clock,
		cfg.Throttle.SignupWindow(), cfg.Throttle.SignupMaxFailures)
	if err != nil {
		return nil, err
	}
	loginThrottle, err := auth.NewThrottle(auth.AttemptLogin, ledger, clock,
		cfg.Throttle.LoginWindow(), cfg.Throttle.LoginMaxFailures)
	if err != nil {
		return nil, err
	}

	hasher := auth.NewArgon2idHasher()

	migrator, err := auth.NewHashMigrator(accounts, hasher, logger)
	if err != nil {
		return nil, err
	}

	issuer, err := auth.NewTokenIssuer(tokens, accounts, clock)
	if err != nil {
		return nil, err
	}
	issuer = issuer.WithTTL(cfg.Tokens.VerificationTTL())

	sessions, err := auth.NewSessionStore(sessionRepo, clock, logger)
	if err != nil {
		return nil, err
	}

	logMailer, err := mail.NewLogMailer(cfg.Server.BaseURL, cfg.Mail.From, logger)
	if err != nil {
		return nil, err
	}
	mailer, err := mail.NewRetryMailer(logMailer)
	if err != nil {
		return nil, err
	}

	service, err := auth.NewService(auth.ServiceDeps{
		Accounts:       accounts,
		Ledger:         ledger,
		SignupThrottle: signupThrottle,
		LoginThrottle:  loginThrottle,
		Hasher:         hasher,
		Migrator:       migrator,
		Issuer:         issuer,
		Sessions:       sessions,
		Mailer:         mailer,
		Clock:          clock,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	gate, err := auth.NewGate(auth.GateConfig{
		ProtectedPrefixes: cfg.Gate.ProtectedPrefixes,
		AdminPrefix:       cfg.Gate.AdminPrefix,
		VerifyPath:        cfg.Gate.VerifyPath,
		UnauthorizedPath:  cfg.Gate.UnauthorizedPath,
	})
	if err != nil {
		return nil, err
	}

	secureCookies := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	handler, err := httpapi.NewHandler(service, sessions, issuer, secureCookies)
	if err != nil {
		return nil, err
	}

	return &serviceDeps{handler: handler, sessions: sessions, gate: gate}, nil
}
