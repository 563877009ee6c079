package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack-server/internal/auth"
	"github.com/lox/blackjack-server/internal/httpd"
	"github.com/lox/blackjack-server/internal/registry"
)

var CLI struct {
	Config     string `short:"c" long:"config" default:"blackjackd.hcl" help:"Path to HCL configuration file"`
	Addr       string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel   string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	SessionTTL *int   `long:"session-ttl" help:"Session TTL in minutes, 0 disables expiry (overrides config)"`
	AllowAll   bool   `long:"allow-all" help:"Accept any credentials (dev mode, overrides config)"`
}

// applyOverrides layers command line flags over the file configuration.
// sessionTTL is a pointer so an explicit 0 can disable a config-set TTL.
func applyOverrides(cfg *httpd.Config, logLevel string, sessionTTL *int, allowAll bool) {
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if sessionTTL != nil {
		cfg.Game.SessionTTLMinutes = *sessionTTL
	}
	if allowAll {
		cfg.Auth.AllowAll = true
	}
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := httpd.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	applyOverrides(cfg, CLI.LogLevel, CLI.SessionTTL, CLI.AllowAll)

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	addr := cfg.ListenAddress()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}

	// Explicit construction: no ambient singletons. The authenticator,
	// user store, and registry are built here and injected.
	var authn auth.Authenticator
	var users httpd.UserCreator
	if cfg.Auth.AllowAll {
		authn = auth.NewAllowAll()
		logger.Warn("Authentication disabled, accepting any credentials")
	} else {
		store := auth.NewUserStore()
		authn = store
		if cfg.Auth.OpenRegistration {
			users = store
		}
	}

	clock := quartz.NewReal()
	reg := registry.New(logger, registry.WithNowFunc(func() time.Time { return clock.Now() }))
	server := httpd.NewServer(addr, reg, authn, users, logger,
		httpd.WithGameLimits(cfg.Game.MaxPlayers, cfg.Game.DefaultDecks))

	logger.Info("Starting blackjack server",
		"addr", addr,
		"defaultDecks", cfg.Game.DefaultDecks,
		"maxPlayers", cfg.Game.MaxPlayers,
		"sessionTTL", cfg.SessionTTL())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(server.Start)

	if ttl := cfg.SessionTTL(); ttl > 0 {
		janitor := registry.NewJanitor(reg, clock, ttl, time.Minute, logger)
		group.Go(func() error {
			err := janitor.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("Server failed", "error", err)
		kctx.Exit(1)
	}
}
