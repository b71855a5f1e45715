package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumina-ai/lumina/config"
	"github.com/lumina-ai/lumina/internal/db"
	"github.com/lumina-ai/lumina/internal/httpapi"
	"github.com/lumina-ai/lumina/internal/log"
	"github.com/lumina-ai/lumina/internal/service"
	"github.com/lumina-ai/lumina/internal/tui"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to config file (default $LUMINA_CONFIG or ~/.lumina/config.yaml)")
		migrateFlag = flag.Bool("migrate", false, "Run database migrations and exit")
		tuiFlag     = flag.Bool("tui", false, "Chat in the terminal instead of serving HTTP")
		sessionFlag = flag.String("session", "", "Session id for -tui (a new one is generated when empty)")
	)
	flag.Parse()

	// Load configuration
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log.Init(&cfg.Log)

	// Run migrations if requested
	if *migrateFlag {
		if cfg.Database.Driver != "postgres" {
			fmt.Fprintln(os.Stderr, "Migrations apply to the postgres driver only")
			os.Exit(1)
		}
		if err := db.RunMigrations(cfg.Database.ConnectionString); err != nil {
			fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migrations completed successfully")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *tuiFlag {
		if err := runTUI(ctx, app.svc, *sessionFlag, cfg.Timeouts.Generation); err != nil {
			fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, app.svc, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func runTUI(ctx context.Context, svc *service.ChatService, sessionID string, generationTimeout time.Duration) error {
	conv, err := svc.NewConversation(ctx, sessionID)
	if err != nil {
		return err
	}
	return tui.Run(svc, conv.SessionID, 2*generationTimeout)
}

func serve(ctx context.Context, svc *service.ChatService, cfg *config.Config) error {
	server := httpapi.NewServer(cfg.Server.Addr, svc, cfg.Server.MaxUploadBytes)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
