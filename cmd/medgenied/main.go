package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medfocus/medgenie/internal/api"
	"github.com/medfocus/medgenie/internal/build"
	"github.com/medfocus/medgenie/internal/remotestore"
)

// shutdownGrace bounds how long in-flight requests may run after a
// termination signal.
const shutdownGrace = 10 * time.Second

func main() {
	var (
		dbPath = flag.String(
			"db", "", "Path to SQLite database "+
				"(default: ~/.medgenie/materials.db)",
		)
		listenAddr = flag.String(
			"listen", "localhost:8590",
			"Address for the materials API",
		)
		token = flag.String(
			"token", os.Getenv("MEDGENIE_TOKEN"),
			"Shared bearer token (from $MEDGENIE_TOKEN)",
		)
		logDir = flag.String(
			"logdir", "",
			"Directory for rotated log files (empty: stderr only)",
		)
		verbose = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	var logOut io.Writer = os.Stderr
	if *logDir != "" {
		rotatorCfg := build.DefaultLogRotatorConfig()
		rotatorCfg.LogDir = *logDir

		logWriter := build.NewRotatingLogWriter()
		if err := logWriter.InitLogRotator(rotatorCfg); err != nil {
			log.Fatalf("Failed to init log rotator: %v", err)
		}
		defer logWriter.Close()

		logOut = io.MultiWriter(os.Stderr, logWriter)
	}

	logger := slog.New(slog.NewTextHandler(
		logOut, &slog.HandlerOptions{Level: level},
	))

	if *token == "" {
		log.Fatal("A bearer token is required: set --token or " +
			"$MEDGENIE_TOKEN")
	}

	path := *dbPath
	if path == "" {
		var err error
		path, err = remotestore.DefaultDBPath()
		if err != nil {
			log.Fatalf("Failed to resolve database path: %v", err)
		}
	}

	// Open the database with migrations.
	store, err := remotestore.NewSQLStore(path, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	cfg := api.DefaultConfig()
	cfg.ListenAddr = *listenAddr
	cfg.Token = *token

	server := api.NewServer(cfg, store, logger)

	// Set up signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(
			context.Background(), shutdownGrace,
		)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil &&
		err != http.ErrServerClosed {

		log.Fatalf("Server error: %v", err)
	}
}
