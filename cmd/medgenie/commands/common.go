package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/medfocus/medgenie/internal/genai"
	"github.com/medfocus/medgenie/internal/localcache"
	"github.com/medfocus/medgenie/internal/material"
	"github.com/medfocus/medgenie/internal/remotestore"
)

// envOr returns the flag value if set, falling back to the named
// environment variable.
func envOr(flagValue, envName string) string {
	if flagValue != "" {
		return flagValue
	}

	return os.Getenv(envName)
}

// newLogger builds the CLI logger. Diagnostics go to stderr so stdout
// stays clean for command output.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// buildService wires the full service: local cache, optional remote
// client, and the Gemini generator.
func buildService(ctx context.Context, log *slog.Logger) (
	*material.Service, func(), error) {

	cfg := material.DefaultConfig()

	path := cachePath
	if path == "" {
		var err error
		path, err = localcache.DefaultCachePath()
		if err != nil {
			return nil, nil, err
		}
	}

	local, err := localcache.Open(path, cfg.LocalTTL, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open local cache: %w", err)
	}

	// The remote tier only exists for callers with credentials;
	// everyone else falls through from a local miss straight to
	// generation.
	var remote material.RemoteStore
	baseURL := envOr(apiURL, "MEDGENIE_API")
	token := envOr(apiToken, "MEDGENIE_TOKEN")
	owner := envOr(ownerID, "MEDGENIE_OWNER")
	if baseURL != "" && token != "" && owner != "" {
		client, err := remotestore.NewClient(remotestore.ClientConfig{
			BaseURL: baseURL,
			Token:   token,
			OwnerID: owner,
		})
		if err != nil {
			local.Close()
			return nil, nil, err
		}
		remote = client
	} else {
		log.Debug("No remote store credentials, tier disabled")
	}

	genCfg := genai.DefaultConfig()
	genCfg.APIKey = os.Getenv("GEMINI_API_KEY")
	gen, err := genai.NewGenerator(ctx, genCfg, log)
	if err != nil {
		local.Close()
		return nil, nil, err
	}

	svc := material.NewService(cfg, local, remote, gen, log)
	cleanup := func() {
		local.Close()
	}

	return svc, cleanup, nil
}
